// Command lightblue issues CRUD calls against a lightblue data service, or
// against an in-memory store, and serves that store over HTTP as a sandbox.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lightblue-platform/lightblue_sdk_go/internal/config"
	"github.com/lightblue-platform/lightblue_sdk_go/internal/logger"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/lightblue"
)

// errServiceStatus signals a response whose status is "error". The response
// has already been printed.
var errServiceStatus = errors.New("lightblue reported an error")

type app struct {
	v          *viper.Viper
	configPath string

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errServiceStatus) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "lightblue",
		Short:         "lightblue data service client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.String("data-service-uri", "", "data service base URI (LIGHTBLUE_DATA_SERVICE_URI)")
	flags.String("runtime-mode", config.ModeAuto, "auto, http or mock (LIGHTBLUE_RUNTIME_MODE)")
	flags.String("log-level", "info", "log level (LIGHTBLUE_LOG_LEVEL)")
	flags.Bool("verbose", false, "log request bodies at debug level, as console output (LIGHTBLUE_VERBOSE)")
	flags.String("mock-seed", "", "seed file for the in-memory store (LIGHTBLUE_MOCK_SEED)")

	root.AddCommand(crudCommands(a)...)
	root.AddCommand(sandboxCmd(a))
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	newLogger := logger.New
	if cfg.Verbose {
		newLogger = logger.NewConsole
	}
	l, err := newLogger(cfg.LogLevel, []string{"stderr"}, []string{"stderr"})
	if err != nil {
		return errors.Wrapf(err, "log level %q", cfg.LogLevel)
	}
	a.cfg = cfg
	a.logger = l
	return nil
}

func (a *app) client() (*lightblue.Client, error) {
	c, mode, err := lightblue.NewFromConfig(a.cfg, lightblue.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.logger.Debug("client ready", zap.String("mode", mode), zap.String("uri", c.BaseURI()))
	return c, nil
}
