package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lightblue-platform/lightblue_sdk_go/pkg/lightblue"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/memstore"
)

const sandboxBasePath = "/rest/data"

type failConfig struct {
	rate float64
	code int
}

type sandboxFlags struct {
	addr    string
	seed    string
	latency time.Duration
	fail    string
}

func sandboxCmd(a *app) *cobra.Command {
	f := &sandboxFlags{}
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Serve an in-memory data service over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSandbox(cmd, a, f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.addr, "addr", ":8787", "listen address")
	flags.StringVar(&f.seed, "seed", "", "seed file (defaults to --mock-seed)")
	flags.DurationVar(&f.latency, "latency", 0, "artificial latency to inject per request")
	flags.StringVar(&f.fail, "fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	return cmd
}

func runSandbox(cmd *cobra.Command, a *app, f *sandboxFlags) error {
	seed := f.seed
	if seed == "" {
		seed = a.cfg.MockSeed
	}
	store, err := lightblue.NewSeededStore(seed,
		memstore.WithBasePath(sandboxBasePath),
		memstore.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	failCfg, err := parseFailConfig(f.fail)
	if err != nil {
		return errors.Wrap(err, "parse --fail")
	}

	ln, err := net.Listen("tcp", f.addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", f.addr)
	}
	server := &http.Server{
		Handler:           newSandboxRouter(store, a.logger, f.latency, failCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	out := cmd.OutOrStdout()
	host := ln.Addr().String()
	if strings.HasPrefix(f.addr, ":") {
		host = "localhost" + f.addr
	}
	a.logger.Info("sandbox listening", zap.String("addr", ln.Addr().String()))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "export LIGHTBLUE_RUNTIME_MODE=http")
	fmt.Fprintf(out, "export LIGHTBLUE_DATA_SERVICE_URI=http://%s%s\n", host, sandboxBasePath)
	fmt.Fprintln(out)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "sandbox server")
	}
	return nil
}

func newSandboxRouter(store *memstore.Store, l *zap.Logger, delay time.Duration, failCfg failConfig) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware(delay, failCfg))

	data := r.PathPrefix(sandboxBasePath).Subrouter()
	methods := []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}
	handler := serveStore(store, l)
	data.HandleFunc("/{entity}/{operation}", handler).Methods(methods...)
	data.HandleFunc("/{entity}/{version}/{operation}", handler).Methods(methods...)
	return r
}

func serveStore(store *memstore.Store, l *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		l.Debug("sandbox request",
			zap.String("method", r.Method),
			zap.String("entity", vars["entity"]),
			zap.String("operation", vars["operation"]))

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		text, err := store.Execute(r.Context(), r.Method, r.URL.RequestURI(), string(body))
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, text)
	}
}

func middleware(delay time.Duration, failCfg failConfig) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if delay > 0 {
				time.Sleep(delay)
			}
			if failCfg.rate > 0 && rand.Float64() < failCfg.rate {
				status := failCfg.code
				if status == 0 {
					status = http.StatusInternalServerError
				}
				http.Error(w, "failure injected", status)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseFailConfig(raw string) (failConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return failConfig{}, nil
	}
	cfg := failConfig{code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return failConfig{}, errors.Errorf("invalid fail segment %q", part)
		}
		val = strings.TrimSpace(val)
		switch strings.TrimSpace(key) {
		case "rate":
			rate, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return failConfig{}, errors.Wrap(err, "rate")
			}
			cfg.rate = rate
		case "code":
			code, err := strconv.Atoi(val)
			if err != nil {
				return failConfig{}, errors.Wrap(err, "code")
			}
			cfg.code = code
		default:
			return failConfig{}, errors.Errorf("unknown fail key %q", key)
		}
	}
	return cfg, nil
}
