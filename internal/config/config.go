// Package config loads SDK settings from an optional YAML file and LIGHTBLUE_
// prefixed environment variables.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ModeAuto = "auto"
	ModeHTTP = "http"
	ModeMock = "mock"

	KeyRuntimeMode    = "runtime_mode"
	KeyDataServiceURI = "data_service_uri"
	KeyVerbose        = "verbose"
	KeyLogLevel       = "log_level"
	KeyMockSeed       = "mock_seed"
)

// Config holds the resolved settings.
type Config struct {
	RuntimeMode    string `mapstructure:"runtime_mode"`
	DataServiceURI string `mapstructure:"data_service_uri"`
	Verbose        bool   `mapstructure:"verbose"`
	LogLevel       string `mapstructure:"log_level"`
	MockSeed       string `mapstructure:"mock_seed"`
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyRuntimeMode, ModeAuto)
	v.SetDefault(KeyDataServiceURI, "")
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyMockSeed, "")

	v.SetEnvPrefix("lightblue")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags maps command-line flags onto config keys. Flags use dashes where
// keys use underscores.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		switch key {
		case KeyRuntimeMode, KeyDataServiceURI, KeyVerbose, KeyLogLevel, KeyMockSeed:
			if err := v.BindPFlag(key, f); err != nil {
				bindErr = errors.Wrapf(err, "bind flag %s", f.Name)
			}
		}
	})
	return bindErr
}

// Load reads the YAML file at path, when given, and decodes the merged
// settings.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = New()
	}
	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.RuntimeMode = strings.ToLower(strings.TrimSpace(cfg.RuntimeMode))
	cfg.DataServiceURI = strings.TrimSpace(cfg.DataServiceURI)
	cfg.MockSeed = strings.TrimSpace(cfg.MockSeed)

	switch cfg.RuntimeMode {
	case "":
		cfg.RuntimeMode = ModeAuto
	case ModeAuto, ModeHTTP, ModeMock:
	default:
		return nil, errors.Errorf("unsupported runtime mode %q", cfg.RuntimeMode)
	}
	if cfg.RuntimeMode == ModeHTTP && cfg.DataServiceURI == "" {
		return nil, errors.New("HTTP mode requires data_service_uri (LIGHTBLUE_DATA_SERVICE_URI)")
	}
	return cfg, nil
}
