package lightblue

import (
	"fmt"
	"os"
	"strings"

	"github.com/lightblue-platform/lightblue_sdk_go/internal/config"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/memstore"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/transport"
)

const (
	envConfigFile = "LIGHTBLUE_CONFIG"

	// MockBaseURI is the base URI of clients backed by an in-memory store.
	MockBaseURI = "mock://lightblue"
)

// NewFromEnv builds a Client from LIGHTBLUE_ environment variables and the
// optional YAML file named by LIGHTBLUE_CONFIG. It returns the resolved mode
// ("http" or "mock").
func NewFromEnv(opts ...Option) (client *Client, mode string, err error) {
	cfg, err := config.Load(config.New(), os.Getenv(envConfigFile))
	if err != nil {
		return nil, "", fmt.Errorf("lightblue: %w", err)
	}
	return NewFromConfig(cfg, opts...)
}

// NewFromConfig builds a Client from resolved settings.
func NewFromConfig(cfg *config.Config, opts ...Option) (client *Client, mode string, err error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("lightblue: config is required")
	}
	if cfg.Verbose {
		opts = append([]Option{WithVerbose(true)}, opts...)
	}

	switch cfg.RuntimeMode {
	case "", config.ModeAuto:
		if cfg.DataServiceURI != "" {
			return newHTTPClient(cfg, opts)
		}
		return newMockClient(cfg, opts)
	case config.ModeHTTP:
		if cfg.DataServiceURI == "" {
			return nil, "", fmt.Errorf("lightblue: HTTP mode requires a data service URI")
		}
		return newHTTPClient(cfg, opts)
	case config.ModeMock:
		return newMockClient(cfg, opts)
	default:
		return nil, "", fmt.Errorf("lightblue: unsupported runtime mode %q", cfg.RuntimeMode)
	}
}

func newHTTPClient(cfg *config.Config, opts []Option) (*Client, string, error) {
	client, err := New(cfg.DataServiceURI, transport.NewHTTP(), opts...)
	if err != nil {
		return nil, "", fmt.Errorf("lightblue: init HTTP client: %w", err)
	}
	return client, config.ModeHTTP, nil
}

func newMockClient(cfg *config.Config, opts []Option) (*Client, string, error) {
	store, err := NewSeededStore(cfg.MockSeed)
	if err != nil {
		return nil, "", err
	}
	client, err := New(MockBaseURI, store, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("lightblue: init mock client: %w", err)
	}
	return client, config.ModeMock, nil
}

// NewSeededStore returns an in-memory store loaded from the seed file at
// path, or an empty one when path is blank.
func NewSeededStore(path string, opts ...memstore.Option) (*memstore.Store, error) {
	store := memstore.New(opts...)
	if path = strings.TrimSpace(path); path == "" {
		return store, nil
	}
	entries, err := memstore.LoadSeed(path)
	if err != nil {
		return nil, fmt.Errorf("lightblue: load mock seed: %w", err)
	}
	if err := store.Seed(entries); err != nil {
		return nil, fmt.Errorf("lightblue: apply mock seed: %w", err)
	}
	return store, nil
}
