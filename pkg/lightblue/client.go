package lightblue

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lightblue-platform/lightblue_sdk_go/pkg/request"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/response"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/transport"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger routes client diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithVerbose logs request bodies when the logger has debug enabled.
func WithVerbose(v bool) Option {
	return func(c *Client) {
		c.verbose = v
	}
}

// Client sends descriptors to one data service. Its configuration is fixed at
// construction, so a Client is safe for concurrent use when its transport is.
type Client struct {
	baseURI   string
	transport transport.Transport
	logger    *zap.Logger
	verbose   bool
}

// New returns a Client for the service at baseURI.
func New(baseURI string, tr transport.Transport, opts ...Option) (*Client, error) {
	baseURI = strings.TrimSpace(baseURI)
	u, err := url.Parse(baseURI)
	if err != nil {
		return nil, fmt.Errorf("lightblue: invalid base URI %q: %w", baseURI, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("lightblue: base URI %q must be absolute", baseURI)
	}
	if tr == nil {
		return nil, fmt.Errorf("lightblue: transport is required")
	}

	c := &Client{
		baseURI:   baseURI,
		transport: tr,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURI returns the service root the client was built with.
func (c *Client) BaseURI() string {
	return c.baseURI
}

// ExecuteRequest sends d and returns the response wrapped in a new envelope.
// Errors come from an unusable descriptor or the transport; the envelope
// itself is not inspected.
func (c *Client) ExecuteRequest(ctx context.Context, d *request.Descriptor) (*response.Envelope, error) {
	if d == nil {
		return nil, &request.InvalidRequestError{Field: "request", Reason: "descriptor is nil"}
	}

	method := string(d.Method())
	uri := d.URI(c.baseURI)
	c.logger.Debug("calling lightblue", zap.String("method", method), zap.String("uri", uri))
	if c.verbose && d.Method().CarriesBody() && c.logger.Core().Enabled(zapcore.DebugLevel) {
		c.logger.Debug("request body", zap.String("uri", uri), zap.String("body", d.Body()))
	}

	text, err := c.transport.Execute(ctx, method, uri, d.Body())
	if err != nil {
		return nil, err
	}
	return response.New(text), nil
}

// Close releases the transport.
func (c *Client) Close() error {
	return c.transport.Close()
}
