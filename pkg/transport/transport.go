// Package transport executes lightblue calls over HTTP. Transport is the seam
// between the client and the network; HTTP is the default implementation and
// the mock subpackage provides a generated test double.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lightblue-platform/lightblue_sdk_go/internal/httpx"
)

// Transport executes one HTTP call and returns the raw response text.
type Transport interface {
	Execute(ctx context.Context, method, uri, body string) (string, error)
	Close() error
}

// ErrTransport matches every Error.
var ErrTransport = errors.New("transport: call failed")

// Error wraps the I/O failure of a single call.
type Error struct {
	Method string
	URI    string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("transport: %s %s: %v", e.Method, e.URI, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches ErrTransport.
func (e *Error) Is(target error) bool {
	return target == ErrTransport
}

// Option configures an HTTP transport.
type Option = httpx.Option

// ClientFactory produces the *http.Client used for a single call.
type ClientFactory = httpx.ClientFactory

// WithClientFactory creates the per-call client through f. Each client is
// released after its call.
func WithClientFactory(f ClientFactory) Option {
	return httpx.WithClientFactory(f)
}

// WithHTTPClient shares h across calls without closing its pool.
func WithHTTPClient(h *http.Client) Option {
	return httpx.WithHTTPClient(h)
}

// WithHeaders adds headers to every call.
func WithHeaders(h http.Header) Option {
	return httpx.WithHeaders(h)
}

// HTTP is a Transport speaking HTTP/JSON. It is safe for concurrent use; no
// connection state outlives a call.
type HTTP struct {
	client *httpx.Client
}

// NewHTTP builds an HTTP transport.
func NewHTTP(opts ...Option) *HTTP {
	return &HTTP{client: httpx.NewClient(opts...)}
}

// Execute sends the call. Only POST and PUT carry the body; for GET and DELETE it
// is dropped. PUT is sent as POST. Non-2xx responses are returned as text so
// the caller can read the error payload.
func (t *HTTP) Execute(ctx context.Context, method, uri, body string) (string, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == http.MethodPut {
		method = http.MethodPost
	}

	req := &httpx.Request{
		Method: method,
		URL:    uri,
		Header: http.Header{"Content-Type": {"application/json"}},
	}
	if httpx.EnclosesEntity(method) {
		req.Body = []byte(body)
	}

	resp, err := t.client.Do(ctx, req)
	if err != nil {
		return "", &Error{Method: method, URI: uri, Err: err}
	}
	return string(resp.Body), nil
}

// Close is a no-op. Connections are released at the end of every call, and
// callers depend on Close being safe to call any number of times.
func (t *HTTP) Close() error {
	return nil
}
