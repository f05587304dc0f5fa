package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ClientFactory produces the *http.Client used for a single call.
type ClientFactory func() (*http.Client, error)

// Option configures a Client.
type Option func(*Client)

// WithClientFactory overrides how the per-call HTTP client is created. Clients
// produced by the factory are released once the call returns.
func WithClientFactory(f ClientFactory) Option {
	return func(c *Client) {
		if f != nil {
			c.acquire = func() (*http.Client, func(), error) {
				h, err := f()
				if err != nil {
					return nil, nil, err
				}
				if h == nil {
					return nil, nil, errors.New("httpx: client factory returned nil")
				}
				return h, h.CloseIdleConnections, nil
			}
		}
	}
}

// WithHTTPClient makes every call share h. The shared client's pool is left
// untouched after each call.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.acquire = func() (*http.Client, func(), error) {
				return h, func() {}, nil
			}
		}
	}
}

// WithHeaders assigns default headers added to every request.
func WithHeaders(h http.Header) Option {
	return func(c *Client) {
		for k, values := range h {
			for _, v := range values {
				c.headers.Add(k, v)
			}
		}
	}
}

// Client executes single HTTP calls, acquiring a connection handle per call.
type Client struct {
	acquire func() (*http.Client, func(), error)
	headers http.Header
}

// Request describes a single outbound request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the fully buffered outcome of a call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// NewClient creates a Client. Without options each call gets a fresh
// *http.Client backed by a cloned default transport.
func NewClient(opts ...Option) *Client {
	c := &Client{
		headers: make(http.Header),
	}
	WithClientFactory(DefaultClientFactory)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultClientFactory returns an isolated client whose transport is a clone
// of http.DefaultTransport.
func DefaultClientFactory() (*http.Client, error) {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return &http.Client{}, nil
	}
	return &http.Client{Transport: base.Clone()}, nil
}

// Do executes the request and returns the buffered response. The per-call
// client handle is released on every return path.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New("httpx: request is nil")
	}
	if req.Method == "" {
		return nil, errors.New("httpx: HTTP method is required")
	}
	if strings.TrimSpace(req.URL) == "" {
		return nil, errors.New("httpx: URL is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	httpClient, release, err := c.acquire()
	if err != nil {
		return nil, fmt.Errorf("httpx: acquire client: %w", err)
	}
	defer release()

	var body io.Reader
	if EnclosesEntity(req.Method) {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}

	httpReq.Header = cloneHeader(c.headers)
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}

	data, err := ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpx: read response body: %w", err)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
	}, nil
}

// EnclosesEntity reports whether requests with the given method carry a body.
func EnclosesEntity(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut:
		return true
	default:
		return false
	}
}

// ReadAllAndClose drains the reader and ensures it is closed.
func ReadAllAndClose(rc io.ReadCloser) ([]byte, error) {
	defer closeBody(rc)
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func closeBody(rc io.ReadCloser) {
	if rc != nil {
		_ = rc.Close()
	}
}

func cloneHeader(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for k, values := range src {
		vCopy := make([]string, len(values))
		copy(vCopy, values)
		dst[k] = vCopy
	}
	return dst
}
