package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestDoDropsBodyForBodylessMethods(t *testing.T) {
	tests := []struct {
		method   string
		wantBody string
	}{
		{method: http.MethodGet, wantBody: ""},
		{method: http.MethodDelete, wantBody: ""},
		{method: http.MethodPost, wantBody: `{"data":[]}`},
		{method: http.MethodPut, wantBody: `{"data":[]}`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.method, func(t *testing.T) {
			var gotBody, gotMethod string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				data, _ := io.ReadAll(r.Body)
				gotBody = string(data)
				gotMethod = r.Method
				io.WriteString(w, `{}`)
			}))
			defer srv.Close()

			c := NewClient()
			resp, err := c.Do(context.Background(), &Request{
				Method: tc.method,
				URL:    srv.URL + "/country/find",
				Body:   []byte(`{"data":[]}`),
			})
			if err != nil {
				t.Fatalf("Do: %v", err)
			}
			if gotMethod != tc.method {
				t.Fatalf("method mismatch: expected %s, got %s", tc.method, gotMethod)
			}
			if gotBody != tc.wantBody {
				t.Fatalf("body mismatch: expected %q, got %q", tc.wantBody, gotBody)
			}
			if string(resp.Body) != `{}` {
				t.Fatalf("unexpected response body %q", string(resp.Body))
			}
		})
	}
}

func TestDoAppliesHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	c := NewClient(WithHeaders(http.Header{"X-Client": {"sdk"}}))
	_, err := c.Do(context.Background(), &Request{
		Method: http.MethodGet,
		URL:    srv.URL,
		Header: http.Header{"Content-Type": {"application/json"}},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got.Get("X-Client") != "sdk" {
		t.Fatalf("default header missing: %v", got)
	}
	if got.Get("Content-Type") != "application/json" {
		t.Fatalf("request header missing: %v", got)
	}
}

func TestDoReturnsNonSuccessBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"status":"error"}`)
	}))
	defer srv.Close()

	resp, err := NewClient().Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"status":"error"}` {
		t.Fatalf("unexpected body %q", string(resp.Body))
	}
}

type countingTransport struct {
	closed atomic.Int32
	next   http.RoundTripper
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	return c.next.RoundTrip(r)
}

func (c *countingTransport) CloseIdleConnections() {
	c.closed.Add(1)
}

func TestDoReleasesPerCallClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	}))
	addr := srv.URL
	var acquired atomic.Int32
	rt := &countingTransport{next: http.DefaultTransport}
	c := NewClient(WithClientFactory(func() (*http.Client, error) {
		acquired.Add(1)
		return &http.Client{Transport: rt}, nil
	}))

	if _, err := c.Do(context.Background(), &Request{Method: http.MethodGet, URL: addr}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	srv.Close()

	if _, err := c.Do(context.Background(), &Request{Method: http.MethodGet, URL: addr}); err == nil {
		t.Fatalf("expected error after server shutdown")
	}

	if acquired.Load() != 2 {
		t.Fatalf("expected 2 acquisitions, got %d", acquired.Load())
	}
	if rt.closed.Load() != 2 {
		t.Fatalf("expected 2 releases, got %d", rt.closed.Load())
	}
}

func TestDoFactoryFailure(t *testing.T) {
	boom := errors.New("tls config")
	c := NewClient(WithClientFactory(func() (*http.Client, error) {
		return nil, boom
	}))
	_, err := c.Do(context.Background(), &Request{Method: http.MethodGet, URL: "http://localhost"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected factory error, got %v", err)
	}
}

func TestDoValidatesRequest(t *testing.T) {
	c := NewClient()
	if _, err := c.Do(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil request")
	}
	if _, err := c.Do(context.Background(), &Request{URL: "http://localhost"}); err == nil {
		t.Fatalf("expected error for missing method")
	}
	if _, err := c.Do(context.Background(), &Request{Method: http.MethodGet}); err == nil {
		t.Fatalf("expected error for missing URL")
	}
}
