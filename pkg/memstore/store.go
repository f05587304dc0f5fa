// Package memstore is an in-memory stand-in for the lightblue data service.
// Store implements transport.Transport by interpreting the same method, URI
// and body the remote service would receive, so clients run unchanged against
// it in tests, examples and the sandbox server.
package memstore

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lightblue-platform/lightblue_sdk_go/internal/lbapi"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/request"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/transport"
)

// Document is a stored entity instance.
type Document = map[string]any

// Option configures a Store.
type Option func(*Store)

// WithBasePath strips prefix from request paths before routing.
func WithBasePath(prefix string) Option {
	return func(s *Store) {
		s.basePath = "/" + strings.Trim(prefix, "/")
		if s.basePath == "/" {
			s.basePath = ""
		}
	}
}

// WithIDGenerator overrides how missing _id values are assigned.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger logs every handled call at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Store keeps documents per entity. Entity versions select the schema on the
// real service, so every version of an entity shares one collection.
type Store struct {
	mu       sync.RWMutex
	entities map[string][]Document

	basePath string
	newID    func() string
	logger   *zap.Logger
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		entities: make(map[string][]Document),
		newID:    uuid.NewString,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Documents returns a copy of the documents stored for entity.
func (s *Store) Documents(entity string) []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.entities[entity]
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, cloneDoc(d))
	}
	return out
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// Execute handles one call and returns the response text. Malformed calls are
// answered with error payloads, as the service would; only a cancelled
// context is returned as an error, as a *transport.Error.
func (s *Store) Execute(ctx context.Context, method, uri, body string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return "", &transport.Error{Method: method, URI: uri, Err: err}
	}

	payload := s.handle(method, uri, body)
	text, err := lbapi.Compact(payload)
	if err != nil {
		return "", errors.Wrap(err, "memstore: encode response")
	}
	s.logger.Debug("memstore handled call", zap.String("method", method), zap.String("uri", uri))
	return text, nil
}

type call struct {
	op      request.Operation
	entity  string
	version string
	req     map[string]any
}

func (s *Store) handle(method, uri, body string) any {
	c, failure := s.route(method, uri, body)
	if failure != nil {
		return failure.payload()
	}
	if c.op == request.OpBulk {
		return s.bulk(c)
	}
	res, err := s.dispatch(c)
	if err != nil {
		return err.payload()
	}
	return res
}

func (s *Store) route(method, uri, body string) (*call, *routeError) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, newRouteError("rest-crud:InvalidURI", err.Error())
	}
	path := u.EscapedPath()
	if s.basePath != "" {
		if !strings.HasPrefix(path, s.basePath+"/") {
			return nil, newRouteError("rest-crud:NoSuchResource", "path outside "+s.basePath)
		}
		path = strings.TrimPrefix(path, s.basePath)
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 2 || len(segments) > 3 {
		return nil, newRouteError("rest-crud:NoSuchResource", "expected <entity>[/<version>]/<operation>")
	}
	for i, seg := range segments {
		unescaped, err := url.PathUnescape(seg)
		if err != nil {
			return nil, newRouteError("rest-crud:InvalidURI", err.Error())
		}
		segments[i] = unescaped
	}

	c := &call{entity: segments[0]}
	if len(segments) == 3 {
		c.version = segments[1]
	}
	op, ok := request.ParseOperation(segments[len(segments)-1])
	if !ok || c.entity == "" {
		return nil, newRouteError("rest-crud:NoSuchResource", "unknown operation "+segments[len(segments)-1])
	}
	c.op = op

	method = strings.ToUpper(method)
	if method == http.MethodPut {
		method = http.MethodPost
	}
	if want := string(request.MethodFor(op)); method != want {
		return nil, newRouteError("rest-crud:MethodNotAllowed", method+" not allowed for "+op.Segment())
	}

	if request.Method(method).CarriesBody() {
		c.req, err = decodeObject(body)
		if err != nil {
			return nil, newRouteError("rest-crud:InvalidRequest", err.Error())
		}
	} else {
		c.req, err = requestFromParams(u.Query())
		if err != nil {
			return nil, newRouteError("rest-crud:InvalidRequest", err.Error())
		}
	}
	return c, nil
}

func decodeObject(body string) (map[string]any, error) {
	if strings.TrimSpace(body) == "" {
		return map[string]any{}, nil
	}
	tree, err := lbapi.Decode(body)
	if err != nil {
		return nil, err
	}
	obj, ok := tree.(map[string]any)
	if !ok {
		return nil, errors.New("request body is not an object")
	}
	return obj, nil
}

func requestFromParams(q url.Values) (map[string]any, error) {
	req := map[string]any{}
	for param, field := range map[string]string{"Q": "query", "P": "projection", "S": "sort"} {
		text := q.Get(param)
		if text == "" {
			continue
		}
		v, err := lbapi.Decode(text)
		if err != nil {
			return nil, errors.Wrapf(err, "parameter %s", param)
		}
		req[field] = v
	}
	from, to := q.Get("from"), q.Get("to")
	if from != "" || to != "" {
		f, err := strconv.Atoi(from)
		if err != nil {
			return nil, errors.Wrap(err, "parameter from")
		}
		t, err := strconv.Atoi(to)
		if err != nil {
			return nil, errors.Wrap(err, "parameter to")
		}
		req["range"] = []any{float64(f), float64(t)}
	}
	return req, nil
}

type routeError struct {
	code string
	msg  string
}

func newRouteError(code, msg string) *routeError {
	return &routeError{code: code, msg: msg}
}

// The service reports routing failures as bare error objects, without the
// usual status envelope.
func (e *routeError) payload() map[string]any {
	return map[string]any{
		"objectType": "error",
		"context":    "rest/memstore",
		"errorCode":  e.code,
		"msg":        e.msg,
	}
}
