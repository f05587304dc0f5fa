// Package response wraps raw lightblue response text. An Envelope parses the
// text lazily, reports the service's error status, extracts the match and
// modified counts and decodes the processed documents into caller types.
//
// A status of "error" is data, not a Go error: check HasError before trusting
// ParseProcessed.
package response

import (
	"errors"
	"fmt"

	"github.com/lightblue-platform/lightblue_sdk_go/internal/lbapi"
)

const (
	fieldStatus    = "status"
	fieldMatch     = "matchCount"
	fieldModified  = "modifiedCount"
	fieldProcessed = "processed"

	statusError = "error"
)

// ErrParse matches every ParseError.
var ErrParse = errors.New("response: parse failed")

// ParseError reports response text that is not JSON or a payload that cannot
// be mapped onto the requested type.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Field == "" {
		return fmt.Sprintf("response: parse: %v", e.Err)
	}
	return fmt.Sprintf("response: parse %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Envelope holds the raw response text and its cached parse. The raw text is
// authoritative: replacing it drops the cached tree. An Envelope is owned by
// a single caller and is not safe for concurrent mutation.
type Envelope struct {
	raw    string
	tree   any
	cached bool
}

// New wraps text without parsing it.
func New(text string) *Envelope {
	return &Envelope{raw: text}
}

// Text returns the raw response text exactly as received.
func (e *Envelope) Text() string {
	return e.raw
}

// SetText replaces the raw text and invalidates any cached parse, including
// one installed by SetJSON.
func (e *Envelope) SetText(text string) {
	e.raw = text
	e.tree = nil
	e.cached = false
}

// JSON returns the parsed tree, parsing the raw text on first use. Objects
// are map[string]any, arrays []any and numbers json.Number.
func (e *Envelope) JSON() (any, error) {
	if e.cached {
		return e.tree, nil
	}
	tree, err := lbapi.Decode(e.raw)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	e.tree = tree
	e.cached = true
	return tree, nil
}

// SetJSON installs a parsed tree directly. The raw text is left untouched and
// need not match.
func (e *Envelope) SetJSON(tree any) {
	e.tree = tree
	e.cached = true
}

// HasError reports whether the root object has status "error". Only a failure
// to parse the raw text is returned as an error.
func (e *Envelope) HasError() (bool, error) {
	tree, err := e.JSON()
	if err != nil {
		return false, err
	}
	status, ok := lbapi.String(tree, fieldStatus)
	return ok && status == statusError, nil
}

// MatchCount returns matchCount, or 0 when it is absent, null or unreadable.
func (e *Envelope) MatchCount() int64 {
	return e.count(fieldMatch)
}

// ModifiedCount returns modifiedCount, or 0 when it is absent, null or
// unreadable.
func (e *Envelope) ModifiedCount() int64 {
	return e.count(fieldModified)
}

func (e *Envelope) count(field string) int64 {
	tree, err := e.JSON()
	if err != nil {
		return 0
	}
	v, ok := lbapi.Lookup(tree, field)
	if !ok || v == nil {
		return 0
	}
	n, ok := lbapi.Int64(v)
	if !ok {
		return 0
	}
	return n
}
