package response

import (
	"errors"
	"fmt"

	"github.com/lightblue-platform/lightblue_sdk_go/internal/lbapi"
)

// Shape selects how the processed payload is decoded.
type Shape int

const (
	// Scalar decodes a single value.
	Scalar Shape = iota
	// Array decodes a sequence of values.
	Array
)

func (s Shape) String() string {
	switch s {
	case Scalar:
		return "scalar"
	case Array:
		return "array"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// Processed is the decoded processed payload. One is set for Scalar, Many
// for Array.
type Processed[T any] struct {
	Shape Shape
	One   *T
	Many  []T
}

// ParseProcessed decodes the processed field into T with the requested shape.
//
// An absent or null field, or a null root, yields a nil One or an empty Many,
// unless the root is a service error payload, which is reported as a
// ParseError. Any other non-object root is a ParseError. For Scalar,
// an array payload decodes its first element, and an empty array yields nil.
// For Array, an object payload yields a one-element slice.
func ParseProcessed[T any](e *Envelope, shape Shape) (Processed[T], error) {
	out := Processed[T]{Shape: shape}
	if shape != Scalar && shape != Array {
		return out, &ParseError{Field: fieldProcessed, Err: fmt.Errorf("unknown shape %v", shape)}
	}
	if e == nil {
		return out, &ParseError{Field: fieldProcessed, Err: errors.New("envelope is nil")}
	}

	tree, err := e.JSON()
	if err != nil {
		return out, err
	}
	if tree == nil {
		if shape == Array {
			out.Many = []T{}
		}
		return out, nil
	}
	if _, isObject := tree.(map[string]any); !isObject {
		return out, &ParseError{Field: fieldProcessed, Err: errors.New("response root is not an object")}
	}

	node, present := lbapi.Lookup(tree, fieldProcessed)
	if !present && lbapi.IsErrorPayload(tree) {
		return out, &ParseError{Field: fieldProcessed, Err: errorPayload(tree)}
	}
	if node == nil {
		if shape == Array {
			out.Many = []T{}
		}
		return out, nil
	}

	switch shape {
	case Scalar:
		if items, ok := node.([]any); ok {
			if len(items) == 0 {
				return out, nil
			}
			node = items[0]
		}
		var v T
		if err := lbapi.Remap(node, &v); err != nil {
			return out, &ParseError{Field: fieldProcessed, Err: err}
		}
		out.One = &v
	case Array:
		if _, ok := node.([]any); !ok {
			node = []any{node}
		}
		var vs []T
		if err := lbapi.Remap(node, &vs); err != nil {
			return out, &ParseError{Field: fieldProcessed, Err: err}
		}
		if vs == nil {
			vs = []T{}
		}
		out.Many = vs
	}
	return out, nil
}

// ProcessedOne decodes the processed payload as a single value.
func ProcessedOne[T any](e *Envelope) (*T, error) {
	p, err := ParseProcessed[T](e, Scalar)
	if err != nil {
		return nil, err
	}
	return p.One, nil
}

// ProcessedMany decodes the processed payload as a sequence.
func ProcessedMany[T any](e *Envelope) ([]T, error) {
	p, err := ParseProcessed[T](e, Array)
	if err != nil {
		return nil, err
	}
	return p.Many, nil
}

func errorPayload(tree any) error {
	code, _ := lbapi.String(tree, "errorCode")
	msg, _ := lbapi.String(tree, "msg")
	switch {
	case code != "" && msg != "":
		return fmt.Errorf("service returned error %s: %s", code, msg)
	case code != "":
		return fmt.Errorf("service returned error %s", code)
	default:
		return errors.New("service returned an error payload")
	}
}
