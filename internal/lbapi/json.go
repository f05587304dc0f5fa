package lbapi

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

// API is the codec shared by request rendering and response parsing. Numbers
// decode as json.Number so integer counts survive without float rounding.
var API = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	UseNumber:              true,
	ValidateJsonRawMessage: true,
}.Froze()

// Compact renders v as compact JSON text.
func Compact(v any) (string, error) {
	data, err := API.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Valid reports whether text is a single well-formed JSON document.
func Valid(text string) bool {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 {
		return false
	}
	return API.Valid(trimmed)
}

// Decode parses text into a generic tree of maps, slices and scalars.
func Decode(text string) (any, error) {
	var tree any
	if err := API.UnmarshalFromString(text, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

// Lookup returns the named member of an object node. present is false when
// node is not an object or has no such member; a JSON null member is present
// with a nil value.
func Lookup(node any, field string) (value any, present bool) {
	obj, ok := node.(map[string]any)
	if !ok {
		return nil, false
	}
	value, present = obj[field]
	return value, present
}

// String returns the member as a string when it is one.
func String(node any, field string) (string, bool) {
	v, ok := Lookup(node, field)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int64 converts an integral JSON number to int64. Fractions, overflow and
// non-numeric values report false.
func Int64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case float64:
		return floatToInt(n)
	case float32:
		return floatToInt(float64(n))
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// Remap converts a generic tree into out by re-encoding it.
func Remap(node any, out any) error {
	data, err := API.Marshal(node)
	if err != nil {
		return err
	}
	return API.Unmarshal(data, out)
}

// IsErrorPayload reports whether the root describes a service error rather
// than an operation result.
func IsErrorPayload(node any) bool {
	if _, ok := Lookup(node, "errorCode"); ok {
		return true
	}
	if t, ok := String(node, "objectType"); ok && t == "error" {
		return true
	}
	return false
}
