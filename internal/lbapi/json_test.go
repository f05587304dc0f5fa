package lbapi

import (
	"encoding/json"
	"testing"
)

func TestInt64(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int64
		ok    bool
	}{
		{name: "number", value: json.Number("5"), want: 5, ok: true},
		{name: "exponent number", value: json.Number("1e2"), want: 100, ok: true},
		{name: "fraction", value: json.Number("1.5"), ok: false},
		{name: "float", value: float64(7), want: 7, ok: true},
		{name: "int", value: 3, want: 3, ok: true},
		{name: "string", value: "5", ok: false},
		{name: "nil", value: nil, ok: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Int64(tc.value)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("Int64(%v) = %d, %t; expected %d, %t", tc.value, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestDecodeKeepsNumbers(t *testing.T) {
	tree, err := Decode(`{"matchCount":9007199254740993}`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	v, ok := Lookup(tree, "matchCount")
	if !ok {
		t.Fatalf("matchCount missing")
	}
	n, ok := Int64(v)
	if !ok || n != 9007199254740993 {
		t.Fatalf("unexpected count %v", v)
	}
}

func TestLookup(t *testing.T) {
	tree, err := Decode(`{"processed":null,"status":"error"}`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v, ok := Lookup(tree, "processed"); !ok || v != nil {
		t.Fatalf("expected present null, got %v %t", v, ok)
	}
	if _, ok := Lookup(tree, "missing"); ok {
		t.Fatalf("expected missing member")
	}
	if _, ok := Lookup([]any{}, "status"); ok {
		t.Fatalf("arrays have no members")
	}
	if s, ok := String(tree, "status"); !ok || s != "error" {
		t.Fatalf("unexpected status %q", s)
	}
}

func TestCompactAndValid(t *testing.T) {
	text, err := Compact(map[string]any{"b": 1, "a": "<x>"})
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if text != `{"a":"<x>","b":1}` {
		t.Fatalf("unexpected compact output %q", text)
	}
	if !Valid(text) {
		t.Fatalf("expected valid JSON")
	}
	for _, bad := range []string{"", "   ", "{", `{"a":}`} {
		if Valid(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}

func TestIsErrorPayload(t *testing.T) {
	cases := map[string]bool{
		`{"errorCode":"rest-crud:RestFindError","msg":"x"}`: true,
		`{"objectType":"error"}`:                           true,
		`{"status":"COMPLETE"}`:                            false,
		`[]`:                                               false,
	}
	for text, want := range cases {
		tree, err := Decode(text)
		if err != nil {
			t.Fatalf("Decode %s: %v", text, err)
		}
		if got := IsErrorPayload(tree); got != want {
			t.Fatalf("IsErrorPayload(%s) = %t", text, got)
		}
	}
}
