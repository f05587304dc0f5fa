package response

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lightblue-platform/lightblue_sdk_go/internal/lbapi"
)

// Bulk splits a bulk response into one envelope per sub-request, ordered by
// sequence number.
func Bulk(e *Envelope) ([]*Envelope, error) {
	if e == nil {
		return nil, &ParseError{Field: "responses", Err: errors.New("envelope is nil")}
	}
	tree, err := e.JSON()
	if err != nil {
		return nil, err
	}
	node, ok := lbapi.Lookup(tree, "responses")
	if !ok || node == nil {
		if lbapi.IsErrorPayload(tree) {
			return nil, &ParseError{Field: "responses", Err: errorPayload(tree)}
		}
		return []*Envelope{}, nil
	}
	items, ok := node.([]any)
	if !ok {
		return nil, &ParseError{Field: "responses", Err: errors.New("not an array")}
	}

	type entry struct {
		seq int64
		env *Envelope
	}
	entries := make([]entry, 0, len(items))
	for i, item := range items {
		seq := int64(i)
		if v, ok := lbapi.Lookup(item, "seq"); ok {
			if n, ok := lbapi.Int64(v); ok {
				seq = n
			}
		}
		sub, ok := lbapi.Lookup(item, "response")
		if !ok {
			return nil, &ParseError{Field: "responses", Err: fmt.Errorf("item %d has no response", i)}
		}
		text, err := lbapi.Compact(sub)
		if err != nil {
			return nil, &ParseError{Field: "responses", Err: err}
		}
		env := New(text)
		env.SetJSON(sub)
		entries = append(entries, entry{seq: seq, env: env})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]*Envelope, len(entries))
	for i, en := range entries {
		out[i] = en.env
	}
	return out, nil
}
