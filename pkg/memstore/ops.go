package memstore

import (
	"fmt"

	"github.com/lightblue-platform/lightblue_sdk_go/internal/lbapi"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/request"
)

const statusComplete = "COMPLETE"

type result struct {
	Status        string     `json:"status"`
	ModifiedCount int        `json:"modifiedCount"`
	MatchCount    int        `json:"matchCount"`
	Processed     []Document `json:"processed"`
}

type opError struct {
	code string
	msg  string
}

func failf(code, format string, args ...any) *opError {
	return &opError{code: code, msg: fmt.Sprintf(format, args...)}
}

func (e *opError) payload() map[string]any {
	return map[string]any{
		"status":        "error",
		"modifiedCount": 0,
		"matchCount":    0,
		"errorCode":     e.code,
		"msg":           e.msg,
	}
}

func (s *Store) dispatch(c *call) (*result, *opError) {
	switch c.op {
	case request.OpFind:
		return s.find(c)
	case request.OpInsert:
		return s.insert(c)
	case request.OpSave:
		return s.save(c)
	case request.OpUpdate:
		return s.update(c)
	case request.OpDelete:
		return s.delete(c)
	default:
		return nil, failf("crud:UnsupportedOperation", "%s cannot be dispatched here", c.op.Segment())
	}
}

func (s *Store) find(c *call) (*result, *opError) {
	q, _ := lbapi.Lookup(c.req, "query")
	lo, hi, err := parseRange(c.req)
	if err != nil {
		return nil, err
	}
	sorts, err := parseSort(c.req)
	if err != nil {
		return nil, err
	}
	proj, _ := lbapi.Lookup(c.req, "projection")

	s.mu.RLock()
	matched, err := filter(s.entities[c.entity], q)
	if err == nil {
		matched = cloneDocs(matched)
	}
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	sortDocs(matched, sorts)
	total := len(matched)
	if lo >= 0 {
		matched = window(matched, lo, hi)
	}
	processed, err := projectAll(matched, proj, true)
	if err != nil {
		return nil, err
	}
	return &result{Status: statusComplete, MatchCount: total, Processed: processed}, nil
}

func (s *Store) insert(c *call) (*result, *opError) {
	docs, err := parseData(c.req)
	if err != nil {
		return nil, err
	}
	proj, _ := lbapi.Lookup(c.req, "projection")

	s.mu.Lock()
	existing := s.entities[c.entity]
	seen := make(map[string]bool, len(existing)+len(docs))
	for _, d := range existing {
		seen[idOf(d)] = true
	}
	for _, d := range docs {
		if _, ok := d["_id"]; !ok {
			d["_id"] = s.newID()
		}
		id := idOf(d)
		if seen[id] {
			s.mu.Unlock()
			return nil, failf("mongo-crud:Duplicate", "document with _id %s already exists", id)
		}
		seen[id] = true
	}
	s.entities[c.entity] = append(existing, cloneDocs(docs)...)
	s.mu.Unlock()

	processed, err := projectAll(docs, proj, false)
	if err != nil {
		return nil, err
	}
	return &result{Status: statusComplete, ModifiedCount: len(docs), Processed: processed}, nil
}

func (s *Store) save(c *call) (*result, *opError) {
	docs, err := parseData(c.req)
	if err != nil {
		return nil, err
	}
	upsert := false
	if v, ok := lbapi.Lookup(c.req, "upsert"); ok && v != nil {
		b, ok := v.(bool)
		if !ok {
			return nil, failf("crud:InvalidRequest", "upsert must be a boolean")
		}
		upsert = b
	}
	proj, _ := lbapi.Lookup(c.req, "projection")

	s.mu.Lock()
	stored := append([]Document(nil), s.entities[c.entity]...)
	for _, d := range docs {
		_, hasID := d["_id"]
		idx := -1
		if hasID {
			idx = indexOf(stored, idOf(d))
		}
		switch {
		case idx >= 0:
			stored[idx] = cloneDoc(d)
		case upsert:
			if !hasID {
				d["_id"] = s.newID()
			}
			stored = append(stored, cloneDoc(d))
		default:
			s.mu.Unlock()
			return nil, failf("crud:SaveError", "no document with _id %s; set upsert to insert it", idOf(d))
		}
	}
	s.entities[c.entity] = stored
	s.mu.Unlock()

	processed, err := projectAll(docs, proj, false)
	if err != nil {
		return nil, err
	}
	return &result{Status: statusComplete, ModifiedCount: len(docs), Processed: processed}, nil
}

func (s *Store) update(c *call) (*result, *opError) {
	q, ok := lbapi.Lookup(c.req, "query")
	if !ok || q == nil {
		return nil, failf("crud:InvalidRequest", "update requires a query")
	}
	updates, err := parseUpdates(c.req)
	if err != nil {
		return nil, err
	}
	proj, _ := lbapi.Lookup(c.req, "projection")

	s.mu.Lock()
	stored := s.entities[c.entity]
	var changed []Document
	next := make([]Document, len(stored))
	for i, d := range stored {
		next[i] = d
		hit, err := matches(d, q)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		if !hit {
			continue
		}
		updated := cloneDoc(d)
		if err := applyUpdates(updated, updates); err != nil {
			s.mu.Unlock()
			return nil, err
		}
		next[i] = updated
		changed = append(changed, updated)
	}
	s.entities[c.entity] = next
	changed = cloneDocs(changed)
	s.mu.Unlock()

	processed, err := projectAll(changed, proj, false)
	if err != nil {
		return nil, err
	}
	return &result{Status: statusComplete, ModifiedCount: len(changed), MatchCount: len(changed), Processed: processed}, nil
}

func (s *Store) delete(c *call) (*result, *opError) {
	q, ok := lbapi.Lookup(c.req, "query")
	if !ok || q == nil {
		return nil, failf("crud:InvalidRequest", "delete requires a query")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.entities[c.entity]
	kept := make([]Document, 0, len(stored))
	removed := 0
	for _, d := range stored {
		hit, err := matches(d, q)
		if err != nil {
			return nil, err
		}
		if hit {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	s.entities[c.entity] = kept
	return &result{Status: statusComplete, ModifiedCount: removed, MatchCount: removed, Processed: []Document{}}, nil
}

type bulkEntry struct {
	Seq      any `json:"seq"`
	Response any `json:"response"`
}

func (s *Store) bulk(c *call) any {
	node, ok := lbapi.Lookup(c.req, "requests")
	items, isList := node.([]any)
	if !ok || !isList {
		return failf("crud:InvalidRequest", "bulk requires a requests array").payload()
	}
	ordered := false
	if v, ok := lbapi.Lookup(c.req, "ordered"); ok {
		ordered, _ = v.(bool)
	}

	responses := make([]bulkEntry, 0, len(items))
	for i, item := range items {
		seq, ok := lbapi.Lookup(item, "seq")
		if !ok {
			seq = i
		}
		sub, err := subCall(item)
		if err == nil {
			var res *result
			res, err = s.dispatch(sub)
			if err == nil {
				responses = append(responses, bulkEntry{Seq: seq, Response: res})
				continue
			}
		}
		responses = append(responses, bulkEntry{Seq: seq, Response: err.payload()})
		if ordered {
			break
		}
	}
	return map[string]any{"responses": responses}
}

func subCall(item any) (*call, *opError) {
	opName, _ := lbapi.String(item, "op")
	op, ok := request.ParseOperation(opName)
	if !ok || op == request.OpBulk {
		return nil, failf("crud:InvalidRequest", "unsupported bulk operation %q", opName)
	}
	reqNode, _ := lbapi.Lookup(item, "request")
	req, ok := reqNode.(map[string]any)
	if !ok {
		return nil, failf("crud:InvalidRequest", "bulk item has no request object")
	}
	entity, _ := lbapi.String(req, "entity")
	if entity == "" {
		return nil, failf("crud:InvalidRequest", "bulk item has no entity")
	}
	version, _ := lbapi.String(req, "entityVersion")
	return &call{op: op, entity: entity, version: version, req: req}, nil
}

func parseData(req map[string]any) ([]Document, *opError) {
	node, ok := lbapi.Lookup(req, "data")
	if !ok || node == nil {
		return nil, failf("crud:InvalidRequest", "data is required")
	}
	items, ok := node.([]any)
	if !ok {
		items = []any{node}
	}
	if len(items) == 0 {
		return nil, failf("crud:InvalidRequest", "data is empty")
	}
	docs := make([]Document, 0, len(items))
	for i, item := range items {
		doc, ok := item.(map[string]any)
		if !ok {
			return nil, failf("crud:InvalidRequest", "data[%d] is not an object", i)
		}
		docs = append(docs, cloneDoc(doc))
	}
	return docs, nil
}

func parseRange(req map[string]any) (int, int, *opError) {
	node, ok := lbapi.Lookup(req, "range")
	if !ok || node == nil {
		return -1, -1, nil
	}
	bounds, ok := node.([]any)
	if !ok || len(bounds) != 2 {
		return 0, 0, failf("crud:InvalidRequest", "range must be [from, to]")
	}
	lo, okLo := lbapi.Int64(bounds[0])
	hi, okHi := lbapi.Int64(bounds[1])
	if !okLo || !okHi || lo < 0 || hi < lo {
		return 0, 0, failf("crud:InvalidRequest", "invalid range %v", bounds)
	}
	return int(lo), int(hi), nil
}

func window(docs []Document, lo, hi int) []Document {
	if lo >= len(docs) {
		return []Document{}
	}
	if hi >= len(docs) {
		hi = len(docs) - 1
	}
	return docs[lo : hi+1]
}

func idOf(d Document) string {
	return fmt.Sprint(d["_id"])
}

func indexOf(docs []Document, id string) int {
	for i, d := range docs {
		if _, ok := d["_id"]; ok && idOf(d) == id {
			return i
		}
	}
	return -1
}

func cloneDocs(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, cloneDoc(d))
	}
	return out
}

func cloneDoc(d Document) Document {
	return cloneValue(d).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
