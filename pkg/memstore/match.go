package memstore

import (
	"encoding/json"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lightblue-platform/lightblue_sdk_go/internal/lbapi"
)

func filter(docs []Document, q any) ([]Document, *opError) {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		hit, err := matches(d, q)
		if err != nil {
			return nil, err
		}
		if hit {
			out = append(out, d)
		}
	}
	return out, nil
}

// matches evaluates a query expression against d. A nil query matches
// everything.
func matches(d Document, q any) (bool, *opError) {
	if q == nil {
		return true, nil
	}
	expr, ok := q.(map[string]any)
	if !ok {
		return false, failf("crud:InvalidQuery", "query clause is not an object")
	}

	if clauses, ok := expr["$and"]; ok {
		return logical(d, clauses, true)
	}
	if clauses, ok := expr["$or"]; ok {
		return logical(d, clauses, false)
	}
	if clause, ok := expr["$not"]; ok {
		hit, err := matches(d, clause)
		if err != nil {
			return false, err
		}
		return !hit, nil
	}

	field, _ := lbapi.String(expr, "field")
	if field == "" {
		return false, failf("crud:InvalidQuery", "query clause has no field")
	}
	actual, present := fieldValue(d, field)

	if pattern, ok := lbapi.String(expr, "regex"); ok {
		return matchRegex(expr, pattern, actual, present)
	}

	op, _ := lbapi.String(expr, "op")
	switch op {
	case "$in", "$nin", "$not_in":
		values, ok := expr["values"].([]any)
		if !ok {
			return false, failf("crud:InvalidQuery", "%s on %s requires a values array", op, field)
		}
		found := present && containsValue(values, actual)
		return found == (op == "$in"), nil
	}

	var want any
	if ref, ok := lbapi.String(expr, "rfield"); ok {
		want, _ = fieldValue(d, ref)
	} else {
		want = expr["rvalue"]
	}
	return compareOp(op, field, actual, present, want)
}

func logical(d Document, node any, all bool) (bool, *opError) {
	clauses, ok := node.([]any)
	if !ok {
		return false, failf("crud:InvalidQuery", "logical operator requires an array")
	}
	for _, clause := range clauses {
		hit, err := matches(d, clause)
		if err != nil {
			return false, err
		}
		if hit != all {
			return hit, nil
		}
	}
	return all, nil
}

func matchRegex(expr map[string]any, pattern string, actual any, present bool) (bool, *opError) {
	if ci, _ := expr["caseInsensitive"].(bool); ci {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, failf("crud:InvalidQuery", "bad regex %q: %v", pattern, err)
	}
	s, ok := actual.(string)
	return present && ok && re.MatchString(s), nil
}

func compareOp(op, field string, actual any, present bool, want any) (bool, *opError) {
	switch op {
	case "=", "$eq":
		return present && equalValues(actual, want), nil
	case "!=", "$neq":
		return !present || !equalValues(actual, want), nil
	case "<", "$lt", "<=", "$lte", ">", "$gt", ">=", "$gte":
		if !present {
			return false, nil
		}
		c, ok := compareValues(actual, want)
		if !ok {
			return false, nil
		}
		switch op {
		case "<", "$lt":
			return c < 0, nil
		case "<=", "$lte":
			return c <= 0, nil
		case ">", "$gt":
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	default:
		return false, failf("crud:InvalidQuery", "unsupported operator %q on %s", op, field)
	}
}

// fieldValue resolves a dotted path. Numeric segments index arrays.
func fieldValue(d Document, path string) (any, bool) {
	var node any = d
	for _, seg := range strings.Split(path, ".") {
		switch n := node.(type) {
		case map[string]any:
			v, ok := n[seg]
			if !ok {
				return nil, false
			}
			node = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(n) {
				return nil, false
			}
			node = n[i]
		default:
			return nil, false
		}
	}
	return node, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func equalValues(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// normalize rewrites nested numbers as float64 so trees decoded from text and
// trees built in Go compare equal.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		if f, ok := toFloat(v); ok {
			return f
		}
		return v
	}
}

// compareValues orders two numbers or two strings. Mixed or other types are
// not comparable.
func compareValues(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if !okA || !okB {
		return 0, false
	}
	return strings.Compare(sa, sb), true
}

func containsValue(values []any, v any) bool {
	for _, candidate := range values {
		if equalValues(candidate, v) {
			return true
		}
	}
	return false
}

type sortKey struct {
	field string
	desc  bool
}

func parseSort(req map[string]any) ([]sortKey, *opError) {
	node, ok := lbapi.Lookup(req, "sort")
	if !ok || node == nil {
		return nil, nil
	}
	items, ok := node.([]any)
	if !ok {
		items = []any{node}
	}
	var keys []sortKey
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, failf("crud:InvalidSort", "sort key is not an object")
		}
		fields := make([]string, 0, len(obj))
		for f := range obj {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			dir, _ := obj[f].(string)
			switch dir {
			case "$asc":
				keys = append(keys, sortKey{field: f})
			case "$desc":
				keys = append(keys, sortKey{field: f, desc: true})
			default:
				return nil, failf("crud:InvalidSort", "sort direction for %s must be $asc or $desc", f)
			}
		}
	}
	return keys, nil
}

// sortDocs orders docs by keys. Missing values sort first; incomparable
// values keep their stored order.
func sortDocs(docs []Document, keys []sortKey) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range keys {
			a, okA := fieldValue(docs[i], k.field)
			b, okB := fieldValue(docs[j], k.field)
			var c int
			switch {
			case !okA && !okB:
				continue
			case !okA:
				c = -1
			case !okB:
				c = 1
			default:
				var ok bool
				if c, ok = compareValues(a, b); !ok {
					continue
				}
			}
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

type projection struct {
	field   string
	include bool
}

// projectAll applies proj to every document. Without a projection, find
// returns whole documents and writes return nothing.
func projectAll(docs []Document, proj any, whole bool) ([]Document, *opError) {
	if proj == nil {
		if whole {
			return docs, nil
		}
		return []Document{}, nil
	}
	items, ok := proj.([]any)
	if !ok {
		items = []any{proj}
	}
	rules := make([]projection, 0, len(items))
	for _, item := range items {
		field, _ := lbapi.String(item, "field")
		if field == "" {
			return nil, failf("crud:InvalidProjection", "projection has no field")
		}
		include := true
		if v, ok := lbapi.Lookup(item, "include"); ok {
			include, _ = v.(bool)
		}
		rules = append(rules, projection{field: field, include: include})
	}

	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, project(d, rules))
	}
	return out, nil
}

func project(d Document, rules []projection) Document {
	var out Document
	if rules[0].include {
		out = Document{}
	} else {
		out = cloneDoc(d)
	}
	for _, r := range rules {
		switch {
		case r.field == "*" && r.include:
			out = cloneDoc(d)
		case r.field == "*":
			out = Document{}
		case r.include:
			if v, ok := fieldValue(d, r.field); ok {
				setPath(out, r.field, cloneValue(v))
			}
		default:
			unsetPath(out, r.field)
		}
	}
	return out
}

type update struct {
	kind  string
	field string
	value any
}

func parseUpdates(req map[string]any) ([]update, *opError) {
	node, ok := lbapi.Lookup(req, "update")
	if !ok || node == nil {
		return nil, failf("crud:InvalidRequest", "update requires an update expression")
	}
	items, ok := node.([]any)
	if !ok {
		items = []any{node}
	}
	var out []update
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, failf("crud:InvalidUpdate", "update expression is not an object")
		}
		for kind, body := range obj {
			switch kind {
			case "$set", "$add":
				fields, ok := body.(map[string]any)
				if !ok {
					return nil, failf("crud:InvalidUpdate", "%s requires an object", kind)
				}
				for f, v := range fields {
					out = append(out, update{kind: kind, field: f, value: v})
				}
			case "$unset":
				names, ok := body.([]any)
				if !ok {
					names = []any{body}
				}
				for _, n := range names {
					f, ok := n.(string)
					if !ok {
						return nil, failf("crud:InvalidUpdate", "$unset requires field names")
					}
					out = append(out, update{kind: kind, field: f})
				}
			default:
				return nil, failf("crud:InvalidUpdate", "unsupported update operator %q", kind)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].field < out[j].field })
	return out, nil
}

func applyUpdates(d Document, updates []update) *opError {
	for _, u := range updates {
		switch u.kind {
		case "$set":
			setPath(d, u.field, cloneValue(u.value))
		case "$unset":
			unsetPath(d, u.field)
		case "$add":
			delta, ok := toFloat(u.value)
			if !ok {
				return failf("crud:InvalidUpdate", "$add for %s requires a number", u.field)
			}
			current := float64(0)
			if v, present := fieldValue(d, u.field); present && v != nil {
				if current, ok = toFloat(v); !ok {
					return failf("crud:InvalidUpdate", "%s is not numeric", u.field)
				}
			}
			setPath(d, u.field, numberOf(current+delta))
		}
	}
	return nil
}

func numberOf(f float64) any {
	if i, ok := lbapi.Int64(f); ok {
		return i
	}
	return f
}

func setPath(d Document, path string, v any) {
	segs := strings.Split(path, ".")
	node := d
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[seg] = next
		}
		node = next
	}
	node[segs[len(segs)-1]] = v
}

func unsetPath(d Document, path string) {
	segs := strings.Split(path, ".")
	node := d
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			return
		}
		node = next
	}
	delete(node, segs[len(segs)-1])
}
