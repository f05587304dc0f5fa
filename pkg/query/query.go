// Package query builds the JSON shapes lightblue requests carry: query
// expressions, projections, sort keys and update expressions. It covers the
// subset needed to describe a request, not the service's full grammar.
package query

import (
	"github.com/lightblue-platform/lightblue_sdk_go/internal/lbapi"
)

// Expression is a query clause such as a field comparison or a logical
// combination of clauses.
type Expression map[string]any

// Projection selects which document fields are returned.
type Projection map[string]any

// Sort orders results by a single field.
type Sort map[string]any

// Update is an update expression applied to matched documents.
type Update map[string]any

// FieldRef starts a comparison against a document field.
type FieldRef string

// Field names the document field a comparison applies to. Nested fields use
// dotted paths.
func Field(name string) FieldRef {
	return FieldRef(name)
}

func (f FieldRef) compare(op string, value any) Expression {
	return Expression{"field": string(f), "op": op, "rvalue": value}
}

// Eq matches documents whose field equals value.
func (f FieldRef) Eq(value any) Expression { return f.compare("=", value) }

// Ne matches documents whose field differs from value.
func (f FieldRef) Ne(value any) Expression { return f.compare("!=", value) }

// Lt matches documents whose field is less than value.
func (f FieldRef) Lt(value any) Expression { return f.compare("<", value) }

// Lte matches documents whose field is at most value.
func (f FieldRef) Lte(value any) Expression { return f.compare("<=", value) }

// Gt matches documents whose field is greater than value.
func (f FieldRef) Gt(value any) Expression { return f.compare(">", value) }

// Gte matches documents whose field is at least value.
func (f FieldRef) Gte(value any) Expression { return f.compare(">=", value) }

// In matches documents whose field equals one of values.
func (f FieldRef) In(values ...any) Expression {
	if values == nil {
		values = []any{}
	}
	return Expression{"field": string(f), "op": "$in", "values": values}
}

// Regex matches documents whose string field matches pattern.
func (f FieldRef) Regex(pattern string) Expression {
	return Expression{"field": string(f), "regex": pattern}
}

// And matches documents satisfying every clause.
func And(clauses ...Expression) Expression {
	return Expression{"$and": nonNil(clauses)}
}

// Or matches documents satisfying at least one clause.
func Or(clauses ...Expression) Expression {
	return Expression{"$or": nonNil(clauses)}
}

// Not negates a clause.
func Not(clause Expression) Expression {
	return Expression{"$not": clause}
}

func nonNil(clauses []Expression) []Expression {
	if clauses == nil {
		return []Expression{}
	}
	return clauses
}

// Include projects field, and its children when recursive is set.
func Include(field string, recursive bool) Projection {
	return Projection{"field": field, "include": true, "recursive": recursive}
}

// Exclude removes field from the returned documents.
func Exclude(field string, recursive bool) Projection {
	return Projection{"field": field, "include": false, "recursive": recursive}
}

// IncludeAll projects every field of the document.
func IncludeAll() Projection {
	return Include("*", true)
}

// Asc sorts by field in ascending order.
func Asc(field string) Sort { return Sort{field: "$asc"} }

// Desc sorts by field in descending order.
func Desc(field string) Sort { return Sort{field: "$desc"} }

// Set assigns value to field.
func Set(field string, value any) Update {
	return Update{"$set": map[string]any{field: value}}
}

// Unset removes field.
func Unset(field string) Update {
	return Update{"$unset": field}
}

// Add increments a numeric field by delta.
func Add(field string, delta any) Update {
	return Update{"$add": map[string]any{field: delta}}
}

// Compact renders a shape, or a slice of shapes, as compact JSON.
func Compact(v any) (string, error) {
	return lbapi.Compact(v)
}
