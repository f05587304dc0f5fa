package request

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lightblue-platform/lightblue_sdk_go/internal/lbapi"
	"github.com/lightblue-platform/lightblue_sdk_go/pkg/query"
)

var validate = validator.New()

type identity struct {
	Entity    string    `validate:"required,excludesall=/"`
	Version   string    `validate:"omitempty,excludesall=/"`
	Operation Operation `validate:"oneof=FIND INSERT SAVE UPDATE DELETE BULK"`
}

// Builder assembles a Descriptor. Setters record the first misuse and Build
// reports it.
type Builder struct {
	op          Operation
	entity      string
	version     string
	where       query.Expression
	projections []query.Projection
	sorts       []query.Sort
	rng         []int
	docs        []any
	updates     []query.Update
	upsert      *bool
	raw         *string
	subs        []*Descriptor
	ordered     *bool
	err         error
}

// New starts a builder for op against entity.
func New(op Operation, entity string) *Builder {
	return &Builder{op: op, entity: entity}
}

// Find starts a find request.
func Find(entity string) *Builder { return New(OpFind, entity) }

// Insert starts an insert request.
func Insert(entity string) *Builder { return New(OpInsert, entity) }

// Save starts a save request.
func Save(entity string) *Builder { return New(OpSave, entity) }

// Update starts an update request.
func Update(entity string) *Builder { return New(OpUpdate, entity) }

// Delete starts a delete request.
func Delete(entity string) *Builder { return New(OpDelete, entity) }

// Bulk starts a bulk request grouping other descriptors.
func Bulk(entity string) *Builder { return New(OpBulk, entity) }

// Version pins the entity version.
func (b *Builder) Version(v string) *Builder {
	b.version = v
	return b
}

// Where sets the query expression.
func (b *Builder) Where(q query.Expression) *Builder {
	b.require("query", OpFind, OpUpdate, OpDelete)
	b.where = q
	return b
}

// Project adds projections to the returned documents.
func (b *Builder) Project(p ...query.Projection) *Builder {
	b.require("projection", OpFind, OpInsert, OpSave, OpUpdate)
	b.projections = append(b.projections, p...)
	return b
}

// SortBy adds sort keys.
func (b *Builder) SortBy(s ...query.Sort) *Builder {
	b.require("sort", OpFind)
	b.sorts = append(b.sorts, s...)
	return b
}

// Range limits results to the inclusive index range [from, to].
func (b *Builder) Range(from, to int) *Builder {
	b.require("range", OpFind)
	if from < 0 || to < from {
		b.fail(invalid("range", fmt.Sprintf("[%d, %d] is not a valid range", from, to)))
	}
	b.rng = []int{from, to}
	return b
}

// Documents adds documents to insert or save.
func (b *Builder) Documents(docs ...any) *Builder {
	b.require("data", OpInsert, OpSave)
	b.docs = append(b.docs, docs...)
	return b
}

// Upsert makes a save insert documents that do not exist yet.
func (b *Builder) Upsert(upsert bool) *Builder {
	b.require("upsert", OpSave)
	b.upsert = &upsert
	return b
}

// Apply adds update expressions.
func (b *Builder) Apply(u ...query.Update) *Builder {
	b.require("update", OpUpdate)
	b.updates = append(b.updates, u...)
	return b
}

// Add appends sub-requests to a bulk request.
func (b *Builder) Add(d ...*Descriptor) *Builder {
	b.require("requests", OpBulk)
	b.subs = append(b.subs, d...)
	return b
}

// Ordered makes a bulk request execute its sub-requests in sequence.
func (b *Builder) Ordered(ordered bool) *Builder {
	b.require("ordered", OpBulk)
	b.ordered = &ordered
	return b
}

// RawBody replaces the generated body with pre-rendered JSON text.
func (b *Builder) RawBody(body string) *Builder {
	b.raw = &body
	return b
}

func (b *Builder) require(field string, ops ...Operation) {
	for _, op := range ops {
		if b.op == op {
			return
		}
	}
	b.fail(invalid(field, fmt.Sprintf("not supported by %s requests", b.op)))
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build validates the builder and returns the descriptor.
func (b *Builder) Build() (*Descriptor, error) {
	if b == nil {
		return nil, invalid("builder", "is nil")
	}
	if b.err != nil {
		return nil, b.err
	}

	id := identity{
		Entity:    strings.TrimSpace(b.entity),
		Version:   strings.TrimSpace(b.version),
		Operation: b.op,
	}
	if err := validate.Struct(id); err != nil {
		return nil, translate(err)
	}

	body, err := b.body(id)
	if err != nil {
		return nil, err
	}

	d := &Descriptor{
		entity:  id.Entity,
		version: id.Version,
		op:      id.Operation,
		method:  MethodFor(id.Operation),
		path:    relativePath(id.Entity, id.Version, id.Operation),
		body:    body,
	}
	if !d.method.CarriesBody() {
		params, err := paramsFromBody(body)
		if err != nil {
			return nil, err
		}
		d.params = params
	}
	return d, nil
}

func (b *Builder) body(id identity) (string, error) {
	if b.raw != nil {
		if !lbapi.Valid(*b.raw) {
			return "", invalid("body", "is not valid JSON")
		}
		return *b.raw, nil
	}

	var payload any
	switch id.Operation {
	case OpFind:
		payload = crudBody{Query: expression(b.where), Projection: oneOrMany(b.projections), Sort: oneOrMany(b.sorts), Range: b.rng}
	case OpInsert, OpSave:
		if len(b.docs) == 0 {
			return "", invalid("data", "at least one document is required")
		}
		payload = crudBody{Data: b.docs, Projection: oneOrMany(b.projections), Upsert: b.upsert}
	case OpUpdate:
		if b.where == nil {
			return "", invalid("query", "update requests require a query")
		}
		if len(b.updates) == 0 {
			return "", invalid("update", "at least one update expression is required")
		}
		payload = crudBody{Query: expression(b.where), Update: oneOrMany(b.updates), Projection: oneOrMany(b.projections)}
	case OpDelete:
		if b.where == nil {
			return "", invalid("query", "delete requests require a query")
		}
		payload = crudBody{Query: b.where}
	case OpBulk:
		bulk, err := b.bulkBody()
		if err != nil {
			return "", err
		}
		payload = bulk
	}

	text, err := lbapi.Compact(payload)
	if err != nil {
		return "", &InvalidRequestError{Field: "body", Reason: "cannot be encoded", Err: err}
	}
	return text, nil
}

type crudBody struct {
	Query      any   `json:"query,omitempty"`
	Projection any   `json:"projection,omitempty"`
	Sort       any   `json:"sort,omitempty"`
	Range      []int `json:"range,omitempty"`
	Data       []any `json:"data,omitempty"`
	Update     any   `json:"update,omitempty"`
	Upsert     *bool `json:"upsert,omitempty"`
}

type bulkBody struct {
	Requests []bulkItem `json:"requests"`
	Ordered  *bool      `json:"ordered,omitempty"`
}

type bulkItem struct {
	Seq     int            `json:"seq"`
	Op      string         `json:"op"`
	Request map[string]any `json:"request"`
}

func (b *Builder) bulkBody() (bulkBody, error) {
	if len(b.subs) == 0 {
		return bulkBody{}, invalid("requests", "bulk requests need at least one sub-request")
	}
	items := make([]bulkItem, 0, len(b.subs))
	for i, sub := range b.subs {
		if sub == nil {
			return bulkBody{}, invalid("requests", fmt.Sprintf("sub-request %d is nil", i))
		}
		if sub.op == OpBulk {
			return bulkBody{}, invalid("requests", "bulk requests cannot be nested")
		}
		req := map[string]any{}
		if sub.body != "" {
			tree, err := lbapi.Decode(sub.body)
			if err != nil {
				return bulkBody{}, &InvalidRequestError{Field: "requests", Reason: fmt.Sprintf("sub-request %d body", i), Err: err}
			}
			obj, ok := tree.(map[string]any)
			if !ok {
				return bulkBody{}, invalid("requests", fmt.Sprintf("sub-request %d body is not an object", i))
			}
			req = obj
		}
		req["entity"] = sub.entity
		if sub.version != "" {
			req["entityVersion"] = sub.version
		}
		items = append(items, bulkItem{Seq: i, Op: sub.op.Segment(), Request: req})
	}
	return bulkBody{Requests: items, Ordered: b.ordered}, nil
}

func expression(q query.Expression) any {
	if q == nil {
		return nil
	}
	return q
}

// oneOrMany renders a single shape as an object and several as an array.
func oneOrMany[T any](items []T) any {
	switch len(items) {
	case 0:
		return nil
	case 1:
		return items[0]
	default:
		return items
	}
}

func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &InvalidRequestError{Field: "request", Reason: "validation failed", Err: err}
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return invalid(field, "must not be empty")
	case "excludesall":
		return invalid(field, fmt.Sprintf("%q must not contain '/'", fe.Value()))
	case "oneof":
		return invalid(field, fmt.Sprintf("unknown operation %q", fe.Value()))
	default:
		return invalid(field, fmt.Sprintf("failed %s validation", fe.Tag()))
	}
}
