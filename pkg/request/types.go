package request

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Operation identifies a lightblue data operation.
type Operation string

const (
	OpFind   Operation = "FIND"
	OpInsert Operation = "INSERT"
	OpSave   Operation = "SAVE"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
	OpBulk   Operation = "BULK"
)

// Operations lists every supported operation.
var Operations = []Operation{OpFind, OpInsert, OpSave, OpUpdate, OpDelete, OpBulk}

// Segment is the path segment naming the operation in request URIs.
func (o Operation) Segment() string {
	return strings.ToLower(string(o))
}

// ParseOperation resolves a path segment or operation name.
func ParseOperation(s string) (Operation, bool) {
	candidate := Operation(strings.ToUpper(strings.TrimSpace(s)))
	for _, op := range Operations {
		if op == candidate {
			return op, true
		}
	}
	return "", false
}

// Method is an HTTP method used by lightblue requests.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
)

// MethodFor returns the HTTP method an operation is sent with. Updates go out
// as POST: the service's update endpoints do not accept PUT.
func MethodFor(op Operation) Method {
	switch op {
	case OpFind:
		return MethodGet
	case OpDelete:
		return MethodDelete
	default:
		return MethodPost
	}
}

// CarriesBody reports whether requests with method m send an entity body.
func (m Method) CarriesBody() bool {
	return m == MethodPost || m == MethodPut
}

// ErrInvalidRequest matches every InvalidRequestError.
var ErrInvalidRequest = errors.New("request: invalid request")

// InvalidRequestError reports a descriptor that cannot be built.
type InvalidRequestError struct {
	Field  string
	Reason string
	Err    error
}

func (e *InvalidRequestError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("request: invalid %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidRequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches ErrInvalidRequest.
func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func invalid(field, reason string) *InvalidRequestError {
	return &InvalidRequestError{Field: field, Reason: reason}
}
