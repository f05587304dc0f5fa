package request

import (
	"net/url"
	"strconv"

	"github.com/gorilla/schema"

	"github.com/lightblue-platform/lightblue_sdk_go/internal/lbapi"
)

var encoder = schema.NewEncoder()

// queryParams is the URL form of a find or delete body, for methods that
// cannot carry one.
type queryParams struct {
	Query      string `schema:"Q,omitempty"`
	Projection string `schema:"P,omitempty"`
	Sort       string `schema:"S,omitempty"`
	From       string `schema:"from,omitempty"`
	To         string `schema:"to,omitempty"`
}

func paramsFromBody(body string) (url.Values, error) {
	tree, err := lbapi.Decode(body)
	if err != nil {
		return nil, &InvalidRequestError{Field: "body", Reason: "is not valid JSON", Err: err}
	}

	var p queryParams
	if p.Query, err = member(tree, "query"); err != nil {
		return nil, err
	}
	if p.Projection, err = member(tree, "projection"); err != nil {
		return nil, err
	}
	if p.Sort, err = member(tree, "sort"); err != nil {
		return nil, err
	}
	if rng, ok := lbapi.Lookup(tree, "range"); ok && rng != nil {
		bounds, ok := rng.([]any)
		if !ok || len(bounds) != 2 {
			return nil, invalid("range", "must be a [from, to] pair")
		}
		from, okFrom := lbapi.Int64(bounds[0])
		to, okTo := lbapi.Int64(bounds[1])
		if !okFrom || !okTo {
			return nil, invalid("range", "bounds must be integers")
		}
		p.From = strconv.FormatInt(from, 10)
		p.To = strconv.FormatInt(to, 10)
	}

	values := url.Values{}
	if err := encoder.Encode(p, values); err != nil {
		return nil, &InvalidRequestError{Field: "params", Reason: "cannot be encoded", Err: err}
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}

func member(tree any, field string) (string, error) {
	v, ok := lbapi.Lookup(tree, field)
	if !ok || v == nil {
		return "", nil
	}
	text, err := lbapi.Compact(v)
	if err != nil {
		return "", &InvalidRequestError{Field: field, Reason: "cannot be encoded", Err: err}
	}
	return text, nil
}
