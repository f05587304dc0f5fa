package request

import (
	"net/url"
	"strings"
)

// Descriptor is an immutable description of one lightblue operation.
type Descriptor struct {
	entity  string
	version string
	op      Operation
	method  Method
	path    string
	body    string
	params  url.Values
}

// Entity returns the entity name.
func (d *Descriptor) Entity() string { return d.entity }

// Version returns the entity version; empty selects the server default.
func (d *Descriptor) Version() string { return d.version }

// Operation returns the operation kind.
func (d *Descriptor) Operation() Operation { return d.op }

// Method returns the HTTP method.
func (d *Descriptor) Method() Method { return d.method }

// Path returns the URI path relative to the service base URI.
func (d *Descriptor) Path() string { return d.path }

// Body returns the JSON body. Bodyless methods still report the body they
// were built with; transports do not send it.
func (d *Descriptor) Body() string { return d.body }

// Params returns a copy of the query parameters.
func (d *Descriptor) Params() url.Values {
	out := make(url.Values, len(d.params))
	for k, values := range d.params {
		out[k] = append([]string(nil), values...)
	}
	return out
}

// URI joins the relative path and query parameters onto base. Trailing
// slashes on base are normalized to a single separator.
func (d *Descriptor) URI(base string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	b.WriteByte('/')
	b.WriteString(d.path)
	if len(d.params) > 0 {
		b.WriteByte('?')
		b.WriteString(d.params.Encode())
	}
	return b.String()
}

func (d *Descriptor) String() string {
	return string(d.method) + " " + d.path
}

func relativePath(entity, version string, op Operation) string {
	parts := []string{url.PathEscape(entity)}
	if version != "" {
		parts = append(parts, url.PathEscape(version))
	}
	parts = append(parts, op.Segment())
	return strings.Join(parts, "/")
}
