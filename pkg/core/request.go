package core

import (
	"maps"
	"net/url"
)

// Request is one logical HTTP call before authentication material is attached.
//
// Query holds parameters the transport encodes itself. RawQuery is sent verbatim
// and is used by signers whose signature covers the exact query string.
type Request struct {
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Query       url.Values        `json:"query,omitempty"`
	RawQuery    string            `json:"raw_query,omitempty"`
	Body        []byte            `json:"body,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Weight      int               `json:"weight"`
	RequireAuth bool              `json:"require_auth"`
}

func NewRequest(method, path string) *Request {
	return &Request{
		Method:  method,
		Path:    path,
		Query:   make(url.Values),
		Headers: make(map[string]string),
		Weight:  1,
	}
}

func (r *Request) SetQuery(key, value string) *Request {
	if r.Query == nil {
		r.Query = make(url.Values)
	}
	r.Query.Set(key, value)
	return r
}

func (r *Request) SetRawQuery(raw string) *Request {
	r.RawQuery = raw
	return r
}

func (r *Request) SetBody(body []byte) *Request {
	r.Body = body
	return r
}

func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

func (r *Request) SetWeight(weight int) *Request {
	r.Weight = weight
	return r
}

func (r *Request) SetRequireAuth(require bool) *Request {
	r.RequireAuth = require
	return r
}

// PathWithQuery returns the path followed by the encoded query, as it goes on the wire.
func (r *Request) PathWithQuery() string {
	switch {
	case r.RawQuery != "":
		return r.Path + "?" + r.RawQuery
	case len(r.Query) > 0:
		return r.Path + "?" + r.Query.Encode()
	default:
		return r.Path
	}
}

// Clone returns a deep copy. Signing mutates headers and queries, so every
// dispatch attempt works on its own clone.
func (r *Request) Clone() *Request {
	c := *r
	c.Query = make(url.Values, len(r.Query))
	for k, v := range r.Query {
		c.Query[k] = append([]string(nil), v...)
	}
	c.Headers = maps.Clone(r.Headers)
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	return &c
}
