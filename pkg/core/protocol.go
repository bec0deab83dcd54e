package core

import (
	"net/http"
	"strconv"
)

// Params carries operation-specific arguments into Protocol.BuildRequest.
type Params map[string]string

// Response is what the transport hands back: status, headers and the raw body.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IsSuccess returns true for 2xx status codes.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// HeaderInt reads a numeric header. Missing or malformed values read as zero.
func (r *Response) HeaderInt(name string) int {
	if r == nil || r.Headers == nil {
		return 0
	}
	v, err := strconv.Atoi(r.Headers.Get(name))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// Protocol defines the exchange-specific half of a dispatched call.
type Protocol interface {
	// Name returns the exchange identifier (e.g., "binance", "okx").
	Name() string

	// BaseURL returns the API root for the given environment.
	BaseURL(sandbox bool) string

	// BuildRequest constructs the unsigned request for the operation.
	BuildRequest(op Operation, params Params) (*Request, error)

	// SignRequest attaches authentication material. It is called again for every
	// retry so that time-based signatures stay fresh.
	SignRequest(req *Request) error

	// ParseResponse maps status codes to errors and decodes the body into the
	// operation's record type.
	ParseResponse(op Operation, resp *Response) (any, error)
}
