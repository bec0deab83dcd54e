package codec

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

// Fallback messages used when an error payload carries no usable detail.
const (
	UnknownErrorMessage    = "Unknown error"
	UnparsableErrorMessage = "Failed to parse error message"
)

// Envelope is the {code, msg, data} wrapper some exchanges put around every payload.
type Envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// ParseEnvelope decodes the wrapper only; Data stays raw.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Detail returns the field of the first error record in Data.
func (e *Envelope) Detail(field string) string {
	return FirstDetail(e.Data, field)
}

// FirstDetail reads data as a list of error records and returns the named
// string field of the first one. It falls back to UnknownErrorMessage when the
// list is empty or the field is missing, and to UnparsableErrorMessage when
// data is not a list of objects.
func FirstDetail(data []byte, field string) string {
	var items []map[string]any
	if err := sonic.Unmarshal(data, &items); err != nil {
		return UnparsableErrorMessage
	}
	if len(items) == 0 {
		return UnknownErrorMessage
	}
	if s, ok := items[0][field].(string); ok && s != "" {
		return s
	}
	return UnknownErrorMessage
}
