package codec

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// SlotError locates a failure inside a positional array.
type SlotError struct {
	Tuple string
	Index int
	Field string
	Err   error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path(), e.Err)
}

func (e *SlotError) Unwrap() error { return e.Err }

// Path renders the location as tuple[index].field.
func (e *SlotError) Path() string {
	if e.Index < 0 {
		return e.Tuple
	}
	return fmt.Sprintf("%s[%d].%s", e.Tuple, e.Index, e.Field)
}

// TupleReader maps the slots of a fixed-position JSON array onto named fields.
// The first failure is kept and every later read returns a zero value, so a
// record can be read field by field with a single Err check at the end.
//
//	r := codec.NewTupleReader("trade", raw, 11, 12)
//	t.ID = r.Uint64(0, "id")
//	t.CID = r.OptUint64(11, "cid")
//	if err := r.Err(); err != nil { ... }
//
// Slots that no read touches are placeholders and are ignored.
type TupleReader struct {
	name  string
	slots []json.RawMessage
	err   error
}

// NewTupleReader parses data as an array holding between minLen and maxLen
// elements. Slots at or beyond minLen are optional and read as absent when the
// array is shorter.
func NewTupleReader(name string, data []byte, minLen, maxLen int) *TupleReader {
	r := &TupleReader{name: name}
	if err := sonic.Unmarshal(data, &r.slots); err != nil {
		r.err = &SlotError{Tuple: name, Index: -1, Err: fmt.Errorf("not an array: %w", err)}
		return r
	}
	if len(r.slots) < minLen || (maxLen > 0 && len(r.slots) > maxLen) {
		r.err = &SlotError{Tuple: name, Index: -1,
			Err: fmt.Errorf("array has %d elements, want %d to %d", len(r.slots), minLen, maxLen)}
	}
	return r
}

// Err returns the first error encountered.
func (r *TupleReader) Err() error {
	return r.err
}

// Len returns the number of slots present.
func (r *TupleReader) Len() int {
	return len(r.slots)
}

func (r *TupleReader) fail(i int, field string, err error) {
	if r.err == nil {
		r.err = &SlotError{Tuple: r.name, Index: i, Field: field, Err: err}
	}
}

// slot returns the raw element, or nil when it is absent or null.
func (r *TupleReader) slot(i int) json.RawMessage {
	if r.err != nil || i >= len(r.slots) || isNull(r.slots[i]) {
		return nil
	}
	return r.slots[i]
}

func (r *TupleReader) required(i int, field string) json.RawMessage {
	raw := r.slot(i)
	if raw == nil && r.err == nil {
		r.fail(i, field, fmt.Errorf("required slot is missing or null"))
	}
	return raw
}

func (r *TupleReader) decode(raw json.RawMessage, i int, field string, v any) {
	if err := sonic.Unmarshal(raw, v); err != nil {
		r.fail(i, field, err)
	}
}

func (r *TupleReader) Uint64(i int, field string) uint64 {
	var v uint64
	if raw := r.required(i, field); raw != nil {
		r.decode(raw, i, field, &v)
	}
	return v
}

func (r *TupleReader) OptUint64(i int, field string) *uint64 {
	raw := r.slot(i)
	if raw == nil {
		return nil
	}
	var v uint64
	r.decode(raw, i, field, &v)
	if r.err != nil {
		return nil
	}
	return &v
}

func (r *TupleReader) Int(i int, field string) int {
	var v int
	if raw := r.required(i, field); raw != nil {
		r.decode(raw, i, field, &v)
	}
	return v
}

func (r *TupleReader) Float64(i int, field string) float64 {
	var v float64
	if raw := r.required(i, field); raw != nil {
		r.decode(raw, i, field, &v)
	}
	return v
}

func (r *TupleReader) OptFloat64(i int, field string) *float64 {
	raw := r.slot(i)
	if raw == nil {
		return nil
	}
	var v float64
	r.decode(raw, i, field, &v)
	if r.err != nil {
		return nil
	}
	return &v
}

func (r *TupleReader) String(i int, field string) string {
	var v string
	if raw := r.required(i, field); raw != nil {
		r.decode(raw, i, field, &v)
	}
	return v
}

func (r *TupleReader) OptString(i int, field string) *string {
	raw := r.slot(i)
	if raw == nil {
		return nil
	}
	var v string
	r.decode(raw, i, field, &v)
	if r.err != nil {
		return nil
	}
	return &v
}

// Object decodes a JSON object slot. Absent or null slots give a nil map.
func (r *TupleReader) Object(i int, field string) map[string]any {
	raw := r.slot(i)
	if raw == nil {
		return nil
	}
	var v map[string]any
	r.decode(raw, i, field, &v)
	return v
}

// Raw returns a slot undecoded, for fields decoded by a custom type.
func (r *TupleReader) Raw(i int) json.RawMessage {
	return r.slot(i)
}

// SplitArray splits a JSON array of tuples into its elements.
func SplitArray(data []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := sonic.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}
