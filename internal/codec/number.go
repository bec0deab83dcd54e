package codec

import (
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
)

// NumberError reports a value that could not be read as a number.
type NumberError struct {
	Value string
	Err   error
}

func (e *NumberError) Error() string {
	return fmt.Sprintf("invalid number %q: %v", e.Value, e.Err)
}

func (e *NumberError) Unwrap() error { return e.Err }

// scalarText returns the text of a JSON string or bare scalar.
func scalarText(data []byte) (string, error) {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(data), nil
}

func isNull(data []byte) bool {
	return string(data) == "null"
}

// Float decodes amounts sent either as decimal strings ("0.00100000") or as
// JSON numbers. Non-numeric strings are rejected.
type Float float64

func (f *Float) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	s, err := scalarText(data)
	if err != nil {
		return &NumberError{Value: string(data), Err: err}
	}
	v, err := ParseFloat(s)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// ParseFloat parses a decimal string into a float64.
func ParseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &NumberError{Value: s, Err: err}
	}
	return v, nil
}

// Uint decodes identifiers sent either as strings ("1234") or as JSON numbers.
type Uint uint64

func (u *Uint) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	s, err := scalarText(data)
	if err != nil {
		return &NumberError{Value: string(data), Err: err}
	}
	v, err := ParseUint(s)
	if err != nil {
		return err
	}
	*u = Uint(v)
	return nil
}

// ParseUint parses a decimal identifier into a uint64.
func ParseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, &NumberError{Value: s, Err: err}
	}
	return v, nil
}
