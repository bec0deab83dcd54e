// Package codec decodes exchange response bodies: keyed objects through sonic,
// positional arrays through TupleReader, and error envelopes. Failures become
// core decode errors that name the failing record or field.
package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"nakula/pkg/core"
)

var validate = validator.New()

// Decode unmarshals data into a T. name is used as the error path.
func Decode[T any](exchange, name string, data []byte) (T, error) {
	var v T
	if err := sonic.Unmarshal(data, &v); err != nil {
		return v, DecodeError(exchange, name, err)
	}
	return v, nil
}

// Validate checks the validate tags on a decoded record. path prefixes the
// failing field's namespace, e.g. "balances[3]".
func Validate(exchange, path string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Namespace()
		if path != "" {
			field = path
			if ns := fe.Namespace(); strings.Contains(ns, ".") {
				field += ns[strings.IndexByte(ns, '.'):]
			}
		}
		return core.NewDecodeError(exchange, field,
			fmt.Errorf("value %v fails %q", fe.Value(), fe.Tag()))
	}
	return core.NewDecodeError(exchange, path, err)
}

// DecodeError wraps err as a core decode error, preferring the slot path of a
// SlotError when one is present.
func DecodeError(exchange, path string, err error) error {
	var slotErr *SlotError
	if errors.As(err, &slotErr) {
		path = slotErr.Path()
	}
	return core.NewDecodeError(exchange, path, err)
}
