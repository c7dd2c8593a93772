// Package wireformat defines the CBOR encoding of arguments and results
// exchanged between the host and guests. Call parameters are always a CBOR
// array holding one item per parameter; results are a single item.
package wireformat

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/gal-dev/galrt/domain/errors"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort: cbor.SortCoreDeterministic,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("wireformat: invalid encode options: %v", err))
	}
	decMode, err = cbor.DecOptions{
		MaxNestedLevels: 64,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("wireformat: invalid decode options: %v", err))
	}
}

// Marshal encodes v.
func Marshal(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, &errors.WireFormatError{Operation: "marshal", Type: fmt.Sprintf("%T", v), Err: err}
	}
	return data, nil
}

// Unmarshal decodes data into v, which must be a non-nil pointer.
func Unmarshal(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return &errors.WireFormatError{Operation: "unmarshal", Type: fmt.Sprintf("%T", v), Err: err}
	}
	return nil
}

// EncodeParams encodes a parameter tuple. With no params the result is an
// empty array.
func EncodeParams(params ...any) ([]byte, error) {
	if params == nil {
		params = []any{}
	}
	return Marshal(params)
}
