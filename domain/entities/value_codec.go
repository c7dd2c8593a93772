package entities

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// CBOR bignum tags (RFC 8949 section 3.4.3).
const (
	tagPosBignum = 2
	tagNegBignum = 3
)

// MarshalCBOR encodes Unit as null, Bool as a CBOR boolean, Str as a text
// string and Num as an integer when it fits in 64 bits, a bignum otherwise.
func (v Value) MarshalCBOR() ([]byte, error) {
	switch v.kind {
	case TypeUnit:
		return cbor.Marshal(nil)
	case TypeBool:
		return cbor.Marshal(v.b)
	case TypeStr:
		return cbor.Marshal(v.str)
	case TypeNum:
		if v.num.IsInt64() {
			return cbor.Marshal(v.num.Int64())
		}
		if v.num.Sign() > 0 {
			return cbor.Marshal(cbor.Tag{Number: tagPosBignum, Content: v.num.Bytes()})
		}
		// Negative bignums carry -1-n.
		m := new(big.Int).Neg(v.num)
		m.Sub(m, big.NewInt(1))
		return cbor.Marshal(cbor.Tag{Number: tagNegBignum, Content: m.Bytes()})
	default:
		return nil, fmt.Errorf("cannot encode value of type %s", v.kind)
	}
}

// UnmarshalCBOR decodes any CBOR item produced by MarshalCBOR, plus plain
// unsigned integers above the int64 range.
func (v *Value) UnmarshalCBOR(data []byte) error {
	var raw any
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := valueFromAny(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func valueFromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Unit(), nil
	case bool:
		return NewBool(x), nil
	case string:
		return NewStr(x), nil
	case int64:
		return NewInt(x), nil
	case uint64:
		return NewNum(new(big.Int).SetUint64(x)), nil
	case big.Int:
		return NewNum(&x), nil
	case *big.Int:
		return NewNum(x), nil
	case cbor.Tag:
		content, ok := x.Content.([]byte)
		if !ok {
			return Value{}, fmt.Errorf("bignum tag %d has non-byte content", x.Number)
		}
		n := new(big.Int).SetBytes(content)
		switch x.Number {
		case tagPosBignum:
			return Value{kind: TypeNum, num: n}, nil
		case tagNegBignum:
			n.Add(n, big.NewInt(1))
			return Value{kind: TypeNum, num: n.Neg(n)}, nil
		}
		return Value{}, fmt.Errorf("unsupported CBOR tag %d", x.Number)
	default:
		return Value{}, fmt.Errorf("unsupported CBOR item %T for value", raw)
	}
}

// MarshalYAML renders Unit as ~ and keeps integers of any size exact.
func (v Value) MarshalYAML() (any, error) {
	switch v.kind {
	case TypeUnit:
		return nil, nil
	case TypeBool:
		return v.b, nil
	case TypeNum:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: v.num.String()}, nil
	default:
		return v.str, nil
	}
}

// UnmarshalYAML accepts null, bool, int and string scalars.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: value must be a scalar", node.Line)
	}
	switch node.ShortTag() {
	case "!!null":
		*v = Unit()
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = NewBool(b)
	case "!!int":
		n, ok := ParseNum(node.Value)
		if !ok {
			return fmt.Errorf("line %d: invalid integer %q", node.Line, node.Value)
		}
		*v = n
	case "!!str":
		*v = NewStr(node.Value)
	case "!!float":
		// Plain integers beyond 64 bits resolve as floats.
		n, ok := ParseNum(node.Value)
		if !ok || node.Style&yaml.TaggedStyle != 0 {
			return fmt.Errorf("line %d: unsupported scalar %s", node.Line, node.ShortTag())
		}
		*v = n
	default:
		return fmt.Errorf("line %d: unsupported scalar %s", node.Line, node.ShortTag())
	}
	return nil
}
