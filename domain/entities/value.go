package entities

import (
	"math/big"
	"strconv"
	"strings"
)

// ValueType is the kind of a Value. Kinds are totally ordered:
// TypeUnit < TypeBool < TypeNum < TypeStr.
type ValueType uint8

const (
	TypeUnit ValueType = iota
	TypeBool
	TypeNum
	TypeStr
)

// String returns the lowercase name of the type.
func (t ValueType) String() string {
	switch t {
	case TypeUnit:
		return "unit"
	case TypeBool:
		return "bool"
	case TypeNum:
		return "num"
	case TypeStr:
		return "str"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// MaxType returns the wider of two types. Binary operators promote both
// operands to this type before evaluating.
func MaxType(a, b ValueType) ValueType {
	if a > b {
		return a
	}
	return b
}

// Value is the dynamically typed value shared by scripts and plugins.
// The zero Value is Unit. Values are immutable: Num values never share
// their big.Int with callers.
type Value struct {
	num  *big.Int
	str  string
	kind ValueType
	b    bool
}

// Unit returns the unit value.
func Unit() Value {
	return Value{}
}

// NewBool returns a Bool value.
func NewBool(b bool) Value {
	return Value{kind: TypeBool, b: b}
}

// NewNum returns a Num value holding a copy of n. A nil n is zero.
func NewNum(n *big.Int) Value {
	c := new(big.Int)
	if n != nil {
		c.Set(n)
	}
	return Value{kind: TypeNum, num: c}
}

// NewInt returns a Num value from a machine integer.
func NewInt(i int64) Value {
	return Value{kind: TypeNum, num: big.NewInt(i)}
}

// NewStr returns a Str value.
func NewStr(s string) Value {
	return Value{kind: TypeStr, str: s}
}

// ParseNum parses a decimal (or 0x/0o/0b prefixed) integer literal of any size.
func ParseNum(s string) (Value, bool) {
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return Value{}, false
	}
	return Value{kind: TypeNum, num: n}, true
}

// Type reports the kind of v.
func (v Value) Type() ValueType {
	return v.kind
}

// IsUnit reports whether v is Unit.
func (v Value) IsUnit() bool {
	return v.kind == TypeUnit
}

// AsBool coerces v to a boolean: Unit is false, Num is true when non-zero,
// Str is true when non-empty.
func (v Value) AsBool() bool {
	switch v.kind {
	case TypeBool:
		return v.b
	case TypeNum:
		return v.num.Sign() != 0
	case TypeStr:
		return v.str != ""
	default:
		return false
	}
}

// AsNum coerces v to an integer: Unit is 0, Bool is 0 or 1, Str is its
// length in bytes. The returned big.Int is owned by the caller.
func (v Value) AsNum() *big.Int {
	switch v.kind {
	case TypeBool:
		if v.b {
			return big.NewInt(1)
		}
		return big.NewInt(0)
	case TypeNum:
		return new(big.Int).Set(v.num)
	case TypeStr:
		return big.NewInt(int64(len(v.str)))
	default:
		return big.NewInt(0)
	}
}

// AsStr returns the canonical textual form of v. Unit renders as the empty
// string.
func (v Value) AsStr() string {
	switch v.kind {
	case TypeBool:
		return strconv.FormatBool(v.b)
	case TypeNum:
		return v.num.String()
	case TypeStr:
		return v.str
	default:
		return ""
	}
}

// String implements fmt.Stringer with a debug form that keeps the kind visible.
func (v Value) String() string {
	switch v.kind {
	case TypeUnit:
		return "~"
	case TypeStr:
		return strconv.Quote(v.str)
	default:
		return v.AsStr()
	}
}

// Compare orders two values: first by kind, then by the natural order of the
// kind. It returns -1, 0 or +1.
func (v Value) Compare(o Value) int {
	if v.kind != o.kind {
		if v.kind < o.kind {
			return -1
		}
		return 1
	}
	switch v.kind {
	case TypeBool:
		switch {
		case v.b == o.b:
			return 0
		case !v.b:
			return -1
		default:
			return 1
		}
	case TypeNum:
		return v.num.Cmp(o.num)
	case TypeStr:
		return strings.Compare(v.str, o.str)
	default:
		return 0
	}
}

// Equal reports whether v and o have the same kind and value.
func (v Value) Equal(o Value) bool {
	return v.Compare(o) == 0
}
