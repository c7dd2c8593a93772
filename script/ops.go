package script

import (
	"math/big"
	"strings"

	"github.com/gal-dev/galrt/domain/entities"
)

// MaxStringLen bounds strings built by repetition.
const MaxStringLen = 16 << 20

func unary(op UnaryOp, x entities.Value) entities.Value {
	switch op {
	case OpPositive:
		return entities.NewNum(x.AsNum())
	case OpNegative:
		return entities.NewNum(new(big.Int).Neg(x.AsNum()))
	default:
		return not(x)
	}
}

// not complements x within its own type: Bool negates, Num is bitwise
// complemented, Str becomes empty and Unit stays Unit.
func not(x entities.Value) entities.Value {
	switch x.Type() {
	case entities.TypeBool:
		return entities.NewBool(!x.AsBool())
	case entities.TypeNum:
		return entities.NewNum(new(big.Int).Not(x.AsNum()))
	case entities.TypeStr:
		return entities.NewStr("")
	default:
		return entities.Unit()
	}
}

// binaryValue applies op after promoting both operands to the wider type.
func binaryValue(op ValOp, x, y entities.Value) (entities.Value, error) {
	switch entities.MaxType(x.Type(), y.Type()) {
	case entities.TypeUnit:
		return entities.Unit(), nil
	case entities.TypeBool:
		return boolValue(op, x.AsBool(), y.AsBool())
	case entities.TypeNum:
		n, err := numValue(op, x.AsNum(), y.AsNum())
		if err != nil {
			return entities.Unit(), err
		}
		return entities.NewNum(n), nil
	default:
		return strValue(op, x, y)
	}
}

func boolValue(op ValOp, x, y bool) (entities.Value, error) {
	switch op {
	case OpAnd:
		return entities.NewBool(x && y), nil
	case OpOr:
		return entities.NewBool(x || y), nil
	case OpXor:
		return entities.NewBool(x != y), nil
	}
	n, err := numValue(op, boolNum(x), boolNum(y))
	if err != nil {
		return entities.Unit(), err
	}
	return entities.NewNum(n), nil
}

func boolNum(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return new(big.Int)
}

// numValue computes x op y. Division and remainder truncate toward zero.
func numValue(op ValOp, x, y *big.Int) (*big.Int, error) {
	z := new(big.Int)
	switch op {
	case OpAdd:
		return z.Add(x, y), nil
	case OpSub:
		return z.Sub(x, y), nil
	case OpMul:
		return z.Mul(x, y), nil
	case OpDiv:
		if y.Sign() == 0 {
			return nil, unsupported(op.String(), "division by zero")
		}
		return z.Quo(x, y), nil
	case OpMod:
		if y.Sign() == 0 {
			return nil, unsupported(op.String(), "division by zero")
		}
		return z.Rem(x, y), nil
	case OpAnd:
		return z.And(x, y), nil
	case OpOr:
		return z.Or(x, y), nil
	case OpXor:
		return z.Xor(x, y), nil
	default:
		return nil, unsupported(op.String(), "unknown operator")
	}
}

// strValue handles + (concatenation) and * (repetition of the single Str
// operand). Every other operator is unsupported on strings.
func strValue(op ValOp, x, y entities.Value) (entities.Value, error) {
	switch op {
	case OpAdd:
		return entities.NewStr(x.AsStr() + y.AsStr()), nil
	case OpMul:
		xs, ys := x.Type() == entities.TypeStr, y.Type() == entities.TypeStr
		switch {
		case xs && ys:
			return entities.Unit(), unsupported("*", "cannot multiply two strings")
		case xs:
			return repeat(x.AsStr(), y.AsNum())
		default:
			return repeat(y.AsStr(), x.AsNum())
		}
	default:
		return entities.Unit(), unsupported(op.String(), "not defined on strings")
	}
}

func repeat(s string, count *big.Int) (entities.Value, error) {
	if count.Sign() <= 0 || s == "" {
		return entities.NewStr(""), nil
	}
	if !count.IsInt64() || count.Int64() > int64(MaxStringLen/len(s)) {
		return entities.Unit(), unsupported("*", "repeated string too long")
	}
	return entities.NewStr(strings.Repeat(s, int(count.Int64()))), nil
}

// compare evaluates an ordering operator after promoting to the wider type.
// Unit operands compare false under every operator.
func compare(op LogicOp, x, y entities.Value) (bool, error) {
	var c int
	switch entities.MaxType(x.Type(), y.Type()) {
	case entities.TypeUnit:
		return false, nil
	case entities.TypeBool:
		c = boolNum(x.AsBool()).Cmp(boolNum(y.AsBool()))
	case entities.TypeNum:
		c = x.AsNum().Cmp(y.AsNum())
	default:
		c = strings.Compare(x.AsStr(), y.AsStr())
	}
	switch op {
	case OpEq:
		return c == 0, nil
	case OpNeq:
		return c != 0, nil
	case OpLt:
		return c < 0, nil
	case OpLe:
		return c <= 0, nil
	case OpGt:
		return c > 0, nil
	case OpGe:
		return c >= 0, nil
	default:
		return false, unsupported(op.String(), "unknown operator")
	}
}
