// Package script evaluates parsed script programs against three variable
// scopes and routes namespaced calls to plugins.
package script

import "github.com/gal-dev/galrt/domain/entities"

// Program is a sequence of statements. Its value is the value of the last
// statement.
type Program []Expr

// Expr is one of Ref, Const, Unary, Binary or Call.
type Expr interface {
	isExpr()
}

// Scope selects the variable table a Ref reads from.
type Scope uint8

const (
	// ScopeVar variables live for one Program run.
	ScopeVar Scope = iota
	// ScopeCtx variables are the session locals and persist across runs.
	ScopeCtx
	// ScopeRes variables are read-only resources.
	ScopeRes
)

func (s Scope) String() string {
	switch s {
	case ScopeVar:
		return "var"
	case ScopeCtx:
		return "ctx"
	case ScopeRes:
		return "res"
	default:
		return "unknown"
	}
}

// Ref reads a variable.
type Ref struct {
	Scope Scope
	Name  string
}

// Const is a literal value.
type Const struct {
	Value entities.Value
}

// UnaryOp is a prefix operator.
type UnaryOp uint8

const (
	OpPositive UnaryOp = iota
	OpNegative
	OpNot
)

func (op UnaryOp) String() string {
	switch op {
	case OpPositive:
		return "+"
	case OpNegative:
		return "-"
	case OpNot:
		return "!"
	default:
		return "?"
	}
}

// Unary applies a prefix operator.
type Unary struct {
	Op UnaryOp
	X  Expr
}

// BinaryOp is one of ValOp, LogicOp, AssignOp or InPlaceOp.
type BinaryOp interface {
	isBinaryOp()
	String() string
}

// ValOp is an arithmetic or bitwise operator.
type ValOp uint8

const (
	OpAdd ValOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
)

func (op ValOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpAnd:
		return "&"
	case OpOr:
		return "|"
	case OpXor:
		return "^"
	default:
		return "?"
	}
}

// LogicOp is a comparison or boolean operator. The result is always Bool.
type LogicOp uint8

const (
	OpEq LogicOp = iota
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
	OpLogicAnd
	OpLogicOr
	OpLogicXor
)

func (op LogicOp) String() string {
	switch op {
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpLogicAnd:
		return "&&"
	case OpLogicOr:
		return "||"
	case OpLogicXor:
		return "^^"
	default:
		return "?"
	}
}

// AssignOp is "=".
type AssignOp struct{}

func (AssignOp) String() string { return "=" }

// InPlaceOp is "op=": the target is combined with the value through Op and
// assigned.
type InPlaceOp struct {
	Op ValOp
}

func (op InPlaceOp) String() string { return op.Op.String() + "=" }

func (ValOp) isBinaryOp()     {}
func (LogicOp) isBinaryOp()   {}
func (AssignOp) isBinaryOp()  {}
func (InPlaceOp) isBinaryOp() {}

// Binary applies a binary operator. For assignments X is the target.
type Binary struct {
	X  Expr
	Op BinaryOp
	Y  Expr
}

// Call invokes Namespace.Name(Args...). An empty Namespace names an
// intrinsic.
type Call struct {
	Namespace string
	Name      string
	Args      []Expr
}

func (Ref) isExpr()    {}
func (Const) isExpr()  {}
func (Unary) isExpr()  {}
func (Binary) isExpr() {}
func (Call) isExpr()   {}

// Text is a line of narrative text with embedded programs.
type Text []TextPart

// TextPart is TextStr or TextExec.
type TextPart interface {
	isTextPart()
}

// TextStr is a literal fragment.
type TextStr string

// TextExec is an embedded program whose value is stringified into the text.
type TextExec struct {
	Program Program
}

func (TextStr) isTextPart()  {}
func (TextExec) isTextPart() {}
