package script

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"

	"github.com/gal-dev/galrt/domain/entities"
	"github.com/gal-dev/galrt/domain/errors"
)

// Run clears the Var scope and evaluates the statements of p in order. The
// result is the value of the last statement, or Unit for an empty program.
// A failing statement is logged and yields Unit; the remaining statements
// still run and every failure is returned joined.
func (t *VarTable) Run(ctx context.Context, p Program) (entities.Value, error) {
	t.vars = entities.VarMap{}
	res := entities.Unit()
	var errs []error
	for i, stmt := range p {
		v, err := t.Eval(ctx, stmt)
		if err != nil {
			t.logger().ErrorContext(ctx, "statement failed", "index", i, "error", err)
			errs = append(errs, fmt.Errorf("statement %d: %w", i, err))
			v = entities.Unit()
		}
		res = v
	}
	return res, stdErrors.Join(errs...)
}

// Eval evaluates one expression. Missing variables, namespaces and failing
// plugin calls yield Unit. Unsupported operations return an error.
func (t *VarTable) Eval(ctx context.Context, e Expr) (entities.Value, error) {
	switch e := e.(type) {
	case Ref:
		return t.lookup(ctx, e), nil
	case Const:
		return e.Value, nil
	case Unary:
		x, err := t.Eval(ctx, e.X)
		if err != nil {
			return entities.Unit(), err
		}
		return unary(e.Op, x), nil
	case Binary:
		return t.binary(ctx, e)
	case Call:
		return t.call(ctx, e)
	case nil:
		return entities.Unit(), nil
	default:
		return entities.Unit(), unsupported("eval", fmt.Sprintf("unknown expression %T", e))
	}
}

// RunText concatenates the literal fragments of text with the string form of
// each embedded program and trims the surrounding whitespace.
func (t *VarTable) RunText(ctx context.Context, text Text) (entities.Value, error) {
	var (
		sb   strings.Builder
		errs []error
	)
	for _, part := range text {
		switch part := part.(type) {
		case TextStr:
			sb.WriteString(string(part))
		case TextExec:
			v, err := t.Run(ctx, part.Program)
			if err != nil {
				errs = append(errs, err)
			}
			sb.WriteString(v.AsStr())
		}
	}
	return entities.NewStr(strings.TrimSpace(sb.String())), stdErrors.Join(errs...)
}

func (t *VarTable) binary(ctx context.Context, e Binary) (entities.Value, error) {
	switch op := e.Op.(type) {
	case ValOp:
		x, y, err := t.operands(ctx, e.X, e.Y)
		if err != nil {
			return entities.Unit(), err
		}
		return binaryValue(op, x, y)
	case LogicOp:
		b, err := t.logic(ctx, op, e.X, e.Y)
		if err != nil {
			return entities.Unit(), err
		}
		return entities.NewBool(b), nil
	case AssignOp:
		if err := checkTarget(e.X); err != nil {
			return entities.Unit(), err
		}
		v, err := t.Eval(ctx, e.Y)
		if err != nil {
			return entities.Unit(), err
		}
		return entities.Unit(), t.assign(e.X, v)
	case InPlaceOp:
		if err := checkTarget(e.X); err != nil {
			return entities.Unit(), err
		}
		x, y, err := t.operands(ctx, e.X, e.Y)
		if err != nil {
			return entities.Unit(), err
		}
		v, err := binaryValue(op.Op, x, y)
		if err != nil {
			return entities.Unit(), err
		}
		return entities.Unit(), t.assign(e.X, v)
	default:
		return entities.Unit(), unsupported("binary", fmt.Sprintf("unknown operator %T", e.Op))
	}
}

// operands evaluates x then y.
func (t *VarTable) operands(ctx context.Context, x, y Expr) (entities.Value, entities.Value, error) {
	xv, err := t.Eval(ctx, x)
	if err != nil {
		return entities.Unit(), entities.Unit(), err
	}
	yv, err := t.Eval(ctx, y)
	if err != nil {
		return entities.Unit(), entities.Unit(), err
	}
	return xv, yv, nil
}

func (t *VarTable) logic(ctx context.Context, op LogicOp, x, y Expr) (bool, error) {
	switch op {
	case OpLogicAnd, OpLogicOr:
		xv, err := t.Eval(ctx, x)
		if err != nil {
			return false, err
		}
		if (op == OpLogicAnd) != xv.AsBool() {
			return xv.AsBool(), nil
		}
		yv, err := t.Eval(ctx, y)
		if err != nil {
			return false, err
		}
		return yv.AsBool(), nil
	}

	xv, yv, err := t.operands(ctx, x, y)
	if err != nil {
		return false, err
	}
	if op == OpLogicXor {
		return xv.AsBool() != yv.AsBool(), nil
	}
	return compare(op, xv, yv)
}

// checkTarget rejects assignment targets before the value is evaluated.
func checkTarget(target Expr) error {
	r, ok := target.(Ref)
	if !ok {
		return unsupported("assign", "target is not a variable")
	}
	if r.Scope == ScopeRes {
		return unsupported("assign", "resources are read-only")
	}
	return nil
}

func unsupported(op, reason string) error {
	return &errors.UnsupportedOperationError{Op: op, Reason: reason}
}
