package script

import (
	"context"

	"github.com/gal-dev/galrt/domain/entities"
)

// IntrinsicIf is the only intrinsic: if(cond, then[, else]).
const IntrinsicIf = "if"

func (t *VarTable) call(ctx context.Context, c Call) (entities.Value, error) {
	if c.Namespace == "" {
		return t.intrinsic(ctx, c)
	}

	args := make([]entities.Value, len(c.Args))
	for i, a := range c.Args {
		v, err := t.Eval(ctx, a)
		if err != nil {
			return entities.Unit(), err
		}
		args[i] = v
	}

	logger := t.logger().With("namespace", c.Namespace, "method", c.Name)
	if t.Dispatcher == nil {
		logger.WarnContext(ctx, "cannot find namespace")
		return entities.Unit(), nil
	}
	m, ok := t.Dispatcher.Lookup(c.Namespace)
	if !ok {
		logger.WarnContext(ctx, "cannot find namespace")
		return entities.Unit(), nil
	}
	res, err := m.DispatchMethod(ctx, c.Name, args)
	if err != nil {
		logger.ErrorContext(ctx, "method call failed", "error", err)
		return entities.Unit(), nil
	}
	return res, nil
}

// intrinsic evaluates the condition and then only the chosen branch. Missing
// arguments are Unit.
func (t *VarTable) intrinsic(ctx context.Context, c Call) (entities.Value, error) {
	if c.Name != IntrinsicIf {
		return entities.Unit(), unsupported("call "+c.Name, "unknown intrinsic")
	}
	cond, err := t.Eval(ctx, arg(c.Args, 0))
	if err != nil {
		return entities.Unit(), err
	}
	if cond.AsBool() {
		return t.Eval(ctx, arg(c.Args, 1))
	}
	return t.Eval(ctx, arg(c.Args, 2))
}

// arg returns args[i], or nil (evaluating to Unit) when absent.
func arg(args []Expr, i int) Expr {
	if i < len(args) {
		return args[i]
	}
	return nil
}
