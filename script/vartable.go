package script

import (
	"context"
	"log/slog"

	"github.com/gal-dev/galrt/domain/entities"
)

// Method is the plugin surface scripts call into. *host.Host implements it.
type Method interface {
	DispatchMethod(ctx context.Context, name string, args []entities.Value) (entities.Value, error)
}

// Dispatcher resolves a call namespace to a plugin.
type Dispatcher interface {
	Lookup(namespace string) (Method, bool)
}

// MapDispatcher is a Dispatcher backed by a map.
type MapDispatcher map[string]Method

// Lookup implements Dispatcher.
func (d MapDispatcher) Lookup(namespace string) (Method, bool) {
	m, ok := d[namespace]
	return m, ok
}

// VarTable holds the scopes a program runs against. Res and Locals are
// owned by the caller; Var variables are cleared by every Run.
//
// A VarTable is not safe for concurrent use.
type VarTable struct {
	Dispatcher Dispatcher
	Res        entities.ResChain
	Locals     entities.VarMap
	Logger     *slog.Logger

	vars entities.VarMap
}

// NewVarTable returns a VarTable. A nil locals map is replaced by an empty
// one so Ctx assignments have somewhere to go.
func NewVarTable(d Dispatcher, res entities.ResChain, locals entities.VarMap) *VarTable {
	if locals == nil {
		locals = entities.VarMap{}
	}
	return &VarTable{
		Dispatcher: d,
		Res:        res,
		Locals:     locals,
		vars:       entities.VarMap{},
	}
}

// Vars returns the Var scope of the current run.
func (t *VarTable) Vars() entities.VarMap {
	return t.vars
}

func (t *VarTable) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

func (t *VarTable) lookup(ctx context.Context, r Ref) entities.Value {
	var (
		v  entities.Value
		ok bool
	)
	switch r.Scope {
	case ScopeVar:
		v, ok = t.vars[r.Name]
	case ScopeCtx:
		v, ok = t.Locals[r.Name]
	case ScopeRes:
		v, ok = t.Res.Lookup(r.Name)
	}
	if !ok {
		t.logger().WarnContext(ctx, "cannot find variable", "scope", r.Scope.String(), "name", r.Name)
		return entities.Unit()
	}
	return v
}

func (t *VarTable) assign(target Expr, v entities.Value) error {
	r, ok := target.(Ref)
	if !ok {
		return unsupported("assign", "target is not a variable")
	}
	switch r.Scope {
	case ScopeVar:
		if t.vars == nil {
			t.vars = entities.VarMap{}
		}
		t.vars[r.Name] = v
	case ScopeCtx:
		if t.Locals == nil {
			t.Locals = entities.VarMap{}
		}
		t.Locals[r.Name] = v
	default:
		return unsupported("assign", "resources are read-only")
	}
	return nil
}
