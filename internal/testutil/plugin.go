package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/gal-dev/galrt/domain/entities"
	"github.com/gal-dev/galrt/internal/abi"
	"github.com/gal-dev/galrt/wireformat"
)

// Func implements a synchronous export. args is the CBOR parameter tuple
// the host passed; the returned value is encoded as the result.
type Func func(ctx context.Context, g *Guest, args []byte) (any, error)

// AsyncMode controls when a fake future completes.
type AsyncMode struct {
	// Delay is how long after the first poll the future becomes ready and
	// wakes the host from a background goroutine.
	Delay time.Duration

	// Inline makes the first poll wake the host from inside the poll and
	// still report pending.
	Inline bool

	// NeverWake keeps the future pending forever.
	NeverWake bool
}

type asyncFunc struct {
	fn   Func
	mode AsyncMode
}

// Plugin describes the exports of a fake module. Build one with NewPlugin
// and register it with Engine.Register.
type Plugin struct {
	caps           entities.Capability
	funcs          map[string]Func
	async          map[string]asyncFunc
	omit           map[string]bool
	instantiateErr error
}

// NewPlugin returns a plugin advertising caps through plugin_type.
func NewPlugin(caps entities.Capability) *Plugin {
	p := &Plugin{
		caps:  caps,
		funcs: make(map[string]Func),
		async: make(map[string]asyncFunc),
		omit:  make(map[string]bool),
	}
	p.funcs[abi.ExportPluginType] = func(context.Context, *Guest, []byte) (any, error) {
		return p.caps, nil
	}
	return p
}

// Func registers a synchronous export.
func (p *Plugin) Func(name string, fn Func) *Plugin {
	p.funcs[name] = fn
	return p
}

// Method registers a script method: the export decodes the ([]Value,)
// tuple and encodes the returned Value.
func (p *Plugin) Method(name string, fn func(args []entities.Value) (entities.Value, error)) *Plugin {
	return p.Func(name, methodFunc(fn))
}

// AsyncMethod registers name_async as a script method completing per mode.
func (p *Plugin) AsyncMethod(name string, mode AsyncMode, fn func(args []entities.Value) (entities.Value, error)) *Plugin {
	p.async[name+abi.AsyncSuffix] = asyncFunc{fn: methodFunc(fn), mode: mode}
	return p
}

// AsyncFunc registers name_async completing per mode.
func (p *Plugin) AsyncFunc(name string, mode AsyncMode, fn Func) *Plugin {
	p.async[name+abi.AsyncSuffix] = asyncFunc{fn: fn, mode: mode}
	return p
}

// Commands registers text_commands returning cmds.
func (p *Plugin) Commands(cmds ...string) *Plugin {
	return p.Func("text_commands", func(context.Context, *Guest, []byte) (any, error) {
		return cmds, nil
	})
}

// Without removes exports, including the required ABI ones.
func (p *Plugin) Without(exports ...string) *Plugin {
	for _, e := range exports {
		p.omit[e] = true
	}
	return p
}

// FailInstantiate makes instantiation fail with err.
func (p *Plugin) FailInstantiate(err error) *Plugin {
	p.instantiateErr = err
	return p
}

func methodFunc(fn func(args []entities.Value) (entities.Value, error)) Func {
	return func(_ context.Context, _ *Guest, raw []byte) (any, error) {
		var params [][]entities.Value
		if err := wireformat.Unmarshal(raw, &params); err != nil {
			return nil, err
		}
		if len(params) != 1 {
			return nil, fmt.Errorf("expected 1 parameter, got %d", len(params))
		}
		return fn(params[0])
	}
}
