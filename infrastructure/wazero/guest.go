package wazero

import (
	"context"
	stdErrors "errors"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/gal-dev/galrt/domain/ports"
)

// guest adapts an instantiated wazero module to ports.Guest.
type guest struct {
	name     string
	mod      api.Module
	compiled wazero.CompiledModule
	engine   *Engine
}

func (g *guest) Name() string {
	return g.name
}

func (g *guest) ExportedFunction(name string) ports.Function {
	fn := g.mod.ExportedFunction(name)
	if fn == nil {
		return nil
	}
	return fn
}

func (g *guest) ExportedFunctionNames() []string {
	defs := g.mod.ExportedFunctionDefinitions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (g *guest) Memory() ports.Memory {
	mem := g.mod.Memory()
	if mem == nil {
		return nil
	}
	return mem
}

func (g *guest) Close(ctx context.Context) error {
	g.engine.removeEnv(g.name)
	return stdErrors.Join(g.mod.Close(ctx), g.compiled.Close(ctx))
}
