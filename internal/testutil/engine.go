package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/gal-dev/galrt/domain/ports"
	"github.com/gal-dev/galrt/hostfuncs"
)

// Engine is an in-process ports.Engine serving fake plugins registered by
// name. The wasm bytes passed to Instantiate are ignored.
type Engine struct {
	mu      sync.Mutex
	plugins map[string]*Plugin
	guests  map[string]*Guest
	order   []string
	imports *hostfuncs.ImportRegistry
	closed  bool
}

// NewEngine returns an engine routing guest imports through the default
// import registry.
func NewEngine() *Engine {
	return &Engine{
		plugins: make(map[string]*Plugin),
		guests:  make(map[string]*Guest),
		imports: hostfuncs.Default(),
	}
}

// Register makes name instantiable.
func (e *Engine) Register(name string, p *Plugin) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.plugins[name] = p
	return e
}

// Instantiate implements ports.Engine.
func (e *Engine) Instantiate(_ context.Context, name string, _ []byte, env ports.HostEnv) (ports.Guest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, fmt.Errorf("engine closed")
	}
	p, ok := e.plugins[name]
	if !ok {
		return nil, fmt.Errorf("invalid module %q", name)
	}
	if p.instantiateErr != nil {
		return nil, p.instantiateErr
	}
	g := newGuest(name, p, env, e.imports)
	e.guests[name] = g
	e.order = append(e.order, name)
	return g, nil
}

// Guest returns the most recent instance of name, or nil.
func (e *Engine) Guest(name string) *Guest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.guests[name]
}

// Instantiated returns the names passed to successful Instantiate calls,
// in order.
func (e *Engine) Instantiated() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

// Close implements ports.Engine.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	guests := make([]*Guest, 0, len(e.guests))
	for _, g := range e.guests {
		guests = append(guests, g)
	}
	e.closed = true
	e.mu.Unlock()

	for _, g := range guests {
		_ = g.Close(ctx)
	}
	return nil
}

// Closed reports whether Close was called.
func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}
