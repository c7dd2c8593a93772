package hostfuncs

import (
	"context"
	"fmt"
	"sort"
)

// Import describes one host import: its module, its name and how many i32
// parameters it takes. Imports return nothing.
type Import struct {
	Module string
	Name   string
	Params int
}

// QualifiedName returns "module.name".
func (i Import) QualifiedName() string {
	return i.Module + "." + i.Name
}

type entry struct {
	handler Handler
	imp     Import
}

// ImportRegistry is an immutable collection of host imports.
// Once created via NewRegistry, handlers cannot be added or removed.
// This ensures thread safety and lock-free lookups during execution.
type ImportRegistry struct {
	entries    map[string]entry
	imports    []Import // sorted by qualified name
	middleware []Middleware
}

// registryBuilder accumulates configuration during registry construction.
type registryBuilder struct {
	entries    map[string]entry
	middleware []Middleware
	errors     []error
}

// NewRegistry creates an immutable ImportRegistry with the given options.
// Returns an error if any import is registered twice.
//
// Example usage:
//
//	registry, err := NewRegistry(
//	    WithMiddleware(PanicRecoveryMiddleware()),
//	    WithBundle(LogBundle()),
//	    WithBundle(AsyncBundle()),
//	)
func NewRegistry(opts ...RegistryOption) (*ImportRegistry, error) {
	b := &registryBuilder{
		entries: make(map[string]entry),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	imports := make([]Import, 0, len(b.entries))
	wrapped := make(map[string]entry, len(b.entries))
	for key, e := range b.entries {
		imports = append(imports, e.imp)
		h := e.handler
		// Apply middleware in reverse order so first middleware wraps outermost
		for i := len(b.middleware) - 1; i >= 0; i-- {
			h = b.middleware[i](h)
		}
		wrapped[key] = entry{handler: h, imp: e.imp}
	}
	sort.Slice(imports, func(i, j int) bool {
		return imports[i].QualifiedName() < imports[j].QualifiedName()
	})

	return &ImportRegistry{
		entries:    wrapped,
		imports:    imports,
		middleware: b.middleware,
	}, nil
}

// Default returns a registry with the log and async imports, wrapped with
// panic recovery.
func Default() *ImportRegistry {
	r, err := NewRegistry(
		WithMiddleware(PanicRecoveryMiddleware()),
		WithBundle(LogBundle()),
		WithBundle(AsyncBundle()),
	)
	if err != nil {
		panic(fmt.Sprintf("hostfuncs: default registry: %v", err))
	}
	return r
}

// Invoke dispatches an import call.
func (r *ImportRegistry) Invoke(ctx context.Context, module, name string, call Call) error {
	key := module + "." + name
	e, ok := r.entries[key]
	if !ok {
		return NewNotFoundError(key)
	}

	return e.handler(withImport(ctx, e.imp), call)
}

// Has returns true if the import is registered.
func (r *ImportRegistry) Has(module, name string) bool {
	_, ok := r.entries[module+"."+name]
	return ok
}

// Imports returns all registered imports sorted by qualified name.
func (r *ImportRegistry) Imports() []Import {
	result := make([]Import, len(r.imports))
	copy(result, r.imports)
	return result
}

// Modules returns the distinct import module names, sorted.
func (r *ImportRegistry) Modules() []string {
	var mods []string
	for _, imp := range r.imports {
		if len(mods) == 0 || mods[len(mods)-1] != imp.Module {
			mods = append(mods, imp.Module)
		}
	}
	return mods
}

// addHandler registers an import.
// Returns an error if the import is already registered.
func (b *registryBuilder) addHandler(imp Import, handler Handler) error {
	if imp.Module == "" || imp.Name == "" {
		return fmt.Errorf("import module and name cannot be empty")
	}
	if imp.Params < 0 {
		return fmt.Errorf("import %s: negative parameter count", imp.QualifiedName())
	}
	key := imp.QualifiedName()
	if _, exists := b.entries[key]; exists {
		return fmt.Errorf("duplicate import: %q", key)
	}
	b.entries[key] = entry{handler: handler, imp: imp}
	return nil
}

// WithHandler registers a raw Handler for an import.
func WithHandler(imp Import, handler Handler) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addHandler(imp, handler); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithMiddleware adds middleware to the registry.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
