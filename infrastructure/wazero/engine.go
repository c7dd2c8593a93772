package wazero

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/gal-dev/galrt/domain/ports"
	"github.com/gal-dev/galrt/hostfuncs"
)

// Engine implements ports.Engine on a wazero runtime.
type Engine struct {
	runtime wazero.Runtime
	cache   wazero.CompilationCache
	imports *hostfuncs.ImportRegistry
	logger  *slog.Logger

	mu   sync.RWMutex
	envs map[string]ports.HostEnv
}

var _ ports.Engine = (*Engine)(nil)

// NewEngine creates the runtime and instantiates WASI and the host import
// modules.
func NewEngine(ctx context.Context, opts ...EngineOption) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.imports == nil {
		cfg.imports = hostfuncs.Default()
	}

	rtCfg := wazero.NewRuntimeConfig().WithMemoryLimitPages(cfg.memoryLimitPages)
	var cache wazero.CompilationCache
	if cfg.cacheDir != "" {
		c, err := wazero.NewCompilationCacheWithDir(cfg.cacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open compilation cache: %w", err)
		}
		cache = c
		rtCfg = rtCfg.WithCompilationCache(cache)
	}

	e := &Engine{
		runtime: wazero.NewRuntimeWithConfig(ctx, rtCfg),
		cache:   cache,
		imports: cfg.imports,
		logger:  cfg.logger,
		envs:    make(map[string]ports.HostEnv),
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
		return nil, stdErrors.Join(fmt.Errorf("failed to instantiate WASI: %w", err), e.Close(ctx))
	}
	if err := e.registerImports(ctx); err != nil {
		return nil, stdErrors.Join(err, e.Close(ctx))
	}

	e.logger.DebugContext(ctx, "wasm engine created",
		"memory_limit_pages", cfg.memoryLimitPages,
		"import_modules", cfg.imports.Modules())
	return e, nil
}

// registerImports builds one host module per import module. Every import
// takes i32 parameters and returns nothing.
func (e *Engine) registerImports(ctx context.Context) error {
	builders := make(map[string]wazero.HostModuleBuilder)
	for _, imp := range e.imports.Imports() {
		b, ok := builders[imp.Module]
		if !ok {
			b = e.runtime.NewHostModuleBuilder(imp.Module)
			builders[imp.Module] = b
		}
		params := make([]api.ValueType, imp.Params)
		for i := range params {
			params[i] = api.ValueTypeI32
		}
		b.NewFunctionBuilder().
			WithGoModuleFunction(e.importFunc(imp), params, nil).
			WithParameterNames(paramNames(imp.Params)...).
			Export(imp.Name)
	}
	for _, module := range e.imports.Modules() {
		if _, err := builders[module].Instantiate(ctx); err != nil {
			return fmt.Errorf("failed to instantiate host module %s: %w", module, err)
		}
	}
	return nil
}

func (e *Engine) importFunc(imp hostfuncs.Import) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		plugin := mod.Name()
		env, ok := e.env(plugin)
		if !ok {
			e.logger.ErrorContext(ctx, "host import called by unknown module",
				"plugin", plugin, "import", imp.QualifiedName())
			return
		}
		params := make([]uint64, imp.Params)
		copy(params, stack)
		call := hostfuncs.Call{Env: env, Memory: mod.Memory(), Params: params}
		if err := e.imports.Invoke(ctx, imp.Module, imp.Name, call); err != nil {
			e.logger.ErrorContext(ctx, "host import failed",
				"plugin", plugin, "import", imp.QualifiedName(), "error", err)
		}
	}
}

func paramNames(n int) []string {
	switch n {
	case 1:
		return []string{"slot"}
	case 2:
		return []string{"len", "ptr"}
	}
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("p%d", i)
	}
	return names
}

// Instantiate implements ports.Engine. name must be unique within the
// engine.
func (e *Engine) Instantiate(ctx context.Context, name string, wasm []byte, env ports.HostEnv) (ports.Guest, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}

	e.mu.Lock()
	if _, exists := e.envs[name]; exists {
		e.mu.Unlock()
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("module %q already instantiated", name)
	}
	// Registered before instantiation: start functions may call imports.
	e.envs[name] = env
	e.mu.Unlock()

	modCfg := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions("_initialize")
	mod, err := e.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		e.removeEnv(name)
		_ = compiled.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}
	return &guest{name: name, mod: mod, compiled: compiled, engine: e}, nil
}

// Close implements ports.Engine.
func (e *Engine) Close(ctx context.Context) error {
	err := e.runtime.Close(ctx)
	if e.cache != nil {
		err = stdErrors.Join(err, e.cache.Close(ctx))
	}
	e.mu.Lock()
	clear(e.envs)
	e.mu.Unlock()
	return err
}

func (e *Engine) env(name string) (ports.HostEnv, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	env, ok := e.envs[name]
	return env, ok
}

func (e *Engine) removeEnv(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.envs, name)
}
