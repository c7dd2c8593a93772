// Package registry loads a directory of plugins and routes calls to them by
// capability.
package registry

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gal-dev/galrt/domain/entities"
	"github.com/gal-dev/galrt/domain/errors"
	"github.com/gal-dev/galrt/domain/ports"
	"github.com/gal-dev/galrt/host"
)

// PluginExt is the file extension of plugin modules.
const PluginExt = ".wasm"

// Registry holds the Hosts of one load. It is read-only after Load returns
// and safe for concurrent readers.
type Registry struct {
	engine   ports.Engine
	hosts    map[string]*host.Host
	caps     map[string]entities.Capability
	names    []string
	actions  []string
	commands map[string]string
	games    []string
}

type plugin struct {
	name string
	path string
}

// Load instantiates plugins from dir. With no names every *.wasm file in dir
// is loaded in name order; otherwise <dir>/<name>.wasm is loaded for each
// name in order, skipping missing files and repeated names. Any failure closes everything
// loaded so far.
func Load(ctx context.Context, dir string, names []string, opts ...Option) (*Registry, error) {
	cfg := defaultLoadConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger

	if err := cfg.progress(StatusCreateEngine{}); err != nil {
		return nil, fmt.Errorf("load aborted: %w", err)
	}
	plugins, err := discover(dir, names, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin directory %s: %w", dir, err)
	}
	engine, err := cfg.engineFactory(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	r := &Registry{
		engine:   engine,
		hosts:    make(map[string]*host.Host, len(plugins)),
		caps:     make(map[string]entities.Capability, len(plugins)),
		commands: make(map[string]string),
	}
	hostOpts := append([]host.Option{host.WithLogger(logger)}, cfg.hostOpts...)

	for i, p := range plugins {
		if err := ctx.Err(); err != nil {
			return nil, r.abort(ctx, fmt.Errorf("load aborted: %w", err))
		}
		if err := cfg.progress(StatusLoadPlugin{Name: p.name, Index: i, Total: len(plugins)}); err != nil {
			return nil, r.abort(ctx, fmt.Errorf("load aborted: %w", err))
		}
		wasm, err := os.ReadFile(p.path)
		if err != nil {
			return nil, r.abort(ctx, &errors.LoadError{Plugin: p.name, Path: p.path, Err: err})
		}
		if err := r.add(ctx, engine, p, wasm, hostOpts, logger); err != nil {
			return nil, r.abort(ctx, &errors.LoadError{Plugin: p.name, Path: p.path, Err: err})
		}
	}

	logger.InfoContext(ctx, "plugins loaded",
		"count", len(r.names),
		"actions", len(r.actions),
		"commands", len(r.commands),
		"games", len(r.games))
	return r, nil
}

func discover(dir string, names []string, logger *slog.Logger) ([]plugin, error) {
	if len(names) == 0 {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		var plugins []plugin
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != PluginExt {
				continue
			}
			plugins = append(plugins, plugin{
				name: strings.TrimSuffix(e.Name(), PluginExt),
				path: filepath.Join(dir, e.Name()),
			})
		}
		sort.Slice(plugins, func(i, j int) bool { return plugins[i].name < plugins[j].name })
		return plugins, nil
	}

	plugins := make([]plugin, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			logger.Warn("plugin listed twice", "plugin", name)
			continue
		}
		seen[name] = true
		path := filepath.Join(dir, name+PluginExt)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			logger.Warn("plugin not found", "plugin", name, "path", path)
			continue
		}
		plugins = append(plugins, plugin{name: name, path: path})
	}
	return plugins, nil
}

func (r *Registry) add(ctx context.Context, engine ports.Engine, p plugin, wasm []byte, hostOpts []host.Option, logger *slog.Logger) error {
	h, err := host.Load(ctx, engine, p.name, wasm, hostOpts...)
	if err != nil {
		return err
	}
	r.hosts[p.name] = h
	r.names = append(r.names, p.name)

	caps, err := h.PluginType(ctx)
	if err != nil {
		return fmt.Errorf("failed to query plugin type: %w", err)
	}
	r.caps[p.name] = caps
	logger.DebugContext(ctx, "plugin loaded", "plugin", p.name, "capabilities", caps.String())

	if caps.Has(entities.CapabilityAction) {
		r.actions = append(r.actions, p.name)
	}
	if caps.Has(entities.CapabilityText) {
		cmds, err := h.TextCommands(ctx)
		if err != nil {
			return fmt.Errorf("failed to query text commands: %w", err)
		}
		for _, cmd := range cmds {
			if prev, ok := r.commands[cmd]; ok && prev != p.name {
				logger.WarnContext(ctx, "text command overridden",
					"command", cmd, "previous", prev, "plugin", p.name)
			}
			r.commands[cmd] = p.name
		}
	}
	if caps.Has(entities.CapabilityGame) {
		r.games = append(r.games, p.name)
	}
	return nil
}

func (r *Registry) abort(ctx context.Context, cause error) error {
	if err := r.Close(context.WithoutCancel(ctx)); err != nil {
		return stdErrors.Join(cause, err)
	}
	return cause
}

// Host returns the Host loaded under name.
func (r *Registry) Host(name string) (*host.Host, bool) {
	h, ok := r.hosts[name]
	return h, ok
}

// Capability returns the capabilities name advertised at load.
func (r *Registry) Capability(name string) (entities.Capability, bool) {
	c, ok := r.caps[name]
	return c, ok
}

// Names returns the loaded plugin names in load order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// ActionPlugins returns the Action plugins in load order.
func (r *Registry) ActionPlugins() []string {
	return append([]string(nil), r.actions...)
}

// CommandOwner returns the plugin handling the text command cmd.
func (r *Registry) CommandOwner(cmd string) (string, bool) {
	owner, ok := r.commands[cmd]
	return owner, ok
}

// Commands returns every registered text command in sorted order.
func (r *Registry) Commands() []string {
	cmds := make([]string, 0, len(r.commands))
	for cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Strings(cmds)
	return cmds
}

// GamePlugins returns the Game plugins in load order.
func (r *Registry) GamePlugins() []string {
	return append([]string(nil), r.games...)
}

// Close closes every Host and the engine.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.names) - 1; i >= 0; i-- {
		if err := r.hosts[r.names[i]].Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close plugin %s: %w", r.names[i], err))
		}
	}
	if err := r.engine.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close engine: %w", err))
	}
	return stdErrors.Join(errs...)
}
