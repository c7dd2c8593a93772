package galrt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gal-dev/galrt/application/config"
	"github.com/gal-dev/galrt/domain/entities"
	"github.com/gal-dev/galrt/domain/errors"
	"github.com/gal-dev/galrt/host/registry"
	"github.com/gal-dev/galrt/infrastructure/parser"
	"github.com/gal-dev/galrt/infrastructure/store"
	"github.com/gal-dev/galrt/script"
)

// DefaultFrontend is the frontend type reported to plugins unless
// WithFrontend says otherwise.
const DefaultFrontend = "text"

// App is one opened installation. It owns the plugin registry for its whole
// lifetime; Close releases it.
//
// Eval, EvalText and the plugin pipelines are safe for concurrent use.
// Calls into the same plugin are serialized by its Host.
type App struct {
	config   config.Config
	logger   *slog.Logger
	frontend string
	plugins  *registry.Registry
	store    *store.FileStore
	res      entities.ResChain

	mu       sync.RWMutex
	settings entities.Settings
}

// Open loads the settings, resource layers and plugins named by cfg.
// Settings without a language inherit cfg.Language.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := defaultAppConfig()
	for _, opt := range opts {
		opt(&c)
	}

	fs := store.NewFileStore(c.storeOpts...)
	settings, err := fs.LoadSettings(ctx, cfg.Ident)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if settings.Lang == "" {
		settings.Lang = cfg.Language
	}

	res, err := parser.LoadChain(c.parser, cfg.Resources...)
	if err != nil {
		return nil, err
	}

	regOpts := append([]registry.Option{registry.WithLogger(c.logger)}, c.registryOpts...)
	plugins, err := registry.Load(ctx, cfg.PluginDir, cfg.Plugins, regOpts...)
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "runtime opened",
		"ident", cfg.Ident,
		"plugins", len(plugins.Names()),
		"resources", len(res))

	return &App{
		config:   cfg,
		logger:   c.logger,
		frontend: c.frontend,
		plugins:  plugins,
		store:    fs,
		res:      res,
		settings: settings,
	}, nil
}

// Close closes every plugin.
func (a *App) Close(ctx context.Context) error {
	return a.plugins.Close(ctx)
}

// Config returns the configuration the App was opened with.
func (a *App) Config() config.Config {
	return a.config
}

// Logger returns the App's logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Plugins returns the loaded plugin registry.
func (a *App) Plugins() *registry.Registry {
	return a.plugins
}

// Resources returns the resource chain read by res.* references.
func (a *App) Resources() entities.ResChain {
	return a.res
}

// Settings returns the current settings.
func (a *App) Settings() entities.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// SaveSettings persists s and makes it current.
func (a *App) SaveSettings(ctx context.Context, s entities.Settings) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.SaveSettings(ctx, a.config.Ident, s); err != nil {
		return err
	}
	a.settings = s
	return nil
}

// Records returns the saved session records of the configured game.
func (a *App) Records(ctx context.Context) ([]entities.RawContext, error) {
	if a.config.Game == "" {
		return nil, errors.ErrNoGame
	}
	return a.store.LoadRecords(ctx, a.config.Ident, a.config.Game)
}

// SaveRecords replaces the saved session records of the configured game.
func (a *App) SaveRecords(ctx context.Context, records []entities.RawContext) error {
	if a.config.Game == "" {
		return errors.ErrNoGame
	}
	return a.store.SaveRecords(ctx, a.config.Ident, a.config.Game, records)
}

// VarTable returns a table over the App's resources and plugins. Ctx
// assignments go to locals.
func (a *App) VarTable(locals entities.VarMap) *script.VarTable {
	t := script.NewVarTable(pluginDispatcher{a.plugins}, a.res, locals)
	t.Logger = a.logger
	return t
}

// Eval runs p against locals.
func (a *App) Eval(ctx context.Context, locals entities.VarMap, p script.Program) (entities.Value, error) {
	return a.VarTable(locals).Run(ctx, p)
}

// EvalText renders text against locals.
func (a *App) EvalText(ctx context.Context, locals entities.VarMap, text script.Text) (entities.Value, error) {
	return a.VarTable(locals).RunText(ctx, text)
}

// pluginDispatcher routes a call namespace to the plugin of the same name.
type pluginDispatcher struct {
	plugins *registry.Registry
}

func (d pluginDispatcher) Lookup(namespace string) (script.Method, bool) {
	h, ok := d.plugins.Host(namespace)
	if !ok {
		return nil, false
	}
	return h, true
}
