package registry

import (
	"context"
	"log/slog"

	"github.com/gal-dev/galrt/domain/ports"
	"github.com/gal-dev/galrt/host"
	wazeroengine "github.com/gal-dev/galrt/infrastructure/wazero"
)

// EngineFactory creates the engine backing every Host of one load.
type EngineFactory func(ctx context.Context, logger *slog.Logger) (ports.Engine, error)

// LoadStatus is a progress event of Load. It is one of StatusCreateEngine
// or StatusLoadPlugin.
type LoadStatus interface {
	isLoadStatus()
}

// StatusCreateEngine is emitted before the engine is created.
type StatusCreateEngine struct{}

// StatusLoadPlugin is emitted immediately before a plugin is instantiated.
// Index is zero-based.
type StatusLoadPlugin struct {
	Name  string
	Index int
	Total int
}

func (StatusCreateEngine) isLoadStatus() {}
func (StatusLoadPlugin) isLoadStatus()   {}

// Option configures Load.
type Option func(*loadConfig)

type loadConfig struct {
	logger        *slog.Logger
	progress      func(LoadStatus) error
	engineFactory EngineFactory
	hostOpts      []host.Option
}

func defaultLoadConfig() loadConfig {
	return loadConfig{
		logger:        slog.Default(),
		progress:      func(LoadStatus) error { return nil },
		engineFactory: defaultEngineFactory,
	}
}

func defaultEngineFactory(ctx context.Context, logger *slog.Logger) (ports.Engine, error) {
	return wazeroengine.NewEngine(ctx, wazeroengine.WithLogger(logger))
}

// WithProgress sets the progress callback. A non-nil return aborts the load.
func WithProgress(fn func(LoadStatus) error) Option {
	return func(c *loadConfig) {
		if fn != nil {
			c.progress = fn
		}
	}
}

// WithEngineFactory replaces the default wazero engine.
func WithEngineFactory(f EngineFactory) Option {
	return func(c *loadConfig) {
		if f != nil {
			c.engineFactory = f
		}
	}
}

// WithLogger sets the logger for load diagnostics. Hosts inherit it unless
// WithHostOptions overrides their logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *loadConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHostOptions passes options to every host.Load.
func WithHostOptions(opts ...host.Option) Option {
	return func(c *loadConfig) {
		c.hostOpts = append(c.hostOpts, opts...)
	}
}
