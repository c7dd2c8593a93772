package galrt

import (
	"log/slog"

	"github.com/gal-dev/galrt/domain/ports"
	"github.com/gal-dev/galrt/host/registry"
	"github.com/gal-dev/galrt/infrastructure/parser"
	"github.com/gal-dev/galrt/infrastructure/store"
)

type appConfig struct {
	logger       *slog.Logger
	parser       ports.ResourceParser
	registryOpts []registry.Option
	storeOpts    []store.FileStoreOption
	frontend     string
}

func defaultAppConfig() appConfig {
	return appConfig{
		logger:   slog.Default(),
		parser:   parser.NewYAMLResourceParser(),
		frontend: DefaultFrontend,
	}
}

// Option configures an App.
type Option func(*appConfig)

// WithLogger sets the logger shared by the App, its registry and every
// plugin. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *appConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithResourceParser replaces the YAML resource layer parser.
func WithResourceParser(p ports.ResourceParser) Option {
	return func(c *appConfig) {
		if p != nil {
			c.parser = p
		}
	}
}

// WithRegistryOptions passes options to registry.Load. They are applied
// after the App's logger, so a registry.WithLogger here wins.
func WithRegistryOptions(opts ...registry.Option) Option {
	return func(c *appConfig) {
		c.registryOpts = append(c.registryOpts, opts...)
	}
}

// WithStoreOptions configures the settings and records store.
func WithStoreOptions(opts ...store.FileStoreOption) Option {
	return func(c *appConfig) {
		c.storeOpts = append(c.storeOpts, opts...)
	}
}

// WithFrontend sets the frontend type reported to Action and Text plugins.
// Default is DefaultFrontend.
func WithFrontend(name string) Option {
	return func(c *appConfig) {
		c.frontend = name
	}
}
