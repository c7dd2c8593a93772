package wazero

import (
	"log/slog"

	"github.com/gal-dev/galrt/hostfuncs"
)

// DefaultMemoryLimitPages caps guest memory at 64MiB.
const DefaultMemoryLimitPages = 1024

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	logger           *slog.Logger
	imports          *hostfuncs.ImportRegistry
	memoryLimitPages uint32
	cacheDir         string
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		logger:           slog.Default(),
		memoryLimitPages: DefaultMemoryLimitPages,
	}
}

// WithLogger sets the logger for engine diagnostics and host import
// failures.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithImports replaces the host imports offered to guests. The default is
// hostfuncs.Default().
func WithImports(imports *hostfuncs.ImportRegistry) EngineOption {
	return func(c *engineConfig) {
		c.imports = imports
	}
}

// WithMemoryLimitPages caps each guest memory at pages of 64KiB.
func WithMemoryLimitPages(pages uint32) EngineOption {
	return func(c *engineConfig) {
		if pages > 0 {
			c.memoryLimitPages = pages
		}
	}
}

// WithCompilationCacheDir persists compiled modules under dir.
func WithCompilationCacheDir(dir string) EngineOption {
	return func(c *engineConfig) {
		c.cacheDir = dir
	}
}
