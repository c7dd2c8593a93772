package host

import "log/slog"

// Option configures a Host.
type Option func(*hostConfig)

type hostConfig struct {
	logger *slog.Logger
	flush  func()
}

func defaultHostConfig() hostConfig {
	return hostConfig{
		logger: slog.Default(),
		flush:  func() {},
	}
}

// WithLogger sets the logger receiving host diagnostics and guest log
// records. The plugin name is added to every record.
func WithLogger(logger *slog.Logger) Option {
	return func(c *hostConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFlush sets the function run when the guest calls log.__log_flush.
func WithFlush(fn func()) Option {
	return func(c *hostConfig) {
		if fn != nil {
			c.flush = fn
		}
	}
}
