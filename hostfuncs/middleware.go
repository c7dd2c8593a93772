package hostfuncs

import (
	"context"
	"log/slog"
	"time"
)

// Middleware is a function that wraps a Handler to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
//
// Example usage:
//
//	countingMiddleware := func(next Handler) Handler {
//	    return func(ctx context.Context, call Call) error {
//	        calls.Add(1)
//	        return next(ctx, call)
//	    }
//	}
type Middleware func(next Handler) Handler

// RegistryOption is a functional option for configuring an ImportRegistry.
type RegistryOption func(*registryBuilder)

// PanicRecoveryMiddleware returns a middleware that converts panics into
// ImportErrors instead of unwinding through the guest.
func PanicRecoveryMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call Call) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = NewPanicError(r)
				}
			}()
			return next(ctx, call)
		}
	}
}

// LoggingMiddleware returns a middleware that logs each import call with
// its raw parameters and duration at debug level, and failures at warn level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, call Call) error {
			name := "unknown"
			if imp, ok := ImportFromContext(ctx); ok {
				name = imp.QualifiedName()
			}
			start := time.Now()
			err := next(ctx, call)
			if err != nil {
				logger.WarnContext(ctx, "host import failed", "import", name, "error", err)
				return err
			}
			logger.DebugContext(ctx, "host import", "import", name, "params", call.Params, "elapsed", time.Since(start))
			return nil
		}
	}
}
