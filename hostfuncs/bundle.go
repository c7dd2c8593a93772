package hostfuncs

import (
	"context"
	"fmt"

	"github.com/gal-dev/galrt/domain/entities"
	"github.com/gal-dev/galrt/domain/ports"
	"github.com/gal-dev/galrt/internal/abi"
)

// HostFuncBundle is a pre-configured set of related host imports.
type HostFuncBundle interface {
	// Handlers returns the imports of the bundle and their handlers.
	Handlers() map[Import]Handler
}

// staticBundle implements HostFuncBundle with a fixed set of handlers.
type staticBundle struct {
	handlers map[Import]Handler
}

func (b *staticBundle) Handlers() map[Import]Handler {
	return b.handlers
}

// LogBundle returns the log module imports: __log(len, ptr) receiving a CBOR
// LogRecord, and __log_flush().
func LogBundle() HostFuncBundle {
	return &staticBundle{
		handlers: map[Import]Handler{
			{Module: abi.ImportModuleLog, Name: abi.ImportLog, Params: 2}: NewCBORHandler(
				func(ctx context.Context, env ports.HostEnv, rec entities.LogRecord) {
					env.Log(ctx, rec)
				}),
			{Module: abi.ImportModuleLog, Name: abi.ImportLogFlush, Params: 0}: func(ctx context.Context, call Call) error {
				call.Env.Flush(ctx)
				return nil
			},
		},
	}
}

// AsyncBundle returns the async module import __wake(slot). The handler reads
// the waker token the host stored in the slot and hands it to the
// environment.
func AsyncBundle() HostFuncBundle {
	return &staticBundle{
		handlers: map[Import]Handler{
			{Module: abi.ImportModuleAsync, Name: abi.ImportWake, Params: 1}: func(ctx context.Context, call Call) error {
				slot, err := call.Param(0)
				if err != nil {
					return err
				}
				token, err := abi.ReadUint64(call.Memory, slot)
				if err != nil {
					return fmt.Errorf("failed to read waker slot: %w", err)
				}
				call.Env.Wake(ctx, token)
				return nil
			},
		},
	}
}

// compositeBundle combines multiple bundles into one.
type compositeBundle struct {
	bundles []HostFuncBundle
}

func (b *compositeBundle) Handlers() map[Import]Handler {
	result := make(map[Import]Handler)
	for _, bundle := range b.bundles {
		for imp, handler := range bundle.Handlers() {
			result[imp] = handler
		}
	}
	return result
}

// AllBundles returns a bundle containing all built-in imports.
func AllBundles() HostFuncBundle {
	return &compositeBundle{
		bundles: []HostFuncBundle{
			LogBundle(),
			AsyncBundle(),
		},
	}
}

// WithBundle registers all handlers from a bundle.
func WithBundle(bundle HostFuncBundle) RegistryOption {
	return func(b *registryBuilder) {
		for imp, handler := range bundle.Handlers() {
			if err := b.addHandler(imp, handler); err != nil {
				b.errors = append(b.errors, err)
			}
		}
	}
}

// WithCBORHandler registers a typed host function with automatic CBOR
// decoding. The import takes (len, ptr).
//
// Example usage:
//
//	WithCBORHandler("log", "__log", func(ctx context.Context, env ports.HostEnv, rec entities.LogRecord) {
//	    env.Log(ctx, rec)
//	})
func WithCBORHandler[Req any](module, name string, fn HostFunc[Req]) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addHandler(Import{Module: module, Name: name, Params: 2}, NewCBORHandler(fn)); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}
