package hostfuncs

import (
	"context"
	"fmt"

	"github.com/gal-dev/galrt/domain/ports"
	"github.com/gal-dev/galrt/internal/abi"
	"github.com/gal-dev/galrt/wireformat"
)

// DefaultMaxRequestSize limits the size of payloads read from guest memory (1MB).
// This prevents a guest from triggering OOM by claiming a huge buffer.
const DefaultMaxRequestSize = 1 * 1024 * 1024

// Call is one invocation of a host import by a guest.
type Call struct {
	// Env receives the decoded effect of the import.
	Env ports.HostEnv

	// Memory is the calling guest's linear memory.
	Memory ports.Memory

	// Params are the raw i32 parameters, in declaration order.
	Params []uint64
}

// Param returns the i'th parameter as an i32, or an error if the guest
// passed fewer parameters.
func (c Call) Param(i int) (uint32, error) {
	if i >= len(c.Params) {
		return 0, NewValidationError(fmt.Sprintf("missing parameter %d", i))
	}
	return uint32(c.Params[i]), nil //nolint:gosec // G115: i32 params are carried in the low bits
}

// Handler implements one host import.
type Handler func(ctx context.Context, call Call) error

// HostFunc is a typed host function receiving a decoded request.
type HostFunc[Req any] func(ctx context.Context, env ports.HostEnv, req Req)

// NewCBORHandler wraps a typed HostFunc into a Handler for imports with the
// (len i32, ptr i32) signature. The payload at ptr is decoded from CBOR.
//
// Usage:
//
//	logHandler := hostfuncs.NewCBORHandler(func(ctx context.Context, env ports.HostEnv, rec entities.LogRecord) {
//	    env.Log(ctx, rec)
//	})
func NewCBORHandler[Req any](fn HostFunc[Req]) Handler {
	return func(ctx context.Context, call Call) error {
		length, err := call.Param(0)
		if err != nil {
			return err
		}
		ptr, err := call.Param(1)
		if err != nil {
			return err
		}
		if length > DefaultMaxRequestSize {
			return NewValidationError(fmt.Sprintf("request size %d exceeds maximum %d bytes", length, DefaultMaxRequestSize))
		}

		payload, err := abi.Read(call.Memory, ptr, length)
		if err != nil {
			return fmt.Errorf("failed to read request: %w", err)
		}

		var req Req
		if err := wireformat.Unmarshal(payload, &req); err != nil {
			return NewValidationError(fmt.Sprintf("failed to unmarshal request: %v", err))
		}

		fn(ctx, call.Env, req)
		return nil
	}
}
