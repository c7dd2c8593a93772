package ports

import (
	"context"

	"github.com/gal-dev/galrt/domain/entities"
)

// Engine instantiates compiled plugin modules. One Engine backs every Host
// of a registry load.
type Engine interface {
	// Instantiate compiles and instantiates wasm under name, linking the
	// host imports to env.
	Instantiate(ctx context.Context, name string, wasm []byte, env HostEnv) (Guest, error)

	// Close releases the engine and every guest it instantiated.
	Close(ctx context.Context) error
}

// Guest is one instantiated plugin module.
type Guest interface {
	// Name is the plugin name the guest was instantiated under.
	Name() string

	// ExportedFunction returns the named export, or nil if absent.
	ExportedFunction(name string) Function

	// ExportedFunctionNames lists every exported function.
	ExportedFunctionNames() []string

	// Memory returns the guest's linear memory, or nil if it exports none.
	Memory() Memory

	// Close releases the instance.
	Close(ctx context.Context) error
}

// Function is an exported guest function. Params and results are the raw
// 64-bit encodings of the wasm value types.
type Function interface {
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// Memory is a guest linear memory. Accessors return ok=false when the range
// is out of bounds; they never panic.
type Memory interface {
	Size() uint32
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
	ReadUint64Le(offset uint32) (uint64, bool)
	WriteUint64Le(offset uint32, v uint64) bool
}

// HostEnv receives the host imports a guest calls. The engine routes
// log.__log, log.__log_flush and async.__wake to the instance's HostEnv.
// Implementations run on the guest's call stack and must not block on the
// Host that is currently calling into the guest.
type HostEnv interface {
	// Log handles a decoded guest log record.
	Log(ctx context.Context, rec entities.LogRecord)

	// Flush handles log.__log_flush.
	Flush(ctx context.Context)

	// Wake handles async.__wake with the waker token read back from the
	// guest's waker slot.
	Wake(ctx context.Context, token uint64)
}
