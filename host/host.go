package host

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gal-dev/galrt/domain/errors"
	"github.com/gal-dev/galrt/domain/ports"
	"github.com/gal-dev/galrt/internal/abi"
	"github.com/gal-dev/galrt/wireformat"
)

// Host is one instantiated plugin module plus its resolved ABI entry points.
// A Host is either fully initialised or not created at all.
type Host struct {
	mu     sync.Mutex
	closed bool

	name   string
	guest  ports.Guest
	mem    ports.Memory
	logger *slog.Logger
	wakers *wakerTable

	alloc      ports.Function
	free       ports.Function
	freeResult ports.Function
	// poll and asyncFree are nil when the guest has no async exports.
	poll      ports.Function
	asyncFree ports.Function
}

// Load instantiates wasm on engine under name and resolves the required
// exports. On failure nothing stays instantiated.
func Load(ctx context.Context, engine ports.Engine, name string, wasm []byte, opts ...Option) (*Host, error) {
	cfg := defaultHostConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger.With("plugin", name)

	e := &env{logger: logger, flush: cfg.flush, wakers: newWakerTable()}
	guest, err := engine.Instantiate(ctx, name, wasm, e)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate plugin %s: %w", name, err)
	}

	h, err := newHost(name, guest, e, logger)
	if err != nil {
		if cerr := guest.Close(ctx); cerr != nil {
			logger.WarnContext(ctx, "failed to close guest", "error", cerr)
		}
		return nil, err
	}
	logger.DebugContext(ctx, "plugin instantiated", "async", h.poll != nil)
	return h, nil
}

func newHost(name string, guest ports.Guest, e *env, logger *slog.Logger) (*Host, error) {
	h := &Host{
		name:   name,
		guest:  guest,
		mem:    guest.Memory(),
		logger: logger,
		wakers: e.wakers,
	}
	if h.mem == nil {
		return nil, &errors.MissingExportError{Plugin: name, Export: "memory"}
	}

	required := []struct {
		name string
		fn   *ports.Function
	}{
		{abi.ExportAlloc, &h.alloc},
		{abi.ExportFree, &h.free},
		{abi.ExportFreeResult, &h.freeResult},
	}
	if hasAsyncExport(guest.ExportedFunctionNames()) {
		required = append(required,
			struct {
				name string
				fn   *ports.Function
			}{abi.ExportAsyncPoll, &h.poll},
			struct {
				name string
				fn   *ports.Function
			}{abi.ExportAsyncFree, &h.asyncFree},
		)
	}
	for _, r := range required {
		fn := guest.ExportedFunction(r.name)
		if fn == nil {
			return nil, &errors.MissingExportError{Plugin: name, Export: r.name}
		}
		*r.fn = fn
	}
	return h, nil
}

func hasAsyncExport(names []string) bool {
	for _, n := range names {
		if strings.HasSuffix(n, abi.AsyncSuffix) {
			return true
		}
	}
	return false
}

// Name returns the plugin name.
func (h *Host) Name() string {
	return h.name
}

// Close releases the guest. Calls after Close fail with ErrHostClosed.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.guest.Close(ctx)
}

// Call invokes the export name with params encoded as a tuple and decodes
// the result into out. A nil out discards the result. When name is not
// exported, name_async is driven to completion instead.
func (h *Host) Call(ctx context.Context, name string, params []any, out any) (err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.ErrHostClosed
	}

	fn := h.guest.ExportedFunction(name)
	async := false
	if fn == nil {
		fn = h.guest.ExportedFunction(name + abi.AsyncSuffix)
		async = true
	}
	if fn == nil {
		return &errors.FunctionNotFoundError{Plugin: h.name, Function: name}
	}

	data, err := wireformat.EncodeParams(params...)
	if err != nil {
		return err
	}
	argLen := uint32(len(data)) //nolint:gosec // G115: argument buffers are below 4GiB
	argPtr, err := h.allocBuffer(ctx, abi.ArgAlign, argLen)
	if err != nil {
		return err
	}
	defer func() {
		err = stdErrors.Join(err, h.freeBuffer(context.WithoutCancel(ctx), argPtr, argLen, abi.ArgAlign))
	}()
	if err := abi.Write(h.mem, argPtr, data); err != nil {
		return err
	}

	if async {
		return h.callAsync(ctx, name, fn, argLen, argPtr, out)
	}

	res, err := fn.Call(ctx, uint64(argLen), uint64(argPtr))
	if err != nil {
		return &errors.GuestCallError{Plugin: h.name, Function: name, Err: err}
	}
	packed, err := single(res, name)
	if err != nil {
		return err
	}
	return h.takeResult(ctx, packed, out)
}

// takeResult reads the result buffer described by packed, decodes it into
// out and hands the buffer back with __export_free.
func (h *Host) takeResult(ctx context.Context, packed uint64, out any) error {
	length, ptr := abi.UnpackLenPtr(packed)
	data, readErr := abi.Read(h.mem, ptr, length)
	var decodeErr error
	if readErr == nil && out != nil {
		decodeErr = wireformat.Unmarshal(data, out)
	}
	freeErr := h.invoke(ctx, abi.ExportFreeResult, h.freeResult, uint64(length), uint64(ptr))
	return stdErrors.Join(readErr, decodeErr, freeErr)
}

func (h *Host) allocBuffer(ctx context.Context, align, size uint32) (uint32, error) {
	res, err := h.alloc.Call(ctx, uint64(align), uint64(size))
	if err != nil {
		return 0, &errors.GuestCallError{Plugin: h.name, Function: abi.ExportAlloc, Err: err}
	}
	ptr, err := single(res, abi.ExportAlloc)
	if err != nil {
		return 0, err
	}
	return uint32(ptr), nil //nolint:gosec // G115: wasm32 pointers
}

func (h *Host) freeBuffer(ctx context.Context, ptr, size, align uint32) error {
	return h.invoke(ctx, abi.ExportFree, h.free, uint64(ptr), uint64(size), uint64(align))
}

func (h *Host) invoke(ctx context.Context, name string, fn ports.Function, params ...uint64) error {
	if _, err := fn.Call(ctx, params...); err != nil {
		return &errors.GuestCallError{Plugin: h.name, Function: name, Err: err}
	}
	return nil
}

func single(res []uint64, name string) (uint64, error) {
	if len(res) != 1 {
		return 0, fmt.Errorf("export %s returned %d results, want 1", name, len(res))
	}
	return res[0], nil
}
