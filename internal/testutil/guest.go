package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gal-dev/galrt/domain/entities"
	"github.com/gal-dev/galrt/domain/ports"
	"github.com/gal-dev/galrt/hostfuncs"
	"github.com/gal-dev/galrt/internal/abi"
	"github.com/gal-dev/galrt/wireformat"
)

// DefaultMemorySize is the linear memory size of a fake guest.
const DefaultMemorySize = 1 << 16

// Guest is an in-process stand-in for an instantiated module. It implements
// the guest side of the ABI: a tracking allocator, result buffers, a future
// table and calls back into the host imports.
type Guest struct {
	name    string
	plugin  *Plugin
	env     ports.HostEnv
	imports *hostfuncs.ImportRegistry
	mem     *Memory

	mu         sync.Mutex
	next       uint32
	live       map[uint32]uint32
	futures    map[uint64]*future
	nextFuture uint64
	calls      map[string]int
	polls      int
	pending    int
	closed     bool
}

type future struct {
	fn       Func
	args     []byte
	mode     AsyncMode
	started  bool
	ready    bool
	wakeSlot uint32
}

func newGuest(name string, p *Plugin, env ports.HostEnv, imports *hostfuncs.ImportRegistry) *Guest {
	return &Guest{
		name:       name,
		plugin:     p,
		env:        env,
		imports:    imports,
		mem:        NewMemory(DefaultMemorySize),
		next:       8,
		live:       make(map[uint32]uint32),
		futures:    make(map[uint64]*future),
		nextFuture: 1,
		calls:      make(map[string]int),
	}
}

// Name implements ports.Guest.
func (g *Guest) Name() string { return g.name }

// Memory implements ports.Guest.
func (g *Guest) Memory() ports.Memory { return g.mem }

// Close implements ports.Guest.
func (g *Guest) Close(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

// Closed reports whether Close was called.
func (g *Guest) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// ExportedFunctionNames implements ports.Guest.
func (g *Guest) ExportedFunctionNames() []string {
	names := []string{abi.ExportAlloc, abi.ExportFree, abi.ExportFreeResult}
	if len(g.plugin.async) > 0 {
		names = append(names, abi.ExportAsyncPoll, abi.ExportAsyncFree)
	}
	for n := range g.plugin.funcs {
		names = append(names, n)
	}
	for n := range g.plugin.async {
		names = append(names, n)
	}
	out := names[:0]
	for _, n := range names {
		if !g.plugin.omit[n] {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// ExportedFunction implements ports.Guest.
func (g *Guest) ExportedFunction(name string) ports.Function {
	if g.plugin.omit[name] {
		return nil
	}
	switch name {
	case abi.ExportAlloc:
		return g.export(name, 2, func(_ context.Context, p []uint64) ([]uint64, error) {
			ptr, err := g.alloc(uint32(p[0]), uint32(p[1]))
			return []uint64{uint64(ptr)}, err
		})
	case abi.ExportFree:
		return g.export(name, 3, func(_ context.Context, p []uint64) ([]uint64, error) {
			return nil, g.free(uint32(p[0]), uint32(p[1]))
		})
	case abi.ExportFreeResult:
		return g.export(name, 2, func(_ context.Context, p []uint64) ([]uint64, error) {
			return nil, g.free(uint32(p[1]), uint32(p[0]))
		})
	case abi.ExportAsyncPoll:
		if len(g.plugin.async) == 0 {
			return nil
		}
		return g.export(name, 2, func(ctx context.Context, p []uint64) ([]uint64, error) {
			r, err := g.poll(ctx, p[0], uint32(p[1]))
			return []uint64{r}, err
		})
	case abi.ExportAsyncFree:
		if len(g.plugin.async) == 0 {
			return nil
		}
		return g.export(name, 1, func(_ context.Context, p []uint64) ([]uint64, error) {
			return nil, g.freeFuture(p[0])
		})
	}

	if fn, ok := g.plugin.funcs[name]; ok {
		return g.export(name, 2, func(ctx context.Context, p []uint64) ([]uint64, error) {
			args, err := g.readArgs(p)
			if err != nil {
				return nil, err
			}
			res, err := fn(ctx, g, args)
			if err != nil {
				return nil, err
			}
			packed, err := g.writeResult(res)
			return []uint64{packed}, err
		})
	}
	if af, ok := g.plugin.async[name]; ok {
		return g.export(name, 2, func(_ context.Context, p []uint64) ([]uint64, error) {
			args, err := g.readArgs(p)
			if err != nil {
				return nil, err
			}
			g.mu.Lock()
			defer g.mu.Unlock()
			handle := g.nextFuture
			g.nextFuture++
			g.futures[handle] = &future{fn: af.fn, args: args, mode: af.mode}
			return []uint64{handle}, nil
		})
	}
	return nil
}

// CallImport invokes a host import the way a module would.
func (g *Guest) CallImport(ctx context.Context, module, name string, params ...uint64) error {
	return g.imports.Invoke(ctx, module, name, hostfuncs.Call{Env: g.env, Memory: g.mem, Params: params})
}

// Log sends rec through log.__log.
func (g *Guest) Log(ctx context.Context, rec entities.LogRecord) error {
	data, err := wireformat.Marshal(rec)
	if err != nil {
		return err
	}
	ptr, err := g.alloc(1, uint32(len(data))) //nolint:gosec // G115: records are small
	if err != nil {
		return err
	}
	defer func() { _ = g.free(ptr, uint32(len(data))) }() //nolint:gosec // G115: records are small
	g.mem.Write(ptr, data)
	return g.CallImport(ctx, abi.ImportModuleLog, abi.ImportLog, uint64(len(data)), uint64(ptr))
}

// LiveAllocations returns the number of buffers allocated and not freed.
func (g *Guest) LiveAllocations() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.live)
}

// LiveFutures returns the number of futures not yet freed.
func (g *Guest) LiveFutures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.futures)
}

// Polls returns the total and pending poll counts.
func (g *Guest) Polls() (total, pending int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.polls, g.pending
}

// CallCount returns how many times the export was called.
func (g *Guest) CallCount(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name]
}

type exportFunc struct {
	g      *Guest
	name   string
	params int
	fn     func(context.Context, []uint64) ([]uint64, error)
}

func (g *Guest) export(name string, params int, fn func(context.Context, []uint64) ([]uint64, error)) ports.Function {
	return &exportFunc{g: g, name: name, params: params, fn: fn}
}

func (f *exportFunc) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	if len(params) != f.params {
		return nil, fmt.Errorf("%s: expected %d params, got %d", f.name, f.params, len(params))
	}
	f.g.mu.Lock()
	closed := f.g.closed
	f.g.calls[f.name]++
	f.g.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%s: module closed", f.name)
	}
	return f.fn(ctx, params)
}

func (g *Guest) alloc(align, size uint32) (uint32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if align == 0 {
		align = 1
	}
	ptr := (g.next + align - 1) / align * align
	if uint64(ptr)+uint64(size) > DefaultMemorySize {
		return 0, fmt.Errorf("out of memory allocating %d bytes", size)
	}
	g.next = ptr + size
	if size == 0 {
		g.next++
	}
	g.live[ptr] = size
	return ptr, nil
}

func (g *Guest) free(ptr, size uint32) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	got, ok := g.live[ptr]
	if !ok {
		return fmt.Errorf("free of unallocated pointer %d", ptr)
	}
	if got != size {
		return fmt.Errorf("free of pointer %d with size %d, allocated %d", ptr, size, got)
	}
	delete(g.live, ptr)
	return nil
}

func (g *Guest) readArgs(p []uint64) ([]byte, error) {
	length, ptr := uint32(p[0]), uint32(p[1])
	args, ok := g.mem.Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("argument buffer out of range")
	}
	return args, nil
}

func (g *Guest) writeResult(v any) (uint64, error) {
	data, err := wireformat.Marshal(v)
	if err != nil {
		return 0, err
	}
	ptr, err := g.alloc(1, uint32(len(data))) //nolint:gosec // G115: results are small
	if err != nil {
		return 0, err
	}
	g.mem.Write(ptr, data)
	return abi.PackLenPtr(uint32(len(data)), ptr), nil //nolint:gosec // G115: results are small
}

func (g *Guest) poll(ctx context.Context, handle uint64, slot uint32) (uint64, error) {
	g.mu.Lock()
	f, ok := g.futures[handle]
	if !ok {
		g.mu.Unlock()
		return 0, fmt.Errorf("poll of unknown future %d", handle)
	}
	g.polls++
	f.wakeSlot = slot
	if f.ready {
		g.mu.Unlock()
		res, err := f.fn(ctx, g, f.args)
		if err != nil {
			return 0, err
		}
		return g.writeResult(res)
	}

	first := !f.started
	f.started = true
	mode := f.mode
	if first && mode.Delay == 0 && !mode.Inline && !mode.NeverWake {
		f.ready = true
		g.mu.Unlock()
		res, err := f.fn(ctx, g, f.args)
		if err != nil {
			return 0, err
		}
		return g.writeResult(res)
	}
	g.pending++
	g.mu.Unlock()

	if !first || mode.NeverWake {
		return abi.Pending, nil
	}
	if mode.Inline {
		g.markReady(f)
		if err := g.CallImport(ctx, abi.ImportModuleAsync, abi.ImportWake, uint64(slot)); err != nil {
			return 0, err
		}
		return abi.Pending, nil
	}
	time.AfterFunc(mode.Delay, func() {
		g.markReady(f)
		g.mu.Lock()
		s := f.wakeSlot
		g.mu.Unlock()
		_ = g.CallImport(context.Background(), abi.ImportModuleAsync, abi.ImportWake, uint64(s))
	})
	return abi.Pending, nil
}

func (g *Guest) markReady(f *future) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f.ready = true
}

func (g *Guest) freeFuture(handle uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.futures[handle]; !ok {
		return fmt.Errorf("free of unknown future %d", handle)
	}
	delete(g.futures, handle)
	return nil
}
