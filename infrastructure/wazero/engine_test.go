package wazero_test

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gal-dev/galrt/domain/entities"
	"github.com/gal-dev/galrt/domain/errors"
	"github.com/gal-dev/galrt/host"
	"github.com/gal-dev/galrt/infrastructure/wazero"
	"github.com/gal-dev/galrt/internal/abi"
	"github.com/gal-dev/galrt/log"
)

// noopWASM exports memory, malloc(i32) -> i32 and free(i32, i32) but none
// of the plugin ABI.
func noopWASM() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version

		// type section: (i32) -> i32, (i32, i32) -> ()
		0x01, 0x0b,
		0x02,
		0x60, 0x01, 0x7f, 0x01, 0x7f,
		0x60, 0x02, 0x7f, 0x7f, 0x00,

		// function section
		0x03, 0x03,
		0x02, 0x00, 0x01,

		// memory section: min 1 page
		0x05, 0x03,
		0x01, 0x00, 0x01,

		// export section
		0x07, 0x1a,
		0x03,
		0x06, 'm', 'a', 'l', 'l', 'o', 'c', 0x00, 0x00,
		0x04, 'f', 'r', 'e', 'e', 0x00, 0x01,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,

		// code section: malloc returns 1024, free is a nop
		0x0a, 0x0a,
		0x02,
		0x05, 0x00, 0x41, 0x80, 0x08, 0x0b,
		0x02, 0x00, 0x0b,
	}
}

// flushWASM imports log.__log_flush and exports flush() calling it.
func flushWASM() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d,
		0x01, 0x00, 0x00, 0x00,

		// type section: () -> ()
		0x01, 0x04,
		0x01,
		0x60, 0x00, 0x00,

		// import section: log.__log_flush
		0x02, 0x13,
		0x01,
		0x03, 'l', 'o', 'g',
		0x0b, '_', '_', 'l', 'o', 'g', '_', 'f', 'l', 'u', 's', 'h',
		0x00, 0x00,

		// function section
		0x03, 0x02,
		0x01, 0x00,

		// memory section
		0x05, 0x03,
		0x01, 0x00, 0x01,

		// export section: flush = func 1, memory
		0x07, 0x12,
		0x02,
		0x05, 'f', 'l', 'u', 's', 'h', 0x00, 0x01,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,

		// code section: call 0
		0x0a, 0x06,
		0x01,
		0x04, 0x00, 0x10, 0x00, 0x0b,
	}
}

// asyncEchoWASM implements the plugin ABI over a bump allocator. echo
// returns its argument buffer as the result. ping_async stores the argument
// buffer; the first poll calls async.__wake on the waker slot and reports
// pending, later polls return the stored buffer.
func asyncEchoWASM() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d,
		0x01, 0x00, 0x00, 0x00,

		// type section
		0x01, 0x26,
		0x07,
		0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f, // 0: (i32, i32) -> i32
		0x60, 0x03, 0x7f, 0x7f, 0x7f, 0x00, // 1: (i32, i32, i32) -> ()
		0x60, 0x02, 0x7f, 0x7f, 0x00, // 2: (i32, i32) -> ()
		0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7e, // 3: (i32, i32) -> i64
		0x60, 0x02, 0x7e, 0x7f, 0x01, 0x7e, // 4: (i64, i32) -> i64
		0x60, 0x01, 0x7e, 0x00, // 5: (i64) -> ()
		0x60, 0x01, 0x7f, 0x00, // 6: (i32) -> ()

		// import section: async.__wake
		0x02, 0x10,
		0x01,
		0x05, 'a', 's', 'y', 'n', 'c',
		0x06, '_', '_', 'w', 'a', 'k', 'e',
		0x00, 0x06,

		// function section
		0x03, 0x08,
		0x07, 0x00, 0x01, 0x02, 0x03, 0x03, 0x04, 0x05,

		// memory section
		0x05, 0x03,
		0x01, 0x00, 0x01,

		// global section: next = 1024, stored = 0, polled = 0
		0x06, 0x11,
		0x03,
		0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b,
		0x7e, 0x01, 0x42, 0x00, 0x0b,
		0x7f, 0x01, 0x41, 0x00, 0x0b,

		// export section
		0x07, 0x75,
		0x08,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		0x0b, '_', '_', 'a', 'b', 'i', '_', 'a', 'l', 'l', 'o', 'c', 0x00, 0x01,
		0x0a, '_', '_', 'a', 'b', 'i', '_', 'f', 'r', 'e', 'e', 0x00, 0x02,
		0x0d, '_', '_', 'e', 'x', 'p', 'o', 'r', 't', '_', 'f', 'r', 'e', 'e', 0x00, 0x03,
		0x04, 'e', 'c', 'h', 'o', 0x00, 0x04,
		0x0a, 'p', 'i', 'n', 'g', '_', 'a', 's', 'y', 'n', 'c', 0x00, 0x05,
		0x13, '_', '_', 'e', 'x', 'p', 'o', 'r', 't', '_', 'a', 's', 'y', 'n', 'c', '_', 'p', 'o', 'l', 'l', 0x00, 0x06,
		0x13, '_', '_', 'e', 'x', 'p', 'o', 'r', 't', '_', 'a', 's', 'y', 'n', 'c', '_', 'f', 'r', 'e', 'e', 0x00, 0x07,

		// code section
		0x0a, 0x50,
		0x07,
		// __abi_alloc: return next; next = (next + size + 7) & -8
		0x11, 0x00, 0x23, 0x00, 0x23, 0x00, 0x20, 0x01, 0x6a, 0x41, 0x07, 0x6a, 0x41, 0x78, 0x71, 0x24, 0x00, 0x0b,
		// __abi_free, __export_free: nop
		0x02, 0x00, 0x0b,
		0x02, 0x00, 0x0b,
		// echo: len<<32 | ptr
		0x0c, 0x00, 0x20, 0x00, 0xad, 0x42, 0x20, 0x86, 0x20, 0x01, 0xad, 0x84, 0x0b,
		// ping_async: stored = len<<32 | ptr; return handle 0
		0x10, 0x00, 0x20, 0x00, 0xad, 0x42, 0x20, 0x86, 0x20, 0x01, 0xad, 0x84, 0x24, 0x01, 0x42, 0x00, 0x0b,
		// __export_async_poll: first poll wakes and returns pending
		0x15, 0x00, 0x23, 0x02, 0x45, 0x04, 0x7e, 0x41, 0x01, 0x24, 0x02, 0x20, 0x01, 0x10, 0x00, 0x42, 0x7f, 0x05, 0x23, 0x01, 0x0b, 0x0b,
		// __export_async_free: nop
		0x02, 0x00, 0x0b,
	}
}

type recordingEnv struct {
	mu      sync.Mutex
	flushes int
}

func (e *recordingEnv) Log(context.Context, entities.LogRecord) {}

func (e *recordingEnv) Flush(context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushes++
}

func (e *recordingEnv) Wake(context.Context, uint64) {}

func newEngine(t *testing.T, opts ...wazero.EngineOption) *wazero.Engine {
	t.Helper()
	ctx := context.Background()
	e, err := wazero.NewEngine(ctx, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(ctx) })
	return e
}

func TestEngine_Instantiate(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	g, err := e.Instantiate(ctx, "noop", noopWASM(), &recordingEnv{})
	require.NoError(t, err)
	defer g.Close(ctx)

	assert.Equal(t, "noop", g.Name())
	assert.Equal(t, []string{"free", "malloc"}, g.ExportedFunctionNames())
	assert.Nil(t, g.ExportedFunction(abi.ExportAlloc))

	malloc := g.ExportedFunction("malloc")
	require.NotNil(t, malloc)
	res, err := malloc.Call(ctx, 16)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1024}, res)

	mem := g.Memory()
	require.NotNil(t, mem)
	assert.Equal(t, uint32(1<<16), mem.Size())
	require.True(t, mem.WriteUint64Le(1024, 42))
	v, ok := mem.ReadUint64Le(1024)
	require.True(t, ok)
	assert.Equal(t, uint64(42), v)
	_, ok = mem.Read(mem.Size()-4, 8)
	assert.False(t, ok)
}

func TestEngine_InstantiateErrors(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	_, err := e.Instantiate(ctx, "bad", []byte("not a wasm binary"), &recordingEnv{})
	require.Error(t, err)

	g, err := e.Instantiate(ctx, "noop", noopWASM(), &recordingEnv{})
	require.NoError(t, err)
	_, err = e.Instantiate(ctx, "noop", noopWASM(), &recordingEnv{})
	require.Error(t, err, "names are unique per engine")

	require.NoError(t, g.Close(ctx))
	g, err = e.Instantiate(ctx, "noop", noopWASM(), &recordingEnv{})
	require.NoError(t, err, "closing a guest frees its name")
	require.NoError(t, g.Close(ctx))
}

func TestEngine_HostImports(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	env := &recordingEnv{}
	g, err := e.Instantiate(ctx, "flushy", flushWASM(), env)
	require.NoError(t, err)
	defer g.Close(ctx)

	flush := g.ExportedFunction("flush")
	require.NotNil(t, flush)
	_, err = flush.Call(ctx)
	require.NoError(t, err)
	_, err = flush.Call(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, env.flushes)
}

func TestEngine_Options(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t,
		wazero.WithLogger(log.New(&bytes.Buffer{})),
		wazero.WithMemoryLimitPages(2),
		wazero.WithCompilationCacheDir(t.TempDir()),
	)

	g, err := e.Instantiate(ctx, "noop", noopWASM(), &recordingEnv{})
	require.NoError(t, err)
	require.NoError(t, g.Close(ctx))
}

func TestHostLoad_MissingExport(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	h, err := host.Load(ctx, e, "noop", noopWASM())
	require.Error(t, err)
	assert.Nil(t, h)

	var missing *errors.MissingExportError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, abi.ExportAlloc, missing.Export)

	// The failed guest was closed, so its name can be reused.
	g, err := e.Instantiate(ctx, "noop", noopWASM(), &recordingEnv{})
	require.NoError(t, err)
	require.NoError(t, g.Close(ctx))
}

func TestHostCall_ThroughWazero(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	var buf bytes.Buffer
	h, err := host.Load(ctx, e, "echo", asyncEchoWASM(),
		host.WithLogger(log.New(&buf, log.WithLevel(slog.LevelDebug))))
	require.NoError(t, err)
	defer h.Close(ctx)

	t.Run("sync", func(t *testing.T) {
		var out []string
		require.NoError(t, h.Call(ctx, "echo", []any{"hi"}, &out))
		assert.Equal(t, []string{"hi"}, out)
	})

	t.Run("async wakes through guest memory", func(t *testing.T) {
		var out []string
		require.NoError(t, h.Call(ctx, "ping", []any{"later"}, &out))
		assert.Equal(t, []string{"later"}, out)
		assert.Contains(t, buf.String(), "future completed")
		assert.Contains(t, buf.String(), "polls=2")
		assert.NotContains(t, buf.String(), "unknown waker")
	})
}
