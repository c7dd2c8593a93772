package host_test

import (
	"bytes"
	"context"
	stdErrors "errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gal-dev/galrt/domain/entities"
	"github.com/gal-dev/galrt/domain/errors"
	"github.com/gal-dev/galrt/host"
	"github.com/gal-dev/galrt/internal/abi"
	"github.com/gal-dev/galrt/internal/testutil"
	"github.com/gal-dev/galrt/log"
	"github.com/gal-dev/galrt/wireformat"
)

// syncBuffer is a bytes.Buffer safe for the wake goroutines of fake guests.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func sum(args []entities.Value) (entities.Value, error) {
	total := new(big.Int)
	for _, a := range args {
		total.Add(total, a.AsNum())
	}
	return entities.NewNum(total), nil
}

func load(t *testing.T, p *testutil.Plugin, opts ...host.Option) (*host.Host, *testutil.Guest) {
	t.Helper()
	engine := testutil.NewEngine().Register("test", p)
	h, err := host.Load(context.Background(), engine, "test", nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close(context.Background()) })
	return h, engine.Guest("test")
}

func TestLoad(t *testing.T) {
	t.Run("resolves exports", func(t *testing.T) {
		h, _ := load(t, testutil.NewPlugin(entities.CapabilityScript))
		assert.Equal(t, "test", h.Name())
	})

	t.Run("instantiate failure", func(t *testing.T) {
		boom := stdErrors.New("boom")
		engine := testutil.NewEngine().Register("bad", testutil.NewPlugin(0).FailInstantiate(boom))
		h, err := host.Load(context.Background(), engine, "bad", nil)
		require.Error(t, err)
		assert.Nil(t, h)
		assert.ErrorIs(t, err, boom)
	})

	missing := []struct {
		name   string
		plugin *testutil.Plugin
		export string
	}{
		{"alloc", testutil.NewPlugin(0).Without(abi.ExportAlloc), abi.ExportAlloc},
		{"free", testutil.NewPlugin(0).Without(abi.ExportFree), abi.ExportFree},
		{"free result", testutil.NewPlugin(0).Without(abi.ExportFreeResult), abi.ExportFreeResult},
		{
			"async poll",
			testutil.NewPlugin(0).AsyncMethod("m", testutil.AsyncMode{}, sum).Without(abi.ExportAsyncPoll),
			abi.ExportAsyncPoll,
		},
		{
			"async free",
			testutil.NewPlugin(0).AsyncMethod("m", testutil.AsyncMode{}, sum).Without(abi.ExportAsyncFree),
			abi.ExportAsyncFree,
		},
	}
	for _, tc := range missing {
		t.Run("missing "+tc.name, func(t *testing.T) {
			engine := testutil.NewEngine().Register("p", tc.plugin)
			h, err := host.Load(context.Background(), engine, "p", nil)
			require.Error(t, err)
			assert.Nil(t, h)

			var target *errors.MissingExportError
			require.ErrorAs(t, err, &target)
			assert.Equal(t, tc.export, target.Export)
			assert.Equal(t, "p", target.Plugin)
			assert.True(t, engine.Guest("p").Closed(), "guest of a failed load must be closed")
		})
	}

	t.Run("sync only module needs no async exports", func(t *testing.T) {
		p := testutil.NewPlugin(0).Without(abi.ExportAsyncPoll, abi.ExportAsyncFree)
		_, err := host.Load(context.Background(), testutil.NewEngine().Register("p", p), "p", nil)
		require.NoError(t, err)
	})
}

func TestHost_Call(t *testing.T) {
	ctx := context.Background()

	t.Run("sync method", func(t *testing.T) {
		h, g := load(t, testutil.NewPlugin(entities.CapabilityScript).Method("sum", sum))

		res, err := h.DispatchMethod(ctx, "sum", []entities.Value{entities.NewInt(1), entities.NewBool(true), entities.NewStr("abc")})
		require.NoError(t, err)
		testutil.AssertValue(t, entities.NewInt(5), res)
		testutil.AssertNoLeaks(t, g)
	})

	t.Run("nil args", func(t *testing.T) {
		h, g := load(t, testutil.NewPlugin(0).Method("sum", sum))

		res, err := h.DispatchMethod(ctx, "sum", nil)
		require.NoError(t, err)
		testutil.AssertValue(t, entities.NewInt(0), res)
		testutil.AssertNoLeaks(t, g)
	})

	t.Run("big integers cross the boundary", func(t *testing.T) {
		h, g := load(t, testutil.NewPlugin(0).Method("sum", sum))

		huge, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
		require.True(t, ok)
		res, err := h.DispatchMethod(ctx, "sum", []entities.Value{entities.NewNum(huge), entities.NewInt(10)})
		require.NoError(t, err)
		want := new(big.Int).Add(huge, big.NewInt(10))
		testutil.AssertValue(t, entities.NewNum(want), res)
		testutil.AssertNoLeaks(t, g)
	})

	t.Run("function not found", func(t *testing.T) {
		h, g := load(t, testutil.NewPlugin(0))

		_, err := h.DispatchMethod(ctx, "nope", nil)
		var target *errors.FunctionNotFoundError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, "nope", target.Function)
		assert.Equal(t, "test", target.Plugin)
		testutil.AssertNoLeaks(t, g)
	})

	t.Run("guest error frees arguments", func(t *testing.T) {
		boom := stdErrors.New("trap")
		p := testutil.NewPlugin(0).Func("fail", func(context.Context, *testutil.Guest, []byte) (any, error) {
			return nil, boom
		})
		h, g := load(t, p)

		err := h.Call(ctx, "fail", nil, nil)
		var target *errors.GuestCallError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, "fail", target.Function)
		assert.ErrorIs(t, err, boom)
		testutil.AssertNoLeaks(t, g)
	})

	t.Run("decode failure frees result", func(t *testing.T) {
		p := testutil.NewPlugin(0).Func("str", func(context.Context, *testutil.Guest, []byte) (any, error) {
			return "not a number", nil
		})
		h, g := load(t, p)

		var out int
		err := h.Call(ctx, "str", nil, &out)
		var target *errors.WireFormatError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, "unmarshal", target.Operation)
		assert.Equal(t, 1, g.CallCount(abi.ExportFreeResult))
		testutil.AssertNoLeaks(t, g)
	})

	t.Run("nil out discards result", func(t *testing.T) {
		h, g := load(t, testutil.NewPlugin(0).Method("sum", sum))

		require.NoError(t, h.Call(ctx, "sum", []any{[]entities.Value{}}, nil))
		testutil.AssertNoLeaks(t, g)
	})

	t.Run("parameters are an encoded tuple", func(t *testing.T) {
		var got []byte
		p := testutil.NewPlugin(0).Func("raw", func(_ context.Context, _ *testutil.Guest, args []byte) (any, error) {
			got = args
			return nil, nil
		})
		h, _ := load(t, p)

		require.NoError(t, h.Call(ctx, "raw", []any{"a", 1}, nil))
		want, err := wireformat.EncodeParams("a", 1)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("closed host", func(t *testing.T) {
		h, g := load(t, testutil.NewPlugin(0).Method("sum", sum))

		require.NoError(t, h.Close(ctx))
		require.NoError(t, h.Close(ctx))
		assert.True(t, g.Closed())

		_, err := h.DispatchMethod(ctx, "sum", nil)
		assert.ErrorIs(t, err, errors.ErrHostClosed)
	})

	t.Run("sync export preferred over async", func(t *testing.T) {
		p := testutil.NewPlugin(0).
			Method("m", sum).
			AsyncMethod("m", testutil.AsyncMode{}, sum)
		h, g := load(t, p)

		_, err := h.DispatchMethod(ctx, "m", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, g.CallCount("m"))
		assert.Zero(t, g.CallCount("m"+abi.AsyncSuffix))
	})

	t.Run("concurrent callers", func(t *testing.T) {
		h, g := load(t, testutil.NewPlugin(0).Method("sum", sum))

		var wg sync.WaitGroup
		errs := make([]error, 16)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := h.DispatchMethod(ctx, "sum", []entities.Value{entities.NewInt(int64(i))})
				if err == nil && !res.Equal(entities.NewInt(int64(i))) {
					err = stdErrors.New("wrong result " + res.String())
				}
				errs[i] = err
			}(i)
		}
		wg.Wait()
		for _, err := range errs {
			assert.NoError(t, err)
		}
		testutil.AssertNoLeaks(t, g)
	})
}

func TestHost_CallAsync(t *testing.T) {
	ctx := context.Background()

	t.Run("ready on first poll", func(t *testing.T) {
		h, g := load(t, testutil.NewPlugin(0).AsyncMethod("sum", testutil.AsyncMode{}, sum))

		res, err := h.DispatchMethod(ctx, "sum", []entities.Value{entities.NewInt(2), entities.NewInt(3)})
		require.NoError(t, err)
		testutil.AssertValue(t, entities.NewInt(5), res)

		total, pending := g.Polls()
		assert.Equal(t, 1, total)
		assert.Zero(t, pending)
		testutil.AssertNoLeaks(t, g)
	})

	t.Run("pending until woken", func(t *testing.T) {
		const delay = 30 * time.Millisecond
		h, g := load(t, testutil.NewPlugin(0).AsyncMethod("sum", testutil.AsyncMode{Delay: delay}, sum))

		start := time.Now()
		res, err := h.DispatchMethod(ctx, "sum", []entities.Value{entities.NewInt(7)})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), delay, "result observed before the wake")
		testutil.AssertValue(t, entities.NewInt(7), res)

		total, pending := g.Polls()
		assert.GreaterOrEqual(t, pending, 1)
		assert.GreaterOrEqual(t, total, 2)
		testutil.AssertNoLeaks(t, g)
	})

	t.Run("wake during poll is not lost", func(t *testing.T) {
		h, g := load(t, testutil.NewPlugin(0).AsyncMethod("sum", testutil.AsyncMode{Inline: true}, sum))

		res, err := h.DispatchMethod(ctx, "sum", []entities.Value{entities.NewInt(4)})
		require.NoError(t, err)
		testutil.AssertValue(t, entities.NewInt(4), res)

		total, pending := g.Polls()
		assert.Equal(t, 2, total)
		assert.Equal(t, 1, pending)
		testutil.AssertNoLeaks(t, g)
	})

	t.Run("cancelled wait frees future and slot", func(t *testing.T) {
		h, g := load(t, testutil.NewPlugin(0).AsyncMethod("never", testutil.AsyncMode{NeverWake: true}, sum))

		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, err := h.DispatchMethod(cctx, "never", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, 1, g.CallCount(abi.ExportAsyncFree))
		testutil.AssertNoLeaks(t, g)
	})

	t.Run("sequential futures", func(t *testing.T) {
		h, g := load(t, testutil.NewPlugin(0).AsyncMethod("sum", testutil.AsyncMode{Delay: time.Millisecond}, sum))

		for i := int64(0); i < 5; i++ {
			res, err := h.DispatchMethod(ctx, "sum", []entities.Value{entities.NewInt(i)})
			require.NoError(t, err)
			testutil.AssertValue(t, entities.NewInt(i), res)
		}
		testutil.AssertNoLeaks(t, g)
	})
}

func TestHost_Wrappers(t *testing.T) {
	ctx := context.Background()

	t.Run("plugin type", func(t *testing.T) {
		h, _ := load(t, testutil.NewPlugin(entities.CapabilityText|entities.CapabilityGame))

		caps, err := h.PluginType(ctx)
		require.NoError(t, err)
		assert.True(t, caps.Has(entities.CapabilityText))
		assert.True(t, caps.Has(entities.CapabilityGame))
		assert.False(t, caps.Has(entities.CapabilityScript))
	})

	t.Run("text commands", func(t *testing.T) {
		h, _ := load(t, testutil.NewPlugin(entities.CapabilityText).Commands("ruby", "bold"))

		cmds, err := h.TextCommands(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"ruby", "bold"}, cmds)
	})

	t.Run("process action", func(t *testing.T) {
		p := testutil.NewPlugin(entities.CapabilityAction).Func(host.ExportProcessAction,
			func(_ context.Context, _ *testutil.Guest, raw []byte) (any, error) {
				var params []entities.ActionProcessContext
				if err := wireformat.Unmarshal(raw, &params); err != nil {
					return nil, err
				}
				act := params[0].Action
				act.Line = append(act.Line, entities.Chars(" ("+params[0].FrontendType+")"))
				return act, nil
			})
		h, g := load(t, p)

		act, err := h.ProcessAction(ctx, entities.ActionProcessContext{
			FrontendType: "text",
			Action:       entities.Action{Line: []entities.ActionLine{entities.Chars("hello")}},
		})
		require.NoError(t, err)
		assert.Equal(t, "hello (text)", act.Text())
		testutil.AssertNoLeaks(t, g)
	})

	t.Run("dispatch command", func(t *testing.T) {
		p := testutil.NewPlugin(entities.CapabilityText).Func("ruby",
			func(_ context.Context, _ *testutil.Guest, raw []byte) (any, error) {
				var params struct {
					_    struct{} `cbor:",toarray"`
					Args []string
					Ctx  entities.TextProcessContext
				}
				if err := wireformat.Unmarshal(raw, &params); err != nil {
					return nil, err
				}
				return entities.TextProcessResult{
					Line: entities.Block(strings.Join(params.Args, "/") + "@" + params.Ctx.FrontendType),
				}, nil
			})
		h, _ := load(t, p)

		res, err := h.DispatchCommand(ctx, "ruby", []string{"漢", "かん"}, entities.TextProcessContext{FrontendType: "html"})
		require.NoError(t, err)
		assert.Equal(t, entities.Block("漢/かん@html"), res.Line)
	})

	t.Run("process game", func(t *testing.T) {
		p := testutil.NewPlugin(entities.CapabilityGame).Func(host.ExportProcessGame,
			func(_ context.Context, _ *testutil.Guest, raw []byte) (any, error) {
				var params []entities.GameProcessContext
				if err := wireformat.Unmarshal(raw, &params); err != nil {
					return nil, err
				}
				return entities.GameProcessResult{Props: entities.VarMap{
					"title": entities.NewStr(params[0].Title + " by " + params[0].Author),
				}}, nil
			})
		h, _ := load(t, p)

		res, err := h.ProcessGame(ctx, entities.GameProcessContext{Title: "Fireworks", Author: "Ayu"})
		require.NoError(t, err)
		testutil.AssertValue(t, entities.NewStr("Fireworks by Ayu"), res.Props["title"])
	})
}

func TestHost_Imports(t *testing.T) {
	ctx := context.Background()

	t.Run("guest log records are forwarded", func(t *testing.T) {
		var buf syncBuffer
		logger := log.New(&buf, log.WithLevel(log.LevelTrace))
		_, g := load(t, testutil.NewPlugin(0), host.WithLogger(logger))

		file := "src/lib.rs"
		line := uint32(42)
		require.NoError(t, g.Log(ctx, entities.LogRecord{
			Level:  entities.LogLevelWarn,
			Target: "ruby",
			Msg:    "unbalanced markup",
			File:   &file,
			Line:   &line,
		}))

		out := buf.String()
		assert.Contains(t, out, "level=WARN")
		assert.Contains(t, out, `msg="unbalanced markup"`)
		assert.Contains(t, out, "plugin=test")
		assert.Contains(t, out, "target=ruby")
		assert.Contains(t, out, "file=src/lib.rs")
		assert.Contains(t, out, "line=42")
		testutil.AssertNoLeaks(t, g)
	})

	t.Run("flush", func(t *testing.T) {
		flushed := 0
		_, g := load(t, testutil.NewPlugin(0), host.WithFlush(func() { flushed++ }))

		require.NoError(t, g.CallImport(ctx, abi.ImportModuleLog, abi.ImportLogFlush))
		assert.Equal(t, 1, flushed)
	})

	t.Run("unknown wake token is logged and ignored", func(t *testing.T) {
		var buf syncBuffer
		_, g := load(t, testutil.NewPlugin(0), host.WithLogger(log.New(&buf)))

		// The allocator never hands out offset 0.
		require.True(t, g.Memory().WriteUint64Le(0, 99))
		require.NoError(t, g.CallImport(ctx, abi.ImportModuleAsync, abi.ImportWake, 0))
		assert.Contains(t, buf.String(), "wake for unknown waker")
		assert.Contains(t, buf.String(), "token=99")
	})
}
