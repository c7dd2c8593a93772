package host

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/gal-dev/galrt/domain/errors"
	"github.com/gal-dev/galrt/domain/ports"
	"github.com/gal-dev/galrt/internal/abi"
)

// callAsync drives the future returned by fn to completion. It is called
// with h.mu held and keeps holding it while the goroutine waits for a wake.
func (h *Host) callAsync(ctx context.Context, name string, fn ports.Function, argLen, argPtr uint32, out any) (err error) {
	exportName := name + abi.AsyncSuffix
	res, err := fn.Call(ctx, uint64(argLen), uint64(argPtr))
	if err != nil {
		return &errors.GuestCallError{Plugin: h.name, Function: exportName, Err: err}
	}
	handle, err := single(res, exportName)
	if err != nil {
		return err
	}

	var slot uint32
	haveSlot := false
	defer func() {
		// The future is freed even when ctx was cancelled while waiting.
		cleanup := context.WithoutCancel(ctx)
		err = stdErrors.Join(err, h.invoke(cleanup, abi.ExportAsyncFree, h.asyncFree, handle))
		if haveSlot {
			err = stdErrors.Join(err, h.freeBuffer(cleanup, slot, abi.WakerSlotSize, abi.WakerSlotSize))
		}
	}()

	slot, err = h.allocBuffer(ctx, abi.WakerSlotSize, abi.WakerSlotSize)
	if err != nil {
		return err
	}
	haveSlot = true

	token, woken := h.wakers.register()
	defer h.wakers.remove(token)

	for polls := 1; ; polls++ {
		if err := abi.WriteUint64(h.mem, slot, token); err != nil {
			return err
		}
		res, err := h.poll.Call(ctx, handle, uint64(slot))
		if err != nil {
			return &errors.GuestCallError{Plugin: h.name, Function: abi.ExportAsyncPoll, Err: err}
		}
		packed, err := single(res, abi.ExportAsyncPoll)
		if err != nil {
			return err
		}
		if packed != abi.Pending {
			h.logger.DebugContext(ctx, "future completed", "function", name, "polls", polls)
			return h.takeResult(ctx, packed, out)
		}

		select {
		case <-woken:
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", exportName, ctx.Err())
		}
	}
}
