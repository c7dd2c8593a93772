package host

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gal-dev/galrt/domain/entities"
	"github.com/gal-dev/galrt/log"
)

// env is the HostEnv of one Host. It never takes the Host mutex: wakes
// arrive while a call holds it.
type env struct {
	logger *slog.Logger
	flush  func()
	wakers *wakerTable
}

func (e *env) Log(ctx context.Context, rec entities.LogRecord) {
	log.Forward(ctx, e.logger, rec)
}

func (e *env) Flush(context.Context) {
	e.flush()
}

func (e *env) Wake(ctx context.Context, token uint64) {
	if !e.wakers.wake(token) {
		e.logger.WarnContext(ctx, "wake for unknown waker", "token", token)
	}
}

// wakerTable maps waker tokens to the channels of blocked calls. Tokens are
// never reused.
type wakerTable struct {
	mu     sync.Mutex
	next   uint64
	wakers map[uint64]chan struct{}
}

func newWakerTable() *wakerTable {
	return &wakerTable{next: 1, wakers: make(map[uint64]chan struct{})}
}

// register returns a fresh token and the channel signalled by wake. The
// channel holds one pending signal so a wake during a poll is not lost.
func (t *wakerTable) register() (uint64, <-chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	token := t.next
	t.next++
	ch := make(chan struct{}, 1)
	t.wakers[token] = ch
	return token, ch
}

func (t *wakerTable) remove(token uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.wakers, token)
}

func (t *wakerTable) wake(token uint64) bool {
	t.mu.Lock()
	ch, ok := t.wakers[token]
	t.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- struct{}{}:
	default:
	}
	return true
}

func (t *wakerTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.wakers)
}
