package store

import (
	"context"
	"sync"
)

// rollupWorker is the single consumer of rollup signals.
//
// Inserts call trigger, which never blocks: the signal channel has a buffer
// of 1, so signals arriving while a rollup runs coalesce into one pending
// wake-up. The body drains until a check is a no-op, so no work is lost.
//
// Thread-safety: trigger and flush may be called from any goroutine; the body
// only ever runs on the worker goroutine.
type rollupWorker struct {
	body   func(ctx context.Context)
	signal chan struct{}      // Pending rollup check (buffered, size 1)
	flushC chan chan struct{} // Barrier requests
	quit   chan struct{}      // Closed by stop
	done   chan struct{}      // Closed when the goroutine exits
	ctx    context.Context
	cancel context.CancelFunc

	stopOnce sync.Once
}

func newRollupWorker(body func(ctx context.Context)) *rollupWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &rollupWorker{
		body:   body,
		signal: make(chan struct{}, 1),
		flushC: make(chan chan struct{}),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (w *rollupWorker) start() {
	go w.loop()
}

// trigger schedules one rollup check without blocking.
func (w *rollupWorker) trigger() {
	select {
	case w.signal <- struct{}{}:
	default:
		// A check is already pending; it will see this insert's row too.
	}
}

// flush waits until every signal sent before the call has been processed.
func (w *rollupWorker) flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case w.flushC <- ack:
	case <-w.done:
		return &Error{Op: "flush", Err: ErrClosed}
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stop processes a pending signal, then ends the goroutine and waits for it.
func (w *rollupWorker) stop() {
	w.stopOnce.Do(func() {
		close(w.quit)
		<-w.done
		w.cancel()
	})
}

func (w *rollupWorker) loop() {
	defer close(w.done)

	for {
		select {
		case <-w.signal:
			w.body(w.ctx)
		case ack := <-w.flushC:
			w.runPending()
			close(ack)
		case <-w.quit:
			w.runPending()
			return
		}
	}
}

// runPending consumes a signal that is already buffered, if any.
func (w *rollupWorker) runPending() {
	select {
	case <-w.signal:
		w.body(w.ctx)
	default:
	}
}
