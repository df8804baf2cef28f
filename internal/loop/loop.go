// Package loop hosts a ministore.Store on a single goroutine.
//
// A Store is not safe for concurrent use. HTTP handlers and other goroutines
// therefore never touch it directly: they send work to the [Loop], which runs
// it on the goroutine that owns the store and replies when it is done.
// Listeners registered through [Loop.Do] run on that same goroutine.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	"github.com/jpalmerr/ministore"
)

var (
	// ErrNotStarted is returned by calls made before [Loop.Start].
	ErrNotStarted = errors.New("loop not started")

	// ErrStopped is returned by calls made after the loop has stopped.
	ErrStopped = errors.New("loop stopped")
)

type request[S, A any] struct {
	fn    func(*ministore.Store[S, A]) error
	reply chan error
}

// Loop serializes access to a store.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Loop[S, A any] struct {
	store    *ministore.Store[S, A]
	requests chan request[S, A]
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

// New creates a [Loop] that owns store.
//
// The loop must be started with [Loop.Start] and stopped with [Loop.Stop].
// Once the loop is started the caller must not use store directly.
func New[S, A any](store *ministore.Store[S, A], logger *slog.Logger) *Loop[S, A] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop[S, A]{
		store:    store,
		requests: make(chan request[S, A]),
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs the loop in a background goroutine.
//
// The loop exits when [Loop.Stop] is called or ctx is cancelled. If ctx is
// nil, context.Background() is used. Start is idempotent; calling it after
// Stop is a no-op.
func (l *Loop[S, A]) Start(ctx context.Context) {
	l.mu.Lock()
	if l.started || l.stopped {
		l.mu.Unlock()
		return
	}
	l.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	l.ctx, l.cancel = context.WithCancel(ctx)
	loopCtx := l.ctx
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		defer l.closeOnce.Do(func() { close(l.done) })

		for {
			select {
			case <-loopCtx.Done():
				return
			case req := <-l.requests:
				req.reply <- l.run(req.fn)
			}
		}
	}()
}

// Stop halts the loop and waits for the in-flight request to finish.
//
// Stop is idempotent and safe to call before Start.
func (l *Loop[S, A]) Stop() {
	l.mu.Lock()
	if !l.stopped {
		l.stopped = true
		if l.cancel != nil {
			l.cancel()
		}
	}
	l.mu.Unlock()

	l.wg.Wait()
	l.closeOnce.Do(func() { close(l.done) })
}

// Done is closed once the loop goroutine has exited.
func (l *Loop[S, A]) Done() <-chan struct{} {
	return l.done
}

// Do runs fn on the loop goroutine and returns its error.
//
// Do returns ctx.Err() if ctx ends first; fn may still run in that case.
// It returns [ErrNotStarted] or [ErrStopped] when the loop is not running.
// A panic in fn is recovered, logged with a correlation ID, and returned as
// an error.
func (l *Loop[S, A]) Do(ctx context.Context, fn func(*ministore.Store[S, A]) error) error {
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	req := request[S, A]{fn: fn, reply: make(chan error, 1)}

	select {
	case l.requests <- req:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch dispatches action on the loop goroutine.
func (l *Loop[S, A]) Dispatch(ctx context.Context, action A) error {
	return l.Do(ctx, func(s *ministore.Store[S, A]) error {
		return s.Dispatch(action)
	})
}

// State returns the current state.
func (l *Loop[S, A]) State(ctx context.Context) (S, error) {
	var state S
	err := l.Do(ctx, func(s *ministore.Store[S, A]) error {
		state = s.GetState()
		return nil
	})
	return state, err
}

// run calls fn with panic recovery.
// Reducer and selector panics surface here; the store stays usable.
func (l *Loop[S, A]) run(fn func(*ministore.Store[S, A]) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()

			l.logger.Error("loop request panic",
				"store", l.store.Name(),
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)

			err = fmt.Errorf("request panic (correlation_id: %s)", correlationID)
		}
	}()
	return fn(l.store)
}
