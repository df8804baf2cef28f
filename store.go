package ministore

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strconv"

	"github.com/google/uuid"
)

// Reducer computes the next state from the current state and an action.
//
// Reducers must be pure: they must not mutate the state they are given and
// must return a new value for every change. Returning a value that is
// shallowly equal to the input signals that nothing changed.
type Reducer[S, A any] func(state S, action A) S

// Listener is notified with the new state after a change.
type Listener[S any] func(state S)

// Selector derives the part of the state a subscription cares about.
type Selector[S, R any] func(state S) R

// Unsubscribe removes a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// subscription is one registered listener and its change-detection state.
type subscription[S any] struct {
	id       string
	name     string
	listener Listener[S]
	selector func(S) any
	equal    EqualFunc
	cached   any
	removed  bool
}

// Store holds the current state, the reducer that produces new states, and
// the registered subscriptions.
//
// Store is created with [New] and is not safe for concurrent use: all
// methods must be called from the same goroutine. Listeners run on that
// goroutine, synchronously, before [Store.Dispatch] returns.
type Store[S, A any] struct {
	name      string
	reducer   Reducer[S, A]
	equal     EqualFunc
	logger    *slog.Logger
	maxDepth  int
	queued    bool
	skipStale bool
	panics    PanicPolicy

	state   S
	version uint64

	subs   []*subscription[S]
	nextID uint64

	depth     int
	notifying bool
	queue     []A
}

// New creates a [Store] with the given reducer and initial state.
//
// Defaults:
//   - State comparison: [ShallowEqual]
//   - Nested dispatch: inline, unbounded depth
//   - Listener panics: [RecoverListenerPanics]
//   - Logger: [slog.Default]
//
// Returns an error if the reducer is nil or any option is invalid.
func New[S, A any](reducer Reducer[S, A], initial S, opts ...Option) (*Store[S, A], error) {
	if reducer == nil {
		return nil, errors.New("reducer cannot be nil")
	}

	cfg := &storeConfig{
		equal:  ShallowEqual,
		panics: RecoverListenerPanics,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.name
	if name == "" {
		name = uuid.NewString()
	}

	return &Store[S, A]{
		name:      name,
		reducer:   reducer,
		equal:     cfg.equal,
		logger:    logger,
		maxDepth:  cfg.maxDepth,
		queued:    cfg.queued,
		skipStale: cfg.skipStale,
		panics:    cfg.panics,
		state:     initial,
	}, nil
}

// MustNew is like [New] but panics on error. It is intended for stores
// declared at package level.
func MustNew[S, A any](reducer Reducer[S, A], initial S, opts ...Option) *Store[S, A] {
	s, err := New(reducer, initial, opts...)
	if err != nil {
		panic(fmt.Sprintf("ministore: %v", err))
	}
	return s
}

// Name returns the label used for this store in log output.
func (s *Store[S, A]) Name() string {
	return s.name
}

// GetState returns the current state.
//
// Callers must treat the result as read-only. The store never mutates a
// state it has handed out; every change is a new value from the reducer.
func (s *Store[S, A]) GetState() S {
	return s.state
}

// Version returns the number of state changes committed so far.
// Dispatches that leave the state unchanged do not advance it.
func (s *Store[S, A]) Version() uint64 {
	return s.version
}

// Len returns the number of active subscriptions.
func (s *Store[S, A]) Len() int {
	return len(s.subs)
}

// Dispatch runs the reducer and, if the state changed, notifies subscribers.
//
// The sequence is:
//  1. The reducer computes a candidate state from the current state.
//  2. If the candidate equals the current state (see [ShallowEqual]),
//     Dispatch returns without notifying anyone.
//  3. Otherwise the candidate replaces the current state and every active
//     subscription is notified according to its selector.
//
// Notification order follows registration order, but callers must not depend
// on it. A listener may dispatch again; by default the nested dispatch runs
// to completion, then the outer round resumes with the remaining
// subscriptions, which are evaluated against the outer dispatch's state.
// [WithSkipStaleNotifications] stops the outer round instead once the
// nested dispatch has committed, and [WithQueuedDispatch] defers nested
// dispatches until the round is over.
//
// Reducer and selector panics propagate to the caller. Recovered listener
// panics are returned as [*ListenerError] values joined with [errors.Join].
// [ErrDispatchDepthExceeded] is returned when the depth limit is hit.
func (s *Store[S, A]) Dispatch(action A) error {
	if s.queued && s.notifying {
		s.queue = append(s.queue, action)
		return nil
	}

	if s.maxDepth > 0 && s.depth >= s.maxDepth {
		s.logger.Warn("dispatch depth exceeded",
			"store", s.name,
			"depth", s.depth,
			"action", fmt.Sprintf("%v", action),
		)
		return fmt.Errorf("%w: depth %d reached dispatching %v", ErrDispatchDepthExceeded, s.depth, action)
	}

	s.depth++
	defer func() {
		s.depth--
		if s.depth == 0 {
			// drop anything left behind by a panicking round
			s.queue = nil
		}
	}()

	err := s.apply(action)

	if s.queued && s.depth == 1 {
		for len(s.queue) > 0 {
			next := s.queue[0]
			s.queue = s.queue[1:]
			err = errors.Join(err, s.apply(next))
		}
	}

	return err
}

// apply runs one reducer step and its notification round.
func (s *Store[S, A]) apply(action A) error {
	prev := s.state
	next := s.reducer(prev, action)

	if s.equal(prev, next) {
		return nil
	}

	s.state = next
	s.version++
	s.logger.Debug("state changed",
		"store", s.name,
		"version", s.version,
		"subscriptions", len(s.subs),
	)

	return s.notify(next, s.version)
}

// notify walks a snapshot of the subscriptions taken at the start of the
// round. Subscriptions added during the round, including by a nested
// dispatch, are first notified on the next change; subscriptions removed
// during the round are skipped.
func (s *Store[S, A]) notify(state S, version uint64) error {
	wasNotifying := s.notifying
	s.notifying = true
	defer func() { s.notifying = wasNotifying }()

	var errs []error
	for _, sub := range slices.Clone(s.subs) {
		if s.skipStale && s.version != version {
			break
		}
		if sub.removed {
			continue
		}

		if sub.selector != nil {
			value := sub.selector(state)
			if sub.equal(sub.cached, value) {
				continue
			}
			sub.cached = value
		}

		if err := s.invoke(sub, state); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// invoke calls a listener, recovering panics unless the store propagates them.
func (s *Store[S, A]) invoke(sub *subscription[S], state S) (err error) {
	if s.panics == PropagateListenerPanics {
		sub.listener(state)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			s.logger.Error("listener panic",
				"store", s.name,
				"subscription", sub.id,
				"subscription_name", sub.name,
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = &ListenerError{
				SubscriptionID: sub.id,
				Name:           sub.name,
				CorrelationID:  correlationID,
				Panic:          r,
			}
		}
	}()

	sub.listener(state)
	return nil
}

// Subscribe registers a listener that is invoked on every state change.
//
// A subscription added from inside a listener does not join the round in
// progress; it is first notified on the next state change.
//
// The returned [Unsubscribe] removes the subscription. After it has been
// called the listener is never invoked again, even later in a notification
// round that is already in progress.
//
// Subscribe panics if listener is nil.
func (s *Store[S, A]) Subscribe(listener Listener[S], opts ...SubscribeOption) Unsubscribe {
	return s.register(listener, nil, opts)
}

// SubscribeSelect registers a listener that is invoked only when the value
// derived by sel changes.
//
// The selector runs immediately against the current state; that result is
// the baseline for the first comparison. On each state change the selector
// runs again and its result is compared with the value from the last time
// the listener fired (or the baseline) using [ShallowEqual], or the func set
// with [WithSelectorEqual]. The listener receives the full new state.
//
// Like [Store.Subscribe], a subscription added during a notification round
// is first evaluated on the next state change.
//
// A nil selector behaves like [Store.Subscribe]. A selector that panics here
// propagates the panic and nothing is registered.
func SubscribeSelect[S, A, R any](s *Store[S, A], listener Listener[S], sel Selector[S, R], opts ...SubscribeOption) Unsubscribe {
	if sel == nil {
		return s.register(listener, nil, opts)
	}
	return s.register(listener, func(state S) any { return sel(state) }, opts)
}

func (s *Store[S, A]) register(listener Listener[S], selector func(S) any, opts []SubscribeOption) Unsubscribe {
	if listener == nil {
		panic("ministore: nil listener")
	}

	cfg := &subscribeConfig{equal: ShallowEqual}
	for _, opt := range opts {
		opt(cfg)
	}

	sub := &subscription[S]{
		name:     cfg.name,
		listener: listener,
		selector: selector,
		equal:    cfg.equal,
	}
	if selector != nil {
		sub.cached = selector(s.state)
	}

	s.nextID++
	sub.id = "sub_" + strconv.FormatUint(s.nextID, 10)
	s.subs = append(s.subs, sub)

	s.logger.Debug("subscribed",
		"store", s.name,
		"subscription", sub.id,
		"subscription_name", sub.name,
		"selector", selector != nil,
	)

	return func() { s.remove(sub) }
}

func (s *Store[S, A]) remove(sub *subscription[S]) {
	if sub.removed {
		return
	}
	sub.removed = true

	if i := slices.Index(s.subs, sub); i >= 0 {
		s.subs = slices.Delete(s.subs, i, i+1)
	}

	s.logger.Debug("unsubscribed",
		"store", s.name,
		"subscription", sub.id,
	)
}
