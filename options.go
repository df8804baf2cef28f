package ministore

import (
	"errors"
	"log/slog"
)

// PanicPolicy controls what happens when a listener panics during a
// notification round.
type PanicPolicy int

const (
	// RecoverListenerPanics recovers the panic, logs it with a correlation ID
	// and keeps notifying the remaining listeners. The panic is reported as a
	// [*ListenerError] in the error returned by [Store.Dispatch].
	RecoverListenerPanics PanicPolicy = iota

	// PropagateListenerPanics lets the panic unwind to the caller of
	// [Store.Dispatch]. Listeners later in the round are not invoked.
	PropagateListenerPanics
)

// String returns the policy name as used in configuration files.
func (p PanicPolicy) String() string {
	switch p {
	case RecoverListenerPanics:
		return "recover"
	case PropagateListenerPanics:
		return "propagate"
	default:
		return "unknown"
	}
}

// storeConfig holds mutable state during Store construction.
type storeConfig struct {
	name      string
	logger    *slog.Logger
	equal     EqualFunc
	maxDepth  int
	queued    bool
	skipStale bool
	panics    PanicPolicy
}

// Option is a function that configures a [Store] during construction.
//
// Option implements the functional options pattern. Options return an error
// if validation fails, which [New] passes back to the caller.
type Option func(*storeConfig) error

// WithLogger sets the [slog.Logger] used for store diagnostics.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *storeConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithName labels the store in log output.
//
// If not specified, a random UUID is used.
func WithName(name string) Option {
	return func(cfg *storeConfig) error {
		if name == "" {
			return errors.New("store name cannot be empty")
		}
		cfg.name = name
		return nil
	}
}

// WithEqual replaces the top-level state comparison used by
// [Store.Dispatch]. Selector values are still compared with [ShallowEqual]
// unless the subscription overrides it with [WithSelectorEqual].
//
// Returns an error if eq is nil.
func WithEqual(eq EqualFunc) Option {
	return func(cfg *storeConfig) error {
		if eq == nil {
			return errors.New("equal func cannot be nil")
		}
		cfg.equal = eq
		return nil
	}
}

// WithMaxDispatchDepth limits how deeply dispatches may nest when listeners
// dispatch from inside a notification round. A dispatch beyond the limit
// returns [ErrDispatchDepthExceeded] without calling the reducer.
//
// Zero, the default, leaves nesting unbounded: a listener that always
// re-dispatches will recurse until the stack is exhausted.
//
// Returns an error if n is negative.
func WithMaxDispatchDepth(n int) Option {
	return func(cfg *storeConfig) error {
		if n < 0 {
			return errors.New("max dispatch depth cannot be negative")
		}
		cfg.maxDepth = n
		return nil
	}
}

// WithQueuedDispatch makes dispatches issued during a notification round
// wait in a FIFO queue. The outermost [Store.Dispatch] drains the queue after
// its own round completes, so listeners never run reentrantly.
func WithQueuedDispatch() Option {
	return func(cfg *storeConfig) error {
		cfg.queued = true
		return nil
	}
}

// WithSkipStaleNotifications ends a notification round early once a nested
// dispatch from one of its listeners has committed a newer state. The nested
// round has already evaluated every subscription against that newer state,
// so the remaining listeners of the outer round are not handed the older one.
//
// By default the outer round resumes after the nested dispatch returns and
// the remaining subscriptions are evaluated against the state of the outer
// dispatch.
func WithSkipStaleNotifications() Option {
	return func(cfg *storeConfig) error {
		cfg.skipStale = true
		return nil
	}
}

// WithListenerPanics selects how listener panics are handled.
// Defaults to [RecoverListenerPanics].
func WithListenerPanics(p PanicPolicy) Option {
	return func(cfg *storeConfig) error {
		if p != RecoverListenerPanics && p != PropagateListenerPanics {
			return errors.New("unknown listener panic policy")
		}
		cfg.panics = p
		return nil
	}
}

// subscribeConfig holds per-subscription settings.
type subscribeConfig struct {
	name  string
	equal EqualFunc
}

// SubscribeOption configures a single subscription.
type SubscribeOption func(*subscribeConfig)

// WithSubscriptionName labels a subscription in logs and in [ListenerError].
func WithSubscriptionName(name string) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.name = name
	}
}

// WithSelectorEqual replaces [ShallowEqual] for comparing a subscription's
// selected values. It has no effect on subscriptions without a selector.
// A nil func is ignored.
func WithSelectorEqual(eq EqualFunc) SubscribeOption {
	return func(cfg *subscribeConfig) {
		if eq != nil {
			cfg.equal = eq
		}
	}
}
