// Package ministore provides a small, synchronous publish/subscribe state
// container for driving UI components.
//
// A [Store] holds a single state value, a [Reducer] that computes new states
// from actions, and an ordered set of subscriptions. It follows the familiar
// reducer pattern: callers never mutate state directly; they dispatch an
// action and the reducer returns a brand-new value.
//
// # Quick Start
//
//	type state struct {
//	    Counter int
//	}
//
//	reducer := func(s state, a ministore.Action) state {
//	    if a.Type == "INCREMENT" {
//	        return state{Counter: s.Counter + 1}
//	    }
//	    return s
//	}
//
//	store, _ := ministore.New(reducer, state{})
//	unsubscribe := store.Subscribe(func(s state) {
//	    fmt.Println("counter is now", s.Counter)
//	})
//	defer unsubscribe()
//
//	_ = store.Dispatch(ministore.Action{Type: "INCREMENT"})
//
// # Change Detection
//
// After every dispatch the candidate state is compared to the current state
// with [ShallowEqual]: identical references are unchanged, scalars compare by
// value, and composite values (structs, maps, slices, pointers to those) are
// compared one level deep. If nothing changed, no listener runs and the stored
// value is left untouched.
//
// Subscriptions created with [SubscribeSelect] narrow their sensitivity to a
// derived value. The selector runs once at registration to capture a baseline
// and again on every state change; the listener only fires when the selected
// value differs (shallowly) from the last value it was notified with.
//
// # Failure Handling
//
// Reducer and selector panics propagate to the caller of [Store.Dispatch];
// the state is not replaced when the reducer panics. Listener panics are
// recovered by default so that the remaining listeners of the round still
// run; each recovered panic is logged with a correlation ID and reported as a
// [*ListenerError] in the error returned by Dispatch. Use
// [WithListenerPanics] with [PropagateListenerPanics] to let them unwind.
//
// # Concurrency
//
// A Store is not safe for concurrent use. Every call, including reentrant
// dispatches made from inside a listener, happens on the caller's goroutine
// before Dispatch returns. Hosts that receive work from several goroutines
// should funnel it through a single owner goroutine.
package ministore
