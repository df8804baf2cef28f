// Package demo provides the counter-and-user application state used by the
// ministore dashboard, terminal UI and CLI.
//
// The state has two slices: a counter and a user profile. Selectors let UI
// components subscribe to just the slice they render:
//
//	store, _ := demo.NewStore(demo.InitialState())
//	ministore.SubscribeSelect(store, render, demo.SelectCounter)
//	_ = store.Dispatch(demo.Increment())
package demo

import (
	"encoding/json"
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/jpalmerr/ministore"
)

// Action types understood by [Reducer].
const (
	ActionIncrement      = "INCREMENT"
	ActionDecrement      = "DECREMENT"
	ActionReset          = "RESET"
	ActionSetCounter     = "SET_COUNTER"
	ActionUpdateUserName = "UPDATE_USER_NAME"
	ActionUpdateUserAge  = "UPDATE_USER_AGE"
)

// UserState is the user slice of [AppState].
type UserState struct {
	Name string `json:"name" yaml:"name"`
	Age  int    `json:"age" yaml:"age"`
}

// AppState is the whole demo state.
//
// User is a pointer so that actions which do not touch the user keep the
// same reference, which is what selector-based subscriptions compare.
type AppState struct {
	Counter int        `json:"counter" yaml:"counter"`
	User    *UserState `json:"user" yaml:"user"`
}

// Store is a ministore store over the demo state.
type Store = ministore.Store[AppState, ministore.Action]

// InitialState returns the default demo state: counter 0, user John Doe aged 25.
func InitialState() AppState {
	return AppState{
		Counter: 0,
		User:    &UserState{Name: "John Doe", Age: 25},
	}
}

// NewStore creates a store over the demo reducer.
func NewStore(initial AppState, opts ...ministore.Option) (*Store, error) {
	if initial.User == nil {
		initial.User = &UserState{}
	}
	return ministore.New(Reducer, initial, opts...)
}

// Increment returns an INCREMENT action.
func Increment() ministore.Action { return ministore.Action{Type: ActionIncrement} }

// Decrement returns a DECREMENT action.
func Decrement() ministore.Action { return ministore.Action{Type: ActionDecrement} }

// Reset returns a RESET action.
func Reset() ministore.Action { return ministore.Action{Type: ActionReset} }

// SetCounter returns a SET_COUNTER action.
func SetCounter(n int) ministore.Action {
	return ministore.Action{Type: ActionSetCounter, Payload: n}
}

// UpdateUserName returns an UPDATE_USER_NAME action.
func UpdateUserName(name string) ministore.Action {
	return ministore.Action{Type: ActionUpdateUserName, Payload: name}
}

// UpdateUserAge returns an UPDATE_USER_AGE action.
func UpdateUserAge(age int) ministore.Action {
	return ministore.Action{Type: ActionUpdateUserAge, Payload: age}
}

// Reducer applies a demo action.
//
// Unknown action types and payloads of the wrong type return the state
// unchanged. Numeric payloads may be ints, whole float64 values (as decoded
// from JSON) or json.Number. Names are trimmed and NFC-normalised; an empty
// name is ignored. Negative ages are ignored.
func Reducer(state AppState, action ministore.Action) AppState {
	switch action.Type {
	case ActionIncrement:
		return AppState{Counter: state.Counter + 1, User: state.User}

	case ActionDecrement:
		return AppState{Counter: state.Counter - 1, User: state.User}

	case ActionReset:
		return AppState{Counter: 0, User: state.User}

	case ActionSetCounter:
		n, ok := intPayload(action.Payload)
		if !ok {
			return state
		}
		return AppState{Counter: n, User: state.User}

	case ActionUpdateUserName:
		name, ok := action.Payload.(string)
		if !ok {
			return state
		}
		name = norm.NFC.String(strings.TrimSpace(name))
		if name == "" {
			return state
		}
		return AppState{Counter: state.Counter, User: &UserState{Name: name, Age: userAge(state.User)}}

	case ActionUpdateUserAge:
		age, ok := intPayload(action.Payload)
		if !ok || age < 0 {
			return state
		}
		return AppState{Counter: state.Counter, User: &UserState{Name: userName(state.User), Age: age}}

	default:
		return state
	}
}

func userName(u *UserState) string {
	if u == nil {
		return ""
	}
	return u.Name
}

func userAge(u *UserState) int {
	if u == nil {
		return 0
	}
	return u.Age
}

// intPayload converts the numeric payload shapes produced by Go callers,
// encoding/json and yaml.v3. Values outside the int range are rejected.
func intPayload(p any) (int, bool) {
	switch v := p.(type) {
	case int:
		return v, true
	case int64:
		return int64ToInt(v)
	case int32:
		return int(v), true
	case uint64:
		if v > math.MaxInt {
			return 0, false
		}
		return int(v), true
	case float64:
		// float64(math.MaxInt) rounds up to 2^63, so the upper bound is exclusive
		if v != math.Trunc(v) || v < float64(math.MinInt) || v >= -float64(math.MinInt) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int64ToInt(n)
	default:
		return 0, false
	}
}

func int64ToInt(v int64) (int, bool) {
	if v < math.MinInt || v > math.MaxInt {
		return 0, false
	}
	return int(v), true
}
