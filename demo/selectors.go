package demo

// SelectCounter selects the counter. Subscribers re-render only when it changes.
func SelectCounter(s AppState) int {
	return s.Counter
}

// SelectUser selects the user. A new user value with identical fields does
// not count as a change.
func SelectUser(s AppState) *UserState {
	return s.User
}

// SelectUserName selects just the user's name.
func SelectUserName(s AppState) string {
	if s.User == nil {
		return ""
	}
	return s.User.Name
}

// CounterAndUser is the combined slice returned by [SelectCounterAndUser].
type CounterAndUser struct {
	Counter int
	User    *UserState
}

// SelectCounterAndUser selects the counter and the user reference together.
// Subscribers fire when either changes.
func SelectCounterAndUser(s AppState) CounterAndUser {
	return CounterAndUser{Counter: s.Counter, User: s.User}
}
