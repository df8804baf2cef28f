package tui

import (
	"io"
	"log/slog"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/ministore"
	"github.com/jpalmerr/ministore/demo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestModel(t *testing.T) (*Model, *demo.Store) {
	t.Helper()
	store, err := demo.NewStore(demo.InitialState(), ministore.WithLogger(testLogger()))
	require.NoError(t, err)
	return New(store, "Test", testLogger()), store
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m *Model, msgs ...tea.Msg) {
	for _, msg := range msgs {
		m.Update(msg)
	}
}

func TestNew_InitialRender(t *testing.T) {
	m, store := newTestModel(t)

	counter, user := m.Renders()
	assert.Equal(t, 1, counter)
	assert.Equal(t, 1, user)
	assert.Equal(t, 2, store.Len())

	view := m.View()
	assert.Contains(t, view, "Test")
	assert.Contains(t, view, "Counter Display")
	assert.Contains(t, view, "John Doe")
}

func TestIncrement_RendersCounterOnly(t *testing.T) {
	m, store := newTestModel(t)

	press(m, runes("+"), runes("+"), runes("-"))

	assert.Equal(t, 1, store.GetState().Counter)
	counter, user := m.Renders()
	assert.Equal(t, 4, counter)
	assert.Equal(t, 1, user)
	assert.Contains(t, m.View(), "DECREMENT: v3")
}

func TestReset_NoChangeAtZero(t *testing.T) {
	m, _ := newTestModel(t)

	press(m, runes("0"))

	counter, _ := m.Renders()
	assert.Equal(t, 1, counter)
	assert.Contains(t, m.View(), "RESET: no change")
}

func TestEditName_RendersBothDisplays(t *testing.T) {
	m, store := newTestModel(t)

	press(m, runes("n"))
	require.Equal(t, modeName, m.mode)
	assert.Equal(t, "John Doe", m.input.Value())

	m.input.SetValue("Alice")
	press(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, modeNone, m.mode)
	assert.Equal(t, "Alice", store.GetState().User.Name)

	// the counter display shows the name too, so it re-renders
	counter, user := m.Renders()
	assert.Equal(t, 2, counter)
	assert.Equal(t, 2, user)
}

func TestEditAge_RendersBothDisplays(t *testing.T) {
	m, store := newTestModel(t)

	press(m, runes("a"))
	m.input.SetValue("31")
	press(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, 31, store.GetState().User.Age)
	// a new age is a new user value, which the counter display also selects
	counter, user := m.Renders()
	assert.Equal(t, 2, counter)
	assert.Equal(t, 2, user)
}

func TestSetCounter_SameValueRendersNothing(t *testing.T) {
	m, store := newTestModel(t)

	press(m, runes("s"))
	m.input.SetValue("0")
	press(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, uint64(0), store.Version())
	counter, user := m.Renders()
	assert.Equal(t, 1, counter)
	assert.Equal(t, 1, user)
}

func TestSetCounter_NotANumber(t *testing.T) {
	m, store := newTestModel(t)

	press(m, runes("s"))
	m.input.SetValue("ten")
	press(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, 0, store.GetState().Counter)
	assert.Contains(t, m.View(), "not a number: ten")
}

func TestInput_TypingAndCancel(t *testing.T) {
	m, store := newTestModel(t)

	press(m, runes("n"))
	m.input.SetValue("")
	press(m, runes("B"), runes("o"), runes("b"))
	assert.Equal(t, "Bob", m.input.Value())

	// keys that are bindings outside input mode are plain text inside it
	press(m, runes("+"))
	assert.Equal(t, "Bob+", m.input.Value())
	assert.Equal(t, 0, store.GetState().Counter)

	press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeNone, m.mode)
	assert.Equal(t, "John Doe", store.GetState().User.Name)
}

func TestListenerFailureShown(t *testing.T) {
	m, store := newTestModel(t)
	store.Subscribe(func(demo.AppState) { panic("boom") })

	press(m, runes("+"))

	assert.Equal(t, 1, store.GetState().Counter)
	assert.Contains(t, m.View(), "listener failed")
}

func TestQuit_Unsubscribes(t *testing.T) {
	m, store := newTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 0, store.Len())

	// closing again is harmless
	m.Close()
	assert.Equal(t, 0, store.Len())
}

func TestHelp_Toggle(t *testing.T) {
	m, _ := newTestModel(t)

	assert.False(t, m.help.ShowAll)
	press(m, runes("?"))
	assert.True(t, m.help.ShowAll)
	assert.Contains(t, m.View(), "set counter")
}
