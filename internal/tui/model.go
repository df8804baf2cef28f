// Package tui is the terminal rendition of the counter-and-user demo.
//
// Four components share one store. Counter Display and User Display each
// subscribe with a selector and count their renders, so it is visible that
// a counter change never re-renders the user card and vice versa. The
// controls only dispatch.
//
// Bubble Tea calls Update on a single goroutine, which is where the store
// lives. Listeners therefore run synchronously inside Update.
package tui

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jpalmerr/ministore"
	"github.com/jpalmerr/ministore/demo"
)

type inputMode int

const (
	modeNone inputMode = iota
	modeSetCounter
	modeName
	modeAge
)

// Model is the Bubble Tea model for the demo.
type Model struct {
	store  *demo.Store
	logger *slog.Logger
	title  string

	counter counterDisplay
	user    userDisplay
	unsubs  []ministore.Unsubscribe

	keys  keyMap
	help  help.Model
	input textinput.Model
	mode  inputMode

	status string
	err    string
	width  int
}

// New builds a Model over store and subscribes its display components.
func New(store *demo.Store, title string, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	if title == "" {
		title = "ministore"
	}

	in := textinput.New()
	in.CharLimit = 64

	m := &Model{
		store:  store,
		logger: logger,
		title:  title,
		keys:   newKeyMap(),
		help:   help.New(),
		input:  in,
	}
	m.unsubs = append(m.unsubs,
		m.counter.subscribe(store),
		m.user.subscribe(store),
	)
	return m
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.mode != modeNone {
			return m.updateInput(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Increment):
			m.dispatch(demo.Increment())
		case key.Matches(msg, m.keys.Decrement):
			m.dispatch(demo.Decrement())
		case key.Matches(msg, m.keys.Reset):
			m.dispatch(demo.Reset())
		case key.Matches(msg, m.keys.SetCounter):
			return m, m.startInput(modeSetCounter, "counter: ", strconv.Itoa(m.counter.counter))
		case key.Matches(msg, m.keys.EditName):
			return m, m.startInput(modeName, "name: ", m.user.name)
		case key.Matches(msg, m.keys.EditAge):
			return m, m.startInput(modeAge, "age: ", strconv.Itoa(m.user.age))
		}
	}
	return m, nil
}

func (m *Model) startInput(mode inputMode, prompt, value string) tea.Cmd {
	m.mode = mode
	m.err = ""
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.stopInput()
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		m.submit(strings.TrimSpace(m.input.Value()))
		m.stopInput()
		return m, nil
	case msg.Type == tea.KeyCtrlC:
		m.Close()
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) stopInput() {
	m.mode = modeNone
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) submit(value string) {
	switch m.mode {
	case modeName:
		m.dispatch(demo.UpdateUserName(value))
	case modeSetCounter, modeAge:
		n, err := strconv.Atoi(value)
		if err != nil {
			m.err = "not a number: " + value
			return
		}
		if m.mode == modeSetCounter {
			m.dispatch(demo.SetCounter(n))
		} else {
			m.dispatch(demo.UpdateUserAge(n))
		}
	}
}

func (m *Model) dispatch(action ministore.Action) {
	before := m.store.Version()
	err := m.store.Dispatch(action)

	m.err = ""
	if err != nil {
		m.logger.Error("dispatch failed", "action", action.String(), "error", err)
		var lerr *ministore.ListenerError
		if errors.As(err, &lerr) {
			m.err = "listener failed (correlation_id: " + lerr.CorrelationID + ")"
		} else {
			m.err = err.Error()
		}
	}

	if m.store.Version() == before {
		m.status = action.String() + ": no change"
	} else {
		m.status = action.String() + ": v" + strconv.FormatUint(m.store.Version(), 10)
	}
}

// Close removes the component subscriptions. Safe to call more than once.
func (m *Model) Close() {
	for _, unsub := range m.unsubs {
		unsub()
	}
}

// Renders returns how many times the counter and user displays rendered,
// including the initial render.
func (m *Model) Renders() (counter, user int) {
	return m.counter.renders, m.user.renders
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title) + "\n\n")

	counterControls := controlsView("Counter Controls",
		"+ / -  change by one",
		"0      reset",
		"s      set value",
	)
	userControls := controlsView("User Controls",
		"n  edit name",
		"a  edit age",
	)

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.counter.view(), counterControls) + "\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.user.view(), userControls) + "\n")

	if m.mode != modeNone {
		b.WriteString(m.input.View() + "\n")
	}
	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err) + "\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}

	b.WriteString("\n")
	if m.mode != modeNone {
		b.WriteString(m.help.View(inputKeyMap{Submit: m.keys.Submit, Cancel: m.keys.Cancel}))
	} else {
		b.WriteString(m.help.View(m.keys))
	}
	return b.String()
}

// Run starts the terminal UI and blocks until the user quits.
func Run(store *demo.Store, title string, logger *slog.Logger, opts ...tea.ProgramOption) error {
	m := New(store, title, logger)
	defer m.Close()

	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}
