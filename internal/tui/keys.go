package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Increment  key.Binding
	Decrement  key.Binding
	Reset      key.Binding
	SetCounter key.Binding
	EditName   key.Binding
	EditAge    key.Binding
	Submit     key.Binding
	Cancel     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Increment:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "increment")),
		Decrement:  key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "decrement")),
		Reset:      key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset")),
		SetCounter: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "set counter")),
		EditName:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "edit name")),
		EditAge:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "edit age")),
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Increment, k.Decrement, k.EditName, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Increment, k.Decrement, k.Reset, k.SetCounter},
		{k.EditName, k.EditAge, k.Submit, k.Cancel},
		{k.Help, k.Quit},
	}
}

// inputKeyMap is shown while a text field has focus.
type inputKeyMap struct {
	Submit key.Binding
	Cancel key.Binding
}

func (k inputKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel}
}

func (k inputKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
