package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keyboard bindings. Pane-local editing keys
// are handled by the views themselves.
type KeyMap struct {
	NextPane key.Binding
	Messages key.Binding
	Assist   key.Binding
	Files    key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextPane: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next pane"),
		),
		Messages: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "traffic"),
		),
		Assist: key.NewBinding(
			key.WithKeys("f2"),
			key.WithHelp("F2", "assist"),
		),
		Files: key.NewBinding(
			key.WithKeys("f3"),
			key.WithHelp("F3", "files"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}
