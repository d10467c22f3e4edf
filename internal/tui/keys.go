package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Record   key.Binding
	Play     key.Binding
	Analyze  key.Binding
	Discard  key.Binding
	ReRecord key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Record, k.Play, k.Analyze, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Record, k.Play, k.Analyze},
		{k.Discard, k.ReRecord},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Record: key.NewBinding(
		key.WithKeys(" ", "r"),
		key.WithHelp("space", "record/stop"),
	),
	Play: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "play/stop"),
	),
	Analyze: key.NewBinding(
		key.WithKeys("a", "enter"),
		key.WithHelp("a", "analyze"),
	),
	Discard: key.NewBinding(
		key.WithKeys("d", "x"),
		key.WithHelp("d", "discard"),
	),
	ReRecord: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "record again"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
