package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds all key bindings for the reveal UI.
type KeyMap struct {
	Continue key.Binding
	OptionA  key.Binding
	OptionB  key.Binding
	Switch   key.Binding
	Flip     key.Binding
	Back     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Continue: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "view gift")),
		OptionA:  key.NewBinding(key.WithKeys("1", "a"), key.WithHelp("1", "gift 1")),
		OptionB:  key.NewBinding(key.WithKeys("2", "b"), key.WithHelp("2", "gift 2")),
		Switch:   key.NewBinding(key.WithKeys("tab", "left", "right", "h", "l"), key.WithHelp("←/→", "switch")),
		Flip:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "flip card")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.OptionA, k.OptionB, k.Flip, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Continue, k.OptionA, k.OptionB, k.Switch},
		{k.Flip, k.Back, k.Help, k.Quit},
	}
}
