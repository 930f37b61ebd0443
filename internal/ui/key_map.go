package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up          key.Binding
	down        key.Binding
	toggle      key.Binding
	download    key.Binding
	update      key.Binding
	credentials key.Binding
	submit      key.Binding
	next        key.Binding
	back        key.Binding
	restart     key.Binding
	quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		toggle:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "check")),
		download:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download")),
		update:      key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "update")),
		credentials: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "credentials")),
		submit:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		next:        key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next field")),
		back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		restart:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "back to playlists")),
		quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.toggle},
		{k.download, k.update, k.credentials},
		{k.restart, k.quit},
	}
}
