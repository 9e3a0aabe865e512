package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Add     key.Binding
	Refresh key.Binding
	QR      key.Binding
	Scan    key.Binding
	Quit    key.Binding
	Next    key.Binding
	Submit  key.Binding
	Close   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		QR:      key.NewBinding(key.WithKeys("enter", "g"), key.WithHelp("g/enter", "qr")),
		Scan:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "scan")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Next:    key.NewBinding(key.WithKeys("tab", "shift+tab", "up", "down")),
		Submit:  key.NewBinding(key.WithKeys("enter")),
		Close:   key.NewBinding(key.WithKeys("esc")),
	}
}

func (k keyMap) listHelp() []key.Binding {
	return []key.Binding{k.Add, k.Refresh, k.QR, k.Scan}
}
