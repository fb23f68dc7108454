package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Enter  key.Binding
	Tab    key.Binding
	Pause  key.Binding
	Back   key.Binding
	Menu   key.Binding
	Reset  key.Binding
	Quit   key.Binding
	ForceQ key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "decrease")),
		Right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "increase")),
		Enter:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "select")),
		Tab:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "settings")),
		Pause:  key.NewBinding(key.WithKeys("p", "esc"), key.WithHelp("p/esc", "pause")),
		Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Menu:   key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "main menu")),
		Reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset settings")),
		Quit:   key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQ: key.NewBinding(key.WithKeys("ctrl+c")),
	}
}
