// Package keymap holds the TUI key bindings. Views match keys through these
// bindings, and the help screen and status bar render from them.
package keymap

import "github.com/charmbracelet/bubbles/key"

// KeyMap is the full set of bindings. Several share a key; which one applies
// depends on the view and whether its input has focus.
type KeyMap struct {
	Quit   key.Binding
	Back   key.Binding
	Submit key.Binding
	Up     key.Binding
	Down   key.Binding
	Select key.Binding

	NewQuery key.Binding
	Preview  key.Binding
	Scope    key.Binding
	Delete   key.Binding
	Reload   key.Binding
	Index    key.Binding
}

// Section is one titled block of the help screen.
type Section struct {
	Title    string
	Bindings []key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns the stock bindings. Plain letters are only read while
// no text input is focused.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit:   bind("ctrl+c", "quit", "ctrl+c"),
		Back:   bind("esc", "back", "esc"),
		Submit: bind("enter", "submit", "enter"),
		Up:     bind("↑/k", "up", "up", "k"),
		Down:   bind("↓/j", "down", "down", "j"),
		Select: bind("enter", "open", "enter"),

		NewQuery: bind("n", "new query", "n"),
		Preview:  bind("enter", "toggle preview", "enter"),
		Scope:    bind("tab", "codebase / documents", "tab"),
		Delete:   bind("d", "delete", "d"),
		Reload:   bind("r", "reload", "r"),
		Index:    bind("i", "rebuild index", "i"),
	}
}

// ShortHelp is shown in the status bar while idle.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Back, k.Quit}
}

// ResultsHelp is shown in the status bar once results are listed.
func (k *KeyMap) ResultsHelp() []key.Binding {
	return []key.Binding{k.NewQuery, k.Up, k.Preview, k.Back}
}

// Sections lists the bindings per view for the help screen.
func (k *KeyMap) Sections() []Section {
	return []Section{
		{"Navigation", []key.Binding{k.Up, k.Down, k.Select, k.Back, k.Quit}},
		{"Search", []key.Binding{k.Submit, k.Preview, k.NewQuery, k.Index}},
		{"Ask", []key.Binding{k.Submit, k.Scope}},
		{"Generate", []key.Binding{k.Submit, k.NewQuery}},
		{"Documents", []key.Binding{k.Select, k.Delete, k.Reload}},
	}
}
