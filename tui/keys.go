package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

type KeyMap struct {
	// global
	Quit key.Binding
	Help key.Binding

	// browse
	Search   key.Binding
	PrevPage key.Binding
	NextPage key.Binding
	New      key.Binding
	Refresh  key.Binding
	Dismiss  key.Binding

	// search input
	Done key.Binding

	// create modal
	Submit  key.Binding
	Cancel  key.Binding
	NextFld key.Binding
	PrevTag key.Binding
	NextTag key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),

		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "prev page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next page"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "create note"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "dismiss toasts"),
		),

		Done: key.NewBinding(
			key.WithKeys("enter", "esc"),
			key.WithHelp("enter/esc", "done"),
		),

		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "create"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		NextFld: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		PrevTag: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "prev tag"),
		),
		NextTag: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "next tag"),
		),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Search,
		k.PrevPage,
		k.NextPage,
		k.New,
		k.Help,
		k.Quit,
	}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.Done},
		{k.PrevPage, k.NextPage},
		{k.New, k.Refresh},
		{k.Dismiss, k.Help},
		{k.Quit},
	}
}

// formKeyMap shows the bindings of the create modal.
type formKeyMap struct {
	KeyMap
}

func (k formKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Submit,
		k.NextFld,
		k.PrevTag,
		k.NextTag,
		k.Cancel,
	}
}

func (k formKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
