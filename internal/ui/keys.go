package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keyMap holds the viewer's bindings in normal mode
type keyMap struct {
	NextPage  key.Binding
	PrevPage  key.Binding
	FirstPage key.Binding
	LastPage  key.Binding
	ScrollUp  key.Binding
	ScrollDn  key.Binding
	ZoomIn    key.Binding
	ZoomOut   key.Binding
	Search    key.Binding
	FindNext  key.Binding
	FindPrev  key.Binding
	Clear     key.Binding
	Pager     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// searchKeys apply while the search input has focus
type searchKeys struct {
	Submit key.Binding
	Next   key.Binding
	Prev   key.Binding
	Leave  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextPage:  key.NewBinding(key.WithKeys("right", "l", "pgdown", " "), key.WithHelp("→/l", "next page")),
		PrevPage:  key.NewBinding(key.WithKeys("left", "h", "pgup"), key.WithHelp("←/h", "prev page")),
		FirstPage: key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "first page")),
		LastPage:  key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "last page")),
		ScrollUp:  key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "scroll up")),
		ScrollDn:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "scroll down")),
		ZoomIn:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "zoom out")),
		Search:    key.NewBinding(key.WithKeys("/", "ctrl+f"), key.WithHelp("/", "search")),
		FindNext:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next match")),
		FindPrev:  key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "prev match")),
		Clear:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear search")),
		Pager:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open page in pager")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func defaultSearchKeys() searchKeys {
	return searchKeys{
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
		Next:   key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "next match")),
		Prev:   key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "prev match")),
		Leave:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back to document")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPage, k.PrevPage, k.Search, k.FindNext, k.ZoomIn, k.ZoomOut, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextPage, k.PrevPage, k.FirstPage, k.LastPage, k.ScrollUp, k.ScrollDn},
		{k.Search, k.FindNext, k.FindPrev, k.Clear},
		{k.ZoomIn, k.ZoomOut, k.Pager, k.Help, k.Quit},
	}
}

// ShortHelp implements help.KeyMap
func (k searchKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Next, k.Prev, k.Leave}
}

// FullHelp implements help.KeyMap
func (k searchKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
