package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	MoveLeft  key.Binding
	MoveRight key.Binding
	Focus     key.Binding
	Select    key.Binding
	New       key.Binding
	Delete    key.Binding
	ToggleSub key.Binding
	Copy      key.Binding
	Search    key.Binding
	Filter    key.Binding
	Calendar  key.Binding
	PrevMonth key.Binding
	NextMonth key.Binding
	Refresh   key.Binding
	Dismiss   key.Binding
	Quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
		Left:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("←/h", "column")),
		Right:     key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("→/l", "column")),
		MoveLeft:  key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "move left")),
		MoveRight: key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "move right")),
		Focus:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "projects")),
		Select:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		New:       key.NewBinding(key.WithKeys("n", "a"), key.WithHelp("n", "new")),
		Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		ToggleSub: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "check sub-task")),
		Copy:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
		Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Filter:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		Calendar:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "calendar")),
		PrevMonth: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev month")),
		NextMonth: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next month")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Dismiss:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.MoveLeft, k.MoveRight, k.New, k.ToggleSub, k.Copy, k.Search, k.Filter, k.Calendar, k.Focus, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.MoveLeft, k.MoveRight, k.ToggleSub, k.Copy},
		{k.New, k.Delete, k.Search, k.Filter},
		{k.Calendar, k.PrevMonth, k.NextMonth, k.Refresh, k.Quit},
	}
}
