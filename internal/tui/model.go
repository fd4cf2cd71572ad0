// Package tui renders the board in a terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/eyetracktask/eyetrack/internal/board"
	"github.com/eyetracktask/eyetrack/internal/domain/entities"
)

type appState int

const (
	stateBoard appState = iota
	stateSearch
	stateNewTask
	stateNewProject
	stateConfirmDelete
)

type pane int

const (
	paneColumns pane = iota
	paneSidebar
)

type boardChangedMsg struct{}

type boardErrorMsg struct{ err error }

type refreshedMsg struct{ err error }

// syncedMsg reports a store call that waited for the backend.
type syncedMsg struct{ err error }

// Option configures a Model.
type Option func(*Model)

// WithClock replaces the source of today's date.
func WithClock(today func() entities.Date) Option {
	return func(m *Model) { m.today = today }
}

// WithClipboard replaces the clipboard writer used by the copy key.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) { m.copy = write }
}

// StartInCalendar opens the month view instead of the board.
func StartInCalendar() Option {
	return func(m *Model) { m.calendar = true }
}

// Model is the top-level bubbletea model of the board.
type Model struct {
	ctx   context.Context
	store *board.Store
	keys  keyMap
	help  help.Model
	input textinput.Model

	state    appState
	pane     pane
	calendar bool

	projectCursor int
	column        int
	row           int
	query         string
	statusFilter  entities.TaskStatus
	month         time.Time

	notice string
	err    error

	today func() entities.Date
	copy  func(string) error

	width  int
	height int
}

// NewModel creates a model over s. The store should already be refreshed or
// refreshing; Init triggers a refresh otherwise.
func NewModel(ctx context.Context, s *board.Store, opts ...Option) Model {
	ti := textinput.New()
	ti.CharLimit = 500

	m := Model{
		ctx:   ctx,
		store: s,
		keys:  newKeyMap(),
		help:  help.New(),
		input: ti,
		today: entities.Today,
		copy:  clipboard.WriteAll,
	}
	for _, opt := range opts {
		opt(&m)
	}
	today := m.today()
	m.month = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	m.syncProjectCursor()
	return m
}

func (m Model) Init() tea.Cmd {
	if len(m.store.Projects()) > 0 {
		return nil
	}
	return m.refresh
}

func (m Model) refresh() tea.Msg {
	return refreshedMsg{err: m.store.Refresh(m.ctx)}
}

// sync runs a confirmed store call off the update loop.
func (m Model) sync(call func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return syncedMsg{err: call(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case boardChangedMsg:
		m.err = m.store.Err()
		m.syncProjectCursor()
		m.clampCursor()
		return m, nil

	case boardErrorMsg:
		m.err = msg.err
		return m, nil

	case refreshedMsg:
		m.err = msg.err
		m.syncProjectCursor()
		m.clampCursor()
		return m, nil

	case syncedMsg:
		m.setErr(msg.err)
		m.syncProjectCursor()
		m.clampCursor()
		return m, nil
	}

	switch m.state {
	case stateSearch, stateNewTask, stateNewProject:
		return m.updateInput(msg)
	case stateConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m.updateBoard(msg)
}

func (m Model) updateBoard(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.notice = ""

	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Dismiss):
		if m.err != nil {
			m.store.DismissError()
			m.err = nil
		} else if m.query != "" || m.statusFilter != "" {
			m.query = ""
			m.statusFilter = ""
			m.clampCursor()
		}
		return m, nil
	case key.Matches(keyMsg, m.keys.Refresh):
		return m, m.refresh
	case key.Matches(keyMsg, m.keys.Calendar):
		m.calendar = !m.calendar
		return m, nil
	case key.Matches(keyMsg, m.keys.Focus):
		if m.pane == paneColumns {
			m.pane = paneSidebar
		} else {
			m.pane = paneColumns
		}
		return m, nil
	}

	if m.calendar {
		switch {
		case key.Matches(keyMsg, m.keys.PrevMonth), key.Matches(keyMsg, m.keys.Left):
			m.month = m.month.AddDate(0, -1, 0)
		case key.Matches(keyMsg, m.keys.NextMonth), key.Matches(keyMsg, m.keys.Right):
			m.month = m.month.AddDate(0, 1, 0)
		}
		return m, nil
	}

	if m.pane == paneSidebar {
		return m.updateSidebar(keyMsg)
	}
	return m.updateColumns(keyMsg)
}

func (m Model) updateSidebar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	projects := m.store.Projects()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.projectCursor > 0 {
			m.projectCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.projectCursor < len(projects)-1 {
			m.projectCursor++
		}
	case key.Matches(msg, m.keys.Select):
		if m.projectCursor < len(projects) {
			m.setErr(m.store.SelectProject(projects[m.projectCursor].ID))
			m.column, m.row = 0, 0
			m.pane = paneColumns
		}
	case key.Matches(msg, m.keys.New):
		return m.startInput(stateNewProject, "Project name...", "")
	case key.Matches(msg, m.keys.Delete):
		if m.projectCursor < len(projects) {
			m.state = stateConfirmDelete
		}
	}
	return m, nil
}

func (m Model) updateColumns(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Left):
		if m.column > 0 {
			m.column--
			m.clampCursor()
		}
	case key.Matches(msg, m.keys.Right):
		if m.column < len(entities.StatusColumns)-1 {
			m.column++
			m.clampCursor()
		}
	case key.Matches(msg, m.keys.Up):
		if m.row > 0 {
			m.row--
		}
	case key.Matches(msg, m.keys.Down):
		m.row++
		m.clampCursor()
	case key.Matches(msg, m.keys.MoveLeft):
		m.moveSelected(-1)
	case key.Matches(msg, m.keys.MoveRight):
		m.moveSelected(1)
	case key.Matches(msg, m.keys.ToggleSub):
		cmd := m.toggleFirstOpenSubTask()
		return m, cmd
	case key.Matches(msg, m.keys.Copy):
		m.copySelected()
	case key.Matches(msg, m.keys.Search):
		return m.startInput(stateSearch, "Search tasks...", m.query)
	case key.Matches(msg, m.keys.Filter):
		m.statusFilter = nextFilter(m.statusFilter)
		if m.statusFilter != "" {
			m.column = columnIndex(m.statusFilter)
		}
		m.clampCursor()
	case key.Matches(msg, m.keys.New):
		return m.startInput(stateNewTask, "Task title...", "")
	case key.Matches(msg, m.keys.Delete):
		if _, ok := m.selectedTask(); ok {
			m.state = stateConfirmDelete
		}
	}
	return m, nil
}

func (m Model) startInput(state appState, placeholder, value string) (tea.Model, tea.Cmd) {
	m.state = state
	m.input.Reset()
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	return m, m.input.Focus()
}

func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "enter":
			value := m.input.Value()
			switch m.state {
			case stateSearch:
				m.query = strings.TrimSpace(value)
				m.row = 0
			case stateNewTask:
				if p := m.store.CurrentProject(); p != nil {
					_, err := m.store.AddTask(m.ctx, p.ID, value, "", nil, "")
					m.setErr(err)
					m.column = 0
				}
			case stateNewProject:
				_, err := m.store.CreateProject(m.ctx, value, "")
				m.setErr(err)
				m.pane = paneColumns
				m.column, m.row = 0, 0
			}
			m.state = stateBoard
			m.input.Blur()
			m.clampCursor()
			return m, nil
		case "esc":
			if m.state == stateSearch {
				m.query = ""
			}
			m.state = stateBoard
			m.input.Blur()
			m.clampCursor()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "y":
		m.state = stateBoard
		if m.pane == paneSidebar {
			projects := m.store.Projects()
			if m.projectCursor < len(projects) {
				id := projects[m.projectCursor].ID
				return m, m.sync(func(ctx context.Context) error {
					return m.store.DeleteProject(ctx, id)
				})
			}
		} else if t, ok := m.selectedTask(); ok {
			return m, m.sync(func(ctx context.Context) error {
				return m.store.DeleteTask(ctx, t.ID)
			})
		}
	case "n", "esc":
		m.state = stateBoard
	}
	return m, nil
}

// moveSelected is the keyboard equivalent of dragging the selected task to
// the end of the neighbouring column.
func (m *Model) moveSelected(delta int) {
	t, ok := m.selectedTask()
	if !ok {
		return
	}
	target := m.column + delta
	if target < 0 || target >= len(entities.StatusColumns) {
		return
	}
	dst := entities.StatusColumns[target].Status
	dstLen := len(m.store.TasksByStatus(dst, "", ""))

	err := m.store.Move(m.ctx, board.DragResult{
		TaskID:      t.ID,
		Source:      board.Location{Status: t.Status, Index: m.row},
		Destination: &board.Location{Status: dst, Index: dstLen},
	})
	if err != nil {
		m.setErr(err)
		return
	}
	if m.statusFilter == "" {
		m.column = target
		m.row = len(m.columnTasks()) - 1
	}
	m.clampCursor()
}

func (m *Model) toggleFirstOpenSubTask() tea.Cmd {
	t, ok := m.selectedTask()
	if !ok {
		return nil
	}
	for _, st := range t.SubTasks {
		if !st.IsCompleted {
			store, id := m.store, st.ID
			return m.sync(func(ctx context.Context) error {
				return store.ToggleSubTask(ctx, id)
			})
		}
	}
	m.notice = "No open sub-tasks"
	return nil
}

func (m *Model) copySelected() {
	t, ok := m.selectedTask()
	if !ok {
		return
	}
	if err := m.copy(taskText(t, m.today())); err != nil {
		m.setErr(fmt.Errorf("failed to copy task: %w", err))
		return
	}
	m.notice = fmt.Sprintf("Copied %q", t.Title)
}

func (m *Model) setErr(err error) {
	if err != nil {
		m.err = err
	}
}

func (m Model) columnTasks() []entities.Task {
	if m.column < 0 || m.column >= len(entities.StatusColumns) {
		return nil
	}
	return m.store.TasksByStatus(entities.StatusColumns[m.column].Status, m.query, m.statusFilter)
}

func (m Model) selectedTask() (entities.Task, bool) {
	tasks := m.columnTasks()
	if m.row < 0 || m.row >= len(tasks) {
		return entities.Task{}, false
	}
	return tasks[m.row], true
}

func (m *Model) clampCursor() {
	n := len(m.columnTasks())
	if m.row >= n {
		m.row = n - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

func (m *Model) syncProjectCursor() {
	projects := m.store.Projects()
	if cur := m.store.CurrentProject(); cur != nil {
		if i, ok := entities.FindProject(projects, cur.ID); ok {
			m.projectCursor = i
			return
		}
	}
	if m.projectCursor >= len(projects) {
		m.projectCursor = len(projects) - 1
	}
	if m.projectCursor < 0 {
		m.projectCursor = 0
	}
}

// nextFilter cycles all, then each column in display order.
func nextFilter(current entities.TaskStatus) entities.TaskStatus {
	if current == "" {
		return entities.StatusColumns[0].Status
	}
	i := columnIndex(current)
	if i+1 >= len(entities.StatusColumns) {
		return ""
	}
	return entities.StatusColumns[i+1].Status
}

func columnIndex(status entities.TaskStatus) int {
	for i, c := range entities.StatusColumns {
		if c.Status == status {
			return i
		}
	}
	return 0
}

// taskText is the plain-text form placed on the clipboard.
func taskText(t entities.Task, today entities.Date) string {
	var b strings.Builder
	b.WriteString(t.Title)
	b.WriteString("\n")
	if t.Description != "" {
		b.WriteString("\n")
		b.WriteString(t.Description)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nStatus: %s\nCategory: %s\n", entities.ColumnLabel(t.Status), t.Category)
	if t.DueDate != nil {
		fmt.Fprintf(&b, "Due: %s (%s)\n", t.DueDate.String(), entities.FormatDueDate(*t.DueDate, today))
	}
	for _, st := range t.SubTasks {
		mark := " "
		if st.IsCompleted {
			mark = "x"
		}
		fmt.Fprintf(&b, "- [%s] %s\n", mark, st.Title)
	}
	return b.String()
}
