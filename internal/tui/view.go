package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/eyetracktask/eyetrack/internal/board"
	"github.com/eyetracktask/eyetrack/internal/domain/entities"
)

const (
	sidebarWidth = 24
	panelWidth   = 30
	minColumn    = 18
)

var (
	appStyle    = lipgloss.NewStyle().Padding(0, 1)
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#DC2626")).
			Padding(0, 1)
	confirmStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	paneStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1)
	activePaneStyle = paneStyle.BorderForeground(lipgloss.Color("170"))
	selectedStyle   = lipgloss.NewStyle().Reverse(true)
	badgeStyle      = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#FFFFFF"))
)

func (m Model) View() string {
	var sections []string
	sections = append(sections, m.renderHeader())
	if m.err != nil {
		sections = append(sections, errorStyle.Render(errorText(m.err)+"  (esc to dismiss)"))
	}

	var body string
	if m.calendar {
		body = m.renderCalendar()
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderSidebar(),
			m.renderColumns(),
			m.renderScheduled(),
		)
	}
	sections = append(sections, body)

	switch m.state {
	case stateSearch, stateNewTask, stateNewProject:
		sections = append(sections, m.input.View())
	case stateConfirmDelete:
		sections = append(sections, confirmStyle.Render(m.confirmPrompt())+mutedStyle.Render("  y: delete • n/esc: cancel"))
	}
	if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}
	sections = append(sections, m.help.View(m.keys))

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderHeader() string {
	title := "eyetrack"
	if p := m.store.CurrentProject(); p != nil {
		title = strings.TrimSpace(p.Icon + " " + p.Name)
	}
	parts := []string{titleStyle.Render(title)}
	if m.store.Loading() {
		parts = append(parts, mutedStyle.Render("syncing…"))
	}
	if m.query != "" {
		parts = append(parts, mutedStyle.Render(fmt.Sprintf("search: %q", m.query)))
	}
	filter := "All"
	if m.statusFilter != "" {
		filter = entities.ColumnLabel(m.statusFilter)
	}
	parts = append(parts, mutedStyle.Render("status: "+filter))
	return strings.Join(parts, "  ")
}

func (m Model) renderSidebar() string {
	var lines []string
	lines = append(lines, titleStyle.Render("Projects"))
	current := m.store.CurrentProject()
	for i, p := range m.store.Projects() {
		marker := "  "
		if current != nil && p.ID == current.ID {
			marker = "● "
		}
		line := marker + truncate(strings.TrimSpace(p.Icon+" "+p.Name), sidebarWidth-4)
		if m.pane == paneSidebar && i == m.projectCursor {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	style := paneStyle
	if m.pane == paneSidebar {
		style = activePaneStyle
	}
	return style.Width(sidebarWidth).Render(strings.Join(lines, "\n"))
}

func (m Model) columnWidth() int {
	avail := m.width - sidebarWidth - panelWidth - 12
	w := avail/len(entities.StatusColumns) - 4
	if w < minColumn {
		return minColumn
	}
	return w
}

func (m Model) renderColumns() string {
	width := m.columnWidth()
	cols := make([]string, 0, len(entities.StatusColumns))
	for i, c := range entities.StatusColumns {
		tasks := m.store.TasksByStatus(c.Status, m.query, m.statusFilter)
		header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(entities.StatusColor(c.Status))).
			Render(fmt.Sprintf("%s (%d)", c.Label, len(tasks)))

		lines := []string{header}
		for j, t := range tasks {
			card := m.renderCard(t, width)
			if m.pane == paneColumns && i == m.column && j == m.row {
				card = selectedStyle.Render(card)
			}
			lines = append(lines, card)
		}
		if len(tasks) == 0 {
			lines = append(lines, mutedStyle.Render("No tasks"))
		}

		style := paneStyle
		if m.pane == paneColumns && i == m.column {
			style = activePaneStyle
		}
		cols = append(cols, style.Width(width).Render(strings.Join(lines, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) renderCard(t entities.Task, width int) string {
	lines := []string{truncate(t.Title, width)}

	meta := badgeStyle.Background(lipgloss.Color(entities.CategoryColor(t.Category))).Render(t.Category)
	if t.DueDate != nil {
		meta += " " + dueStyle(entities.DueDateStatusOf(t.DueDate, m.today())).Render(entities.FormatDueDate(*t.DueDate, m.today()))
	}
	lines = append(lines, meta)

	if n := len(t.SubTasks); n > 0 {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("%s %d/%d",
			progressBar(entities.ProgressPercentage(t.SubTasks), 10), entities.CompletedCount(t.SubTasks), n)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderScheduled() string {
	items := board.ScheduledTasks(m.store.Projects(), m.today())
	lines := []string{titleStyle.Render("Scheduled")}
	for _, it := range items {
		lines = append(lines,
			truncate(it.Task.Title, panelWidth-4),
			mutedStyle.Render(truncate(it.ProjectName, panelWidth-4))+" "+
				dueStyle(it.Due).Render(it.DueLabel),
		)
		if it.Total > 0 {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("%d/%d sub-tasks", it.Completed, it.Total)))
		}
	}
	if len(items) == 0 {
		lines = append(lines, mutedStyle.Render("No scheduled tasks"))
	}
	return paneStyle.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

func (m Model) renderCalendar() string {
	year, month := m.month.Year(), m.month.Month()
	events := board.EventsInMonth(board.CalendarEvents(m.store.Projects()), year, month)
	today := m.today()

	cell := lipgloss.NewStyle().Width(14).Height(3)
	var rows []string
	rows = append(rows, titleStyle.Render(m.month.Format("January 2006")))

	var head []string
	for _, d := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		head = append(head, cell.Height(1).Render(mutedStyle.Render(d)))
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, head...))

	var week []string
	for _, day := range monthDays(year, month) {
		var content string
		if day > 0 {
			label := fmt.Sprintf("%2d", day)
			if today.Year() == year && today.Month() == month && today.Day() == day {
				label = titleStyle.Render(label)
			}
			lines := []string{label}
			for _, e := range events[day] {
				lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color(e.Color)).Render(truncate(e.Title, 12)))
			}
			content = strings.Join(lines, "\n")
		}
		week = append(week, cell.Render(content))
		if len(week) == 7 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, week...))
			week = nil
		}
	}
	if len(week) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, week...))
	}
	return paneStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) confirmPrompt() string {
	if m.pane == paneSidebar {
		projects := m.store.Projects()
		if m.projectCursor < len(projects) {
			return fmt.Sprintf("Delete project %q and all its tasks?", projects[m.projectCursor].Name)
		}
	}
	if t, ok := m.selectedTask(); ok {
		return fmt.Sprintf("Delete task %q?", t.Title)
	}
	return "Delete?"
}

// monthDays returns the days of a month padded with zeros so that the first
// day lands on its weekday, Sunday first.
func monthDays(year int, month time.Month) []int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	days := make([]int, int(first.Weekday()), int(first.Weekday())+last)
	for d := 1; d <= last; d++ {
		days = append(days, d)
	}
	return days
}

func dueStyle(s entities.DueStatus) lipgloss.Style {
	switch s {
	case entities.DueOverdue:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
	case entities.DueToday:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#D97706")).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#2563EB"))
	}
}

func errorText(err error) string {
	if errors.Is(err, entities.ErrLastProject) {
		return "You must have at least one project"
	}
	return err.Error()
}

func progressBar(percent, width int) string {
	filled := percent * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
