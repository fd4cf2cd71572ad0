package entities

import "math"

// StatusColumn describes one kanban lane.
type StatusColumn struct {
	Status TaskStatus
	Label  string
}

// StatusColumns lists the board lanes in display order.
var StatusColumns = []StatusColumn{
	{Status: TaskStatusTodo, Label: "To Do"},
	{Status: TaskStatusInProgress, Label: "In Work"},
	{Status: TaskStatusReview, Label: "Review"},
	{Status: TaskStatusDone, Label: "Done"},
}

// ColumnLabel returns the display label of a status.
func ColumnLabel(status TaskStatus) string {
	for _, c := range StatusColumns {
		if c.Status == status {
			return c.Label
		}
	}
	return string(status)
}

// ProgressPercentage returns the rounded share of completed sub-tasks.
func ProgressPercentage(subTasks []SubTask) int {
	if len(subTasks) == 0 {
		return 0
	}
	completed := CompletedCount(subTasks)
	return int(math.Round(float64(completed) / float64(len(subTasks)) * 100))
}

// CompletedCount counts finished sub-tasks.
func CompletedCount(subTasks []SubTask) int {
	n := 0
	for _, st := range subTasks {
		if st.IsCompleted {
			n++
		}
	}
	return n
}

// DueStatus classifies a due date relative to today. Tasks without a due
// date have DueNone.
type DueStatus string

const (
	DueNone     DueStatus = ""
	DueOverdue  DueStatus = "overdue"
	DueToday    DueStatus = "today"
	DueUpcoming DueStatus = "upcoming"
)

// Label is the badge text shown for a due status.
func (s DueStatus) Label() string {
	switch s {
	case DueOverdue:
		return "Overdue"
	case DueToday:
		return "Today"
	case DueUpcoming:
		return "Upcoming"
	}
	return ""
}

// DueDateStatusOf classifies a due date relative to today.
func DueDateStatusOf(due *Date, today Date) DueStatus {
	if due == nil {
		return DueNone
	}
	switch {
	case due.Before(today):
		return DueOverdue
	case due.Equal(today):
		return DueToday
	default:
		return DueUpcoming
	}
}

// FormatDueDate renders a due date the way task cards show it.
func FormatDueDate(due Date, today Date) string {
	switch today.DaysUntil(due) {
	case 0:
		return "Today"
	case 1:
		return "Tomorrow"
	case -1:
		return "Yesterday"
	}
	return due.Format("Jan 2")
}

var categoryColors = map[string]string{
	"Design":      "#F59E0B",
	"Dev":         "#3B82F6",
	"Development": "#3B82F6",
	"Marketing":   "#8B5CF6",
	"Research":    "#EF4444",
	"Testing":     "#10B981",
	"Other":       "#9CA3AF",
}

// DefaultCategoryColor is used for unknown categories.
const DefaultCategoryColor = "#6B7280"

// Categories lists the categories offered when creating a task.
var Categories = []string{"Design", "Dev", "Marketing", "Research", "Testing", "Other"}

// CategoryColor maps a category label to its hex color.
func CategoryColor(category string) string {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return DefaultCategoryColor
}

// StatusColor is the calendar event color of a status.
func StatusColor(status TaskStatus) string {
	switch status {
	case TaskStatusInProgress:
		return "#f59e0b"
	case TaskStatusReview:
		return "#8b5cf6"
	case TaskStatusDone:
		return "#10b981"
	}
	return "#3b82f6"
}
