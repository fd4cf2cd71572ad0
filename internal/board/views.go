package board

import (
	"sort"
	"time"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
)

// ScheduledItem is one row of the scheduled-tasks panel.
type ScheduledItem struct {
	Task        entities.Task
	ProjectID   string
	ProjectName string
	DueDate     entities.Date
	Due         entities.DueStatus
	DueLabel    string
	Color       string
	Completed   int
	Total       int
}

// ScheduledTasks lists every open task that has a due date, earliest first.
// Tasks sharing a due date keep project and column order.
func ScheduledTasks(projects []entities.Project, today entities.Date) []ScheduledItem {
	var items []ScheduledItem
	for _, p := range projects {
		for _, t := range p.Tasks {
			if t.DueDate == nil || t.Status == entities.TaskStatusDone {
				continue
			}
			due := *t.DueDate
			items = append(items, ScheduledItem{
				Task:        t.Clone(),
				ProjectID:   p.ID,
				ProjectName: p.Name,
				DueDate:     due,
				Due:         entities.DueDateStatusOf(&due, today),
				DueLabel:    entities.FormatDueDate(due, today),
				Color:       entities.CategoryColor(t.Category),
				Completed:   entities.CompletedCount(t.SubTasks),
				Total:       len(t.SubTasks),
			})
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DueDate.Before(items[j].DueDate)
	})
	return items
}

// CalendarEvent is a task placed on its due date.
type CalendarEvent struct {
	TaskID      string
	Title       string
	ProjectID   string
	ProjectName string
	Status      entities.TaskStatus
	Category    string
	Date        entities.Date
	Color       string
}

// CalendarEvents places every task with a due date on the calendar, colored
// by status.
func CalendarEvents(projects []entities.Project) []CalendarEvent {
	var events []CalendarEvent
	for _, p := range projects {
		for _, t := range p.Tasks {
			if t.DueDate == nil {
				continue
			}
			events = append(events, CalendarEvent{
				TaskID:      t.ID,
				Title:       t.Title,
				ProjectID:   p.ID,
				ProjectName: p.Name,
				Status:      t.Status,
				Category:    t.Category,
				Date:        *t.DueDate,
				Color:       entities.StatusColor(t.Status),
			})
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events
}

// EventsInMonth groups events by day of month for one calendar page.
func EventsInMonth(events []CalendarEvent, year int, month time.Month) map[int][]CalendarEvent {
	out := make(map[int][]CalendarEvent)
	for _, e := range events {
		if e.Date.Year() == year && e.Date.Month() == month {
			out[e.Date.Day()] = append(out[e.Date.Day()], e)
		}
	}
	return out
}
