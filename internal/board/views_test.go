package board

import (
	"testing"
	"time"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
)

func TestScheduledTasks(t *testing.T) {
	today := entities.NewDate(2024, time.June, 3)
	yesterday := today.AddDays(-1)
	nextWeek := today.AddDays(7)

	projects := []entities.Project{
		{ID: "p1", Name: "Inbox", Tasks: []entities.Task{
			{ID: "week", Title: "Plan", Status: entities.TaskStatusTodo, DueDate: &nextWeek, Category: "Research",
				SubTasks: []entities.SubTask{{IsCompleted: true}, {}}},
			{ID: "done", Title: "Shipped", Status: entities.TaskStatusDone, DueDate: &yesterday},
			{ID: "nodue", Title: "Someday", Status: entities.TaskStatusTodo},
		}},
		{ID: "p2", Name: "Ops", Tasks: []entities.Task{
			{ID: "late", Title: "Renew cert", Status: entities.TaskStatusReview, DueDate: &yesterday, Category: "Gardening"},
			{ID: "now", Title: "Standup", Status: entities.TaskStatusInProgress, DueDate: &today, Category: "Dev"},
		}},
	}

	items := ScheduledTasks(projects, today)

	want := []struct {
		id    string
		due   entities.DueStatus
		label string
		color string
	}{
		{"late", entities.DueOverdue, "Yesterday", entities.DefaultCategoryColor},
		{"now", entities.DueToday, "Today", "#3B82F6"},
		{"week", entities.DueUpcoming, "Jun 10", "#EF4444"},
	}
	if len(items) != len(want) {
		t.Fatalf("len(ScheduledTasks()) = %d, want %d", len(items), len(want))
	}
	for i, w := range want {
		got := items[i]
		if got.Task.ID != w.id || got.Due != w.due || got.DueLabel != w.label || got.Color != w.color {
			t.Errorf("item %d = {%s %s %s %s}, want %+v", i, got.Task.ID, got.Due, got.DueLabel, got.Color, w)
		}
	}
	if items[2].Completed != 1 || items[2].Total != 2 || items[2].ProjectName != "Inbox" {
		t.Errorf("week item = %+v", items[2])
	}
}

func TestCalendarEvents(t *testing.T) {
	may31 := entities.NewDate(2024, time.May, 31)
	june1 := entities.NewDate(2024, time.June, 1)
	june15 := entities.NewDate(2024, time.June, 15)

	projects := []entities.Project{{ID: "p1", Name: "Inbox", Tasks: []entities.Task{
		{ID: "a", Title: "A", Status: entities.TaskStatusDone, DueDate: &june15},
		{ID: "b", Title: "B", Status: entities.TaskStatusTodo, DueDate: &june1},
		{ID: "c", Title: "C", Status: entities.TaskStatusReview, DueDate: &may31},
		{ID: "d", Title: "D", Status: entities.TaskStatusTodo},
	}}}

	events := CalendarEvents(projects)
	if len(events) != 3 || events[0].TaskID != "c" || events[2].TaskID != "a" {
		t.Fatalf("CalendarEvents() order wrong: %+v", events)
	}
	if events[2].Color != "#10b981" {
		t.Errorf("done color = %s", events[2].Color)
	}

	june := EventsInMonth(events, 2024, time.June)
	if len(june) != 2 || len(june[1]) != 1 || june[15][0].Title != "A" {
		t.Errorf("EventsInMonth() = %+v", june)
	}
}
