package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
)

func TestParseMonth(t *testing.T) {
	now := time.Date(2024, time.June, 17, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{"default", "", time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), false},
		{"explicit", "2023-12", time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC), false},
		{"invalid", "June", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMonth(tt.value, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMonth() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseMonth() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrintMonth(t *testing.T) {
	june3 := entities.NewDate(2024, time.June, 3)
	june20 := entities.NewDate(2024, time.June, 20)
	july1 := entities.NewDate(2024, time.July, 1)
	projects := []entities.Project{{ID: "p1", Name: "Inbox", Tasks: []entities.Task{
		{ID: "b", Title: "Renew cert", Status: entities.TaskStatusReview, DueDate: &june20},
		{ID: "a", Title: "Standup", Status: entities.TaskStatusTodo, DueDate: &june3},
		{ID: "c", Title: "Later", Status: entities.TaskStatusTodo, DueDate: &july1},
	}}}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	printMonth(cmd, projects, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))

	want := "June 2024\n" +
		"  Mon 03  To Do     Standup  (Inbox)\n" +
		"  Thu 20  Review    Renew cert  (Inbox)\n"
	if out.String() != want {
		t.Errorf("printMonth() =\n%s\nwant\n%s", out.String(), want)
	}

	out.Reset()
	printMonth(cmd, nil, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	if out.String() != "June 2024\n  No tasks due\n" {
		t.Errorf("empty month = %q", out.String())
	}
}
