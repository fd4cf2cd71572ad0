package local

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "board.db")
	s, err := Open(context.Background(), path, logger.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpenSeedsFirstProject(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	projects, err := s.FetchProjects(ctx)
	if err != nil {
		t.Fatalf("FetchProjects() error = %v", err)
	}
	if len(projects) != 1 || projects[0].Name != entities.DefaultProjectName || projects[0].Tasks == nil {
		t.Fatalf("projects = %+v", projects)
	}

	current, err := s.LoadCurrentProject(ctx)
	if err != nil || current != projects[0].ID {
		t.Errorf("LoadCurrentProject() = %q, %v", current, err)
	}
}

func TestDataSurvivesReopen(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()

	project, err := s.CreateProject(ctx, "Garden", "🌷")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if err := s.SaveCurrentProject(ctx, project.ID); err != nil {
		t.Fatalf("SaveCurrentProject() error = %v", err)
	}
	s.Close()

	reopened, err := Open(ctx, path, logger.NewNop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reopened.Close()

	projects, _ := reopened.FetchProjects(ctx)
	if len(projects) != 2 || projects[1].Name != "Garden" {
		t.Errorf("projects after reopen = %+v", projects)
	}
	if current, _ := reopened.LoadCurrentProject(ctx); current != project.ID {
		t.Errorf("current project = %q, want %q", current, project.ID)
	}
}

func TestTaskLifecycle(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	projects, _ := s.FetchProjects(ctx)
	projectID := projects[0].ID

	task, err := s.CreateTask(ctx, projectID, entities.NewTask{Title: "  Write brief "})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task.Title != "Write brief" || task.Status != entities.TaskStatusTodo || task.Category != entities.DefaultCategory {
		t.Errorf("task = %+v", task)
	}

	if err := s.UpdateTask(ctx, task.ID, entities.StatusPatch(entities.TaskStatusReview)); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	sub, err := s.CreateSubTask(ctx, task.ID, "outline")
	if err != nil {
		t.Fatalf("CreateSubTask() error = %v", err)
	}
	done := true
	if err := s.UpdateSubTask(ctx, sub.ID, entities.SubTaskPatch{IsCompleted: &done}); err != nil {
		t.Fatalf("UpdateSubTask() error = %v", err)
	}

	projects, _ = s.FetchProjects(ctx)
	got := projects[0].Tasks[0]
	if got.Status != entities.TaskStatusReview || len(got.SubTasks) != 1 || !got.SubTasks[0].IsCompleted {
		t.Errorf("stored task = %+v", got)
	}

	if err := s.DeleteSubTask(ctx, sub.ID); err != nil {
		t.Fatalf("DeleteSubTask() error = %v", err)
	}
	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}
	projects, _ = s.FetchProjects(ctx)
	if len(projects[0].Tasks) != 0 {
		t.Errorf("tasks after delete = %+v", projects[0].Tasks)
	}
}

func TestErrors(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	projects, _ := s.FetchProjects(ctx)

	blocked := entities.TaskStatus("Blocked")
	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"last project", func() error { return s.DeleteProject(ctx, projects[0].ID) }, entities.ErrLastProject},
		{"missing project", func() error { return s.UpdateProject(ctx, "nope", entities.ProjectPatch{}) }, entities.ErrProjectNotFound},
		{"missing task", func() error { return s.DeleteTask(ctx, "nope") }, entities.ErrTaskNotFound},
		{"missing sub-task", func() error { return s.DeleteSubTask(ctx, "nope") }, entities.ErrSubTaskNotFound},
		{"invalid status", func() error { return s.UpdateTask(ctx, "nope", entities.TaskPatch{Status: &blocked}) }, entities.ErrInvalidStatus},
		{"blank project", func() error { _, err := s.CreateProject(ctx, "  ", ""); return err }, entities.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestProfile(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	profile, err := s.FetchProfile(ctx)
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if profile.Username != "User" {
		t.Errorf("default username = %q", profile.Username)
	}

	name := "ada"
	if profile, err = s.UpdateProfile(ctx, entities.ProfilePatch{Username: &name}); err != nil || profile.Username != "ada" {
		t.Fatalf("UpdateProfile() = %+v, %v", profile, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 10))); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	profile, err = s.UploadAvatar(ctx, buf.Bytes())
	if err != nil {
		t.Fatalf("UploadAvatar() error = %v", err)
	}
	if !strings.HasPrefix(profile.ProfilePicture, "data:image/jpeg;base64,") || profile.Username != "ada" {
		t.Errorf("profile = %+v", profile)
	}

	if _, err := s.UploadAvatar(ctx, []byte("not an image")); !errors.Is(err, entities.ErrInvalidInput) {
		t.Errorf("UploadAvatar(garbage) error = %v", err)
	}
}
