package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

func newBoardFixture(t *testing.T, cache ports.CacheRepository) (*BoardService, *MockBoardRepositories, *recordingRecorder) {
	t.Helper()

	repos := NewMockBoardRepositories()
	s := NewBoardService(repos.Projects(), repos.Tasks(), repos.SubTasks(), cache, time.Minute, logger.NewNop())
	rec := &recordingRecorder{}
	s.SetRecorder(rec)
	return s, repos, rec
}

func strPtr(s string) *string { return &s }

func TestBoardAssemblesNestedProjects(t *testing.T) {
	s, _, _ := newBoardFixture(t, nil)
	ctx := context.Background()
	user := uuid.New()

	inbox, err := s.CreateProject(ctx, user, ports.CreateProjectRequest{Name: "  Inbox  "})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if inbox.Name != "Inbox" {
		t.Errorf("name = %q, want trimmed", inbox.Name)
	}
	if _, err := s.CreateProject(ctx, user, ports.CreateProjectRequest{Name: "Side"}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	due := entities.NewDate(2024, time.June, 4)
	task, err := s.CreateTask(ctx, user, ports.CreateTaskRequest{
		ProjectID: uuid.MustParse(inbox.ID),
		Title:     "Design mockups",
		DueDate:   &due,
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task.Status != entities.TaskStatusTodo || task.Category != entities.DefaultCategory {
		t.Errorf("task defaults = %s/%s", task.Status, task.Category)
	}

	if _, err := s.CreateSubTask(ctx, user, ports.CreateSubTaskRequest{TaskID: uuid.MustParse(task.ID), Title: "Wireframe"}); err != nil {
		t.Fatalf("CreateSubTask() error = %v", err)
	}

	board, err := s.FetchBoard(ctx, user)
	if err != nil {
		t.Fatalf("FetchBoard() error = %v", err)
	}
	if len(board) != 2 || board[0].Name != "Inbox" || board[1].Name != "Side" {
		t.Fatalf("board order = %+v", board)
	}
	if len(board[0].Tasks) != 1 || len(board[0].Tasks[0].SubTasks) != 1 {
		t.Errorf("nesting = %+v", board[0].Tasks)
	}
	if board[1].Tasks == nil {
		t.Error("empty project should carry an empty task list")
	}
}

func TestBoardDeleteProjectKeepsLastOne(t *testing.T) {
	s, repos, rec := newBoardFixture(t, nil)
	ctx := context.Background()
	user := uuid.New()

	only, _ := s.CreateProject(ctx, user, ports.CreateProjectRequest{Name: "Only"})
	err := s.DeleteProject(ctx, user, uuid.MustParse(only.ID))
	if !errors.Is(err, entities.ErrLastProject) {
		t.Fatalf("DeleteProject() error = %v, want ErrLastProject", err)
	}
	if n := repos.CallCount("Projects.Delete"); n != 0 {
		t.Errorf("Projects.Delete called %d times", n)
	}

	second, _ := s.CreateProject(ctx, user, ports.CreateProjectRequest{Name: "Second"})
	if err := s.DeleteProject(ctx, user, uuid.MustParse(second.ID)); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}

	want := []string{"project/create/ok", "project/delete/error", "project/create/ok", "project/delete/ok"}
	if len(rec.outcomes) != len(want) {
		t.Fatalf("outcomes = %v, want %v", rec.outcomes, want)
	}
	for i := range want {
		if rec.outcomes[i] != want[i] {
			t.Errorf("outcome %d = %s, want %s", i, rec.outcomes[i], want[i])
		}
	}
}

func TestBoardConcurrentDeletesKeepOneProject(t *testing.T) {
	s, repos, _ := newBoardFixture(t, nil)
	ctx := context.Background()
	user := uuid.New()

	a, _ := s.CreateProject(ctx, user, ports.CreateProjectRequest{Name: "A"})
	b, _ := s.CreateProject(ctx, user, ports.CreateProjectRequest{Name: "B"})

	// Both deletes pass the ownership check before either removes a row.
	var arrived sync.WaitGroup
	arrived.Add(2)
	repos.OnGetProject = func(uuid.UUID) {
		arrived.Done()
		arrived.Wait()
	}

	errs := make([]error, 2)
	var done sync.WaitGroup
	for i, id := range []string{a.ID, b.ID} {
		done.Add(1)
		go func(i int, id uuid.UUID) {
			defer done.Done()
			errs[i] = s.DeleteProject(ctx, user, id)
		}(i, uuid.MustParse(id))
	}
	done.Wait()
	repos.OnGetProject = nil

	failed := 0
	for _, err := range errs {
		if errors.Is(err, entities.ErrLastProject) {
			failed++
		} else if err != nil {
			t.Errorf("DeleteProject() error = %v", err)
		}
	}
	if failed != 1 {
		t.Errorf("errors = %v, want exactly one ErrLastProject", errs)
	}

	board, err := s.FetchBoard(ctx, user)
	if err != nil {
		t.Fatalf("FetchBoard() error = %v", err)
	}
	if len(board) != 1 {
		t.Errorf("remaining projects = %d, want 1", len(board))
	}
}

func TestBoardOwnershipChecks(t *testing.T) {
	s, _, _ := newBoardFixture(t, nil)
	ctx := context.Background()
	owner, intruder := uuid.New(), uuid.New()

	project, _ := s.CreateProject(ctx, owner, ports.CreateProjectRequest{Name: "Private"})
	projectID := uuid.MustParse(project.ID)
	task, _ := s.CreateTask(ctx, owner, ports.CreateTaskRequest{ProjectID: projectID, Title: "Secret"})
	taskID := uuid.MustParse(task.ID)
	sub, _ := s.CreateSubTask(ctx, owner, ports.CreateSubTaskRequest{TaskID: taskID, Title: "Step"})
	subID := uuid.MustParse(sub.ID)

	done := true
	tests := []struct {
		name string
		call func() error
	}{
		{"update project", func() error {
			return s.UpdateProject(ctx, intruder, projectID, ports.UpdateProjectRequest{Name: strPtr("Mine")})
		}},
		{"create task", func() error {
			_, err := s.CreateTask(ctx, intruder, ports.CreateTaskRequest{ProjectID: projectID, Title: "x"})
			return err
		}},
		{"update task", func() error {
			return s.UpdateTask(ctx, intruder, taskID, ports.UpdateTaskRequest{Title: strPtr("x")})
		}},
		{"delete task", func() error { return s.DeleteTask(ctx, intruder, taskID) }},
		{"update sub-task", func() error {
			return s.UpdateSubTask(ctx, intruder, subID, ports.UpdateSubTaskRequest{IsCompleted: &done})
		}},
		{"delete sub-task", func() error { return s.DeleteSubTask(ctx, intruder, subID) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, entities.ErrForbidden) {
				t.Errorf("error = %v, want ErrForbidden", err)
			}
		})
	}
}

func TestBoardUpdateSubTaskTrimsTitle(t *testing.T) {
	s, _, _ := newBoardFixture(t, nil)
	ctx := context.Background()
	user := uuid.New()

	project, _ := s.CreateProject(ctx, user, ports.CreateProjectRequest{Name: "Inbox"})
	task, _ := s.CreateTask(ctx, user, ports.CreateTaskRequest{ProjectID: uuid.MustParse(project.ID), Title: "Ship"})
	sub, _ := s.CreateSubTask(ctx, user, ports.CreateSubTaskRequest{TaskID: uuid.MustParse(task.ID), Title: "Draft"})
	subID := uuid.MustParse(sub.ID)

	if err := s.UpdateSubTask(ctx, user, subID, ports.UpdateSubTaskRequest{Title: strPtr("  Review  ")}); err != nil {
		t.Fatalf("UpdateSubTask() error = %v", err)
	}
	board, _ := s.FetchBoard(ctx, user)
	if got := board[0].Tasks[0].SubTasks[0].Title; got != "Review" {
		t.Errorf("title = %q, want trimmed", got)
	}

	err := s.UpdateSubTask(ctx, user, subID, ports.UpdateSubTaskRequest{Title: strPtr("   ")})
	if !errors.Is(err, entities.ErrInvalidInput) {
		t.Errorf("blank title error = %v, want ErrInvalidInput", err)
	}
}

func TestBoardUpdateTaskValidation(t *testing.T) {
	s, repos, _ := newBoardFixture(t, nil)
	ctx := context.Background()
	user := uuid.New()

	project, _ := s.CreateProject(ctx, user, ports.CreateProjectRequest{Name: "Inbox"})
	task, _ := s.CreateTask(ctx, user, ports.CreateTaskRequest{ProjectID: uuid.MustParse(project.ID), Title: "Ship"})
	taskID := uuid.MustParse(task.ID)

	blocked := entities.TaskStatus("Blocked")
	tests := []struct {
		name string
		req  ports.UpdateTaskRequest
		want error
	}{
		{"unknown status", ports.UpdateTaskRequest{Status: &blocked}, entities.ErrInvalidStatus},
		{"bad date", ports.UpdateTaskRequest{DueDate: strPtr("June 4")}, entities.ErrInvalidInput},
		{"blank title", ports.UpdateTaskRequest{Title: strPtr("  ")}, entities.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.UpdateTask(ctx, user, taskID, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("UpdateTask() error = %v, want %v", err, tt.want)
			}
		})
	}
	if n := repos.CallCount("Tasks.Update"); n != 0 {
		t.Errorf("Tasks.Update called %d times for invalid input", n)
	}

	review := entities.TaskStatusReview
	if err := s.UpdateTask(ctx, user, taskID, ports.UpdateTaskRequest{Status: &review}); err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}
	board, _ := s.FetchBoard(ctx, user)
	if board[0].Tasks[0].Status != entities.TaskStatusReview {
		t.Errorf("status = %s, want Review", board[0].Tasks[0].Status)
	}
}

func TestBoardCacheInvalidatedOnWrite(t *testing.T) {
	cache := NewMockCache()
	s, repos, _ := newBoardFixture(t, cache)
	ctx := context.Background()
	user := uuid.New()

	s.CreateProject(ctx, user, ports.CreateProjectRequest{Name: "Inbox"})

	for i := 0; i < 3; i++ {
		if _, err := s.FetchBoard(ctx, user); err != nil {
			t.Fatalf("FetchBoard() error = %v", err)
		}
	}
	if n := repos.CallCount("Projects.ListByUser"); n != 1 {
		t.Errorf("ListByUser called %d times, want 1 (cached)", n)
	}

	s.CreateProject(ctx, user, ports.CreateProjectRequest{Name: "Side"})
	board, _ := s.FetchBoard(ctx, user)
	if len(board) != 2 {
		t.Errorf("board after write has %d projects, want 2", len(board))
	}
}

func TestBoardCacheIgnoresSnapshotTakenBeforeWrite(t *testing.T) {
	cache := NewMockCache()
	s, repos, _ := newBoardFixture(t, cache)
	ctx := context.Background()
	user := uuid.New()

	project, _ := s.CreateProject(ctx, user, ports.CreateProjectRequest{Name: "Old"})
	projectID := uuid.MustParse(project.ID)

	// The rename commits while the fetch is still reading projects.
	repos.ListByUserFunc = func(ctx context.Context, userID uuid.UUID) ([]entities.ProjectRecord, error) {
		repos.ListByUserFunc = nil
		snapshot, err := repos.Projects().ListByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := s.UpdateProject(ctx, user, projectID, ports.UpdateProjectRequest{Name: strPtr("New")}); err != nil {
			t.Errorf("UpdateProject() error = %v", err)
		}
		return snapshot, nil
	}

	inFlight, err := s.FetchBoard(ctx, user)
	if err != nil {
		t.Fatalf("FetchBoard() error = %v", err)
	}
	if inFlight[0].Name != "Old" {
		t.Fatalf("in-flight name = %q, want Old", inFlight[0].Name)
	}

	board, err := s.FetchBoard(ctx, user)
	if err != nil {
		t.Fatalf("FetchBoard() error = %v", err)
	}
	if board[0].Name != "New" {
		t.Errorf("name after committed rename = %q, want New", board[0].Name)
	}
}

func TestBoardFetchPropagatesErrors(t *testing.T) {
	s, repos, _ := newBoardFixture(t, nil)
	repos.ListByUserFunc = func(ctx context.Context, userID uuid.UUID) ([]entities.ProjectRecord, error) {
		return nil, errors.New("connection refused")
	}

	if _, err := s.FetchBoard(context.Background(), uuid.New()); err == nil {
		t.Error("FetchBoard() should fail")
	}
}

func TestBoardCalendar(t *testing.T) {
	s, _, _ := newBoardFixture(t, nil)
	ctx := context.Background()
	user := uuid.New()

	project, _ := s.CreateProject(ctx, user, ports.CreateProjectRequest{Name: "Launch"})
	projectID := uuid.MustParse(project.ID)
	june10 := entities.NewDate(2024, time.June, 10)
	june2 := entities.NewDate(2024, time.June, 2)
	july1 := entities.NewDate(2024, time.July, 1)
	for _, tt := range []struct {
		title string
		due   *entities.Date
	}{{"Late", &june10}, {"Early", &june2}, {"Next month", &july1}, {"Undated", nil}} {
		s.CreateTask(ctx, user, ports.CreateTaskRequest{ProjectID: projectID, Title: tt.title, DueDate: tt.due})
	}

	entries, err := s.Calendar(ctx, user, entities.NewDate(2024, time.June, 1), entities.NewDate(2024, time.June, 30))
	if err != nil {
		t.Fatalf("Calendar() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Title != "Early" || entries[1].Title != "Late" {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].ProjectName != "Launch" || entries[0].Color != entities.StatusColor(entities.TaskStatusTodo) {
		t.Errorf("entry = %+v", entries[0])
	}

	if _, err := s.Calendar(ctx, user, july1, june2); !errors.Is(err, entities.ErrInvalidInput) {
		t.Errorf("inverted range error = %v", err)
	}
}
