package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

// BoardService handles projects, tasks and sub-tasks of one user at a time
type BoardService struct {
	projectRepo ports.ProjectRepository
	taskRepo    ports.TaskRepository
	subTaskRepo ports.SubTaskRepository
	cache       ports.CacheRepository
	cacheTTL    time.Duration
	recorder    ports.MutationRecorder
	logger      *logger.Logger
}

// NewBoardService creates a new board service. cache may be nil.
func NewBoardService(
	projectRepo ports.ProjectRepository,
	taskRepo ports.TaskRepository,
	subTaskRepo ports.SubTaskRepository,
	cache ports.CacheRepository,
	cacheTTL time.Duration,
	logger *logger.Logger,
) *BoardService {
	return &BoardService{
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		subTaskRepo: subTaskRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// SetRecorder installs an observer for mutation outcomes.
func (s *BoardService) SetRecorder(recorder ports.MutationRecorder) {
	s.recorder = recorder
}

// Cached boards are keyed by a per-user generation that every write bumps,
// so a snapshot read before a write can never be served after it.
func boardCacheKey(userID uuid.UUID, generation int64) string {
	return fmt.Sprintf("board:%s:%d", userID, generation)
}

func boardGenerationKey(userID uuid.UUID) string {
	return "board-gen:" + userID.String()
}

// FetchBoard returns all projects of the user with their tasks and
// sub-tasks nested, in creation order.
func (s *BoardService) FetchBoard(ctx context.Context, userID uuid.UUID) ([]entities.Project, error) {
	generation, cacheable := s.boardGeneration(ctx, userID)
	if cacheable {
		var cached []entities.Project
		err := s.cache.Get(ctx, boardCacheKey(userID, generation), &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ports.ErrCacheMiss) {
			s.logger.Warnw("Failed to read board cache", "user_id", userID, "error", err)
		}
	}

	projects, err := s.projectRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}

	projectIDs := make([]uuid.UUID, len(projects))
	for i, p := range projects {
		projectIDs[i] = p.ID
	}
	tasks, err := s.taskRepo.ListByProjects(ctx, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	taskIDs := make([]uuid.UUID, len(tasks))
	for i, t := range tasks {
		taskIDs[i] = t.ID
	}
	subTasks, err := s.subTaskRepo.ListByTasks(ctx, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sub-tasks: %w", err)
	}

	board := entities.AssembleProjects(projects, tasks, subTasks)

	if cacheable {
		if err := s.cache.Set(ctx, boardCacheKey(userID, generation), board, s.cacheTTL); err != nil {
			s.logger.Warnw("Failed to write board cache", "user_id", userID, "error", err)
		}
	}

	return board, nil
}

// CreateProject appends a project to the user's list
func (s *BoardService) CreateProject(ctx context.Context, userID uuid.UUID, req ports.CreateProjectRequest) (project *entities.Project, err error) {
	defer s.settle(ctx, userID, "project", "create", &err)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is blank", entities.ErrInvalidInput)
	}

	record := &entities.ProjectRecord{
		UserID: userID,
		Name:   name,
		Icon:   entities.NullableString(req.Icon),
	}
	if err := s.projectRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	created := record.ToProject()
	return &created, nil
}

// UpdateProject renames the project or changes its icon
func (s *BoardService) UpdateProject(ctx context.Context, userID, projectID uuid.UUID, req ports.UpdateProjectRequest) (err error) {
	defer s.settle(ctx, userID, "project", "update", &err)

	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return fmt.Errorf("%w: project name is blank", entities.ErrInvalidInput)
	}

	if _, err := s.ownProject(ctx, userID, projectID); err != nil {
		return err
	}

	patch := req.Patch()
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}

	if err := s.projectRepo.Update(ctx, projectID, patch); err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	return nil
}

// DeleteProject removes the project with its tasks. The user's last project
// cannot be deleted.
func (s *BoardService) DeleteProject(ctx context.Context, userID, projectID uuid.UUID) (err error) {
	defer s.settle(ctx, userID, "project", "delete", &err)

	if _, err := s.ownProject(ctx, userID, projectID); err != nil {
		return err
	}

	if err := s.projectRepo.DeleteUnlessLast(ctx, userID, projectID); err != nil {
		if errors.Is(err, entities.ErrLastProject) || errors.Is(err, entities.ErrProjectNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}

// CreateTask adds a task to one of the user's projects
func (s *BoardService) CreateTask(ctx context.Context, userID uuid.UUID, req ports.CreateTaskRequest) (task *entities.Task, err error) {
	defer s.settle(ctx, userID, "task", "create", &err)

	input := entities.NewTask{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     req.DueDate,
		Category:    req.Category,
	}
	input.Normalize()
	if input.Title == "" {
		return nil, fmt.Errorf("%w: task title is blank", entities.ErrInvalidInput)
	}
	if !input.Status.Valid() {
		return nil, entities.ErrInvalidStatus
	}

	if _, err := s.ownProject(ctx, userID, req.ProjectID); err != nil {
		return nil, err
	}

	record := &entities.TaskRecord{
		ProjectID:   req.ProjectID,
		Title:       input.Title,
		Description: entities.NullableString(input.Description),
		Status:      input.Status,
		DueDate:     input.DueDate,
		Category:    &input.Category,
	}
	if err := s.taskRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	created := record.ToTask()
	return &created, nil
}

// UpdateTask applies a partial update, including status changes from a drag
func (s *BoardService) UpdateTask(ctx context.Context, userID, taskID uuid.UUID, req ports.UpdateTaskRequest) (err error) {
	defer s.settle(ctx, userID, "task", "update", &err)

	patch := req.Patch()
	if err := patch.Validate(); err != nil {
		if errors.Is(err, entities.ErrInvalidStatus) {
			return err
		}
		return fmt.Errorf("%w: %v", entities.ErrInvalidInput, err)
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return fmt.Errorf("%w: task title is blank", entities.ErrInvalidInput)
		}
		patch.Title = &title
	}

	if _, err := s.ownTask(ctx, userID, taskID); err != nil {
		return err
	}

	if err := s.taskRepo.Update(ctx, taskID, patch); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// DeleteTask removes the task with its sub-tasks
func (s *BoardService) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) (err error) {
	defer s.settle(ctx, userID, "task", "delete", &err)

	if _, err := s.ownTask(ctx, userID, taskID); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// CreateSubTask appends an open checklist item to a task
func (s *BoardService) CreateSubTask(ctx context.Context, userID uuid.UUID, req ports.CreateSubTaskRequest) (subTask *entities.SubTask, err error) {
	defer s.settle(ctx, userID, "subtask", "create", &err)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: sub-task title is blank", entities.ErrInvalidInput)
	}

	if _, err := s.ownTask(ctx, userID, req.TaskID); err != nil {
		return nil, err
	}

	record := &entities.SubTaskRecord{TaskID: req.TaskID, Title: title}
	if err := s.subTaskRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create sub-task: %w", err)
	}

	created := record.ToSubTask()
	return &created, nil
}

// UpdateSubTask renames or toggles a checklist item
func (s *BoardService) UpdateSubTask(ctx context.Context, userID, subTaskID uuid.UUID, req ports.UpdateSubTaskRequest) (err error) {
	defer s.settle(ctx, userID, "subtask", "update", &err)

	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return fmt.Errorf("%w: sub-task title is blank", entities.ErrInvalidInput)
	}

	if err := s.ownSubTask(ctx, userID, subTaskID); err != nil {
		return err
	}

	patch := req.Patch()
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}

	if err := s.subTaskRepo.Update(ctx, subTaskID, patch); err != nil {
		return fmt.Errorf("failed to update sub-task: %w", err)
	}

	return nil
}

// DeleteSubTask removes a checklist item
func (s *BoardService) DeleteSubTask(ctx context.Context, userID, subTaskID uuid.UUID) (err error) {
	defer s.settle(ctx, userID, "subtask", "delete", &err)

	if err := s.ownSubTask(ctx, userID, subTaskID); err != nil {
		return err
	}

	if err := s.subTaskRepo.Delete(ctx, subTaskID); err != nil {
		return fmt.Errorf("failed to delete sub-task: %w", err)
	}

	return nil
}

// Calendar lists the user's tasks due within [from, to], earliest first
func (s *BoardService) Calendar(ctx context.Context, userID uuid.UUID, from, to entities.Date) ([]ports.CalendarEntry, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: calendar range ends before it starts", entities.ErrInvalidInput)
	}

	projects, err := s.projectRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}

	names := make(map[uuid.UUID]string, len(projects))
	projectIDs := make([]uuid.UUID, len(projects))
	for i, p := range projects {
		names[p.ID] = p.Name
		projectIDs[i] = p.ID
	}

	tasks, err := s.taskRepo.ListDue(ctx, projectIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due tasks: %w", err)
	}

	entries := make([]ports.CalendarEntry, 0, len(tasks))
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		entries = append(entries, ports.CalendarEntry{
			TaskID:      t.ID.String(),
			Title:       t.Title,
			ProjectID:   t.ProjectID.String(),
			ProjectName: names[t.ProjectID],
			Status:      t.Status,
			DueDate:     *t.DueDate,
			Color:       entities.StatusColor(t.Status),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DueDate.Before(entries[j].DueDate)
	})

	return entries, nil
}

// settle invalidates the cached board after a successful write and reports
// the outcome. It runs deferred with the named error result.
func (s *BoardService) settle(ctx context.Context, userID uuid.UUID, entity, op string, errp *error) {
	err := *errp
	if s.recorder != nil {
		s.recorder.RecordMutation(entity, op, err)
	}

	if err != nil {
		return
	}

	s.logger.LogUserAction(userID.String(), op+"_"+entity, nil)

	if s.cache != nil {
		generation, err := s.cache.Incr(ctx, boardGenerationKey(userID))
		if err != nil {
			s.logger.Warnw("Failed to invalidate board cache", "user_id", userID, "error", err)
			return
		}
		if err := s.cache.Delete(ctx, boardCacheKey(userID, generation-1)); err != nil {
			s.logger.Warnw("Failed to drop stale board", "user_id", userID, "error", err)
		}
	}
}

// boardGeneration reads the user's cache generation. A missing counter is
// generation zero; a failing cache disables caching for the call.
func (s *BoardService) boardGeneration(ctx context.Context, userID uuid.UUID) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}

	var generation int64
	err := s.cache.Get(ctx, boardGenerationKey(userID), &generation)
	if err != nil && !errors.Is(err, ports.ErrCacheMiss) {
		s.logger.Warnw("Failed to read board generation", "user_id", userID, "error", err)
		return 0, false
	}
	return generation, true
}

func (s *BoardService) ownProject(ctx context.Context, userID, projectID uuid.UUID) (*entities.ProjectRecord, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, entities.ErrProjectNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if project.UserID != userID {
		s.logger.LogSecurityEvent("foreign_project_access", userID.String(), "", map[string]interface{}{"project_id": projectID})
		return nil, entities.ErrForbidden
	}

	return project, nil
}

func (s *BoardService) ownTask(ctx context.Context, userID, taskID uuid.UUID) (*entities.TaskRecord, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, entities.ErrTaskNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if _, err := s.ownProject(ctx, userID, task.ProjectID); err != nil {
		return nil, err
	}

	return task, nil
}

func (s *BoardService) ownSubTask(ctx context.Context, userID, subTaskID uuid.UUID) error {
	subTask, err := s.subTaskRepo.GetByID(ctx, subTaskID)
	if err != nil {
		if errors.Is(err, entities.ErrSubTaskNotFound) {
			return err
		}
		return fmt.Errorf("failed to get sub-task: %w", err)
	}

	_, err = s.ownTask(ctx, userID, subTask.TaskID)
	return err
}
