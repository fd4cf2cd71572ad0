package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

// ProjectRepositoryImpl implements the ProjectRepository interface
type ProjectRepositoryImpl struct {
	db *sqlx.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sqlx.DB) ports.ProjectRepository {
	return &ProjectRepositoryImpl{db: db}
}

// Create appends the project after the user's existing ones.
func (r *ProjectRepositoryImpl) Create(ctx context.Context, project *entities.ProjectRecord) error {
	query := `
		INSERT INTO projects (id, user_id, name, icon, sort_order)
		VALUES ($1, $2, $3, $4,
			(SELECT COALESCE(MAX(sort_order) + 1, 0) FROM projects WHERE user_id = $2))
		RETURNING sort_order, created_at`

	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		project.ID, project.UserID, project.Name, project.Icon,
	).Scan(&project.SortOrder, &project.CreatedAt)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	return nil
}

func (r *ProjectRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.ProjectRecord, error) {
	query := `
		SELECT id, user_id, name, icon, sort_order, created_at
		FROM projects
		WHERE id = $1`

	var project entities.ProjectRecord
	err := r.db.GetContext(ctx, &project, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	return &project, nil
}

func (r *ProjectRepositoryImpl) Update(ctx context.Context, id uuid.UUID, patch entities.ProjectPatch) error {
	var set updateSet
	if patch.Name != nil {
		set.add("name", *patch.Name)
	}
	if patch.Icon != nil {
		set.add("icon", entities.NullableString(*patch.Icon))
	}

	return set.exec(ctx, r.db, "projects", id, entities.ErrProjectNotFound)
}

// Delete removes the project; its tasks and sub-tasks cascade.
func (r *ProjectRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	return expectRow(result, entities.ErrProjectNotFound)
}

// DeleteUnlessLast locks the user's project rows, so concurrent deletes
// serialize and the second one sees the first one's result.
func (r *ProjectRepositoryImpl) DeleteUnlessLast(ctx context.Context, userID, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete project: %w", err)
	}
	defer tx.Rollback()

	var ids []uuid.UUID
	if err := tx.SelectContext(ctx, &ids, `SELECT id FROM projects WHERE user_id = $1 FOR UPDATE`, userID); err != nil {
		return fmt.Errorf("lock projects: %w", err)
	}

	found := false
	for _, pid := range ids {
		if pid == id {
			found = true
			break
		}
	}
	if !found {
		return entities.ErrProjectNotFound
	}
	if len(ids) <= 1 {
		return entities.ErrLastProject
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete project: %w", err)
	}
	return nil
}

func (r *ProjectRepositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]entities.ProjectRecord, error) {
	query := `
		SELECT id, user_id, name, icon, sort_order, created_at
		FROM projects
		WHERE user_id = $1
		ORDER BY sort_order, created_at`

	projects := []entities.ProjectRecord{}
	if err := r.db.SelectContext(ctx, &projects, query, userID); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	return projects, nil
}

func (r *ProjectRepositoryImpl) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM projects WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}

	return count, nil
}

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sqlx.DB) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

const taskColumns = `id, project_id, title, description, status, due_date, category, created_at`

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.TaskRecord) error {
	query := `
		INSERT INTO tasks (id, project_id, title, description, status, due_date, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		task.ID, task.ProjectID, task.Title, task.Description,
		task.Status, task.DueDate, task.Category,
	).Scan(&task.CreatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.TaskRecord, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	var task entities.TaskRecord
	err := r.db.GetContext(ctx, &task, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	return &task, nil
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, id uuid.UUID, patch entities.TaskPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	var set updateSet
	if patch.Title != nil {
		set.add("title", *patch.Title)
	}
	if patch.Description != nil {
		set.add("description", entities.NullableString(*patch.Description))
	}
	if patch.Status != nil {
		set.add("status", *patch.Status)
	}
	if patch.DueDate != nil {
		due, _ := entities.ParseDatePtr(*patch.DueDate)
		set.add("due_date", due)
	}
	if patch.Category != nil {
		set.add("category", entities.NullableString(*patch.Category))
	}

	return set.exec(ctx, r.db, "tasks", id, entities.ErrTaskNotFound)
}

// Delete removes the task; its sub-tasks cascade.
func (r *TaskRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	return expectRow(result, entities.ErrTaskNotFound)
}

func (r *TaskRepositoryImpl) ListByProjects(ctx context.Context, projectIDs []uuid.UUID) ([]entities.TaskRecord, error) {
	tasks := []entities.TaskRecord{}
	if len(projectIDs) == 0 {
		return tasks, nil
	}

	query, args, err := sqlx.In(`SELECT `+taskColumns+` FROM tasks WHERE project_id IN (?) ORDER BY created_at, id`, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	if err := r.db.SelectContext(ctx, &tasks, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

// ListDue returns tasks whose due date lies in [from, to].
func (r *TaskRepositoryImpl) ListDue(ctx context.Context, projectIDs []uuid.UUID, from, to entities.Date) ([]entities.TaskRecord, error) {
	tasks := []entities.TaskRecord{}
	if len(projectIDs) == 0 {
		return tasks, nil
	}

	query, args, err := sqlx.In(`
		SELECT `+taskColumns+`
		FROM tasks
		WHERE project_id IN (?) AND due_date BETWEEN ? AND ?
		ORDER BY due_date, created_at`, projectIDs, from, to)
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}

	if err := r.db.SelectContext(ctx, &tasks, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}

	return tasks, nil
}

// SubTaskRepositoryImpl implements the SubTaskRepository interface
type SubTaskRepositoryImpl struct {
	db *sqlx.DB
}

// NewSubTaskRepository creates a new sub-task repository
func NewSubTaskRepository(db *sqlx.DB) ports.SubTaskRepository {
	return &SubTaskRepositoryImpl{db: db}
}

func (r *SubTaskRepositoryImpl) Create(ctx context.Context, subTask *entities.SubTaskRecord) error {
	query := `
		INSERT INTO sub_tasks (id, task_id, title, is_completed)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	if subTask.ID == uuid.Nil {
		subTask.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		subTask.ID, subTask.TaskID, subTask.Title, subTask.IsCompleted,
	).Scan(&subTask.CreatedAt)
	if err != nil {
		return fmt.Errorf("create sub-task: %w", err)
	}

	return nil
}

func (r *SubTaskRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.SubTaskRecord, error) {
	query := `
		SELECT id, task_id, title, is_completed, created_at
		FROM sub_tasks
		WHERE id = $1`

	var subTask entities.SubTaskRecord
	err := r.db.GetContext(ctx, &subTask, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrSubTaskNotFound
		}
		return nil, fmt.Errorf("get sub-task: %w", err)
	}

	return &subTask, nil
}

func (r *SubTaskRepositoryImpl) Update(ctx context.Context, id uuid.UUID, patch entities.SubTaskPatch) error {
	var set updateSet
	if patch.Title != nil {
		set.add("title", *patch.Title)
	}
	if patch.IsCompleted != nil {
		set.add("is_completed", *patch.IsCompleted)
	}

	return set.exec(ctx, r.db, "sub_tasks", id, entities.ErrSubTaskNotFound)
}

func (r *SubTaskRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sub_tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sub-task: %w", err)
	}

	return expectRow(result, entities.ErrSubTaskNotFound)
}

func (r *SubTaskRepositoryImpl) ListByTasks(ctx context.Context, taskIDs []uuid.UUID) ([]entities.SubTaskRecord, error) {
	subTasks := []entities.SubTaskRecord{}
	if len(taskIDs) == 0 {
		return subTasks, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, task_id, title, is_completed, created_at
		FROM sub_tasks
		WHERE task_id IN (?)
		ORDER BY created_at, id`, taskIDs)
	if err != nil {
		return nil, fmt.Errorf("list sub-tasks: %w", err)
	}

	if err := r.db.SelectContext(ctx, &subTasks, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list sub-tasks: %w", err)
	}

	return subTasks, nil
}
