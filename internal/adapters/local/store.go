// Package local keeps the whole board in a single-user SQLite file, for use
// without a server.
package local

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/imaging"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

// Keys of the kv table.
const (
	KeyProjects       = "eyetracktask-projects"
	KeyCurrentProject = "eyetracktask-current-project"
	KeyUserProfile    = "eyetracktask-user-profile"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// Store implements ports.Backend and ports.SelectionStore over a SQLite
// key-value table. Every write rewrites the affected key.
type Store struct {
	db     *sqlx.DB
	mu     sync.Mutex
	logger *logger.Logger
}

var (
	_ ports.Backend        = (*Store)(nil)
	_ ports.SelectionStore = (*Store)(nil)
)

// DefaultPath returns $XDG_DATA_HOME/eyetrack/board.db.
func DefaultPath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "eyetrack", "board.db"), nil
}

// Open opens (or creates) the database at path and seeds the first project.
func Open(ctx context.Context, path string, log *logger.Logger) (*Store, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, fmt.Errorf("determine db path: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{db: db, logger: log}
	if err := s.seed(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Debugw("Local store opened", "path", path)
	return s, nil
}

func (s *Store) seed(ctx context.Context) error {
	var projects []entities.Project
	found, err := s.get(ctx, KeyProjects, &projects)
	if err != nil {
		return err
	}
	if found && len(projects) > 0 {
		return nil
	}

	seeded := []entities.Project{{ID: uuid.NewString(), Name: entities.DefaultProjectName, Tasks: []entities.Task{}}}
	if err := s.put(ctx, KeyProjects, seeded); err != nil {
		return fmt.Errorf("seed projects: %w", err)
	}
	return s.put(ctx, KeyCurrentProject, seeded[0].ID)
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM kv WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) put(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, string(data))
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// edit loads the projects, applies fn and writes them back when fn succeeds.
func (s *Store) edit(ctx context.Context, fn func(projects []entities.Project) ([]entities.Project, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var projects []entities.Project
	if _, err := s.get(ctx, KeyProjects, &projects); err != nil {
		return err
	}
	projects, err := fn(projects)
	if err != nil {
		return err
	}
	return s.put(ctx, KeyProjects, projects)
}

func (s *Store) FetchProjects(ctx context.Context) ([]entities.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects := []entities.Project{}
	if _, err := s.get(ctx, KeyProjects, &projects); err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].Tasks == nil {
			projects[i].Tasks = []entities.Task{}
		}
	}
	return projects, nil
}

func (s *Store) CreateProject(ctx context.Context, name, icon string) (*entities.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", entities.ErrInvalidInput)
	}

	project := entities.Project{ID: uuid.NewString(), Name: name, Icon: icon, Tasks: []entities.Task{}}
	err := s.edit(ctx, func(projects []entities.Project) ([]entities.Project, error) {
		return append(projects, project), nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *Store) UpdateProject(ctx context.Context, id string, patch entities.ProjectPatch) error {
	return s.edit(ctx, func(projects []entities.Project) ([]entities.Project, error) {
		i, ok := entities.FindProject(projects, id)
		if !ok {
			return nil, entities.ErrProjectNotFound
		}
		patch.Apply(&projects[i])
		return projects, nil
	})
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return s.edit(ctx, func(projects []entities.Project) ([]entities.Project, error) {
		i, ok := entities.FindProject(projects, id)
		if !ok {
			return nil, entities.ErrProjectNotFound
		}
		if len(projects) <= 1 {
			return nil, entities.ErrLastProject
		}
		return append(projects[:i], projects[i+1:]...), nil
	})
}

func (s *Store) CreateTask(ctx context.Context, projectID string, task entities.NewTask) (*entities.Task, error) {
	task.Normalize()
	if task.Title == "" {
		return nil, fmt.Errorf("%w: task title is required", entities.ErrInvalidInput)
	}
	if !task.Status.Valid() {
		return nil, entities.ErrInvalidStatus
	}

	created := entities.Task{
		ID:          uuid.NewString(),
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		DueDate:     task.DueDate,
		Category:    task.Category,
		SubTasks:    []entities.SubTask{},
	}
	err := s.edit(ctx, func(projects []entities.Project) ([]entities.Project, error) {
		i, ok := entities.FindProject(projects, projectID)
		if !ok {
			return nil, entities.ErrProjectNotFound
		}
		projects[i].Tasks = append(projects[i].Tasks, created)
		return projects, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch entities.TaskPatch) error {
	if err := patch.Validate(); err != nil {
		if errors.Is(err, entities.ErrInvalidStatus) {
			return err
		}
		return fmt.Errorf("%w: %v", entities.ErrInvalidInput, err)
	}
	return s.edit(ctx, func(projects []entities.Project) ([]entities.Project, error) {
		pi, ti, ok := entities.FindTask(projects, id)
		if !ok {
			return nil, entities.ErrTaskNotFound
		}
		patch.Apply(&projects[pi].Tasks[ti])
		return projects, nil
	})
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.edit(ctx, func(projects []entities.Project) ([]entities.Project, error) {
		pi, ti, ok := entities.FindTask(projects, id)
		if !ok {
			return nil, entities.ErrTaskNotFound
		}
		tasks := projects[pi].Tasks
		projects[pi].Tasks = append(tasks[:ti], tasks[ti+1:]...)
		return projects, nil
	})
}

func (s *Store) CreateSubTask(ctx context.Context, taskID, title string) (*entities.SubTask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: sub-task title is required", entities.ErrInvalidInput)
	}

	created := entities.SubTask{ID: uuid.NewString(), Title: title}
	err := s.edit(ctx, func(projects []entities.Project) ([]entities.Project, error) {
		pi, ti, ok := entities.FindTask(projects, taskID)
		if !ok {
			return nil, entities.ErrTaskNotFound
		}
		task := &projects[pi].Tasks[ti]
		task.SubTasks = append(task.SubTasks, created)
		return projects, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) UpdateSubTask(ctx context.Context, id string, patch entities.SubTaskPatch) error {
	return s.editSubTask(ctx, id, func(subTasks []entities.SubTask, i int) []entities.SubTask {
		patch.Apply(&subTasks[i])
		return subTasks
	})
}

func (s *Store) DeleteSubTask(ctx context.Context, id string) error {
	return s.editSubTask(ctx, id, func(subTasks []entities.SubTask, i int) []entities.SubTask {
		return append(subTasks[:i], subTasks[i+1:]...)
	})
}

func (s *Store) editSubTask(ctx context.Context, id string, fn func(subTasks []entities.SubTask, i int) []entities.SubTask) error {
	return s.edit(ctx, func(projects []entities.Project) ([]entities.Project, error) {
		for pi := range projects {
			for ti := range projects[pi].Tasks {
				task := &projects[pi].Tasks[ti]
				for si := range task.SubTasks {
					if task.SubTasks[si].ID == id {
						task.SubTasks = fn(task.SubTasks, si)
						return projects, nil
					}
				}
			}
		}
		return nil, entities.ErrSubTaskNotFound
	})
}

// LoadCurrentProject returns the remembered project id, or "" when none is
// stored.
func (s *Store) LoadCurrentProject(ctx context.Context) (string, error) {
	var id string
	if _, err := s.get(ctx, KeyCurrentProject, &id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) SaveCurrentProject(ctx context.Context, id string) error {
	return s.put(ctx, KeyCurrentProject, id)
}

func defaultProfile() entities.UserProfile {
	return entities.UserProfile{
		ID:        "local",
		Username:  "User",
		Email:     "user@example.com",
		CreatedAt: time.Now().UTC(),
	}
}

// profile returns the stored profile, creating the default one on first use.
// Callers hold s.mu.
func (s *Store) profile(ctx context.Context) (entities.UserProfile, error) {
	profile := defaultProfile()
	found, err := s.get(ctx, KeyUserProfile, &profile)
	if err != nil {
		return profile, err
	}
	if !found {
		if err := s.put(ctx, KeyUserProfile, profile); err != nil {
			return profile, err
		}
	}
	return profile, nil
}

func (s *Store) FetchProfile(ctx context.Context) (*entities.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.profile(ctx)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Store) UpdateProfile(ctx context.Context, patch entities.ProfilePatch) (*entities.UserProfile, error) {
	if patch.Username != nil && strings.TrimSpace(*patch.Username) == "" {
		return nil, fmt.Errorf("%w: username is required", entities.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.profile(ctx)
	if err != nil {
		return nil, err
	}
	patch.Apply(&profile)
	if err := s.put(ctx, KeyUserProfile, profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UploadAvatar stores the resized picture inline as a data URL.
func (s *Store) UploadAvatar(ctx context.Context, data []byte) (*entities.UserProfile, error) {
	jpeg, err := imaging.Prepare(data)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedFormat) {
			return nil, fmt.Errorf("%w: %v", entities.ErrInvalidInput, err)
		}
		return nil, err
	}
	picture := "data:" + imaging.ContentType + ";base64," + base64.StdEncoding.EncodeToString(jpeg)
	return s.UpdateProfile(ctx, entities.ProfilePatch{ProfilePicture: &picture})
}
