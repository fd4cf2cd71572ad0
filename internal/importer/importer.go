// Package importer loads projects and tasks from a YAML file into a board.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eyetracktask/eyetrack/internal/board"
	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
)

// File is the document layout:
//
//	projects:
//	  - name: Launch
//	    icon: 🚀
//	    tasks:
//	      - title: Write brief
//	        status: IN_PROGRESS
//	        due_date: 2024-06-01
//	        category: Marketing
//	        subtasks: [outline, {title: review, completed: true}]
type File struct {
	Projects []Project `yaml:"projects"`
}

type Project struct {
	Name  string `yaml:"name"`
	Icon  string `yaml:"icon"`
	Tasks []Task `yaml:"tasks"`
}

type Task struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Status      string    `yaml:"status"`
	DueDate     string    `yaml:"due_date"`
	Category    string    `yaml:"category"`
	SubTasks    []SubTask `yaml:"subtasks"`
}

// SubTask accepts either a bare title or a mapping with a completed flag.
type SubTask struct {
	Title     string `yaml:"title"`
	Completed bool   `yaml:"completed"`
}

func (st *SubTask) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		st.Title = value.Value
		return nil
	}
	type plain SubTask
	return value.Decode((*plain)(st))
}

// Summary counts what an import created.
type Summary struct {
	Projects int
	Tasks    int
	SubTasks int
}

// Parse decodes and validates a document.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("failed to parse import file: %w", err)
	}

	for i, p := range f.Projects {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("project %d: %w: name is required", i+1, entities.ErrInvalidInput)
		}
		for j, t := range p.Tasks {
			if strings.TrimSpace(t.Title) == "" {
				return nil, fmt.Errorf("%s task %d: %w: title is required", p.Name, j+1, entities.ErrInvalidInput)
			}
			if t.Status != "" {
				if _, err := entities.ParseTaskStatus(t.Status); err != nil {
					return nil, fmt.Errorf("%s task %q: %w: %s", p.Name, t.Title, err, t.Status)
				}
			}
			if _, err := entities.ParseDatePtr(t.DueDate); err != nil {
				return nil, fmt.Errorf("%s task %q: %w", p.Name, t.Title, err)
			}
		}
	}
	return &f, nil
}

// Importer replays a document through the board store so that imported
// items follow the same path as interactive edits.
type Importer struct {
	store  *board.Store
	logger *logger.Logger
}

func New(store *board.Store, log *logger.Logger) *Importer {
	return &Importer{store: store, logger: log}
}

// Import creates every project, task and sub-task of f in order. It stops at
// the first failure; what was created before stays.
func (im *Importer) Import(ctx context.Context, f *File) (Summary, error) {
	var sum Summary
	for _, p := range f.Projects {
		projectID, err := im.createProject(ctx, p)
		if err != nil {
			return sum, err
		}
		sum.Projects++

		for _, t := range p.Tasks {
			subTasks, err := im.createTask(ctx, projectID, t)
			if err != nil {
				return sum, fmt.Errorf("project %q: %w", p.Name, err)
			}
			sum.Tasks++
			sum.SubTasks += subTasks
		}
	}

	im.logger.Infow("Import finished", "projects", sum.Projects, "tasks", sum.Tasks, "subtasks", sum.SubTasks)
	return sum, nil
}

// settle waits for the background call started by the last store operation
// and reports its failure.
func (im *Importer) settle() error {
	im.store.Wait()
	err := im.store.Err()
	im.store.DismissError()
	return err
}

func (im *Importer) createProject(ctx context.Context, p Project) (string, error) {
	if _, err := im.store.CreateProject(ctx, p.Name, p.Icon); err != nil {
		return "", err
	}
	if err := im.settle(); err != nil {
		return "", fmt.Errorf("failed to create project %q: %w", p.Name, err)
	}

	// A created project becomes the current one once confirmed.
	current := im.store.CurrentProject()
	if current == nil || entities.IsTemporaryID(current.ID) {
		return "", fmt.Errorf("project %q was not confirmed", p.Name)
	}
	return current.ID, nil
}

func (im *Importer) createTask(ctx context.Context, projectID string, t Task) (int, error) {
	due, _ := entities.ParseDatePtr(t.DueDate)
	before := taskIDs(im.store.Projects(), projectID)

	if _, err := im.store.AddTask(ctx, projectID, t.Title, t.Description, due, t.Category); err != nil {
		return 0, err
	}
	if err := im.settle(); err != nil {
		return 0, fmt.Errorf("failed to create task %q: %w", t.Title, err)
	}

	taskID := newID(before, taskIDs(im.store.Projects(), projectID))
	if taskID == "" {
		return 0, fmt.Errorf("task %q was not confirmed", t.Title)
	}

	if status := entities.TaskStatus(t.Status); status != "" && status != entities.TaskStatusTodo {
		if err := im.store.UpdateTask(ctx, taskID, entities.StatusPatch(status)); err != nil {
			return 0, err
		}
		if err := im.settle(); err != nil {
			return 0, fmt.Errorf("failed to set status of %q: %w", t.Title, err)
		}
	}

	created := 0
	for _, st := range t.SubTasks {
		sub, err := im.store.AddSubTask(ctx, taskID, st.Title)
		if err != nil {
			return created, fmt.Errorf("failed to add sub-task %q: %w", st.Title, err)
		}
		if sub == nil {
			continue
		}
		created++
		if st.Completed {
			if err := im.store.ToggleSubTask(ctx, sub.ID); err != nil {
				return created, fmt.Errorf("failed to complete sub-task %q: %w", st.Title, err)
			}
		}
	}
	return created, nil
}

func taskIDs(projects []entities.Project, projectID string) []string {
	i, ok := entities.FindProject(projects, projectID)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(projects[i].Tasks))
	for _, t := range projects[i].Tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

// newID returns the id present in after but not in before.
func newID(before, after []string) string {
	seen := make(map[string]bool, len(before))
	for _, id := range before {
		seen[id] = true
	}
	for _, id := range after {
		if !seen[id] && !entities.IsTemporaryID(id) {
			return id
		}
	}
	return ""
}
