package board

import (
	"context"
	"fmt"
	"sync"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
)

// MockRemoteStore is an in-memory remote. The Func fields override the
// default behaviour of single calls.
type MockRemoteStore struct {
	mu       sync.Mutex
	projects []entities.Project
	nextID   int
	calls    map[string]int

	FetchProjectsFunc func(ctx context.Context) ([]entities.Project, error)
	CreateProjectFunc func(ctx context.Context, name, icon string) (*entities.Project, error)
	CreateTaskFunc    func(ctx context.Context, projectID string, task entities.NewTask) (*entities.Task, error)
	UpdateTaskFunc    func(ctx context.Context, id string, patch entities.TaskPatch) error
	DeleteProjectFunc func(ctx context.Context, id string) error
}

func NewMockRemoteStore(projects ...entities.Project) *MockRemoteStore {
	return &MockRemoteStore{
		projects: entities.CloneProjects(projects),
		calls:    make(map[string]int),
	}
}

func (m *MockRemoteStore) record(name string) {
	m.mu.Lock()
	m.calls[name]++
	m.mu.Unlock()
}

func (m *MockRemoteStore) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *MockRemoteStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

// Snapshot returns the stored projects without counting as a fetch.
func (m *MockRemoteStore) Snapshot() []entities.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	return entities.CloneProjects(m.projects)
}

func (m *MockRemoteStore) FetchProjects(ctx context.Context) ([]entities.Project, error) {
	m.record("FetchProjects")
	if m.FetchProjectsFunc != nil {
		return m.FetchProjectsFunc(ctx)
	}
	return m.Snapshot(), nil
}

func (m *MockRemoteStore) CreateProject(ctx context.Context, name, icon string) (*entities.Project, error) {
	m.record("CreateProject")
	if m.CreateProjectFunc != nil {
		return m.CreateProjectFunc(ctx, name, icon)
	}
	return m.insertProject(name, icon)
}

func (m *MockRemoteStore) insertProject(name, icon string) (*entities.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := entities.Project{ID: m.id("project"), Name: name, Icon: icon, Tasks: []entities.Task{}}
	m.projects = append(m.projects, p)
	return &p, nil
}

func (m *MockRemoteStore) UpdateProject(ctx context.Context, id string, patch entities.ProjectPatch) error {
	m.record("UpdateProject")
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := entities.FindProject(m.projects, id)
	if !ok {
		return entities.ErrProjectNotFound
	}
	patch.Apply(&m.projects[i])
	return nil
}

func (m *MockRemoteStore) DeleteProject(ctx context.Context, id string) error {
	m.record("DeleteProject")
	if m.DeleteProjectFunc != nil {
		return m.DeleteProjectFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := entities.FindProject(m.projects, id)
	if !ok {
		return entities.ErrProjectNotFound
	}
	m.projects = append(m.projects[:i], m.projects[i+1:]...)
	return nil
}

func (m *MockRemoteStore) CreateTask(ctx context.Context, projectID string, task entities.NewTask) (*entities.Task, error) {
	m.record("CreateTask")
	if m.CreateTaskFunc != nil {
		return m.CreateTaskFunc(ctx, projectID, task)
	}
	return m.insertTask(projectID, task)
}

func (m *MockRemoteStore) insertTask(projectID string, task entities.NewTask) (*entities.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := entities.FindProject(m.projects, projectID)
	if !ok {
		return nil, entities.ErrProjectNotFound
	}
	t := entities.Task{
		ID:          m.id("task"),
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		DueDate:     task.DueDate,
		Category:    task.Category,
		SubTasks:    []entities.SubTask{},
	}
	m.projects[i].Tasks = append(m.projects[i].Tasks, t)
	return &t, nil
}

func (m *MockRemoteStore) UpdateTask(ctx context.Context, id string, patch entities.TaskPatch) error {
	m.record("UpdateTask")
	if m.UpdateTaskFunc != nil {
		return m.UpdateTaskFunc(ctx, id, patch)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	pi, ti, ok := entities.FindTask(m.projects, id)
	if !ok {
		return entities.ErrTaskNotFound
	}
	patch.Apply(&m.projects[pi].Tasks[ti])
	return nil
}

func (m *MockRemoteStore) DeleteTask(ctx context.Context, id string) error {
	m.record("DeleteTask")
	m.mu.Lock()
	defer m.mu.Unlock()
	pi, ti, ok := entities.FindTask(m.projects, id)
	if !ok {
		return entities.ErrTaskNotFound
	}
	tasks := m.projects[pi].Tasks
	m.projects[pi].Tasks = append(tasks[:ti], tasks[ti+1:]...)
	return nil
}

func (m *MockRemoteStore) CreateSubTask(ctx context.Context, taskID, title string) (*entities.SubTask, error) {
	m.record("CreateSubTask")
	m.mu.Lock()
	defer m.mu.Unlock()
	pi, ti, ok := entities.FindTask(m.projects, taskID)
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	st := entities.SubTask{ID: m.id("sub"), Title: title}
	m.projects[pi].Tasks[ti].SubTasks = append(m.projects[pi].Tasks[ti].SubTasks, st)
	return &st, nil
}

func (m *MockRemoteStore) UpdateSubTask(ctx context.Context, id string, patch entities.SubTaskPatch) error {
	m.record("UpdateSubTask")
	m.mu.Lock()
	defer m.mu.Unlock()
	pi, ti, si, ok := findSubTask(m.projects, id)
	if !ok {
		return entities.ErrSubTaskNotFound
	}
	patch.Apply(&m.projects[pi].Tasks[ti].SubTasks[si])
	return nil
}

func (m *MockRemoteStore) DeleteSubTask(ctx context.Context, id string) error {
	m.record("DeleteSubTask")
	m.mu.Lock()
	defer m.mu.Unlock()
	pi, ti, si, ok := findSubTask(m.projects, id)
	if !ok {
		return entities.ErrSubTaskNotFound
	}
	subs := m.projects[pi].Tasks[ti].SubTasks
	m.projects[pi].Tasks[ti].SubTasks = append(subs[:si], subs[si+1:]...)
	return nil
}

// selectingRemote also remembers the selected project.
type selectingRemote struct {
	*MockRemoteStore
	mu       sync.Mutex
	selected string
}

func (r *selectingRemote) LoadCurrentProject(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected, nil
}

func (r *selectingRemote) SaveCurrentProject(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = id
	return nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	errs    []error
	changes int
}

func (n *recordingNotifier) BoardChanged() {
	n.mu.Lock()
	n.changes++
	n.mu.Unlock()
}

func (n *recordingNotifier) BoardError(err error) {
	n.mu.Lock()
	n.errs = append(n.errs, err)
	n.mu.Unlock()
}

func (n *recordingNotifier) Errors() []error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]error(nil), n.errs...)
}
