// Package board keeps the signed-in user's projects in memory and applies
// mutations optimistically against a remote store.
package board

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

// ErrPendingSync is returned when an edit targets an item that exists only
// locally because its create call has not settled yet.
var ErrPendingSync = errors.New("item is still being saved")

// Notifier receives store events. Calls are made outside the store lock and
// must not block.
type Notifier interface {
	BoardChanged()
	BoardError(err error)
}

type nopNotifier struct{}

func (nopNotifier) BoardChanged()    {}
func (nopNotifier) BoardError(error) {}

// Option configures a Store.
type Option func(*Store)

// WithNotifier registers the receiver of change and error events.
func WithNotifier(n Notifier) Option {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the logger used for remote failures.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.WithComponent("board")
		}
	}
}

type mutation func(projects []entities.Project) []entities.Project

// overlay is the single optimistic change shown on top of the last
// authoritative fetch. It is re-applied whenever that fetch is replaced.
type overlay struct {
	seq   uint64
	apply mutation
}

// outcome describes how a confirmed mutation is folded into local state.
// commit patches the last known list when the follow-up refetch fails.
type outcome struct {
	commit mutation
	after  func()
}

// Store is the optimistic project/task store.
type Store struct {
	remote   ports.RemoteStore
	notifier Notifier
	logger   *logger.Logger

	mu          sync.Mutex
	projects    []entities.Project
	overlay     *overlay
	view        []entities.Project
	currentID   string
	persistedID string
	order       map[string]map[entities.TaskStatus][]string
	seq         uint64
	issued      uint64
	applied     uint64
	inflight    int
	fetched     bool
	err         error

	wg sync.WaitGroup
}

// New creates a store reconciling against remote. Call Refresh before use.
func New(remote ports.RemoteStore, opts ...Option) *Store {
	s := &Store{
		remote:   remote,
		notifier: nopNotifier{},
		logger:   logger.NewNop(),
		view:     []entities.Project{},
		order:    make(map[string]map[entities.TaskStatus][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh replaces local state with the authoritative project list.
func (s *Store) Refresh(ctx context.Context) error {
	s.loadSelection(ctx)
	return s.reconcile(ctx, 0, outcome{})
}

// Projects returns a copy of the projects as currently displayed.
func (s *Store) Projects() []entities.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entities.CloneProjects(s.view)
}

// CurrentProject returns the selected project, or nil when there is none.
func (s *Store) CurrentProject() *entities.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.currentLocked()
	if p == nil {
		return nil
	}
	out := p.Clone()
	return &out
}

// SelectProject switches the current project.
func (s *Store) SelectProject(id string) error {
	s.mu.Lock()
	if _, ok := entities.FindProject(s.view, id); !ok {
		s.mu.Unlock()
		return entities.ErrProjectNotFound
	}
	s.currentID = id
	s.mu.Unlock()

	s.persistSelection(context.Background())
	s.notifier.BoardChanged()
	return nil
}

// Loading reports whether the first fetch has not finished or any remote
// call is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.fetched || s.inflight > 0
}

// Err returns the last mutation or fetch failure, if any.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// DismissError clears the error returned by Err.
func (s *Store) DismissError() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
	s.notifier.BoardChanged()
}

// Wait blocks until every background remote call has settled.
func (s *Store) Wait() {
	s.wg.Wait()
}

// CreateProject adds a project optimistically and selects it. A blank name
// is ignored.
func (s *Store) CreateProject(ctx context.Context, name, icon string) (*entities.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	project := entities.Project{
		ID:    entities.NewTemporaryID(),
		Name:  name,
		Icon:  icon,
		Tasks: []entities.Task{},
	}

	seq := s.install(func(projects []entities.Project) []entities.Project {
		return append(projects, project.Clone())
	}, func() {
		s.currentID = project.ID
	})

	s.launch(ctx, seq, "create project", func(ctx context.Context) (outcome, error) {
		created, err := s.remote.CreateProject(ctx, name, icon)
		if err != nil {
			return outcome{}, err
		}
		return outcome{
			commit: func(projects []entities.Project) []entities.Project {
				return append(projects, created.Clone())
			},
			after: func() {
				if s.currentID == project.ID {
					s.currentID = created.ID
				}
			},
		}, nil
	}, nil)

	out := project.Clone()
	return &out, nil
}

// UpdateProject changes project fields remotely and refetches.
func (s *Store) UpdateProject(ctx context.Context, id string, patch entities.ProjectPatch) error {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil
		}
		patch.Name = &name
	}
	if err := s.checkProject(id); err != nil {
		return err
	}

	return s.confirm(ctx, "update project", func(ctx context.Context) error {
		return s.remote.UpdateProject(ctx, id, patch)
	}, outcome{commit: func(projects []entities.Project) []entities.Project {
		if i, ok := entities.FindProject(projects, id); ok {
			patch.Apply(&projects[i])
		}
		return projects
	}})
}

// DeleteProject removes a project and its tasks. The last remaining project
// cannot be deleted; that check happens before any remote call.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := entities.FindProject(s.view, id)
	count := len(s.view)
	s.mu.Unlock()

	if !ok {
		return entities.ErrProjectNotFound
	}
	if count <= 1 {
		return entities.ErrLastProject
	}
	if entities.IsTemporaryID(id) {
		return ErrPendingSync
	}

	return s.confirm(ctx, "delete project", func(ctx context.Context) error {
		return s.remote.DeleteProject(ctx, id)
	}, outcome{
		commit: func(projects []entities.Project) []entities.Project {
			if i, ok := entities.FindProject(projects, id); ok {
				return append(projects[:i], projects[i+1:]...)
			}
			return projects
		},
		after: func() {
			delete(s.order, id)
		},
	})
}

// AddTask adds a task to a project optimistically. A blank title is ignored.
func (s *Store) AddTask(ctx context.Context, projectID, title, description string, dueDate *entities.Date, category string) (*entities.Task, error) {
	input := entities.NewTask{
		Title:       title,
		Description: strings.TrimSpace(description),
		DueDate:     dueDate,
		Category:    strings.TrimSpace(category),
	}
	input.Normalize()
	if input.Title == "" {
		return nil, nil
	}
	if err := s.checkProject(projectID); err != nil {
		return nil, err
	}

	task := entities.Task{
		ID:          entities.NewTemporaryID(),
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		DueDate:     input.DueDate,
		Category:    input.Category,
		SubTasks:    []entities.SubTask{},
	}

	seq := s.install(func(projects []entities.Project) []entities.Project {
		if i, ok := entities.FindProject(projects, projectID); ok {
			projects[i].Tasks = append(projects[i].Tasks, task.Clone())
		}
		return projects
	}, nil)

	s.launch(ctx, seq, "add task", func(ctx context.Context) (outcome, error) {
		created, err := s.remote.CreateTask(ctx, projectID, input)
		if err != nil {
			return outcome{}, err
		}
		return outcome{commit: func(projects []entities.Project) []entities.Project {
			if i, ok := entities.FindProject(projects, projectID); ok {
				projects[i].Tasks = append(projects[i].Tasks, created.Clone())
			}
			return projects
		}}, nil
	}, nil)

	out := task.Clone()
	return &out, nil
}

// UpdateTask applies patch optimistically. On remote failure the task
// reverts to its last confirmed state.
func (s *Store) UpdateTask(ctx context.Context, id string, patch entities.TaskPatch) error {
	return s.updateTask(ctx, id, patch, nil)
}

func (s *Store) updateTask(ctx context.Context, id string, patch entities.TaskPatch, onFail func()) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil
		}
		patch.Title = &title
	}
	if err := patch.Validate(); err != nil {
		return err
	}
	if err := s.checkTask(id); err != nil {
		return err
	}

	apply := func(projects []entities.Project) []entities.Project {
		if pi, ti, ok := entities.FindTask(projects, id); ok {
			patch.Apply(&projects[pi].Tasks[ti])
		}
		return projects
	}

	seq := s.install(apply, nil)
	s.launch(ctx, seq, "update task", func(ctx context.Context) (outcome, error) {
		if err := s.remote.UpdateTask(ctx, id, patch); err != nil {
			return outcome{}, err
		}
		return outcome{commit: apply}, nil
	}, onFail)
	return nil
}

// DeleteTask removes a task and its sub-tasks.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := s.checkTask(id); err != nil {
		return err
	}
	return s.confirm(ctx, "delete task", func(ctx context.Context) error {
		return s.remote.DeleteTask(ctx, id)
	}, outcome{commit: func(projects []entities.Project) []entities.Project {
		if pi, ti, ok := entities.FindTask(projects, id); ok {
			tasks := projects[pi].Tasks
			projects[pi].Tasks = append(tasks[:ti], tasks[ti+1:]...)
		}
		return projects
	}})
}

// AddSubTask appends a checklist item to a task. A blank title is ignored.
func (s *Store) AddSubTask(ctx context.Context, taskID, title string) (*entities.SubTask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}
	if err := s.checkTask(taskID); err != nil {
		return nil, err
	}

	var created *entities.SubTask
	err := s.confirm(ctx, "add sub-task", func(ctx context.Context) error {
		st, err := s.remote.CreateSubTask(ctx, taskID, title)
		if err != nil {
			return err
		}
		created = st
		return nil
	}, outcome{commit: func(projects []entities.Project) []entities.Project {
		if pi, ti, ok := entities.FindTask(projects, taskID); ok && created != nil {
			projects[pi].Tasks[ti].SubTasks = append(projects[pi].Tasks[ti].SubTasks, *created)
		}
		return projects
	}})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateSubTask changes a checklist item.
func (s *Store) UpdateSubTask(ctx context.Context, id string, patch entities.SubTaskPatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil
		}
		patch.Title = &title
	}
	if _, err := s.findSubTask(id); err != nil {
		return err
	}

	return s.confirm(ctx, "update sub-task", func(ctx context.Context) error {
		return s.remote.UpdateSubTask(ctx, id, patch)
	}, outcome{commit: func(projects []entities.Project) []entities.Project {
		if pi, ti, si, ok := findSubTask(projects, id); ok {
			patch.Apply(&projects[pi].Tasks[ti].SubTasks[si])
		}
		return projects
	}})
}

// ToggleSubTask flips the completion flag of a checklist item.
func (s *Store) ToggleSubTask(ctx context.Context, id string) error {
	st, err := s.findSubTask(id)
	if err != nil {
		return err
	}
	done := !st.IsCompleted
	return s.UpdateSubTask(ctx, id, entities.SubTaskPatch{IsCompleted: &done})
}

// DeleteSubTask removes a checklist item.
func (s *Store) DeleteSubTask(ctx context.Context, id string) error {
	if _, err := s.findSubTask(id); err != nil {
		return err
	}
	return s.confirm(ctx, "delete sub-task", func(ctx context.Context) error {
		return s.remote.DeleteSubTask(ctx, id)
	}, outcome{commit: func(projects []entities.Project) []entities.Project {
		if pi, ti, si, ok := findSubTask(projects, id); ok {
			subs := projects[pi].Tasks[ti].SubTasks
			projects[pi].Tasks[ti].SubTasks = append(subs[:si], subs[si+1:]...)
		}
		return projects
	}})
}

// install replaces the overlay with apply on top of the authoritative list
// and returns the sequence number identifying it.
func (s *Store) install(apply mutation, after func()) uint64 {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.overlay = &overlay{seq: seq, apply: apply}
	s.err = nil
	if after != nil {
		after()
	}
	s.rebuildLocked()
	s.mu.Unlock()

	s.notifier.BoardChanged()
	return seq
}

// launch runs call in the background. The call is detached from ctx
// cancellation; once issued it always settles.
func (s *Store) launch(ctx context.Context, seq uint64, op string, call func(context.Context) (outcome, error), onFail func()) {
	bg := context.WithoutCancel(ctx)

	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		res, err := call(bg)

		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()

		if err != nil {
			_ = s.fail(bg, seq, op, err, onFail)
			return
		}
		_ = s.reconcile(bg, seq, res)
	}()
}

// confirm runs a synchronous mutation and refetches on success.
func (s *Store) confirm(ctx context.Context, op string, call func(context.Context) error, res outcome) error {
	s.mu.Lock()
	s.inflight++
	s.err = nil
	s.mu.Unlock()

	err := call(ctx)

	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()

	if err != nil {
		return s.fail(ctx, 0, op, err, nil)
	}
	_ = s.reconcile(ctx, 0, res)
	return nil
}

// reconcile refetches the authoritative list. seq names the overlay of the
// mutation that just settled, or 0. Results of fetches issued before the
// newest applied one are dropped.
func (s *Store) reconcile(ctx context.Context, seq uint64, res outcome) error {
	s.mu.Lock()
	s.issued++
	ticket := s.issued
	s.inflight++
	s.mu.Unlock()

	projects, err := s.remote.FetchProjects(ctx)

	s.mu.Lock()
	s.inflight--
	s.fetched = true
	switch {
	case err != nil:
		err = fmt.Errorf("failed to fetch projects: %w", err)
		s.err = err
		if res.commit != nil {
			s.projects = res.commit(entities.CloneProjects(s.projects))
		}
	case ticket > s.applied:
		s.applied = ticket
		if projects == nil {
			projects = []entities.Project{}
		}
		s.projects = projects
	default:
		s.logger.Debugw("Dropped stale fetch", "ticket", ticket, "applied", s.applied)
	}
	if seq != 0 && s.overlay != nil && s.overlay.seq == seq {
		s.overlay = nil
	}
	if res.after != nil {
		res.after()
	}
	s.rebuildLocked()
	s.mu.Unlock()

	if err != nil {
		s.logger.Errorw("Failed to fetch projects", "error", err)
		s.notifier.BoardError(err)
	}
	s.persistSelection(ctx)
	s.notifier.BoardChanged()
	return err
}

// fail discards the overlay installed by seq and surfaces err.
func (s *Store) fail(ctx context.Context, seq uint64, op string, err error, onFail func()) error {
	err = fmt.Errorf("failed to %s: %w", op, err)

	s.mu.Lock()
	if seq != 0 && s.overlay != nil && s.overlay.seq == seq {
		s.overlay = nil
	}
	s.err = err
	if onFail != nil {
		onFail()
	}
	s.rebuildLocked()
	s.mu.Unlock()

	s.logger.Errorw("Board mutation failed", "op", op, "error", err)
	s.notifier.BoardError(err)
	s.persistSelection(ctx)
	s.notifier.BoardChanged()
	return err
}

func (s *Store) rebuildLocked() {
	view := entities.CloneProjects(s.projects)
	if s.overlay != nil {
		view = s.overlay.apply(view)
	}
	if view == nil {
		view = []entities.Project{}
	}
	s.view = view

	if _, ok := entities.FindProject(s.view, s.currentID); ok {
		return
	}
	if len(s.view) > 0 {
		s.currentID = s.view[0].ID
	} else {
		s.currentID = ""
	}
}

func (s *Store) currentLocked() *entities.Project {
	if i, ok := entities.FindProject(s.view, s.currentID); ok {
		return &s.view[i]
	}
	return nil
}

func (s *Store) loadSelection(ctx context.Context) {
	sel, ok := s.remote.(ports.SelectionStore)
	if !ok {
		return
	}
	s.mu.Lock()
	known := s.currentID != ""
	s.mu.Unlock()
	if known {
		return
	}

	id, err := sel.LoadCurrentProject(ctx)
	if err != nil {
		s.logger.Warnw("Failed to load current project", "error", err)
		return
	}
	s.mu.Lock()
	if s.currentID == "" {
		s.currentID = id
		s.persistedID = id
	}
	s.mu.Unlock()
}

func (s *Store) persistSelection(ctx context.Context) {
	sel, ok := s.remote.(ports.SelectionStore)
	if !ok {
		return
	}
	s.mu.Lock()
	id := s.currentID
	changed := id != "" && id != s.persistedID && !entities.IsTemporaryID(id)
	if changed {
		s.persistedID = id
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	if err := sel.SaveCurrentProject(ctx, id); err != nil {
		s.logger.Warnw("Failed to save current project", "project_id", id, "error", err)
	}
}

func (s *Store) checkProject(id string) error {
	s.mu.Lock()
	_, ok := entities.FindProject(s.view, id)
	s.mu.Unlock()
	if !ok {
		return entities.ErrProjectNotFound
	}
	if entities.IsTemporaryID(id) {
		return ErrPendingSync
	}
	return nil
}

func (s *Store) checkTask(id string) error {
	s.mu.Lock()
	_, _, ok := entities.FindTask(s.view, id)
	s.mu.Unlock()
	if !ok {
		return entities.ErrTaskNotFound
	}
	if entities.IsTemporaryID(id) {
		return ErrPendingSync
	}
	return nil
}

func (s *Store) findSubTask(id string) (entities.SubTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pi, ti, si, ok := findSubTask(s.view, id)
	if !ok {
		return entities.SubTask{}, entities.ErrSubTaskNotFound
	}
	return s.view[pi].Tasks[ti].SubTasks[si], nil
}

func findSubTask(projects []entities.Project, id string) (int, int, int, bool) {
	for pi := range projects {
		for ti := range projects[pi].Tasks {
			for si := range projects[pi].Tasks[ti].SubTasks {
				if projects[pi].Tasks[ti].SubTasks[si].ID == id {
					return pi, ti, si, true
				}
			}
		}
	}
	return -1, -1, -1, false
}
