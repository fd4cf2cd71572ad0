package board

import (
	"context"
	"sort"
	"strings"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
)

// Location is a position inside a status column.
type Location struct {
	Status entities.TaskStatus
	Index  int
}

// DragResult describes a finished drag gesture. A nil Destination means the
// task was dropped outside any column.
type DragResult struct {
	TaskID      string
	Source      Location
	Destination *Location
}

// Column is one status lane of the current project.
type Column struct {
	entities.StatusColumn
	Tasks []entities.Task
}

// Move applies a drag gesture. Dropping a task where it started is a no-op.
// A move to another column changes the task status optimistically; a move
// inside a column only reorders it locally.
func (s *Store) Move(ctx context.Context, r DragResult) error {
	if r.Destination == nil {
		return nil
	}
	dst := *r.Destination
	if dst.Status == r.Source.Status && dst.Index == r.Source.Index {
		return nil
	}
	if !dst.Status.Valid() {
		return entities.ErrInvalidStatus
	}

	s.mu.Lock()
	project := s.currentLocked()
	if project == nil {
		s.mu.Unlock()
		return entities.ErrProjectNotFound
	}
	var task *entities.Task
	for i := range project.Tasks {
		if project.Tasks[i].ID == r.TaskID {
			task = &project.Tasks[i]
			break
		}
	}
	if task == nil {
		s.mu.Unlock()
		return entities.ErrTaskNotFound
	}
	if entities.IsTemporaryID(task.ID) {
		s.mu.Unlock()
		return ErrPendingSync
	}

	from := task.Status
	projectID := project.ID
	srcIDs := taskIDs(orderColumn(project.Tasks, from, s.order[projectID][from]))
	srcIDs = removeID(srcIDs, task.ID)

	var dstIDs []string
	if dst.Status == from {
		dstIDs = srcIDs
	} else {
		dstIDs = taskIDs(orderColumn(project.Tasks, dst.Status, s.order[projectID][dst.Status]))
	}
	dstIDs = insertID(dstIDs, task.ID, dst.Index)

	prevSrc := s.order[projectID][from]
	prevDst := s.order[projectID][dst.Status]
	s.setOrderLocked(projectID, from, srcIDs)
	s.setOrderLocked(projectID, dst.Status, dstIDs)
	s.mu.Unlock()

	if dst.Status == from {
		s.notifier.BoardChanged()
		return nil
	}

	return s.updateTask(ctx, r.TaskID, entities.StatusPatch(dst.Status), func() {
		s.setOrderLocked(projectID, from, prevSrc)
		s.setOrderLocked(projectID, dst.Status, prevDst)
	})
}

// TasksByStatus lists the current project's tasks in one column, filtered by
// a case-insensitive search on title and description. A non-empty
// statusFilter hides every other column.
func (s *Store) TasksByStatus(status entities.TaskStatus, query string, statusFilter entities.TaskStatus) []entities.Task {
	out := []entities.Task{}
	if statusFilter != "" && statusFilter != status {
		return out
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	project := s.currentLocked()
	if project == nil {
		return out
	}

	q := strings.ToLower(strings.TrimSpace(query))
	for _, t := range orderColumn(project.Tasks, status, s.order[project.ID][status]) {
		if q != "" && !matches(t, q) {
			continue
		}
		out = append(out, t.Clone())
	}
	return out
}

// Columns returns all four lanes of the current project in display order.
func (s *Store) Columns(query string, statusFilter entities.TaskStatus) []Column {
	cols := make([]Column, 0, len(entities.StatusColumns))
	for _, c := range entities.StatusColumns {
		cols = append(cols, Column{
			StatusColumn: c,
			Tasks:        s.TasksByStatus(c.Status, query, statusFilter),
		})
	}
	return cols
}

// ProjectColumns splits a project's tasks into lanes in stored order, for
// views that render a fetched board without a Store.
func ProjectColumns(p entities.Project, query string, statusFilter entities.TaskStatus) []Column {
	q := strings.ToLower(strings.TrimSpace(query))
	cols := make([]Column, 0, len(entities.StatusColumns))
	for _, c := range entities.StatusColumns {
		col := Column{StatusColumn: c, Tasks: []entities.Task{}}
		if statusFilter == "" || statusFilter == c.Status {
			for _, t := range orderColumn(p.Tasks, c.Status, nil) {
				if q == "" || matches(t, q) {
					col.Tasks = append(col.Tasks, t.Clone())
				}
			}
		}
		cols = append(cols, col)
	}
	return cols
}

func (s *Store) setOrderLocked(projectID string, status entities.TaskStatus, ids []string) {
	byStatus, ok := s.order[projectID]
	if !ok {
		byStatus = make(map[entities.TaskStatus][]string)
		s.order[projectID] = byStatus
	}
	if ids == nil {
		delete(byStatus, status)
		return
	}
	byStatus[status] = ids
}

func matches(t entities.Task, q string) bool {
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

// orderColumn selects the tasks with status and sorts them by the ordering
// hint. Tasks missing from the hint keep their stored order after the rest.
func orderColumn(tasks []entities.Task, status entities.TaskStatus, hint []string) []entities.Task {
	var col []entities.Task
	for _, t := range tasks {
		if t.Status == status {
			col = append(col, t)
		}
	}
	if len(hint) == 0 {
		return col
	}

	rank := make(map[string]int, len(hint))
	for i, id := range hint {
		rank[id] = i
	}
	sort.SliceStable(col, func(i, j int) bool {
		ri, iok := rank[col[i].ID]
		rj, jok := rank[col[j].ID]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		default:
			return false
		}
	})
	return col
}

func taskIDs(tasks []entities.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func insertID(ids []string, id string, index int) []string {
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:index]...)
	out = append(out, id)
	return append(out, ids[index:]...)
}
