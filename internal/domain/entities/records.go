package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProjectRecord is a row of the projects table.
type ProjectRecord struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Name      string    `db:"name"`
	Icon      *string   `db:"icon"`
	SortOrder int       `db:"sort_order"`
	CreatedAt time.Time `db:"created_at"`
}

// TaskRecord is a row of the tasks table.
type TaskRecord struct {
	ID          uuid.UUID  `db:"id"`
	ProjectID   uuid.UUID  `db:"project_id"`
	Title       string     `db:"title"`
	Description *string    `db:"description"`
	Status      TaskStatus `db:"status"`
	DueDate     *Date      `db:"due_date"`
	Category    *string    `db:"category"`
	CreatedAt   time.Time  `db:"created_at"`
}

// SubTaskRecord is a row of the sub_tasks table.
type SubTaskRecord struct {
	ID          uuid.UUID `db:"id"`
	TaskID      uuid.UUID `db:"task_id"`
	Title       string    `db:"title"`
	IsCompleted bool      `db:"is_completed"`
	CreatedAt   time.Time `db:"created_at"`
}

// ProfileRecord is a row of the profiles table.
type ProfileRecord struct {
	ID        uuid.UUID `db:"id"`
	Username  *string   `db:"username"`
	Email     *string   `db:"email"`
	AvatarURL *string   `db:"avatar_url"`
	CreatedAt time.Time `db:"created_at"`
}

// AssembleProjects maps table rows onto the nested client view, keeping the
// row order of each input slice.
func AssembleProjects(projects []ProjectRecord, tasks []TaskRecord, subTasks []SubTaskRecord) []Project {
	subsByTask := make(map[uuid.UUID][]SubTask)
	for _, st := range subTasks {
		subsByTask[st.TaskID] = append(subsByTask[st.TaskID], st.ToSubTask())
	}

	tasksByProject := make(map[uuid.UUID][]Task)
	for _, tr := range tasks {
		task := tr.ToTask()
		task.SubTasks = subsByTask[tr.ID]
		if task.SubTasks == nil {
			task.SubTasks = []SubTask{}
		}
		tasksByProject[tr.ProjectID] = append(tasksByProject[tr.ProjectID], task)
	}

	out := make([]Project, 0, len(projects))
	for _, pr := range projects {
		p := pr.ToProject()
		p.Tasks = tasksByProject[pr.ID]
		if p.Tasks == nil {
			p.Tasks = []Task{}
		}
		out = append(out, p)
	}
	return out
}

func (r ProjectRecord) ToProject() Project {
	return Project{
		ID:    r.ID.String(),
		Name:  r.Name,
		Icon:  deref(r.Icon),
		Tasks: []Task{},
	}
}

func (r TaskRecord) ToTask() Task {
	category := deref(r.Category)
	if category == "" {
		category = DefaultCategory
	}
	return Task{
		ID:          r.ID.String(),
		Title:       r.Title,
		Description: deref(r.Description),
		Status:      r.Status,
		DueDate:     r.DueDate,
		Category:    category,
		SubTasks:    []SubTask{},
	}
}

func (r SubTaskRecord) ToSubTask() SubTask {
	return SubTask{
		ID:          r.ID.String(),
		Title:       r.Title,
		IsCompleted: r.IsCompleted,
	}
}

// ToProfile applies the username and e-mail fallbacks of the profile page.
func (r ProfileRecord) ToProfile(authEmail string) UserProfile {
	email := deref(r.Email)
	if email == "" {
		email = authEmail
	}
	return UserProfile{
		ID:             r.ID.String(),
		Username:       DisplayName(deref(r.Username), email),
		Email:          email,
		ProfilePicture: deref(r.AvatarURL),
		CreatedAt:      r.CreatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NullableString converts blank input into a NULL column value.
func NullableString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
