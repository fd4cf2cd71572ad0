package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrSubTaskNotFound    = errors.New("sub-task not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrLastProject        = errors.New("cannot delete the last project")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCode        = errors.New("invalid or expired confirmation code")
	ErrUnauthorized       = errors.New("user not authenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
)

// TempIDPrefix marks identifiers that were generated locally and have not
// been confirmed by the remote store yet.
const TempIDPrefix = "temp-"

// NewTemporaryID returns a fresh pending-sync identifier.
func NewTemporaryID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTemporaryID reports whether id was issued by NewTemporaryID.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusReview     TaskStatus = "Review"
	TaskStatusDone       TaskStatus = "DONE"
)

// Valid reports whether s is one of the four board columns.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	}
	return false
}

// ParseTaskStatus converts user input into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if !status.Valid() {
		return "", ErrInvalidStatus
	}
	return status, nil
}

// DefaultCategory is applied to tasks created without a category.
const DefaultCategory = "Dev"

// DefaultProjectName names the project seeded for new users.
const DefaultProjectName = "My Project"

// SubTask is a checklist item under a task.
type SubTask struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IsCompleted bool   `json:"isCompleted"`
}

// Task is a unit of work in one of the status columns.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	DueDate     *Date      `json:"dueDate"`
	Category    string     `json:"category"`
	SubTasks    []SubTask  `json:"subTasks"`
}

// Project is a named collection of tasks owned by one user.
type Project struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Tasks []Task `json:"tasks"`
}

// UserProfile is the public profile of a signed-in user.
type UserProfile struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// User is the authentication record kept by the backend.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	ConfirmedAt  *time.Time `json:"confirmed_at" db:"confirmed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// IsConfirmed reports whether the user finished the e-mail confirmation.
func (u *User) IsConfirmed() bool {
	return u.ConfirmedAt != nil
}

// DisplayName derives a username from an e-mail address.
func DisplayName(username, email string) string {
	if username != "" {
		return username
	}
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	return "User"
}

// Clone returns a deep copy of the project.
func (p Project) Clone() Project {
	out := p
	if p.Tasks != nil {
		out.Tasks = make([]Task, len(p.Tasks))
		for i, t := range p.Tasks {
			out.Tasks[i] = t.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	out := t
	if t.DueDate != nil {
		d := *t.DueDate
		out.DueDate = &d
	}
	if t.SubTasks != nil {
		out.SubTasks = append([]SubTask(nil), t.SubTasks...)
	}
	return out
}

// CloneProjects deep-copies a project list.
func CloneProjects(projects []Project) []Project {
	if projects == nil {
		return nil
	}
	out := make([]Project, len(projects))
	for i, p := range projects {
		out[i] = p.Clone()
	}
	return out
}

// FindTask locates a task across projects and returns the owning project index and task index.
func FindTask(projects []Project, taskID string) (int, int, bool) {
	for pi := range projects {
		for ti := range projects[pi].Tasks {
			if projects[pi].Tasks[ti].ID == taskID {
				return pi, ti, true
			}
		}
	}
	return -1, -1, false
}

// FindProject returns the index of the project with the given id.
func FindProject(projects []Project, projectID string) (int, bool) {
	for i := range projects {
		if projects[i].ID == projectID {
			return i, true
		}
	}
	return -1, false
}
