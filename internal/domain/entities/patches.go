package entities

import "strings"

// NewTask carries the fields a task is created with.
type NewTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status,omitempty"`
	DueDate     *Date      `json:"dueDate"`
	Category    string     `json:"category,omitempty"`
}

// Normalize fills the defaults applied to every new task.
func (n *NewTask) Normalize() {
	n.Title = strings.TrimSpace(n.Title)
	if n.Status == "" {
		n.Status = TaskStatusTodo
	}
	if n.Category == "" {
		n.Category = DefaultCategory
	}
}

// ProjectPatch lists the project fields to change; nil fields are left alone.
type ProjectPatch struct {
	Name *string `json:"name,omitempty"`
	Icon *string `json:"icon,omitempty"`
}

// Apply writes the patch onto p.
func (patch ProjectPatch) Apply(p *Project) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Icon != nil {
		p.Icon = *patch.Icon
	}
}

// TaskPatch lists the task fields to change. An empty DueDate string clears
// the due date.
type TaskPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
	DueDate     *string     `json:"dueDate,omitempty"`
	Category    *string     `json:"category,omitempty"`
}

// StatusPatch builds a patch that only moves a task to another column.
func StatusPatch(status TaskStatus) TaskPatch {
	return TaskPatch{Status: &status}
}

// Validate checks the values a patch would write.
func (patch TaskPatch) Validate() error {
	if patch.Status != nil && !patch.Status.Valid() {
		return ErrInvalidStatus
	}
	if patch.DueDate != nil && *patch.DueDate != "" {
		if _, err := ParseDate(*patch.DueDate); err != nil {
			return err
		}
	}
	return nil
}

// Apply writes the patch onto t. Callers validate first.
func (patch TaskPatch) Apply(t *Task) {
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.DueDate != nil {
		t.DueDate, _ = ParseDatePtr(*patch.DueDate)
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
}

// SubTaskPatch lists the sub-task fields to change.
type SubTaskPatch struct {
	Title       *string `json:"title,omitempty"`
	IsCompleted *bool   `json:"isCompleted,omitempty"`
}

// Apply writes the patch onto st.
func (patch SubTaskPatch) Apply(st *SubTask) {
	if patch.Title != nil {
		st.Title = *patch.Title
	}
	if patch.IsCompleted != nil {
		st.IsCompleted = *patch.IsCompleted
	}
}

// ProfilePatch lists the profile fields to change.
type ProfilePatch struct {
	Username       *string `json:"username,omitempty"`
	Email          *string `json:"email,omitempty"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
}

// Apply writes the patch onto p.
func (patch ProfilePatch) Apply(p *UserProfile) {
	if patch.Username != nil {
		p.Username = *patch.Username
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.ProfilePicture != nil {
		p.ProfilePicture = *patch.ProfilePicture
	}
}
