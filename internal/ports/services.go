package ports

import (
	"context"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/google/uuid"
)

// AuthService interface for authentication operations
type AuthService interface {
	SignUp(ctx context.Context, req SignUpRequest) (*entities.User, error)
	SignIn(ctx context.Context, req SignInRequest) (*Session, error)
	ExchangeCode(ctx context.Context, code string) (*Session, error)
	SignOut(ctx context.Context, userID uuid.UUID) error
	ValidateToken(tokenString string) (*Claims, error)
}

// BoardService interface for project, task and sub-task operations
type BoardService interface {
	FetchBoard(ctx context.Context, userID uuid.UUID) ([]entities.Project, error)
	CreateProject(ctx context.Context, userID uuid.UUID, req CreateProjectRequest) (*entities.Project, error)
	UpdateProject(ctx context.Context, userID, projectID uuid.UUID, req UpdateProjectRequest) error
	DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error
	CreateTask(ctx context.Context, userID uuid.UUID, req CreateTaskRequest) (*entities.Task, error)
	UpdateTask(ctx context.Context, userID, taskID uuid.UUID, req UpdateTaskRequest) error
	DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error
	CreateSubTask(ctx context.Context, userID uuid.UUID, req CreateSubTaskRequest) (*entities.SubTask, error)
	UpdateSubTask(ctx context.Context, userID, subTaskID uuid.UUID, req UpdateSubTaskRequest) error
	DeleteSubTask(ctx context.Context, userID, subTaskID uuid.UUID) error
	Calendar(ctx context.Context, userID uuid.UUID, from, to entities.Date) ([]CalendarEntry, error)
}

// ProfileService interface for profile operations
type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*entities.UserProfile, error)
	Update(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*entities.UserProfile, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, data []byte) (*entities.UserProfile, error)
	UploadProjectIcon(ctx context.Context, userID, projectID uuid.UUID, data []byte) (string, error)
}

// MutationRecorder observes the outcome of every board write.
type MutationRecorder interface {
	RecordMutation(entity, op string, err error)
}

// Auth related types
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is returned after a successful sign-in or code exchange.
type Session struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int64          `json:"expires_in"`
	User        *entities.User `json:"user"`
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Project related types
type CreateProjectRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	Icon string `json:"icon" validate:"omitempty,max=2048"`
}

type UpdateProjectRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=200"`
	Icon *string `json:"icon" validate:"omitempty,max=2048"`
}

func (r UpdateProjectRequest) Patch() entities.ProjectPatch {
	return entities.ProjectPatch{Name: r.Name, Icon: r.Icon}
}

// Task related types
type CreateTaskRequest struct {
	ProjectID   uuid.UUID           `json:"projectId" validate:"required"`
	Title       string              `json:"title" validate:"required,max=500"`
	Description string              `json:"description" validate:"omitempty,max=5000"`
	Status      entities.TaskStatus `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS Review DONE"`
	DueDate     *entities.Date      `json:"dueDate"`
	Category    string              `json:"category" validate:"omitempty,max=100"`
}

type UpdateTaskRequest struct {
	Title       *string              `json:"title" validate:"omitempty,min=1,max=500"`
	Description *string              `json:"description" validate:"omitempty,max=5000"`
	Status      *entities.TaskStatus `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS Review DONE"`
	DueDate     *string              `json:"dueDate"`
	Category    *string              `json:"category" validate:"omitempty,max=100"`
}

func (r UpdateTaskRequest) Patch() entities.TaskPatch {
	return entities.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		DueDate:     r.DueDate,
		Category:    r.Category,
	}
}

// Sub-task related types
type CreateSubTaskRequest struct {
	TaskID uuid.UUID `json:"taskId" validate:"required"`
	Title  string    `json:"title" validate:"required,max=500"`
}

type UpdateSubTaskRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=500"`
	IsCompleted *bool   `json:"isCompleted"`
}

func (r UpdateSubTaskRequest) Patch() entities.SubTaskPatch {
	return entities.SubTaskPatch{Title: r.Title, IsCompleted: r.IsCompleted}
}

// Profile related types
type UpdateProfileRequest struct {
	Username *string `json:"username" validate:"omitempty,min=1,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

func (r UpdateProfileRequest) Patch() entities.ProfilePatch {
	return entities.ProfilePatch{Username: r.Username, Email: r.Email}
}

// CalendarEntry is a task with a due date, as listed by the calendar API.
type CalendarEntry struct {
	TaskID      string              `json:"taskId"`
	Title       string              `json:"title"`
	ProjectID   string              `json:"projectId"`
	ProjectName string              `json:"projectName"`
	Status      entities.TaskStatus `json:"status"`
	DueDate     entities.Date       `json:"dueDate"`
	Color       string              `json:"color"`
}

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Message string `json:"message"`
}
