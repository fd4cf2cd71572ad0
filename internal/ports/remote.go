package ports

import (
	"context"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
)

// RemoteStore is the authoritative store the board reconciles against.
// Implementations return the entities sentinel errors where one applies.
type RemoteStore interface {
	FetchProjects(ctx context.Context) ([]entities.Project, error)
	CreateProject(ctx context.Context, name, icon string) (*entities.Project, error)
	UpdateProject(ctx context.Context, id string, patch entities.ProjectPatch) error
	DeleteProject(ctx context.Context, id string) error
	CreateTask(ctx context.Context, projectID string, task entities.NewTask) (*entities.Task, error)
	UpdateTask(ctx context.Context, id string, patch entities.TaskPatch) error
	DeleteTask(ctx context.Context, id string) error
	CreateSubTask(ctx context.Context, taskID, title string) (*entities.SubTask, error)
	UpdateSubTask(ctx context.Context, id string, patch entities.SubTaskPatch) error
	DeleteSubTask(ctx context.Context, id string) error
}

// ProfileStore reads and edits the signed-in user's profile.
type ProfileStore interface {
	FetchProfile(ctx context.Context) (*entities.UserProfile, error)
	UpdateProfile(ctx context.Context, patch entities.ProfilePatch) (*entities.UserProfile, error)
	UploadAvatar(ctx context.Context, data []byte) (*entities.UserProfile, error)
}

// SelectionStore is implemented by stores that remember the selected
// project between runs.
type SelectionStore interface {
	LoadCurrentProject(ctx context.Context) (string, error)
	SaveCurrentProject(ctx context.Context, id string) error
}

// Backend is a complete client-side data source.
type Backend interface {
	RemoteStore
	ProfileStore
	Close() error
}
