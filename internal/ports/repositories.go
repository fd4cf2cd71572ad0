package ports

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/google/uuid"
)

// ErrCacheMiss is returned by CacheRepository.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// UserRepository defines the interface for auth user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	MarkConfirmed(ctx context.Context, id uuid.UUID, at time.Time) error
}

// AuthRepository defines the interface for confirmation code operations
type AuthRepository interface {
	CreateConfirmationCode(ctx context.Context, userID uuid.UUID, codeHash string, expiresAt time.Time) error
	// ConsumeConfirmationCode marks an unexpired, unused code as used and
	// returns its owner.
	ConsumeConfirmationCode(ctx context.Context, codeHash string) (uuid.UUID, error)
	CleanupExpiredCodes(ctx context.Context) error
}

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	Create(ctx context.Context, profile *entities.ProfileRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.ProfileRecord, error)
	Update(ctx context.Context, id uuid.UUID, patch entities.ProfilePatch) error
}

// ProjectRepository defines the interface for project data operations
type ProjectRepository interface {
	Create(ctx context.Context, project *entities.ProjectRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.ProjectRecord, error)
	Update(ctx context.Context, id uuid.UUID, patch entities.ProjectPatch) error
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteUnlessLast removes the project in one step unless it is the
	// user's only one, returning entities.ErrLastProject in that case.
	DeleteUnlessLast(ctx context.Context, userID, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entities.ProjectRecord, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	Create(ctx context.Context, task *entities.TaskRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.TaskRecord, error)
	Update(ctx context.Context, id uuid.UUID, patch entities.TaskPatch) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByProjects(ctx context.Context, projectIDs []uuid.UUID) ([]entities.TaskRecord, error)
	ListDue(ctx context.Context, projectIDs []uuid.UUID, from, to entities.Date) ([]entities.TaskRecord, error)
}

// SubTaskRepository defines the interface for sub-task data operations
type SubTaskRepository interface {
	Create(ctx context.Context, subTask *entities.SubTaskRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.SubTaskRecord, error)
	Update(ctx context.Context, id uuid.UUID, patch entities.SubTaskPatch) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByTasks(ctx context.Context, taskIDs []uuid.UUID) ([]entities.SubTaskRecord, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	// Incr atomically increments the integer at key, starting from zero.
	Incr(ctx context.Context, key string) (int64, error)
}

// ObjectStorage is a public file bucket.
type ObjectStorage interface {
	Upload(ctx context.Context, bucket, path, contentType string, data []byte) error
	Open(ctx context.Context, bucket, path string) (io.ReadCloser, error)
	PublicURL(bucket, path string) string
}

// Mailer delivers confirmation links.
type Mailer interface {
	SendConfirmation(ctx context.Context, email, link string) error
}
