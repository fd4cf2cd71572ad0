package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

// pgUniqueViolation is the SQLSTATE of a unique constraint failure.
const pgUniqueViolation = "23505"

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) ports.UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *entities.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, confirmed_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.ConfirmedAt,
	).Scan(&user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return entities.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	query := `
		SELECT id, email, password_hash, confirmed_at, created_at
		FROM users
		WHERE id = $1`

	var user entities.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}

func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	query := `
		SELECT id, email, password_hash, confirmed_at, created_at
		FROM users
		WHERE email = $1`

	var user entities.User
	err := r.db.GetContext(ctx, &user, query, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &user, nil
}

func (r *UserRepositoryImpl) MarkConfirmed(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE users SET confirmed_at = COALESCE(confirmed_at, $2) WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("confirm user: %w", err)
	}

	return expectRow(result, entities.ErrUserNotFound)
}

// AuthRepositoryImpl implements the AuthRepository interface
type AuthRepositoryImpl struct {
	db *sqlx.DB
}

// NewAuthRepository creates a new auth repository
func NewAuthRepository(db *sqlx.DB) ports.AuthRepository {
	return &AuthRepositoryImpl{db: db}
}

func (r *AuthRepositoryImpl) CreateConfirmationCode(ctx context.Context, userID uuid.UUID, codeHash string, expiresAt time.Time) error {
	query := `
		INSERT INTO confirmation_codes (user_id, code_hash, expires_at)
		VALUES ($1, $2, $3)`

	_, err := r.db.ExecContext(ctx, query, userID, codeHash, expiresAt)
	if err != nil {
		return fmt.Errorf("create confirmation code: %w", err)
	}

	return nil
}

func (r *AuthRepositoryImpl) ConsumeConfirmationCode(ctx context.Context, codeHash string) (uuid.UUID, error) {
	query := `
		UPDATE confirmation_codes
		SET used_at = CURRENT_TIMESTAMP
		WHERE code_hash = $1 AND used_at IS NULL AND expires_at > CURRENT_TIMESTAMP
		RETURNING user_id`

	var userID uuid.UUID
	err := r.db.GetContext(ctx, &userID, query, codeHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return uuid.Nil, entities.ErrInvalidCode
		}
		return uuid.Nil, fmt.Errorf("consume confirmation code: %w", err)
	}

	return userID, nil
}

func (r *AuthRepositoryImpl) CleanupExpiredCodes(ctx context.Context) error {
	query := `DELETE FROM confirmation_codes WHERE expires_at < CURRENT_TIMESTAMP OR used_at IS NOT NULL`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("cleanup expired codes: %w", err)
	}

	return nil
}

// ProfileRepositoryImpl implements the ProfileRepository interface
type ProfileRepositoryImpl struct {
	db *sqlx.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sqlx.DB) ports.ProfileRepository {
	return &ProfileRepositoryImpl{db: db}
}

// Create inserts the profile row unless one already exists for the user.
func (r *ProfileRepositoryImpl) Create(ctx context.Context, profile *entities.ProfileRecord) error {
	query := `
		INSERT INTO profiles (id, username, email, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query, profile.ID, profile.Username, profile.Email, profile.AvatarURL)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}

	return nil
}

func (r *ProfileRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.ProfileRecord, error) {
	query := `
		SELECT id, username, email, avatar_url, created_at
		FROM profiles
		WHERE id = $1`

	var profile entities.ProfileRecord
	err := r.db.GetContext(ctx, &profile, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &profile, nil
}

func (r *ProfileRepositoryImpl) Update(ctx context.Context, id uuid.UUID, patch entities.ProfilePatch) error {
	var set updateSet
	if patch.Username != nil {
		set.add("username", entities.NullableString(*patch.Username))
	}
	if patch.Email != nil {
		set.add("email", entities.NullableString(*patch.Email))
	}
	if patch.ProfilePicture != nil {
		set.add("avatar_url", entities.NullableString(*patch.ProfilePicture))
	}

	return set.exec(ctx, r.db, "profiles", id, entities.ErrProfileNotFound)
}

// updateSet collects the columns of a partial UPDATE.
type updateSet struct {
	columns []string
	args    []interface{}
}

func (s *updateSet) add(column string, value interface{}) {
	s.args = append(s.args, value)
	s.columns = append(s.columns, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

// exec runs the update for the row with the given id. An empty set only
// checks that the row exists.
func (s *updateSet) exec(ctx context.Context, db *sqlx.DB, table string, id uuid.UUID, notFound error) error {
	if len(s.columns) == 0 {
		var exists bool
		query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, table)
		if err := db.GetContext(ctx, &exists, query, id); err != nil {
			return fmt.Errorf("update %s: %w", table, err)
		}
		if !exists {
			return notFound
		}
		return nil
	}

	args := append(s.args, id)
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`, table, strings.Join(s.columns, ", "), len(args))

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}

	return expectRow(result, notFound)
}

func expectRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return notFound
	}

	return nil
}
