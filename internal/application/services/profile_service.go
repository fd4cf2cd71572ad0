package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/imaging"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

// Public buckets for uploaded pictures.
const (
	AvatarBucket      = "avatars"
	ProjectIconBucket = "project-icons"
)

// ProfileService handles the user profile and picture uploads
type ProfileService struct {
	profileRepo ports.ProfileRepository
	userRepo    ports.UserRepository
	projectRepo ports.ProjectRepository
	board       ports.BoardService
	storage     ports.ObjectStorage
	logger      *logger.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(
	profileRepo ports.ProfileRepository,
	userRepo ports.UserRepository,
	projectRepo ports.ProjectRepository,
	board ports.BoardService,
	storage ports.ObjectStorage,
	logger *logger.Logger,
) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		userRepo:    userRepo,
		projectRepo: projectRepo,
		board:       board,
		storage:     storage,
		logger:      logger,
	}
}

// Get returns the profile, creating the row on first access
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*entities.UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	record, err := s.profileRepo.GetByID(ctx, userID)
	if errors.Is(err, entities.ErrProfileNotFound) {
		record = &entities.ProfileRecord{ID: userID, Email: &user.Email, CreatedAt: user.CreatedAt}
		if err := s.profileRepo.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	profile := record.ToProfile(user.Email)
	return &profile, nil
}

// Update changes the username or the profile e-mail
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, req ports.UpdateProfileRequest) (*entities.UserProfile, error) {
	patch := req.Patch()
	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if username == "" {
			return nil, fmt.Errorf("%w: username is blank", entities.ErrInvalidInput)
		}
		patch.Username = &username
	}

	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.profileRepo.Update(ctx, userID, patch); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.LogUserAction(userID.String(), "update_profile", nil)

	return s.Get(ctx, userID)
}

// UploadAvatar stores a scaled copy of the picture and links it from the
// profile
func (s *ProfileService) UploadAvatar(ctx context.Context, userID uuid.UUID, data []byte) (*entities.UserProfile, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("%s/profile-%d.jpg", userID, time.Now().UnixMilli())
	url, err := s.storePicture(ctx, AvatarBucket, path, data)
	if err != nil {
		return nil, err
	}

	if err := s.profileRepo.Update(ctx, userID, entities.ProfilePatch{ProfilePicture: &url}); err != nil {
		return nil, fmt.Errorf("failed to update profile picture: %w", err)
	}

	s.logger.LogUserAction(userID.String(), "upload_avatar", map[string]interface{}{"path": path})

	return s.Get(ctx, userID)
}

// UploadProjectIcon stores a scaled copy of the picture and sets it as the
// project icon. It returns the icon URL.
func (s *ProfileService) UploadProjectIcon(ctx context.Context, userID, projectID uuid.UUID, data []byte) (string, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return "", err
	}
	if project.UserID != userID {
		return "", entities.ErrForbidden
	}

	path := fmt.Sprintf("%s/%s-%d.jpg", userID, projectID, time.Now().UnixMilli())
	url, err := s.storePicture(ctx, ProjectIconBucket, path, data)
	if err != nil {
		return "", err
	}

	if err := s.board.UpdateProject(ctx, userID, projectID, ports.UpdateProjectRequest{Icon: &url}); err != nil {
		return "", err
	}

	return url, nil
}

func (s *ProfileService) storePicture(ctx context.Context, bucket, path string, data []byte) (string, error) {
	prepared, err := imaging.Prepare(data)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedFormat) {
			return "", fmt.Errorf("%w: %v", entities.ErrInvalidInput, err)
		}
		return "", fmt.Errorf("failed to process image: %w", err)
	}

	if err := s.storage.Upload(ctx, bucket, path, imaging.ContentType, prepared); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return s.storage.PublicURL(bucket, path), nil
}
