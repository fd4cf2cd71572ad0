package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/config"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

// Claims represents the JWT claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService handles sign-up, e-mail confirmation and sessions
type AuthService struct {
	userRepo    ports.UserRepository
	authRepo    ports.AuthRepository
	profileRepo ports.ProfileRepository
	projectRepo ports.ProjectRepository
	mailer      ports.Mailer
	jwtConfig   config.JWTConfig
	siteURL     string
	logger      *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo ports.UserRepository,
	authRepo ports.AuthRepository,
	profileRepo ports.ProfileRepository,
	projectRepo ports.ProjectRepository,
	mailer ports.Mailer,
	jwtConfig config.JWTConfig,
	siteURL string,
	logger *logger.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		authRepo:    authRepo,
		profileRepo: profileRepo,
		projectRepo: projectRepo,
		mailer:      mailer,
		jwtConfig:   jwtConfig,
		siteURL:     strings.TrimRight(siteURL, "/"),
		logger:      logger,
	}
}

// SignUp creates an unconfirmed account and sends its confirmation link
func (s *AuthService) SignUp(ctx context.Context, req ports.SignUpRequest) (*entities.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, entities.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	code, err := s.issueConfirmationCode(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendConfirmation(ctx, user.Email, s.ConfirmationLink(code)); err != nil {
		return nil, fmt.Errorf("failed to send confirmation: %w", err)
	}

	s.logger.Infow("User signed up successfully", "user_id", user.ID, "email", user.Email)

	user.PasswordHash = ""
	return user, nil
}

// SignIn checks the password of a confirmed account and opens a session
func (s *AuthService) SignIn(ctx context.Context, req ports.SignInRequest) (*ports.Session, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, entities.ErrUserNotFound) {
			s.logger.LogSecurityEvent("signin_unknown_email", "", "", map[string]interface{}{"email": req.Email})
			return nil, entities.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.LogSecurityEvent("signin_invalid_password", user.ID.String(), "", nil)
		return nil, entities.ErrInvalidCredentials
	}

	if !user.IsConfirmed() {
		return nil, entities.ErrEmailNotConfirmed
	}

	s.logger.Infow("User signed in successfully", "user_id", user.ID)

	return s.newSession(user)
}

// ExchangeCode consumes a confirmation code, confirms its owner and opens a
// session
func (s *AuthService) ExchangeCode(ctx context.Context, code string) (*ports.Session, error) {
	if code == "" {
		return nil, entities.ErrInvalidCode
	}

	userID, err := s.authRepo.ConsumeConfirmationCode(ctx, hashToken(code))
	if err != nil {
		if errors.Is(err, entities.ErrInvalidCode) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to consume confirmation code: %w", err)
	}

	user, err := s.ConfirmUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.newSession(user)
}

// ConfirmUser marks the account confirmed and seeds its profile and first
// project. Seeding is skipped for rows that already exist.
func (s *AuthService) ConfirmUser(ctx context.Context, userID uuid.UUID) (*entities.User, error) {
	if err := s.userRepo.MarkConfirmed(ctx, userID, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to confirm user: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	username := entities.DisplayName("", user.Email)
	err = s.profileRepo.Create(ctx, &entities.ProfileRecord{
		ID:       user.ID,
		Username: &username,
		Email:    &user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	count, err := s.projectRepo.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}
	if count == 0 {
		err = s.projectRepo.Create(ctx, &entities.ProjectRecord{
			UserID: user.ID,
			Name:   entities.DefaultProjectName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create first project: %w", err)
		}
	}

	s.logger.Infow("User confirmed successfully", "user_id", user.ID)
	return user, nil
}

// SignOut records the end of a session. Tokens are stateless; the caller
// drops the session cookie.
func (s *AuthService) SignOut(ctx context.Context, userID uuid.UUID) error {
	if err := s.authRepo.CleanupExpiredCodes(ctx); err != nil {
		s.logger.Warnw("Failed to clean up confirmation codes", "error", err)
	}

	s.logger.LogSecurityEvent("signout", userID.String(), "", nil)
	return nil
}

// ValidateToken validates a JWT token and returns claims
func (s *AuthService) ValidateToken(tokenString string) (*ports.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	}, jwt.WithIssuer(s.jwtConfig.Issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, entities.ErrUnauthorized
	}

	return &ports.Claims{
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}

// ConfirmationLink builds the callback URL that exchanges code for a session.
func (s *AuthService) ConfirmationLink(code string) string {
	return s.siteURL + "/auth/callback?code=" + url.QueryEscape(code)
}

func (s *AuthService) newSession(user *entities.User) (*ports.Session, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	user.PasswordHash = ""

	return &ports.Session{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtConfig.ExpiresIn.Seconds()),
		User:        user,
	}, nil
}

func (s *AuthService) generateAccessToken(user *entities.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID.String(),
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.jwtConfig.Issuer,
			Subject:   user.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (s *AuthService) issueConfirmationCode(ctx context.Context, userID uuid.UUID) (string, error) {
	codeBytes := make([]byte, 32)
	if _, err := rand.Read(codeBytes); err != nil {
		return "", fmt.Errorf("failed to generate confirmation code: %w", err)
	}

	code := hex.EncodeToString(codeBytes)

	expiresAt := time.Now().Add(s.jwtConfig.CodeExpiresIn)
	if err := s.authRepo.CreateConfirmationCode(ctx, userID, hashToken(code), expiresAt); err != nil {
		return "", fmt.Errorf("failed to store confirmation code: %w", err)
	}

	return code, nil
}

// hashToken returns the stored form of a secret token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// LogMailer writes confirmation links to the log instead of sending e-mail.
type LogMailer struct {
	logger *logger.Logger
}

// NewLogMailer creates a mailer that logs every message
func NewLogMailer(logger *logger.Logger) *LogMailer {
	return &LogMailer{logger: logger.WithComponent("mailer")}
}

func (m *LogMailer) SendConfirmation(ctx context.Context, email, link string) error {
	m.logger.Infow("Confirmation link issued", "email", email, "link", link)
	return nil
}
