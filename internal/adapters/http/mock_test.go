package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

var testUserID = uuid.MustParse("7f6d2a7e-3b7e-4d55-9c43-0f6c0b8f1a11")

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}
	templates, err := NewTemplates()
	if err != nil {
		panic(err)
	}
	e.Renderer = templates
	return e
}

// newRequest builds a context for a signed-in JSON request.
func newRequest(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(ContextUserKey, testUserID.String())
	return c, rec
}

func httpStatus(err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return http.StatusOK
}

var testLogger = logger.NewNop()

// MockAuthService is a mock implementation of ports.AuthService
type MockAuthService struct {
	SignUpFunc        func(ctx context.Context, req ports.SignUpRequest) (*entities.User, error)
	SignInFunc        func(ctx context.Context, req ports.SignInRequest) (*ports.Session, error)
	ExchangeCodeFunc  func(ctx context.Context, code string) (*ports.Session, error)
	SignOutFunc       func(ctx context.Context, userID uuid.UUID) error
	ValidateTokenFunc func(tokenString string) (*ports.Claims, error)
}

func (m *MockAuthService) SignUp(ctx context.Context, req ports.SignUpRequest) (*entities.User, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, req)
	}
	return &entities.User{ID: uuid.New(), Email: req.Email}, nil
}

func (m *MockAuthService) SignIn(ctx context.Context, req ports.SignInRequest) (*ports.Session, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, req)
	}
	return &ports.Session{AccessToken: "token", TokenType: "Bearer"}, nil
}

func (m *MockAuthService) ExchangeCode(ctx context.Context, code string) (*ports.Session, error) {
	if m.ExchangeCodeFunc != nil {
		return m.ExchangeCodeFunc(ctx, code)
	}
	return &ports.Session{AccessToken: "token", TokenType: "Bearer"}, nil
}

func (m *MockAuthService) SignOut(ctx context.Context, userID uuid.UUID) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, userID)
	}
	return nil
}

func (m *MockAuthService) ValidateToken(tokenString string) (*ports.Claims, error) {
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(tokenString)
	}
	return nil, entities.ErrUnauthorized
}

// MockBoardService is a mock implementation of ports.BoardService. Methods
// without an override succeed with a zero result.
type MockBoardService struct {
	mu    sync.Mutex
	calls map[string]int

	FetchBoardFunc    func(ctx context.Context, userID uuid.UUID) ([]entities.Project, error)
	CreateProjectFunc func(ctx context.Context, userID uuid.UUID, req ports.CreateProjectRequest) (*entities.Project, error)
	UpdateProjectFunc func(ctx context.Context, userID, projectID uuid.UUID, req ports.UpdateProjectRequest) error
	DeleteProjectFunc func(ctx context.Context, userID, projectID uuid.UUID) error
	CreateTaskFunc    func(ctx context.Context, userID uuid.UUID, req ports.CreateTaskRequest) (*entities.Task, error)
	UpdateTaskFunc    func(ctx context.Context, userID, taskID uuid.UUID, req ports.UpdateTaskRequest) error
	CalendarFunc      func(ctx context.Context, userID uuid.UUID, from, to entities.Date) ([]ports.CalendarEntry, error)
}

func (m *MockBoardService) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

// CallCount returns how often method name was called
func (m *MockBoardService) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *MockBoardService) FetchBoard(ctx context.Context, userID uuid.UUID) ([]entities.Project, error) {
	m.record("FetchBoard")
	if m.FetchBoardFunc != nil {
		return m.FetchBoardFunc(ctx, userID)
	}
	return []entities.Project{}, nil
}

func (m *MockBoardService) CreateProject(ctx context.Context, userID uuid.UUID, req ports.CreateProjectRequest) (*entities.Project, error) {
	m.record("CreateProject")
	if m.CreateProjectFunc != nil {
		return m.CreateProjectFunc(ctx, userID, req)
	}
	return &entities.Project{ID: uuid.NewString(), Name: req.Name, Icon: req.Icon, Tasks: []entities.Task{}}, nil
}

func (m *MockBoardService) UpdateProject(ctx context.Context, userID, projectID uuid.UUID, req ports.UpdateProjectRequest) error {
	m.record("UpdateProject")
	if m.UpdateProjectFunc != nil {
		return m.UpdateProjectFunc(ctx, userID, projectID, req)
	}
	return nil
}

func (m *MockBoardService) DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error {
	m.record("DeleteProject")
	if m.DeleteProjectFunc != nil {
		return m.DeleteProjectFunc(ctx, userID, projectID)
	}
	return nil
}

func (m *MockBoardService) CreateTask(ctx context.Context, userID uuid.UUID, req ports.CreateTaskRequest) (*entities.Task, error) {
	m.record("CreateTask")
	if m.CreateTaskFunc != nil {
		return m.CreateTaskFunc(ctx, userID, req)
	}
	return &entities.Task{ID: uuid.NewString(), Title: req.Title, Status: entities.TaskStatusTodo}, nil
}

func (m *MockBoardService) UpdateTask(ctx context.Context, userID, taskID uuid.UUID, req ports.UpdateTaskRequest) error {
	m.record("UpdateTask")
	if m.UpdateTaskFunc != nil {
		return m.UpdateTaskFunc(ctx, userID, taskID, req)
	}
	return nil
}

func (m *MockBoardService) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	m.record("DeleteTask")
	return nil
}

func (m *MockBoardService) CreateSubTask(ctx context.Context, userID uuid.UUID, req ports.CreateSubTaskRequest) (*entities.SubTask, error) {
	m.record("CreateSubTask")
	return &entities.SubTask{ID: uuid.NewString(), Title: req.Title}, nil
}

func (m *MockBoardService) UpdateSubTask(ctx context.Context, userID, subTaskID uuid.UUID, req ports.UpdateSubTaskRequest) error {
	m.record("UpdateSubTask")
	return nil
}

func (m *MockBoardService) DeleteSubTask(ctx context.Context, userID, subTaskID uuid.UUID) error {
	m.record("DeleteSubTask")
	return nil
}

func (m *MockBoardService) Calendar(ctx context.Context, userID uuid.UUID, from, to entities.Date) ([]ports.CalendarEntry, error) {
	m.record("Calendar")
	if m.CalendarFunc != nil {
		return m.CalendarFunc(ctx, userID, from, to)
	}
	return []ports.CalendarEntry{}, nil
}

// MockProfileService is a mock implementation of ports.ProfileService
type MockProfileService struct {
	GetFunc               func(ctx context.Context, userID uuid.UUID) (*entities.UserProfile, error)
	UploadAvatarFunc      func(ctx context.Context, userID uuid.UUID, data []byte) (*entities.UserProfile, error)
	UploadProjectIconFunc func(ctx context.Context, userID, projectID uuid.UUID, data []byte) (string, error)
}

func (m *MockProfileService) Get(ctx context.Context, userID uuid.UUID) (*entities.UserProfile, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	return &entities.UserProfile{ID: userID.String(), Username: "ada", Email: "ada@example.com"}, nil
}

func (m *MockProfileService) Update(ctx context.Context, userID uuid.UUID, req ports.UpdateProfileRequest) (*entities.UserProfile, error) {
	profile := &entities.UserProfile{ID: userID.String(), Username: "ada", Email: "ada@example.com"}
	if req.Username != nil {
		profile.Username = *req.Username
	}
	return profile, nil
}

func (m *MockProfileService) UploadAvatar(ctx context.Context, userID uuid.UUID, data []byte) (*entities.UserProfile, error) {
	if m.UploadAvatarFunc != nil {
		return m.UploadAvatarFunc(ctx, userID, data)
	}
	return &entities.UserProfile{ID: userID.String(), ProfilePicture: "http://files.test/avatars/a.jpg"}, nil
}

func (m *MockProfileService) UploadProjectIcon(ctx context.Context, userID, projectID uuid.UUID, data []byte) (string, error) {
	if m.UploadProjectIconFunc != nil {
		return m.UploadProjectIconFunc(ctx, userID, projectID, data)
	}
	return "http://files.test/project-icons/p.jpg", nil
}
