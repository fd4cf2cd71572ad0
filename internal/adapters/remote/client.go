// Package remote talks to an eyetrack server over its JSON API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eyetracktask/eyetrack/internal/domain/entities"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/config"
	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

const apiPrefix = "/api/v1"

// StatusError is returned for API errors that match no domain error.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Client implements ports.Backend against the HTTP API
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *logger.Logger
}

var _ ports.Backend = (*Client)(nil)

// New creates a client for cfg.BaseURL authenticated with cfg.Token
func New(cfg config.ClientConfig, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
		logger:  log,
	}
}

// SignIn exchanges credentials for a session and uses its token for the
// following requests.
func (c *Client) SignIn(ctx context.Context, email, password string) (*ports.Session, error) {
	var session ports.Session
	err := c.doJSON(ctx, http.MethodPost, "/auth/signin", ports.SignInRequest{Email: email, Password: password}, &session)
	if err != nil {
		return nil, err
	}
	c.token = session.AccessToken
	return &session, nil
}

func (c *Client) FetchProjects(ctx context.Context) ([]entities.Project, error) {
	var projects []entities.Project
	if err := c.doJSON(ctx, http.MethodGet, "/board", nil, &projects); err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []entities.Project{}
	}
	return projects, nil
}

func (c *Client) CreateProject(ctx context.Context, name, icon string) (*entities.Project, error) {
	var project entities.Project
	err := c.doJSON(ctx, http.MethodPost, "/projects", ports.CreateProjectRequest{Name: name, Icon: icon}, &project)
	if err != nil {
		return nil, err
	}
	if project.Tasks == nil {
		project.Tasks = []entities.Task{}
	}
	return &project, nil
}

func (c *Client) UpdateProject(ctx context.Context, id string, patch entities.ProjectPatch) error {
	return c.doJSON(ctx, http.MethodPatch, "/projects/"+url.PathEscape(id), patch, nil)
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/projects/"+url.PathEscape(id), nil, nil)
}

type createTaskBody struct {
	ProjectID string `json:"projectId"`
	entities.NewTask
}

func (c *Client) CreateTask(ctx context.Context, projectID string, task entities.NewTask) (*entities.Task, error) {
	var created entities.Task
	err := c.doJSON(ctx, http.MethodPost, "/tasks", createTaskBody{ProjectID: projectID, NewTask: task}, &created)
	if err != nil {
		return nil, err
	}
	if created.SubTasks == nil {
		created.SubTasks = []entities.SubTask{}
	}
	return &created, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, patch entities.TaskPatch) error {
	return c.doJSON(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), patch, nil)
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

type createSubTaskBody struct {
	TaskID string `json:"taskId"`
	Title  string `json:"title"`
}

func (c *Client) CreateSubTask(ctx context.Context, taskID, title string) (*entities.SubTask, error) {
	var created entities.SubTask
	if err := c.doJSON(ctx, http.MethodPost, "/subtasks", createSubTaskBody{TaskID: taskID, Title: title}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateSubTask(ctx context.Context, id string, patch entities.SubTaskPatch) error {
	return c.doJSON(ctx, http.MethodPatch, "/subtasks/"+url.PathEscape(id), patch, nil)
}

func (c *Client) DeleteSubTask(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/subtasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) FetchProfile(ctx context.Context) (*entities.UserProfile, error) {
	var profile entities.UserProfile
	if err := c.doJSON(ctx, http.MethodGet, "/profile", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) UpdateProfile(ctx context.Context, patch entities.ProfilePatch) (*entities.UserProfile, error) {
	var profile entities.UserProfile
	if err := c.doJSON(ctx, http.MethodPatch, "/profile", patch, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) UploadAvatar(ctx context.Context, data []byte) (*entities.UserProfile, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "avatar")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var profile entities.UserProfile
	if err := c.do(ctx, http.MethodPost, "/profile/avatar", w.FormDataContentType(), &body, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Close releases idle connections
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, body, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warnw("Request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr ports.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return errorFor(resp.StatusCode, apiErr.Message)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var knownErrors = []error{
	entities.ErrProjectNotFound,
	entities.ErrTaskNotFound,
	entities.ErrSubTaskNotFound,
	entities.ErrUserNotFound,
	entities.ErrProfileNotFound,
	entities.ErrLastProject,
	entities.ErrInvalidStatus,
	entities.ErrInvalidCredentials,
	entities.ErrEmailNotConfirmed,
	entities.ErrEmailTaken,
	entities.ErrInvalidCode,
	entities.ErrUnauthorized,
	entities.ErrForbidden,
	entities.ErrInvalidInput,
}

// errorFor maps an API error back onto the domain error the server started
// from, by message first and status code second.
func errorFor(code int, message string) error {
	for _, known := range knownErrors {
		if message == known.Error() {
			return known
		}
		if strings.HasPrefix(message, known.Error()+":") {
			return fmt.Errorf("%w%s", known, strings.TrimPrefix(message, known.Error()))
		}
	}

	var fallback error
	switch code {
	case http.StatusBadRequest:
		fallback = entities.ErrInvalidInput
	case http.StatusUnauthorized:
		fallback = entities.ErrUnauthorized
	case http.StatusForbidden:
		fallback = entities.ErrForbidden
	case http.StatusConflict:
		fallback = entities.ErrLastProject
	}
	status := &StatusError{Code: code, Message: message}
	if fallback != nil {
		return errors.Join(fallback, status)
	}
	return status
}
