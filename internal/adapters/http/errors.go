package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/eyetracktask/eyetrack/internal/adapters/storage"
	"github.com/eyetracktask/eyetrack/internal/domain/entities"
)

// Context keys set by the session middleware.
const (
	ContextUserKey  = "user"
	ContextEmailKey = "user_email"
)

// MessageResponse is the JSON body of actions without a payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusFor maps a domain error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrInvalidInput),
		errors.Is(err, entities.ErrInvalidStatus),
		errors.Is(err, entities.ErrInvalidCode),
		errors.Is(err, storage.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrUnauthorized),
		errors.Is(err, entities.ErrInvalidCredentials),
		errors.Is(err, entities.ErrEmailNotConfirmed):
		return http.StatusUnauthorized
	case errors.Is(err, entities.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entities.ErrProjectNotFound),
		errors.Is(err, entities.ErrTaskNotFound),
		errors.Is(err, entities.ErrSubTaskNotFound),
		errors.Is(err, entities.ErrUserNotFound),
		errors.Is(err, entities.ErrProfileNotFound),
		errors.Is(err, storage.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrLastProject),
		errors.Is(err, entities.ErrEmailTaken):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// toHTTPError converts a service error into an echo error carrying the
// message the client shows. Internal errors keep their cause for logging
// only.
func toHTTPError(err error) error {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		return echo.NewHTTPError(code, http.StatusText(code)).SetInternal(err)
	}
	return echo.NewHTTPError(code, err.Error())
}

// userIDFromContext returns the id of the signed-in user.
func userIDFromContext(c echo.Context) (uuid.UUID, error) {
	userIDStr, ok := c.Get(ContextUserKey).(string)
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, entities.ErrUnauthorized.Error())
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, entities.ErrUnauthorized.Error())
	}

	return userID, nil
}

func idParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

// bindAndValidate decodes the request body into req and runs the validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return nil
}
