package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eyetracktask/eyetrack/internal/infrastructure/logger"
	"github.com/eyetracktask/eyetrack/internal/ports"
)

// UploadField is the multipart field carrying an uploaded picture.
const UploadField = "file"

// ProfileHandler handles profile and picture upload requests
type ProfileHandler struct {
	profileService ports.ProfileService
	maxUploadSize  int64
	logger         *logger.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService ports.ProfileService, maxUploadSize int64, logger *logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		maxUploadSize:  maxUploadSize,
		logger:         logger,
	}
}

// GetProfile godoc
// @Summary Get the current profile
// @Tags profile
// @Produce json
// @Success 200 {object} entities.UserProfile
// @Failure 401 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /profile [get]
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	profile, err := h.profileService.Get(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Update username or email
// @Tags profile
// @Accept json
// @Produce json
// @Param request body ports.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} entities.UserProfile
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /profile [patch]
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	var req ports.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := h.profileService.Update(c.Request().Context(), userID, req)
	if err != nil {
		h.logger.Errorw("Update profile failed", "error", err, "user_id", userID)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, profile)
}

// UploadAvatar godoc
// @Summary Upload a profile picture
// @Description The image is resized to fit 400x400 and stored as JPEG
// @Tags profile
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image"
// @Success 200 {object} entities.UserProfile
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /profile/avatar [post]
func (h *ProfileHandler) UploadAvatar(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	data, err := h.readUpload(c)
	if err != nil {
		return err
	}

	profile, err := h.profileService.UploadAvatar(c.Request().Context(), userID, data)
	if err != nil {
		h.logger.Errorw("Avatar upload failed", "error", err, "user_id", userID)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, profile)
}

// ProjectIconResponse carries the public URL of a stored project icon.
type ProjectIconResponse struct {
	Icon string `json:"icon"`
}

// UploadProjectIcon godoc
// @Summary Upload a project icon
// @Tags projects
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Project ID"
// @Param file formData file true "Image"
// @Success 200 {object} ProjectIconResponse
// @Failure 400 {object} ports.ErrorResponse
// @Failure 403 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /projects/{id}/icon [post]
func (h *ProfileHandler) UploadProjectIcon(c echo.Context) error {
	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	projectID, err := idParam(c, "id")
	if err != nil {
		return err
	}

	data, err := h.readUpload(c)
	if err != nil {
		return err
	}

	icon, err := h.profileService.UploadProjectIcon(c.Request().Context(), userID, projectID, data)
	if err != nil {
		h.logger.Errorw("Project icon upload failed", "error", err, "project_id", projectID)
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, ProjectIconResponse{Icon: icon})
}

func (h *ProfileHandler) readUpload(c echo.Context) ([]byte, error) {
	fh, err := c.FormFile(UploadField)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Missing file")
	}
	if h.maxUploadSize > 0 && fh.Size > h.maxUploadSize {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File exceeds %d bytes", h.maxUploadSize))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Unreadable file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Unreadable file")
	}
	return data, nil
}
