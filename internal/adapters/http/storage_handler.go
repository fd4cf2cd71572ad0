package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eyetracktask/eyetrack/internal/ports"
)

// StorageHandler serves public bucket objects read-only
type StorageHandler struct {
	storage ports.ObjectStorage
}

// NewStorageHandler creates a new storage handler
func NewStorageHandler(storage ports.ObjectStorage) *StorageHandler {
	return &StorageHandler{storage: storage}
}

// Object streams the object at :bucket/* with a long cache lifetime; object
// paths carry a timestamp so they are never rewritten.
func (h *StorageHandler) Object(c echo.Context) error {
	rc, err := h.storage.Open(c.Request().Context(), c.Param("bucket"), c.Param("*"))
	if err != nil {
		return toHTTPError(err)
	}
	defer rc.Close()

	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	c.Response().Header().Set(echo.HeaderContentType, "image/jpeg")
	c.Response().WriteHeader(http.StatusOK)
	_, err = io.Copy(c.Response(), rc)
	return err
}
