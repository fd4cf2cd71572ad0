package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"

	"github.com/eyetracktask/eyetrack/internal/adapters/storage"
	"github.com/eyetracktask/eyetrack/internal/domain/entities"
)

func multipartRequest(t *testing.T, target string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(UploadField, "picture.png")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestProfileHandlerUploadAvatar(t *testing.T) {
	var received []byte
	h := NewProfileHandler(&MockProfileService{
		UploadAvatarFunc: func(ctx context.Context, userID uuid.UUID, data []byte) (*entities.UserProfile, error) {
			received = data
			return &entities.UserProfile{ID: userID.String(), ProfilePicture: "http://files.test/avatars/x.jpg"}, nil
		},
	}, 1024, testLogger)
	e := newTestEcho()

	rec := httptest.NewRecorder()
	c := e.NewContext(multipartRequest(t, "/api/v1/profile/avatar", []byte("image-bytes")), rec)
	c.Set(ContextUserKey, testUserID.String())

	if err := h.UploadAvatar(c); err != nil {
		t.Fatalf("UploadAvatar() error = %v", err)
	}
	if string(received) != "image-bytes" {
		t.Errorf("service received %q", received)
	}

	var profile entities.UserProfile
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if profile.ProfilePicture != "http://files.test/avatars/x.jpg" {
		t.Errorf("profilePicture = %q", profile.ProfilePicture)
	}
}

func TestProfileHandlerUploadLimits(t *testing.T) {
	h := NewProfileHandler(&MockProfileService{}, 8, testLogger)
	e := newTestEcho()

	rec := httptest.NewRecorder()
	c := e.NewContext(multipartRequest(t, "/api/v1/profile/avatar", bytes.Repeat([]byte("x"), 64)), rec)
	c.Set(ContextUserKey, testUserID.String())
	if got := httpStatus(h.UploadAvatar(c)); got != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized upload status = %d, want 413", got)
	}

	c, _ = newRequest(e, http.MethodPost, "/api/v1/profile/avatar", `{}`)
	if got := httpStatus(h.UploadAvatar(c)); got != http.StatusBadRequest {
		t.Errorf("missing file status = %d, want 400", got)
	}
}

func TestProfileHandlerUploadProjectIconForbidden(t *testing.T) {
	projectID := uuid.New()
	h := NewProfileHandler(&MockProfileService{
		UploadProjectIconFunc: func(ctx context.Context, userID, id uuid.UUID, data []byte) (string, error) {
			return "", entities.ErrForbidden
		},
	}, 0, testLogger)
	e := newTestEcho()

	c := e.NewContext(multipartRequest(t, "/api/v1/projects/"+projectID.String()+"/icon", []byte("img")), httptest.NewRecorder())
	c.Set(ContextUserKey, testUserID.String())
	c.SetParamNames("id")
	c.SetParamValues(projectID.String())

	if got := httpStatus(h.UploadProjectIcon(c)); got != http.StatusForbidden {
		t.Errorf("status = %d, want 403", got)
	}
}

func TestStorageHandlerObject(t *testing.T) {
	bucket := storage.NewBucketStorage(afero.NewMemMapFs(), "http://localhost:8080")
	if err := bucket.Upload(context.Background(), "avatars", "u1/profile-1.jpg", "image/jpeg", []byte("jpeg")); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	h := NewStorageHandler(bucket)
	e := newTestEcho()

	tests := []struct {
		name   string
		bucket string
		path   string
		want   int
	}{
		{"existing", "avatars", "u1/profile-1.jpg", http.StatusOK},
		{"missing", "avatars", "u1/other.jpg", http.StatusNotFound},
		{"traversal", "avatars", "../secret", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			c.SetParamNames("bucket", "*")
			c.SetParamValues(tt.bucket, tt.path)

			err := h.Object(c)
			status := rec.Code
			if err != nil {
				status = httpStatus(err)
			}
			if status != tt.want {
				t.Errorf("status = %d, want %d", status, tt.want)
			}
			if tt.want == http.StatusOK {
				body, _ := io.ReadAll(rec.Body)
				if string(body) != "jpeg" {
					t.Errorf("body = %q", body)
				}
			}
		})
	}
}
