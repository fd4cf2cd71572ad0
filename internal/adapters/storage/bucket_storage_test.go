package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/spf13/afero"
)

func TestBucketStorageUploadAndOpen(t *testing.T) {
	s := NewBucketStorage(afero.NewMemMapFs(), "http://localhost:8080/")
	ctx := context.Background()

	if err := s.Upload(ctx, "avatars", "u1/profile-1.jpg", "image/jpeg", []byte("jpeg")); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	f, err := s.Open(ctx, "avatars", "u1/profile-1.jpg")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	data, _ := io.ReadAll(f)
	if string(data) != "jpeg" {
		t.Errorf("content = %q", data)
	}

	if _, err := s.Open(ctx, "avatars", "u1/missing.jpg"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Open(missing) error = %v", err)
	}
	if _, err := s.Open(ctx, "avatars", "u1"); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("Open(directory) error = %v", err)
	}
}

func TestBucketStorageRejectsTraversal(t *testing.T) {
	s := NewBucketStorage(afero.NewMemMapFs(), "")
	ctx := context.Background()

	tests := []struct {
		name   string
		bucket string
		path   string
	}{
		{"parent path", "avatars", "../secret"},
		{"nested parent", "avatars", "u1/../../x"},
		{"empty path", "avatars", ""},
		{"bucket with slash", "a/b", "x.jpg"},
		{"dot bucket", "..", "x.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Upload(ctx, tt.bucket, tt.path, "", nil); !errors.Is(err, ErrInvalidPath) {
				t.Errorf("Upload() error = %v, want ErrInvalidPath", err)
			}
		})
	}
}

func TestPublicURL(t *testing.T) {
	s := NewBucketStorage(afero.NewMemMapFs(), "https://board.example.com/")

	got := s.PublicURL("avatars", "u1/profile 1.jpg")
	want := "https://board.example.com/storage/v1/object/public/avatars/u1/profile%201.jpg"
	if got != want {
		t.Errorf("PublicURL() = %q, want %q", got, want)
	}
}
