// Package storage implements the public file buckets on top of an afero
// file system.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/eyetracktask/eyetrack/internal/ports"
)

// PublicPrefix is the URL path under which bucket files are served.
const PublicPrefix = "/storage/v1/object/public/"

var (
	// ErrInvalidPath is returned for bucket names or object paths that would
	// escape the bucket.
	ErrInvalidPath = errors.New("invalid object path")
	// ErrObjectNotFound is returned by Open for missing files.
	ErrObjectNotFound = errors.New("object not found")
)

// BucketStorage keeps one directory per bucket
type BucketStorage struct {
	fs      afero.Fs
	baseURL string
}

// NewBucketStorage creates a bucket store over fsys. baseURL is the public
// address of the server.
func NewBucketStorage(fsys afero.Fs, baseURL string) *BucketStorage {
	return &BucketStorage{fs: fsys, baseURL: strings.TrimRight(baseURL, "/")}
}

// New opens the bucket root. The root "memory" keeps files in memory.
func New(root, baseURL string) (*BucketStorage, error) {
	if root == "memory" {
		return NewBucketStorage(afero.NewMemMapFs(), baseURL), nil
	}

	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return NewBucketStorage(afero.NewBasePathFs(osFs, root), baseURL), nil
}

var _ ports.ObjectStorage = (*BucketStorage)(nil)

func (s *BucketStorage) Upload(ctx context.Context, bucket, objectPath, contentType string, data []byte) error {
	name, err := objectName(bucket, objectPath)
	if err != nil {
		return err
	}

	if err := s.fs.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("failed to create bucket directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, name, data, 0o644); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

func (s *BucketStorage) Open(ctx context.Context, bucket, objectPath string) (io.ReadCloser, error) {
	name, err := objectName(bucket, objectPath)
	if err != nil {
		return nil, err
	}

	f, err := s.fs.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}

	info, err := f.Stat()
	if err == nil && info.IsDir() {
		f.Close()
		return nil, ErrObjectNotFound
	}
	return f, nil
}

func (s *BucketStorage) PublicURL(bucket, objectPath string) string {
	segments := strings.Split(path.Clean("/"+objectPath), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + PublicPrefix + url.PathEscape(bucket) + strings.Join(segments, "/")
}

// objectName maps bucket/objectPath onto a file name, rejecting traversal.
func objectName(bucket, objectPath string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", ErrInvalidPath
	}

	clean := path.Clean("/" + objectPath)
	if clean == "/" || strings.Contains(objectPath, "..") || strings.Contains(objectPath, `\`) {
		return "", ErrInvalidPath
	}

	return filepath.Join(bucket, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
