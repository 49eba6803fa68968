package storage

import (
	"context"
	"errors"
	"io"
)

var ErrNotExist = errors.New("object does not exist")

// Storage stores opaque blobs under slash-separated relative paths.
type Storage interface {
	Save(ctx context.Context, path string, content io.Reader) error
	// Get returns ErrNotExist when nothing is stored at path.
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete is a no-op when nothing is stored at path.
	Delete(ctx context.Context, path string) error
}
