package media

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "file not found")
	ErrNoThumbnail     = apperror.New(http.StatusNotFound, "thumbnail not available for this file")
	ErrFileTooLarge    = apperror.New(http.StatusRequestEntityTooLarge, "file is too large")
	ErrUnsupportedType = apperror.New(http.StatusUnsupportedMediaType, "file type is not allowed")
)

// File is an uploaded blob and its optional thumbnail.
type File struct {
	ID            string
	UserID        string
	Filename      string
	StoragePath   string
	ThumbnailPath *string
	ContentType   string
	Size          int64
	CreatedAt     time.Time
}

// FileURL returns the public URL for accessing a file by its ID.
func FileURL(id string) string {
	return "/v1/files/" + id
}

// ThumbnailURL returns the public URL for accessing a file's thumbnail by its ID.
func ThumbnailURL(id string) string {
	return "/v1/files/" + id + "/thumbnail"
}

// OptionalURL maps a nullable file id to its URL.
func OptionalURL(id *string) *string {
	if id == nil {
		return nil
	}
	u := FileURL(*id)
	return &u
}
