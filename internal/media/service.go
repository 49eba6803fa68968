package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/storage"
)

const thumbnailSize = 200

// UploadInput describes one uploaded file and the limits it must satisfy.
type UploadInput struct {
	Filename     string
	ContentType  string
	Content      io.Reader
	UserID       string
	MaxSizeBytes int64    // 0 means no limit
	AllowedTypes []string // empty means any type
}

type Service interface {
	Upload(ctx context.Context, in UploadInput) (*File, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*File, error)
	Download(ctx context.Context, id string) (io.ReadCloser, *File, error)
	DownloadThumbnail(ctx context.Context, id string) (io.ReadCloser, *File, error)
}

type service struct {
	repo    Repository
	storage storage.Storage
	imgProc *storage.ImageProcessor
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(repo Repository, store storage.Storage, logger *slog.Logger) Service {
	return &service{
		repo:    repo,
		storage: store,
		imgProc: storage.NewImageProcessor(),
		logger:  logger,
		now:     time.Now,
	}
}

func (s *service) Upload(ctx context.Context, in UploadInput) (*File, error) {
	if len(in.AllowedTypes) > 0 && !slices.Contains(in.AllowedTypes, in.ContentType) {
		return nil, apperror.Detail(ErrUnsupportedType, "file type %q is not allowed", in.ContentType)
	}

	// Read one byte past the limit to detect oversize uploads without trusting headers.
	reader := in.Content
	if in.MaxSizeBytes > 0 {
		reader = io.LimitReader(in.Content, in.MaxSizeBytes+1)
	}
	fileBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	if in.MaxSizeBytes > 0 && int64(len(fileBytes)) > in.MaxSizeBytes {
		return nil, ErrFileTooLarge
	}

	fileID := uuid.New().String()
	ext := strings.ToLower(filepath.Ext(in.Filename))

	// Sharding path: upload/ab/UUID.ext
	shard := fileID[:2]
	storagePath := fmt.Sprintf("upload/%s/%s%s", shard, fileID, ext)

	if err := s.storage.Save(ctx, storagePath, bytes.NewReader(fileBytes)); err != nil {
		return nil, fmt.Errorf("failed to save file to storage: %w", err)
	}

	var thumbnailPath *string
	if strings.HasPrefix(in.ContentType, "image/") {
		thumbPath := fmt.Sprintf("upload/%s/%s_thumb.jpg", shard, fileID)
		if err := s.saveThumbnail(ctx, thumbPath, fileBytes); err != nil {
			s.logger.WarnContext(ctx, "thumbnail generation failed", "file_id", fileID, "err", err)
		} else {
			thumbnailPath = &thumbPath
		}
	}

	f := &File{
		ID:            fileID,
		UserID:        in.UserID,
		Filename:      filepath.Base(in.Filename),
		StoragePath:   storagePath,
		ThumbnailPath: thumbnailPath,
		ContentType:   in.ContentType,
		Size:          int64(len(fileBytes)),
		CreatedAt:     s.now(),
	}

	if err := s.repo.Create(ctx, f); err != nil {
		s.removeBlobs(ctx, f)
		return nil, err
	}
	return f, nil
}

func (s *service) saveThumbnail(ctx context.Context, path string, content []byte) error {
	thumb, err := s.imgProc.GenerateThumbnail(bytes.NewReader(content), thumbnailSize, thumbnailSize)
	if err != nil {
		return err
	}
	return s.storage.Save(ctx, path, thumb)
}

func (s *service) removeBlobs(ctx context.Context, f *File) {
	if err := s.storage.Delete(ctx, f.StoragePath); err != nil {
		s.logger.WarnContext(ctx, "delete stored file failed", "file_id", f.ID, "err", err)
	}
	if f.ThumbnailPath != nil {
		if err := s.storage.Delete(ctx, *f.ThumbnailPath); err != nil {
			s.logger.WarnContext(ctx, "delete stored thumbnail failed", "file_id", f.ID, "err", err)
		}
	}
}

func (s *service) Delete(ctx context.Context, id string) error {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeBlobs(ctx, f)
	return nil
}

func (s *service) Get(ctx context.Context, id string) (*File, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Download(ctx context.Context, id string) (io.ReadCloser, *File, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	stream, err := s.storage.Get(ctx, f.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to retrieve file from storage: %w", err)
	}
	return stream, f, nil
}

func (s *service) DownloadThumbnail(ctx context.Context, id string) (io.ReadCloser, *File, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if f.ThumbnailPath == nil {
		return nil, nil, ErrNoThumbnail
	}

	stream, err := s.storage.Get(ctx, *f.ThumbnailPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to retrieve thumbnail from storage: %w", err)
	}
	return stream, f, nil
}
