package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/media"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/response"
)

// ImageTypes are the MIME types accepted for business logos and covers.
var ImageTypes = []string{"image/jpeg", "image/png", "image/gif"}

// UploadConfig defines how one upload endpoint accepts its file.
type UploadConfig struct {
	FormFieldName string                                         // default: "file"
	MaxSizeBytes  int64                                          // 0 = no limit
	AllowedTypes  []string                                       // empty = allow all
	AfterUpload   func(ctx context.Context, fileID string) error // optional; failure deletes the upload
}

// HandleUpload stores the multipart file, runs the AfterUpload hook and writes the response.
func (h *Handler) HandleUpload(c *gin.Context, cfg UploadConfig) {
	fieldName := cfg.FormFieldName
	if fieldName == "" {
		fieldName = "file"
	}

	fileHeader, err := c.FormFile(fieldName)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: fieldName + " is required"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Error: "cannot read uploaded file"})
		return
	}
	defer src.Close()

	ctx := c.Request.Context()
	f, err := h.mediaService.Upload(ctx, media.UploadInput{
		Filename:     fileHeader.Filename,
		ContentType:  fileHeader.Header.Get("Content-Type"),
		Content:      src,
		UserID:       auth.GetUserID(c),
		MaxSizeBytes: cfg.MaxSizeBytes,
		AllowedTypes: cfg.AllowedTypes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if cfg.AfterUpload != nil {
		if err := cfg.AfterUpload(ctx, f.ID); err != nil {
			if delErr := h.mediaService.Delete(ctx, f.ID); delErr != nil {
				h.logger.WarnContext(ctx, "rollback upload failed", "file_id", f.ID, "err", delErr)
			}
			response.Error(c, err)
			return
		}
	}

	var thumbURL *string
	if f.ThumbnailPath != nil {
		t := media.ThumbnailURL(f.ID)
		thumbURL = &t
	}

	c.JSON(http.StatusOK, FileUploadResponse{
		Message:      "file uploaded successfully",
		FileID:       f.ID,
		URL:          media.FileURL(f.ID),
		ThumbnailURL: thumbURL,
	})
}
