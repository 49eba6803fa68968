package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/grooming-booking-backend/internal/media"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/response"
)

type Handler struct {
	mediaService media.Service
	logger       *slog.Logger
}

func NewHandler(mediaService media.Service, logger *slog.Logger) *Handler {
	return &Handler{
		mediaService: mediaService,
		logger:       logger,
	}
}

// ServeFile streams the original file.
func (h *Handler) ServeFile(c *gin.Context) {
	stream, info, err := h.mediaService.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stream.Close()

	h.stream(c, info.ContentType, info.Filename, stream)
}

// ServeThumbnail streams the JPEG thumbnail of an image file.
func (h *Handler) ServeThumbnail(c *gin.Context) {
	stream, info, err := h.mediaService.DownloadThumbnail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stream.Close()

	h.stream(c, "image/jpeg", info.Filename+"_thumb.jpg", stream)
}

func (h *Handler) stream(c *gin.Context, contentType, filename string, body io.Reader) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", "inline; filename=\""+filename+"\"")
	c.Header("Cache-Control", "public, max-age=86400")

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		// Headers are already sent.
		h.logger.WarnContext(c.Request.Context(), "stream file failed", "err", err)
	}
}
