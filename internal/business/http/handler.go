package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/business"
	mediahttp "github.com/nekogravitycat/grooming-booking-backend/internal/media/http"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/response"
)

const maxImageBytes = 5 << 20

type BusinessHandler struct {
	service      business.Service
	mediaHandler *mediahttp.Handler
}

func NewHandler(service business.Service, mediaHandler *mediahttp.Handler) *BusinessHandler {
	return &BusinessHandler{
		service:      service,
		mediaHandler: mediaHandler,
	}
}

// Create registers the calling owner's business.
func (h *BusinessHandler) Create(c *gin.Context) {
	var req CreateBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	b, err := h.service.Create(c.Request.Context(), auth.GetActor(c), business.CreateRequest{
		Name:                             req.Name,
		Slug:                             req.Slug,
		Description:                      req.Description,
		Phone:                            req.Phone,
		Email:                            req.Email,
		Address:                          req.Address,
		Timezone:                         req.Timezone,
		OffersInSalon:                    req.OffersInSalon,
		OffersAtHome:                     req.OffersAtHome,
		MaxDogsPerHomeVisit:              req.MaxDogsPerHomeVisit,
		HomeVisitSetupMinutes:            req.HomeVisitSetupMinutes,
		HomeVisitTeardownMinutes:         req.HomeVisitTeardownMinutes,
		DefaultTransportMinutes:          req.DefaultTransportMinutes,
		MinHoursBeforeCancelOrReschedule: req.MinHoursBeforeCancelOrReschedule,
		WorkingHours:                     toWorkingHours(req.WorkingHours),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBusinessResponse(b))
}

// Mine returns the business owned by the caller.
func (h *BusinessHandler) Mine(c *gin.Context) {
	b, err := h.service.GetByOwner(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBusinessResponse(b))
}

// Get returns the public business profile.
func (h *BusinessHandler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBusinessResponse(b))
}

// List returns the public business directory, optionally filtered by name.
func (h *BusinessHandler) List(c *gin.Context) {
	var req ListBusinessesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	req.Normalize()

	list, total, err := h.service.List(c.Request.Context(), req.Query, req.ListParams)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, response.NewPage(list, NewBusinessResponse, req.ListParams, total))
}

func (h *BusinessHandler) GetBySlug(c *gin.Context) {
	var uri SlugURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}

	b, err := h.service.GetBySlug(c.Request.Context(), uri.Slug)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBusinessResponse(b))
}

// ListGroomers lists who a client can pick as groomer_id when booking.
func (h *BusinessHandler) ListGroomers(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}

	groomers, err := h.service.ListGroomers(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]GroomerResponse, len(groomers))
	for i, g := range groomers {
		items[i] = NewGroomerResponse(g)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Update applies a partial update to the profile.
func (h *BusinessHandler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}
	var req UpdateBusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	b, err := h.service.Update(c.Request.Context(), auth.GetActor(c), uri.ID, business.UpdateRequest{
		Name:                             req.Name,
		Slug:                             req.Slug,
		Description:                      req.Description,
		Phone:                            req.Phone,
		Email:                            req.Email,
		Address:                          req.Address,
		Timezone:                         req.Timezone,
		OffersInSalon:                    req.OffersInSalon,
		OffersAtHome:                     req.OffersAtHome,
		MaxDogsPerHomeVisit:              req.MaxDogsPerHomeVisit,
		HomeVisitSetupMinutes:            req.HomeVisitSetupMinutes,
		HomeVisitTeardownMinutes:         req.HomeVisitTeardownMinutes,
		DefaultTransportMinutes:          req.DefaultTransportMinutes,
		MinHoursBeforeCancelOrReschedule: req.MinHoursBeforeCancelOrReschedule,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBusinessResponse(b))
}

// SetWorkingHours replaces the weekly schedule.
func (h *BusinessHandler) SetWorkingHours(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}
	var req SetWorkingHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	b, err := h.service.SetWorkingHours(c.Request.Context(), auth.GetActor(c), uri.ID, toWorkingHours(req.WorkingHours))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBusinessResponse(b))
}

func (h *BusinessHandler) ListStaff(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}

	staff, err := h.service.ListStaff(c.Request.Context(), auth.GetActor(c), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]StaffResponse, len(staff))
	for i, m := range staff {
		items[i] = NewStaffResponse(m)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *BusinessHandler) AddStaff(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}
	var req AddStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	m, err := h.service.AddStaff(c.Request.Context(), auth.GetActor(c), uri.ID, req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewStaffResponse(m))
}

func (h *BusinessHandler) UpdateStaff(c *gin.Context) {
	var uri StaffURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}
	var req UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	m, err := h.service.UpdateStaff(c.Request.Context(), auth.GetActor(c), uri.ID, uri.UserID, business.UpdateStaffRequest{
		DisplayName: req.DisplayName,
		IsActive:    req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewStaffResponse(m))
}

// RemoveStaff deactivates the member; the link is kept for past appointments.
func (h *BusinessHandler) RemoveStaff(c *gin.Context) {
	var uri StaffURIRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}

	if err := h.service.RemoveStaff(c.Request.Context(), auth.GetActor(c), uri.ID, uri.UserID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadLogo stores a logo image and points the business at it.
func (h *BusinessHandler) UploadLogo(c *gin.Context) {
	h.uploadMedia(c, business.MediaLogo)
}

// UploadCover stores a cover image and points the business at it.
func (h *BusinessHandler) UploadCover(c *gin.Context) {
	h.uploadMedia(c, business.MediaCover)
}

func (h *BusinessHandler) uploadMedia(c *gin.Context, field business.MediaField) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}

	actor := auth.GetActor(c)
	// Check ownership before accepting the body.
	if _, err := h.service.CanManage(c.Request.Context(), actor, uri.ID); err != nil {
		response.Error(c, err)
		return
	}

	h.mediaHandler.HandleUpload(c, mediahttp.UploadConfig{
		FormFieldName: "file",
		MaxSizeBytes:  maxImageBytes,
		AllowedTypes:  mediahttp.ImageTypes,
		AfterUpload: func(ctx context.Context, fileID string) error {
			return h.service.SetMedia(ctx, actor, uri.ID, field, fileID)
		},
	})
}
