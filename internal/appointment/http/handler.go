package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/grooming-booking-backend/internal/appointment"
	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
)

type AppointmentHandler struct {
	service appointment.Service
	now     func() time.Time
}

func NewHandler(service appointment.Service) *AppointmentHandler {
	return &AppointmentHandler{service: service, now: time.Now}
}

// Availability lists the free start times of a day for the posted selection.
func (h *AppointmentHandler) Availability(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		response.BadRequest(c, err)
		return
	}

	avail, err := h.service.Availability(c.Request.Context(), auth.GetActor(c), uri.ID, appointment.AvailabilityRequest{
		Date:         date,
		GroomerID:    req.GroomerID,
		LocationType: scheduling.LocationType(req.LocationType),
		Items:        toSelections(req.Items),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAvailabilityResponse(avail))
}

func (h *AppointmentHandler) Create(c *gin.Context) {
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	a, err := h.service.Book(c.Request.Context(), appointment.BookRequest{
		Actor:        auth.GetActor(c),
		BusinessID:   req.BusinessID,
		GroomerID:    req.GroomerID,
		LocationType: scheduling.LocationType(req.LocationType),
		StartTime:    req.StartTime,
		HomeAddress:  req.HomeAddress,
		HomeZone:     req.HomeZone,
		Items:        toSelections(req.Items),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewAppointmentResponse(a))
}

func (h *AppointmentHandler) List(c *gin.Context) {
	var req ListAppointmentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	req.Normalize()

	list, total, err := h.service.List(c.Request.Context(), auth.GetActor(c), appointment.ListRequest{
		BusinessID: req.BusinessID,
		Status:     scheduling.Status(req.Status),
		From:       req.From,
		To:         req.To,
	}, req.ListParams)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewPage(list, NewAppointmentResponse, req.ListParams, total))
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}

	a, err := h.service.GetByID(c.Request.Context(), auth.GetActor(c), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAppointmentResponse(a))
}

// Reschedule moves an appointment to a new start time, keeping its duration,
// and edits the home details of at-home visits.
func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}
	var req RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	a, err := h.service.Reschedule(c.Request.Context(), uri.ID, appointment.RescheduleRequest{
		StartTime:   req.StartTime,
		HomeAddress: req.HomeAddress,
		HomeZone:    req.HomeZone,
	}, auth.GetActor(c), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAppointmentResponse(a))
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}
	// The body is optional.
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err)
		return
	}

	a, err := h.service.Cancel(c.Request.Context(), uri.ID, auth.GetActor(c), h.now(), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAppointmentResponse(a))
}

func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	a, err := h.service.UpdateStatus(c.Request.Context(), auth.GetActor(c), uri.ID, scheduling.Status(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAppointmentResponse(a))
}
