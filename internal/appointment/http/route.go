package http

import (
	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
)

// RegisterRoutes registers the booking routes. Access to a single appointment
// is decided by the service, so those routes only require a login.
func RegisterRoutes(r gin.IRouter, h *AppointmentHandler, authMiddleware gin.HandlerFunc) {
	r.POST("/businesses/:id/availability", authMiddleware, auth.RequireRole(auth.RoleClient), h.Availability)

	group := r.Group("/appointments", authMiddleware)
	{
		group.POST("", auth.RequireRole(auth.RoleClient), h.Create)
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.PATCH("/:id", h.Reschedule)
		group.POST("/:id/cancel", h.Cancel)
		group.PATCH("/:id/status", auth.RequireRole(auth.RoleGroomerOwner, auth.RoleGroomerStaff, auth.RoleAdmin), h.UpdateStatus)
	}
}
