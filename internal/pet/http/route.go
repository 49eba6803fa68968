package http

import (
	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
)

// RegisterRoutes registers the client pet routes.
func RegisterRoutes(r gin.IRouter, h *PetHandler, authMiddleware gin.HandlerFunc) {
	group := r.Group("/pets", authMiddleware, auth.RequireRole(auth.RoleClient))
	{
		group.GET("", h.List)
		group.POST("", h.Create)
		group.GET("/:id", h.Get)
		group.PATCH("/:id", h.Update)
		group.DELETE("/:id", h.Delete)
	}
}
