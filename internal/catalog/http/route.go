package http

import (
	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
)

// RegisterRoutes registers service catalog and duration rule routes.
func RegisterRoutes(r gin.IRouter, h *CatalogHandler, authMiddleware, optionalAuth gin.HandlerFunc) {
	owner := auth.RequireRole(auth.RoleGroomerOwner, auth.RoleAdmin)

	r.GET("/businesses/:id/services", optionalAuth, h.ListServices)
	r.POST("/businesses/:id/services", authMiddleware, owner, h.CreateService)

	services := r.Group("/services")
	{
		services.GET("/:id", h.GetService)
		services.PATCH("/:id", authMiddleware, owner, h.UpdateService)
		services.DELETE("/:id", authMiddleware, owner, h.DeleteService)
		services.GET("/:id/duration-rules", authMiddleware, owner, h.ListRules)
		services.POST("/:id/duration-rules", authMiddleware, owner, h.CreateRule)
	}

	rules := r.Group("/duration-rules", authMiddleware, owner)
	{
		rules.PATCH("/:id", h.UpdateRule)
		rules.DELETE("/:id", h.DeleteRule)
	}
}
