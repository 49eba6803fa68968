package http

import (
	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
)

// RegisterRoutes registers business profile, schedule, staff and media routes.
func RegisterRoutes(r gin.IRouter, h *BusinessHandler, authMiddleware gin.HandlerFunc) {
	owner := auth.RequireRole(auth.RoleGroomerOwner, auth.RoleAdmin)

	group := r.Group("/businesses")
	{
		group.GET("", h.List)
		group.GET("/slug/:slug", h.GetBySlug)
		group.GET("/:id", h.Get)
		group.GET("/:id/groomers", h.ListGroomers)

		group.POST("", authMiddleware, auth.RequireRole(auth.RoleGroomerOwner), h.Create)
		group.GET("/mine", authMiddleware, auth.RequireRole(auth.RoleGroomerOwner), h.Mine)

		group.PATCH("/:id", authMiddleware, owner, h.Update)
		group.PUT("/:id/working-hours", authMiddleware, owner, h.SetWorkingHours)

		group.GET("/:id/staff", authMiddleware, owner, h.ListStaff)
		group.POST("/:id/staff", authMiddleware, owner, h.AddStaff)
		group.PATCH("/:id/staff/:userId", authMiddleware, owner, h.UpdateStaff)
		group.DELETE("/:id/staff/:userId", authMiddleware, owner, h.RemoveStaff)

		group.POST("/:id/logo", authMiddleware, owner, h.UploadLogo)
		group.POST("/:id/cover", authMiddleware, owner, h.UploadCover)
	}
}
