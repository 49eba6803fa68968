package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the auth and profile routes.
func RegisterRoutes(g *gin.RouterGroup, h *UserHandler, authMiddleware gin.HandlerFunc) {
	authGroup := g.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
	}

	g.GET("/me", authMiddleware, h.Me)
	g.PATCH("/me", authMiddleware, h.UpdateMe)
}
