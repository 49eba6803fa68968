package auth

import "github.com/gin-gonic/gin"

const (
	ctxUserID    = "userID"
	ctxUserEmail = "userEmail"
	ctxUserRole  = "userRole"
)

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// GetUserEmail returns the authenticated user's email or empty string.
func GetUserEmail(c *gin.Context) string {
	return c.GetString(ctxUserEmail)
}

// GetUserRole returns the authenticated user's role or empty string.
func GetUserRole(c *gin.Context) Role {
	if v, ok := c.Get(ctxUserRole); ok {
		if r, ok := v.(Role); ok {
			return r
		}
	}
	return ""
}

// GetActor collects the caller identity stored by AuthRequired.
func GetActor(c *gin.Context) Actor {
	return Actor{UserID: GetUserID(c), Role: GetUserRole(c)}
}
