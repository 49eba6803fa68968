package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthRequired is a Gin middleware that validates JWT from Authorization: Bearer <token>
func AuthRequired(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing Authorization header",
			})
			return
		}

		if msg := authenticate(c, jwtManager, header); msg != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": msg,
			})
			return
		}

		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid token is present and lets anonymous requests through.
// A malformed or expired token is still rejected.
func OptionalAuth(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); header != "" {
			if msg := authenticate(c, jwtManager, header); msg != "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": msg,
				})
				return
			}
		}
		c.Next()
	}
}

// authenticate stores the token's identity on c and returns a non-empty message on failure.
func authenticate(c *gin.Context, jwtManager *JWTManager, header string) string {
	scheme, tokenStr, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || tokenStr == "" {
		return "invalid Authorization header format"
	}

	claims, err := jwtManager.ParseAndValidate(tokenStr)
	if err != nil {
		return "invalid or expired token"
	}

	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxUserEmail, claims.Email)
	c.Set(ctxUserRole, claims.Role)
	return ""
}

// RequireRole rejects authenticated callers whose role is not in roles.
// It must run after AuthRequired.
func RequireRole(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(roles, GetUserRole(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "permission denied",
			})
			return
		}
		c.Next()
	}
}
