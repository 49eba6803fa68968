package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/grooming-booking-backend/internal/user"
)

type UserHandler struct {
	userService user.Service
	jwtManager  *auth.JWTManager
}

func NewHandler(userService user.Service, jwtManager *auth.JWTManager) *UserHandler {
	return &UserHandler{
		userService: userService,
		jwtManager:  jwtManager,
	}
}

// Register creates a new account if the email is unused.
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	u, err := h.userService.Register(c.Request.Context(), user.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		Role:        auth.Role(req.Role),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, MeResponse{User: NewUserResponse(u)})
}

// Login authenticates a user and returns a token pair carrying the user's role.
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	u, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.issueTokens(c, u)
}

// Refresh exchanges a valid refresh token for a new access and refresh token.
// The account is reloaded so role changes and deactivation take effect.
func (h *UserHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	claims, err := h.jwtManager.ParseRefreshToken(req.RefreshToken)
	if err != nil {
		response.Error(c, user.ErrSessionInvalid)
		return
	}

	u, err := h.userService.Reauthenticate(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.issueTokens(c, u)
}

func (h *UserHandler) issueTokens(c *gin.Context, u *user.User) {
	access, err := h.jwtManager.GenerateAccessToken(u.ID, u.Email, u.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	refresh, err := h.jwtManager.GenerateRefreshToken(u.ID, u.Email, u.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         NewUserResponse(u),
	})
}

// Me retrieves the profile of the currently authenticated user.
func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.userService.GetByID(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, MeResponse{User: NewUserResponse(u)})
}

// UpdateMe changes the caller's own profile.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	u, err := h.userService.UpdateProfile(c.Request.Context(), auth.GetUserID(c), user.UpdateProfileRequest{
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, MeResponse{User: NewUserResponse(u)})
}
