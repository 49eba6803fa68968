package user

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "user not found")
	ErrEmailAlreadyUsed   = apperror.New(http.StatusConflict, "email already used")
	ErrInvalidCredentials = apperror.New(http.StatusUnauthorized, "invalid email or password")
	ErrInactiveUser       = apperror.New(http.StatusUnauthorized, "invalid email or password")
	ErrEmailRequired      = apperror.New(http.StatusBadRequest, "email is required")
	ErrPasswordTooShort   = apperror.New(http.StatusBadRequest, "password is too short")
	ErrRoleNotAllowed     = apperror.New(http.StatusBadRequest, "role cannot be self-assigned")
	ErrSessionInvalid     = apperror.New(http.StatusUnauthorized, "session is no longer valid")
)

// User represents an account in the system.
type User struct {
	ID           string // UUID
	Email        string
	PasswordHash string
	DisplayName  *string
	Phone        *string
	Role         auth.Role
	IsActive     bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// Name returns the display name, falling back to the email.
func (u *User) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Email
}
