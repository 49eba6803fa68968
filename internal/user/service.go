package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/apperror"
)

// RegisterRequest carries the fields of a new account.
type RegisterRequest struct {
	Email       string
	Password    string
	DisplayName string
	Phone       string
	Role        auth.Role
}

// UpdateProfileRequest carries a partial profile update.
type UpdateProfileRequest struct {
	DisplayName *string
	Phone       *string
}

// Service defines business logic related to users.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	// Reauthenticate reloads the account behind a refresh token.
	Reauthenticate(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*User, error)
}

// selfServiceRoles are the roles a caller may pick at registration.
var selfServiceRoles = map[auth.Role]bool{
	auth.RoleClient:       true,
	auth.RoleGroomerOwner: true,
	auth.RoleGroomerStaff: true,
}

type service struct {
	repo   Repository
	hasher auth.PasswordHasher
	logger *slog.Logger

	minPasswordLength int
}

// NewService creates a new user Service.
func NewService(repo Repository, hasher auth.PasswordHasher, logger *slog.Logger) Service {
	return &service{
		repo:              repo,
		hasher:            hasher,
		logger:            logger,
		minPasswordLength: 8,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	cleanEmail := normalizeEmail(req.Email)
	if cleanEmail == "" {
		return nil, ErrEmailRequired
	}

	if len(req.Password) < s.minPasswordLength {
		return nil, apperror.Detail(ErrPasswordTooShort, "password must be at least %d characters", s.minPasswordLength)
	}

	role := req.Role
	if role == "" {
		role = auth.RoleClient
	}
	if !selfServiceRoles[role] {
		return nil, ErrRoleNotAllowed
	}

	_, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err == nil {
		return nil, ErrEmailAlreadyUsed
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &User{
		Email:        cleanEmail,
		PasswordHash: hash,
		DisplayName:  optional(req.DisplayName),
		Phone:        optional(req.Phone),
		Role:         role,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*User, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user by email: %w", err)
	}

	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Best effort; a failed timestamp update does not fail the login.
	now := time.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		s.logger.WarnContext(ctx, "update last login failed", "user_id", u.ID, "err", err)
	} else {
		u.LastLoginAt = &now
	}

	return u, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Reauthenticate(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to fetch user by id: %w", err)
	}
	if !u.IsActive {
		return nil, ErrSessionInvalid
	}
	return u, nil
}

func (s *service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

func (s *service) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.DisplayName != nil {
		u.DisplayName = optional(*req.DisplayName)
	}
	if req.Phone != nil {
		u.Phone = optional(*req.Phone)
	}
	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// normalizeEmail trims spaces and lowercases the email.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
