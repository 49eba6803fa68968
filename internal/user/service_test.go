package user

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memRepo struct {
	mu    sync.Mutex
	users map[string]*User
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[string]*User{}}
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) GetByID(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memRepo) UpdateProfile(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return ErrNotFound
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memRepo) UpdateLastLogin(_ context.Context, id string, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLoginAt = &t
	return nil
}

func newTestService() Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(newMemRepo(), auth.NewBcryptPasswordHasherWithCost(bcrypt.MinCost), logger)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	u, err := svc.Register(ctx, RegisterRequest{
		Email:       "  Owner@Example.com ",
		Password:    "password123",
		DisplayName: "Owner",
		Role:        auth.RoleGroomerOwner,
	})
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", u.Email)
	assert.Equal(t, auth.RoleGroomerOwner, u.Role)

	_, err = svc.Register(ctx, RegisterRequest{Email: "owner@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailAlreadyUsed)

	logged, err := svc.Login(ctx, "OWNER@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
	assert.NotNil(t, logged.LastLoginAt)

	_, err = svc.Login(ctx, "owner@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
	}{
		{"missing email", RegisterRequest{Password: "password123"}, ErrEmailRequired},
		{"short password", RegisterRequest{Email: "a@example.com", Password: "short"}, ErrPasswordTooShort},
		{"admin is not self-service", RegisterRequest{Email: "a@example.com", Password: "password123", Role: auth.RoleAdmin}, ErrRoleNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	u, err := svc.Register(ctx, RegisterRequest{Email: "client@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleClient, u.Role, "role defaults to CLIENT")
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	u, err := svc.Register(ctx, RegisterRequest{Email: "c@example.com", Password: "password123", DisplayName: "Old"})
	require.NoError(t, err)

	name := "New Name"
	phone := "  "
	updated, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileRequest{DisplayName: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name())
	assert.Nil(t, updated.Phone)
}

func TestReauthenticate(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo, auth.NewBcryptPasswordHasherWithCost(bcrypt.MinCost), slog.New(slog.DiscardHandler))

	u, err := svc.Register(ctx, RegisterRequest{Email: "a@example.com", Password: "password123", DisplayName: "A"})
	require.NoError(t, err)

	got, err := svc.Reauthenticate(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleClient, got.Role)

	repo.users[u.ID].IsActive = false
	_, err = svc.Reauthenticate(ctx, u.ID)
	assert.ErrorIs(t, err, ErrSessionInvalid)

	_, err = svc.Reauthenticate(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrSessionInvalid)
}
