package scheduling

import (
	"testing"
	"time"

	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestAuthorizeScenarioD(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	start := now.Add(time.Hour)

	assert.ErrorIs(t, Authorize(auth.RoleClient, start, now, 24), ErrTooLate)
	assert.NoError(t, Authorize(auth.RoleGroomerOwner, start, now, 24))
}

func TestAuthorize(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		role     auth.Role
		start    time.Time
		minHours int
		wantErr  error
	}{
		{"client with enough notice", auth.RoleClient, now.Add(48 * time.Hour), 24, nil},
		{"client exactly at the limit", auth.RoleClient, now.Add(24 * time.Hour), 24, nil},
		{"client just under", auth.RoleClient, now.Add(24*time.Hour - time.Minute), 24, ErrTooLate},
		{"client after start", auth.RoleClient, now.Add(-time.Hour), 0, ErrTooLate},
		{"staff bypasses", auth.RoleGroomerStaff, now.Add(time.Minute), 24, nil},
		{"admin bypasses", auth.RoleAdmin, now.Add(-time.Hour), 24, nil},
		{"unknown role", auth.Role("GUEST"), now.Add(48 * time.Hour), 24, ErrRoleNotPermitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.role, tt.start, now, tt.minHours)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
