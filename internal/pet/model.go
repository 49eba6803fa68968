package pet

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "pet not found")
	ErrPermissionDenied = apperror.New(http.StatusForbidden, "permission denied")
	ErrNameRequired     = apperror.New(http.StatusBadRequest, "name is required")
	ErrInvalidSpecies   = apperror.New(http.StatusBadRequest, "invalid species")
	ErrInvalidSize      = apperror.New(http.StatusBadRequest, "invalid size")
	ErrInUse            = apperror.New(http.StatusConflict, "pet has appointments and cannot be deleted")
)

// Pet is an animal owned by a client.
type Pet struct {
	ID          string
	OwnerUserID string
	Name        string
	Species     scheduling.Species
	Size        scheduling.Size
	Breed       *string
	Notes       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Profile returns the attributes duration rules match on.
func (p *Pet) Profile() scheduling.PetProfile {
	profile := scheduling.PetProfile{Species: p.Species, Size: p.Size}
	if p.Breed != nil {
		profile.Breed = *p.Breed
	}
	return profile
}
