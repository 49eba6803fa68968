package catalog

import (
	"net/http"
	"slices"
	"time"

	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
)

var (
	ErrServiceNotFound    = apperror.New(http.StatusNotFound, "service not found")
	ErrRuleNotFound       = apperror.New(http.StatusNotFound, "duration rule not found")
	ErrNameRequired       = apperror.New(http.StatusBadRequest, "name is required")
	ErrInvalidSpecies     = apperror.New(http.StatusBadRequest, "invalid species")
	ErrInvalidLocation    = apperror.New(http.StatusBadRequest, "invalid location type")
	ErrInvalidSize        = apperror.New(http.StatusBadRequest, "invalid size")
	ErrInvalidDuration    = apperror.New(http.StatusBadRequest, "base_duration_minutes must be positive")
	ErrRuleTooBroad       = apperror.New(http.StatusBadRequest, "rule must set size, breed or is_default_for_species")
	ErrSpeciesMismatch    = apperror.New(http.StatusBadRequest, "rule species is not supported by the service")
	ErrLocationNotOffered = apperror.New(http.StatusBadRequest, "business does not offer this location type")
	ErrDuplicateDefault   = apperror.New(http.StatusConflict, "service already has a default rule for this species")
)

// GroomingService is a bookable service offered by one business.
type GroomingService struct {
	ID                 string
	BusinessID         string
	Name               string
	Description        *string
	SpeciesSupported   []scheduling.Species
	LocationsSupported []scheduling.LocationType
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (s *GroomingService) SupportsSpecies(sp scheduling.Species) bool {
	return slices.Contains(s.SpeciesSupported, sp)
}

func (s *GroomingService) SupportsLocation(loc scheduling.LocationType) bool {
	return slices.Contains(s.LocationsSupported, loc)
}

// DurationRule is a stored duration rule of a service.
type DurationRule struct {
	ID        string
	ServiceID string
	scheduling.DurationRule
	CreatedAt time.Time
	UpdatedAt time.Time
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func fromStrings[T ~string](in []string) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = T(v)
	}
	return out
}
