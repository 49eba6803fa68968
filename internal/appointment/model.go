package appointment

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
)

var (
	ErrNotFound                 = apperror.New(http.StatusNotFound, "appointment not found")
	ErrPermissionDenied         = apperror.New(http.StatusForbidden, "permission denied")
	ErrSlotUnavailable          = apperror.New(http.StatusConflict, "time slot is no longer available")
	ErrInvalidSelection         = apperror.New(http.StatusBadRequest, "invalid selection")
	ErrServiceUnavailableForPet = apperror.New(http.StatusUnprocessableEntity, "service has no duration rule for this pet")
	ErrCapacityExceeded         = apperror.New(http.StatusUnprocessableEntity, "too many dogs for a single home visit")
	ErrTooLate                  = apperror.New(http.StatusUnprocessableEntity, "too late to change this appointment")
	ErrInvalidTransition        = apperror.New(http.StatusConflict, "invalid status transition")
	ErrStartTimePast            = apperror.New(http.StatusBadRequest, "start time must be in the future")
	ErrHomeAddressRequired      = apperror.New(http.StatusBadRequest, "home_address is required for at-home appointments")
	ErrNoItems                  = apperror.New(http.StatusBadRequest, "at least one item is required")
	ErrNothingToChange          = apperror.New(http.StatusBadRequest, "start_time, home_address or home_zone is required")
)

// Resource is the calendar an appointment occupies. Two appointments on the
// same resource must never overlap.
type Resource struct {
	BusinessID string
	GroomerID  string
}

// Key is the advisory lock key of the resource.
func (r Resource) Key() string {
	return r.BusinessID + ":" + r.GroomerID
}

// Item is one pet and service of an appointment. The duration is frozen at booking time.
type Item struct {
	ID                        string
	PetID                     string
	ServiceID                 string
	CalculatedDurationMinutes int
	Extras                    map[string]any
}

type Appointment struct {
	ID           string
	BusinessID   string
	ClientID     string
	GroomerID    string
	LocationType scheduling.LocationType
	StartTime    time.Time
	EndTime      time.Time
	Status       scheduling.Status
	CancelReason *string
	HomeAddress  *string
	HomeZone     *string
	Items        []Item
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a *Appointment) Resource() Resource {
	return Resource{BusinessID: a.BusinessID, GroomerID: a.GroomerID}
}

// Booking returns the interval view the engine reasons about.
func (a *Appointment) Booking() scheduling.Booking {
	return scheduling.Booking{ID: a.ID, Start: a.StartTime, End: a.EndTime, Status: a.Status}
}

// Filter narrows appointment listings. Empty fields are ignored.
type Filter struct {
	BusinessID string
	ClientID   string
	GroomerID  string
	Status     scheduling.Status
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
