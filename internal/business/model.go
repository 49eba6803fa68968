package business

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
)

var (
	ErrNotFound            = apperror.New(http.StatusNotFound, "business not found")
	ErrAlreadyExists       = apperror.New(http.StatusConflict, "business already exists for this owner")
	ErrSlugTaken           = apperror.New(http.StatusConflict, "slug is already taken")
	ErrPermissionDenied    = apperror.New(http.StatusForbidden, "permission denied")
	ErrNameRequired        = apperror.New(http.StatusBadRequest, "name is required")
	ErrMaxDogsRequired     = apperror.New(http.StatusBadRequest, "max_dogs_per_home_visit is required when offers_at_home is true")
	ErrNoLocationOffered   = apperror.New(http.StatusBadRequest, "business must offer in-salon or at-home appointments")
	ErrInvalidWorkingHours = apperror.New(http.StatusBadRequest, "invalid working hours")
	ErrInvalidTimezone     = apperror.New(http.StatusBadRequest, "invalid timezone")
	ErrNegativeMinutes     = apperror.New(http.StatusBadRequest, "durations and notice periods must not be negative")
	ErrStaffNotFound       = apperror.New(http.StatusNotFound, "staff member not found")
	ErrNotStaffAccount     = apperror.New(http.StatusBadRequest, "user is not a groomer staff account")
	ErrGroomerRequired     = apperror.New(http.StatusBadRequest, "groomer_id is required for businesses with staff")
	ErrInvalidGroomer      = apperror.New(http.StatusBadRequest, "groomer does not work for this business")
)

// Business is a grooming salon and its scheduling configuration.
type Business struct {
	ID               string
	OwnerUserID      string
	Name             string
	Slug             string
	Description      *string
	Phone            *string
	Email            *string
	Address          *string
	Timezone         string
	LogoFileID       *string
	CoverImageFileID *string

	OffersInSalon                    bool
	OffersAtHome                     bool
	MaxDogsPerHomeVisit              *int
	HomeVisitSetupMinutes            int
	HomeVisitTeardownMinutes         int
	DefaultTransportMinutes          int
	MinHoursBeforeCancelOrReschedule int

	WorkingHours []WorkingHour
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WorkingHour is one open block, stored as local "HH:MM" clock strings.
type WorkingHour struct {
	Weekday   int
	StartTime string
	EndTime   string
}

// StaffMember links a groomer account to a business.
type StaffMember struct {
	BusinessID  string
	UserID      string
	Email       string
	DisplayName *string
	IsActive    bool
	CreatedAt   time.Time
}

// Groomer is the public view of someone clients can book with.
type Groomer struct {
	UserID      string
	DisplayName string
	IsOwner     bool
}

// MediaField names an image slot on the business profile.
type MediaField string

const (
	MediaLogo  MediaField = "logo_file_id"
	MediaCover MediaField = "cover_image_file_id"
)

// Offers reports whether the business takes appointments at the given location.
func (b *Business) Offers(loc scheduling.LocationType) bool {
	switch loc {
	case scheduling.LocationInSalon:
		return b.OffersInSalon
	case scheduling.LocationAtHome:
		return b.OffersAtHome
	}
	return false
}

// Overhead returns the minutes added once to each home visit.
func (b *Business) Overhead() scheduling.HomeVisitOverhead {
	return scheduling.HomeVisitOverhead{
		SetupMinutes:     b.HomeVisitSetupMinutes,
		TeardownMinutes:  b.HomeVisitTeardownMinutes,
		TransportMinutes: b.DefaultTransportMinutes,
	}
}

// Location loads the business timezone.
func (b *Business) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("business %s timezone %q: %w", b.ID, b.Timezone, err)
	}
	return loc, nil
}

// Schedule converts the stored working hours into engine blocks.
func (b *Business) Schedule() ([]scheduling.WorkingHours, error) {
	return toSchedule(b.WorkingHours)
}

func toSchedule(hours []WorkingHour) ([]scheduling.WorkingHours, error) {
	out := make([]scheduling.WorkingHours, 0, len(hours))
	for _, h := range hours {
		start, err := scheduling.ParseClock(h.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := scheduling.ParseClock(h.EndTime)
		if err != nil {
			return nil, err
		}
		out = append(out, scheduling.WorkingHours{Weekday: time.Weekday(h.Weekday), Start: start, End: end})
	}
	return out, nil
}
