package appointment

import (
	"context"
	"time"

	"github.com/nekogravitycat/grooming-booking-backend/internal/business"
	"github.com/nekogravitycat/grooming-booking-backend/internal/catalog"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pet"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
)

// BusinessReader is the part of the business module the engine reads.
type BusinessReader interface {
	GetByID(ctx context.Context, id string) (*business.Business, error)
	ResolveGroomer(ctx context.Context, b *business.Business, requested string) (string, error)
	IsMember(ctx context.Context, businessID, userID string) (bool, error)
}

// CatalogReader loads services and their duration rules.
type CatalogReader interface {
	GetServices(ctx context.Context, ids []string) ([]*catalog.GroomingService, error)
	RulesFor(ctx context.Context, serviceIDs []string) (map[string][]scheduling.DurationRule, error)
}

// PetReader loads pets by id without checking ownership.
type PetReader interface {
	GetMany(ctx context.Context, ids []string) ([]*pet.Pet, error)
}

// Ledger is the appointment storage of one resource, valid only inside
// Repository.InResourceTx. Every call sees the same transaction.
type Ledger interface {
	// HasOverlap reports whether a non-cancelled appointment of the resource
	// intersects [start, end), ignoring excludeID.
	HasOverlap(ctx context.Context, start, end time.Time, excludeID string) (bool, error)
	// Insert stores the appointment and its items and fills in their ids.
	Insert(ctx context.Context, a *Appointment) error
	// GetForUpdate loads the appointment and locks its row.
	GetForUpdate(ctx context.Context, id string) (*Appointment, error)
	// UpdateDetails writes the start, end and home details of a.
	UpdateDetails(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id string, status scheduling.Status, reason *string) error
}

type Repository interface {
	GetByID(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, filter Filter) ([]*Appointment, int, error)
	// ListIntersecting returns the non-cancelled appointments of res that
	// intersect [from, to). It reads outside any booking transaction.
	ListIntersecting(ctx context.Context, res Resource, from, to time.Time) ([]scheduling.Booking, error)
	// InResourceTx runs fn in one transaction holding the lock of res.
	// fn may run more than once when the transaction is retried.
	InResourceTx(ctx context.Context, res Resource, fn func(ctx context.Context, ledger Ledger) error) error
}

// Recorder observes the outcome of engine operations.
type Recorder interface {
	ObserveAppointment(operation, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAppointment(string, string, time.Duration) {}
