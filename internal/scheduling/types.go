// Package scheduling holds the appointment engine's pure decision logic:
// duration resolution, home-visit capacity, overlap detection, slot generation,
// the reschedule/cancel notice policy and the appointment status machine.
// Nothing in this package performs I/O.
package scheduling

import "time"

type Species string

const (
	SpeciesDog Species = "DOG"
	SpeciesCat Species = "CAT"
)

func (s Species) IsValid() bool {
	switch s {
	case SpeciesDog, SpeciesCat:
		return true
	}
	return false
}

type Size string

const (
	SizeMini   Size = "MINI"
	SizeSmall  Size = "SMALL"
	SizeMedium Size = "MEDIUM"
	SizeLarge  Size = "LARGE"
	SizeGiant  Size = "GIANT"
)

func (s Size) IsValid() bool {
	switch s {
	case SizeMini, SizeSmall, SizeMedium, SizeLarge, SizeGiant:
		return true
	}
	return false
}

type LocationType string

const (
	LocationInSalon LocationType = "IN_SALON"
	LocationAtHome  LocationType = "AT_HOME"
)

func (l LocationType) IsValid() bool {
	return l == LocationInSalon || l == LocationAtHome
}

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
	StatusCancelled  Status = "CANCELLED"
	StatusNoShow     Status = "NO_SHOW"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusDone, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Booking is the part of an appointment the engine needs to reason about time.
// The interval is half-open: [Start, End).
type Booking struct {
	ID     string
	Start  time.Time
	End    time.Time
	Status Status
}
