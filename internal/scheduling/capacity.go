package scheduling

import (
	"errors"
	"fmt"
)

var ErrCapacityExceeded = errors.New("too many dogs for a single home visit")

// CountDogs returns how many entries are dogs.
func CountDogs(species []Species) int {
	n := 0
	for _, s := range species {
		if s == SpeciesDog {
			n++
		}
	}
	return n
}

// ValidateCapacity enforces the per-appointment dog cap of home visits.
// species holds one entry per appointment item. A nil cap means the business set none.
func ValidateCapacity(species []Species, location LocationType, maxDogsPerHomeVisit *int) error {
	if location != LocationAtHome || maxDogsPerHomeVisit == nil {
		return nil
	}
	if dogs := CountDogs(species); dogs > *maxDogsPerHomeVisit {
		return fmt.Errorf("%w: %d dogs requested, at most %d allowed", ErrCapacityExceeded, dogs, *maxDogsPerHomeVisit)
	}
	return nil
}
