package scheduling

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNoMatchingRule = errors.New("no duration rule matches this pet")

// DurationRule says how long a service takes for pets of a species, optionally
// narrowed by size or breed.
type DurationRule struct {
	Species             Species
	Size                *Size
	Breed               *string
	BaseDurationMinutes int
	IsDefaultForSpecies bool
}

// PetProfile is the subset of a pet that duration rules match on.
type PetProfile struct {
	Species Species
	Size    Size
	Breed   string
}

// ResolveDuration picks the rule for pet and returns its minutes.
// A breed match wins over a size match, which wins over the species default.
func ResolveDuration(rules []DurationRule, pet PetProfile) (int, error) {
	breed := strings.TrimSpace(pet.Breed)

	var bySize, byDefault *DurationRule
	for i := range rules {
		r := &rules[i]
		if r.Species != pet.Species {
			continue
		}
		if r.Breed != nil && breed != "" && strings.EqualFold(strings.TrimSpace(*r.Breed), breed) {
			return r.BaseDurationMinutes, nil
		}
		if bySize == nil && r.Size != nil && *r.Size == pet.Size {
			bySize = r
		}
		if byDefault == nil && r.IsDefaultForSpecies {
			byDefault = r
		}
	}

	switch {
	case bySize != nil:
		return bySize.BaseDurationMinutes, nil
	case byDefault != nil:
		return byDefault.BaseDurationMinutes, nil
	}
	return 0, fmt.Errorf("%w: species %s, breed %q, size %s", ErrNoMatchingRule, pet.Species, pet.Breed, pet.Size)
}

// HomeVisitOverhead is added once to every at-home appointment.
type HomeVisitOverhead struct {
	SetupMinutes     int
	TeardownMinutes  int
	TransportMinutes int
}

func (o HomeVisitOverhead) Minutes() int {
	return o.SetupMinutes + o.TeardownMinutes + o.TransportMinutes
}

// TotalMinutes sums the per-item durations and adds the home-visit overhead for AT_HOME.
func TotalMinutes(itemMinutes []int, location LocationType, overhead HomeVisitOverhead) int {
	total := 0
	for _, m := range itemMinutes {
		total += m
	}
	if location == LocationAtHome {
		total += overhead.Minutes()
	}
	return total
}
