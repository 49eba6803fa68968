package scheduling

import "time"

// Overlaps reports whether [s1, e1) and [s2, e2) share any instant.
// Back-to-back intervals that only touch at a boundary do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// Occupies reports whether b still holds its time on the calendar.
// Only cancelled appointments free their slot; NO_SHOW keeps it.
func (b Booking) Occupies() bool {
	return b.Status != StatusCancelled
}

// HasOverlap reports whether [start, end) collides with any occupying booking
// other than the one identified by excludeID.
func HasOverlap(start, end time.Time, booked []Booking, excludeID string) bool {
	for _, b := range booked {
		if !b.Occupies() || (excludeID != "" && b.ID == excludeID) {
			continue
		}
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}
