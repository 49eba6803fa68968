package scheduling

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"
)

// SlotStep is the stride between candidate start times inside a working-hour block.
const SlotStep = 15 * time.Minute

var ErrInvalidClock = errors.New("invalid clock time, expected HH:MM")

// Clock is a local wall-clock time of day, in minutes after midnight.
type Clock int

// ParseClock parses "HH:MM" (a trailing ":SS" is accepted and ignored).
func ParseClock(s string) (Clock, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock(t.Hour()*60 + t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

func (c Clock) on(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, int(c)/60, int(c)%60, 0, 0, loc)
}

// WorkingHours is one open block of a business's week, [Start, End) in local time.
type WorkingHours struct {
	Weekday time.Weekday
	Start   Clock
	End     Clock
}

// DayBounds returns [00:00, next 00:00) of day's calendar date in loc.
func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// Slots yields every start instant on day's calendar date at which an
// appointment of the given duration fits inside a working-hour block without
// colliding with booked. Only the year, month and day of day are used; the
// weekday and clock times are interpreted in loc.
//
// The sequence is lazy and can be ranged over any number of times.
func Slots(hours []WorkingHours, day time.Time, loc *time.Location, duration time.Duration, booked []Booking) iter.Seq[time.Time] {
	y, m, d := day.Date()
	weekday := time.Date(y, m, d, 0, 0, 0, 0, loc).Weekday()

	var blocks []WorkingHours
	for _, h := range hours {
		if h.Weekday == weekday && h.End > h.Start {
			blocks = append(blocks, h)
		}
	}
	slices.SortFunc(blocks, func(a, b WorkingHours) int { return cmp.Compare(a.Start, b.Start) })

	return func(yield func(time.Time) bool) {
		if duration <= 0 {
			return
		}
		for _, b := range blocks {
			blockEnd := b.End.on(y, m, d, loc)
			for start := b.Start.on(y, m, d, loc); !start.Add(duration).After(blockEnd); start = start.Add(SlotStep) {
				if HasOverlap(start, start.Add(duration), booked, "") {
					continue
				}
				if !yield(start) {
					return
				}
			}
		}
	}
}
