package scheduling

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func mustClock(t require.TestingT, s string) Clock {
	c, err := ParseClock(s)
	require.NoError(t, err)
	return c
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, Clock(570), c)
	assert.Equal(t, "09:30", c.String())

	c, err = ParseClock("18:00:00")
	require.NoError(t, err)
	assert.Equal(t, "18:00", c.String())

	_, err = ParseClock("25:00")
	assert.ErrorIs(t, err, ErrInvalidClock)
}

func TestSlotsScenarioB(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	hours := []WorkingHours{{Weekday: time.Monday, Start: mustClock(t, "09:00"), End: mustClock(t, "18:00")}}
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	slots := slices.Collect(Slots(hours, monday, loc, 60*time.Minute, nil))
	require.NotEmpty(t, slots)

	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, loc), slots[0])
	assert.Equal(t, time.Date(2026, 3, 2, 17, 0, 0, 0, loc), slots[len(slots)-1])
	for i := 1; i < len(slots); i++ {
		assert.Equal(t, SlotStep, slots[i].Sub(slots[i-1]))
	}
	assert.Len(t, slots, 33)
}

func TestSlotsNoBlocks(t *testing.T) {
	hours := []WorkingHours{{Weekday: time.Monday, Start: 540, End: 1080}}
	tuesday := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

	assert.Empty(t, slices.Collect(Slots(hours, tuesday, time.UTC, time.Hour, nil)))
}

func TestSlotsSkipsBookingsAndOrdersBlocks(t *testing.T) {
	hours := []WorkingHours{
		{Weekday: time.Monday, Start: mustClock(t, "14:00"), End: mustClock(t, "15:00")},
		{Weekday: time.Monday, Start: mustClock(t, "09:00"), End: mustClock(t, "10:30")},
	}
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	booked := []Booking{
		{ID: "a", Start: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), Status: StatusConfirmed},
		{ID: "b", Start: time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC), Status: StatusCancelled},
	}

	got := slices.Collect(Slots(hours, day, time.UTC, 30*time.Minute, booked))

	want := []time.Time{
		time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 14, 15, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC),
	}
	assert.Equal(t, want, got)
}

func TestSlotsStopsEarly(t *testing.T) {
	hours := []WorkingHours{{Weekday: time.Monday, Start: 540, End: 1080}}
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	var seen int
	for range Slots(hours, day, time.UTC, time.Hour, nil) {
		seen++
		if seen == 3 {
			break
		}
	}
	assert.Equal(t, 3, seen)
}

func TestSlotsProperties(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	hours := []WorkingHours{
		{Weekday: time.Monday, Start: mustClock(t, "08:00"), End: mustClock(t, "12:00")},
		{Weekday: time.Monday, Start: mustClock(t, "13:00"), End: mustClock(t, "19:00")},
	}

	rapid.Check(t, func(t *rapid.T) {
		duration := time.Duration(rapid.IntRange(1, 16).Draw(t, "quarters")*15) * time.Minute

		var booked []Booking
		n := rapid.IntRange(0, 6).Draw(t, "bookings")
		for i := 0; i < n; i++ {
			start := day.Add(time.Duration(rapid.IntRange(7*60, 19*60).Draw(t, "start")) * time.Minute)
			booked = append(booked, Booking{
				ID:     string(rune('a' + i)),
				Start:  start,
				End:    start.Add(time.Duration(rapid.IntRange(10, 180).Draw(t, "len")) * time.Minute),
				Status: rapid.SampledFrom([]Status{StatusPending, StatusConfirmed, StatusCancelled, StatusNoShow}).Draw(t, "status"),
			})
		}

		first := slices.Collect(Slots(hours, day, time.UTC, duration, booked))
		second := slices.Collect(Slots(hours, day, time.UTC, duration, booked))
		assert.Equal(t, first, second)

		for i, s := range first {
			if i > 0 {
				assert.True(t, s.After(first[i-1]), "slots are strictly increasing")
			}
			for _, b := range booked {
				if b.Status == StatusCancelled {
					continue
				}
				assert.False(t, Overlaps(s, s.Add(duration), b.Start, b.End), "slot %s overlaps booking %s", s, b.ID)
			}
		}
	})
}

func TestDayBounds(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	start, end := DayBounds(time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, loc), end)
	assert.Equal(t, 23*time.Hour, end.Sub(start), "spring-forward day is 23 hours long")
}
