package services

import (
	"testing"
	"time"

	"tutorlink_go/models"
	"tutorlink_go/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := utils.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func booking(id uint, status, start, end, window string) models.Booking {
	b := models.Booking{Status: status, StartDate: day(start), EndDate: day(end), PreferredTime: window}
	b.ID = id
	return b
}

func TestBuildAvailability(t *testing.T) {
	bookings := []models.Booking{
		booking(1, models.BookingAccepted, "2026-03-02", "2026-03-03", "09:30-11:00"),
		booking(2, models.BookingCancelled, "2026-03-02", "2026-03-02", "13:00-14:00"),
		booking(3, models.BookingPending, "2026-03-03", "2026-03-03", "20:00-21:00"),
	}
	grid, err := BuildAvailability(day("2026-03-02"), day("2026-03-04"), bookings)
	require.NoError(t, err)
	require.Len(t, grid, 3)

	first := grid[0]
	assert.Equal(t, "2026-03-02", first.Date)
	require.Len(t, first.Slots, 14)
	assert.Equal(t, "07:00-08:00", first.Slots[0].Time)
	assert.Equal(t, "20:00-21:00", first.Slots[13].Time)

	taken := func(d DayAvailability) []string {
		var out []string
		for _, s := range d.Slots {
			if !s.Available {
				out = append(out, s.Time)
			}
		}
		return out
	}
	assert.Equal(t, []string{"09:00-10:00", "10:00-11:00"}, taken(grid[0]))
	assert.Equal(t, []string{"09:00-10:00", "10:00-11:00", "20:00-21:00"}, taken(grid[1]))
	assert.Empty(t, taken(grid[2]))
	assert.Equal(t, uint(1), *grid[0].Slots[2].BookingID)
}

func TestBuildAvailabilityRange(t *testing.T) {
	_, err := BuildAvailability(day("2026-03-02"), day("2026-03-01"), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	grid, err := BuildAvailability(day("2026-01-01"), day("2026-01-31"), nil)
	require.NoError(t, err)
	assert.Len(t, grid, 31)

	_, err = BuildAvailability(day("2026-01-01"), day("2026-02-01"), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFindConflict(t *testing.T) {
	existing := []models.Booking{
		booking(1, models.BookingActive, "2026-03-02", "2026-03-06", "09:00-10:00"),
		booking(2, models.BookingDeclined, "2026-03-09", "2026-03-09", "09:00-10:00"),
	}
	win := func(s string) utils.TimeWindow {
		w, err := utils.ParseTimeWindow(s)
		require.NoError(t, err)
		return w
	}

	c := FindConflict(existing, day("2026-03-06"), day("2026-03-10"), win("09:30-10:30"))
	require.NotNil(t, c)
	assert.Equal(t, uint(1), c.ID)

	assert.Nil(t, FindConflict(existing, day("2026-03-02"), day("2026-03-02"), win("10:00-11:00")), "touching windows do not overlap")
	assert.Nil(t, FindConflict(existing, day("2026-03-07"), day("2026-03-09"), win("09:00-10:00")), "declined bookings do not block")
}
