package services

import (
	"fmt"
	"time"

	"tutorlink_go/models"
	"tutorlink_go/utils"
)

const (
	AvailabilityFirstHour = 7
	AvailabilityLastHour  = 21
	MaxAvailabilityDays   = 31

	DefaultAvailabilityDays = 7
)

type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	BookingID *uint  `json:"booking_id,omitempty"`
}

type DayAvailability struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// BuildAvailability lays out hourly slots from 07:00 to 21:00 for each day
// in [from, to]. A slot is taken when a booking covers the day and its
// preferred time overlaps the slot.
func BuildAvailability(from, to time.Time, bookings []models.Booking) ([]DayAvailability, error) {
	from, to = utils.DateOnly(from), utils.DateOnly(to)
	if to.Before(from) {
		return nil, InputError("to must not be before from")
	}
	days := int(to.Sub(from).Hours()/24+0.5) + 1
	if days > MaxAvailabilityDays {
		return nil, InputError("range cannot exceed %d days", MaxAvailabilityDays)
	}

	type busy struct {
		start, end time.Time
		window     utils.TimeWindow
		id         uint
	}
	var blocks []busy
	for _, b := range bookings {
		if !isBlocking(b.Status) {
			continue
		}
		w, err := utils.ParseTimeWindow(b.PreferredTime)
		if err != nil {
			continue
		}
		blocks = append(blocks, busy{utils.DateOnly(b.StartDate), utils.DateOnly(b.EndDate), w, b.ID})
	}

	out := make([]DayAvailability, 0, days)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		day := DayAvailability{Date: d.Format("2006-01-02")}
		for h := AvailabilityFirstHour; h < AvailabilityLastHour; h++ {
			slotWin := utils.TimeWindow{Start: h * 60, End: (h + 1) * 60}
			slot := Slot{Time: fmt.Sprintf("%02d:00-%02d:00", h, h+1), Available: true}
			for _, blk := range blocks {
				if d.Before(blk.start) || d.After(blk.end) || !blk.window.Overlaps(slotWin) {
					continue
				}
				id := blk.id
				slot.Available, slot.BookingID = false, &id
				break
			}
			day.Slots = append(day.Slots, slot)
		}
		out = append(out, day)
	}
	return out, nil
}

func isBlocking(status string) bool {
	for _, s := range BlockingBookingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// FindConflict returns the first blocking booking whose dates intersect
// [start, end] and whose preferred time overlaps window.
func FindConflict(existing []models.Booking, start, end time.Time, window utils.TimeWindow) *models.Booking {
	start, end = utils.DateOnly(start), utils.DateOnly(end)
	for i := range existing {
		b := &existing[i]
		if !isBlocking(b.Status) {
			continue
		}
		if utils.DateOnly(b.StartDate).After(end) || utils.DateOnly(b.EndDate).Before(start) {
			continue
		}
		w, err := utils.ParseTimeWindow(b.PreferredTime)
		if err != nil {
			continue
		}
		if w.Overlaps(window) {
			return b
		}
	}
	return nil
}
