package utils

import (
	"fmt"
	"strings"
	"time"
)

// TimeWindow is a daily HH:MM-HH:MM range in minutes after midnight.
type TimeWindow struct {
	Start int
	End   int
}

// ParseHourMinute parses a strict 24h HH:MM value.
func ParseHourMinute(value string) (int, int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, 0, fmt.Errorf("time value cannot be empty")
	}
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	return t.Hour(), t.Minute(), nil
}

// ParseTimeWindow parses "HH:MM-HH:MM". Start must be before end.
func ParseTimeWindow(value string) (TimeWindow, error) {
	parts := strings.Split(strings.TrimSpace(value), "-")
	if len(parts) != 2 {
		return TimeWindow{}, fmt.Errorf("invalid time window %q, expected HH:MM-HH:MM", value)
	}
	sh, sm, err := ParseHourMinute(parts[0])
	if err != nil {
		return TimeWindow{}, err
	}
	eh, em, err := ParseHourMinute(parts[1])
	if err != nil {
		return TimeWindow{}, err
	}
	w := TimeWindow{Start: sh*60 + sm, End: eh*60 + em}
	if w.Start >= w.End {
		return TimeWindow{}, fmt.Errorf("time window start must be before end")
	}
	return w, nil
}

// Overlaps reports whether two half-open windows intersect.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.Start < o.End && o.Start < w.End
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.Start/60, w.Start%60, w.End/60, w.End%60)
}

// DateOnly truncates t to midnight in its location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate parses YYYY-MM-DD in the local zone.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(value), time.Local)
}
