package booking

import (
	"errors"
	"fmt"
	"time"
)

const (
	dateLayout = "2006-01-02"
	hourLayout = "15:04:05"
)

var ErrInvalidTime = errors.New("time must be a whole hour")

// Hours is the bookable window [Open, Close). Close is the closing boundary
// and is never offered.
type Hours struct {
	Open  int
	Close int
}

var DefaultHours = Hours{Open: 11, Close: 21}

// Contains reports whether hour is a bookable slot start.
func (h Hours) Contains(hour int) bool {
	return hour >= h.Open && hour < h.Close
}

// CandidateHours returns the hours of date that may still be offered at now,
// before consulting bookings. now must already be in the salon time zone.
func (h Hours) CandidateHours(date, now time.Time) []int {
	today := DateOf(now)
	date = DateOf(date)
	if date.Before(today) {
		return nil
	}

	start := h.Open
	if date.Equal(today) {
		if now.Hour() >= h.Close {
			return nil
		}
		if next := now.Hour() + 1; next > start {
			start = next
		}
	}

	var hours []int
	for hour := start; hour < h.Close; hour++ {
		hours = append(hours, hour)
	}
	return hours
}

// FreeHours drops the booked hours from candidates, keeping order.
func FreeHours(candidates []int, booked map[int]struct{}) []int {
	free := make([]int, 0, len(candidates))
	for _, hour := range candidates {
		if _, taken := booked[hour]; !taken {
			free = append(free, hour)
		}
	}
	return free
}

// Slot is a (date, hour) booking opportunity.
type Slot struct {
	Date time.Time
	Hour int
}

// Key identifies the slot, e.g. 2024-06-01T14.
func (s Slot) Key() string {
	return fmt.Sprintf("%sT%02d", FormatDate(s.Date), s.Hour)
}

// DateOf strips the clock from t and returns the calendar day at UTC
// midnight, the representation used for every date in this package.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FormatDate(d time.Time) string {
	return d.Format(dateLayout)
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// FormatHour renders an hour the way the web surface expects it, e.g. 14:00:00.
func FormatHour(hour int) string {
	return fmt.Sprintf("%02d:00:00", hour)
}

// ParseHour accepts HH:MM or HH:MM:SS with zero minutes and seconds.
func ParseHour(s string) (int, error) {
	layout := hourLayout
	if len(s) == len("15:04") {
		layout = "15:04"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", s, err)
	}
	if t.Minute() != 0 || t.Second() != 0 {
		return 0, fmt.Errorf("parse time %q: %w", s, ErrInvalidTime)
	}
	return t.Hour(), nil
}
