package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 6, 1, hour, minute, 0, 0, time.UTC)
}

func TestCandidateHoursFutureDate(t *testing.T) {
	tomorrow := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	got := DefaultHours.CandidateHours(tomorrow, at(14, 0))

	assert.Equal(t, []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, got)
}

func TestCandidateHoursToday(t *testing.T) {
	today := DateOf(at(0, 0))

	tests := []struct {
		name string
		now  time.Time
		want []int
	}{
		{name: "before opening", now: at(8, 15), want: []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}},
		{name: "at opening", now: at(11, 0), want: []int{12, 13, 14, 15, 16, 17, 18, 19, 20}},
		{name: "afternoon", now: at(14, 59), want: []int{15, 16, 17, 18, 19, 20}},
		{name: "last hour", now: at(20, 5), want: nil},
		{name: "closing", now: at(21, 0), want: nil},
		{name: "late night", now: at(23, 30), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultHours.CandidateHours(today, tt.now))
		})
	}
}

func TestCandidateHoursPastDate(t *testing.T) {
	yesterday := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, DefaultHours.CandidateHours(yesterday, at(9, 0)))
}

func TestCandidateHoursUsesLocalCalendarDay(t *testing.T) {
	ny := time.FixedZone("EDT", -4*60*60)

	// 02:00 UTC on June 2nd is still June 1st, 22:00 in New York.
	now := time.Date(2024, 6, 2, 2, 0, 0, 0, time.UTC).In(ny)

	june1 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	june2 := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	assert.Empty(t, DefaultHours.CandidateHours(june1, now), "salon already closed today")
	assert.Len(t, DefaultHours.CandidateHours(june2, now), 10, "tomorrow fully open")
}

func TestFreeHoursKeepsOrder(t *testing.T) {
	booked := map[int]struct{}{12: {}, 15: {}}
	assert.Equal(t, []int{11, 13, 14, 16}, FreeHours([]int{11, 12, 13, 14, 15, 16}, booked))
	assert.Equal(t, []int{11}, FreeHours([]int{11}, nil))
}

func TestHoursContains(t *testing.T) {
	assert.True(t, DefaultHours.Contains(11))
	assert.True(t, DefaultHours.Contains(20))
	assert.False(t, DefaultHours.Contains(21))
	assert.False(t, DefaultHours.Contains(10))
}

func TestParseHour(t *testing.T) {
	hour, err := ParseHour("14:00:00")
	require.NoError(t, err)
	assert.Equal(t, 14, hour)

	hour, err = ParseHour("09:00")
	require.NoError(t, err)
	assert.Equal(t, 9, hour)

	_, err = ParseHour("14:30:00")
	assert.ErrorIs(t, err, ErrInvalidTime)

	_, err = ParseHour("noon")
	assert.Error(t, err)
}

func TestSlotKeyAndFormatting(t *testing.T) {
	slot := Slot{Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Hour: 9}

	assert.Equal(t, "2024-06-01T09", slot.Key())
	assert.Equal(t, "09:00:00", FormatHour(9))

	d, err := ParseDate("2024-06-01")
	require.NoError(t, err)
	assert.True(t, d.Equal(slot.Date))
}
