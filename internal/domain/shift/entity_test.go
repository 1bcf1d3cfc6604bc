package shift

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttendanceDays(t *testing.T) {
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"exactly one day", 24 * time.Hour, "1"},
		{"one hour", time.Hour, "0.04"},
		{"ten minutes floors to minimum", 10 * time.Minute, "0.01"},
		{"zero duration", 0, "0.01"},
		{"three and a half days", 84 * time.Hour, "3.5"},
		{"eighteen hours", 18 * time.Hour, "0.75"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := AttendanceDays(start, start.Add(c.duration))
			assert.Equal(t, c.want, got.String())
		})
	}
}

func TestAttendanceDaysNeverBelowMinimum(t *testing.T) {
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	got := AttendanceDays(start, start.Add(-time.Hour))
	assert.Equal(t, "0.01", got.String())
}

func TestDurationMinutes(t *testing.T) {
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(26*time.Hour + 15*time.Minute + 40*time.Second)
	a := Assignment{ShiftStartDatetime: &start, ShiftEndDatetime: &end}
	assert.Equal(t, int64(26*60+16), a.DurationMinutes())
	assert.Zero(t, Assignment{}.DurationMinutes())
}

func TestAttendanceModeIsValid(t *testing.T) {
	assert.True(t, AttendanceModeDaily.IsValid())
	assert.True(t, AttendanceModeShiftBased.IsValid())
	assert.False(t, AttendanceMode("weekly").IsValid())
}
