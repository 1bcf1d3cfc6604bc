package shift

import (
	"time"

	"github.com/shopspring/decimal"
)

type AttendanceMode string

const (
	AttendanceModeDaily      AttendanceMode = "daily"
	AttendanceModeShiftBased AttendanceMode = "shift_based"
)

func (m AttendanceMode) IsValid() bool {
	return m == AttendanceModeDaily || m == AttendanceModeShiftBased
}

// Status transitions only forward: not_started -> in_progress -> completed.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// GeoPoint is the location snapshot supplied by the caller's device.
type GeoPoint struct {
	Latitude   float64
	Longitude  float64
	CapturedAt time.Time
}

// Assignment carries the shift attendance record of one nurse placement.
type Assignment struct {
	ID                       string
	NurseID                  string
	OrganizationID           string
	StartDate                time.Time
	EndDate                  *time.Time
	ShiftStartTime           *string
	ShiftEndTime             *string
	AttendanceMode           AttendanceMode
	ShiftStatus              Status
	ShiftStartDatetime       *time.Time
	ShiftEndDatetime         *time.Time
	CalculatedAttendanceDays *decimal.Decimal
	StartLocation            *GeoPoint
	EndLocation              *GeoPoint
	DisplacementMeters       *float64
	UpdatedBy                *string
	CreatedAt                time.Time
	UpdatedAt                time.Time

	// Joined fields
	NurseName        *string
	OrganizationCode *string
}

var (
	secondsPerDay   = decimal.NewFromInt(86400)
	minimumShiftDay = decimal.RequireFromString("0.01")
)

// AttendanceDays converts a shift duration into fractional days rounded to
// 2 places, never less than 0.01.
func AttendanceDays(start, end time.Time) decimal.Decimal {
	seconds := int64(end.Sub(start) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	days := decimal.NewFromInt(seconds).Div(secondsPerDay).Round(2)
	if days.LessThan(minimumShiftDay) {
		return minimumShiftDay
	}
	return days
}

// DurationMinutes is the whole minutes between start and end of a completed shift.
func (a Assignment) DurationMinutes() int64 {
	if a.ShiftStartDatetime == nil || a.ShiftEndDatetime == nil {
		return 0
	}
	d := a.ShiftEndDatetime.Sub(*a.ShiftStartDatetime)
	if d < 0 {
		return 0
	}
	return int64((d + 30*time.Second) / time.Minute)
}
