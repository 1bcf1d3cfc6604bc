package shift

import (
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/utils"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type GeoLocationRequest struct {
	Latitude   *float64 `json:"latitude" validate:"required,latitude"`
	Longitude  *float64 `json:"longitude" validate:"required,longitude"`
	CapturedAt string   `json:"captured_at" validate:"required"`
}

func (g *GeoLocationRequest) toPoint(errs *validator.ValidationErrors) GeoPoint {
	*errs = append(*errs, validator.Struct(g)...)

	var p GeoPoint
	if g.Latitude != nil && g.Longitude != nil {
		if !utils.ValidCoordinates(*g.Latitude, *g.Longitude) {
			return p
		}
		p.Latitude, p.Longitude = *g.Latitude, *g.Longitude
	}
	if g.CapturedAt != "" {
		t, ok := validator.IsValidDateTime(g.CapturedAt)
		if !ok {
			errs.Add("captured_at", "must be an RFC3339 timestamp")
		}
		p.CapturedAt = t
	}
	return p
}

type StartShiftRequest struct {
	AssignmentID string `json:"-"`
	GeoLocationRequest
}

func (r *StartShiftRequest) Validate() (GeoPoint, error) {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.AssignmentID) {
		errs.Add("assignment_id", "is required")
	}
	p := r.toPoint(&errs)
	return p, errs.Err()
}

type EndShiftRequest struct {
	AssignmentID string `json:"-"`
	GeoLocationRequest
}

func (r *EndShiftRequest) Validate() (GeoPoint, error) {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.AssignmentID) {
		errs.Add("assignment_id", "is required")
	}
	p := r.toPoint(&errs)
	return p, errs.Err()
}

// SetAttendanceModeRequest switches an assignment's attendance mode. An empty
// mode resets it to the organization's default.
type SetAttendanceModeRequest struct {
	AssignmentID   string `json:"-"`
	AttendanceMode string `json:"attendance_mode" validate:"omitempty,oneof=daily shift_based"`
}

func (r *SetAttendanceModeRequest) Validate() error {
	errs := validator.Struct(r)
	if validator.IsEmpty(r.AssignmentID) {
		errs.Add("assignment_id", "is required")
	}
	return errs.Err()
}

type LocationResponse struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	CapturedAt time.Time `json:"captured_at"`
}

type ShiftResponse struct {
	AssignmentID             string            `json:"assignment_id"`
	NurseID                  string            `json:"nurse_id"`
	AttendanceMode           string            `json:"attendance_mode"`
	ShiftStatus              string            `json:"shift_status"`
	ShiftStartDatetime       *time.Time        `json:"shift_start_datetime,omitempty"`
	ShiftEndDatetime         *time.Time        `json:"shift_end_datetime,omitempty"`
	DurationHours            *decimal.Decimal  `json:"duration_hours,omitempty"`
	CalculatedAttendanceDays *decimal.Decimal  `json:"calculated_attendance_days,omitempty"`
	StartLocation            *LocationResponse `json:"start_location,omitempty"`
	EndLocation              *LocationResponse `json:"end_location,omitempty"`
	DisplacementMeters       *float64          `json:"displacement_meters,omitempty"`
}
