package shift

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type EndShiftUpdate struct {
	AssignmentID       string
	ExpectedStart      time.Time
	EndedAt            time.Time
	Location           GeoPoint
	AttendanceDays     decimal.Decimal
	DisplacementMeters *float64
	Actor              string
}

// AssignmentRepository persists the shift record. Start, End and
// UpdateAttendanceMode are conditional writes: when the row is not in the
// expected state they return ErrShiftTransitionRejected and change nothing.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id string) (Assignment, error)

	// StartShift moves not_started -> in_progress for a shift_based assignment
	StartShift(ctx context.Context, id string, startedAt time.Time, loc GeoPoint, actor string) (Assignment, error)

	// EndShift moves in_progress -> completed if shift_start_datetime still equals ExpectedStart
	EndShift(ctx context.Context, upd EndShiftUpdate) (Assignment, error)

	// UpdateAttendanceMode changes the mode while the shift is not_started
	UpdateAttendanceMode(ctx context.Context, id string, mode AttendanceMode, actor string) (Assignment, error)

	// ListCompleted returns completed shifts of a nurse whose end falls within [from, to]
	ListCompleted(ctx context.Context, nurseID string, from, to time.Time) ([]Assignment, error)
}
