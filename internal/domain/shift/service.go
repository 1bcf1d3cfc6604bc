package shift

import "context"

type ShiftService interface {
	StartShift(ctx context.Context, req StartShiftRequest) (ShiftResponse, error)
	EndShift(ctx context.Context, req EndShiftRequest) (ShiftResponse, error)
	GetShift(ctx context.Context, assignmentID string) (ShiftResponse, error)
	SetAttendanceMode(ctx context.Context, req SetAttendanceModeRequest) (ShiftResponse, error)
}
