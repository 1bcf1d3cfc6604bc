package shift

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/config"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/shift"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/hours"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/utils"
)

type ShiftServiceImpl struct {
	assignmentRepo shift.AssignmentRepository
	conventions    config.Conventions
	now            func() time.Time
}

func NewShiftService(assignmentRepo shift.AssignmentRepository, conventions config.Conventions) shift.ShiftService {
	return &ShiftServiceImpl{
		assignmentRepo: assignmentRepo,
		conventions:    conventions,
		now:            time.Now,
	}
}

// getAssignment loads the assignment and hides it from operators of other organizations.
func (s *ShiftServiceImpl) getAssignment(ctx context.Context, op jwt.Operator, id string) (shift.Assignment, error) {
	a, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return shift.Assignment{}, err
	}
	if !op.Allows(a.OrganizationID) {
		return shift.Assignment{}, shift.ErrAssignmentNotFound
	}
	return a, nil
}

func startConflict(a shift.Assignment) error {
	if a.AttendanceMode != shift.AttendanceModeShiftBased {
		return shift.ErrNotShiftBased
	}
	switch a.ShiftStatus {
	case shift.StatusInProgress:
		return shift.ErrShiftAlreadyStarted
	case shift.StatusCompleted:
		return shift.ErrShiftAlreadyCompleted
	}
	return nil
}

func endConflict(a shift.Assignment) error {
	if a.AttendanceMode != shift.AttendanceModeShiftBased {
		return shift.ErrNotShiftBased
	}
	switch a.ShiftStatus {
	case shift.StatusNotStarted:
		return shift.ErrShiftNotStarted
	case shift.StatusCompleted:
		return shift.ErrShiftAlreadyCompleted
	}
	if a.ShiftStartDatetime == nil {
		return shift.ErrShiftNotStarted
	}
	return nil
}

// StartShift implements shift.ShiftService.
func (s *ShiftServiceImpl) StartShift(ctx context.Context, req shift.StartShiftRequest) (shift.ShiftResponse, error) {
	loc, err := req.Validate()
	if err != nil {
		return shift.ShiftResponse{}, err
	}

	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return shift.ShiftResponse{}, err
	}

	a, err := s.getAssignment(ctx, op, req.AssignmentID)
	if err != nil {
		return shift.ShiftResponse{}, err
	}
	if err := startConflict(a); err != nil {
		return shift.ShiftResponse{}, err
	}

	started, err := s.assignmentRepo.StartShift(ctx, a.ID, s.now(), loc, op.UserID)
	if err != nil {
		if errors.Is(err, shift.ErrShiftTransitionRejected) {
			// Lost the race; report what the winner left behind.
			return shift.ShiftResponse{}, s.classify(ctx, a.ID, startConflict, err)
		}
		return shift.ShiftResponse{}, err
	}

	slog.Info("shift started", "assignment_id", started.ID, "nurse_id", started.NurseID, "actor", op.UserID)
	return toShiftResponse(started), nil
}

// EndShift implements shift.ShiftService.
func (s *ShiftServiceImpl) EndShift(ctx context.Context, req shift.EndShiftRequest) (shift.ShiftResponse, error) {
	loc, err := req.Validate()
	if err != nil {
		return shift.ShiftResponse{}, err
	}

	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return shift.ShiftResponse{}, err
	}

	a, err := s.getAssignment(ctx, op, req.AssignmentID)
	if err != nil {
		return shift.ShiftResponse{}, err
	}
	if err := endConflict(a); err != nil {
		return shift.ShiftResponse{}, err
	}

	endedAt := s.now()
	upd := shift.EndShiftUpdate{
		AssignmentID:   a.ID,
		ExpectedStart:  *a.ShiftStartDatetime,
		EndedAt:        endedAt,
		Location:       loc,
		AttendanceDays: shift.AttendanceDays(*a.ShiftStartDatetime, endedAt),
		Actor:          op.UserID,
	}
	if a.StartLocation != nil {
		d := utils.HaversineDistance(a.StartLocation.Latitude, a.StartLocation.Longitude, loc.Latitude, loc.Longitude)
		upd.DisplacementMeters = &d
	}

	ended, err := s.assignmentRepo.EndShift(ctx, upd)
	if err != nil {
		if errors.Is(err, shift.ErrShiftTransitionRejected) {
			return shift.ShiftResponse{}, s.classify(ctx, a.ID, endConflict, err)
		}
		return shift.ShiftResponse{}, err
	}

	slog.Info("shift ended",
		"assignment_id", ended.ID,
		"nurse_id", ended.NurseID,
		"attendance_days", upd.AttendanceDays.String(),
		"actor", op.UserID,
	)
	return toShiftResponse(ended), nil
}

// classify reloads the assignment after a rejected conditional write and maps its
// current state to a descriptive error.
func (s *ShiftServiceImpl) classify(ctx context.Context, id string, conflict func(shift.Assignment) error, fallback error) error {
	current, err := s.assignmentRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c := conflict(current); c != nil {
		return c
	}
	return fallback
}

// GetShift implements shift.ShiftService.
func (s *ShiftServiceImpl) GetShift(ctx context.Context, assignmentID string) (shift.ShiftResponse, error) {
	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return shift.ShiftResponse{}, err
	}

	a, err := s.getAssignment(ctx, op, assignmentID)
	if err != nil {
		return shift.ShiftResponse{}, err
	}
	return toShiftResponse(a), nil
}

// SetAttendanceMode implements shift.ShiftService.
func (s *ShiftServiceImpl) SetAttendanceMode(ctx context.Context, req shift.SetAttendanceModeRequest) (shift.ShiftResponse, error) {
	if err := req.Validate(); err != nil {
		return shift.ShiftResponse{}, err
	}

	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return shift.ShiftResponse{}, err
	}

	a, err := s.getAssignment(ctx, op, req.AssignmentID)
	if err != nil {
		return shift.ShiftResponse{}, err
	}
	if a.ShiftStatus != shift.StatusNotStarted {
		return shift.ShiftResponse{}, shift.ErrModeChangeNotAllowed
	}

	mode := shift.AttendanceMode(req.AttendanceMode)
	if mode == "" {
		var orgCode string
		if a.OrganizationCode != nil {
			orgCode = *a.OrganizationCode
		}
		mode = shift.AttendanceMode(s.conventions.AttendanceModeFor(orgCode))
	}
	if a.AttendanceMode == mode {
		return toShiftResponse(a), nil
	}

	updated, err := s.assignmentRepo.UpdateAttendanceMode(ctx, a.ID, mode, op.UserID)
	if err != nil {
		if errors.Is(err, shift.ErrShiftTransitionRejected) {
			return shift.ShiftResponse{}, shift.ErrModeChangeNotAllowed
		}
		return shift.ShiftResponse{}, err
	}
	return toShiftResponse(updated), nil
}

func toLocationResponse(p *shift.GeoPoint) *shift.LocationResponse {
	if p == nil {
		return nil
	}
	return &shift.LocationResponse{Latitude: p.Latitude, Longitude: p.Longitude, CapturedAt: p.CapturedAt}
}

func toShiftResponse(a shift.Assignment) shift.ShiftResponse {
	resp := shift.ShiftResponse{
		AssignmentID:             a.ID,
		NurseID:                  a.NurseID,
		AttendanceMode:           string(a.AttendanceMode),
		ShiftStatus:              string(a.ShiftStatus),
		ShiftStartDatetime:       a.ShiftStartDatetime,
		ShiftEndDatetime:         a.ShiftEndDatetime,
		CalculatedAttendanceDays: a.CalculatedAttendanceDays,
		StartLocation:            toLocationResponse(a.StartLocation),
		EndLocation:              toLocationResponse(a.EndLocation),
		DisplacementMeters:       a.DisplacementMeters,
	}
	if a.ShiftStatus == shift.StatusCompleted {
		h := hours.ToDecimal(a.DurationMinutes()).Round(2)
		resp.DurationHours = &h
	}
	return resp
}
