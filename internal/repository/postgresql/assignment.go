package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/shift"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const assignmentColumns = `
	id, nurse_id, organization_id, start_date, end_date,
	shift_start_time::text, shift_end_time::text,
	attendance_mode, shift_status, shift_start_datetime, shift_end_datetime,
	calculated_attendance_days,
	start_latitude, start_longitude, start_captured_at,
	end_latitude, end_longitude, end_captured_at,
	displacement_meters, updated_by, created_at, updated_at
`

type assignmentRepository struct {
	db database.Pool
}

func NewAssignmentRepository(db database.Pool) shift.AssignmentRepository {
	return &assignmentRepository{db: db}
}

func scanAssignment(row rowScanner, extra ...interface{}) (shift.Assignment, error) {
	var a shift.Assignment
	var startLat, startLng, endLat, endLng *float64
	var startAt, endAt *time.Time

	dest := []interface{}{
		&a.ID, &a.NurseID, &a.OrganizationID, &a.StartDate, &a.EndDate,
		&a.ShiftStartTime, &a.ShiftEndTime,
		&a.AttendanceMode, &a.ShiftStatus, &a.ShiftStartDatetime, &a.ShiftEndDatetime,
		&a.CalculatedAttendanceDays,
		&startLat, &startLng, &startAt,
		&endLat, &endLng, &endAt,
		&a.DisplacementMeters, &a.UpdatedBy, &a.CreatedAt, &a.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return shift.Assignment{}, err
	}

	if startLat != nil && startLng != nil && startAt != nil {
		a.StartLocation = &shift.GeoPoint{Latitude: *startLat, Longitude: *startLng, CapturedAt: *startAt}
	}
	if endLat != nil && endLng != nil && endAt != nil {
		a.EndLocation = &shift.GeoPoint{Latitude: *endLat, Longitude: *endLng, CapturedAt: *endAt}
	}
	return a, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (shift.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + assignmentColumns + `,
			   (SELECT n.full_name FROM nurses n WHERE n.id = assignments.nurse_id),
			   (SELECT o.code FROM organizations o WHERE o.id = assignments.organization_id)
		FROM assignments
		WHERE id = $1
	`

	var nurseName, orgCode string
	a, err := scanAssignment(q.QueryRow(ctx, query, id), &nurseName, &orgCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.Assignment{}, shift.ErrAssignmentNotFound
		}
		return shift.Assignment{}, fmt.Errorf("failed to get assignment: %w", err)
	}
	a.NurseName = &nurseName
	a.OrganizationCode = &orgCode
	return a, nil
}

func (r *assignmentRepository) StartShift(ctx context.Context, id string, startedAt time.Time, loc shift.GeoPoint, actor string) (shift.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE assignments
		SET shift_status = 'in_progress',
			shift_start_datetime = $2,
			start_latitude = $3, start_longitude = $4, start_captured_at = $5,
			updated_by = $6, updated_at = NOW()
		WHERE id = $1 AND shift_status = 'not_started' AND attendance_mode = 'shift_based'
		RETURNING ` + assignmentColumns

	a, err := scanAssignment(q.QueryRow(ctx, query, id, startedAt, loc.Latitude, loc.Longitude, loc.CapturedAt, actor))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.Assignment{}, shift.ErrShiftTransitionRejected
		}
		return shift.Assignment{}, fmt.Errorf("failed to start shift: %w", err)
	}
	return a, nil
}

func (r *assignmentRepository) EndShift(ctx context.Context, upd shift.EndShiftUpdate) (shift.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE assignments
		SET shift_status = 'completed',
			shift_end_datetime = $3,
			end_latitude = $4, end_longitude = $5, end_captured_at = $6,
			calculated_attendance_days = $7,
			displacement_meters = $8,
			updated_by = $9, updated_at = NOW()
		WHERE id = $1 AND shift_status = 'in_progress' AND shift_start_datetime = $2
		RETURNING ` + assignmentColumns

	a, err := scanAssignment(q.QueryRow(ctx, query,
		upd.AssignmentID, upd.ExpectedStart, upd.EndedAt,
		upd.Location.Latitude, upd.Location.Longitude, upd.Location.CapturedAt,
		upd.AttendanceDays, upd.DisplacementMeters, upd.Actor,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.Assignment{}, shift.ErrShiftTransitionRejected
		}
		return shift.Assignment{}, fmt.Errorf("failed to end shift: %w", err)
	}
	return a, nil
}

func (r *assignmentRepository) UpdateAttendanceMode(ctx context.Context, id string, mode shift.AttendanceMode, actor string) (shift.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE assignments
		SET attendance_mode = $2, updated_by = $3, updated_at = NOW()
		WHERE id = $1 AND shift_status = 'not_started'
		RETURNING ` + assignmentColumns

	a, err := scanAssignment(q.QueryRow(ctx, query, id, string(mode), actor))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return shift.Assignment{}, shift.ErrShiftTransitionRejected
		}
		return shift.Assignment{}, fmt.Errorf("failed to update attendance mode: %w", err)
	}
	return a, nil
}

func (r *assignmentRepository) ListCompleted(ctx context.Context, nurseID string, from, to time.Time) ([]shift.Assignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE nurse_id = $1
		  AND shift_status = 'completed'
		  AND shift_end_datetime::date BETWEEN $2 AND $3
		ORDER BY shift_end_datetime
	`

	rows, err := q.Query(ctx, query, nurseID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed shifts: %w", err)
	}
	defer rows.Close()

	var result []shift.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}
	return result, nil
}
