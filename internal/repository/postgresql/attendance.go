package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/database"
)

type attendanceRepository struct {
	db database.Pool
}

func NewAttendanceRepository(db database.Pool) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) ListRecords(ctx context.Context, filter attendance.RecordFilter) ([]attendance.Record, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ar.id, ar.assignment_id, ar.date, ar.check_in, ar.check_out, ar.total_hours,
			   a.shift_start_time::text, a.shift_end_time::text,
			   n.id, n.full_name, n.registration_no,
			   o.id, o.code, o.name
		FROM attendance_records ar
		JOIN assignments a ON a.id = ar.assignment_id
		JOIN nurses n ON n.id = a.nurse_id
		JOIN organizations o ON o.id = n.organization_id
		WHERE ar.date BETWEEN $1 AND $2
	`
	args := []interface{}{filter.DateFrom, filter.DateTo}
	argIdx := 3

	if filter.NurseID != nil {
		query += fmt.Sprintf(" AND n.id = $%d", argIdx)
		args = append(args, *filter.NurseID)
		argIdx++
	}
	if filter.OrganizationID != nil {
		query += fmt.Sprintf(" AND n.organization_id = $%d", argIdx)
		args = append(args, *filter.OrganizationID)
		argIdx++
	}
	query += " ORDER BY n.full_name, n.id, ar.date"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		var rec attendance.Record
		if err := rows.Scan(
			&rec.ID, &rec.AssignmentID, &rec.Date, &rec.CheckIn, &rec.CheckOut, &rec.TotalHours,
			&rec.ShiftStartTime, &rec.ShiftEndTime,
			&rec.NurseID, &rec.NurseName, &rec.RegistrationNo,
			&rec.OrganizationID, &rec.OrganizationCode, &rec.OrganizationName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance records: %w", err)
	}

	return records, nil
}
