package salary

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/shift"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/hours"
	"github.com/shopspring/decimal"
)

// workedTime is what a nurse worked in a pay period across both attendance modes.
type workedTime struct {
	Minutes int64
	Days    decimal.Decimal
}

func (w workedTime) Hours() decimal.Decimal {
	return hours.ToDecimal(w.Minutes)
}

// collectWorkedTime sums daily attendance records and completed shifts of the period.
// Daily records count one attendance day per distinct date.
func collectWorkedTime(
	ctx context.Context,
	attendanceRepo attendance.AttendanceRepository,
	assignmentRepo shift.AssignmentRepository,
	nurseID string,
	start, end time.Time,
) (workedTime, error) {
	records, err := attendanceRepo.ListRecords(ctx, attendance.RecordFilter{
		DateFrom: start,
		DateTo:   end,
		NurseID:  &nurseID,
	})
	if err != nil {
		return workedTime{}, fmt.Errorf("%w: %w", attendance.ErrAggregationFailed, err)
	}

	var w workedTime
	dates := make(map[string]struct{})
	for _, row := range attendance.Aggregate(records) {
		w.Minutes += row.TotalMinutes
	}
	for _, r := range records {
		dates[r.Date.Format("2006-01-02")] = struct{}{}
	}
	w.Days = decimal.NewFromInt(int64(len(dates)))

	shifts, err := assignmentRepo.ListCompleted(ctx, nurseID, start, end)
	if err != nil {
		return workedTime{}, err
	}
	for _, a := range shifts {
		w.Minutes += a.DurationMinutes()
		if a.CalculatedAttendanceDays != nil {
			w.Days = w.Days.Add(*a.CalculatedAttendanceDays)
		}
	}
	return w, nil
}
