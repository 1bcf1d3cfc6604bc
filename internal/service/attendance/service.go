package attendance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/homecare-payroll/internal/config"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/hours"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/jwt"
)

type AttendanceServiceImpl struct {
	attendanceRepo attendance.AttendanceRepository
	conventions    config.Conventions
}

func NewAttendanceService(attendanceRepo attendance.AttendanceRepository, conventions config.Conventions) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		attendanceRepo: attendanceRepo,
		conventions:    conventions,
	}
}

func (s *AttendanceServiceImpl) loadRecords(ctx context.Context, filter attendance.HoursFilter) ([]attendance.Record, error) {
	from, to, err := filter.Validate()
	if err != nil {
		return nil, err
	}

	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	records, err := s.attendanceRepo.ListRecords(ctx, attendance.RecordFilter{
		DateFrom:       from,
		DateTo:         to,
		NurseID:        filter.NurseID,
		OrganizationID: op.ScopeOrganization(filter.OrganizationID),
	})
	if err != nil {
		slog.Error("attendance aggregation failed", "date_from", filter.DateFrom, "date_to", filter.DateTo, "error", err)
		return nil, fmt.Errorf("%w: %w", attendance.ErrAggregationFailed, err)
	}
	return records, nil
}

// AggregateHours implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) AggregateHours(ctx context.Context, filter attendance.HoursFilter) (attendance.HoursReportResponse, error) {
	report := attendance.HoursReportResponse{
		DateFrom: filter.DateFrom,
		DateTo:   filter.DateTo,
		Nurses:   []attendance.NurseHoursResponse{},
	}

	records, err := s.loadRecords(ctx, filter)
	if err != nil {
		return report, err
	}

	names := make(map[string]string)
	for _, row := range attendance.Aggregate(records) {
		names[row.NurseID] = row.Name

		missing := make([]attendance.MissingFieldResponse, 0, len(row.MissingFields))
		for _, m := range row.MissingFields {
			missing = append(missing, toMissingFieldResponse(m, row.Name))
		}
		report.MissingFieldCount += len(missing)

		report.Nurses = append(report.Nurses, attendance.NurseHoursResponse{
			ID:             row.NurseID,
			Name:           row.Name,
			RegNo:          row.RegistrationNo,
			Hours:          hours.FormatDisplay(row.TotalMinutes),
			DecimalHours:   hours.ToDecimal(row.TotalMinutes).Round(2),
			TotalMinutes:   row.TotalMinutes,
			Organization:   s.conventions.DisplayName(row.OrganizationCode, row.OrganizationName),
			OrganizationID: row.OrganizationID,
			RecordCount:    row.RecordCount,
			MissingFields:  missing,
		})
	}

	return report, nil
}

// ListMissingFields implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListMissingFields(ctx context.Context, filter attendance.HoursFilter) ([]attendance.MissingFieldResponse, error) {
	records, err := s.loadRecords(ctx, filter)
	if err != nil {
		return []attendance.MissingFieldResponse{}, err
	}

	result := []attendance.MissingFieldResponse{}
	for _, r := range records {
		_, defects := attendance.CheckRecord(r)
		for _, m := range defects {
			result = append(result, toMissingFieldResponse(m, r.NurseName))
		}
	}
	return result, nil
}

func toMissingFieldResponse(m attendance.MissingField, nurseName string) attendance.MissingFieldResponse {
	return attendance.MissingFieldResponse{
		NurseID:   m.NurseID,
		NurseName: nurseName,
		RecordID:  m.RecordID,
		Field:     m.Field,
		Date:      m.Date.Format("2006-01-02"),
		Reason:    m.Reason,
	}
}
