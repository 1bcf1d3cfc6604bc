package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/config"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/validator"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func operatorContext(t *testing.T, op jwt.Operator) context.Context {
	t.Helper()
	ja := jwtauth.New("HS256", []byte("test-secret"), nil)
	ctx, err := jwt.ContextWithOperator(context.Background(), ja, op)
	require.NoError(t, err)
	return ctx
}

func strPtr(s string) *string { return &s }

type fakeAttendanceRepo struct {
	records    []attendance.Record
	err        error
	lastFilter attendance.RecordFilter
}

func (f *fakeAttendanceRepo) ListRecords(ctx context.Context, filter attendance.RecordFilter) ([]attendance.Record, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	var out []attendance.Record
	for _, r := range f.records {
		if filter.OrganizationID != nil && r.OrganizationID != *filter.OrganizationID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func record(id, nurseID, name, day string, total *string) attendance.Record {
	d, _ := time.Parse("2006-01-02", day)
	return attendance.Record{
		ID:               id,
		NurseID:          nurseID,
		NurseName:        name,
		RegistrationNo:   "REG-" + nurseID,
		OrganizationID:   "org-1",
		OrganizationCode: "ARK",
		OrganizationName: "Arkcare",
		Date:             d,
		CheckIn:          strPtr("08:00"),
		CheckOut:         strPtr("16:00"),
		TotalHours:       total,
		ShiftStartTime:   strPtr("08:00:00"),
		ShiftEndTime:     strPtr("16:00:00"),
	}
}

func conventions() config.Conventions {
	c := config.DefaultConventions()
	c.Organizations["ARK"] = config.OrganizationPolicy{DisplayName: "Arkcare Nursing"}
	return c
}

var admin = jwt.Operator{UserID: "u-admin", Role: jwt.RoleAdmin}

func marchFilter() attendance.HoursFilter {
	return attendance.HoursFilter{DateFrom: "2024-03-01", DateTo: "2024-03-31"}
}

func TestAggregateHours(t *testing.T) {
	repo := &fakeAttendanceRepo{records: []attendance.Record{
		record("r1", "n-2", "Bina Rao", "2024-03-01", strPtr("7:45")),
		record("r2", "n-2", "Bina Rao", "2024-03-02", strPtr("8:15")),
		record("r3", "n-1", "Asha Menon", "2024-03-01", strPtr("bad")),
		record("r4", "n-1", "Asha Menon", "2024-03-02", nil),
		record("r5", "n-1", "Asha Menon", "2024-03-03", strPtr("0:30")),
	}}
	svc := NewAttendanceService(repo, conventions())

	report, err := svc.AggregateHours(operatorContext(t, admin), marchFilter())
	require.NoError(t, err)
	require.Len(t, report.Nurses, 2)

	asha := report.Nurses[0]
	assert.Equal(t, "Asha Menon", asha.Name)
	assert.Equal(t, int64(30), asha.TotalMinutes)
	assert.Equal(t, "0hrs:30min", asha.Hours)
	assert.Equal(t, "0.5", asha.DecimalHours.String())
	assert.Equal(t, 3, asha.RecordCount)
	require.Len(t, asha.MissingFields, 2)
	assert.Equal(t, attendance.ReasonMalformed, asha.MissingFields[0].Reason)
	assert.Equal(t, attendance.ReasonMissing, asha.MissingFields[1].Reason)
	assert.Equal(t, "2024-03-02", asha.MissingFields[1].Date)

	bina := report.Nurses[1]
	assert.Equal(t, int64(960), bina.TotalMinutes)
	assert.Equal(t, "16hrs:00min", bina.Hours)
	assert.Equal(t, "16", bina.DecimalHours.String())
	assert.Equal(t, "Arkcare Nursing", bina.Organization)
	assert.Empty(t, bina.MissingFields)
	assert.NotNil(t, bina.MissingFields)

	assert.Equal(t, 2, report.MissingFieldCount)
}

func TestAggregateHours_EmptyRange(t *testing.T) {
	svc := NewAttendanceService(&fakeAttendanceRepo{}, conventions())

	report, err := svc.AggregateHours(operatorContext(t, admin), marchFilter())
	require.NoError(t, err)
	assert.NotNil(t, report.Nurses)
	assert.Empty(t, report.Nurses)
}

func TestAggregateHours_StoreFailure(t *testing.T) {
	repo := &fakeAttendanceRepo{
		records: []attendance.Record{record("r1", "n-1", "Asha Menon", "2024-03-01", strPtr("8:00"))},
		err:     errors.New("connection refused"),
	}
	svc := NewAttendanceService(repo, conventions())

	report, err := svc.AggregateHours(operatorContext(t, admin), marchFilter())
	assert.ErrorIs(t, err, attendance.ErrAggregationFailed)
	assert.Empty(t, report.Nurses)
	assert.NotNil(t, report.Nurses)
}

func TestAggregateHours_InvalidRange(t *testing.T) {
	repo := &fakeAttendanceRepo{}
	svc := NewAttendanceService(repo, conventions())

	_, err := svc.AggregateHours(operatorContext(t, admin), attendance.HoursFilter{DateFrom: "2024-03-31", DateTo: "2024-03-01"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "date_to")
}

func TestAggregateHours_ScopesToOperatorOrganization(t *testing.T) {
	repo := &fakeAttendanceRepo{}
	svc := NewAttendanceService(repo, conventions())
	op := jwt.Operator{UserID: "u-1", OrganizationID: "org-9", Role: jwt.RoleCoordinator}

	filter := marchFilter()
	filter.OrganizationID = strPtr("org-1")
	_, err := svc.AggregateHours(operatorContext(t, op), filter)
	require.NoError(t, err)

	require.NotNil(t, repo.lastFilter.OrganizationID)
	assert.Equal(t, "org-9", *repo.lastFilter.OrganizationID)
}

func TestListMissingFields(t *testing.T) {
	r := record("r1", "n-1", "Asha Menon", "2024-03-04", strPtr("8:00"))
	r.CheckOut = nil
	r.ShiftStartTime = strPtr("  ")
	svc := NewAttendanceService(&fakeAttendanceRepo{records: []attendance.Record{r}}, conventions())

	missing, err := svc.ListMissingFields(operatorContext(t, admin), marchFilter())
	require.NoError(t, err)
	require.Len(t, missing, 2)
	assert.Equal(t, attendance.FieldCheckOut, missing[0].Field)
	assert.Equal(t, attendance.FieldShiftStartTime, missing[1].Field)
	assert.Equal(t, "Asha Menon", missing[0].NurseName)
}
