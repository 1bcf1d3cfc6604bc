package salary

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/nurse"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/salary"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/shift"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/daybook"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)

func operatorContext(t *testing.T, op jwt.Operator) context.Context {
	t.Helper()
	ja := jwtauth.New("HS256", []byte("test-secret"), nil)
	ctx, err := jwt.ContextWithOperator(context.Background(), ja, op)
	require.NoError(t, err)
	return ctx
}

func strPtr(s string) *string { return &s }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// ---- nurses ----

type fakeNurseRepo struct {
	nurses map[string]nurse.Nurse
}

func (f *fakeNurseRepo) GetByID(ctx context.Context, id string) (nurse.Nurse, error) {
	n, ok := f.nurses[id]
	if !ok {
		return nurse.Nurse{}, nurse.ErrNurseNotFound
	}
	return n, nil
}

// ---- attendance ----

type fakeAttendanceRepo struct {
	records []attendance.Record
	err     error
}

func (f *fakeAttendanceRepo) ListRecords(ctx context.Context, filter attendance.RecordFilter) ([]attendance.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []attendance.Record
	for _, r := range f.records {
		if filter.NurseID != nil && r.NurseID != *filter.NurseID {
			continue
		}
		if r.Date.Before(filter.DateFrom) || r.Date.After(filter.DateTo) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeAttendanceRepo) add(nurseID, day, total string) {
	f.records = append(f.records, attendance.Record{
		ID:             fmt.Sprintf("rec-%d", len(f.records)+1),
		NurseID:        nurseID,
		NurseName:      "Asha Menon",
		Date:           date(day),
		CheckIn:        strPtr("08:00"),
		CheckOut:       strPtr("16:00"),
		TotalHours:     strPtr(total),
		ShiftStartTime: strPtr("08:00:00"),
		ShiftEndTime:   strPtr("16:00:00"),
	})
}

// ---- assignments ----

type fakeAssignmentRepo struct {
	completed []shift.Assignment
}

func (f *fakeAssignmentRepo) GetByID(ctx context.Context, id string) (shift.Assignment, error) {
	return shift.Assignment{}, shift.ErrAssignmentNotFound
}

func (f *fakeAssignmentRepo) StartShift(ctx context.Context, id string, startedAt time.Time, loc shift.GeoPoint, actor string) (shift.Assignment, error) {
	return shift.Assignment{}, shift.ErrShiftTransitionRejected
}

func (f *fakeAssignmentRepo) EndShift(ctx context.Context, upd shift.EndShiftUpdate) (shift.Assignment, error) {
	return shift.Assignment{}, shift.ErrShiftTransitionRejected
}

func (f *fakeAssignmentRepo) UpdateAttendanceMode(ctx context.Context, id string, mode shift.AttendanceMode, actor string) (shift.Assignment, error) {
	return shift.Assignment{}, shift.ErrShiftTransitionRejected
}

func (f *fakeAssignmentRepo) ListCompleted(ctx context.Context, nurseID string, from, to time.Time) ([]shift.Assignment, error) {
	var out []shift.Assignment
	for _, a := range f.completed {
		if a.NurseID == nurseID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ---- salary configs ----

type fakeConfigRepo struct {
	mu      sync.Mutex
	configs []salary.Config
	inserts int
	// racer, when set, is activated by the next Insert in place of the caller's
	// config, as if a concurrent request committed first.
	racer *salary.Config
}

func (f *fakeConfigRepo) GetActive(ctx context.Context, nurseID string) (salary.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.configs) - 1; i >= 0; i-- {
		if c := f.configs[i]; c.NurseID == nurseID && c.IsActive {
			return c, nil
		}
	}
	return salary.Config{}, salary.ErrConfigNotFound
}

func (f *fakeConfigRepo) GetByID(ctx context.Context, id string, nurseID string) (salary.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.configs {
		if c.ID == id && c.NurseID == nurseID {
			return c, nil
		}
	}
	return salary.Config{}, salary.ErrConfigNotFound
}

func (f *fakeConfigRepo) Insert(ctx context.Context, cfg salary.Config) (salary.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.racer != nil {
		won := *f.racer
		f.racer = nil
		for i := range f.configs {
			if f.configs[i].NurseID == won.NurseID {
				f.configs[i].IsActive = false
			}
		}
		won.IsActive = true
		f.configs = append(f.configs, won)
		return salary.Config{}, salary.ErrConfigChanged
	}
	for i := range f.configs {
		if f.configs[i].NurseID == cfg.NurseID {
			f.configs[i].IsActive = false
		}
	}
	f.inserts++
	cfg.ID = fmt.Sprintf("cfg-%d", f.inserts)
	cfg.IsActive = true
	cfg.UpdatedBy = cfg.CreatedBy
	cfg.CreatedAt = fixedNow
	cfg.UpdatedAt = fixedNow
	f.configs = append(f.configs, cfg)
	return cfg, nil
}

func (f *fakeConfigRepo) UpdateRate(ctx context.Context, id string, nurseID string, rate decimal.Decimal, actor string) (salary.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.configs {
		if f.configs[i].ID == id && f.configs[i].NurseID == nurseID {
			f.configs[i].HourlyRate = rate
			f.configs[i].UpdatedBy = &actor
			return f.configs[i], nil
		}
	}
	return salary.Config{}, salary.ErrConfigNotFound
}

func (f *fakeConfigRepo) ListByNurse(ctx context.Context, nurseID string) ([]salary.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []salary.Config
	for i := len(f.configs) - 1; i >= 0; i-- {
		if f.configs[i].NurseID == nurseID {
			out = append(out, f.configs[i])
		}
	}
	return out, nil
}

func (f *fakeConfigRepo) activeCount(nurseID string) int {
	n := 0
	for _, c := range f.configs {
		if c.NurseID == nurseID && c.IsActive {
			n++
		}
	}
	return n
}

// ---- salary payments ----

type fakePaymentRepo struct {
	mu          sync.Mutex
	payments    map[string]salary.Payment
	adjustments []salary.Adjustment
	seq         int
	createErr   error
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[string]salary.Payment{}}
}

func (f *fakePaymentRepo) Create(ctx context.Context, p salary.Payment) (salary.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return salary.Payment{}, f.createErr
	}
	for _, existing := range f.payments {
		if existing.NurseID == p.NurseID && existing.PayPeriodStart.Equal(p.PayPeriodStart) && existing.PayPeriodEnd.Equal(p.PayPeriodEnd) {
			return salary.Payment{}, salary.ErrPaymentAlreadyExists
		}
	}
	f.seq++
	p.ID = fmt.Sprintf("pay-%d", f.seq)
	p.Status = salary.PaymentStatusPending
	p.CreatedAt = fixedNow
	p.UpdatedAt = fixedNow
	f.payments[p.ID] = p
	return p, nil
}

func (f *fakePaymentRepo) GetByID(ctx context.Context, id string) (salary.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return salary.Payment{}, salary.ErrPaymentNotFound
	}
	return p, nil
}

func (f *fakePaymentRepo) GetByNursePeriod(ctx context.Context, nurseID string, start, end time.Time) (salary.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.NurseID == nurseID && p.PayPeriodStart.Equal(start) && p.PayPeriodEnd.Equal(end) {
			return p, nil
		}
	}
	return salary.Payment{}, salary.ErrPaymentNotFound
}

func (f *fakePaymentRepo) List(ctx context.Context, filter salary.PaymentFilter) ([]salary.Payment, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []salary.Payment
	for _, p := range f.payments {
		if filter.OrganizationID != nil && p.OrganizationID != *filter.OrganizationID {
			continue
		}
		if filter.Status != nil && string(p.Status) != *filter.Status {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (f *fakePaymentRepo) UpdateFigures(ctx context.Context, p salary.Payment) (salary.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.payments[p.ID]
	if !ok || !cur.Status.Recalculable() {
		return salary.Payment{}, salary.ErrPaymentStateChanged
	}
	p.Status = salary.PaymentStatusPending
	p.CreatedAt = cur.CreatedAt
	f.payments[p.ID] = p
	return p, nil
}

func (f *fakePaymentRepo) Transition(ctx context.Context, t salary.StatusTransition) (salary.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.payments[t.PaymentID]
	if !ok || !allowedFrom(cur.Status, t.From) {
		return salary.Payment{}, salary.ErrPaymentStateChanged
	}
	cur.Status = t.To
	if t.PaymentMethod != nil {
		cur.PaymentMethod = t.PaymentMethod
	}
	if t.TransactionReference != nil {
		cur.TransactionReference = t.TransactionReference
	}
	if t.To == salary.PaymentStatusApproved || t.To == salary.PaymentStatusPaid {
		at := t.At
		cur.ApprovedBy = &t.Actor
		cur.ApprovedAt = &at
		if t.To == salary.PaymentStatusPaid {
			cur.PaidAt = &at
		}
	}
	if t.NoteLine != nil {
		n := appendNote(cur.Notes, *t.NoteLine)
		cur.Notes = &n
	}
	f.payments[cur.ID] = cur
	return cur, nil
}

// appendNote mirrors the notes concatenation the payment queries do in SQL.
func appendNote(existing *string, line string) string {
	if existing == nil || *existing == "" {
		return line
	}
	return *existing + "\n" + line
}

func (f *fakePaymentRepo) ApplyAdjustment(ctx context.Context, adj salary.Adjustment, noteLine string) (salary.Payment, salary.Adjustment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.payments[adj.PaymentID]
	if !ok || !cur.Status.Adjustable() {
		return salary.Payment{}, salary.Adjustment{}, salary.ErrPaymentStateChanged
	}

	if adj.Kind == salary.AdjustmentBonus {
		cur.Bonus = cur.Bonus.Add(adj.Amount)
		cur.GrossSalary = cur.GrossSalary.Add(adj.Amount)
		cur.NetSalary = cur.NetSalary.Add(adj.Amount)
	} else {
		if cur.NetSalary.Sub(adj.Amount).IsNegative() {
			return salary.Payment{}, salary.Adjustment{}, salary.ErrPaymentStateChanged
		}
		cur.Deductions = cur.Deductions.Add(adj.Amount)
		cur.NetSalary = cur.NetSalary.Sub(adj.Amount)
	}
	n := appendNote(cur.Notes, noteLine)
	cur.Notes = &n
	f.payments[cur.ID] = cur

	adj.ID = fmt.Sprintf("adj-%d", len(f.adjustments)+1)
	adj.CreatedAt = fixedNow
	f.adjustments = append(f.adjustments, adj)
	return cur, adj, nil
}

func (f *fakePaymentRepo) ListAdjustments(ctx context.Context, paymentID string) ([]salary.Adjustment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []salary.Adjustment
	for _, a := range f.adjustments {
		if a.PaymentID == paymentID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ---- daybook ----

type recordingNotifier struct {
	mu      sync.Mutex
	entries []daybook.Entry
}

func (r *recordingNotifier) Notify(ctx context.Context, entry daybook.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}
