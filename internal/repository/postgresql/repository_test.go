package postgresql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/advance"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/salary"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/shift"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

var advanceColumnNames = []string{
	"id", "nurse_id", "organization_id", "transaction_date",
	"amount", "returned_amount", "transaction_type", "status",
	"return_type", "installment_amount", "payment_method", "receipt_path", "notes",
	"approved", "approved_by", "approved_at",
	"created_by", "updated_by", "created_at", "updated_at",
	"full_name", "registration_no",
}

func advanceRow(status advance.Status, amount, returned string) []interface{} {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	name := "Asha Menon"
	reg := "KL-1001"
	return []interface{}{
		"adv-1", "nurse-1", "org-1", now,
		decimal.RequireFromString(amount), decimal.RequireFromString(returned), "cash_advance", status,
		advance.ReturnTypeFull, nil, nil, nil, nil,
		status == advance.StatusApproved, nil, nil,
		nil, nil, now, now,
		&name, &reg,
	}
}

func TestWithTransaction_Commit(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := WithTransaction(context.Background(), mock, func(txCtx context.Context) error {
		assert.NotEqual(t, mock, GetQuerier(txCtx, mock), "querier inside the transaction must be the tx")
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := WithTransaction(context.Background(), mock, func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_NestedReusesOuter(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := WithTransaction(context.Background(), mock, func(outer context.Context) error {
		return WithTransaction(outer, mock, func(inner context.Context) error {
			assert.Equal(t, GetQuerier(outer, mock), GetQuerier(inner, mock))
			return nil
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSalaryPaymentRepository_CreateDuplicatePeriod(t *testing.T) {
	mock := newMockPool(t)
	repo := NewSalaryPaymentRepository(mock)

	mock.ExpectQuery(`INSERT INTO salary_payments AS sp`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "uq_salary_payments_nurse_period"})

	_, err := repo.Create(context.Background(), salary.Payment{NurseID: "nurse-1", OrganizationID: "org-1"})
	assert.ErrorIs(t, err, salary.ErrPaymentAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSalaryConfigRepository_InsertLosesActiveRace(t *testing.T) {
	mock := newMockPool(t)
	repo := NewSalaryConfigRepository(mock)
	actor := "user-1"

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE salary_configs`).
		WithArgs("nurse-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`INSERT INTO salary_configs`).
		WithArgs("nurse-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "uq_salary_configs_one_active"})
	mock.ExpectRollback()

	_, err := repo.Insert(context.Background(), salary.Config{
		NurseID:    "nurse-1",
		HourlyRate: decimal.NewFromInt(120),
		CreatedBy:  &actor,
	})
	assert.ErrorIs(t, err, salary.ErrConfigChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSalaryPaymentRepository_ApplyAdjustmentRejectedByGuard(t *testing.T) {
	mock := newMockPool(t)
	repo := NewSalaryPaymentRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE salary_payments AS sp`).
		WithArgs("pay-1", pgxmock.AnyArg(), pgxmock.AnyArg(), "-₹900 deduction: damaged kit").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	adj := salary.Adjustment{
		PaymentID: "pay-1",
		Kind:      salary.AdjustmentDeduction,
		Amount:    decimal.NewFromInt(900),
		Reason:    "damaged kit",
		Actor:     "user-1",
	}
	_, _, err := repo.ApplyAdjustment(context.Background(), adj, adj.NoteLine("₹"))
	assert.ErrorIs(t, err, salary.ErrPaymentStateChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSalaryPaymentRepository_TransitionRejectedByGuard(t *testing.T) {
	mock := newMockPool(t)
	repo := NewSalaryPaymentRepository(mock)

	mock.ExpectQuery(`UPDATE salary_payments AS sp`).
		WithArgs(
			"pay-1", "approved", pgxmock.AnyArg(), pgxmock.AnyArg(),
			"user-1", pgxmock.AnyArg(), pgxmock.AnyArg(), []string{"pending"},
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := repo.Transition(context.Background(), salary.StatusTransition{
		PaymentID: "pay-1",
		From:      []salary.PaymentStatus{salary.PaymentStatusPending},
		To:        salary.PaymentStatusApproved,
		Actor:     "user-1",
		At:        time.Now(),
	})
	assert.ErrorIs(t, err, salary.ErrPaymentStateChanged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepository_StartShiftRejectedByGuard(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAssignmentRepository(mock)

	mock.ExpectQuery(`UPDATE assignments`).
		WithArgs("asg-1", pgxmock.AnyArg(), 12.97, 77.59, pgxmock.AnyArg(), "user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	now := time.Now()
	_, err := repo.StartShift(context.Background(), "asg-1", now,
		shift.GeoPoint{Latitude: 12.97, Longitude: 77.59, CapturedAt: now}, "user-1")
	assert.ErrorIs(t, err, shift.ErrShiftTransitionRejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceRepository_DeleteCreatedAfter(t *testing.T) {
	notBefore := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		affected int64
		exists   bool
		wantErr  error
	}{
		{name: "inside window", affected: 1},
		{name: "outside window", affected: 0, exists: true, wantErr: advance.ErrDeleteWindowExpired},
		{name: "missing", affected: 0, exists: false, wantErr: advance.ErrAdvanceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			repo := NewAdvanceRepository(mock)

			mock.ExpectExec(`DELETE FROM advance_payments`).
				WithArgs("adv-1", notBefore).
				WillReturnResult(pgxmock.NewResult("DELETE", tt.affected))
			if tt.affected == 0 {
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs("adv-1").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tt.exists))
			}

			err := repo.DeleteCreatedAfter(context.Background(), "adv-1", notBefore)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdvanceRepository_RecordRepaymentExceedingBalance(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAdvanceRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE advance_payments AS ap`).
		WithArgs("adv-1", pgxmock.AnyArg(), "user-1").
		WillReturnRows(pgxmock.NewRows(advanceColumnNames))
	mock.ExpectQuery(`SELECT .* FROM advance_payments ap WHERE ap.id = \$1`).
		WithArgs("adv-1").
		WillReturnRows(pgxmock.NewRows(advanceColumnNames).
			AddRow(advanceRow(advance.StatusApproved, "5000", "4000")...))
	mock.ExpectRollback()

	_, _, err := repo.RecordRepayment(context.Background(), advance.Repayment{
		AdvanceID: "adv-1",
		Amount:    decimal.NewFromInt(2000),
		RepaidOn:  time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		CreatedBy: "user-1",
	})
	assert.ErrorIs(t, err, advance.ErrRepaymentExceedsBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceRepository_RecordRepaymentOnRejected(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAdvanceRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE advance_payments AS ap`).
		WithArgs("adv-1", pgxmock.AnyArg(), "user-1").
		WillReturnRows(pgxmock.NewRows(advanceColumnNames))
	mock.ExpectQuery(`SELECT .* FROM advance_payments ap WHERE ap.id = \$1`).
		WithArgs("adv-1").
		WillReturnRows(pgxmock.NewRows(advanceColumnNames).
			AddRow(advanceRow(advance.StatusRejected, "5000", "0")...))
	mock.ExpectRollback()

	_, _, err := repo.RecordRepayment(context.Background(), advance.Repayment{
		AdvanceID: "adv-1",
		Amount:    decimal.NewFromInt(100),
		CreatedBy: "user-1",
	})
	assert.ErrorIs(t, err, advance.ErrAdvanceClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceRepository_UpdateAmountBelowReturned(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAdvanceRepository(mock)

	mock.ExpectQuery(`UPDATE advance_payments AS ap`).
		WithArgs(
			"adv-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: checkViolationCode, ConstraintName: "chk_advance_returned_le_amount"})

	_, err := repo.Update(context.Background(), advance.Advance{ID: "adv-1", Status: advance.StatusApproved, ReturnType: advance.ReturnTypeFull}, advance.StatusApproved)
	assert.ErrorIs(t, err, advance.ErrAmountBelowReturned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceRepository_UpdateRejectedByGuard(t *testing.T) {
	tests := []struct {
		name    string
		exists  bool
		wantErr error
	}{
		{name: "changed since read", exists: true, wantErr: advance.ErrAdvanceChanged},
		{name: "missing", exists: false, wantErr: advance.ErrAdvanceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			repo := NewAdvanceRepository(mock)

			returned := decimal.NewFromInt(2000)
			mock.ExpectQuery(`UPDATE advance_payments AS ap .* WHERE ap.id = \$1 AND ap.status = \$12 AND ap.returned_amount = \$13`).
				WithArgs(
					"adv-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "APPROVED",
					pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
					"APPROVED", returned,
				).
				WillReturnRows(pgxmock.NewRows(advanceColumnNames))
			mock.ExpectQuery(`SELECT EXISTS`).
				WithArgs("adv-1").
				WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tt.exists))

			_, err := repo.Update(context.Background(), advance.Advance{
				ID:             "adv-1",
				Amount:         decimal.NewFromInt(6000),
				ReturnedAmount: returned,
				Status:         advance.StatusApproved,
				ReturnType:     advance.ReturnTypeFull,
			}, advance.StatusApproved)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdvanceRepository_WithdrawApprovalKeepsRepaidEntryOpen(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAdvanceRepository(mock)

	at := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`WHEN \$2 THEN 'APPROVED'\s+WHEN ap.returned_amount > 0 THEN 'PENDING'\s+ELSE 'REJECTED'`).
		WithArgs("adv-1", false, "user-1", at).
		WillReturnRows(pgxmock.NewRows(advanceColumnNames).
			AddRow(advanceRow(advance.StatusPending, "5000", "2000")...))

	a, err := repo.SetApproval(context.Background(), "adv-1", false, "user-1", at)
	require.NoError(t, err)
	assert.Equal(t, advance.StatusPending, a.Status)
	assert.True(t, a.Status.AcceptsRepayment())
	assert.Equal(t, "3000", a.Remaining().String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceRepository_TotalsAppliesFilters(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAdvanceRepository(mock)

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\),\s+COALESCE\(SUM\(ap.amount\) FILTER`).
		WithArgs("2024-03-01", "nurse-1").
		WillReturnRows(pgxmock.NewRows([]string{"count", "given", "returned", "approved_given"}).
			AddRow(int64(1), decimal.NewFromInt(5000), decimal.NewFromInt(2000), decimal.NewFromInt(5000)))

	from := "2024-03-01"
	nurseID := "nurse-1"
	totals, err := repo.Totals(context.Background(), advance.AdvanceFilter{DateFrom: &from, NurseID: &nurseID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), totals.Count)
	assert.Equal(t, "5000", totals.Given.String())
	assert.Equal(t, "2000", totals.Returned.String())
	assert.Equal(t, "3000", totals.Outstanding().String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
