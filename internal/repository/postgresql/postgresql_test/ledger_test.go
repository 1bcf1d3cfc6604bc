package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/advance"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/salary"
	"github.com/cmlabs-hris/homecare-payroll/internal/repository/postgresql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceRepository_Integration(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	orgID, nurseID := setup.CreateNurse(t, ctx, "BLR", "Asha")

	repo := postgresql.NewAdvanceRepository(setup.DB)
	actor := "user-1"

	created, err := repo.Create(ctx, advance.Advance{
		NurseID:         nurseID,
		OrganizationID:  orgID,
		TransactionDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount:          decimal.NewFromInt(5000),
		ReturnedAmount:  decimal.Zero,
		TransactionType: "cash_advance",
		Status:          advance.StatusPending,
		ReturnType:      advance.ReturnTypeFull,
		CreatedBy:       &actor,
	})
	require.NoError(t, err)
	assert.Equal(t, "Asha", *created.NurseName)

	t.Run("repayment reduces remaining", func(t *testing.T) {
		updated, rp, err := repo.RecordRepayment(ctx, advance.Repayment{
			AdvanceID: created.ID,
			Amount:    decimal.NewFromInt(2000),
			RepaidOn:  time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			CreatedBy: actor,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, rp.ID)
		assert.Equal(t, "3000", updated.Remaining().String())
		assert.Equal(t, advance.StatusPending, updated.Status)
	})

	t.Run("repayment above balance is rejected", func(t *testing.T) {
		_, _, err := repo.RecordRepayment(ctx, advance.Repayment{
			AdvanceID: created.ID,
			Amount:    decimal.NewFromInt(3001),
			RepaidOn:  time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
			CreatedBy: actor,
		})
		assert.ErrorIs(t, err, advance.ErrRepaymentExceedsBalance)
	})

	t.Run("amount below returned is rejected", func(t *testing.T) {
		current, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		current.Amount = decimal.NewFromInt(1000)
		_, err = repo.Update(ctx, current, current.Status)
		assert.ErrorIs(t, err, advance.ErrAmountBelowReturned)
	})

	t.Run("update from a stale read is rejected", func(t *testing.T) {
		stale, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		_, _, err = repo.RecordRepayment(ctx, advance.Repayment{
			AdvanceID: created.ID,
			Amount:    decimal.NewFromInt(500),
			RepaidOn:  time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
			CreatedBy: actor,
		})
		require.NoError(t, err)

		notes := "stale edit"
		stale.Notes = &notes
		_, err = repo.Update(ctx, stale, stale.Status)
		assert.ErrorIs(t, err, advance.ErrAdvanceChanged)
	})

	t.Run("totals", func(t *testing.T) {
		totals, err := repo.Totals(ctx, advance.AdvanceFilter{NurseID: &nurseID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), totals.Count)
		assert.Equal(t, "5000", totals.Given.String())
		assert.Equal(t, "2500", totals.Returned.String())
	})

	t.Run("delete outside window", func(t *testing.T) {
		err := repo.DeleteCreatedAfter(ctx, created.ID, time.Now().Add(time.Hour))
		assert.ErrorIs(t, err, advance.ErrDeleteWindowExpired)
	})
}

func TestSalaryPaymentRepository_Integration(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	orgID, nurseID := setup.CreateNurse(t, ctx, "BLR", "Meera")

	repo := postgresql.NewSalaryPaymentRepository(setup.DB)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	figures := salary.ComputeFigures(salary.FigureInputs{
		BasePay:     decimal.Zero,
		HourlyRate:  decimal.NewFromInt(100),
		HoursWorked: decimal.NewFromInt(16),
		Allowance:   decimal.Zero,
		Bonus:       decimal.Zero,
		Deductions:  decimal.Zero,
	})
	p := salary.Payment{NurseID: nurseID, OrganizationID: orgID, PayPeriodStart: start, PayPeriodEnd: end}
	p.ApplyFigures(figures)

	created, err := repo.Create(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "1600", created.NetSalary.String())

	_, err = repo.Create(ctx, p)
	assert.ErrorIs(t, err, salary.ErrPaymentAlreadyExists)

	adj := salary.Adjustment{PaymentID: created.ID, Kind: salary.AdjustmentBonus, Amount: decimal.NewFromInt(500), Reason: "festival", Actor: "user-1"}
	updated, recorded, err := repo.ApplyAdjustment(ctx, adj, adj.NoteLine("₹"))
	require.NoError(t, err)
	assert.Equal(t, "2100", updated.NetSalary.String())
	assert.Equal(t, "+₹500 bonus: festival", *updated.Notes)
	assert.Equal(t, salary.AdjustmentBonus, recorded.Kind)

	_, err = repo.Transition(ctx, salary.StatusTransition{
		PaymentID: created.ID,
		From:      []salary.PaymentStatus{salary.PaymentStatusPending},
		To:        salary.PaymentStatusPaid,
		Actor:     "user-1",
		At:        time.Now(),
	})
	require.NoError(t, err)

	_, _, err = repo.ApplyAdjustment(ctx, adj, adj.NoteLine("₹"))
	assert.ErrorIs(t, err, salary.ErrPaymentStateChanged)

	adjustments, err := repo.ListAdjustments(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, adjustments, 1)
}
