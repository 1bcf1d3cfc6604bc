package advance

import (
	"mime/multipart"
	"testing"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve validator.ValidationErrors
	require.ErrorAs(t, err, &ve)
	return ve.ToMap()
}

func TestCreateAdvanceRequestToEntity(t *testing.T) {
	req := CreateAdvanceRequest{
		NurseID:           "nurse-1",
		TransactionDate:   "2024-03-05",
		Amount:            decimal.NewFromInt(5000),
		TransactionType:   "salary_advance",
		ReturnType:        "installments",
		InstallmentAmount: d("1000"),
	}
	a, err := req.ToEntity()
	require.NoError(t, err)
	assert.Equal(t, StatusPending, a.Status)
	assert.True(t, a.ReturnedAmount.IsZero())
	assert.Equal(t, "5000", a.Remaining().String())
}

func TestCreateAdvanceRequestInstallmentRules(t *testing.T) {
	base := CreateAdvanceRequest{
		NurseID:         "nurse-1",
		TransactionDate: "2024-03-05",
		Amount:          decimal.NewFromInt(5000),
		TransactionType: "salary_advance",
		ReturnType:      "installments",
	}

	_, err := base.ToEntity()
	assert.Equal(t, "is required for installments", fieldErrors(t, err)["installment_amount"])

	base.InstallmentAmount = d("0")
	_, err = base.ToEntity()
	assert.Equal(t, "must be greater than 0", fieldErrors(t, err)["installment_amount"])

	base.InstallmentAmount = d("6000")
	_, err = base.ToEntity()
	assert.Equal(t, "cannot exceed the advance amount", fieldErrors(t, err)["installment_amount"])
}

func TestCreateAdvanceRequestRejectsBadInput(t *testing.T) {
	method := "crypto"
	req := CreateAdvanceRequest{
		TransactionDate: "05/03/2024",
		Amount:          decimal.NewFromInt(-1),
		ReturnType:      "weekly",
		PaymentMethod:   &method,
		ReceiptHeader:   &multipart.FileHeader{Filename: "receipt.exe", Size: 10},
	}
	_, err := req.ToEntity()
	errs := fieldErrors(t, err)
	assert.Contains(t, errs, "nurse_id")
	assert.Equal(t, "must be a date in YYYY-MM-DD format", errs["transaction_date"])
	assert.Contains(t, errs, "amount")
	assert.Contains(t, errs, "transaction_type")
	assert.Contains(t, errs, "return_type")
	assert.Contains(t, errs, "payment_method")
	assert.Contains(t, errs, "receipt")
}

func TestUpdateMergeIsPartial(t *testing.T) {
	notes := "original"
	current := Advance{
		ID:              "adv-1",
		NurseID:         "nurse-1",
		TransactionDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Amount:          decimal.NewFromInt(5000),
		ReturnedAmount:  decimal.NewFromInt(2000),
		TransactionType: "salary_advance",
		Status:          StatusApproved,
		ReturnType:      ReturnTypeFull,
		Notes:           &notes,
	}

	newNotes := "updated"
	req := UpdateAdvanceRequest{ID: "adv-1", Notes: &newNotes}
	merged, err := req.Merge(current)
	require.NoError(t, err)
	assert.Equal(t, "updated", *merged.Notes)
	assert.True(t, merged.Amount.Equal(current.Amount))
	assert.Equal(t, current.TransactionDate, merged.TransactionDate)

	req = UpdateAdvanceRequest{ID: "adv-1", Amount: d("1500")}
	_, err = req.Merge(current)
	assert.Equal(t, "cannot be less than the amount already returned", fieldErrors(t, err)["amount"])

	installments := "installments"
	req = UpdateAdvanceRequest{ID: "adv-1", ReturnType: &installments}
	_, err = req.Merge(current)
	assert.Contains(t, fieldErrors(t, err), "installment_amount")

	completed := "COMPLETED"
	req = UpdateAdvanceRequest{ID: "adv-1", Status: &completed}
	_, err = req.Merge(current)
	assert.Contains(t, fieldErrors(t, err), "status")

	rejected := "REJECTED"
	req = UpdateAdvanceRequest{ID: "adv-1", Status: &rejected}
	_, err = req.Merge(current)
	assert.Equal(t, "cannot be REJECTED once repayments are recorded", fieldErrors(t, err)["status"])
}

func TestUpdateMergeSettlesStatus(t *testing.T) {
	tests := []struct {
		name     string
		current  Advance
		req      UpdateAdvanceRequest
		expected Status
	}{
		{
			name:     "raised amount reopens approved entry",
			current:  Advance{Amount: decimal.NewFromInt(5000), ReturnedAmount: decimal.NewFromInt(5000), Status: StatusCompleted, Approved: true},
			req:      UpdateAdvanceRequest{Amount: d("6000")},
			expected: StatusApproved,
		},
		{
			name:     "raised amount reopens unapproved entry",
			current:  Advance{Amount: decimal.NewFromInt(5000), ReturnedAmount: decimal.NewFromInt(5000), Status: StatusCompleted},
			req:      UpdateAdvanceRequest{Amount: d("6000")},
			expected: StatusPending,
		},
		{
			name:     "amount lowered to returned completes",
			current:  Advance{Amount: decimal.NewFromInt(5000), ReturnedAmount: decimal.NewFromInt(2000), Status: StatusApproved, Approved: true},
			req:      UpdateAdvanceRequest{Amount: d("2000")},
			expected: StatusCompleted,
		},
		{
			name:     "pending entry lowered to returned completes",
			current:  Advance{Amount: decimal.NewFromInt(5000), ReturnedAmount: decimal.NewFromInt(2000), Status: StatusPending},
			req:      UpdateAdvanceRequest{Amount: d("2000")},
			expected: StatusCompleted,
		},
		{
			name:     "open balance keeps status",
			current:  Advance{Amount: decimal.NewFromInt(5000), ReturnedAmount: decimal.NewFromInt(2000), Status: StatusPending},
			req:      UpdateAdvanceRequest{Amount: d("4000")},
			expected: StatusPending,
		},
		{
			name:     "rejected stays rejected",
			current:  Advance{Amount: decimal.NewFromInt(5000), Status: StatusRejected},
			req:      UpdateAdvanceRequest{Amount: d("3000")},
			expected: StatusRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.current.ID = "adv-1"
			tt.current.NurseID = "nurse-1"
			tt.current.TransactionDate = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
			tt.current.TransactionType = "salary_advance"
			tt.current.ReturnType = ReturnTypeFull
			tt.req.ID = "adv-1"

			merged, err := tt.req.Merge(tt.current)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, merged.Status)
		})
	}
}

func TestDeletableAt(t *testing.T) {
	created := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	a := Advance{CreatedAt: created}
	assert.True(t, a.DeletableAt(created.Add(23*time.Hour), 24*time.Hour))
	assert.True(t, a.DeletableAt(created.Add(24*time.Hour), 24*time.Hour))
	assert.False(t, a.DeletableAt(created.Add(25*time.Hour), 24*time.Hour))
}

func TestTotalsOutstanding(t *testing.T) {
	totals := Totals{Given: decimal.NewFromInt(5000), Returned: decimal.NewFromInt(2000)}
	assert.Equal(t, "3000", totals.Outstanding().String())
	assert.Equal(t, "0", Totals{}.Outstanding().String())
}

func TestRepaymentRequestValidate(t *testing.T) {
	req := RepaymentRequest{Amount: decimal.Zero, RepaidOn: "nope"}
	_, err := req.Validate()
	errs := fieldErrors(t, err)
	assert.Contains(t, errs, "amount")
	assert.Contains(t, errs, "repaid_on")

	req = RepaymentRequest{Amount: decimal.NewFromInt(2000), RepaidOn: "2024-03-10"}
	date, err := req.Validate()
	require.NoError(t, err)
	assert.Equal(t, 10, date.Day())
}
