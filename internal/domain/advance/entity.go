package advance

import (
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// AcceptsRepayment reports whether money can still be returned against the advance.
func (s Status) AcceptsRepayment() bool {
	return s == StatusPending || s == StatusApproved
}

type ReturnType string

const (
	ReturnTypeFull         ReturnType = "full"
	ReturnTypeInstallments ReturnType = "installments"
)

// Advance is one ledger entry of cash given to a nurse ahead of salary.
type Advance struct {
	ID                string
	NurseID           string
	OrganizationID    string
	TransactionDate   time.Time
	Amount            decimal.Decimal
	ReturnedAmount    decimal.Decimal
	TransactionType   string
	Status            Status
	ReturnType        ReturnType
	InstallmentAmount *decimal.Decimal
	PaymentMethod     *string
	ReceiptPath       *string
	Notes             *string
	Approved          bool
	ApprovedBy        *string
	ApprovedAt        *time.Time
	CreatedBy         *string
	UpdatedBy         *string
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// Joined fields
	NurseName      *string
	RegistrationNo *string
}

// Remaining is amount given minus amount returned.
func (a Advance) Remaining() decimal.Decimal {
	return a.Amount.Sub(a.ReturnedAmount)
}

// SettledStatus is the status the entry should carry for its balance. A zero
// balance is COMPLETED; a COMPLETED entry that owes money again reopens as
// APPROVED or PENDING depending on the approval flag. REJECTED is kept.
func (a Advance) SettledStatus() Status {
	if a.Status == StatusRejected {
		return a.Status
	}
	if a.Remaining().IsZero() {
		return StatusCompleted
	}
	if a.Status == StatusCompleted {
		if a.Approved {
			return StatusApproved
		}
		return StatusPending
	}
	return a.Status
}

// DeletableAt reports whether the entry is still inside the deletion window at now.
func (a Advance) DeletableAt(now time.Time, window time.Duration) bool {
	return now.Sub(a.CreatedAt) <= window
}

// Validate checks the ledger invariants of a complete entry. It runs on create and
// again after a partial update has been merged.
func (a Advance) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(a.NurseID) {
		errs.Add("nurse_id", "is required")
	}
	if a.TransactionDate.IsZero() {
		errs.Add("transaction_date", "is required")
	}
	if !validator.IsPositiveAmount(a.Amount) {
		errs.Add("amount", "must be greater than 0")
	} else if !a.Amount.Equal(a.Amount.Round(2)) {
		errs.Add("amount", "must have at most 2 decimal places")
	}
	if a.Amount.LessThan(a.ReturnedAmount) {
		errs.Add("amount", "cannot be less than the amount already returned")
	}
	if validator.IsEmpty(a.TransactionType) {
		errs.Add("transaction_type", "is required")
	}
	if !a.Status.IsValid() {
		errs.Add("status", "must be one of: PENDING APPROVED REJECTED COMPLETED")
	}

	switch a.ReturnType {
	case ReturnTypeFull:
	case ReturnTypeInstallments:
		if a.InstallmentAmount == nil {
			errs.Add("installment_amount", "is required for installments")
		} else if !validator.IsPositiveAmount(*a.InstallmentAmount) {
			errs.Add("installment_amount", "must be greater than 0")
		} else if a.InstallmentAmount.GreaterThan(a.Amount) {
			errs.Add("installment_amount", "cannot exceed the advance amount")
		}
	default:
		errs.Add("return_type", "must be one of: full installments")
	}

	if a.PaymentMethod != nil && !validator.IsInSlice(*a.PaymentMethod, PaymentMethods) {
		errs.Add("payment_method", "must be one of: cash bank_transfer upi cheque")
	}
	return errs.Err()
}

var PaymentMethods = []string{"cash", "bank_transfer", "upi", "cheque"}

// Repayment is money returned against an advance.
type Repayment struct {
	ID        string
	AdvanceID string
	Amount    decimal.Decimal
	RepaidOn  time.Time
	Notes     *string
	CreatedBy string
	CreatedAt time.Time
}

// Totals aggregates ledger entries under a filter. REJECTED entries never count as given.
type Totals struct {
	Count         int64
	Given         decimal.Decimal
	Returned      decimal.Decimal
	ApprovedGiven decimal.Decimal
}

func (t Totals) Outstanding() decimal.Decimal {
	return t.Given.Sub(t.Returned)
}
