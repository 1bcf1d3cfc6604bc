package salary

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config is one version of a nurse's hourly rate. At most one row per nurse is active.
type Config struct {
	ID         string
	NurseID    string
	HourlyRate decimal.Decimal
	IsActive   bool
	CreatedBy  *string
	UpdatedBy  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PaymentStatus enum
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusRejected  PaymentStatus = "rejected"
)

// Recalculable reports whether the numeric fields may still be rewritten.
func (s PaymentStatus) Recalculable() bool {
	return s == PaymentStatusPending || s == PaymentStatusRejected
}

// Adjustable reports whether bonuses and deductions may still be added.
func (s PaymentStatus) Adjustable() bool {
	return s != PaymentStatusPaid && s != PaymentStatusCancelled
}

// Payment is created once per (nurse, pay period) and never deleted.
type Payment struct {
	ID                   string
	NurseID              string
	OrganizationID       string
	SalaryConfigID       *string
	PayPeriodStart       time.Time
	PayPeriodEnd         time.Time
	BasePay              decimal.Decimal
	HourlyRate           decimal.Decimal
	HoursWorked          decimal.Decimal
	AttendanceDays       decimal.Decimal
	HourlyPay            decimal.Decimal
	Allowance            decimal.Decimal
	Bonus                decimal.Decimal
	GrossSalary          decimal.Decimal
	Deductions           decimal.Decimal
	NetSalary            decimal.Decimal
	Status               PaymentStatus
	PaymentMethod        *string
	TransactionReference *string
	Notes                *string
	ApprovedBy           *string
	ApprovedAt           *time.Time
	PaidAt               *time.Time
	CreatedBy            *string
	CreatedAt            time.Time
	UpdatedAt            time.Time

	// Joined fields
	NurseName      *string
	RegistrationNo *string
}

// ApplyFigures copies computed figures onto the payment.
func (p *Payment) ApplyFigures(f Figures) {
	p.BasePay = f.BasePay
	p.HourlyRate = f.HourlyRate
	p.HoursWorked = f.HoursWorked
	p.HourlyPay = f.HourlyPay
	p.Allowance = f.Allowance
	p.Bonus = f.Bonus
	p.GrossSalary = f.GrossSalary
	p.Deductions = f.Deductions
	p.NetSalary = f.NetSalary
}

// Inputs returns the earning components currently stored on the payment.
func (p Payment) Inputs() FigureInputs {
	return FigureInputs{
		BasePay:     p.BasePay,
		HourlyRate:  p.HourlyRate,
		HoursWorked: p.HoursWorked,
		Allowance:   p.Allowance,
		Bonus:       p.Bonus,
		Deductions:  p.Deductions,
	}
}

type AdjustmentKind string

const (
	AdjustmentBonus     AdjustmentKind = "bonus"
	AdjustmentDeduction AdjustmentKind = "deduction"
)

// Adjustment is an append-only audit entry keyed to a payment.
type Adjustment struct {
	ID        string
	PaymentID string
	Kind      AdjustmentKind
	Amount    decimal.Decimal
	Reason    string
	Actor     string
	CreatedAt time.Time
}

// NoteLine renders the human-readable summary appended to the payment notes,
// e.g. "+₹500 bonus: festival".
func (a Adjustment) NoteLine(currencySymbol string) string {
	sign := "+"
	if a.Kind == AdjustmentDeduction {
		sign = "-"
	}
	return sign + currencySymbol + FormatAmount(a.Amount) + " " + string(a.Kind) + ": " + a.Reason
}

// FormatAmount prints whole amounts without decimals and everything else with two.
func FormatAmount(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return d.Truncate(0).String()
	}
	return d.StringFixed(2)
}
