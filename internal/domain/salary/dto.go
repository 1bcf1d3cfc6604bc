package salary

import (
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// ========== CONFIG DTOs ==========

type UpsertConfigRequest struct {
	NurseID    string          `json:"-"`
	HourlyRate decimal.Decimal `json:"hourly_rate" validate:"gte=0"`
	ConfigID   *string         `json:"config_id,omitempty"`
}

func (r *UpsertConfigRequest) Validate() error {
	errs := validator.Struct(r)
	if validator.IsEmpty(r.NurseID) {
		errs.Add("nurse_id", "is required")
	}
	if r.ConfigID != nil && validator.IsEmpty(*r.ConfigID) {
		errs.Add("config_id", "must not be blank")
	}
	return errs.Err()
}

type ConfigResponse struct {
	ID         string          `json:"id,omitempty"`
	NurseID    string          `json:"nurse_id"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
	IsActive   bool            `json:"is_active"`
	IsDefault  bool            `json:"is_default"`
	UpdatedBy  *string         `json:"updated_by,omitempty"`
	CreatedAt  *time.Time      `json:"created_at,omitempty"`
	UpdatedAt  *time.Time      `json:"updated_at,omitempty"`
}

// ========== PAYMENT DTOs ==========

type CreatePaymentRequest struct {
	NurseID        string           `json:"nurse_id" validate:"required"`
	PayPeriodStart string           `json:"pay_period_start" validate:"required"`
	PayPeriodEnd   string           `json:"pay_period_end" validate:"required"`
	HoursWorked    *decimal.Decimal `json:"hours_worked,omitempty"`
	HourlyRate     *decimal.Decimal `json:"hourly_rate,omitempty"`
	BasePay        *decimal.Decimal `json:"base_pay,omitempty"`
	Allowance      *decimal.Decimal `json:"allowance,omitempty"`
	Bonus          *decimal.Decimal `json:"bonus,omitempty"`
	Deductions     *decimal.Decimal `json:"deductions,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
}

// Validate checks inputs and returns the parsed pay period.
func (r *CreatePaymentRequest) Validate() (time.Time, time.Time, error) {
	errs := validator.Struct(r)

	var start, end time.Time
	if r.PayPeriodStart != "" && r.PayPeriodEnd != "" {
		var rangeErrs validator.ValidationErrors
		start, end = validator.ValidateDateRange(r.PayPeriodStart, r.PayPeriodEnd, &rangeErrs)
		for _, e := range rangeErrs {
			field := "pay_period_start"
			if e.Field == "date_to" {
				field = "pay_period_end"
			}
			errs.Add(field, e.Message)
		}
	}

	checkNonNegative(&errs, "hours_worked", r.HoursWorked)
	checkNonNegative(&errs, "hourly_rate", r.HourlyRate)
	checkNonNegative(&errs, "base_pay", r.BasePay)
	checkNonNegative(&errs, "allowance", r.Allowance)
	checkNonNegative(&errs, "bonus", r.Bonus)
	checkNonNegative(&errs, "deductions", r.Deductions)

	return start, end, errs.Err()
}

func checkNonNegative(errs *validator.ValidationErrors, field string, v *decimal.Decimal) {
	if v != nil && v.IsNegative() {
		errs.Add(field, "must be non-negative")
	}
}

type RecalculatePaymentRequest struct {
	PaymentID        string `json:"-"`
	UseActiveRate    bool   `json:"use_active_rate"`
	ClearAdjustments bool   `json:"clear_adjustments"`
}

type ApprovePaymentRequest struct {
	PaymentID            string  `json:"-"`
	Status               string  `json:"status" validate:"required,oneof=approved paid"`
	PaymentMethod        *string `json:"payment_method,omitempty" validate:"omitempty,max=32"`
	TransactionReference *string `json:"transaction_reference,omitempty" validate:"omitempty,max=128"`
}

func (r *ApprovePaymentRequest) Validate() error {
	return validator.Struct(r).Err()
}

type ChangeStatusRequest struct {
	PaymentID string `json:"-"`
	Reason    string `json:"reason"`
}

type AdjustmentRequest struct {
	PaymentID string          `json:"-"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

func (r *AdjustmentRequest) Validate() error {
	var errs validator.ValidationErrors
	if !validator.IsPositiveAmount(r.Amount) {
		errs.Add("amount", "must be greater than 0")
	} else if !r.Amount.Equal(RoundMoney(r.Amount)) {
		errs.Add("amount", "must have at most 2 decimal places")
	}
	if validator.IsEmpty(r.Reason) {
		errs.Add("reason", "is required")
	}
	return errs.Err()
}

type PaymentFilter struct {
	NurseID        *string `json:"nurse_id,omitempty"`
	OrganizationID *string `json:"organization_id,omitempty"`
	Status         *string `json:"status,omitempty"`
	PeriodFrom     *string `json:"period_from,omitempty"`
	PeriodTo       *string `json:"period_to,omitempty"`
	Page           int     `json:"page"`
	Limit          int     `json:"limit"`
}

func (f *PaymentFilter) Validate() error {
	var errs validator.ValidationErrors
	if f.Status != nil && !validator.IsInSlice(*f.Status, []string{
		string(PaymentStatusPending), string(PaymentStatusApproved), string(PaymentStatusPaid),
		string(PaymentStatusCancelled), string(PaymentStatusRejected),
	}) {
		errs.Add("status", "must be one of: pending approved paid cancelled rejected")
	}
	if f.PeriodFrom != nil {
		if _, ok := validator.IsValidDate(*f.PeriodFrom); !ok {
			errs.Add("period_from", "must be a date in YYYY-MM-DD format")
		}
	}
	if f.PeriodTo != nil {
		if _, ok := validator.IsValidDate(*f.PeriodTo); !ok {
			errs.Add("period_to", "must be a date in YYYY-MM-DD format")
		}
	}
	return errs.Err()
}

type PaymentResponse struct {
	ID                   string          `json:"id"`
	NurseID              string          `json:"nurse_id"`
	NurseName            *string         `json:"nurse_name,omitempty"`
	RegistrationNo       *string         `json:"reg_no,omitempty"`
	OrganizationID       string          `json:"organization_id"`
	SalaryConfigID       *string         `json:"salary_config_id,omitempty"`
	PayPeriodStart       string          `json:"pay_period_start"`
	PayPeriodEnd         string          `json:"pay_period_end"`
	BasePay              decimal.Decimal `json:"base_pay"`
	HourlyRate           decimal.Decimal `json:"hourly_rate"`
	HoursWorked          decimal.Decimal `json:"hours_worked"`
	AttendanceDays       decimal.Decimal `json:"attendance_days"`
	HourlyPay            decimal.Decimal `json:"hourly_pay"`
	Allowance            decimal.Decimal `json:"allowance"`
	Bonus                decimal.Decimal `json:"bonus"`
	GrossSalary          decimal.Decimal `json:"gross_salary"`
	Deductions           decimal.Decimal `json:"deductions"`
	NetSalary            decimal.Decimal `json:"net_salary"`
	Status               string          `json:"payment_status"`
	PaymentMethod        *string         `json:"payment_method,omitempty"`
	TransactionReference *string         `json:"transaction_reference,omitempty"`
	Notes                *string         `json:"notes,omitempty"`
	ApprovedBy           *string         `json:"approved_by,omitempty"`
	ApprovedAt           *time.Time      `json:"approved_at,omitempty"`
	PaidAt               *time.Time      `json:"paid_at,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

type ListPaymentResponse struct {
	Data       []PaymentResponse `json:"data"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
}

type AdjustmentResponse struct {
	ID        string          `json:"id"`
	PaymentID string          `json:"payment_id"`
	Kind      string          `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	Actor     string          `json:"actor"`
	CreatedAt time.Time       `json:"created_at"`
}

type AdjustmentResultResponse struct {
	Payment    PaymentResponse    `json:"payment"`
	Adjustment AdjustmentResponse `json:"adjustment"`
}
