package advance

import (
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/storage"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type CreateAdvanceRequest struct {
	NurseID           string           `json:"nurse_id"`
	TransactionDate   string           `json:"transaction_date"`
	Amount            decimal.Decimal  `json:"amount"`
	TransactionType   string           `json:"transaction_type"`
	ReturnType        string           `json:"return_type"`
	InstallmentAmount *decimal.Decimal `json:"installment_amount,omitempty"`
	PaymentMethod     *string          `json:"payment_method,omitempty"`
	Notes             *string          `json:"notes,omitempty"`

	Receipt       multipart.File        `json:"-"`
	ReceiptHeader *multipart.FileHeader `json:"-"`
}

// ToEntity validates the request and builds a PENDING entry.
func (r *CreateAdvanceRequest) ToEntity() (Advance, error) {
	var errs validator.ValidationErrors

	date, dateOK := validator.IsValidDate(r.TransactionDate)
	if !dateOK {
		errs.Add("transaction_date", "must be a date in YYYY-MM-DD format")
	}
	if r.ReceiptHeader != nil {
		if err := ValidateReceipt(r.ReceiptHeader); err != nil {
			errs.Add("receipt", err.Error())
		}
	}

	a := Advance{
		NurseID:           strings.TrimSpace(r.NurseID),
		TransactionDate:   date,
		Amount:            r.Amount,
		ReturnedAmount:    decimal.Zero,
		TransactionType:   strings.TrimSpace(r.TransactionType),
		Status:            StatusPending,
		ReturnType:        ReturnType(r.ReturnType),
		InstallmentAmount: r.InstallmentAmount,
		PaymentMethod:     r.PaymentMethod,
		Notes:             r.Notes,
	}
	if a.ReturnType == ReturnTypeFull {
		a.InstallmentAmount = nil
	}

	if err := a.Validate(); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, e := range ve {
				if e.Field == "transaction_date" && !dateOK {
					continue
				}
				errs = append(errs, e)
			}
		}
	}
	return a, errs.Err()
}

// ValidateReceipt checks the extension and size of an uploaded receipt.
func ValidateReceipt(h *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(h.Filename))
	if !validator.IsInSlice(ext, storage.ReceiptUploadOptions.AllowedExts) || h.Size > storage.ReceiptUploadOptions.MaxSize {
		return ErrInvalidReceipt
	}
	return nil
}

type UpdateAdvanceRequest struct {
	ID                string           `json:"-"`
	TransactionDate   *string          `json:"transaction_date,omitempty"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	ReturnType        *string          `json:"return_type,omitempty"`
	InstallmentAmount *decimal.Decimal `json:"installment_amount,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
	PaymentMethod     *string          `json:"payment_method,omitempty"`
	Status            *string          `json:"status,omitempty"`
}

// Merge applies the supplied fields onto current and validates the result.
func (r *UpdateAdvanceRequest) Merge(current Advance) (Advance, error) {
	var errs validator.ValidationErrors
	merged := current

	if r.TransactionDate != nil {
		date, ok := validator.IsValidDate(*r.TransactionDate)
		if !ok {
			errs.Add("transaction_date", "must be a date in YYYY-MM-DD format")
		} else {
			merged.TransactionDate = date
		}
	}
	if r.Amount != nil {
		merged.Amount = *r.Amount
	}
	if r.ReturnType != nil {
		merged.ReturnType = ReturnType(*r.ReturnType)
		if merged.ReturnType == ReturnTypeFull {
			merged.InstallmentAmount = nil
		}
	}
	if r.InstallmentAmount != nil {
		merged.InstallmentAmount = r.InstallmentAmount
	}
	if r.Notes != nil {
		merged.Notes = r.Notes
	}
	if r.PaymentMethod != nil {
		merged.PaymentMethod = r.PaymentMethod
	}
	if r.Status != nil {
		merged.Status = Status(*r.Status)
		if merged.Status == StatusCompleted && !merged.Remaining().IsZero() {
			errs.Add("status", "can only be COMPLETED once fully repaid")
		}
		if merged.Status == StatusRejected && merged.ReturnedAmount.IsPositive() {
			errs.Add("status", "cannot be REJECTED once repayments are recorded")
		}
	}
	merged.Status = merged.SettledStatus()

	if err := merged.Validate(); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			errs = append(errs, ve...)
		} else {
			return current, err
		}
	}
	if len(errs) > 0 {
		return current, errs
	}
	return merged, nil
}

type SetApprovalRequest struct {
	ID       string `json:"-"`
	Approved *bool  `json:"approved" validate:"required"`
}

func (r *SetApprovalRequest) Validate() error {
	return validator.Struct(r).Err()
}

type RepaymentRequest struct {
	AdvanceID string          `json:"-"`
	Amount    decimal.Decimal `json:"amount"`
	RepaidOn  string          `json:"repaid_on"`
	Notes     *string         `json:"notes,omitempty"`
}

func (r *RepaymentRequest) Validate() (time.Time, error) {
	var errs validator.ValidationErrors
	if !validator.IsPositiveAmount(r.Amount) {
		errs.Add("amount", "must be greater than 0")
	} else if !r.Amount.Equal(r.Amount.Round(2)) {
		errs.Add("amount", "must have at most 2 decimal places")
	}
	date, ok := validator.IsValidDate(r.RepaidOn)
	if !ok {
		errs.Add("repaid_on", "must be a date in YYYY-MM-DD format")
	}
	return date, errs.Err()
}

type AdvanceFilter struct {
	DateFrom       *string `json:"date_from,omitempty"`
	DateTo         *string `json:"date_to,omitempty"`
	Search         *string `json:"search,omitempty"`
	PaymentMethod  *string `json:"payment_method,omitempty"`
	NurseID        *string `json:"nurse_id,omitempty"`
	OrganizationID *string `json:"organization_id,omitempty"`
	Status         *string `json:"status,omitempty"`
	Page           int     `json:"page"`
	Limit          int     `json:"limit"`
}

func (f *AdvanceFilter) Validate() error {
	var errs validator.ValidationErrors
	var from, to time.Time
	var okFrom, okTo bool
	if f.DateFrom != nil {
		if from, okFrom = validator.IsValidDate(*f.DateFrom); !okFrom {
			errs.Add("date_from", "must be a date in YYYY-MM-DD format")
		}
	}
	if f.DateTo != nil {
		if to, okTo = validator.IsValidDate(*f.DateTo); !okTo {
			errs.Add("date_to", "must be a date in YYYY-MM-DD format")
		}
	}
	if okFrom && okTo && to.Before(from) {
		errs.Add("date_to", "must not be before date_from")
	}
	if f.Status != nil && !Status(*f.Status).IsValid() {
		errs.Add("status", "must be one of: PENDING APPROVED REJECTED COMPLETED")
	}
	if f.PaymentMethod != nil && !validator.IsInSlice(*f.PaymentMethod, PaymentMethods) {
		errs.Add("payment_method", "must be one of: cash bank_transfer upi cheque")
	}
	return errs.Err()
}

type AdvanceResponse struct {
	ID                string           `json:"id"`
	NurseID           string           `json:"nurse_id"`
	NurseName         *string          `json:"nurse_name,omitempty"`
	RegistrationNo    *string          `json:"reg_no,omitempty"`
	OrganizationID    string           `json:"organization_id"`
	TransactionDate   string           `json:"transaction_date"`
	Amount            decimal.Decimal  `json:"amount"`
	ReturnedAmount    decimal.Decimal  `json:"returned_amount"`
	RemainingAmount   decimal.Decimal  `json:"remaining_amount"`
	TransactionType   string           `json:"transaction_type"`
	Status            string           `json:"status"`
	ReturnType        string           `json:"return_type"`
	InstallmentAmount *decimal.Decimal `json:"installment_amount,omitempty"`
	PaymentMethod     *string          `json:"payment_method,omitempty"`
	ReceiptURL        *string          `json:"receipt_url,omitempty"`
	Notes             *string          `json:"notes,omitempty"`
	Approved          bool             `json:"approved"`
	ApprovedBy        *string          `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time       `json:"approved_at,omitempty"`
	DeletableUntil    time.Time        `json:"deletable_until"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

type ListAdvanceResponse struct {
	Data       []AdvanceResponse `json:"data"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
}

type RepaymentResponse struct {
	ID        string          `json:"id"`
	AdvanceID string          `json:"advance_id"`
	Amount    decimal.Decimal `json:"amount"`
	RepaidOn  string          `json:"repaid_on"`
	Notes     *string         `json:"notes,omitempty"`
	CreatedBy string          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}

type RepaymentResultResponse struct {
	Advance   AdvanceResponse   `json:"advance"`
	Repayment RepaymentResponse `json:"repayment"`
}

type TotalsResponse struct {
	Count         int64           `json:"count"`
	Given         decimal.Decimal `json:"given"`
	Returned      decimal.Decimal `json:"returned"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	ApprovedGiven decimal.Decimal `json:"approved_given"`
}
