package salary

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound         = errors.New("salary config not found")
	ErrConfigChanged          = errors.New("salary config changed concurrently, reload and retry")
	ErrPaymentNotFound        = errors.New("salary payment not found")
	ErrPaymentAlreadyExists   = errors.New("salary payment already finalized for this period")
	ErrPaymentAlreadyPaid     = errors.New("salary payment already paid")
	ErrPaymentCancelled       = errors.New("salary payment is cancelled")
	ErrPaymentNotAdjustable   = errors.New("salary payment can no longer be adjusted")
	ErrPaymentNotRecalculable = errors.New("salary payment can only be recalculated while pending or rejected")
	ErrInvalidTransition      = errors.New("invalid salary payment status transition")
	ErrNegativeNetSalary      = errors.New("net salary cannot be negative")
	ErrPaymentStateChanged    = errors.New("salary payment changed concurrently, reload and retry")
	ErrApprovalNotPermitted   = errors.New("operator is not allowed to approve salary payments")
)

// ErrPaymentNotRecorded is returned when the rate config step of a payroll run
// succeeded but the payment insert failed. The config change stays; retrying the
// same request is safe.
var ErrPaymentNotRecorded = errors.New("payment not recorded, retry")

type PaymentNotRecordedError struct {
	ConfigID string
	Err      error
}

func (e *PaymentNotRecordedError) Error() string {
	return fmt.Sprintf("%s (salary config %s kept): %v", ErrPaymentNotRecorded, e.ConfigID, e.Err)
}

func (e *PaymentNotRecordedError) Is(target error) bool {
	return target == ErrPaymentNotRecorded
}

func (e *PaymentNotRecordedError) Unwrap() error {
	return e.Err
}
