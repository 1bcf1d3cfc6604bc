package advance

import "errors"

var (
	ErrAdvanceNotFound         = errors.New("advance payment not found")
	ErrDeleteWindowExpired     = errors.New("advance payment can only be deleted within 24 hours of creation")
	ErrRepaymentExceedsBalance = errors.New("repayment exceeds the outstanding balance")
	ErrAmountBelowReturned     = errors.New("amount cannot be less than the amount already returned")
	ErrAdvanceClosed           = errors.New("advance payment is rejected or fully repaid")
	ErrAdvanceChanged          = errors.New("advance payment was changed by another request, reload and retry")
	ErrApprovalNotPermitted    = errors.New("operator is not allowed to approve advances")
	ErrInvalidReceipt          = errors.New("receipt must be a jpg, png or pdf file up to 5MB")
)
