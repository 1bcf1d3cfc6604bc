package response

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/advance"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/nurse"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/salary"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/shift"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// Malformed request bodies
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		BadRequest(w, "Invalid request body", nil)
		return
	}
	if errors.Is(err, io.EOF) {
		BadRequest(w, "Request body is required", nil)
		return
	}

	// Saga: the rate config was written but the payment was not
	var notRecorded *salary.PaymentNotRecordedError
	if errors.As(err, &notRecorded) {
		Error(w, http.StatusServiceUnavailable, CodePaymentNotRecorded,
			"Salary config was saved but the payment was not recorded, retry the same request",
			map[string]string{"salary_config_id": notRecorded.ConfigID})
		return
	}

	switch {
	// Identity
	case errors.Is(err, jwt.ErrMissingClaims):
		Unauthorized(w, "Operator identity missing from token")

	// Nurse
	case errors.Is(err, nurse.ErrNurseNotFound):
		NotFound(w, "Nurse not found")

	// Attendance domain errors
	case errors.Is(err, attendance.ErrAggregationFailed):
		slog.Error("attendance aggregation failed", "error", err)
		InternalServerError(w, "Attendance aggregation failed")

	// Shift domain errors
	case errors.Is(err, shift.ErrAssignmentNotFound):
		NotFound(w, "Assignment not found")
	case errors.Is(err, shift.ErrNotShiftBased),
		errors.Is(err, shift.ErrShiftAlreadyStarted),
		errors.Is(err, shift.ErrShiftAlreadyCompleted),
		errors.Is(err, shift.ErrShiftNotStarted),
		errors.Is(err, shift.ErrModeChangeNotAllowed),
		errors.Is(err, shift.ErrShiftTransitionRejected):
		Conflict(w, err.Error())

	// Salary domain errors
	case errors.Is(err, salary.ErrConfigNotFound):
		NotFound(w, "Salary config not found")
	case errors.Is(err, salary.ErrPaymentNotFound):
		NotFound(w, "Salary payment not found")
	case errors.Is(err, salary.ErrApprovalNotPermitted):
		Forbidden(w, err.Error())
	case errors.Is(err, salary.ErrNegativeNetSalary):
		ValidationError(w, map[string]string{"net_salary": "cannot be negative"})
	case errors.Is(err, salary.ErrPaymentAlreadyExists),
		errors.Is(err, salary.ErrPaymentAlreadyPaid),
		errors.Is(err, salary.ErrPaymentCancelled),
		errors.Is(err, salary.ErrPaymentNotAdjustable),
		errors.Is(err, salary.ErrPaymentNotRecalculable),
		errors.Is(err, salary.ErrInvalidTransition),
		errors.Is(err, salary.ErrPaymentStateChanged),
		errors.Is(err, salary.ErrConfigChanged):
		Conflict(w, err.Error())

	// Advance domain errors
	case errors.Is(err, advance.ErrAdvanceNotFound):
		NotFound(w, "Advance payment not found")
	case errors.Is(err, advance.ErrApprovalNotPermitted):
		Forbidden(w, err.Error())
	case errors.Is(err, advance.ErrInvalidReceipt):
		ValidationError(w, map[string]string{"receipt": advance.ErrInvalidReceipt.Error()})
	case errors.Is(err, advance.ErrAmountBelowReturned):
		ValidationError(w, map[string]string{"amount": err.Error()})
	case errors.Is(err, advance.ErrDeleteWindowExpired),
		errors.Is(err, advance.ErrRepaymentExceedsBalance),
		errors.Is(err, advance.ErrAdvanceClosed),
		errors.Is(err, advance.ErrAdvanceChanged):
		Conflict(w, err.Error())

	// Default
	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
