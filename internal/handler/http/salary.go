package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/salary"
	"github.com/cmlabs-hris/homecare-payroll/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type SalaryHandler interface {
	// Rate config, nested under /nurses/{nurseID}
	GetConfig(w http.ResponseWriter, r *http.Request)
	UpsertConfig(w http.ResponseWriter, r *http.Request)
	ConfigHistory(w http.ResponseWriter, r *http.Request)

	CreatePayment(w http.ResponseWriter, r *http.Request)
	RecalculatePayment(w http.ResponseWriter, r *http.Request)
	GetPayment(w http.ResponseWriter, r *http.Request)
	ListPayments(w http.ResponseWriter, r *http.Request)
	ApprovePayment(w http.ResponseWriter, r *http.Request)
	RejectPayment(w http.ResponseWriter, r *http.Request)
	CancelPayment(w http.ResponseWriter, r *http.Request)

	AddBonus(w http.ResponseWriter, r *http.Request)
	AddDeduction(w http.ResponseWriter, r *http.Request)
	ListAdjustments(w http.ResponseWriter, r *http.Request)
}

type salaryHandlerImpl struct {
	configService  salary.ConfigService
	paymentService salary.PaymentService
}

func NewSalaryHandler(configService salary.ConfigService, paymentService salary.PaymentService) SalaryHandler {
	return &salaryHandlerImpl{
		configService:  configService,
		paymentService: paymentService,
	}
}

// GetConfig implements SalaryHandler.
func (h *salaryHandlerImpl) GetConfig(w http.ResponseWriter, r *http.Request) {
	result, err := h.configService.GetActiveConfig(r.Context(), chi.URLParam(r, "nurseID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// UpsertConfig implements SalaryHandler.
func (h *salaryHandlerImpl) UpsertConfig(w http.ResponseWriter, r *http.Request) {
	var req salary.UpsertConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.HandleError(w, err)
		return
	}
	req.NurseID = chi.URLParam(r, "nurseID")

	result, err := h.configService.UpsertConfig(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Salary config saved", result)
}

// ConfigHistory implements SalaryHandler.
func (h *salaryHandlerImpl) ConfigHistory(w http.ResponseWriter, r *http.Request) {
	result, err := h.configService.ListConfigHistory(r.Context(), chi.URLParam(r, "nurseID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// CreatePayment implements SalaryHandler.
func (h *salaryHandlerImpl) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req salary.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.paymentService.CreatePayment(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Salary payment calculated", result)
}

// RecalculatePayment implements SalaryHandler.
func (h *salaryHandlerImpl) RecalculatePayment(w http.ResponseWriter, r *http.Request) {
	var req salary.RecalculatePaymentRequest
	if err := decodeOptional(r, &req); err != nil {
		response.HandleError(w, err)
		return
	}
	req.PaymentID = chi.URLParam(r, "id")

	result, err := h.paymentService.RecalculatePayment(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Salary payment recalculated", result)
}

// GetPayment implements SalaryHandler.
func (h *salaryHandlerImpl) GetPayment(w http.ResponseWriter, r *http.Request) {
	result, err := h.paymentService.GetPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// ListPayments implements SalaryHandler.
func (h *salaryHandlerImpl) ListPayments(w http.ResponseWriter, r *http.Request) {
	filter := salary.PaymentFilter{
		NurseID:        queryString(r, "nurse_id"),
		OrganizationID: queryString(r, "organization_id"),
		Status:         queryString(r, "status"),
		PeriodFrom:     queryString(r, "period_from"),
		PeriodTo:       queryString(r, "period_to"),
	}
	filter.Page, filter.Limit = pagination(r)

	result, err := h.paymentService.ListPayments(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, pageMeta(result.Page, result.Limit, result.TotalCount))
}

// ApprovePayment implements SalaryHandler.
func (h *salaryHandlerImpl) ApprovePayment(w http.ResponseWriter, r *http.Request) {
	var req salary.ApprovePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.HandleError(w, err)
		return
	}
	req.PaymentID = chi.URLParam(r, "id")

	result, err := h.paymentService.ApprovePayment(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Salary payment "+result.Status, result)
}

// RejectPayment implements SalaryHandler.
func (h *salaryHandlerImpl) RejectPayment(w http.ResponseWriter, r *http.Request) {
	var req salary.ChangeStatusRequest
	if err := decodeOptional(r, &req); err != nil {
		response.HandleError(w, err)
		return
	}
	req.PaymentID = chi.URLParam(r, "id")

	result, err := h.paymentService.RejectPayment(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Salary payment rejected", result)
}

// CancelPayment implements SalaryHandler.
func (h *salaryHandlerImpl) CancelPayment(w http.ResponseWriter, r *http.Request) {
	var req salary.ChangeStatusRequest
	if err := decodeOptional(r, &req); err != nil {
		response.HandleError(w, err)
		return
	}
	req.PaymentID = chi.URLParam(r, "id")

	result, err := h.paymentService.CancelPayment(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Salary payment cancelled", result)
}

func (h *salaryHandlerImpl) adjustment(w http.ResponseWriter, r *http.Request, apply func(*http.Request, salary.AdjustmentRequest) (salary.AdjustmentResultResponse, error), message string) {
	var req salary.AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.HandleError(w, err)
		return
	}
	req.PaymentID = chi.URLParam(r, "id")

	result, err := apply(r, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, message, result)
}

// AddBonus implements SalaryHandler.
func (h *salaryHandlerImpl) AddBonus(w http.ResponseWriter, r *http.Request) {
	h.adjustment(w, r, func(r *http.Request, req salary.AdjustmentRequest) (salary.AdjustmentResultResponse, error) {
		return h.paymentService.AddBonus(r.Context(), req)
	}, "Bonus added")
}

// AddDeduction implements SalaryHandler.
func (h *salaryHandlerImpl) AddDeduction(w http.ResponseWriter, r *http.Request) {
	h.adjustment(w, r, func(r *http.Request, req salary.AdjustmentRequest) (salary.AdjustmentResultResponse, error) {
		return h.paymentService.AddDeduction(r.Context(), req)
	}, "Deduction added")
}

// ListAdjustments implements SalaryHandler.
func (h *salaryHandlerImpl) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	result, err := h.paymentService.ListAdjustments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
