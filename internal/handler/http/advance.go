package http

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/advance"
	"github.com/cmlabs-hris/homecare-payroll/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type AdvanceHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	SetApproval(w http.ResponseWriter, r *http.Request)
	RecordRepayment(w http.ResponseWriter, r *http.Request)
	ListRepayments(w http.ResponseWriter, r *http.Request)
	Totals(w http.ResponseWriter, r *http.Request)
}

type advanceHandlerImpl struct {
	advanceService advance.AdvanceService
}

func NewAdvanceHandler(advanceService advance.AdvanceService) AdvanceHandler {
	return &advanceHandlerImpl{
		advanceService: advanceService,
	}
}

func advanceFilterFromQuery(r *http.Request) advance.AdvanceFilter {
	filter := advance.AdvanceFilter{
		DateFrom:       queryString(r, "date_from"),
		DateTo:         queryString(r, "date_to"),
		Search:         queryString(r, "search"),
		PaymentMethod:  queryString(r, "payment_method"),
		NurseID:        queryString(r, "nurse_id"),
		OrganizationID: queryString(r, "organization_id"),
		Status:         queryString(r, "status"),
	}
	filter.Page, filter.Limit = pagination(r)
	return filter
}

// Create implements AdvanceHandler. Accepts a JSON body, or multipart form data
// with the JSON in the 'data' field and an optional 'receipt' file.
func (h *advanceHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req advance.CreateAdvanceRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		// Parse multipart form (max 10MB)
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			slog.Error("Failed to parse multipart form", "error", err)
			response.BadRequest(w, "Failed to parse form data", nil)
			return
		}

		dataJSON := r.FormValue("data")
		if dataJSON == "" {
			response.BadRequest(w, "Field 'data' is required", nil)
			return
		}
		if err := json.Unmarshal([]byte(dataJSON), &req); err != nil {
			slog.Error("Failed to unmarshal JSON data", "error", err)
			response.BadRequest(w, "Invalid request format", nil)
			return
		}

		file, fileHeader, err := r.FormFile("receipt")
		switch {
		case err == nil:
			defer file.Close()
			req.Receipt = file
			req.ReceiptHeader = fileHeader
		case err != http.ErrMissingFile:
			slog.Error("Failed to get file from form", "error", err)
			response.BadRequest(w, "Invalid file upload", nil)
			return
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.advanceService.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Advance payment recorded", result)
}

// Get implements AdvanceHandler.
func (h *advanceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.advanceService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// List implements AdvanceHandler.
func (h *advanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.advanceService.List(r.Context(), advanceFilterFromQuery(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Data, pageMeta(result.Page, result.Limit, result.TotalCount))
}

// Update implements AdvanceHandler.
func (h *advanceHandlerImpl) Update(w http.ResponseWriter, r *http.Request) {
	var req advance.UpdateAdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.HandleError(w, err)
		return
	}
	req.ID = chi.URLParam(r, "id")

	result, err := h.advanceService.Update(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Advance payment updated", result)
}

// Delete implements AdvanceHandler.
func (h *advanceHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.advanceService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Advance payment deleted", nil)
}

// SetApproval implements AdvanceHandler.
func (h *advanceHandlerImpl) SetApproval(w http.ResponseWriter, r *http.Request) {
	var req advance.SetApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.HandleError(w, err)
		return
	}
	req.ID = chi.URLParam(r, "id")

	result, err := h.advanceService.SetApproval(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Advance approval updated", result)
}

// RecordRepayment implements AdvanceHandler.
func (h *advanceHandlerImpl) RecordRepayment(w http.ResponseWriter, r *http.Request) {
	var req advance.RepaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.HandleError(w, err)
		return
	}
	req.AdvanceID = chi.URLParam(r, "id")

	result, err := h.advanceService.RecordRepayment(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Repayment recorded", result)
}

// ListRepayments implements AdvanceHandler.
func (h *advanceHandlerImpl) ListRepayments(w http.ResponseWriter, r *http.Request) {
	result, err := h.advanceService.ListRepayments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Totals implements AdvanceHandler.
func (h *advanceHandlerImpl) Totals(w http.ResponseWriter, r *http.Request) {
	result, err := h.advanceService.Totals(r.Context(), advanceFilterFromQuery(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
