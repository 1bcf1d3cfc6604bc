package http

import (
	"net/http"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/homecare-payroll/internal/handler/http/response"
)

type AttendanceHandler interface {
	Hours(w http.ResponseWriter, r *http.Request)
	MissingFields(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
	}
}

func hoursFilterFromQuery(r *http.Request) attendance.HoursFilter {
	q := r.URL.Query()
	return attendance.HoursFilter{
		DateFrom:       q.Get("date_from"),
		DateTo:         q.Get("date_to"),
		NurseID:        queryString(r, "nurse_id"),
		OrganizationID: queryString(r, "organization_id"),
	}
}

// Hours implements AttendanceHandler.
func (h *attendanceHandlerImpl) Hours(w http.ResponseWriter, r *http.Request) {
	result, err := h.attendanceService.AggregateHours(r.Context(), hoursFilterFromQuery(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// MissingFields implements AttendanceHandler.
func (h *attendanceHandlerImpl) MissingFields(w http.ResponseWriter, r *http.Request) {
	result, err := h.attendanceService.ListMissingFields(r.Context(), hoursFilterFromQuery(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
