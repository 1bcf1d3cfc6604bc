package attendance

import (
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type HoursFilter struct {
	DateFrom       string  `json:"date_from"`
	DateTo         string  `json:"date_to"`
	NurseID        *string `json:"nurse_id,omitempty"`
	OrganizationID *string `json:"organization_id,omitempty"`
}

// Validate checks the range and returns the parsed bounds.
func (f *HoursFilter) Validate() (time.Time, time.Time, error) {
	var errs validator.ValidationErrors
	from, to := validator.ValidateDateRange(f.DateFrom, f.DateTo, &errs)
	if f.NurseID != nil && validator.IsEmpty(*f.NurseID) {
		errs.Add("nurse_id", "must not be blank")
	}
	return from, to, errs.Err()
}

type MissingFieldResponse struct {
	NurseID   string `json:"nurse_id"`
	NurseName string `json:"nurse_name,omitempty"`
	RecordID  string `json:"record_id"`
	Field     string `json:"field"`
	Date      string `json:"date"`
	Reason    string `json:"reason"`
}

type NurseHoursResponse struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	RegNo          string                 `json:"reg_no"`
	Hours          string                 `json:"hours"`
	DecimalHours   decimal.Decimal        `json:"decimal_hours"`
	TotalMinutes   int64                  `json:"total_minutes"`
	Organization   string                 `json:"organization"`
	OrganizationID string                 `json:"organization_id"`
	RecordCount    int                    `json:"record_count"`
	MissingFields  []MissingFieldResponse `json:"missing_fields"`
}

type HoursReportResponse struct {
	DateFrom          string               `json:"date_from"`
	DateTo            string               `json:"date_to"`
	Nurses            []NurseHoursResponse `json:"nurses"`
	MissingFieldCount int                  `json:"missing_field_count"`
}
