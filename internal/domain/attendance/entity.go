package attendance

import (
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/hours"
)

// Record is one attendance row per (nurse, assignment, date), joined to its
// assignment's shift window and owning nurse. Captured elsewhere, read-only here.
type Record struct {
	ID             string
	AssignmentID   string
	Date           time.Time
	CheckIn        *string
	CheckOut       *string
	TotalHours     *string
	ShiftStartTime *string
	ShiftEndTime   *string

	// Joined fields
	NurseID          string
	NurseName        string
	RegistrationNo   string
	OrganizationID   string
	OrganizationCode string
	OrganizationName string
}

const (
	FieldCheckIn        = "check_in"
	FieldCheckOut       = "check_out"
	FieldTotalHours     = "total_hours"
	FieldShiftStartTime = "shift_start_time"
	FieldShiftEndTime   = "shift_end_time"

	ReasonMissing   = "missing"
	ReasonMalformed = "malformed"
)

// MissingField is a data-quality defect on one record. It never aborts aggregation.
type MissingField struct {
	NurseID  string
	RecordID string
	Field    string
	Date     time.Time
	Reason   string
}

// NurseHours is the aggregate for one nurse over a date range.
type NurseHours struct {
	NurseID          string
	Name             string
	RegistrationNo   string
	OrganizationID   string
	OrganizationCode string
	OrganizationName string
	TotalMinutes     int64
	RecordCount      int
	MissingFields    []MissingField
}

func isBlank(v *string) bool {
	return v == nil || strings.TrimSpace(*v) == ""
}

// CheckRecord reports the defects of r and the minutes it contributes.
// A null or malformed total_hours contributes zero.
func CheckRecord(r Record) (int64, []MissingField) {
	var defects []MissingField
	flag := func(field, reason string) {
		defects = append(defects, MissingField{NurseID: r.NurseID, RecordID: r.ID, Field: field, Date: r.Date, Reason: reason})
	}

	if isBlank(r.CheckIn) {
		flag(FieldCheckIn, ReasonMissing)
	}
	if isBlank(r.CheckOut) {
		flag(FieldCheckOut, ReasonMissing)
	}

	var minutes int64
	if isBlank(r.TotalHours) {
		flag(FieldTotalHours, ReasonMissing)
	} else if m, err := hours.ParseHM(*r.TotalHours); err != nil {
		flag(FieldTotalHours, ReasonMalformed)
	} else {
		minutes = m
	}

	if isBlank(r.ShiftStartTime) {
		flag(FieldShiftStartTime, ReasonMissing)
	}
	if isBlank(r.ShiftEndTime) {
		flag(FieldShiftEndTime, ReasonMissing)
	}
	return minutes, defects
}

// Aggregate groups records by nurse, sums whole minutes and collects defects.
// Nurses without records never appear. Rows are ordered by name, then id.
func Aggregate(records []Record) []NurseHours {
	byNurse := make(map[string]*NurseHours)
	order := make([]string, 0)

	for _, r := range records {
		row, ok := byNurse[r.NurseID]
		if !ok {
			row = &NurseHours{
				NurseID:          r.NurseID,
				Name:             r.NurseName,
				RegistrationNo:   r.RegistrationNo,
				OrganizationID:   r.OrganizationID,
				OrganizationCode: r.OrganizationCode,
				OrganizationName: r.OrganizationName,
			}
			byNurse[r.NurseID] = row
			order = append(order, r.NurseID)
		}

		minutes, defects := CheckRecord(r)
		row.TotalMinutes += minutes
		row.RecordCount++
		row.MissingFields = append(row.MissingFields, defects...)
	}

	result := make([]NurseHours, 0, len(order))
	for _, id := range order {
		result = append(result, *byNurse[id])
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].NurseID < result[j].NurseID
	})
	return result
}
