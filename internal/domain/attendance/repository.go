package attendance

import (
	"context"
	"time"
)

type RecordFilter struct {
	DateFrom       time.Time
	DateTo         time.Time
	NurseID        *string
	OrganizationID *string
}

// AttendanceRepository reads attendance records joined to assignment, nurse and organization.
type AttendanceRepository interface {
	// ListRecords returns records with date in [DateFrom, DateTo], ordered by nurse then date
	ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error)
}
