package attendance

import "context"

type AttendanceService interface {
	// AggregateHours reduces attendance records into total hours per nurse
	AggregateHours(ctx context.Context, filter HoursFilter) (HoursReportResponse, error)

	// ListMissingFields returns the flattened data-quality report for the same filter
	ListMissingFields(ctx context.Context, filter HoursFilter) ([]MissingFieldResponse, error)
}
