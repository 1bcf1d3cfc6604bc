package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func record(nurseID, name, date, total string) Record {
	d, _ := time.Parse("2006-01-02", date)
	r := Record{
		ID:             nurseID + "-" + date,
		NurseID:        nurseID,
		NurseName:      name,
		Date:           d,
		CheckIn:        strPtr("08:00"),
		CheckOut:       strPtr("16:00"),
		ShiftStartTime: strPtr("08:00:00"),
		ShiftEndTime:   strPtr("16:00:00"),
	}
	if total != "" {
		r.TotalHours = strPtr(total)
	}
	return r
}

func TestAggregateSumsMinutes(t *testing.T) {
	rows := Aggregate([]Record{
		record("n1", "Asha", "2024-03-01", "7:45"),
		record("n1", "Asha", "2024-03-02", "8:15"),
	})

	require.Len(t, rows, 1)
	assert.Equal(t, int64(960), rows[0].TotalMinutes)
	assert.Equal(t, 2, rows[0].RecordCount)
	assert.Empty(t, rows[0].MissingFields)
}

func TestAggregateFlagsMissingAndMalformed(t *testing.T) {
	noTotal := record("n1", "Asha", "2024-03-01", "")
	noTotal.CheckOut = nil
	blankShift := record("n1", "Asha", "2024-03-02", "bad")
	blankShift.ShiftEndTime = strPtr("  ")

	rows := Aggregate([]Record{noTotal, blankShift, record("n1", "Asha", "2024-03-03", "1:30")})
	require.Len(t, rows, 1)
	assert.Equal(t, int64(90), rows[0].TotalMinutes)

	var got []string
	for _, m := range rows[0].MissingFields {
		got = append(got, m.Date.Format("2006-01-02")+" "+m.Field+" "+m.Reason)
	}
	assert.Equal(t, []string{
		"2024-03-01 check_out missing",
		"2024-03-01 total_hours missing",
		"2024-03-02 total_hours malformed",
		"2024-03-02 shift_end_time missing",
	}, got)
}

func TestAggregateOrdersByNameWithoutPlaceholders(t *testing.T) {
	rows := Aggregate([]Record{
		record("n2", "Zara", "2024-03-01", "4:00"),
		record("n1", "Bina", "2024-03-01", "3:00"),
		record("n2", "Zara", "2024-03-02", "4:30"),
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "Bina", rows[0].Name)
	assert.Equal(t, "Zara", rows[1].Name)
	assert.Equal(t, int64(510), rows[1].TotalMinutes)

	assert.Empty(t, Aggregate(nil))
}

func TestCheckRecordAllFieldsMissing(t *testing.T) {
	minutes, defects := CheckRecord(Record{ID: "r1", NurseID: "n1"})
	assert.Zero(t, minutes)
	assert.Len(t, defects, 5)
}
