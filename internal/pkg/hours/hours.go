// Package hours parses "H:MM" durations into whole minutes and renders minutes as
// display strings or decimal hours.
package hours

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrMalformed = errors.New("duration must be in H:MM format")

var sixty = decimal.NewFromInt(60)

// ParseHM parses an "H:MM" string into whole minutes. Minutes must be within 0..59.
func ParseHM(s string) (int64, error) {
	s = strings.TrimSpace(s)
	h, m, ok := strings.Cut(s, ":")
	if !ok || h == "" || len(m) != 2 {
		return 0, ErrMalformed
	}

	hrs, err := strconv.ParseInt(h, 10, 64)
	if err != nil || hrs < 0 {
		return 0, ErrMalformed
	}
	mins, err := strconv.ParseInt(m, 10, 64)
	if err != nil || mins < 0 || mins > 59 {
		return 0, ErrMalformed
	}
	return hrs*60 + mins, nil
}

// FormatDisplay renders minutes as "Hhrs:MMmin", e.g. "16hrs:00min".
func FormatDisplay(minutes int64) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dhrs:%02dmin", minutes/60, minutes%60)
}

// ToDecimal converts minutes to decimal hours without rounding.
func ToDecimal(minutes int64) decimal.Decimal {
	return decimal.NewFromInt(minutes).Div(sixty)
}
