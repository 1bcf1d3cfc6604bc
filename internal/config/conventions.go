package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Conventions are the organization-level display and attendance defaults.
type Conventions struct {
	CurrencySymbol string                        `yaml:"currency_symbol"`
	Organizations  map[string]OrganizationPolicy `yaml:"organizations"`
}

type OrganizationPolicy struct {
	DisplayName           string `yaml:"display_name"`
	DefaultAttendanceMode string `yaml:"default_attendance_mode"`
}

func DefaultConventions() Conventions {
	return Conventions{
		CurrencySymbol: "₹",
		Organizations:  map[string]OrganizationPolicy{},
	}
}

// LoadConventions reads the YAML conventions file. An empty path yields the defaults.
func LoadConventions(path string) (Conventions, error) {
	conv := DefaultConventions()
	if path == "" {
		return conv, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return conv, fmt.Errorf("read conventions file: %w", err)
	}
	if err := yaml.Unmarshal(data, &conv); err != nil {
		return conv, fmt.Errorf("parse conventions file: %w", err)
	}
	if conv.CurrencySymbol == "" {
		conv.CurrencySymbol = "₹"
	}
	for code, policy := range conv.Organizations {
		switch policy.DefaultAttendanceMode {
		case "", "daily", "shift_based":
		default:
			return conv, fmt.Errorf("organization %s: unknown default_attendance_mode %q", code, policy.DefaultAttendanceMode)
		}
	}
	return conv, nil
}

// AttendanceModeFor returns the default attendance mode for an organization code.
func (c Conventions) AttendanceModeFor(orgCode string) string {
	if p, ok := c.Organizations[orgCode]; ok && p.DefaultAttendanceMode != "" {
		return p.DefaultAttendanceMode
	}
	return "daily"
}

// DisplayName returns the configured display name, falling back to the given name.
func (c Conventions) DisplayName(orgCode, fallback string) string {
	if p, ok := c.Organizations[orgCode]; ok && p.DisplayName != "" {
		return p.DisplayName
	}
	return fallback
}
