package nurse

import "time"

// Nurse is created at onboarding and is read-only here.
type Nurse struct {
	ID             string
	OrganizationID string
	FullName       string
	RegistrationNo string
	CreatedAt      time.Time

	// Joined fields
	OrganizationCode string
	OrganizationName string
}

type Organization struct {
	ID   string
	Code string
	Name string
}
