// Package daybook posts summary transactions to the external bookkeeping service.
// Posting is one-way: a failed post never rolls back the local change.
package daybook

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	KindSalaryPayment EntryKind = "salary_payment"
	KindAdvance       EntryKind = "advance"
)

type Entry struct {
	Reference      string          `json:"reference"`
	Kind           EntryKind       `json:"kind"`
	OrganizationID string          `json:"organization_id"`
	NurseID        string          `json:"nurse_id"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	PaymentMethod  string          `json:"payment_method,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Attempts       int             `json:"attempts,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, entry Entry) error
}

// Noop discards entries. Used when no daybook is configured.
type Noop struct{}

func (Noop) Notify(ctx context.Context, entry Entry) error { return nil }
