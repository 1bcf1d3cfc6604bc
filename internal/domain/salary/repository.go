package salary

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type ConfigRepository interface {
	// GetActive returns the most recently updated active config, or ErrConfigNotFound
	GetActive(ctx context.Context, nurseID string) (Config, error)
	GetByID(ctx context.Context, id string, nurseID string) (Config, error)

	// Insert adds a new active version and deactivates the nurse's previous active rows
	Insert(ctx context.Context, cfg Config) (Config, error)

	// UpdateRate edits a version in place
	UpdateRate(ctx context.Context, id string, nurseID string, rate decimal.Decimal, actor string) (Config, error)

	// ListByNurse returns every version, newest first
	ListByNurse(ctx context.Context, nurseID string) ([]Config, error)
}

type StatusTransition struct {
	PaymentID            string
	From                 []PaymentStatus
	To                   PaymentStatus
	PaymentMethod        *string
	TransactionReference *string
	Actor                string
	At                   time.Time
	NoteLine             *string
}

type PaymentRepository interface {
	// Create inserts a pending payment; a duplicate (nurse, period) yields ErrPaymentAlreadyExists
	Create(ctx context.Context, p Payment) (Payment, error)
	GetByID(ctx context.Context, id string) (Payment, error)
	GetByNursePeriod(ctx context.Context, nurseID string, start, end time.Time) (Payment, error)
	List(ctx context.Context, filter PaymentFilter) ([]Payment, int64, error)

	// UpdateFigures overwrites numeric fields, config ref and notes of a recalculable
	// payment. ErrPaymentStateChanged when status no longer allows it.
	UpdateFigures(ctx context.Context, p Payment) (Payment, error)

	// Transition changes status when the current status is one of From.
	// ErrPaymentStateChanged when it is not.
	Transition(ctx context.Context, t StatusTransition) (Payment, error)

	// ApplyAdjustment adds amount to bonus or deductions, recomputes gross and net,
	// appends noteLine and records the adjustment in one transaction.
	ApplyAdjustment(ctx context.Context, adj Adjustment, noteLine string) (Payment, Adjustment, error)

	ListAdjustments(ctx context.Context, paymentID string) ([]Adjustment, error)
}
