package advance

import (
	"context"
	"time"
)

type AdvanceRepository interface {
	Create(ctx context.Context, a Advance) (Advance, error)
	GetByID(ctx context.Context, id string) (Advance, error)
	List(ctx context.Context, filter AdvanceFilter) ([]Advance, int64, error)

	// Update writes the mutable fields of a merged entry only while the stored status
	// is still expected and returned_amount still equals a.ReturnedAmount; otherwise
	// ErrAdvanceChanged. The store rejects an amount below returned_amount with
	// ErrAmountBelowReturned.
	Update(ctx context.Context, a Advance, expected Status) (Advance, error)

	// DeleteCreatedAfter deletes the entry only if created_at >= notBefore.
	// ErrDeleteWindowExpired when the row exists but is older.
	DeleteCreatedAfter(ctx context.Context, id string, notBefore time.Time) error

	// SetApproval stamps the approval flag. Approving moves PENDING or REJECTED to
	// APPROVED. Withdrawing approval rejects only an entry with nothing returned yet;
	// a partly repaid entry goes back to PENDING and COMPLETED is never touched.
	SetApproval(ctx context.Context, id string, approved bool, actor string, at time.Time) (Advance, error)

	// RecordRepayment increases returned_amount only while it stays <= amount, marks the
	// entry COMPLETED at zero balance and inserts the repayment row, in one transaction.
	RecordRepayment(ctx context.Context, r Repayment) (Advance, Repayment, error)
	ListRepayments(ctx context.Context, advanceID string) ([]Repayment, error)

	Totals(ctx context.Context, filter AdvanceFilter) (Totals, error)
}
