package advance

import "context"

type AdvanceService interface {
	Create(ctx context.Context, req CreateAdvanceRequest) (AdvanceResponse, error)
	Get(ctx context.Context, id string) (AdvanceResponse, error)
	List(ctx context.Context, filter AdvanceFilter) (ListAdvanceResponse, error)
	Update(ctx context.Context, req UpdateAdvanceRequest) (AdvanceResponse, error)
	Delete(ctx context.Context, id string) error
	SetApproval(ctx context.Context, req SetApprovalRequest) (AdvanceResponse, error)
	RecordRepayment(ctx context.Context, req RepaymentRequest) (RepaymentResultResponse, error)
	ListRepayments(ctx context.Context, advanceID string) ([]RepaymentResponse, error)
	Totals(ctx context.Context, filter AdvanceFilter) (TotalsResponse, error)
}
