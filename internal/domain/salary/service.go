package salary

import "context"

type ConfigService interface {
	GetActiveConfig(ctx context.Context, nurseID string) (ConfigResponse, error)
	UpsertConfig(ctx context.Context, req UpsertConfigRequest) (ConfigResponse, error)
	ListConfigHistory(ctx context.Context, nurseID string) ([]ConfigResponse, error)
}

type PaymentService interface {
	// CreatePayment runs the payroll step for one nurse and period. Re-invoking it for
	// a pending or rejected payment recalculates that payment instead of inserting.
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (PaymentResponse, error)
	RecalculatePayment(ctx context.Context, req RecalculatePaymentRequest) (PaymentResponse, error)
	ApprovePayment(ctx context.Context, req ApprovePaymentRequest) (PaymentResponse, error)
	RejectPayment(ctx context.Context, req ChangeStatusRequest) (PaymentResponse, error)
	CancelPayment(ctx context.Context, req ChangeStatusRequest) (PaymentResponse, error)
	GetPayment(ctx context.Context, id string) (PaymentResponse, error)
	ListPayments(ctx context.Context, filter PaymentFilter) (ListPaymentResponse, error)

	AddBonus(ctx context.Context, req AdjustmentRequest) (AdjustmentResultResponse, error)
	AddDeduction(ctx context.Context, req AdjustmentRequest) (AdjustmentResultResponse, error)
	ListAdjustments(ctx context.Context, paymentID string) ([]AdjustmentResponse, error)
}
