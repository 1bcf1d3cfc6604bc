package advance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/advance"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/nurse"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/daybook"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/homecare-payroll/internal/service/file"
)

type AdvanceServiceImpl struct {
	advanceRepo  advance.AdvanceRepository
	nurseRepo    nurse.NurseRepository
	receipts     file.ReceiptService
	notifier     daybook.Notifier
	deleteWindow time.Duration
	now          func() time.Time
}

func NewAdvanceService(
	advanceRepo advance.AdvanceRepository,
	nurseRepo nurse.NurseRepository,
	receipts file.ReceiptService,
	notifier daybook.Notifier,
	deleteWindow time.Duration,
) advance.AdvanceService {
	if notifier == nil {
		notifier = daybook.Noop{}
	}
	if deleteWindow <= 0 {
		deleteWindow = 24 * time.Hour
	}
	return &AdvanceServiceImpl{
		advanceRepo:  advanceRepo,
		nurseRepo:    nurseRepo,
		receipts:     receipts,
		notifier:     notifier,
		deleteWindow: deleteWindow,
		now:          time.Now,
	}
}

func (s *AdvanceServiceImpl) getAdvance(ctx context.Context, op jwt.Operator, id string) (advance.Advance, error) {
	a, err := s.advanceRepo.GetByID(ctx, id)
	if err != nil {
		return advance.Advance{}, err
	}
	if !op.Allows(a.OrganizationID) {
		return advance.Advance{}, advance.ErrAdvanceNotFound
	}
	return a, nil
}

// Create implements advance.AdvanceService.
func (s *AdvanceServiceImpl) Create(ctx context.Context, req advance.CreateAdvanceRequest) (advance.AdvanceResponse, error) {
	a, err := req.ToEntity()
	if err != nil {
		return advance.AdvanceResponse{}, err
	}

	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return advance.AdvanceResponse{}, err
	}

	n, err := s.nurseRepo.GetByID(ctx, a.NurseID)
	if err != nil {
		return advance.AdvanceResponse{}, err
	}
	if !op.Allows(n.OrganizationID) {
		return advance.AdvanceResponse{}, nurse.ErrNurseNotFound
	}
	a.OrganizationID = n.OrganizationID
	a.CreatedBy = &op.UserID

	if req.Receipt != nil && req.ReceiptHeader != nil {
		path, err := s.receipts.UploadReceipt(ctx, n.ID, req.Receipt, req.ReceiptHeader.Filename)
		if err != nil {
			return advance.AdvanceResponse{}, err
		}
		a.ReceiptPath = &path
	}

	created, err := s.advanceRepo.Create(ctx, a)
	if err != nil {
		if a.ReceiptPath != nil {
			if delErr := s.receipts.DeleteReceipt(ctx, *a.ReceiptPath); delErr != nil {
				slog.Warn("failed to remove orphaned receipt", "path", *a.ReceiptPath, "error", delErr)
			}
		}
		return advance.AdvanceResponse{}, err
	}

	slog.Info("advance payment created", "advance_id", created.ID, "nurse_id", created.NurseID, "amount", created.Amount.String())
	return s.toAdvanceResponse(ctx, created), nil
}

// Get implements advance.AdvanceService.
func (s *AdvanceServiceImpl) Get(ctx context.Context, id string) (advance.AdvanceResponse, error) {
	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return advance.AdvanceResponse{}, err
	}

	a, err := s.getAdvance(ctx, op, id)
	if err != nil {
		return advance.AdvanceResponse{}, err
	}
	return s.toAdvanceResponse(ctx, a), nil
}

// List implements advance.AdvanceService.
func (s *AdvanceServiceImpl) List(ctx context.Context, filter advance.AdvanceFilter) (advance.ListAdvanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return advance.ListAdvanceResponse{}, err
	}

	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return advance.ListAdvanceResponse{}, err
	}
	filter.OrganizationID = op.ScopeOrganization(filter.OrganizationID)

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	advances, total, err := s.advanceRepo.List(ctx, filter)
	if err != nil {
		return advance.ListAdvanceResponse{}, err
	}

	data := make([]advance.AdvanceResponse, 0, len(advances))
	for _, a := range advances {
		data = append(data, s.toAdvanceResponse(ctx, a))
	}

	return advance.ListAdvanceResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// Update implements advance.AdvanceService.
func (s *AdvanceServiceImpl) Update(ctx context.Context, req advance.UpdateAdvanceRequest) (advance.AdvanceResponse, error) {
	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return advance.AdvanceResponse{}, err
	}

	current, err := s.getAdvance(ctx, op, req.ID)
	if err != nil {
		return advance.AdvanceResponse{}, err
	}

	if req.Status != nil {
		switch advance.Status(*req.Status) {
		case advance.StatusApproved, advance.StatusRejected:
			if !op.CanApprove() {
				return advance.AdvanceResponse{}, advance.ErrApprovalNotPermitted
			}
		}
	}

	merged, err := req.Merge(current)
	if err != nil {
		return advance.AdvanceResponse{}, err
	}
	merged.UpdatedBy = &op.UserID

	updated, err := s.advanceRepo.Update(ctx, merged, current.Status)
	if err != nil {
		return advance.AdvanceResponse{}, err
	}
	return s.toAdvanceResponse(ctx, updated), nil
}

// Delete implements advance.AdvanceService. The receipt is removed before the row.
func (s *AdvanceServiceImpl) Delete(ctx context.Context, id string) error {
	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return err
	}

	a, err := s.getAdvance(ctx, op, id)
	if err != nil {
		return err
	}

	now := s.now()
	if !a.DeletableAt(now, s.deleteWindow) {
		return advance.ErrDeleteWindowExpired
	}

	if a.ReceiptPath != nil {
		if err := s.receipts.DeleteReceipt(ctx, *a.ReceiptPath); err != nil {
			return fmt.Errorf("failed to delete receipt: %w", err)
		}
	}

	if err := s.advanceRepo.DeleteCreatedAfter(ctx, a.ID, now.Add(-s.deleteWindow)); err != nil {
		return err
	}

	slog.Info("advance payment deleted", "advance_id", a.ID, "actor", op.UserID)
	return nil
}

// SetApproval implements advance.AdvanceService.
func (s *AdvanceServiceImpl) SetApproval(ctx context.Context, req advance.SetApprovalRequest) (advance.AdvanceResponse, error) {
	if err := req.Validate(); err != nil {
		return advance.AdvanceResponse{}, err
	}

	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return advance.AdvanceResponse{}, err
	}
	if !op.CanApprove() {
		return advance.AdvanceResponse{}, advance.ErrApprovalNotPermitted
	}

	current, err := s.getAdvance(ctx, op, req.ID)
	if err != nil {
		return advance.AdvanceResponse{}, err
	}

	updated, err := s.advanceRepo.SetApproval(ctx, current.ID, *req.Approved, op.UserID, s.now())
	if err != nil {
		return advance.AdvanceResponse{}, err
	}

	if updated.Approved && !current.Approved {
		s.notifyDaybook(ctx, updated)
	}
	return s.toAdvanceResponse(ctx, updated), nil
}

func (s *AdvanceServiceImpl) notifyDaybook(ctx context.Context, a advance.Advance) {
	entry := daybook.Entry{
		Reference:      a.ID,
		Kind:           daybook.KindAdvance,
		OrganizationID: a.OrganizationID,
		NurseID:        a.NurseID,
		Amount:         a.Amount,
		Description:    fmt.Sprintf("Advance %s on %s", a.TransactionType, a.TransactionDate.Format("2006-01-02")),
		OccurredAt:     s.now(),
	}
	if a.PaymentMethod != nil {
		entry.PaymentMethod = *a.PaymentMethod
	}

	if err := s.notifier.Notify(ctx, entry); err != nil {
		slog.Warn("daybook notification failed", "advance_id", a.ID, "error", err)
	}
}

// RecordRepayment implements advance.AdvanceService.
func (s *AdvanceServiceImpl) RecordRepayment(ctx context.Context, req advance.RepaymentRequest) (advance.RepaymentResultResponse, error) {
	repaidOn, err := req.Validate()
	if err != nil {
		return advance.RepaymentResultResponse{}, err
	}

	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return advance.RepaymentResultResponse{}, err
	}

	a, err := s.getAdvance(ctx, op, req.AdvanceID)
	if err != nil {
		return advance.RepaymentResultResponse{}, err
	}
	if !a.Status.AcceptsRepayment() {
		return advance.RepaymentResultResponse{}, advance.ErrAdvanceClosed
	}
	if req.Amount.GreaterThan(a.Remaining()) {
		return advance.RepaymentResultResponse{}, advance.ErrRepaymentExceedsBalance
	}

	updated, rp, err := s.advanceRepo.RecordRepayment(ctx, advance.Repayment{
		AdvanceID: a.ID,
		Amount:    req.Amount,
		RepaidOn:  repaidOn,
		Notes:     req.Notes,
		CreatedBy: op.UserID,
	})
	if err != nil {
		return advance.RepaymentResultResponse{}, err
	}

	slog.Info("advance repayment recorded",
		"advance_id", a.ID,
		"amount", rp.Amount.String(),
		"remaining", updated.Remaining().String(),
	)
	return advance.RepaymentResultResponse{
		Advance:   s.toAdvanceResponse(ctx, updated),
		Repayment: toRepaymentResponse(rp),
	}, nil
}

// ListRepayments implements advance.AdvanceService.
func (s *AdvanceServiceImpl) ListRepayments(ctx context.Context, advanceID string) ([]advance.RepaymentResponse, error) {
	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.getAdvance(ctx, op, advanceID); err != nil {
		return nil, err
	}

	repayments, err := s.advanceRepo.ListRepayments(ctx, advanceID)
	if err != nil {
		return nil, err
	}

	result := make([]advance.RepaymentResponse, 0, len(repayments))
	for _, rp := range repayments {
		result = append(result, toRepaymentResponse(rp))
	}
	return result, nil
}

// Totals implements advance.AdvanceService.
func (s *AdvanceServiceImpl) Totals(ctx context.Context, filter advance.AdvanceFilter) (advance.TotalsResponse, error) {
	if err := filter.Validate(); err != nil {
		return advance.TotalsResponse{}, err
	}

	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return advance.TotalsResponse{}, err
	}
	filter.OrganizationID = op.ScopeOrganization(filter.OrganizationID)

	t, err := s.advanceRepo.Totals(ctx, filter)
	if err != nil {
		return advance.TotalsResponse{}, err
	}

	return advance.TotalsResponse{
		Count:         t.Count,
		Given:         t.Given,
		Returned:      t.Returned,
		Outstanding:   t.Outstanding(),
		ApprovedGiven: t.ApprovedGiven,
	}, nil
}

func (s *AdvanceServiceImpl) toAdvanceResponse(ctx context.Context, a advance.Advance) advance.AdvanceResponse {
	resp := advance.AdvanceResponse{
		ID:                a.ID,
		NurseID:           a.NurseID,
		NurseName:         a.NurseName,
		RegistrationNo:    a.RegistrationNo,
		OrganizationID:    a.OrganizationID,
		TransactionDate:   a.TransactionDate.Format("2006-01-02"),
		Amount:            a.Amount,
		ReturnedAmount:    a.ReturnedAmount,
		RemainingAmount:   a.Remaining(),
		TransactionType:   a.TransactionType,
		Status:            string(a.Status),
		ReturnType:        string(a.ReturnType),
		InstallmentAmount: a.InstallmentAmount,
		PaymentMethod:     a.PaymentMethod,
		Notes:             a.Notes,
		Approved:          a.Approved,
		ApprovedBy:        a.ApprovedBy,
		ApprovedAt:        a.ApprovedAt,
		DeletableUntil:    a.CreatedAt.Add(s.deleteWindow),
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}

	if a.ReceiptPath != nil && *a.ReceiptPath != "" {
		url, err := s.receipts.ReceiptURL(ctx, *a.ReceiptPath)
		if err != nil {
			slog.Warn("failed to sign receipt url", "advance_id", a.ID, "error", err)
		} else {
			resp.ReceiptURL = &url
		}
	}
	return resp
}

func toRepaymentResponse(rp advance.Repayment) advance.RepaymentResponse {
	return advance.RepaymentResponse{
		ID:        rp.ID,
		AdvanceID: rp.AdvanceID,
		Amount:    rp.Amount,
		RepaidOn:  rp.RepaidOn.Format("2006-01-02"),
		Notes:     rp.Notes,
		CreatedBy: rp.CreatedBy,
		CreatedAt: rp.CreatedAt,
	}
}
