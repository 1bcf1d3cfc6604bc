package salary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/config"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/nurse"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/salary"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/shift"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/daybook"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/jwt"
	"github.com/shopspring/decimal"
)

type PaymentServiceImpl struct {
	paymentRepo    salary.PaymentRepository
	configRepo     salary.ConfigRepository
	nurseRepo      nurse.NurseRepository
	attendanceRepo attendance.AttendanceRepository
	assignmentRepo shift.AssignmentRepository
	notifier       daybook.Notifier
	conventions    config.Conventions
	now            func() time.Time
}

func NewPaymentService(
	paymentRepo salary.PaymentRepository,
	configRepo salary.ConfigRepository,
	nurseRepo nurse.NurseRepository,
	attendanceRepo attendance.AttendanceRepository,
	assignmentRepo shift.AssignmentRepository,
	notifier daybook.Notifier,
	conventions config.Conventions,
) salary.PaymentService {
	if notifier == nil {
		notifier = daybook.Noop{}
	}
	return &PaymentServiceImpl{
		paymentRepo:    paymentRepo,
		configRepo:     configRepo,
		nurseRepo:      nurseRepo,
		attendanceRepo: attendanceRepo,
		assignmentRepo: assignmentRepo,
		notifier:       notifier,
		conventions:    conventions,
		now:            time.Now,
	}
}

// getPayment loads a payment the operator is allowed to see.
func (s *PaymentServiceImpl) getPayment(ctx context.Context, op jwt.Operator, id string) (salary.Payment, error) {
	p, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return salary.Payment{}, err
	}
	if !op.Allows(p.OrganizationID) {
		return salary.Payment{}, salary.ErrPaymentNotFound
	}
	return p, nil
}

// rateChoice is the outcome of resolving the hourly rate for a payroll run.
// Insert is set when a new config version must be written before the payment.
type rateChoice struct {
	Rate     decimal.Decimal
	ConfigID *string
	Insert   bool
}

// chooseRate decides which config a payroll run uses without writing anything:
// no active config inserts one, a supplied rate that differs from the active one
// inserts a new version, otherwise the active config is reused.
func (s *PaymentServiceImpl) chooseRate(ctx context.Context, nurseID string, supplied *decimal.Decimal) (rateChoice, error) {
	active, err := s.configRepo.GetActive(ctx, nurseID)
	if err != nil && !errors.Is(err, salary.ErrConfigNotFound) {
		return rateChoice{}, err
	}
	hasActive := err == nil

	if supplied == nil {
		if hasActive {
			return rateChoice{Rate: active.HourlyRate, ConfigID: &active.ID}, nil
		}
		return rateChoice{Rate: decimal.Zero, Insert: true}, nil
	}

	rate := salary.RoundMoney(*supplied)
	if hasActive && active.HourlyRate.Equal(rate) {
		return rateChoice{Rate: rate, ConfigID: &active.ID}, nil
	}
	return rateChoice{Rate: rate, Insert: true}, nil
}

// insertConfig writes a new active config version. When another run activated a
// config for the nurse first and its rate matches, that config is used instead.
func (s *PaymentServiceImpl) insertConfig(ctx context.Context, nurseID string, rate decimal.Decimal, actor string) (salary.Config, error) {
	cfg, err := s.configRepo.Insert(ctx, salary.Config{
		NurseID:    nurseID,
		HourlyRate: rate,
		IsActive:   true,
		CreatedBy:  &actor,
	})
	if err == nil {
		slog.Info("salary config version created", "nurse_id", nurseID, "config_id", cfg.ID, "hourly_rate", cfg.HourlyRate.String())
		return cfg, nil
	}
	if !errors.Is(err, salary.ErrConfigChanged) {
		return salary.Config{}, err
	}

	active, getErr := s.configRepo.GetActive(ctx, nurseID)
	if getErr != nil || !active.HourlyRate.Equal(rate) {
		return salary.Config{}, err
	}
	slog.Info("salary config activated concurrently, reusing it", "nurse_id", nurseID, "config_id", active.ID)
	return active, nil
}

func valueOr(v *decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	if v == nil {
		return fallback
	}
	return salary.RoundMoney(*v)
}

// figuresFor computes salary figures. Hours stay exact for the multiplication and
// are stored at 4 places.
func figuresFor(in salary.FigureInputs) (salary.Figures, error) {
	f := salary.ComputeFigures(in)
	if f.NetSalary.IsNegative() {
		return salary.Figures{}, salary.ErrNegativeNetSalary
	}
	f.HoursWorked = f.HoursWorked.Round(4)
	return f, nil
}

// CreatePayment implements salary.PaymentService.
//
// The run has two writes: the rate config, then the payment. They are not one
// transaction. When the config write succeeded and the payment write failed the
// caller gets a *salary.PaymentNotRecordedError and can resend the same request;
// the second run finds the config already in place and reuses it.
func (s *PaymentServiceImpl) CreatePayment(ctx context.Context, req salary.CreatePaymentRequest) (salary.PaymentResponse, error) {
	start, end, err := req.Validate()
	if err != nil {
		return salary.PaymentResponse{}, err
	}

	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return salary.PaymentResponse{}, err
	}

	n, err := visibleNurse(ctx, s.nurseRepo, op, req.NurseID)
	if err != nil {
		return salary.PaymentResponse{}, err
	}

	existing, err := s.paymentRepo.GetByNursePeriod(ctx, n.ID, start, end)
	switch {
	case err == nil:
		if !existing.Status.Recalculable() {
			return salary.PaymentResponse{}, salary.ErrPaymentAlreadyExists
		}
	case errors.Is(err, salary.ErrPaymentNotFound):
		existing = salary.Payment{}
	default:
		return salary.PaymentResponse{}, err
	}

	worked, err := collectWorkedTime(ctx, s.attendanceRepo, s.assignmentRepo, n.ID, start, end)
	if err != nil {
		return salary.PaymentResponse{}, err
	}
	hoursWorked := worked.Hours()
	if req.HoursWorked != nil {
		hoursWorked = *req.HoursWorked
	}

	choice, err := s.chooseRate(ctx, n.ID, req.HourlyRate)
	if err != nil {
		return salary.PaymentResponse{}, err
	}

	base := existing.Inputs()
	if existing.ID == "" {
		base = salary.FigureInputs{BasePay: decimal.Zero, Allowance: decimal.Zero, Bonus: decimal.Zero, Deductions: decimal.Zero}
	}
	figures, err := figuresFor(salary.FigureInputs{
		BasePay:     valueOr(req.BasePay, base.BasePay),
		HourlyRate:  choice.Rate,
		HoursWorked: hoursWorked,
		Allowance:   valueOr(req.Allowance, base.Allowance),
		Bonus:       valueOr(req.Bonus, base.Bonus),
		Deductions:  valueOr(req.Deductions, base.Deductions),
	})
	if err != nil {
		return salary.PaymentResponse{}, err
	}

	// Step 1: rate config.
	if choice.Insert {
		cfg, err := s.insertConfig(ctx, n.ID, choice.Rate, op.UserID)
		if err != nil {
			return salary.PaymentResponse{}, err
		}
		choice.ConfigID = &cfg.ID
	}

	// Step 2: payment.
	var saved salary.Payment
	if existing.ID != "" {
		p := existing
		p.ApplyFigures(figures)
		p.SalaryConfigID = choice.ConfigID
		p.AttendanceDays = worked.Days
		if req.Notes != nil {
			p.Notes = req.Notes
		}
		saved, err = s.paymentRepo.UpdateFigures(ctx, p)
	} else {
		p := salary.Payment{
			NurseID:        n.ID,
			OrganizationID: n.OrganizationID,
			SalaryConfigID: choice.ConfigID,
			PayPeriodStart: start,
			PayPeriodEnd:   end,
			AttendanceDays: worked.Days,
			Status:         salary.PaymentStatusPending,
			Notes:          req.Notes,
			CreatedBy:      &op.UserID,
		}
		p.ApplyFigures(figures)
		saved, err = s.paymentRepo.Create(ctx, p)
	}
	if err != nil {
		if choice.Insert && !errors.Is(err, salary.ErrPaymentAlreadyExists) {
			slog.Error("salary payment not recorded after config change",
				"nurse_id", n.ID, "config_id", *choice.ConfigID, "error", err)
			return salary.PaymentResponse{}, &salary.PaymentNotRecordedError{ConfigID: *choice.ConfigID, Err: err}
		}
		return salary.PaymentResponse{}, err
	}

	slog.Info("salary payment calculated",
		"payment_id", saved.ID,
		"nurse_id", saved.NurseID,
		"net_salary", saved.NetSalary.String(),
		"recalculated", existing.ID != "",
	)
	return toPaymentResponse(saved), nil
}

// RecalculatePayment implements salary.PaymentService.
func (s *PaymentServiceImpl) RecalculatePayment(ctx context.Context, req salary.RecalculatePaymentRequest) (salary.PaymentResponse, error) {
	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return salary.PaymentResponse{}, err
	}

	p, err := s.getPayment(ctx, op, req.PaymentID)
	if err != nil {
		return salary.PaymentResponse{}, err
	}
	if !p.Status.Recalculable() {
		return salary.PaymentResponse{}, salary.ErrPaymentNotRecalculable
	}

	worked, err := collectWorkedTime(ctx, s.attendanceRepo, s.assignmentRepo, p.NurseID, p.PayPeriodStart, p.PayPeriodEnd)
	if err != nil {
		return salary.PaymentResponse{}, err
	}

	in := p.Inputs()
	in.HoursWorked = worked.Hours()

	if req.UseActiveRate {
		cfg, err := s.configRepo.GetActive(ctx, p.NurseID)
		switch {
		case err == nil:
			in.HourlyRate = cfg.HourlyRate
			p.SalaryConfigID = &cfg.ID
		case errors.Is(err, salary.ErrConfigNotFound):
			in.HourlyRate = decimal.Zero
			p.SalaryConfigID = nil
		default:
			return salary.PaymentResponse{}, err
		}
	}
	if req.ClearAdjustments {
		in.Bonus = decimal.Zero
		in.Deductions = decimal.Zero
		p.Notes = nil
	}

	figures, err := figuresFor(in)
	if err != nil {
		return salary.PaymentResponse{}, err
	}
	p.ApplyFigures(figures)
	p.AttendanceDays = worked.Days

	updated, err := s.paymentRepo.UpdateFigures(ctx, p)
	if err != nil {
		if errors.Is(err, salary.ErrPaymentStateChanged) {
			return salary.PaymentResponse{}, salary.ErrPaymentNotRecalculable
		}
		return salary.PaymentResponse{}, err
	}
	return toPaymentResponse(updated), nil
}

// statusConflict maps the current status to the error for a transition that is
// not allowed from it.
func statusConflict(current salary.PaymentStatus) error {
	switch current {
	case salary.PaymentStatusPaid:
		return salary.ErrPaymentAlreadyPaid
	case salary.PaymentStatusCancelled:
		return salary.ErrPaymentCancelled
	}
	return salary.ErrInvalidTransition
}

func allowedFrom(current salary.PaymentStatus, from []salary.PaymentStatus) bool {
	for _, f := range from {
		if current == f {
			return true
		}
	}
	return false
}

// transition applies a guarded status change and re-reads the row when the guard fails.
func (s *PaymentServiceImpl) transition(ctx context.Context, p salary.Payment, t salary.StatusTransition) (salary.Payment, error) {
	if !allowedFrom(p.Status, t.From) {
		return salary.Payment{}, statusConflict(p.Status)
	}

	updated, err := s.paymentRepo.Transition(ctx, t)
	if err != nil {
		if errors.Is(err, salary.ErrPaymentStateChanged) {
			current, getErr := s.paymentRepo.GetByID(ctx, p.ID)
			if getErr != nil {
				return salary.Payment{}, getErr
			}
			return salary.Payment{}, statusConflict(current.Status)
		}
		return salary.Payment{}, err
	}
	return updated, nil
}

// ApprovePayment implements salary.PaymentService.
func (s *PaymentServiceImpl) ApprovePayment(ctx context.Context, req salary.ApprovePaymentRequest) (salary.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return salary.PaymentResponse{}, err
	}

	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return salary.PaymentResponse{}, err
	}
	if !op.CanApprove() {
		return salary.PaymentResponse{}, salary.ErrApprovalNotPermitted
	}

	p, err := s.getPayment(ctx, op, req.PaymentID)
	if err != nil {
		return salary.PaymentResponse{}, err
	}

	to := salary.PaymentStatus(req.Status)
	from := []salary.PaymentStatus{salary.PaymentStatusPending}
	if to == salary.PaymentStatusPaid {
		from = append(from, salary.PaymentStatusApproved)
	}

	updated, err := s.transition(ctx, p, salary.StatusTransition{
		PaymentID:            p.ID,
		From:                 from,
		To:                   to,
		PaymentMethod:        req.PaymentMethod,
		TransactionReference: req.TransactionReference,
		Actor:                op.UserID,
		At:                   s.now(),
	})
	if err != nil {
		return salary.PaymentResponse{}, err
	}

	s.notifyDaybook(ctx, updated)
	return toPaymentResponse(updated), nil
}

// notifyDaybook posts the approval to the external daybook. Failures never undo
// the approval.
func (s *PaymentServiceImpl) notifyDaybook(ctx context.Context, p salary.Payment) {
	entry := daybook.Entry{
		Reference:      p.ID + ":" + string(p.Status),
		Kind:           daybook.KindSalaryPayment,
		OrganizationID: p.OrganizationID,
		NurseID:        p.NurseID,
		Amount:         p.NetSalary,
		Description: fmt.Sprintf("Salary %s to %s (%s)",
			p.PayPeriodStart.Format("2006-01-02"), p.PayPeriodEnd.Format("2006-01-02"), p.Status),
		OccurredAt: s.now(),
	}
	if p.NurseName != nil {
		entry.Description += " " + *p.NurseName
	}
	if p.PaymentMethod != nil {
		entry.PaymentMethod = *p.PaymentMethod
	}

	if err := s.notifier.Notify(ctx, entry); err != nil {
		slog.Warn("daybook notification failed", "payment_id", p.ID, "error", err)
	}
}

func reasonNote(prefix, reason string) *string {
	if reason == "" {
		return nil
	}
	line := prefix + ": " + reason
	return &line
}

// RejectPayment implements salary.PaymentService.
func (s *PaymentServiceImpl) RejectPayment(ctx context.Context, req salary.ChangeStatusRequest) (salary.PaymentResponse, error) {
	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return salary.PaymentResponse{}, err
	}
	if !op.CanApprove() {
		return salary.PaymentResponse{}, salary.ErrApprovalNotPermitted
	}

	p, err := s.getPayment(ctx, op, req.PaymentID)
	if err != nil {
		return salary.PaymentResponse{}, err
	}

	updated, err := s.transition(ctx, p, salary.StatusTransition{
		PaymentID: p.ID,
		From:      []salary.PaymentStatus{salary.PaymentStatusPending, salary.PaymentStatusApproved},
		To:        salary.PaymentStatusRejected,
		Actor:     op.UserID,
		At:        s.now(),
		NoteLine:  reasonNote("Rejected", req.Reason),
	})
	if err != nil {
		return salary.PaymentResponse{}, err
	}
	return toPaymentResponse(updated), nil
}

// CancelPayment implements salary.PaymentService.
func (s *PaymentServiceImpl) CancelPayment(ctx context.Context, req salary.ChangeStatusRequest) (salary.PaymentResponse, error) {
	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return salary.PaymentResponse{}, err
	}

	p, err := s.getPayment(ctx, op, req.PaymentID)
	if err != nil {
		return salary.PaymentResponse{}, err
	}

	updated, err := s.transition(ctx, p, salary.StatusTransition{
		PaymentID: p.ID,
		From: []salary.PaymentStatus{
			salary.PaymentStatusPending, salary.PaymentStatusApproved, salary.PaymentStatusRejected,
		},
		To:       salary.PaymentStatusCancelled,
		Actor:    op.UserID,
		At:       s.now(),
		NoteLine: reasonNote("Cancelled", req.Reason),
	})
	if err != nil {
		return salary.PaymentResponse{}, err
	}
	return toPaymentResponse(updated), nil
}

// GetPayment implements salary.PaymentService.
func (s *PaymentServiceImpl) GetPayment(ctx context.Context, id string) (salary.PaymentResponse, error) {
	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return salary.PaymentResponse{}, err
	}

	p, err := s.getPayment(ctx, op, id)
	if err != nil {
		return salary.PaymentResponse{}, err
	}
	return toPaymentResponse(p), nil
}

// ListPayments implements salary.PaymentService.
func (s *PaymentServiceImpl) ListPayments(ctx context.Context, filter salary.PaymentFilter) (salary.ListPaymentResponse, error) {
	if err := filter.Validate(); err != nil {
		return salary.ListPaymentResponse{}, err
	}

	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return salary.ListPaymentResponse{}, err
	}
	filter.OrganizationID = op.ScopeOrganization(filter.OrganizationID)

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	payments, total, err := s.paymentRepo.List(ctx, filter)
	if err != nil {
		return salary.ListPaymentResponse{}, err
	}

	data := make([]salary.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		data = append(data, toPaymentResponse(p))
	}

	return salary.ListPaymentResponse{
		Data:       data,
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}, nil
}

// AddBonus implements salary.PaymentService.
func (s *PaymentServiceImpl) AddBonus(ctx context.Context, req salary.AdjustmentRequest) (salary.AdjustmentResultResponse, error) {
	return s.adjust(ctx, req, salary.AdjustmentBonus)
}

// AddDeduction implements salary.PaymentService.
func (s *PaymentServiceImpl) AddDeduction(ctx context.Context, req salary.AdjustmentRequest) (salary.AdjustmentResultResponse, error) {
	return s.adjust(ctx, req, salary.AdjustmentDeduction)
}

func adjustmentConflict(p salary.Payment, kind salary.AdjustmentKind, amount decimal.Decimal) error {
	if !p.Status.Adjustable() {
		return salary.ErrPaymentNotAdjustable
	}
	if kind == salary.AdjustmentDeduction && p.NetSalary.Sub(amount).IsNegative() {
		return salary.ErrNegativeNetSalary
	}
	return nil
}

// adjust is additive: the same request sent twice applies twice.
func (s *PaymentServiceImpl) adjust(ctx context.Context, req salary.AdjustmentRequest, kind salary.AdjustmentKind) (salary.AdjustmentResultResponse, error) {
	if err := req.Validate(); err != nil {
		return salary.AdjustmentResultResponse{}, err
	}

	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return salary.AdjustmentResultResponse{}, err
	}

	p, err := s.getPayment(ctx, op, req.PaymentID)
	if err != nil {
		return salary.AdjustmentResultResponse{}, err
	}
	if err := adjustmentConflict(p, kind, req.Amount); err != nil {
		return salary.AdjustmentResultResponse{}, err
	}

	adj := salary.Adjustment{
		PaymentID: p.ID,
		Kind:      kind,
		Amount:    req.Amount,
		Reason:    req.Reason,
		Actor:     op.UserID,
	}

	updated, recorded, err := s.paymentRepo.ApplyAdjustment(ctx, adj, adj.NoteLine(s.conventions.CurrencySymbol))
	if err != nil {
		if errors.Is(err, salary.ErrPaymentStateChanged) {
			current, getErr := s.paymentRepo.GetByID(ctx, p.ID)
			if getErr != nil {
				return salary.AdjustmentResultResponse{}, getErr
			}
			if c := adjustmentConflict(current, kind, req.Amount); c != nil {
				return salary.AdjustmentResultResponse{}, c
			}
		}
		return salary.AdjustmentResultResponse{}, err
	}

	slog.Info("salary adjustment recorded",
		"payment_id", p.ID,
		"kind", kind,
		"amount", req.Amount.String(),
		"actor", op.UserID,
	)
	return salary.AdjustmentResultResponse{
		Payment:    toPaymentResponse(updated),
		Adjustment: toAdjustmentResponse(recorded),
	}, nil
}

// ListAdjustments implements salary.PaymentService.
func (s *PaymentServiceImpl) ListAdjustments(ctx context.Context, paymentID string) ([]salary.AdjustmentResponse, error) {
	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.getPayment(ctx, op, paymentID); err != nil {
		return nil, err
	}

	adjustments, err := s.paymentRepo.ListAdjustments(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	result := make([]salary.AdjustmentResponse, 0, len(adjustments))
	for _, a := range adjustments {
		result = append(result, toAdjustmentResponse(a))
	}
	return result, nil
}

func toPaymentResponse(p salary.Payment) salary.PaymentResponse {
	return salary.PaymentResponse{
		ID:                   p.ID,
		NurseID:              p.NurseID,
		NurseName:            p.NurseName,
		RegistrationNo:       p.RegistrationNo,
		OrganizationID:       p.OrganizationID,
		SalaryConfigID:       p.SalaryConfigID,
		PayPeriodStart:       p.PayPeriodStart.Format("2006-01-02"),
		PayPeriodEnd:         p.PayPeriodEnd.Format("2006-01-02"),
		BasePay:              p.BasePay,
		HourlyRate:           p.HourlyRate,
		HoursWorked:          p.HoursWorked,
		AttendanceDays:       p.AttendanceDays,
		HourlyPay:            p.HourlyPay,
		Allowance:            p.Allowance,
		Bonus:                p.Bonus,
		GrossSalary:          p.GrossSalary,
		Deductions:           p.Deductions,
		NetSalary:            p.NetSalary,
		Status:               string(p.Status),
		PaymentMethod:        p.PaymentMethod,
		TransactionReference: p.TransactionReference,
		Notes:                p.Notes,
		ApprovedBy:           p.ApprovedBy,
		ApprovedAt:           p.ApprovedAt,
		PaidAt:               p.PaidAt,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func toAdjustmentResponse(a salary.Adjustment) salary.AdjustmentResponse {
	return salary.AdjustmentResponse{
		ID:        a.ID,
		PaymentID: a.PaymentID,
		Kind:      string(a.Kind),
		Amount:    a.Amount,
		Reason:    a.Reason,
		Actor:     a.Actor,
		CreatedAt: a.CreatedAt,
	}
}
