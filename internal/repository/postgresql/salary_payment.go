package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/nurse"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/salary"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const salaryPaymentColumns = `
	sp.id, sp.nurse_id, sp.organization_id, sp.salary_config_id,
	sp.pay_period_start, sp.pay_period_end,
	sp.base_pay, sp.hourly_rate, sp.hours_worked, sp.attendance_days, sp.hourly_pay,
	sp.allowance, sp.bonus, sp.gross_salary, sp.deductions, sp.net_salary,
	sp.payment_status, sp.payment_method, sp.transaction_reference, sp.notes,
	sp.approved_by, sp.approved_at, sp.paid_at, sp.created_by, sp.created_at, sp.updated_at,
	(SELECT n.full_name FROM nurses n WHERE n.id = sp.nurse_id),
	(SELECT n.registration_no FROM nurses n WHERE n.id = sp.nurse_id)
`

const salaryAdjustmentColumns = `id, payment_id, kind, amount, reason, actor, created_at`

type salaryPaymentRepository struct {
	db database.Pool
}

func NewSalaryPaymentRepository(db database.Pool) salary.PaymentRepository {
	return &salaryPaymentRepository{db: db}
}

func scanSalaryPayment(row rowScanner) (salary.Payment, error) {
	var p salary.Payment
	err := row.Scan(
		&p.ID, &p.NurseID, &p.OrganizationID, &p.SalaryConfigID,
		&p.PayPeriodStart, &p.PayPeriodEnd,
		&p.BasePay, &p.HourlyRate, &p.HoursWorked, &p.AttendanceDays, &p.HourlyPay,
		&p.Allowance, &p.Bonus, &p.GrossSalary, &p.Deductions, &p.NetSalary,
		&p.Status, &p.PaymentMethod, &p.TransactionReference, &p.Notes,
		&p.ApprovedBy, &p.ApprovedAt, &p.PaidAt, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
		&p.NurseName, &p.RegistrationNo,
	)
	return p, err
}

func scanSalaryAdjustment(row rowScanner) (salary.Adjustment, error) {
	var a salary.Adjustment
	err := row.Scan(&a.ID, &a.PaymentID, &a.Kind, &a.Amount, &a.Reason, &a.Actor, &a.CreatedAt)
	return a, err
}

func (r *salaryPaymentRepository) Create(ctx context.Context, p salary.Payment) (salary.Payment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO salary_payments AS sp (
			nurse_id, organization_id, salary_config_id, pay_period_start, pay_period_end,
			base_pay, hourly_rate, hours_worked, attendance_days, hourly_pay,
			allowance, bonus, gross_salary, deductions, net_salary,
			payment_status, notes, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 'pending', $16, $17)
		RETURNING ` + salaryPaymentColumns

	created, err := scanSalaryPayment(q.QueryRow(ctx, query,
		p.NurseID, p.OrganizationID, p.SalaryConfigID, p.PayPeriodStart, p.PayPeriodEnd,
		p.BasePay, p.HourlyRate, p.HoursWorked, p.AttendanceDays, p.HourlyPay,
		p.Allowance, p.Bonus, p.GrossSalary, p.Deductions, p.NetSalary,
		p.Notes, p.CreatedBy,
	))
	if err != nil {
		switch code, constraint := pgErrorCode(err); {
		case code == uniqueViolationCode:
			return salary.Payment{}, salary.ErrPaymentAlreadyExists
		case code == foreignKeyViolationCode && strings.Contains(constraint, "nurse"):
			return salary.Payment{}, nurse.ErrNurseNotFound
		}
		return salary.Payment{}, fmt.Errorf("failed to create salary payment: %w", err)
	}
	return created, nil
}

func (r *salaryPaymentRepository) GetByID(ctx context.Context, id string) (salary.Payment, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + salaryPaymentColumns + ` FROM salary_payments sp WHERE sp.id = $1`

	p, err := scanSalaryPayment(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return salary.Payment{}, salary.ErrPaymentNotFound
		}
		return salary.Payment{}, fmt.Errorf("failed to get salary payment: %w", err)
	}
	return p, nil
}

func (r *salaryPaymentRepository) GetByNursePeriod(ctx context.Context, nurseID string, start, end time.Time) (salary.Payment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + salaryPaymentColumns + `
		FROM salary_payments sp
		WHERE sp.nurse_id = $1 AND sp.pay_period_start = $2 AND sp.pay_period_end = $3
	`

	p, err := scanSalaryPayment(q.QueryRow(ctx, query, nurseID, start, end))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return salary.Payment{}, salary.ErrPaymentNotFound
		}
		return salary.Payment{}, fmt.Errorf("failed to get salary payment for period: %w", err)
	}
	return p, nil
}

func (r *salaryPaymentRepository) List(ctx context.Context, filter salary.PaymentFilter) ([]salary.Payment, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery := `
		FROM salary_payments sp
		JOIN nurses n ON n.id = sp.nurse_id
		WHERE 1 = 1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.NurseID != nil {
		baseQuery += fmt.Sprintf(" AND sp.nurse_id = $%d", argIdx)
		args = append(args, *filter.NurseID)
		argIdx++
	}
	if filter.OrganizationID != nil {
		baseQuery += fmt.Sprintf(" AND sp.organization_id = $%d", argIdx)
		args = append(args, *filter.OrganizationID)
		argIdx++
	}
	if filter.Status != nil {
		baseQuery += fmt.Sprintf(" AND sp.payment_status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.PeriodFrom != nil {
		baseQuery += fmt.Sprintf(" AND sp.pay_period_end >= $%d::date", argIdx)
		args = append(args, *filter.PeriodFrom)
		argIdx++
	}
	if filter.PeriodTo != nil {
		baseQuery += fmt.Sprintf(" AND sp.pay_period_start <= $%d::date", argIdx)
		args = append(args, *filter.PeriodTo)
		argIdx++
	}

	// Count query
	var totalCount int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count salary payments: %w", err)
	}

	// Pagination
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit

	selectQuery := fmt.Sprintf(`
		SELECT %s
		%s
		ORDER BY sp.pay_period_start DESC, n.full_name ASC
		LIMIT $%d OFFSET $%d
	`, salaryPaymentColumns, baseQuery, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list salary payments: %w", err)
	}
	defer rows.Close()

	var payments []salary.Payment
	for rows.Next() {
		p, err := scanSalaryPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan salary payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate salary payments: %w", err)
	}

	return payments, totalCount, nil
}

func (r *salaryPaymentRepository) UpdateFigures(ctx context.Context, p salary.Payment) (salary.Payment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE salary_payments AS sp
		SET salary_config_id = $2,
			base_pay = $3, hourly_rate = $4, hours_worked = $5, attendance_days = $6,
			hourly_pay = $7, allowance = $8, bonus = $9, gross_salary = $10,
			deductions = $11, net_salary = $12, notes = $13,
			payment_status = 'pending', updated_at = NOW()
		WHERE sp.id = $1 AND sp.payment_status IN ('pending', 'rejected')
		RETURNING ` + salaryPaymentColumns

	updated, err := scanSalaryPayment(q.QueryRow(ctx, query,
		p.ID, p.SalaryConfigID,
		p.BasePay, p.HourlyRate, p.HoursWorked, p.AttendanceDays,
		p.HourlyPay, p.Allowance, p.Bonus, p.GrossSalary,
		p.Deductions, p.NetSalary, p.Notes,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return salary.Payment{}, salary.ErrPaymentStateChanged
		}
		return salary.Payment{}, fmt.Errorf("failed to update salary payment: %w", err)
	}
	return updated, nil
}

func (r *salaryPaymentRepository) Transition(ctx context.Context, t salary.StatusTransition) (salary.Payment, error) {
	q := GetQuerier(ctx, r.db)

	from := make([]string, 0, len(t.From))
	for _, s := range t.From {
		from = append(from, string(s))
	}

	query := `
		UPDATE salary_payments AS sp
		SET payment_status = $2::varchar,
			payment_method = COALESCE($3::varchar, sp.payment_method),
			transaction_reference = COALESCE($4::varchar, sp.transaction_reference),
			approved_by = CASE WHEN $2::varchar IN ('approved', 'paid') THEN COALESCE(sp.approved_by, $5) ELSE sp.approved_by END,
			approved_at = CASE WHEN $2::varchar IN ('approved', 'paid') THEN COALESCE(sp.approved_at, $6) ELSE sp.approved_at END,
			paid_at = CASE WHEN $2::varchar = 'paid' THEN $6 ELSE sp.paid_at END,
			notes = CASE
				WHEN $7::text IS NULL THEN sp.notes
				WHEN sp.notes IS NULL OR sp.notes = '' THEN $7::text
				ELSE sp.notes || E'\n' || $7::text
			END,
			updated_at = NOW()
		WHERE sp.id = $1 AND sp.payment_status = ANY($8::varchar[])
		RETURNING ` + salaryPaymentColumns

	updated, err := scanSalaryPayment(q.QueryRow(ctx, query,
		t.PaymentID, string(t.To), t.PaymentMethod, t.TransactionReference,
		t.Actor, t.At, t.NoteLine, from,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return salary.Payment{}, salary.ErrPaymentStateChanged
		}
		return salary.Payment{}, fmt.Errorf("failed to change salary payment status: %w", err)
	}
	return updated, nil
}

func (r *salaryPaymentRepository) ApplyAdjustment(ctx context.Context, adj salary.Adjustment, noteLine string) (salary.Payment, salary.Adjustment, error) {
	bonus, deduction := decimal.Zero, decimal.Zero
	if adj.Kind == salary.AdjustmentBonus {
		bonus = adj.Amount
	} else {
		deduction = adj.Amount
	}

	var payment salary.Payment
	var recorded salary.Adjustment

	err := WithTransaction(ctx, r.db, func(txCtx context.Context) error {
		q := GetQuerier(txCtx, r.db)

		updateQuery := `
			UPDATE salary_payments AS sp
			SET bonus = sp.bonus + $2::numeric,
				deductions = sp.deductions + $3::numeric,
				gross_salary = sp.gross_salary + $2::numeric,
				net_salary = sp.net_salary + $2::numeric - $3::numeric,
				notes = CASE WHEN sp.notes IS NULL OR sp.notes = '' THEN $4::text ELSE sp.notes || E'\n' || $4::text END,
				updated_at = NOW()
			WHERE sp.id = $1
			  AND sp.payment_status NOT IN ('paid', 'cancelled')
			  AND sp.net_salary + $2::numeric - $3::numeric >= 0
			RETURNING ` + salaryPaymentColumns

		p, err := scanSalaryPayment(q.QueryRow(txCtx, updateQuery, adj.PaymentID, bonus, deduction, noteLine))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return salary.ErrPaymentStateChanged
			}
			return fmt.Errorf("failed to apply salary adjustment: %w", err)
		}

		insertQuery := `
			INSERT INTO salary_adjustments (payment_id, kind, amount, reason, actor)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING ` + salaryAdjustmentColumns

		a, err := scanSalaryAdjustment(q.QueryRow(txCtx, insertQuery, adj.PaymentID, string(adj.Kind), adj.Amount, adj.Reason, adj.Actor))
		if err != nil {
			return fmt.Errorf("failed to record salary adjustment: %w", err)
		}

		payment, recorded = p, a
		return nil
	})
	if err != nil {
		return salary.Payment{}, salary.Adjustment{}, err
	}
	return payment, recorded, nil
}

func (r *salaryPaymentRepository) ListAdjustments(ctx context.Context, paymentID string) ([]salary.Adjustment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + salaryAdjustmentColumns + `
		FROM salary_adjustments
		WHERE payment_id = $1
		ORDER BY created_at, id
	`

	rows, err := q.Query(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list salary adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []salary.Adjustment
	for rows.Next() {
		a, err := scanSalaryAdjustment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan salary adjustment: %w", err)
		}
		adjustments = append(adjustments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate salary adjustments: %w", err)
	}
	return adjustments, nil
}
