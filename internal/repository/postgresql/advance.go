package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/advance"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/nurse"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const advanceColumns = `
	ap.id, ap.nurse_id, ap.organization_id, ap.transaction_date,
	ap.amount, ap.returned_amount, ap.transaction_type, ap.status,
	ap.return_type, ap.installment_amount, ap.payment_method, ap.receipt_path, ap.notes,
	ap.approved, ap.approved_by, ap.approved_at,
	ap.created_by, ap.updated_by, ap.created_at, ap.updated_at,
	(SELECT n.full_name FROM nurses n WHERE n.id = ap.nurse_id),
	(SELECT n.registration_no FROM nurses n WHERE n.id = ap.nurse_id)
`

const repaymentColumns = `id, advance_id, amount, repaid_on, notes, created_by, created_at`

type advanceRepository struct {
	db database.Pool
}

func NewAdvanceRepository(db database.Pool) advance.AdvanceRepository {
	return &advanceRepository{db: db}
}

func scanAdvance(row rowScanner) (advance.Advance, error) {
	var a advance.Advance
	err := row.Scan(
		&a.ID, &a.NurseID, &a.OrganizationID, &a.TransactionDate,
		&a.Amount, &a.ReturnedAmount, &a.TransactionType, &a.Status,
		&a.ReturnType, &a.InstallmentAmount, &a.PaymentMethod, &a.ReceiptPath, &a.Notes,
		&a.Approved, &a.ApprovedBy, &a.ApprovedAt,
		&a.CreatedBy, &a.UpdatedBy, &a.CreatedAt, &a.UpdatedAt,
		&a.NurseName, &a.RegistrationNo,
	)
	return a, err
}

func scanRepayment(row rowScanner) (advance.Repayment, error) {
	var r advance.Repayment
	err := row.Scan(&r.ID, &r.AdvanceID, &r.Amount, &r.RepaidOn, &r.Notes, &r.CreatedBy, &r.CreatedAt)
	return r, err
}

func (r *advanceRepository) Create(ctx context.Context, a advance.Advance) (advance.Advance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO advance_payments AS ap (
			nurse_id, organization_id, transaction_date, amount, returned_amount,
			transaction_type, status, return_type, installment_amount,
			payment_method, receipt_path, notes, created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
		RETURNING ` + advanceColumns

	created, err := scanAdvance(q.QueryRow(ctx, query,
		a.NurseID, a.OrganizationID, a.TransactionDate, a.Amount, a.ReturnedAmount,
		a.TransactionType, string(a.Status), string(a.ReturnType), a.InstallmentAmount,
		a.PaymentMethod, a.ReceiptPath, a.Notes, a.CreatedBy,
	))
	if err != nil {
		if code, constraint := pgErrorCode(err); code == foreignKeyViolationCode && strings.Contains(constraint, "nurse") {
			return advance.Advance{}, nurse.ErrNurseNotFound
		}
		return advance.Advance{}, fmt.Errorf("failed to create advance payment: %w", err)
	}
	return created, nil
}

func (r *advanceRepository) GetByID(ctx context.Context, id string) (advance.Advance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + advanceColumns + ` FROM advance_payments ap WHERE ap.id = $1`

	a, err := scanAdvance(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return advance.Advance{}, advance.ErrAdvanceNotFound
		}
		return advance.Advance{}, fmt.Errorf("failed to get advance payment: %w", err)
	}
	return a, nil
}

// buildAdvanceFilter returns the FROM/WHERE clause shared by List and Totals.
func buildAdvanceFilter(filter advance.AdvanceFilter) (string, []interface{}, int) {
	baseQuery := `
		FROM advance_payments ap
		JOIN nurses n ON n.id = ap.nurse_id
		WHERE 1 = 1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.DateFrom != nil {
		baseQuery += fmt.Sprintf(" AND ap.transaction_date >= $%d::date", argIdx)
		args = append(args, *filter.DateFrom)
		argIdx++
	}
	if filter.DateTo != nil {
		baseQuery += fmt.Sprintf(" AND ap.transaction_date <= $%d::date", argIdx)
		args = append(args, *filter.DateTo)
		argIdx++
	}
	if filter.Search != nil && *filter.Search != "" {
		baseQuery += fmt.Sprintf(" AND (n.full_name ILIKE $%d OR n.registration_no ILIKE $%d OR ap.notes ILIKE $%d)", argIdx, argIdx, argIdx)
		args = append(args, "%"+*filter.Search+"%")
		argIdx++
	}
	if filter.PaymentMethod != nil {
		baseQuery += fmt.Sprintf(" AND ap.payment_method = $%d", argIdx)
		args = append(args, *filter.PaymentMethod)
		argIdx++
	}
	if filter.NurseID != nil {
		baseQuery += fmt.Sprintf(" AND ap.nurse_id = $%d", argIdx)
		args = append(args, *filter.NurseID)
		argIdx++
	}
	if filter.OrganizationID != nil {
		baseQuery += fmt.Sprintf(" AND ap.organization_id = $%d", argIdx)
		args = append(args, *filter.OrganizationID)
		argIdx++
	}
	if filter.Status != nil {
		baseQuery += fmt.Sprintf(" AND ap.status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	return baseQuery, args, argIdx
}

func (r *advanceRepository) List(ctx context.Context, filter advance.AdvanceFilter) ([]advance.Advance, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery, args, argIdx := buildAdvanceFilter(filter)

	var totalCount int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count advance payments: %w", err)
	}

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
		ORDER BY ap.transaction_date DESC, ap.created_at DESC
		LIMIT $%d OFFSET $%d
	`, advanceColumns, baseQuery, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list advance payments: %w", err)
	}
	defer rows.Close()

	var advances []advance.Advance
	for rows.Next() {
		a, err := scanAdvance(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan advance payment: %w", err)
		}
		advances = append(advances, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate advance payments: %w", err)
	}

	return advances, totalCount, nil
}

func (r *advanceRepository) Update(ctx context.Context, a advance.Advance, expected advance.Status) (advance.Advance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE advance_payments AS ap
		SET transaction_date = $2, amount = $3, transaction_type = $4, status = $5,
			return_type = $6, installment_amount = $7, payment_method = $8,
			receipt_path = $9, notes = $10, updated_by = $11, updated_at = NOW()
		WHERE ap.id = $1 AND ap.status = $12 AND ap.returned_amount = $13
		RETURNING ` + advanceColumns

	updated, err := scanAdvance(q.QueryRow(ctx, query,
		a.ID, a.TransactionDate, a.Amount, a.TransactionType, string(a.Status),
		string(a.ReturnType), a.InstallmentAmount, a.PaymentMethod,
		a.ReceiptPath, a.Notes, a.UpdatedBy,
		string(expected), a.ReturnedAmount,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM advance_payments WHERE id = $1)`, a.ID).Scan(&exists); err != nil {
				return advance.Advance{}, fmt.Errorf("failed to check advance payment: %w", err)
			}
			if !exists {
				return advance.Advance{}, advance.ErrAdvanceNotFound
			}
			return advance.Advance{}, advance.ErrAdvanceChanged
		}
		if code, constraint := pgErrorCode(err); code == checkViolationCode && constraint == "chk_advance_returned_le_amount" {
			return advance.Advance{}, advance.ErrAmountBelowReturned
		}
		return advance.Advance{}, fmt.Errorf("failed to update advance payment: %w", err)
	}
	return updated, nil
}

func (r *advanceRepository) DeleteCreatedAfter(ctx context.Context, id string, notBefore time.Time) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM advance_payments WHERE id = $1 AND created_at >= $2`, id, notBefore)
	if err != nil {
		return fmt.Errorf("failed to delete advance payment: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM advance_payments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check advance payment: %w", err)
	}
	if !exists {
		return advance.ErrAdvanceNotFound
	}
	return advance.ErrDeleteWindowExpired
}

func (r *advanceRepository) SetApproval(ctx context.Context, id string, approved bool, actor string, at time.Time) (advance.Advance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE advance_payments AS ap
		SET approved = $2,
			status = CASE
				WHEN ap.status = 'COMPLETED' THEN ap.status
				WHEN $2 THEN 'APPROVED'
				WHEN ap.returned_amount > 0 THEN 'PENDING'
				ELSE 'REJECTED'
			END,
			approved_by = $3, approved_at = $4, updated_by = $3, updated_at = NOW()
		WHERE ap.id = $1
		RETURNING ` + advanceColumns

	updated, err := scanAdvance(q.QueryRow(ctx, query, id, approved, actor, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return advance.Advance{}, advance.ErrAdvanceNotFound
		}
		return advance.Advance{}, fmt.Errorf("failed to set advance approval: %w", err)
	}
	return updated, nil
}

func (r *advanceRepository) RecordRepayment(ctx context.Context, rp advance.Repayment) (advance.Advance, advance.Repayment, error) {
	var updated advance.Advance
	var recorded advance.Repayment

	err := WithTransaction(ctx, r.db, func(txCtx context.Context) error {
		q := GetQuerier(txCtx, r.db)

		updateQuery := `
			UPDATE advance_payments AS ap
			SET returned_amount = ap.returned_amount + $2::numeric,
				status = CASE
					WHEN ap.returned_amount + $2::numeric = ap.amount THEN 'COMPLETED'
					ELSE ap.status
				END,
				updated_by = $3, updated_at = NOW()
			WHERE ap.id = $1
			  AND ap.status IN ('PENDING', 'APPROVED')
			  AND ap.returned_amount + $2::numeric <= ap.amount
			RETURNING ` + advanceColumns

		a, err := scanAdvance(q.QueryRow(txCtx, updateQuery, rp.AdvanceID, rp.Amount, rp.CreatedBy))
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("failed to apply repayment: %w", err)
			}
			current, getErr := r.GetByID(txCtx, rp.AdvanceID)
			if getErr != nil {
				return getErr
			}
			if !current.Status.AcceptsRepayment() {
				return advance.ErrAdvanceClosed
			}
			return advance.ErrRepaymentExceedsBalance
		}

		insertQuery := `
			INSERT INTO advance_repayments (advance_id, amount, repaid_on, notes, created_by)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING ` + repaymentColumns

		rec, err := scanRepayment(q.QueryRow(txCtx, insertQuery, rp.AdvanceID, rp.Amount, rp.RepaidOn, rp.Notes, rp.CreatedBy))
		if err != nil {
			return fmt.Errorf("failed to record repayment: %w", err)
		}

		updated, recorded = a, rec
		return nil
	})
	if err != nil {
		return advance.Advance{}, advance.Repayment{}, err
	}
	return updated, recorded, nil
}

func (r *advanceRepository) ListRepayments(ctx context.Context, advanceID string) ([]advance.Repayment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + repaymentColumns + `
		FROM advance_repayments
		WHERE advance_id = $1
		ORDER BY repaid_on, created_at
	`

	rows, err := q.Query(ctx, query, advanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list repayments: %w", err)
	}
	defer rows.Close()

	var repayments []advance.Repayment
	for rows.Next() {
		rp, err := scanRepayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan repayment: %w", err)
		}
		repayments = append(repayments, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate repayments: %w", err)
	}
	return repayments, nil
}

func (r *advanceRepository) Totals(ctx context.Context, filter advance.AdvanceFilter) (advance.Totals, error) {
	q := GetQuerier(ctx, r.db)

	baseQuery, args, _ := buildAdvanceFilter(filter)

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(ap.amount) FILTER (WHERE ap.status <> 'REJECTED'), 0),
			COALESCE(SUM(ap.returned_amount) FILTER (WHERE ap.status <> 'REJECTED'), 0),
			COALESCE(SUM(ap.amount) FILTER (WHERE ap.approved AND ap.status <> 'REJECTED'), 0)
	` + baseQuery

	var t advance.Totals
	if err := q.QueryRow(ctx, query, args...).Scan(&t.Count, &t.Given, &t.Returned, &t.ApprovedGiven); err != nil {
		return advance.Totals{}, fmt.Errorf("failed to compute advance totals: %w", err)
	}
	return t, nil
}
