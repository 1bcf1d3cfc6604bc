package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/nurse"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/salary"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const salaryConfigColumns = `id, nurse_id, hourly_rate, is_active, created_by, updated_by, created_at, updated_at`

type salaryConfigRepository struct {
	db database.Pool
}

func NewSalaryConfigRepository(db database.Pool) salary.ConfigRepository {
	return &salaryConfigRepository{db: db}
}

func scanSalaryConfig(row rowScanner) (salary.Config, error) {
	var c salary.Config
	err := row.Scan(&c.ID, &c.NurseID, &c.HourlyRate, &c.IsActive, &c.CreatedBy, &c.UpdatedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *salaryConfigRepository) GetActive(ctx context.Context, nurseID string) (salary.Config, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + salaryConfigColumns + `
		FROM salary_configs
		WHERE nurse_id = $1 AND is_active = TRUE
		ORDER BY updated_at DESC
		LIMIT 1
	`

	c, err := scanSalaryConfig(q.QueryRow(ctx, query, nurseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return salary.Config{}, salary.ErrConfigNotFound
		}
		return salary.Config{}, fmt.Errorf("failed to get active salary config: %w", err)
	}
	return c, nil
}

func (r *salaryConfigRepository) GetByID(ctx context.Context, id string, nurseID string) (salary.Config, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + salaryConfigColumns + ` FROM salary_configs WHERE id = $1 AND nurse_id = $2`

	c, err := scanSalaryConfig(q.QueryRow(ctx, query, id, nurseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return salary.Config{}, salary.ErrConfigNotFound
		}
		return salary.Config{}, fmt.Errorf("failed to get salary config: %w", err)
	}
	return c, nil
}

func (r *salaryConfigRepository) Insert(ctx context.Context, cfg salary.Config) (salary.Config, error) {
	var created salary.Config

	err := WithTransaction(ctx, r.db, func(txCtx context.Context) error {
		q := GetQuerier(txCtx, r.db)

		if _, err := q.Exec(txCtx, `
			UPDATE salary_configs
			SET is_active = FALSE, updated_by = $2, updated_at = NOW()
			WHERE nurse_id = $1 AND is_active = TRUE
		`, cfg.NurseID, cfg.CreatedBy); err != nil {
			return fmt.Errorf("failed to deactivate salary configs: %w", err)
		}

		query := `
			INSERT INTO salary_configs (nurse_id, hourly_rate, is_active, created_by, updated_by)
			VALUES ($1, $2, TRUE, $3, $3)
			RETURNING ` + salaryConfigColumns

		c, err := scanSalaryConfig(q.QueryRow(txCtx, query, cfg.NurseID, cfg.HourlyRate, cfg.CreatedBy))
		if err != nil {
			switch code, constraint := pgErrorCode(err); {
			case code == foreignKeyViolationCode:
				return nurse.ErrNurseNotFound
			case code == uniqueViolationCode && constraint == "uq_salary_configs_one_active":
				return salary.ErrConfigChanged
			}
			return fmt.Errorf("failed to insert salary config: %w", err)
		}
		created = c
		return nil
	})
	if err != nil {
		return salary.Config{}, err
	}
	return created, nil
}

func (r *salaryConfigRepository) UpdateRate(ctx context.Context, id string, nurseID string, rate decimal.Decimal, actor string) (salary.Config, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE salary_configs
		SET hourly_rate = $3, updated_by = $4, updated_at = NOW()
		WHERE id = $1 AND nurse_id = $2
		RETURNING ` + salaryConfigColumns

	c, err := scanSalaryConfig(q.QueryRow(ctx, query, id, nurseID, rate, actor))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return salary.Config{}, salary.ErrConfigNotFound
		}
		return salary.Config{}, fmt.Errorf("failed to update salary config: %w", err)
	}
	return c, nil
}

func (r *salaryConfigRepository) ListByNurse(ctx context.Context, nurseID string) ([]salary.Config, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + salaryConfigColumns + `
		FROM salary_configs
		WHERE nurse_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := q.Query(ctx, query, nurseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list salary configs: %w", err)
	}
	defer rows.Close()

	var configs []salary.Config
	for rows.Next() {
		c, err := scanSalaryConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan salary config: %w", err)
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate salary configs: %w", err)
	}
	return configs, nil
}
