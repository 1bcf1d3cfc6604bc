package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/nurse"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type nurseRepository struct {
	db database.Pool
}

func NewNurseRepository(db database.Pool) nurse.NurseRepository {
	return &nurseRepository{db: db}
}

func (r *nurseRepository) GetByID(ctx context.Context, id string) (nurse.Nurse, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT n.id, n.organization_id, n.full_name, n.registration_no, n.created_at,
			   o.code, o.name
		FROM nurses n
		JOIN organizations o ON o.id = n.organization_id
		WHERE n.id = $1
	`

	var n nurse.Nurse
	err := q.QueryRow(ctx, query, id).Scan(
		&n.ID, &n.OrganizationID, &n.FullName, &n.RegistrationNo, &n.CreatedAt,
		&n.OrganizationCode, &n.OrganizationName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nurse.Nurse{}, nurse.ErrNurseNotFound
		}
		return nurse.Nurse{}, fmt.Errorf("failed to get nurse: %w", err)
	}
	return n, nil
}
