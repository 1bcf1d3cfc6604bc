package salary

import (
	"context"
	"errors"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/nurse"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/salary"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/jwt"
	"github.com/shopspring/decimal"
)

type ConfigServiceImpl struct {
	configRepo salary.ConfigRepository
	nurseRepo  nurse.NurseRepository
}

func NewConfigService(configRepo salary.ConfigRepository, nurseRepo nurse.NurseRepository) salary.ConfigService {
	return &ConfigServiceImpl{
		configRepo: configRepo,
		nurseRepo:  nurseRepo,
	}
}

// visibleNurse loads a nurse the operator is allowed to see.
func visibleNurse(ctx context.Context, repo nurse.NurseRepository, op jwt.Operator, nurseID string) (nurse.Nurse, error) {
	n, err := repo.GetByID(ctx, nurseID)
	if err != nil {
		return nurse.Nurse{}, err
	}
	if !op.Allows(n.OrganizationID) {
		return nurse.Nurse{}, nurse.ErrNurseNotFound
	}
	return n, nil
}

// GetActiveConfig implements salary.ConfigService. A nurse without an active
// config gets a zero-rate default instead of an error.
func (s *ConfigServiceImpl) GetActiveConfig(ctx context.Context, nurseID string) (salary.ConfigResponse, error) {
	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return salary.ConfigResponse{}, err
	}
	if _, err := visibleNurse(ctx, s.nurseRepo, op, nurseID); err != nil {
		return salary.ConfigResponse{}, err
	}

	cfg, err := s.configRepo.GetActive(ctx, nurseID)
	if err != nil {
		if errors.Is(err, salary.ErrConfigNotFound) {
			return salary.ConfigResponse{
				NurseID:    nurseID,
				HourlyRate: decimal.Zero,
				IsActive:   true,
				IsDefault:  true,
			}, nil
		}
		return salary.ConfigResponse{}, err
	}
	return toConfigResponse(cfg), nil
}

// UpsertConfig implements salary.ConfigService.
func (s *ConfigServiceImpl) UpsertConfig(ctx context.Context, req salary.UpsertConfigRequest) (salary.ConfigResponse, error) {
	if err := req.Validate(); err != nil {
		return salary.ConfigResponse{}, err
	}

	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return salary.ConfigResponse{}, err
	}
	if _, err := visibleNurse(ctx, s.nurseRepo, op, req.NurseID); err != nil {
		return salary.ConfigResponse{}, err
	}

	rate := salary.RoundMoney(req.HourlyRate)

	if req.ConfigID != nil {
		updated, err := s.configRepo.UpdateRate(ctx, *req.ConfigID, req.NurseID, rate, op.UserID)
		if err != nil {
			return salary.ConfigResponse{}, err
		}
		return toConfigResponse(updated), nil
	}

	created, err := s.configRepo.Insert(ctx, salary.Config{
		NurseID:    req.NurseID,
		HourlyRate: rate,
		IsActive:   true,
		CreatedBy:  &op.UserID,
	})
	if err != nil {
		return salary.ConfigResponse{}, err
	}
	return toConfigResponse(created), nil
}

// ListConfigHistory implements salary.ConfigService.
func (s *ConfigServiceImpl) ListConfigHistory(ctx context.Context, nurseID string) ([]salary.ConfigResponse, error) {
	op, err := jwt.OperatorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := visibleNurse(ctx, s.nurseRepo, op, nurseID); err != nil {
		return nil, err
	}

	configs, err := s.configRepo.ListByNurse(ctx, nurseID)
	if err != nil {
		return nil, err
	}

	result := make([]salary.ConfigResponse, 0, len(configs))
	for _, c := range configs {
		result = append(result, toConfigResponse(c))
	}
	return result, nil
}

func toConfigResponse(c salary.Config) salary.ConfigResponse {
	createdAt, updatedAt := c.CreatedAt, c.UpdatedAt
	return salary.ConfigResponse{
		ID:         c.ID,
		NurseID:    c.NurseID,
		HourlyRate: c.HourlyRate,
		IsActive:   c.IsActive,
		UpdatedBy:  c.UpdatedBy,
		CreatedAt:  &createdAt,
		UpdatedAt:  &updatedAt,
	}
}
