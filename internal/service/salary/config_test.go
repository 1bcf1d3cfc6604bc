package salary

import (
	"testing"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/nurse"
	"github.com/cmlabs-hris/homecare-payroll/internal/domain/salary"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfigService() (*ConfigServiceImpl, *fakeConfigRepo) {
	repo := &fakeConfigRepo{}
	nurses := &fakeNurseRepo{nurses: map[string]nurse.Nurse{
		"nurse-1": {ID: "nurse-1", OrganizationID: "org-1", FullName: "Asha Menon"},
	}}
	return NewConfigService(repo, nurses).(*ConfigServiceImpl), repo
}

func TestGetActiveConfig_DefaultsToZeroRate(t *testing.T) {
	svc, _ := newConfigService()

	resp, err := svc.GetActiveConfig(operatorContext(t, coordinator), "nurse-1")
	require.NoError(t, err)
	assert.True(t, resp.IsDefault)
	assert.True(t, resp.HourlyRate.IsZero())
	assert.Empty(t, resp.ID)
}

func TestUpsertConfig_VersionsAndEdits(t *testing.T) {
	svc, repo := newConfigService()
	ctx := operatorContext(t, manager)

	first, err := svc.UpsertConfig(ctx, salary.UpsertConfigRequest{NurseID: "nurse-1", HourlyRate: decimal.NewFromInt(90)})
	require.NoError(t, err)
	second, err := svc.UpsertConfig(ctx, salary.UpsertConfigRequest{NurseID: "nurse-1", HourlyRate: decimal.RequireFromString("95.456")})
	require.NoError(t, err)

	assert.Equal(t, "95.46", second.HourlyRate.String())
	assert.Equal(t, 1, repo.activeCount("nurse-1"))

	edited, err := svc.UpsertConfig(ctx, salary.UpsertConfigRequest{NurseID: "nurse-1", HourlyRate: decimal.NewFromInt(92), ConfigID: &first.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, edited.ID)
	assert.False(t, edited.IsActive, "editing an old version does not reactivate it")

	active, err := svc.GetActiveConfig(ctx, "nurse-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	history, err := svc.ListConfigHistory(ctx, "nurse-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
}

func TestUpsertConfig_Rejects(t *testing.T) {
	svc, _ := newConfigService()

	_, err := svc.UpsertConfig(operatorContext(t, manager), salary.UpsertConfigRequest{NurseID: "nurse-1", HourlyRate: decimal.NewFromInt(-1)})
	require.Error(t, err)

	_, err = svc.UpsertConfig(operatorContext(t, outsider), salary.UpsertConfigRequest{NurseID: "nurse-1", HourlyRate: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, nurse.ErrNurseNotFound)

	_, err = svc.UpsertConfig(operatorContext(t, manager), salary.UpsertConfigRequest{NurseID: "nurse-1", HourlyRate: decimal.NewFromInt(10), ConfigID: strPtr("missing")})
	assert.ErrorIs(t, err, salary.ErrConfigNotFound)
}
