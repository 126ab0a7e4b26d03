package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/pkg/logging"
	"github.com/cellango/SecurityApps/shared/common"
)

type fakeRiskParamsRepo struct {
	params    *entity.RiskParameters
	updated   *entity.RiskParameters
	updateErr error
}

func (f *fakeRiskParamsRepo) GetDefault(context.Context) (*entity.RiskParameters, error) {
	if f.params == nil {
		f.params = entity.DefaultRiskParameters()
	}
	return f.params, nil
}

func (f *fakeRiskParamsRepo) Update(_ context.Context, params *entity.RiskParameters) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = params
	return nil
}

type fakeRiskService struct {
	score float64
	err   error
}

func (f *fakeRiskService) CalculateRiskScore(context.Context, *entity.Application, *entity.RiskParameters) (float64, error) {
	return f.score, f.err
}

func TestRiskScoreUseCaseClassifiesTier(t *testing.T) {
	tests := []struct {
		score float64
		tier  entity.RiskTier
	}{
		{score: 55, tier: entity.RiskTierHigh},
		{score: 75, tier: entity.RiskTierMedium},
		{score: 85, tier: entity.RiskTierLow},
		{score: 95, tier: entity.RiskTierMinimal},
	}

	for _, tt := range tests {
		uc := NewRiskScoreUseCase(&fakeRiskParamsRepo{}, &fakeRiskService{score: tt.score}, logging.NewNop())
		app := &entity.Application{ID: "app-1", AppType: entity.AppTypeInternal}

		assessment, err := uc.Execute(context.Background(), app)
		require.NoError(t, err)
		assert.Equal(t, tt.score, assessment.Score)
		assert.Equal(t, tt.tier, assessment.Tier)
		assert.Equal(t, entity.AppTypeInternal, assessment.AppType)
	}
}

func TestRiskScoreUseCaseRejectsMissingApplication(t *testing.T) {
	uc := NewRiskScoreUseCase(&fakeRiskParamsRepo{}, &fakeRiskService{}, logging.NewNop())

	_, err := uc.Execute(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeInvalidInput))

	_, err = uc.Execute(context.Background(), &entity.Application{})
	require.Error(t, err)
}

func TestRiskScoreUseCaseUpdateParameters(t *testing.T) {
	repo := &fakeRiskParamsRepo{}
	uc := NewRiskScoreUseCase(repo, &fakeRiskService{}, logging.NewNop())

	params := entity.DefaultRiskParameters()
	params.InternalWeights["code_review"] = 0.5

	require.NoError(t, uc.UpdateParameters(context.Background(), params))
	assert.Equal(t, 0.5, repo.updated.InternalWeights["code_review"])

	err := uc.UpdateParameters(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeInvalidInput))
}
