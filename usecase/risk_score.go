package usecase

import (
	"context"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/domain/repository"
	"github.com/cellango/SecurityApps/domain/service"
	"github.com/cellango/SecurityApps/pkg/logging"
	"github.com/cellango/SecurityApps/shared/common"
)

// RiskAssessment pairs the numeric risk score with the threshold-derived tier
// for the application's category.
type RiskAssessment struct {
	ApplicationID string          `json:"application_id"`
	AppType       entity.AppType  `json:"app_type"`
	Score         float64         `json:"score"`
	Tier          entity.RiskTier `json:"tier"`
}

// RiskScoreUseCase runs the weighted-sub-factor risk model with the stored
// parameter configuration.
type RiskScoreUseCase struct {
	params repository.RiskParametersRepository
	risk   service.RiskScoringService
	logger *logging.Logger
}

// NewRiskScoreUseCase creates the risk scoring use case
func NewRiskScoreUseCase(
	params repository.RiskParametersRepository,
	risk service.RiskScoringService,
	logger *logging.Logger,
) *RiskScoreUseCase {
	return &RiskScoreUseCase{
		params: params,
		risk:   risk,
		logger: logger.WithComponent("risk_score"),
	}
}

// Execute computes the risk score for one application using the current
// parameter row and classifies it against the category's thresholds.
func (uc *RiskScoreUseCase) Execute(ctx context.Context, app *entity.Application) (*RiskAssessment, error) {
	if app == nil || app.ID == "" {
		return nil, common.NewAppError(common.ErrCodeInvalidInput, "application is required")
	}

	params, err := uc.params.GetDefault(ctx)
	if err != nil {
		return nil, err
	}

	score, err := uc.risk.CalculateRiskScore(ctx, app, params)
	if err != nil {
		return nil, err
	}

	tier := params.ThresholdsFor(app.AppType).Classify(score)
	uc.logger.Info("risk score computed",
		logging.String("application_id", app.ID),
		logging.String("app_type", string(app.AppType)),
		logging.Float64("score", score),
		logging.String("tier", string(tier)))

	return &RiskAssessment{
		ApplicationID: app.ID,
		AppType:       app.AppType,
		Score:         score,
		Tier:          tier,
	}, nil
}

// Parameters returns the current risk parameter configuration.
func (uc *RiskScoreUseCase) Parameters(ctx context.Context) (*entity.RiskParameters, error) {
	return uc.params.GetDefault(ctx)
}

// UpdateParameters replaces the stored weight and threshold sets.
func (uc *RiskScoreUseCase) UpdateParameters(ctx context.Context, params *entity.RiskParameters) error {
	if params == nil {
		return common.NewAppError(common.ErrCodeInvalidInput, "risk parameters are required")
	}
	return uc.params.Update(ctx, params)
}
