package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/domain/repository"
	"github.com/cellango/SecurityApps/domain/service"
	"github.com/cellango/SecurityApps/pkg/logging"
	"github.com/cellango/SecurityApps/pkg/metrics"
	"github.com/cellango/SecurityApps/shared/common"
)

// RiskService implements service.RiskScoringService: the configuration-driven
// weighted-sub-factor scorer for the coarse application-type-based risk
// rating. It is independent of the rules/ML pipeline but shares its score
// history sink, so risk ratings appear in the same trend queries.
type RiskService struct {
	logger  *logging.Logger
	metrics *metrics.Collector
	scorer  service.FactorScorer
	history repository.ScoreHistoryRepository
}

// NewRiskService creates a new risk parameter model
func NewRiskService(
	logger *logging.Logger,
	collector *metrics.Collector,
	scorer service.FactorScorer,
	history repository.ScoreHistoryRepository,
) *RiskService {
	return &RiskService{
		logger:  logger.WithComponent("risk_service"),
		metrics: collector,
		scorer:  scorer,
		history: history,
	}
}

// CalculateRiskScore selects the weight set for the application's category,
// computes the weighted sum of sub-factor scores, and normalizes by the sum
// of weights actually used. A zero-weight configuration yields 0. The result
// is recorded in the shared score history; the per-application "current" risk
// score is always the most recent record, never a mutable field.
func (rs *RiskService) CalculateRiskScore(ctx context.Context, app *entity.Application, params *entity.RiskParameters) (float64, error) {
	start := time.Now()

	weights := params.WeightsFor(app.AppType)
	factorScores := rs.scorer.Scores(ctx, app)

	var weightedSum, normalizer float64
	for factor, weight := range weights {
		weightedSum += factorScores[factor] * weight
		normalizer += 100 * weight
	}

	var finalScore float64
	if normalizer > 0 {
		finalScore = (weightedSum / normalizer) * 100
	}
	finalScore = entity.ClampScore(finalScore)

	record := &entity.ScoreHistory{
		ID:            uuid.New(),
		ApplicationID: app.ID,
		Source:        entity.ScoreSourceRiskModel,
		FinalScore:    finalScore,
		Features:      factorVector(factorScores),
		CreatedAt:     time.Now().UTC(),
	}
	if err := rs.history.Create(ctx, record); err != nil {
		rs.recordOperation("risk_score", "error", start)
		return 0, common.WrapError(err, common.ErrCodeDatabaseQuery, "failed to persist risk score")
	}

	rs.recordOperation("risk_score", "success", start)
	rs.logger.Info("Risk score calculated",
		logging.String("application_id", app.ID),
		logging.String("app_type", string(app.AppType)),
		logging.Float64("score", finalScore),
	)

	return finalScore, nil
}

func (rs *RiskService) recordOperation(operation, status string, start time.Time) {
	if rs.metrics != nil {
		rs.metrics.RecordScoringOperation(operation, status, time.Since(start))
	}
}

func factorVector(scores map[string]float64) entity.FeatureVector {
	fv := make(entity.FeatureVector, len(scores))
	for k, v := range scores {
		fv[k] = v
	}
	return fv
}

// StaticFactorScorer is the placeholder sub-factor scorer used until the
// inventory collaborator supplies real per-factor scoring. Each factor is a
// fixed 0-100 value per application category.
type StaticFactorScorer struct{}

// Scores returns the placeholder sub-factor scores for the application's
// category.
func (StaticFactorScorer) Scores(_ context.Context, app *entity.Application) map[string]float64 {
	if app.AppType == entity.AppTypeVendor {
		return map[string]float64{
			"vendor_assessment":    80,
			"contract_security":    85,
			"integration_security": 75,
			"data_handling":        90,
			"support_sla":          85,
		}
	}
	return map[string]float64{
		"code_review":         85,
		"security_testing":    75,
		"dependency_scanning": 90,
		"deployment_security": 80,
		"access_control":      85,
	}
}
