package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/domain/repository"
	"github.com/cellango/SecurityApps/domain/service"
	"github.com/cellango/SecurityApps/pkg/logging"
	"github.com/cellango/SecurityApps/pkg/metrics"
	"github.com/cellango/SecurityApps/shared/common"
)

// ScoreServiceConfig contains aggregator configuration
type ScoreServiceConfig struct {
	// RulesWeight and MLWeight blend the two sub-scores. Defaults 0.7/0.3.
	RulesWeight float64 `mapstructure:"rules_weight"`
	MLWeight    float64 `mapstructure:"ml_weight"`
}

// ScoreService implements service.ScoreService: it runs the rule evaluator
// and the learned predictor independently, blends the sub-scores with fixed
// weights, and persists the full derivation as one immutable history row.
type ScoreService struct {
	logger     *logging.Logger
	metrics    *metrics.Collector
	config     ScoreServiceConfig
	evaluator  service.RuleEvaluator
	predictor  service.ScorePredictor
	ruleSource repository.RuleSource
	history    repository.ScoreHistoryRepository
}

// NewScoreService creates a new score aggregator
func NewScoreService(
	logger *logging.Logger,
	collector *metrics.Collector,
	config ScoreServiceConfig,
	evaluator service.RuleEvaluator,
	predictor service.ScorePredictor,
	ruleSource repository.RuleSource,
	history repository.ScoreHistoryRepository,
) *ScoreService {
	if config.RulesWeight == 0 && config.MLWeight == 0 {
		config.RulesWeight = 0.7
		config.MLWeight = 0.3
	}
	return &ScoreService{
		logger:     logger.WithComponent("score_service"),
		metrics:    collector,
		config:     config,
		evaluator:  evaluator,
		predictor:  predictor,
		ruleSource: ruleSource,
		history:    history,
	}
}

// ComputeScore computes the blended security score for one application. A
// persistence failure fails the whole request: no partial score is returned
// and no misleading history row is written.
func (s *ScoreService) ComputeScore(ctx context.Context, applicationID string, features entity.FeatureVector) (*entity.ScoreResult, error) {
	start := time.Now()

	rules, err := s.ruleSource.Load(ctx)
	if err != nil {
		s.recordOperation("compute_score", "error", start)
		return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "failed to load ruleset")
	}

	// The two sub-scores have no data dependency on each other and share
	// no mutable state; run them concurrently.
	var evaluation *service.RuleEvaluation
	var mlScore float64

	var g errgroup.Group
	g.Go(func() error {
		evaluation = s.evaluator.Evaluate(rules, features)
		return nil
	})
	g.Go(func() error {
		mlScore = s.predictor.Predict(features)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.recordOperation("compute_score", "error", start)
		return nil, err
	}

	finalScore := entity.ClampScore(evaluation.Score*s.config.RulesWeight + mlScore*s.config.MLWeight)
	now := time.Now().UTC()

	record := &entity.ScoreHistory{
		ID:            uuid.New(),
		ApplicationID: applicationID,
		Source:        entity.ScoreSourceBlended,
		RulesScore:    evaluation.Score,
		MLScore:       mlScore,
		FinalScore:    finalScore,
		Features:      features.Clone(),
		Triggered:     evaluation.Triggered,
		CreatedAt:     now,
	}

	if err := s.history.Create(ctx, record); err != nil {
		s.recordOperation("compute_score", "error", start)
		return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "failed to persist score history")
	}

	s.recordOperation("compute_score", "success", start)
	s.logger.Info("Score computed",
		logging.String("application_id", applicationID),
		logging.Float64("final_score", finalScore),
		logging.Float64("rules_score", evaluation.Score),
		logging.Float64("ml_score", mlScore),
		logging.Int("triggered_rules", len(evaluation.Triggered)),
	)

	return &entity.ScoreResult{
		ApplicationID: applicationID,
		FinalScore:    finalScore,
		RulesScore:    evaluation.Score,
		MLScore:       mlScore,
		Triggered:     evaluation.Triggered,
		Timestamp:     now,
	}, nil
}

// GetHistory returns history rows newest first. Applications with no history
// get an empty slice, never a fabricated row and never an error.
func (s *ScoreService) GetHistory(ctx context.Context, applicationID string, limit int) ([]*entity.ScoreHistory, error) {
	records, err := s.history.GetByApplication(ctx, applicationID, limit)
	if err != nil {
		return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "failed to load score history")
	}
	if records == nil {
		records = []*entity.ScoreHistory{}
	}
	return records, nil
}

// TrainModel retrains the predictor using all score history rows as the
// corpus: feature snapshots as samples, final scores as targets. An empty
// corpus returns a failure result without touching the model registry.
func (s *ScoreService) TrainModel(ctx context.Context) (*entity.TrainingResult, error) {
	start := time.Now()

	records, err := s.history.GetAll(ctx)
	if err != nil {
		s.recordOperation("train_model", "error", start)
		return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "failed to load training corpus")
	}
	if len(records) == 0 {
		s.recordOperation("train_model", "empty_corpus", start)
		return &entity.TrainingResult{
			Status:  entity.TrainingStatusError,
			Message: "no historical data available for training",
		}, nil
	}

	samples := make([]entity.FeatureVector, len(records))
	targets := make([]float64, len(records))
	for i, record := range records {
		samples[i] = record.Features
		targets[i] = record.FinalScore
	}

	result, err := s.predictor.Train(ctx, samples, targets)
	if err != nil {
		s.recordOperation("train_model", "error", start)
		return nil, err
	}

	s.recordOperation("train_model", string(result.Status), start)
	return result, nil
}

func (s *ScoreService) recordOperation(operation, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordScoringOperation(operation, status, time.Since(start))
	}
}
