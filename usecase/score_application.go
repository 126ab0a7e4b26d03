// Package usecase wires the domain services to their collaborators: feature
// extraction, the latest-score cache, and the event bus. Handlers call use
// cases, never services directly.
package usecase

import (
	"context"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/domain/service"
	"github.com/cellango/SecurityApps/infrastructure/messaging"
	"github.com/cellango/SecurityApps/pkg/logging"
	"github.com/cellango/SecurityApps/shared/common"
)

// ScoreCache is the latest-score cache consumed by the scoring use cases.
// Cache failures degrade to database reads and never fail a request.
type ScoreCache interface {
	CacheScore(ctx context.Context, result *entity.ScoreResult) error
	GetCachedScore(ctx context.Context, applicationID string) (*entity.ScoreResult, error)
	InvalidateScore(ctx context.Context, applicationID string) error
}

// ScoreApplicationUseCase orchestrates one scoring run end to end: feature
// extraction, score computation, cache refresh, and event publication.
type ScoreApplicationUseCase struct {
	features  service.FeatureSource
	scores    service.ScoreService
	cache     ScoreCache
	publisher messaging.EventPublisher
	logger    *logging.Logger
}

// NewScoreApplicationUseCase creates the scoring use case. Cache and publisher
// may be nil in deployments that run without Redis or Kafka.
func NewScoreApplicationUseCase(
	features service.FeatureSource,
	scores service.ScoreService,
	cache ScoreCache,
	publisher messaging.EventPublisher,
	logger *logging.Logger,
) *ScoreApplicationUseCase {
	return &ScoreApplicationUseCase{
		features:  features,
		scores:    scores,
		cache:     cache,
		publisher: publisher,
		logger:    logger.WithComponent("score_application"),
	}
}

// Execute scores one application from its current feature state. The score
// computation and its history write are mandatory; cache refresh and event
// publication are best effort.
func (uc *ScoreApplicationUseCase) Execute(ctx context.Context, applicationID string) (*entity.ScoreResult, error) {
	if applicationID == "" {
		return nil, common.NewAppError(common.ErrCodeInvalidInput, "application id is required")
	}

	features, err := uc.features.GetFeatures(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	result, err := uc.scores.ComputeScore(ctx, applicationID, features)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.CacheScore(ctx, result); err != nil {
			uc.logger.Warn("failed to refresh score cache",
				logging.String("application_id", applicationID),
				logging.ErrorField(err))
		}
	}
	if uc.publisher != nil {
		if err := uc.publisher.PublishScoreComputed(ctx, result); err != nil {
			uc.logger.Warn("failed to publish score event",
				logging.String("application_id", applicationID),
				logging.ErrorField(err))
		}
	}

	return result, nil
}

// ExecuteWithFeatures scores one application from a caller-supplied feature
// vector, bypassing the feature extraction collaborator. Scan pipelines that
// already hold the features use this path.
func (uc *ScoreApplicationUseCase) ExecuteWithFeatures(ctx context.Context, applicationID string, features entity.FeatureVector) (*entity.ScoreResult, error) {
	if applicationID == "" {
		return nil, common.NewAppError(common.ErrCodeInvalidInput, "application id is required")
	}
	if features == nil {
		features = entity.FeatureVector{}
	}

	result, err := uc.scores.ComputeScore(ctx, applicationID, features)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.CacheScore(ctx, result); err != nil {
			uc.logger.Warn("failed to refresh score cache",
				logging.String("application_id", applicationID),
				logging.ErrorField(err))
		}
	}
	if uc.publisher != nil {
		if err := uc.publisher.PublishScoreComputed(ctx, result); err != nil {
			uc.logger.Warn("failed to publish score event",
				logging.String("application_id", applicationID),
				logging.ErrorField(err))
		}
	}

	return result, nil
}

// CurrentScore returns the latest known score for an application, serving
// from cache when possible and falling back to the newest history row.
func (uc *ScoreApplicationUseCase) CurrentScore(ctx context.Context, applicationID string) (*entity.ScoreResult, error) {
	if uc.cache != nil {
		if cached, err := uc.cache.GetCachedScore(ctx, applicationID); err == nil {
			return cached, nil
		}
	}

	records, err := uc.scores.GetHistory(ctx, applicationID, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, common.ErrNotFound("score")
	}

	latest := records[0]
	result := &entity.ScoreResult{
		ApplicationID: latest.ApplicationID,
		FinalScore:    latest.FinalScore,
		RulesScore:    latest.RulesScore,
		MLScore:       latest.MLScore,
		Triggered:     latest.Triggered,
		Timestamp:     latest.CreatedAt,
	}
	if uc.cache != nil {
		if err := uc.cache.CacheScore(ctx, result); err != nil {
			uc.logger.Debug("failed to backfill score cache",
				logging.String("application_id", applicationID),
				logging.ErrorField(err))
		}
	}
	return result, nil
}

// History returns score history rows for an application, newest first.
func (uc *ScoreApplicationUseCase) History(ctx context.Context, applicationID string, limit int) ([]*entity.ScoreHistory, error) {
	return uc.scores.GetHistory(ctx, applicationID, limit)
}
