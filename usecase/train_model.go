package usecase

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/domain/service"
	"github.com/cellango/SecurityApps/infrastructure/messaging"
	"github.com/cellango/SecurityApps/pkg/logging"
	"github.com/cellango/SecurityApps/shared/common"
)

// TrainModelUseCase triggers retraining on the score history corpus. A rate
// limiter keeps repeated admin or scheduler triggers from stacking training
// runs on top of each other.
type TrainModelUseCase struct {
	scores    service.ScoreService
	publisher messaging.EventPublisher
	limiter   *rate.Limiter
	logger    *logging.Logger
}

// NewTrainModelUseCase creates the training use case. minInterval bounds how
// often training may start; zero disables the limit.
func NewTrainModelUseCase(
	scores service.ScoreService,
	publisher messaging.EventPublisher,
	minInterval time.Duration,
	logger *logging.Logger,
) *TrainModelUseCase {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if minInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(minInterval), 1)
	}
	return &TrainModelUseCase{
		scores:    scores,
		publisher: publisher,
		limiter:   limiter,
		logger:    logger.WithComponent("train_model"),
	}
}

// Execute runs one training pass. Insufficient data comes back as an
// error-status result, not an error; only infrastructure failures are errors.
func (uc *TrainModelUseCase) Execute(ctx context.Context) (*entity.TrainingResult, error) {
	if !uc.limiter.Allow() {
		return nil, common.NewAppError(common.ErrCodeRateLimited, "training was triggered too recently")
	}

	start := time.Now()
	result, err := uc.scores.TrainModel(ctx)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("training run finished",
		logging.String("status", string(result.Status)),
		logging.String("version", result.Version),
		logging.Duration("duration", time.Since(start)))

	if uc.publisher != nil {
		if err := uc.publisher.PublishModelTrained(ctx, result); err != nil {
			uc.logger.Warn("failed to publish training event",
				logging.ErrorField(err))
		}
	}
	return result, nil
}
