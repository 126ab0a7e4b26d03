package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/pkg/logging"
	"github.com/cellango/SecurityApps/shared/common"
)

type fakeFeatureSource struct {
	features entity.FeatureVector
	err      error
	calls    int
}

func (f *fakeFeatureSource) GetFeatures(context.Context, string) (entity.FeatureVector, error) {
	f.calls++
	return f.features, f.err
}

type fakeScoreService struct {
	result      *entity.ScoreResult
	history     []*entity.ScoreHistory
	computeErr  error
	trainResult *entity.TrainingResult
	lastFeats   entity.FeatureVector
}

func (f *fakeScoreService) ComputeScore(_ context.Context, applicationID string, features entity.FeatureVector) (*entity.ScoreResult, error) {
	if f.computeErr != nil {
		return nil, f.computeErr
	}
	f.lastFeats = features
	result := *f.result
	result.ApplicationID = applicationID
	return &result, nil
}

func (f *fakeScoreService) GetHistory(context.Context, string, int) ([]*entity.ScoreHistory, error) {
	return f.history, nil
}

func (f *fakeScoreService) TrainModel(context.Context) (*entity.TrainingResult, error) {
	if f.trainResult != nil {
		return f.trainResult, nil
	}
	return &entity.TrainingResult{Status: entity.TrainingStatusSuccess, Version: "v1"}, nil
}

type fakeScoreCache struct {
	stored map[string]*entity.ScoreResult
	getErr error
	setErr error
}

func newFakeScoreCache() *fakeScoreCache {
	return &fakeScoreCache{stored: map[string]*entity.ScoreResult{}}
}

func (f *fakeScoreCache) CacheScore(_ context.Context, result *entity.ScoreResult) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.stored[result.ApplicationID] = result
	return nil
}

func (f *fakeScoreCache) GetCachedScore(_ context.Context, applicationID string) (*entity.ScoreResult, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if result, ok := f.stored[applicationID]; ok {
		return result, nil
	}
	return nil, common.ErrNotFound("cached score")
}

func (f *fakeScoreCache) InvalidateScore(_ context.Context, applicationID string) error {
	delete(f.stored, applicationID)
	return nil
}

type fakePublisher struct {
	scoreEvents []*entity.ScoreResult
	trainEvents []*entity.TrainingResult
	err         error
}

func (f *fakePublisher) PublishScoreComputed(_ context.Context, result *entity.ScoreResult) error {
	if f.err != nil {
		return f.err
	}
	f.scoreEvents = append(f.scoreEvents, result)
	return nil
}

func (f *fakePublisher) PublishModelTrained(_ context.Context, result *entity.TrainingResult) error {
	if f.err != nil {
		return f.err
	}
	f.trainEvents = append(f.trainEvents, result)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func baseResult() *entity.ScoreResult {
	return &entity.ScoreResult{
		FinalScore: 81.5,
		RulesScore: 80,
		MLScore:    85,
		Timestamp:  time.Now().UTC(),
	}
}

func TestExecuteScoresCachesAndPublishes(t *testing.T) {
	features := &fakeFeatureSource{features: entity.FeatureVector{"critical_vulns": 2.0}}
	scores := &fakeScoreService{result: baseResult()}
	cache := newFakeScoreCache()
	publisher := &fakePublisher{}

	uc := NewScoreApplicationUseCase(features, scores, cache, publisher, logging.NewNop())
	result, err := uc.Execute(context.Background(), "app-1")
	require.NoError(t, err)

	assert.Equal(t, "app-1", result.ApplicationID)
	assert.Equal(t, 1, features.calls)
	assert.Equal(t, 2.0, scores.lastFeats["critical_vulns"])
	assert.Contains(t, cache.stored, "app-1")
	require.Len(t, publisher.scoreEvents, 1)
	assert.Equal(t, 81.5, publisher.scoreEvents[0].FinalScore)
}

func TestExecuteRejectsEmptyApplicationID(t *testing.T) {
	uc := NewScoreApplicationUseCase(&fakeFeatureSource{}, &fakeScoreService{result: baseResult()}, nil, nil, logging.NewNop())

	_, err := uc.Execute(context.Background(), "")
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeInvalidInput))
}

func TestExecuteCacheFailureDoesNotFailRequest(t *testing.T) {
	features := &fakeFeatureSource{features: entity.FeatureVector{}}
	cache := newFakeScoreCache()
	cache.setErr = common.ErrExternalService("redis", assert.AnError)

	uc := NewScoreApplicationUseCase(features, &fakeScoreService{result: baseResult()}, cache, &fakePublisher{}, logging.NewNop())
	result, err := uc.Execute(context.Background(), "app-1")
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestExecutePublishFailureDoesNotFailRequest(t *testing.T) {
	features := &fakeFeatureSource{features: entity.FeatureVector{}}
	publisher := &fakePublisher{err: common.ErrExternalService("kafka", assert.AnError)}

	uc := NewScoreApplicationUseCase(features, &fakeScoreService{result: baseResult()}, newFakeScoreCache(), publisher, logging.NewNop())
	_, err := uc.Execute(context.Background(), "app-1")
	require.NoError(t, err)
}

func TestExecuteFeatureSourceFailurePropagates(t *testing.T) {
	features := &fakeFeatureSource{err: common.ErrExternalService("feature-extractor", assert.AnError)}

	uc := NewScoreApplicationUseCase(features, &fakeScoreService{result: baseResult()}, nil, nil, logging.NewNop())
	_, err := uc.Execute(context.Background(), "app-1")
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeExternalService))
}

func TestExecuteWithFeaturesBypassesExtractor(t *testing.T) {
	features := &fakeFeatureSource{}
	scores := &fakeScoreService{result: baseResult()}

	uc := NewScoreApplicationUseCase(features, scores, nil, nil, logging.NewNop())
	_, err := uc.ExecuteWithFeatures(context.Background(), "app-1", entity.FeatureVector{"high_vulns": 3.0})
	require.NoError(t, err)

	assert.Zero(t, features.calls)
	assert.Equal(t, 3.0, scores.lastFeats["high_vulns"])
}

func TestCurrentScoreServesFromCache(t *testing.T) {
	cache := newFakeScoreCache()
	cached := baseResult()
	cached.ApplicationID = "app-1"
	cache.stored["app-1"] = cached

	uc := NewScoreApplicationUseCase(&fakeFeatureSource{}, &fakeScoreService{result: baseResult()}, cache, nil, logging.NewNop())
	result, err := uc.CurrentScore(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, cached, result)
}

func TestCurrentScoreFallsBackToLatestHistoryRow(t *testing.T) {
	scores := &fakeScoreService{
		result: baseResult(),
		history: []*entity.ScoreHistory{{
			ApplicationID: "app-1",
			RulesScore:    80,
			MLScore:       85,
			FinalScore:    81.5,
			CreatedAt:     time.Now().UTC(),
		}},
	}
	cache := newFakeScoreCache()

	uc := NewScoreApplicationUseCase(&fakeFeatureSource{}, scores, cache, nil, logging.NewNop())
	result, err := uc.CurrentScore(context.Background(), "app-1")
	require.NoError(t, err)

	assert.Equal(t, 81.5, result.FinalScore)
	// Backfilled so the next read is a cache hit.
	assert.Contains(t, cache.stored, "app-1")
}

func TestCurrentScoreUnknownApplication(t *testing.T) {
	uc := NewScoreApplicationUseCase(&fakeFeatureSource{}, &fakeScoreService{result: baseResult()}, nil, nil, logging.NewNop())

	_, err := uc.CurrentScore(context.Background(), "never-scored")
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeNotFound))
}

func TestTrainModelUseCaseRateLimit(t *testing.T) {
	scores := &fakeScoreService{result: baseResult()}
	publisher := &fakePublisher{}
	uc := NewTrainModelUseCase(scores, publisher, time.Hour, logging.NewNop())

	first, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.TrainingStatusSuccess, first.Status)
	require.Len(t, publisher.trainEvents, 1)

	_, err = uc.Execute(context.Background())
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeRateLimited))
}

func TestTrainModelUseCaseNoLimit(t *testing.T) {
	uc := NewTrainModelUseCase(&fakeScoreService{result: baseResult()}, nil, 0, logging.NewNop())

	for i := 0; i < 3; i++ {
		_, err := uc.Execute(context.Background())
		require.NoError(t, err)
	}
}
