package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/pkg/logging"
	"github.com/cellango/SecurityApps/shared/common"
)

type fakeRuleSource struct {
	rules   []entity.Rule
	loadErr error
}

func (f *fakeRuleSource) Load(context.Context) ([]entity.Rule, error) {
	return f.rules, f.loadErr
}

func (f *fakeRuleSource) Save(_ context.Context, rules []entity.Rule) error {
	f.rules = rules
	return nil
}

type fakeHistoryRepo struct {
	records   []*entity.ScoreHistory
	createErr error
}

func (f *fakeHistoryRepo) Create(_ context.Context, record *entity.ScoreHistory) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeHistoryRepo) GetByApplication(_ context.Context, applicationID string, limit int) ([]*entity.ScoreHistory, error) {
	var out []*entity.ScoreHistory
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		if f.records[i].ApplicationID == applicationID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

func (f *fakeHistoryRepo) GetLatest(_ context.Context, applicationID string) (*entity.ScoreHistory, error) {
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].ApplicationID == applicationID {
			return f.records[i], nil
		}
	}
	return nil, common.ErrNotFound("score history")
}

func (f *fakeHistoryRepo) GetAll(context.Context) ([]*entity.ScoreHistory, error) {
	return f.records, nil
}

type fakePredictor struct {
	score       float64
	trainResult *entity.TrainingResult
	trainErr    error
	trained     int
}

func (f *fakePredictor) Predict(entity.FeatureVector) float64 { return f.score }

func (f *fakePredictor) Train(_ context.Context, samples []entity.FeatureVector, targets []float64) (*entity.TrainingResult, error) {
	f.trained++
	if f.trainErr != nil {
		return nil, f.trainErr
	}
	if f.trainResult != nil {
		return f.trainResult, nil
	}
	return &entity.TrainingResult{Status: entity.TrainingStatusSuccess, Version: "test"}, nil
}

func (f *fakePredictor) LoadActive(context.Context) error { return nil }
func (f *fakePredictor) ActiveVersion() string            { return "test" }

func newTestScoreService(rules *fakeRuleSource, history *fakeHistoryRepo, predictor *fakePredictor) *ScoreService {
	return NewScoreService(
		logging.NewNop(), nil, ScoreServiceConfig{},
		newTestRulesEngine(), predictor, rules, history,
	)
}

func TestComputeScoreWeightedBlend(t *testing.T) {
	rules := &fakeRuleSource{rules: entity.DefaultRules()}
	history := &fakeHistoryRepo{}
	predictor := &fakePredictor{score: 85}

	// Features where only the critical rule fires: rules score 80.
	features := entity.FeatureVector{
		"critical_vulns":           2.0,
		"high_vulns":               1.0,
		"outdated_deps_percentage": 15.0,
		"compliance_violations":    0.0,
	}

	svc := newTestScoreService(rules, history, predictor)
	result, err := svc.ComputeScore(context.Background(), "app-1", features)
	require.NoError(t, err)

	assert.Equal(t, 80.0, result.RulesScore)
	assert.Equal(t, 85.0, result.MLScore)
	assert.InDelta(t, 81.5, result.FinalScore, 1e-9)
	require.Len(t, result.Triggered, 1)
	assert.Equal(t, "SEC001", result.Triggered[0].RuleID)
}

func TestComputeScorePersistsFullDerivation(t *testing.T) {
	rules := &fakeRuleSource{rules: entity.DefaultRules()}
	history := &fakeHistoryRepo{}
	predictor := &fakePredictor{score: 60}

	features := entity.FeatureVector{"critical_vulns": 1.0}
	svc := newTestScoreService(rules, history, predictor)

	result, err := svc.ComputeScore(context.Background(), "app-1", features)
	require.NoError(t, err)

	require.Len(t, history.records, 1)
	record := history.records[0]
	assert.Equal(t, "app-1", record.ApplicationID)
	assert.Equal(t, entity.ScoreSourceBlended, record.Source)
	assert.Equal(t, result.RulesScore, record.RulesScore)
	assert.Equal(t, result.MLScore, record.MLScore)
	assert.Equal(t, result.FinalScore, record.FinalScore)
	assert.Equal(t, result.Triggered, record.Triggered)

	// The snapshot is a copy: mutating the caller's map must not change it.
	features["critical_vulns"] = 50.0
	assert.Equal(t, 1.0, record.Features["critical_vulns"])
}

func TestComputeScorePersistenceFailureFailsRequest(t *testing.T) {
	rules := &fakeRuleSource{rules: entity.DefaultRules()}
	history := &fakeHistoryRepo{createErr: common.ErrDatabaseQuery(assert.AnError)}
	predictor := &fakePredictor{score: 85}

	svc := newTestScoreService(rules, history, predictor)
	result, err := svc.ComputeScore(context.Background(), "app-1", entity.FeatureVector{})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, common.IsPersistenceError(err))
}

func TestComputeScoreBoundsHold(t *testing.T) {
	rules := &fakeRuleSource{rules: entity.DefaultRules()}
	vectors := []entity.FeatureVector{
		{},
		{"critical_vulns": 1000.0, "high_vulns": 1000.0, "outdated_deps_percentage": 100.0, "compliance_violations": 1000.0},
		{"critical_vulns": -1.0},
	}

	for _, predictorScore := range []float64{0, 50, 100} {
		for _, features := range vectors {
			history := &fakeHistoryRepo{}
			svc := newTestScoreService(rules, history, &fakePredictor{score: predictorScore})
			result, err := svc.ComputeScore(context.Background(), "app-1", features)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, result.FinalScore, 0.0)
			assert.LessOrEqual(t, result.FinalScore, 100.0)
			assert.GreaterOrEqual(t, result.RulesScore, 0.0)
			assert.LessOrEqual(t, result.RulesScore, 100.0)
		}
	}
}

func TestGetHistoryReturnsEmptySliceForUnknownApplication(t *testing.T) {
	svc := newTestScoreService(&fakeRuleSource{}, &fakeHistoryRepo{}, &fakePredictor{})

	records, err := svc.GetHistory(context.Background(), "never-scored", 10)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestGetHistoryNewestFirst(t *testing.T) {
	rules := &fakeRuleSource{rules: entity.DefaultRules()}
	history := &fakeHistoryRepo{}
	predictor := &fakePredictor{score: 50}
	svc := newTestScoreService(rules, history, predictor)

	_, err := svc.ComputeScore(context.Background(), "app-1", entity.FeatureVector{"critical_vulns": 0.0})
	require.NoError(t, err)
	_, err = svc.ComputeScore(context.Background(), "app-1", entity.FeatureVector{"critical_vulns": 5.0})
	require.NoError(t, err)

	records, err := svc.GetHistory(context.Background(), "app-1", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 5.0, records[0].Features["critical_vulns"])
	assert.Equal(t, 0.0, records[1].Features["critical_vulns"])
}

func TestTrainModelEmptyCorpusLeavesRegistryUntouched(t *testing.T) {
	predictor := &fakePredictor{}
	svc := newTestScoreService(&fakeRuleSource{}, &fakeHistoryRepo{}, predictor)

	result, err := svc.TrainModel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.TrainingStatusError, result.Status)
	assert.NotEmpty(t, result.Message)
	assert.Zero(t, predictor.trained)
}

func TestTrainModelUsesHistoryAsCorpus(t *testing.T) {
	rules := &fakeRuleSource{rules: entity.DefaultRules()}
	history := &fakeHistoryRepo{}
	predictor := &fakePredictor{score: 50}
	svc := newTestScoreService(rules, history, predictor)

	_, err := svc.ComputeScore(context.Background(), "app-1", entity.FeatureVector{"critical_vulns": 1.0})
	require.NoError(t, err)

	result, err := svc.TrainModel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.TrainingStatusSuccess, result.Status)
	assert.Equal(t, 1, predictor.trained)
}
