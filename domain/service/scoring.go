package service

import (
	"context"

	"github.com/cellango/SecurityApps/domain/entity"
)

// RuleEvaluation is the result of evaluating a ruleset against a feature
// vector. Score is clamped to [0,100]; RawScore retains the pre-clamp sum so
// callers can detect saturation.
type RuleEvaluation struct {
	Score     float64              `json:"score"`
	RawScore  float64              `json:"raw_score"`
	Triggered []entity.RuleOutcome `json:"triggered_rules"`
	Skipped   []SkippedRule        `json:"skipped_rules,omitempty"`
}

// SkippedRule surfaces a rule that could not be evaluated because its
// condition was malformed. Skips are observable, never silently swallowed.
type SkippedRule struct {
	RuleID string `json:"rule_id"`
	Reason string `json:"reason"`
}

// RuleEvaluator evaluates a fixed ruleset against a feature vector. It is a
// pure, deterministic function of (ruleset, features).
type RuleEvaluator interface {
	Evaluate(rules []entity.Rule, features entity.FeatureVector) *RuleEvaluation
}

// ScorePredictor holds the trained regression model plus its fitted scaler
// and owns the versioned model registry.
type ScorePredictor interface {
	// Predict returns a continuous score in [0,100]. An untrained
	// predictor returns a configured default.
	Predict(features entity.FeatureVector) float64

	// Train fits a new scaler and model on the samples, persists both
	// under a fresh version, and atomically swaps the active version.
	// Empty or mismatched training data yields an error-status result;
	// persistence failures are returned as errors.
	Train(ctx context.Context, samples []entity.FeatureVector, targets []float64) (*entity.TrainingResult, error)

	// LoadActive loads the currently active model version's artifacts,
	// initializing a fresh untrained model+scaler pair when none exists.
	LoadActive(ctx context.Context) error

	// ActiveVersion returns the loaded version identifier, empty when
	// untrained.
	ActiveVersion() string
}

// ScoreService is the score aggregator exposed to collaborators.
type ScoreService interface {
	// ComputeScore runs the rules and ML sub-scores independently, blends
	// them with the configured weights, persists the full derivation as
	// one history row, and returns the same breakdown.
	ComputeScore(ctx context.Context, applicationID string, features entity.FeatureVector) (*entity.ScoreResult, error)

	// GetHistory returns history rows newest first; empty slice for
	// applications that have never been scored.
	GetHistory(ctx context.Context, applicationID string, limit int) ([]*entity.ScoreHistory, error)

	// TrainModel retrains the predictor on the full score history corpus.
	TrainModel(ctx context.Context) (*entity.TrainingResult, error)
}

// FactorScorer supplies the per-sub-factor scores (each 0-100) consumed by
// the risk parameter model. Implementations are collaborator-supplied and
// pluggable without changing the model's contract.
type FactorScorer interface {
	Scores(ctx context.Context, app *entity.Application) map[string]float64
}

// RiskScoringService is the configuration-driven weighted-sub-factor scorer
// for the coarse application-type-based risk rating.
type RiskScoringService interface {
	// CalculateRiskScore computes the weighted, normalized score in
	// [0,100] and records it in the shared score history sink.
	CalculateRiskScore(ctx context.Context, app *entity.Application, params *entity.RiskParameters) (float64, error)
}

// FeatureSource is the feature extraction collaborator boundary: it produces
// the flat named-value map for an application's current state.
type FeatureSource interface {
	GetFeatures(ctx context.Context, applicationID string) (entity.FeatureVector, error)
}
