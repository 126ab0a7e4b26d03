package entity

import (
	"time"

	"github.com/google/uuid"
)

// ScoreSource identifies which pipeline produced a history record.
type ScoreSource string

const (
	// ScoreSourceBlended marks records from the rules+ML scoring pipeline.
	ScoreSourceBlended ScoreSource = "blended"
	// ScoreSourceRiskModel marks records from the risk parameter model.
	ScoreSourceRiskModel ScoreSource = "risk_model"
)

// ScoreHistory is one immutable, append-only record of a computed score and
// its full derivation. It is the audit trail and the ML training corpus; the
// engine never mutates or deletes rows.
type ScoreHistory struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	ApplicationID string        `json:"application_id" db:"application_id"`
	Source        ScoreSource   `json:"source" db:"source"`
	RulesScore    float64       `json:"rules_score" db:"rules_score"`
	MLScore       float64       `json:"ml_score" db:"ml_score"`
	FinalScore    float64       `json:"final_score" db:"final_score"`
	Features      FeatureVector `json:"features" db:"-"`
	Triggered     []RuleOutcome `json:"triggered_rules" db:"-"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// ScoreResult is what ComputeScore returns to the caller: the same breakdown
// that was persisted.
type ScoreResult struct {
	ApplicationID string        `json:"application_id"`
	FinalScore    float64       `json:"final_score"`
	RulesScore    float64       `json:"rules_score"`
	MLScore       float64       `json:"ml_score"`
	Triggered     []RuleOutcome `json:"triggered_rules"`
	Timestamp     time.Time     `json:"timestamp"`
}

// ClampScore bounds a score to the closed interval [0, 100].
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
