package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/pkg/logging"
)

func newTestRulesEngine() *RulesEngine {
	return NewRulesEngine(logging.NewNop(), nil)
}

func TestEvaluateCleanApplication(t *testing.T) {
	engine := newTestRulesEngine()
	features := entity.FeatureVector{
		"critical_vulns":           0.0,
		"high_vulns":               0.0,
		"outdated_deps_percentage": 5.0,
		"compliance_violations":    0.0,
	}

	eval := engine.Evaluate(entity.DefaultRules(), features)

	assert.Equal(t, 100.0, eval.Score)
	assert.Equal(t, 100.0, eval.RawScore)
	assert.Empty(t, eval.Triggered)
	assert.Empty(t, eval.Skipped)
}

func TestEvaluateOnlyCriticalRuleFires(t *testing.T) {
	engine := newTestRulesEngine()
	features := entity.FeatureVector{
		"critical_vulns":           2.0,
		"high_vulns":               1.0,
		"outdated_deps_percentage": 15.0,
		"compliance_violations":    0.0,
	}

	eval := engine.Evaluate(entity.DefaultRules(), features)

	assert.Equal(t, 80.0, eval.Score)
	require.Len(t, eval.Triggered, 1)
	assert.Equal(t, "SEC001", eval.Triggered[0].RuleID)
	assert.Equal(t, -20.0, eval.Triggered[0].Impact)
}

func TestEvaluateClampsDeeplyNegativeRawScore(t *testing.T) {
	engine := newTestRulesEngine()
	rules := entity.DefaultRules()
	// Amplify the impacts so the raw sum goes far below zero.
	for i := range rules {
		rules[i].Impact = -500
	}
	features := entity.FeatureVector{
		"critical_vulns":           1000.0,
		"high_vulns":               1000.0,
		"outdated_deps_percentage": 100.0,
		"compliance_violations":    1000.0,
	}

	eval := engine.Evaluate(rules, features)

	assert.Equal(t, 0.0, eval.Score)
	assert.Less(t, eval.RawScore, 0.0)
	assert.Len(t, eval.Triggered, 4)
}

func TestEvaluateNegativeCountsTriggerNothing(t *testing.T) {
	engine := newTestRulesEngine()
	features := entity.FeatureVector{
		"critical_vulns":           -1.0,
		"high_vulns":               -1.0,
		"outdated_deps_percentage": -1.0,
		"compliance_violations":    -1.0,
	}

	eval := engine.Evaluate(entity.DefaultRules(), features)

	assert.Equal(t, 100.0, eval.Score)
	assert.Empty(t, eval.Triggered)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	engine := newTestRulesEngine()
	rules := entity.DefaultRules()
	features := entity.FeatureVector{
		"critical_vulns":           3.0,
		"high_vulns":               5.0,
		"outdated_deps_percentage": 40.0,
		"compliance_violations":    2.0,
	}

	first := engine.Evaluate(rules, features)
	second := engine.Evaluate(rules, features)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.RawScore, second.RawScore)
	require.Equal(t, len(first.Triggered), len(second.Triggered))
	for i := range first.Triggered {
		assert.Equal(t, first.Triggered[i].RuleID, second.Triggered[i].RuleID)
	}
	// Ruleset order, not impact order.
	assert.Equal(t, "SEC001", first.Triggered[0].RuleID)
	assert.Equal(t, "SEC002", first.Triggered[1].RuleID)
	assert.Equal(t, "DEP001", first.Triggered[2].RuleID)
	assert.Equal(t, "COMP001", first.Triggered[3].RuleID)
}

func TestEvaluateMissingFeaturesNeverTrigger(t *testing.T) {
	engine := newTestRulesEngine()

	eval := engine.Evaluate(entity.DefaultRules(), entity.FeatureVector{})

	assert.Equal(t, 100.0, eval.Score)
	assert.Empty(t, eval.Triggered)
	assert.Empty(t, eval.Skipped)
}

func TestEvaluateSkipsMalformedConditionAndSurfacesIt(t *testing.T) {
	engine := newTestRulesEngine()
	rules := []entity.Rule{
		{
			ID:        "BAD001",
			Name:      "malformed",
			Condition: entity.Condition{Op: "regex", Field: "name"},
			Impact:    -50,
			Enabled:   true,
		},
		{
			ID:        "SEC001",
			Name:      "critical_vulnerabilities",
			Condition: entity.Condition{Op: entity.OpGreaterThan, Field: "critical_vulns", Value: 0.0},
			Impact:    -20,
			Enabled:   true,
		},
	}
	features := entity.FeatureVector{"critical_vulns": 1.0}

	eval := engine.Evaluate(rules, features)

	assert.Equal(t, 80.0, eval.Score)
	require.Len(t, eval.Skipped, 1)
	assert.Equal(t, "BAD001", eval.Skipped[0].RuleID)
	assert.NotEmpty(t, eval.Skipped[0].Reason)
	require.Len(t, eval.Triggered, 1)
	assert.Equal(t, "SEC001", eval.Triggered[0].RuleID)
}

func TestEvaluateIgnoresDisabledRules(t *testing.T) {
	engine := newTestRulesEngine()
	rules := entity.DefaultRules()
	rules[0].Enabled = false
	features := entity.FeatureVector{"critical_vulns": 5.0}

	eval := engine.Evaluate(rules, features)

	assert.Equal(t, 100.0, eval.Score)
	assert.Empty(t, eval.Triggered)
}

func TestEvaluatePositiveImpactClampedAtHundred(t *testing.T) {
	engine := newTestRulesEngine()
	rules := []entity.Rule{
		{
			ID:        "BONUS001",
			Name:      "strong_controls",
			Condition: entity.Condition{Op: entity.OpEquals, Field: "mfa_enabled", Value: true},
			Impact:    20,
			Enabled:   true,
		},
	}

	eval := engine.Evaluate(rules, entity.FeatureVector{"mfa_enabled": true})

	assert.Equal(t, 100.0, eval.Score)
	assert.Equal(t, 120.0, eval.RawScore)
}
