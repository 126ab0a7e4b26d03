package service

import (
	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/domain/service"
	"github.com/cellango/SecurityApps/pkg/logging"
	"github.com/cellango/SecurityApps/pkg/metrics"
)

// baseScore is the starting point before rule impacts are applied.
const baseScore = 100.0

// RulesEngine implements service.RuleEvaluator. Evaluation is stateless:
// identical (ruleset, features) inputs always produce identical output, with
// triggered rules reported in ruleset order.
type RulesEngine struct {
	logger  *logging.Logger
	metrics *metrics.Collector
}

// NewRulesEngine creates a new rules engine
func NewRulesEngine(logger *logging.Logger, collector *metrics.Collector) *RulesEngine {
	return &RulesEngine{
		logger:  logger.WithComponent("rules_engine"),
		metrics: collector,
	}
}

// Evaluate checks each enabled rule's condition against the feature vector.
// The score starts at 100 and each triggered rule's signed impact is added;
// the result is clamped to [0,100] with the raw sum retained. A rule whose
// condition is malformed is skipped and surfaced, never aborting the run.
func (re *RulesEngine) Evaluate(rules []entity.Rule, features entity.FeatureVector) *service.RuleEvaluation {
	eval := &service.RuleEvaluation{
		Triggered: []entity.RuleOutcome{},
	}

	raw := baseScore
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}

		matched, err := rule.Condition.Matches(features)
		if err != nil {
			eval.Skipped = append(eval.Skipped, service.SkippedRule{
				RuleID: rule.ID,
				Reason: err.Error(),
			})
			re.logger.Warn("Skipping rule with malformed condition",
				logging.String("rule_id", rule.ID),
				logging.String("rule_name", rule.Name),
				logging.String("reason", err.Error()),
			)
			if re.metrics != nil {
				re.metrics.RecordRuleSkipped(rule.ID)
			}
			continue
		}

		if matched {
			raw += rule.Impact
			eval.Triggered = append(eval.Triggered, entity.RuleOutcome{
				RuleID:   rule.ID,
				Name:     rule.Name,
				Impact:   rule.Impact,
				Category: rule.Category,
			})
		}
	}

	eval.RawScore = raw
	eval.Score = entity.ClampScore(raw)

	if re.metrics != nil {
		re.metrics.RecordRuleEvaluation(len(eval.Triggered))
	}

	re.logger.Debug("Rule evaluation completed",
		logging.Float64("score", eval.Score),
		logging.Float64("raw_score", eval.RawScore),
		logging.Int("triggered", len(eval.Triggered)),
		logging.Int("skipped", len(eval.Skipped)),
	)

	return eval
}
