package entity

import (
	"fmt"

	"github.com/cellango/SecurityApps/shared/common"
)

// ConditionOp identifies one variant of the condition tree.
type ConditionOp string

const (
	// OpEquals matches when the feature value equals the condition value.
	OpEquals ConditionOp = "eq"
	// OpGreaterThan matches when the numeric feature value exceeds the condition value.
	OpGreaterThan ConditionOp = "gt"
	// OpLessThan matches when the numeric feature value is below the condition value.
	OpLessThan ConditionOp = "lt"
	// OpAllOf matches when every sub-condition matches.
	OpAllOf ConditionOp = "all_of"
)

// Condition is a tagged predicate tree over a feature vector. It replaces the
// expression-string rules of earlier revisions: no dynamic code execution,
// serializable as JSON, evaluated by a small interpreter.
type Condition struct {
	Op    ConditionOp `json:"op"`
	Field string      `json:"field,omitempty"`
	Value interface{} `json:"value,omitempty"`
	All   []Condition `json:"all,omitempty"`
}

// Validate reports whether the condition tree is structurally sound. Malformed
// trees are rejected at the admin boundary and skipped at evaluation time.
func (c Condition) Validate() error {
	switch c.Op {
	case OpEquals, OpGreaterThan, OpLessThan:
		if c.Field == "" {
			return fmt.Errorf("condition op %q requires a field", c.Op)
		}
		if c.Value == nil {
			return fmt.Errorf("condition op %q on field %q requires a value", c.Op, c.Field)
		}
		if c.Op != OpEquals {
			if _, ok := asNumber(c.Value); !ok {
				return fmt.Errorf("condition op %q on field %q requires a numeric value", c.Op, c.Field)
			}
		}
		return nil
	case OpAllOf:
		if len(c.All) == 0 {
			return fmt.Errorf("condition op %q requires sub-conditions", OpAllOf)
		}
		for _, sub := range c.All {
			if err := sub.Validate(); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown condition op %q", c.Op)
	}
}

// Matches evaluates the condition against a feature vector. A reference to an
// absent feature or a non-numeric value under a numeric comparator evaluates
// to false, never to an error; the returned error marks a malformed tree only.
func (c Condition) Matches(features FeatureVector) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}
	return c.matches(features), nil
}

func (c Condition) matches(features FeatureVector) bool {
	switch c.Op {
	case OpEquals:
		v, ok := features[c.Field]
		if !ok {
			return false
		}
		if want, wantNum := asNumber(c.Value); wantNum {
			got, gotNum := features.Number(c.Field)
			return gotNum && got == want
		}
		return v == c.Value
	case OpGreaterThan:
		got, ok := features.Number(c.Field)
		if !ok {
			return false
		}
		want, _ := asNumber(c.Value)
		return got > want
	case OpLessThan:
		got, ok := features.Number(c.Field)
		if !ok {
			return false
		}
		want, _ := asNumber(c.Value)
		return got < want
	case OpAllOf:
		for _, sub := range c.All {
			if !sub.matches(features) {
				return false
			}
		}
		return true
	}
	return false
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

// Rule is a named condition-impact pair used to deterministically adjust the
// base security score.
type Rule struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	Condition   Condition `json:"condition" db:"-"`
	Impact      float64   `json:"impact" db:"impact"`
	Category    string    `json:"category" db:"category"`
	Enabled     bool      `json:"enabled" db:"enabled"`
}

// RuleOutcome records one rule that fired during an evaluation run, in
// ruleset order.
type RuleOutcome struct {
	RuleID   string  `json:"rule_id"`
	Name     string  `json:"name"`
	Impact   float64 `json:"impact"`
	Category string  `json:"category,omitempty"`
}

// RuleSet is the mutable admin-time collection of scoring rules. Evaluation
// runs operate on an immutable snapshot taken via Snapshot.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet creates a rule set from the given rules, rejecting duplicates.
func NewRuleSet(rules []Rule) (*RuleSet, error) {
	rs := &RuleSet{}
	for _, r := range rules {
		if err := rs.Add(r); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// Add appends a rule, rejecting a duplicate id before it can corrupt the
// active ruleset.
func (rs *RuleSet) Add(rule Rule) error {
	if rule.ID == "" {
		return common.NewAppError(common.ErrCodeInvalidRule, "rule id is required")
	}
	for _, existing := range rs.rules {
		if existing.ID == rule.ID {
			return common.ErrDuplicateRule(rule.ID)
		}
	}
	if err := rule.Condition.Validate(); err != nil {
		return common.NewAppErrorWithDetails(common.ErrCodeInvalidRule, "invalid rule condition", err.Error())
	}
	rs.rules = append(rs.rules, rule)
	return nil
}

// Update replaces the rule with a matching id in place, keeping its position.
func (rs *RuleSet) Update(rule Rule) error {
	if err := rule.Condition.Validate(); err != nil {
		return common.NewAppErrorWithDetails(common.ErrCodeInvalidRule, "invalid rule condition", err.Error())
	}
	for i := range rs.rules {
		if rs.rules[i].ID == rule.ID {
			rs.rules[i] = rule
			return nil
		}
	}
	return common.ErrNotFound("rule")
}

// Remove deletes the rule with the given id.
func (rs *RuleSet) Remove(ruleID string) bool {
	for i, r := range rs.rules {
		if r.ID == ruleID {
			rs.rules = append(rs.rules[:i], rs.rules[i+1:]...)
			return true
		}
	}
	return false
}

// SetEnabled toggles a rule on or off.
func (rs *RuleSet) SetEnabled(ruleID string, enabled bool) bool {
	for i := range rs.rules {
		if rs.rules[i].ID == ruleID {
			rs.rules[i].Enabled = enabled
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the current rules for one evaluation run.
func (rs *RuleSet) Snapshot() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Len returns the number of rules in the set.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// DefaultRules returns the built-in scoring ruleset used when no external rule
// source is configured.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "SEC001",
			Name:        "critical_vulnerabilities",
			Description: "Critical vulnerabilities found",
			Condition:   Condition{Op: OpGreaterThan, Field: "critical_vulns", Value: 0.0},
			Impact:      -20,
			Category:    "Security",
			Enabled:     true,
		},
		{
			ID:          "SEC002",
			Name:        "high_vulnerabilities",
			Description: "Multiple high vulnerabilities found",
			Condition:   Condition{Op: OpGreaterThan, Field: "high_vulns", Value: 2.0},
			Impact:      -10,
			Category:    "Security",
			Enabled:     true,
		},
		{
			ID:          "DEP001",
			Name:        "outdated_dependencies",
			Description: "High percentage of outdated dependencies",
			Condition:   Condition{Op: OpGreaterThan, Field: "outdated_deps_percentage", Value: 20.0},
			Impact:      -5,
			Category:    "Dependencies",
			Enabled:     true,
		},
		{
			ID:          "COMP001",
			Name:        "compliance_violations",
			Description: "Compliance violations found",
			Condition:   Condition{Op: OpGreaterThan, Field: "compliance_violations", Value: 0.0},
			Impact:      -15,
			Category:    "Compliance",
			Enabled:     true,
		},
	}
}
