package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellango/SecurityApps/shared/common"
)

func TestConditionValidate(t *testing.T) {
	tests := []struct {
		name      string
		condition Condition
		wantErr   bool
	}{
		{
			name:      "valid greater than",
			condition: Condition{Op: OpGreaterThan, Field: "critical_vulns", Value: 0.0},
		},
		{
			name:      "valid equality on bool",
			condition: Condition{Op: OpEquals, Field: "mfa_enabled", Value: false},
		},
		{
			name: "valid all_of",
			condition: Condition{Op: OpAllOf, All: []Condition{
				{Op: OpGreaterThan, Field: "high_vulns", Value: 2.0},
				{Op: OpLessThan, Field: "code_coverage", Value: 50.0},
			}},
		},
		{
			name:      "unknown op",
			condition: Condition{Op: "between", Field: "x", Value: 1.0},
			wantErr:   true,
		},
		{
			name:      "comparison without field",
			condition: Condition{Op: OpGreaterThan, Value: 1.0},
			wantErr:   true,
		},
		{
			name:      "comparison without value",
			condition: Condition{Op: OpLessThan, Field: "x"},
			wantErr:   true,
		},
		{
			name:      "numeric comparator with non-numeric value",
			condition: Condition{Op: OpGreaterThan, Field: "x", Value: "high"},
			wantErr:   true,
		},
		{
			name:      "empty all_of",
			condition: Condition{Op: OpAllOf},
			wantErr:   true,
		},
		{
			name: "all_of with malformed child",
			condition: Condition{Op: OpAllOf, All: []Condition{
				{Op: OpGreaterThan, Field: "x", Value: 1.0},
				{Op: "nope", Field: "y"},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.condition.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConditionMatches(t *testing.T) {
	features := FeatureVector{
		"critical_vulns": 2.0,
		"high_vulns":     1,
		"code_coverage":  45.5,
		"environment":    "production",
		"mfa_enabled":    false,
	}

	tests := []struct {
		name      string
		condition Condition
		want      bool
	}{
		{
			name:      "greater than fires",
			condition: Condition{Op: OpGreaterThan, Field: "critical_vulns", Value: 0.0},
			want:      true,
		},
		{
			name:      "greater than does not fire at boundary",
			condition: Condition{Op: OpGreaterThan, Field: "critical_vulns", Value: 2.0},
			want:      false,
		},
		{
			name:      "less than fires",
			condition: Condition{Op: OpLessThan, Field: "code_coverage", Value: 50.0},
			want:      true,
		},
		{
			name:      "numeric equality across int feature",
			condition: Condition{Op: OpEquals, Field: "high_vulns", Value: 1.0},
			want:      true,
		},
		{
			name:      "string equality",
			condition: Condition{Op: OpEquals, Field: "environment", Value: "production"},
			want:      true,
		},
		{
			name:      "bool equality",
			condition: Condition{Op: OpEquals, Field: "mfa_enabled", Value: false},
			want:      true,
		},
		{
			name:      "missing feature never triggers",
			condition: Condition{Op: OpGreaterThan, Field: "nonexistent", Value: 0.0},
			want:      false,
		},
		{
			name:      "non-numeric feature under numeric comparator",
			condition: Condition{Op: OpGreaterThan, Field: "environment", Value: 0.0},
			want:      false,
		},
		{
			name: "all_of requires every child",
			condition: Condition{Op: OpAllOf, All: []Condition{
				{Op: OpGreaterThan, Field: "critical_vulns", Value: 0.0},
				{Op: OpLessThan, Field: "code_coverage", Value: 50.0},
			}},
			want: true,
		},
		{
			name: "all_of fails when one child fails",
			condition: Condition{Op: OpAllOf, All: []Condition{
				{Op: OpGreaterThan, Field: "critical_vulns", Value: 0.0},
				{Op: OpGreaterThan, Field: "code_coverage", Value: 90.0},
			}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.condition.Matches(features)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConditionMatchesMalformed(t *testing.T) {
	_, err := Condition{Op: "eval", Field: "x"}.Matches(FeatureVector{"x": 1.0})
	assert.Error(t, err)
}

func TestRuleSetRejectsDuplicateID(t *testing.T) {
	rs, err := NewRuleSet(DefaultRules())
	require.NoError(t, err)
	require.Equal(t, 4, rs.Len())

	err = rs.Add(Rule{
		ID:        "SEC001",
		Name:      "duplicate",
		Condition: Condition{Op: OpGreaterThan, Field: "critical_vulns", Value: 0.0},
		Impact:    -5,
		Enabled:   true,
	})
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeDuplicateRule))
	assert.Equal(t, 4, rs.Len())
}

func TestRuleSetRejectsInvalidCondition(t *testing.T) {
	rs := &RuleSet{}
	err := rs.Add(Rule{
		ID:        "BAD001",
		Name:      "broken",
		Condition: Condition{Op: "regex", Field: "name"},
		Enabled:   true,
	})
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeInvalidRule))
}

func TestRuleSetSnapshotIsCopy(t *testing.T) {
	rs, err := NewRuleSet(DefaultRules())
	require.NoError(t, err)

	snapshot := rs.Snapshot()
	snapshot[0].Enabled = false

	fresh := rs.Snapshot()
	assert.True(t, fresh[0].Enabled)
}

func TestRuleSetToggleAndRemove(t *testing.T) {
	rs, err := NewRuleSet(DefaultRules())
	require.NoError(t, err)

	assert.True(t, rs.SetEnabled("SEC002", false))
	assert.False(t, rs.SetEnabled("MISSING", false))

	assert.True(t, rs.Remove("DEP001"))
	assert.False(t, rs.Remove("DEP001"))
	assert.Equal(t, 3, rs.Len())
}

func TestRuleSetUpdate(t *testing.T) {
	rs, err := NewRuleSet(DefaultRules())
	require.NoError(t, err)

	updated := Rule{
		ID:        "SEC001",
		Name:      "Critical vulnerabilities (strict)",
		Condition: Condition{Op: OpGreaterThan, Field: "critical_vulns", Value: 0.0},
		Impact:    -30,
		Enabled:   true,
	}
	require.NoError(t, rs.Update(updated))

	var found bool
	for _, r := range rs.Snapshot() {
		if r.ID == "SEC001" {
			found = true
			assert.Equal(t, -30.0, r.Impact)
		}
	}
	assert.True(t, found)

	missing := updated
	missing.ID = "NOPE"
	err = rs.Update(missing)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeNotFound))

	bad := updated
	bad.Condition = Condition{Op: "between", Field: "x", Value: 1.0}
	err = rs.Update(bad)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeInvalidRule))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, ClampScore(-35))
	assert.Equal(t, 100.0, ClampScore(180))
	assert.Equal(t, 81.5, ClampScore(81.5))
}
