package rules

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/shared/common"
)

func TestFileSourceMissingFileYieldsDefaults(t *testing.T) {
	source := NewFileSource(filepath.Join(t.TempDir(), "rules.json"))

	rules, err := source.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 4)
	assert.Equal(t, "SEC001", rules[0].ID)
}

func TestFileSourceSaveLoadRoundTrip(t *testing.T) {
	source := NewFileSource(filepath.Join(t.TempDir(), "rules.json"))

	want := []entity.Rule{
		{
			ID:   "CUSTOM001",
			Name: "no_waf",
			Condition: entity.Condition{
				Op: entity.OpEquals, Field: "waf_enabled", Value: false,
			},
			Impact:   -10,
			Category: "Controls",
			Enabled:  true,
		},
		{
			ID:   "CUSTOM002",
			Name: "stacked_vulnerabilities",
			Condition: entity.Condition{
				Op: entity.OpAllOf,
				All: []entity.Condition{
					{Op: entity.OpGreaterThan, Field: "critical_vulns", Value: 0.0},
					{Op: entity.OpGreaterThan, Field: "high_vulns", Value: 5.0},
				},
			},
			Impact:  -25,
			Enabled: false,
		},
	}

	ctx := context.Background()
	require.NoError(t, source.Save(ctx, want))

	got, err := source.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "CUSTOM001", got[0].ID)
	assert.Equal(t, entity.OpEquals, got[0].Condition.Op)
	assert.Equal(t, -25.0, got[1].Impact)
	assert.False(t, got[1].Enabled)
	require.Len(t, got[1].Condition.All, 2)
	assert.Equal(t, "high_vulns", got[1].Condition.All[1].Field)
}

func TestFileSourceSaveRejectsDuplicateIDs(t *testing.T) {
	source := NewFileSource(filepath.Join(t.TempDir(), "rules.json"))

	rules := []entity.Rule{
		{ID: "R1", Name: "first", Condition: entity.Condition{Op: entity.OpGreaterThan, Field: "x", Value: 0.0}, Enabled: true},
		{ID: "R1", Name: "second", Condition: entity.Condition{Op: entity.OpGreaterThan, Field: "y", Value: 0.0}, Enabled: true},
	}

	err := source.Save(context.Background(), rules)
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeDuplicateRule))

	// Nothing was written; defaults still served.
	loaded, err := source.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, loaded, 4)
}

func TestFileSourceSaveRejectsMalformedCondition(t *testing.T) {
	source := NewFileSource(filepath.Join(t.TempDir(), "rules.json"))

	err := source.Save(context.Background(), []entity.Rule{
		{ID: "R1", Name: "bad", Condition: entity.Condition{Op: "matches"}, Enabled: true},
	})
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeInvalidRule))
}
