package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskThresholdsClassify(t *testing.T) {
	thresholds := RiskThresholds{HighRisk: 60, MediumRisk: 80, LowRisk: 90}

	assert.Equal(t, RiskTierHigh, thresholds.Classify(0))
	assert.Equal(t, RiskTierHigh, thresholds.Classify(60))
	assert.Equal(t, RiskTierMedium, thresholds.Classify(60.1))
	assert.Equal(t, RiskTierMedium, thresholds.Classify(80))
	assert.Equal(t, RiskTierLow, thresholds.Classify(85))
	assert.Equal(t, RiskTierMinimal, thresholds.Classify(95))
}

func TestRiskParametersCategorySelection(t *testing.T) {
	params := DefaultRiskParameters()

	internal := params.WeightsFor(AppTypeInternal)
	assert.Contains(t, internal, "code_review")
	assert.NotContains(t, internal, "vendor_assessment")

	vendor := params.WeightsFor(AppTypeVendor)
	assert.Contains(t, vendor, "vendor_assessment")
	assert.NotContains(t, vendor, "code_review")

	assert.Equal(t, params.InternalThresholds, params.ThresholdsFor(AppTypeInternal))
	assert.Equal(t, params.VendorThresholds, params.ThresholdsFor(AppTypeVendor))
}

func TestFeatureVectorNumber(t *testing.T) {
	fv := FeatureVector{"a": 1, "b": 2.5, "c": "text", "d": int64(7)}

	got, ok := fv.Number("a")
	assert.True(t, ok)
	assert.Equal(t, 1.0, got)

	got, ok = fv.Number("b")
	assert.True(t, ok)
	assert.Equal(t, 2.5, got)

	_, ok = fv.Number("c")
	assert.False(t, ok)

	_, ok = fv.Number("missing")
	assert.False(t, ok)

	assert.Equal(t, 7.0, fv.NumberOrZero("d"))
	assert.Equal(t, 0.0, fv.NumberOrZero("c"))
	assert.Equal(t, 0.0, fv.NumberOrZero("missing"))
}

func TestFeatureVectorCloneIsIndependent(t *testing.T) {
	fv := FeatureVector{"critical_vulns": 2.0}
	snapshot := fv.Clone()
	fv["critical_vulns"] = 99.0

	assert.Equal(t, 2.0, snapshot["critical_vulns"])
	assert.Nil(t, FeatureVector(nil).Clone())
}
