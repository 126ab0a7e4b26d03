package entity

import "time"

// RiskThresholds are the score bands consumed by reporting collaborators to
// classify a numeric score into a risk tier. The model does not enforce that
// thresholds are monotonic; callers treat malformed sets defensively.
type RiskThresholds struct {
	HighRisk   float64 `json:"high_risk"`
	MediumRisk float64 `json:"medium_risk"`
	LowRisk    float64 `json:"low_risk"`
}

// RiskTier is a named risk band.
type RiskTier string

const (
	RiskTierHigh    RiskTier = "high"
	RiskTierMedium  RiskTier = "medium"
	RiskTierLow     RiskTier = "low"
	RiskTierMinimal RiskTier = "minimal"
)

// Classify maps a score onto a tier. Scores at or below high_risk are high,
// at or below medium_risk are medium, at or below low_risk are low, and
// anything above is minimal.
func (t RiskThresholds) Classify(score float64) RiskTier {
	switch {
	case score <= t.HighRisk:
		return RiskTierHigh
	case score <= t.MediumRisk:
		return RiskTierMedium
	case score <= t.LowRisk:
		return RiskTierLow
	default:
		return RiskTierMinimal
	}
}

// RiskParameters holds the weighted-sub-factor configuration for the coarse
// application-type-based risk rating: one weight set and one threshold set per
// application category. Exactly one default row exists, created lazily on
// first read. Weights need not sum to 1; the model normalizes by the sum of
// weights actually used.
type RiskParameters struct {
	ID                 int64              `json:"id" db:"id"`
	InternalWeights    map[string]float64 `json:"internal_weights" db:"-"`
	InternalThresholds RiskThresholds     `json:"internal_thresholds" db:"-"`
	VendorWeights      map[string]float64 `json:"vendor_weights" db:"-"`
	VendorThresholds   RiskThresholds     `json:"vendor_thresholds" db:"-"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}

// DefaultRiskParameters returns the parameters seeded for the lazily-created
// default row.
func DefaultRiskParameters() *RiskParameters {
	return &RiskParameters{
		InternalWeights: map[string]float64{
			"code_review":         0.3,
			"security_testing":    0.2,
			"dependency_scanning": 0.2,
			"deployment_security": 0.15,
			"access_control":      0.15,
		},
		InternalThresholds: RiskThresholds{HighRisk: 60, MediumRisk: 80, LowRisk: 90},
		VendorWeights: map[string]float64{
			"vendor_assessment":    0.3,
			"contract_security":    0.2,
			"integration_security": 0.2,
			"data_handling":        0.15,
			"support_sla":          0.15,
		},
		VendorThresholds: RiskThresholds{HighRisk: 60, MediumRisk: 80, LowRisk: 90},
	}
}

// WeightsFor selects the weight set for an application category.
func (p *RiskParameters) WeightsFor(appType AppType) map[string]float64 {
	if appType == AppTypeVendor {
		return p.VendorWeights
	}
	return p.InternalWeights
}

// ThresholdsFor selects the threshold set for an application category.
func (p *RiskParameters) ThresholdsFor(appType AppType) RiskThresholds {
	if appType == AppTypeVendor {
		return p.VendorThresholds
	}
	return p.InternalThresholds
}
