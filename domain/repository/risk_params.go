package repository

import (
	"context"

	"github.com/cellango/SecurityApps/domain/entity"
)

// RiskParametersRepository stores the weighted-sub-factor configuration for
// the risk parameter model.
type RiskParametersRepository interface {
	// GetDefault returns the single default parameter row, creating it
	// from entity.DefaultRiskParameters on first read if absent.
	GetDefault(ctx context.Context) (*entity.RiskParameters, error)

	// Update replaces the stored weight and threshold sets.
	Update(ctx context.Context, params *entity.RiskParameters) error
}
