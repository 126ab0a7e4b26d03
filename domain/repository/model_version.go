package repository

import (
	"context"

	"github.com/cellango/SecurityApps/domain/entity"
)

// ModelVersionRepository owns the versioned model registry. The registry
// invariant is at most one active version at any time; SaveNewActive enforces
// it inside a single transaction.
type ModelVersionRepository interface {
	// SaveNewActive persists a new version record and its artifacts, marks
	// it active, and deactivates every previously active version in the
	// same persistence unit. Concurrent trainers are serialized so two
	// calls can never both end up active.
	SaveNewActive(ctx context.Context, version *entity.ModelVersion, artifacts *entity.ModelArtifacts) error

	// LoadActive returns the active version and its artifacts as a single
	// point-in-time snapshot, or a not-found error when no model has been
	// trained yet. The version row and artifact blob are read together so
	// a regressor is never paired with another version's scaler.
	LoadActive(ctx context.Context) (*entity.ModelVersion, *entity.ModelArtifacts, error)

	// List returns all version records, newest first.
	List(ctx context.Context) ([]*entity.ModelVersion, error)
}
