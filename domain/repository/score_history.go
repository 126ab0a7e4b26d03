package repository

import (
	"context"

	"github.com/cellango/SecurityApps/domain/entity"
)

// ScoreHistoryRepository defines persistence for the append-only score audit
// trail. There is deliberately no Update or Delete: history rows are immutable
// once written.
type ScoreHistoryRepository interface {
	// Create appends one history row.
	Create(ctx context.Context, record *entity.ScoreHistory) error

	// GetByApplication returns up to limit rows for one application,
	// newest first. Applications with no history get an empty slice,
	// not an error.
	GetByApplication(ctx context.Context, applicationID string, limit int) ([]*entity.ScoreHistory, error)

	// GetLatest returns the most recent row for one application, or a
	// not-found error when none exists.
	GetLatest(ctx context.Context, applicationID string) (*entity.ScoreHistory, error)

	// GetAll returns every history row, oldest first. Used as the model
	// training corpus.
	GetAll(ctx context.Context) ([]*entity.ScoreHistory, error)
}
