package repository

import (
	"context"

	"github.com/cellango/SecurityApps/domain/entity"
)

// RuleSource loads and saves the scoring ruleset. Implementations are file-
// or table-backed; the format is a list of {id, name, condition, impact,
// category, enabled} records. Rules are loaded once per evaluation run and
// immutable during the run.
type RuleSource interface {
	// Load returns all rules, enabled and disabled, in stored order.
	Load(ctx context.Context) ([]entity.Rule, error)

	// Save replaces the stored ruleset.
	Save(ctx context.Context, rules []entity.Rule) error
}
