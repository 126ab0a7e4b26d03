package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/pkg/metrics"
	"github.com/cellango/SecurityApps/shared/common"
)

// PostgresRuleSource is the table-backed repository.RuleSource. Rules keep
// their stored order via an explicit position column so ruleset order, and
// with it the order of triggered-rule output, is stable across loads.
type PostgresRuleSource struct {
	db      *sqlx.DB
	metrics *metrics.Collector
}

// NewPostgresRuleSource creates a table-backed rule source
func NewPostgresRuleSource(db *sqlx.DB, collector *metrics.Collector) *PostgresRuleSource {
	return &PostgresRuleSource{db: db, metrics: collector}
}

type ruleRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	Condition   []byte         `db:"condition"`
	Impact      float64        `db:"impact"`
	Category    sql.NullString `db:"category"`
	Enabled     bool           `db:"enabled"`
	Position    int            `db:"position"`
}

// Load returns all stored rules in position order.
func (s *PostgresRuleSource) Load(ctx context.Context) ([]entity.Rule, error) {
	start := time.Now()

	const query = `
		SELECT id, name, description, condition, impact, category, enabled, position
		FROM scoring_rules
		ORDER BY position ASC, id ASC`

	var rows []ruleRow
	err := s.db.SelectContext(ctx, &rows, query)
	s.recordQuery("select", start)
	if err != nil {
		return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "querying scoring rules")
	}

	rules := make([]entity.Rule, 0, len(rows))
	for _, row := range rows {
		rule := entity.Rule{
			ID:          row.ID,
			Name:        row.Name,
			Description: row.Description.String,
			Impact:      row.Impact,
			Category:    row.Category.String,
			Enabled:     row.Enabled,
		}
		if err := json.Unmarshal(row.Condition, &rule.Condition); err != nil {
			return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "decoding rule condition")
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Save replaces the stored ruleset in one transaction. Duplicate ids are
// rejected before any row is touched.
func (s *PostgresRuleSource) Save(ctx context.Context, rules []entity.Rule) error {
	start := time.Now()

	if _, err := entity.NewRuleSet(rules); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return common.WrapError(err, common.ErrCodeDatabaseTransaction, "starting ruleset transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scoring_rules`); err != nil {
		return common.WrapError(err, common.ErrCodeDatabaseQuery, "clearing scoring rules")
	}

	const insert = `
		INSERT INTO scoring_rules (id, name, description, condition, impact, category, enabled, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for position, rule := range rules {
		condition, err := json.Marshal(rule.Condition)
		if err != nil {
			return common.WrapError(err, common.ErrCodeInvalidInput, "encoding rule condition")
		}
		if _, err := tx.ExecContext(ctx, insert,
			rule.ID, rule.Name, rule.Description, condition,
			rule.Impact, rule.Category, rule.Enabled, position,
		); err != nil {
			return common.WrapError(err, common.ErrCodeDatabaseQuery, "inserting scoring rule")
		}
	}

	if err := tx.Commit(); err != nil {
		return common.WrapError(err, common.ErrCodeDatabaseTransaction, "committing ruleset")
	}
	s.recordQuery("replace", start)
	return nil
}

func (s *PostgresRuleSource) recordQuery(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordDatabaseQuery(operation, "scoring_rules", time.Since(start))
	}
}
