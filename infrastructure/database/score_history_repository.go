package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/pkg/metrics"
	"github.com/cellango/SecurityApps/shared/common"
)

// PostgresScoreHistoryRepository implements repository.ScoreHistoryRepository.
// The table is append-only; this repository exposes no update or delete.
type PostgresScoreHistoryRepository struct {
	db      *sqlx.DB
	metrics *metrics.Collector
}

// NewPostgresScoreHistoryRepository creates a score history repository
func NewPostgresScoreHistoryRepository(db *sqlx.DB, collector *metrics.Collector) *PostgresScoreHistoryRepository {
	return &PostgresScoreHistoryRepository{db: db, metrics: collector}
}

type scoreHistoryRow struct {
	ID            uuid.UUID `db:"id"`
	ApplicationID string    `db:"application_id"`
	Source        string    `db:"source"`
	RulesScore    float64   `db:"rules_score"`
	MLScore       float64   `db:"ml_score"`
	FinalScore    float64   `db:"final_score"`
	Features      []byte    `db:"features"`
	Triggered     []byte    `db:"triggered_rules"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r scoreHistoryRow) toEntity() (*entity.ScoreHistory, error) {
	record := &entity.ScoreHistory{
		ID:            r.ID,
		ApplicationID: r.ApplicationID,
		Source:        entity.ScoreSource(r.Source),
		RulesScore:    r.RulesScore,
		MLScore:       r.MLScore,
		FinalScore:    r.FinalScore,
		CreatedAt:     r.CreatedAt,
	}
	if len(r.Features) > 0 {
		if err := json.Unmarshal(r.Features, &record.Features); err != nil {
			return nil, errors.Wrap(err, "decoding feature snapshot")
		}
	}
	if len(r.Triggered) > 0 {
		if err := json.Unmarshal(r.Triggered, &record.Triggered); err != nil {
			return nil, errors.Wrap(err, "decoding triggered rules")
		}
	}
	return record, nil
}

// Create appends one history row.
func (r *PostgresScoreHistoryRepository) Create(ctx context.Context, record *entity.ScoreHistory) error {
	start := time.Now()

	features, err := json.Marshal(record.Features)
	if err != nil {
		return common.WrapError(err, common.ErrCodeInvalidInput, "encoding feature snapshot")
	}
	triggered, err := json.Marshal(record.Triggered)
	if err != nil {
		return common.WrapError(err, common.ErrCodeInvalidInput, "encoding triggered rules")
	}

	const query = `
		INSERT INTO score_history (
			id, application_id, source, rules_score, ml_score,
			final_score, features, triggered_rules, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		record.ID, record.ApplicationID, string(record.Source),
		record.RulesScore, record.MLScore, record.FinalScore,
		features, triggered, record.CreatedAt,
	)
	r.recordQuery("insert", start)
	if err != nil {
		return common.WrapError(err, common.ErrCodeDatabaseQuery, "inserting score history")
	}
	return nil
}

// GetByApplication returns up to limit rows for one application, newest first.
func (r *PostgresScoreHistoryRepository) GetByApplication(ctx context.Context, applicationID string, limit int) ([]*entity.ScoreHistory, error) {
	start := time.Now()
	if limit <= 0 {
		limit = 10
	}

	const query = `
		SELECT id, application_id, source, rules_score, ml_score,
		       final_score, features, triggered_rules, created_at
		FROM score_history
		WHERE application_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	var rows []scoreHistoryRow
	err := r.db.SelectContext(ctx, &rows, query, applicationID, limit)
	r.recordQuery("select", start)
	if err != nil {
		return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "querying score history")
	}

	records := make([]*entity.ScoreHistory, 0, len(rows))
	for _, row := range rows {
		record, err := row.toEntity()
		if err != nil {
			return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "decoding score history")
		}
		records = append(records, record)
	}
	return records, nil
}

// GetLatest returns the most recent row for one application.
func (r *PostgresScoreHistoryRepository) GetLatest(ctx context.Context, applicationID string) (*entity.ScoreHistory, error) {
	start := time.Now()

	const query = `
		SELECT id, application_id, source, rules_score, ml_score,
		       final_score, features, triggered_rules, created_at
		FROM score_history
		WHERE application_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var row scoreHistoryRow
	err := r.db.GetContext(ctx, &row, query, applicationID)
	r.recordQuery("select", start)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound("score history")
	}
	if err != nil {
		return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "querying latest score")
	}

	record, err := row.toEntity()
	if err != nil {
		return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "decoding score history")
	}
	return record, nil
}

// GetAll returns every history row, oldest first, as the training corpus.
func (r *PostgresScoreHistoryRepository) GetAll(ctx context.Context) ([]*entity.ScoreHistory, error) {
	start := time.Now()

	const query = `
		SELECT id, application_id, source, rules_score, ml_score,
		       final_score, features, triggered_rules, created_at
		FROM score_history
		ORDER BY created_at ASC`

	var rows []scoreHistoryRow
	err := r.db.SelectContext(ctx, &rows, query)
	r.recordQuery("select", start)
	if err != nil {
		return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "querying score history corpus")
	}

	records := make([]*entity.ScoreHistory, 0, len(rows))
	for _, row := range rows {
		record, err := row.toEntity()
		if err != nil {
			return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "decoding score history")
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *PostgresScoreHistoryRepository) recordQuery(operation string, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordDatabaseQuery(operation, "score_history", time.Since(start))
	}
}
