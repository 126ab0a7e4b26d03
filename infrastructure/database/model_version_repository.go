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

// modelRegistryLockID keys the advisory lock that serializes active-model
// swaps across concurrent trainers. Any stable 64-bit constant works; it only
// has to be the same for every writer.
const modelRegistryLockID int64 = 7245001

// PostgresModelVersionRepository implements repository.ModelVersionRepository.
// The single-active invariant is enforced twice: the swap runs inside one
// transaction holding an advisory lock, and a partial unique index on
// (active) WHERE active rejects any second active row that slips through.
type PostgresModelVersionRepository struct {
	db      *sqlx.DB
	metrics *metrics.Collector
}

// NewPostgresModelVersionRepository creates a model registry repository
func NewPostgresModelVersionRepository(db *sqlx.DB, collector *metrics.Collector) *PostgresModelVersionRepository {
	return &PostgresModelVersionRepository{db: db, metrics: collector}
}

type modelVersionRow struct {
	ID         int64     `db:"id"`
	Version    string    `db:"version"`
	ModelType  string    `db:"model_type"`
	Parameters []byte    `db:"parameters"`
	Metrics    []byte    `db:"metrics"`
	Artifacts  []byte    `db:"artifacts"`
	Active     bool      `db:"active"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r modelVersionRow) toEntity() (*entity.ModelVersion, error) {
	version := &entity.ModelVersion{
		ID:        r.ID,
		Version:   r.Version,
		ModelType: r.ModelType,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
	}
	if len(r.Parameters) > 0 {
		if err := json.Unmarshal(r.Parameters, &version.Parameters); err != nil {
			return nil, err
		}
	}
	if len(r.Metrics) > 0 {
		if err := json.Unmarshal(r.Metrics, &version.Metrics); err != nil {
			return nil, err
		}
	}
	return version, nil
}

// SaveNewActive inserts a new active version and deactivates the previous one
// in the same transaction. Concurrent trainers block on the advisory lock, so
// the last committed trainer owns the active slot.
func (r *PostgresModelVersionRepository) SaveNewActive(ctx context.Context, version *entity.ModelVersion, artifacts *entity.ModelArtifacts) error {
	start := time.Now()

	parameters, err := json.Marshal(version.Parameters)
	if err != nil {
		return common.WrapError(err, common.ErrCodeInvalidInput, "encoding model parameters")
	}
	metricsJSON, err := json.Marshal(version.Metrics)
	if err != nil {
		return common.WrapError(err, common.ErrCodeInvalidInput, "encoding model metrics")
	}
	artifactsJSON, err := json.Marshal(artifacts)
	if err != nil {
		return common.WrapError(err, common.ErrCodeInvalidInput, "encoding model artifacts")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return common.WrapError(err, common.ErrCodeDatabaseTransaction, "starting model swap transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, modelRegistryLockID); err != nil {
		return common.WrapError(err, common.ErrCodeDatabaseTransaction, "acquiring model registry lock")
	}

	if _, err := tx.ExecContext(ctx, `UPDATE ml_model_versions SET active = false WHERE active`); err != nil {
		return common.WrapError(err, common.ErrCodeDatabaseQuery, "deactivating previous model")
	}

	const insert = `
		INSERT INTO ml_model_versions (version, model_type, parameters, metrics, artifacts, active, created_at)
		VALUES ($1, $2, $3, $4, $5, true, $6)
		RETURNING id`

	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}
	if err := tx.QueryRowContext(ctx, insert,
		version.Version, version.ModelType, parameters, metricsJSON,
		artifactsJSON, version.CreatedAt,
	).Scan(&version.ID); err != nil {
		return common.WrapError(err, common.ErrCodeDatabaseQuery, "inserting model version")
	}

	if err := tx.Commit(); err != nil {
		return common.WrapError(err, common.ErrCodeDatabaseTransaction, "committing model swap")
	}

	version.Active = true
	r.recordQuery("swap", start)
	return nil
}

// LoadActive returns the active version row and its artifacts from one query,
// so the regressor and scaler are always a matched pair.
func (r *PostgresModelVersionRepository) LoadActive(ctx context.Context) (*entity.ModelVersion, *entity.ModelArtifacts, error) {
	start := time.Now()

	const query = `
		SELECT id, version, model_type, parameters, metrics, artifacts, active, created_at
		FROM ml_model_versions
		WHERE active
		LIMIT 1`

	var row modelVersionRow
	err := r.db.GetContext(ctx, &row, query)
	r.recordQuery("select", start)
	if err == sql.ErrNoRows {
		return nil, nil, common.ErrNotFound("active model version")
	}
	if err != nil {
		return nil, nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "querying active model")
	}

	version, err := row.toEntity()
	if err != nil {
		return nil, nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "decoding model version")
	}

	var artifacts entity.ModelArtifacts
	if err := json.Unmarshal(row.Artifacts, &artifacts); err != nil {
		return nil, nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "decoding model artifacts")
	}
	return version, &artifacts, nil
}

// List returns every version record, newest first.
func (r *PostgresModelVersionRepository) List(ctx context.Context) ([]*entity.ModelVersion, error) {
	start := time.Now()

	const query = `
		SELECT id, version, model_type, parameters, metrics, artifacts, active, created_at
		FROM ml_model_versions
		ORDER BY created_at DESC`

	var rows []modelVersionRow
	err := r.db.SelectContext(ctx, &rows, query)
	r.recordQuery("select", start)
	if err != nil {
		return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "listing model versions")
	}

	versions := make([]*entity.ModelVersion, 0, len(rows))
	for _, row := range rows {
		version, err := row.toEntity()
		if err != nil {
			return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "decoding model version")
		}
		versions = append(versions, version)
	}
	return versions, nil
}

func (r *PostgresModelVersionRepository) recordQuery(operation string, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordDatabaseQuery(operation, "ml_model_versions", time.Since(start))
	}
}
