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

// PostgresRiskParametersRepository implements repository.RiskParametersRepository.
// A single default row is created lazily on first read.
type PostgresRiskParametersRepository struct {
	db      *sqlx.DB
	metrics *metrics.Collector
}

// NewPostgresRiskParametersRepository creates a risk parameters repository
func NewPostgresRiskParametersRepository(db *sqlx.DB, collector *metrics.Collector) *PostgresRiskParametersRepository {
	return &PostgresRiskParametersRepository{db: db, metrics: collector}
}

type riskParametersRow struct {
	ID                 int64     `db:"id"`
	InternalWeights    []byte    `db:"internal_weights"`
	InternalThresholds []byte    `db:"internal_thresholds"`
	VendorWeights      []byte    `db:"vendor_weights"`
	VendorThresholds   []byte    `db:"vendor_thresholds"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (r riskParametersRow) toEntity() (*entity.RiskParameters, error) {
	params := &entity.RiskParameters{ID: r.ID, UpdatedAt: r.UpdatedAt}
	if err := json.Unmarshal(r.InternalWeights, &params.InternalWeights); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(r.InternalThresholds, &params.InternalThresholds); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(r.VendorWeights, &params.VendorWeights); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(r.VendorThresholds, &params.VendorThresholds); err != nil {
		return nil, err
	}
	return params, nil
}

// GetDefault returns the default parameter row, seeding it on first read.
func (r *PostgresRiskParametersRepository) GetDefault(ctx context.Context) (*entity.RiskParameters, error) {
	start := time.Now()

	const query = `
		SELECT id, internal_weights, internal_thresholds, vendor_weights, vendor_thresholds, updated_at
		FROM risk_parameters
		ORDER BY id ASC
		LIMIT 1`

	var row riskParametersRow
	err := r.db.GetContext(ctx, &row, query)
	r.recordQuery("select", start)
	if err == sql.ErrNoRows {
		return r.seedDefault(ctx)
	}
	if err != nil {
		return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "querying risk parameters")
	}

	params, err := row.toEntity()
	if err != nil {
		return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "decoding risk parameters")
	}
	return params, nil
}

// Update replaces the stored weight and threshold sets.
func (r *PostgresRiskParametersRepository) Update(ctx context.Context, params *entity.RiskParameters) error {
	start := time.Now()

	internalWeights, internalThresholds, vendorWeights, vendorThresholds, err := encodeRiskParameters(params)
	if err != nil {
		return err
	}

	const query = `
		UPDATE risk_parameters
		SET internal_weights = $1, internal_thresholds = $2,
		    vendor_weights = $3, vendor_thresholds = $4,
		    updated_at = now()
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query,
		internalWeights, internalThresholds, vendorWeights, vendorThresholds, params.ID)
	r.recordQuery("update", start)
	if err != nil {
		return common.WrapError(err, common.ErrCodeDatabaseQuery, "updating risk parameters")
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return common.ErrNotFound("risk parameters")
	}
	return nil
}

func (r *PostgresRiskParametersRepository) seedDefault(ctx context.Context) (*entity.RiskParameters, error) {
	start := time.Now()
	params := entity.DefaultRiskParameters()

	internalWeights, internalThresholds, vendorWeights, vendorThresholds, err := encodeRiskParameters(params)
	if err != nil {
		return nil, err
	}

	const insert = `
		INSERT INTO risk_parameters (internal_weights, internal_thresholds, vendor_weights, vendor_thresholds)
		VALUES ($1, $2, $3, $4)
		RETURNING id, updated_at`

	err = r.db.QueryRowContext(ctx, insert,
		internalWeights, internalThresholds, vendorWeights, vendorThresholds,
	).Scan(&params.ID, &params.UpdatedAt)
	r.recordQuery("insert", start)
	if err != nil {
		return nil, common.WrapError(err, common.ErrCodeDatabaseQuery, "seeding default risk parameters")
	}
	return params, nil
}

func encodeRiskParameters(params *entity.RiskParameters) (internalWeights, internalThresholds, vendorWeights, vendorThresholds []byte, err error) {
	if internalWeights, err = json.Marshal(params.InternalWeights); err != nil {
		return nil, nil, nil, nil, common.WrapError(err, common.ErrCodeInvalidInput, "encoding internal weights")
	}
	if internalThresholds, err = json.Marshal(params.InternalThresholds); err != nil {
		return nil, nil, nil, nil, common.WrapError(err, common.ErrCodeInvalidInput, "encoding internal thresholds")
	}
	if vendorWeights, err = json.Marshal(params.VendorWeights); err != nil {
		return nil, nil, nil, nil, common.WrapError(err, common.ErrCodeInvalidInput, "encoding vendor weights")
	}
	if vendorThresholds, err = json.Marshal(params.VendorThresholds); err != nil {
		return nil, nil, nil, nil, common.WrapError(err, common.ErrCodeInvalidInput, "encoding vendor thresholds")
	}
	return internalWeights, internalThresholds, vendorWeights, vendorThresholds, nil
}

func (r *PostgresRiskParametersRepository) recordQuery(operation string, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordDatabaseQuery(operation, "risk_parameters", time.Since(start))
	}
}
