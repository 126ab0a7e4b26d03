package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/domain/repository"
	"github.com/cellango/SecurityApps/pkg/logging"
)

// AuditRecorder appends mutation records to the audit log. Audit writes are
// best effort: a failed audit insert is logged but never fails the mutation
// it describes.
type AuditRecorder struct {
	db     *sqlx.DB
	logger *logging.Logger
}

// NewAuditRecorder creates an audit recorder
func NewAuditRecorder(db *sqlx.DB, logger *logging.Logger) *AuditRecorder {
	return &AuditRecorder{db: db, logger: logger.WithComponent("audit")}
}

// Record appends one audit row.
func (a *AuditRecorder) Record(ctx context.Context, action, entityType, entityID string, details map[string]interface{}) {
	payload, err := json.Marshal(details)
	if err != nil {
		a.logger.Warn("failed to encode audit details",
			logging.String("action", action),
			logging.ErrorField(err))
		payload = nil
	}

	const insert = `
		INSERT INTO audit_log (action, entity_type, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := a.db.ExecContext(ctx, insert, action, entityType, entityID, payload, time.Now().UTC()); err != nil {
		a.logger.Warn("failed to write audit record",
			logging.String("action", action),
			logging.String("entity_type", entityType),
			logging.String("entity_id", entityID),
			logging.ErrorField(err))
	}
}

// AuditedRuleSource wraps a RuleSource so that every ruleset replacement is
// recorded explicitly at the persistence boundary.
type AuditedRuleSource struct {
	inner repository.RuleSource
	audit *AuditRecorder
}

// NewAuditedRuleSource wraps a rule source with audit recording
func NewAuditedRuleSource(inner repository.RuleSource, audit *AuditRecorder) *AuditedRuleSource {
	return &AuditedRuleSource{inner: inner, audit: audit}
}

// Load delegates to the wrapped source. Reads are not audited.
func (s *AuditedRuleSource) Load(ctx context.Context) ([]entity.Rule, error) {
	return s.inner.Load(ctx)
}

// Save replaces the ruleset and records the mutation on success.
func (s *AuditedRuleSource) Save(ctx context.Context, rules []entity.Rule) error {
	if err := s.inner.Save(ctx, rules); err != nil {
		return err
	}
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	s.audit.Record(ctx, "ruleset.replace", "scoring_rules", "default", map[string]interface{}{
		"rule_count": len(rules),
		"rule_ids":   ids,
	})
	return nil
}

// AuditedRiskParametersRepository wraps a RiskParametersRepository so weight
// and threshold changes are recorded.
type AuditedRiskParametersRepository struct {
	inner repository.RiskParametersRepository
	audit *AuditRecorder
}

// NewAuditedRiskParametersRepository wraps a risk parameters repository with audit recording
func NewAuditedRiskParametersRepository(inner repository.RiskParametersRepository, audit *AuditRecorder) *AuditedRiskParametersRepository {
	return &AuditedRiskParametersRepository{inner: inner, audit: audit}
}

// GetDefault delegates to the wrapped repository.
func (r *AuditedRiskParametersRepository) GetDefault(ctx context.Context) (*entity.RiskParameters, error) {
	return r.inner.GetDefault(ctx)
}

// Update replaces the stored parameters and records the mutation on success.
func (r *AuditedRiskParametersRepository) Update(ctx context.Context, params *entity.RiskParameters) error {
	if err := r.inner.Update(ctx, params); err != nil {
		return err
	}
	r.audit.Record(ctx, "risk_parameters.update", "risk_parameters", "default", map[string]interface{}{
		"internal_weights": params.InternalWeights,
		"vendor_weights":   params.VendorWeights,
	})
	return nil
}

// AuditedModelVersionRepository wraps a ModelVersionRepository so every
// active-model swap leaves an audit trail.
type AuditedModelVersionRepository struct {
	inner repository.ModelVersionRepository
	audit *AuditRecorder
}

// NewAuditedModelVersionRepository wraps a model registry with audit recording
func NewAuditedModelVersionRepository(inner repository.ModelVersionRepository, audit *AuditRecorder) *AuditedModelVersionRepository {
	return &AuditedModelVersionRepository{inner: inner, audit: audit}
}

// SaveNewActive swaps the active model and records the mutation on success.
func (r *AuditedModelVersionRepository) SaveNewActive(ctx context.Context, version *entity.ModelVersion, artifacts *entity.ModelArtifacts) error {
	if err := r.inner.SaveNewActive(ctx, version, artifacts); err != nil {
		return err
	}
	r.audit.Record(ctx, "model.activate", "ml_model_versions", version.Version, map[string]interface{}{
		"model_type": version.ModelType,
		"metrics":    version.Metrics,
	})
	return nil
}

// LoadActive delegates to the wrapped repository.
func (r *AuditedModelVersionRepository) LoadActive(ctx context.Context) (*entity.ModelVersion, *entity.ModelArtifacts, error) {
	return r.inner.LoadActive(ctx)
}

// List delegates to the wrapped repository.
func (r *AuditedModelVersionRepository) List(ctx context.Context) ([]*entity.ModelVersion, error) {
	return r.inner.List(ctx)
}
