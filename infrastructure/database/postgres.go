package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/cellango/SecurityApps/pkg/logging"
)

// PostgresConfig contains PostgreSQL connection configuration
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Connect opens and verifies a PostgreSQL connection pool
func Connect(ctx context.Context, config PostgresConfig, logger *logging.Logger) (*sqlx.DB, error) {
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		config.Host, config.Port, config.Database, config.Username, config.Password, config.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening postgres connection")
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "pinging postgres")
	}

	logger.Info("Connected to PostgreSQL",
		logging.String("host", config.Host),
		logging.String("database", config.Database),
	)

	return db, nil
}

// schema is applied on startup. The partial unique index on
// ml_model_versions(active) makes the storage layer itself enforce the
// at-most-one-active invariant.
const schema = `
CREATE TABLE IF NOT EXISTS score_history (
	id              UUID PRIMARY KEY,
	application_id  TEXT NOT NULL,
	source          TEXT NOT NULL,
	rules_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
	ml_score        DOUBLE PRECISION NOT NULL DEFAULT 0,
	final_score     DOUBLE PRECISION NOT NULL,
	features        JSONB,
	triggered_rules JSONB,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_score_history_application
	ON score_history (application_id, created_at DESC);

CREATE TABLE IF NOT EXISTS ml_model_versions (
	id         BIGSERIAL PRIMARY KEY,
	version    TEXT NOT NULL UNIQUE,
	model_type TEXT NOT NULL,
	parameters JSONB,
	metrics    JSONB,
	artifacts  JSONB NOT NULL,
	active     BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_ml_model_versions_single_active
	ON ml_model_versions (active) WHERE active;

CREATE TABLE IF NOT EXISTS risk_parameters (
	id                  BIGSERIAL PRIMARY KEY,
	internal_weights    JSONB NOT NULL,
	internal_thresholds JSONB NOT NULL,
	vendor_weights      JSONB NOT NULL,
	vendor_thresholds   JSONB NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scoring_rules (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT,
	condition   JSONB NOT NULL,
	impact      DOUBLE PRECISION NOT NULL,
	category    TEXT,
	enabled     BOOLEAN NOT NULL DEFAULT true,
	position    INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS audit_log (
	id          BIGSERIAL PRIMARY KEY,
	action      TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id   TEXT NOT NULL,
	details     JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the scoring tables if they do not exist
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "applying schema")
	}
	return nil
}
