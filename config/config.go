// Package config loads the scoring engine configuration from a YAML file
// plus environment overrides.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cellango/SecurityApps/infrastructure/database"
	"github.com/cellango/SecurityApps/shared/common"
)

// Config represents the configuration for the scoring engine service
type Config struct {
	Service  ServiceConfig           `mapstructure:"service"`
	Server   ServerConfig            `mapstructure:"server"`
	Database database.PostgresConfig `mapstructure:"database"`
	Cache    CacheConfig             `mapstructure:"cache"`
	Kafka    KafkaConfig             `mapstructure:"kafka"`
	Scoring  ScoringConfig           `mapstructure:"scoring"`
	Features FeatureSourceConfig     `mapstructure:"features"`
	Logging  LoggingConfig           `mapstructure:"logging"`
}

// ServiceConfig contains service identity configuration
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// CacheConfig contains Redis cache configuration
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Address    string        `mapstructure:"address"`
	Password   string        `mapstructure:"password"`
	Database   int           `mapstructure:"database"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
}

// KafkaConfig contains event publishing configuration
type KafkaConfig struct {
	Enabled            bool     `mapstructure:"enabled"`
	Brokers            []string `mapstructure:"brokers"`
	ClientID           string   `mapstructure:"client_id"`
	ScoreComputedTopic string   `mapstructure:"score_computed_topic"`
	ModelTrainedTopic  string   `mapstructure:"model_trained_topic"`
}

// ScoringConfig contains the scoring pipeline configuration
type ScoringConfig struct {
	RulesWeight      float64       `mapstructure:"rules_weight"`
	MLWeight         float64       `mapstructure:"ml_weight"`
	DefaultMLScore   float64       `mapstructure:"default_ml_score"`
	RuleFile         string        `mapstructure:"rule_file"`
	TrainMinInterval time.Duration `mapstructure:"train_min_interval"`
}

// FeatureSourceConfig points at the feature extraction collaborator
type FeatureSourceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	Development bool   `mapstructure:"development"`
}

// LoadConfig loads configuration from config.yaml and APPSCORE_* environment
// variables. A missing config file is fine; defaults plus environment carry a
// development deployment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvPrefix("APPSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, common.WrapError(err, common.ErrCodeInvalidInput, "reading config file")
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, common.WrapError(err, common.ErrCodeInvalidInput, "parsing configuration")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "appscore-engine")
	v.SetDefault("service.version", "1.0.0")
	v.SetDefault("service.environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "appscore")
	v.SetDefault("database.username", "appscore")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.default_ttl", "15m")
	v.SetDefault("cache.key_prefix", "appscore:")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.client_id", "appscore-engine")
	v.SetDefault("kafka.score_computed_topic", "appscore.scores.computed")
	v.SetDefault("kafka.model_trained_topic", "appscore.models.trained")

	v.SetDefault("scoring.rules_weight", 0.7)
	v.SetDefault("scoring.ml_weight", 0.3)
	v.SetDefault("scoring.default_ml_score", 50.0)
	v.SetDefault("scoring.train_min_interval", "1m")

	v.SetDefault("features.base_url", "http://localhost:8081")
	v.SetDefault("features.timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.development", false)
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	if c.Scoring.RulesWeight < 0 || c.Scoring.MLWeight < 0 {
		return common.NewAppError(common.ErrCodeInvalidInput, "scoring weights must be non-negative")
	}
	if c.Scoring.RulesWeight+c.Scoring.MLWeight == 0 {
		return common.NewAppError(common.ErrCodeInvalidInput, "at least one scoring weight must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return common.NewAppError(common.ErrCodeInvalidInput, "server port must be between 1 and 65535")
	}
	return nil
}
