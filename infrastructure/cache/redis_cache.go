// Package cache holds the Redis-backed read-through cache for latest score
// lookups. The cache is an optimization only: the score_history table stays
// the source of truth, and every cache failure degrades to a database read.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/pkg/logging"
	"github.com/cellango/SecurityApps/pkg/metrics"
	"github.com/cellango/SecurityApps/shared/common"
)

// RedisCacheConfig contains Redis cache configuration
type RedisCacheConfig struct {
	Address            string        `json:"address"`
	Password           string        `json:"password"`
	Database           int           `json:"database"`
	PoolSize           int           `json:"pool_size"`
	MinIdleConnections int           `json:"min_idle_connections"`
	DialTimeout        time.Duration `json:"dial_timeout"`
	ReadTimeout        time.Duration `json:"read_timeout"`
	WriteTimeout       time.Duration `json:"write_timeout"`
	DefaultTTL         time.Duration `json:"default_ttl"`
	KeyPrefix          string        `json:"key_prefix"`
}

// DefaultRedisCacheConfig returns the configuration used when none is supplied.
func DefaultRedisCacheConfig() *RedisCacheConfig {
	return &RedisCacheConfig{
		Address:            "localhost:6379",
		Database:           0,
		PoolSize:           10,
		MinIdleConnections: 2,
		DialTimeout:        5 * time.Second,
		ReadTimeout:        3 * time.Second,
		WriteTimeout:       3 * time.Second,
		DefaultTTL:         15 * time.Minute,
		KeyPrefix:          "appscore:",
	}
}

// ScoreCache caches the most recent score result per application.
type ScoreCache struct {
	client  redis.UniversalClient
	logger  *logging.Logger
	metrics *metrics.Collector
	config  *RedisCacheConfig
}

// NewScoreCache creates a Redis-backed score cache and verifies connectivity.
func NewScoreCache(logger *logging.Logger, collector *metrics.Collector, config *RedisCacheConfig) (*ScoreCache, error) {
	if config == nil {
		config = DefaultRedisCacheConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Address,
		Password:     config.Password,
		DB:           config.Database,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConnections,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	cache := &ScoreCache{
		client:  client,
		logger:  logger.WithComponent("score_cache"),
		metrics: collector,
		config:  config,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		return nil, common.WrapError(err, common.ErrCodeExternalService, "failed to connect to Redis")
	}

	logger.Info("Redis score cache initialized",
		logging.String("address", config.Address),
		logging.Duration("default_ttl", config.DefaultTTL),
	)
	return cache, nil
}

// CacheScore stores the latest score result for an application.
func (c *ScoreCache) CacheScore(ctx context.Context, result *entity.ScoreResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return common.WrapError(err, common.ErrCodeInternal, "encoding cached score")
	}

	key := c.scoreKey(result.ApplicationID)
	if err := c.client.Set(ctx, key, data, c.config.DefaultTTL).Err(); err != nil {
		c.recordOperation("set", "error")
		return common.WrapError(err, common.ErrCodeExternalService, "cache set failed")
	}
	c.recordOperation("set", "ok")
	return nil
}

// GetCachedScore returns the cached latest score, or a not-found error on a
// cache miss.
func (c *ScoreCache) GetCachedScore(ctx context.Context, applicationID string) (*entity.ScoreResult, error) {
	key := c.scoreKey(applicationID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		c.recordOperation("get", "miss")
		return nil, common.ErrNotFound("cached score")
	}
	if err != nil {
		c.recordOperation("get", "error")
		return nil, common.WrapError(err, common.ErrCodeExternalService, "cache get failed")
	}

	var result entity.ScoreResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("discarding corrupt cache entry",
			logging.String("application_id", applicationID),
			logging.ErrorField(err))
		c.client.Del(ctx, key)
		return nil, common.ErrNotFound("cached score")
	}
	c.recordOperation("get", "hit")
	return &result, nil
}

// InvalidateScore drops the cached score for an application.
func (c *ScoreCache) InvalidateScore(ctx context.Context, applicationID string) error {
	if err := c.client.Del(ctx, c.scoreKey(applicationID)).Err(); err != nil {
		c.recordOperation("delete", "error")
		return common.WrapError(err, common.ErrCodeExternalService, "cache delete failed")
	}
	c.recordOperation("delete", "ok")
	return nil
}

// Ping tests the connection to Redis.
func (c *ScoreCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return common.WrapError(err, common.ErrCodeExternalService, "redis ping failed")
	}
	return nil
}

// Close closes the Redis connection.
func (c *ScoreCache) Close() error {
	return c.client.Close()
}

func (c *ScoreCache) scoreKey(applicationID string) string {
	return fmt.Sprintf("%sscore:%s", c.config.KeyPrefix, applicationID)
}

func (c *ScoreCache) recordOperation(operation, result string) {
	if c.metrics != nil {
		c.metrics.RecordCacheOperation(operation, result)
	}
}
