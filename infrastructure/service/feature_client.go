package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/pkg/logging"
	"github.com/cellango/SecurityApps/shared/common"
)

// FeatureClientConfig contains feature extractor client configuration
type FeatureClientConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// FeatureClient implements service.FeatureSource against the inventory CRUD
// service that owns vulnerability, dependency, compliance and control data.
// The engine only ever sees the flat feature vector this endpoint returns.
type FeatureClient struct {
	logger  *logging.Logger
	config  FeatureClientConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewFeatureClient creates a feature extraction client with circuit breaking
func NewFeatureClient(logger *logging.Logger, config FeatureClientConfig) *FeatureClient {
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "feature-extractor",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &FeatureClient{
		logger:  logger.WithComponent("feature_client"),
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		breaker: breaker,
	}
}

// GetFeatures fetches the current feature vector for an application.
func (fc *FeatureClient) GetFeatures(ctx context.Context, applicationID string) (entity.FeatureVector, error) {
	result, err := fc.breaker.Execute(func() (interface{}, error) {
		return fc.fetch(ctx, applicationID)
	})
	if err != nil {
		fc.logger.Warn("Feature extraction failed",
			logging.String("application_id", applicationID),
			logging.String("error", err.Error()),
		)
		return nil, common.ErrExternalService("feature-extractor", err)
	}
	return result.(entity.FeatureVector), nil
}

func (fc *FeatureClient) fetch(ctx context.Context, applicationID string) (entity.FeatureVector, error) {
	url := fmt.Sprintf("%s/api/applications/%s/features", fc.config.BaseURL, applicationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := fc.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feature extractor returned status %d", resp.StatusCode)
	}

	var features entity.FeatureVector
	if err := json.NewDecoder(resp.Body).Decode(&features); err != nil {
		return nil, fmt.Errorf("decoding feature vector: %w", err)
	}
	return features, nil
}
