package entity

import (
	"time"
)

// ModelVersion is one trained (regressor, scaler) pair plus metadata. At most
// one version is active at any time; training swaps the pointer atomically.
type ModelVersion struct {
	ID         int64                  `json:"id" db:"id"`
	Version    string                 `json:"version" db:"version"`
	ModelType  string                 `json:"model_type" db:"model_type"`
	Parameters map[string]interface{} `json:"parameters" db:"-"`
	Metrics    map[string]interface{} `json:"metrics" db:"-"`
	Active     bool                   `json:"active" db:"active"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
}

// ModelArtifacts holds the fitted regressor and the fitted scaler persisted
// alongside a version record. The two are always stored and loaded as a unit:
// a regressor from one version is never paired with a scaler from another.
type ModelArtifacts struct {
	Version string `json:"version"`

	// Regressor parameters
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`

	// Scaler parameters, per feature column
	ScalerMeans  []float64 `json:"scaler_means"`
	ScalerStddev []float64 `json:"scaler_stddev"`
	ScalerFitted bool      `json:"scaler_fitted"`
}

// TrainingStatus marks the outcome of a training run.
type TrainingStatus string

const (
	TrainingStatusSuccess TrainingStatus = "success"
	TrainingStatusError   TrainingStatus = "error"
)

// TrainingResult is the structured outcome of a training run. Insufficient
// data is reported here as a failure result, never as a panic or a crash of
// the caller.
type TrainingResult struct {
	Status  TrainingStatus         `json:"status"`
	Version string                 `json:"version,omitempty"`
	Metrics map[string]interface{} `json:"metrics,omitempty"`
	Message string                 `json:"message,omitempty"`
}
