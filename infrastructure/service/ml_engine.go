package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/domain/repository"
	"github.com/cellango/SecurityApps/pkg/logging"
	"github.com/cellango/SecurityApps/pkg/metrics"
	"github.com/cellango/SecurityApps/shared/common"
)

// FeatureColumns is the fixed, ordered list of feature names that defines the
// model's input contract. Missing names are substituted with 0.
var FeatureColumns = []string{
	"critical_vulns",
	"high_vulns",
	"medium_vulns",
	"low_vulns",
	"outdated_deps_percentage",
	"compliance_violations",
	"security_hotspots",
	"code_coverage",
	"duplicate_lines",
}

const modelTypeRidge = "ridge_regression"

// MLEngineConfig contains score predictor configuration
type MLEngineConfig struct {
	// DefaultScore is returned by an untrained predictor.
	DefaultScore float64 `mapstructure:"default_score"`
	// Lambda is the ridge regularization strength.
	Lambda float64 `mapstructure:"lambda"`
}

// MLEngine implements service.ScorePredictor with a ridge regression model
// and a per-feature standardization scaler. The active (model, scaler, version)
// triple is swapped as a unit so a prediction never observes a model paired
// with the wrong scaler mid-swap.
type MLEngine struct {
	logger   *logging.Logger
	metrics  *metrics.Collector
	registry repository.ModelVersionRepository
	config   MLEngineConfig

	mu        sync.RWMutex
	artifacts *entity.ModelArtifacts
}

// NewMLEngine creates a new score predictor backed by the given model registry
func NewMLEngine(
	logger *logging.Logger,
	collector *metrics.Collector,
	registry repository.ModelVersionRepository,
	config MLEngineConfig,
) *MLEngine {
	if config.DefaultScore == 0 {
		config.DefaultScore = 50.0
	}
	if config.Lambda == 0 {
		config.Lambda = 1e-6
	}
	return &MLEngine{
		logger:   logger.WithComponent("ml_engine"),
		metrics:  collector,
		registry: registry,
		config:   config,
	}
}

// LoadActive loads the currently active model version's artifacts. When no
// version exists yet the engine keeps a fresh, untrained model+scaler pair and
// predictions fall back to the configured default until the first training.
func (e *MLEngine) LoadActive(ctx context.Context) error {
	version, artifacts, err := e.registry.LoadActive(ctx)
	if err != nil {
		if common.HasErrorCode(err, common.ErrCodeNotFound) {
			e.logger.Info("No trained model found, starting with untrained predictor")
			e.mu.Lock()
			e.artifacts = nil
			e.mu.Unlock()
			return nil
		}
		return err
	}

	e.mu.Lock()
	e.artifacts = artifacts
	e.mu.Unlock()

	e.logger.Info("Loaded active model",
		logging.String("version", version.Version),
		logging.String("model_type", version.ModelType),
	)
	return nil
}

// ActiveVersion returns the loaded version identifier, empty when untrained.
func (e *MLEngine) ActiveVersion() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.artifacts == nil {
		return ""
	}
	return e.artifacts.Version
}

// FeatureImportances returns the fitted coefficient per feature column. The
// model operates on standardized inputs, so coefficient magnitudes are
// directly comparable. Nil when untrained.
func (e *MLEngine) FeatureImportances() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.artifacts == nil || len(e.artifacts.Coefficients) == 0 {
		return nil
	}
	out := make(map[string]float64, len(FeatureColumns))
	for i, col := range FeatureColumns {
		if i < len(e.artifacts.Coefficients) {
			out[col] = e.artifacts.Coefficients[i]
		}
	}
	return out
}

// prepareFeatures extracts the model's feature columns from an arbitrary
// feature vector, substituting 0 for any missing name.
func prepareFeatures(features entity.FeatureVector) []float64 {
	vec := make([]float64, len(FeatureColumns))
	for i, col := range FeatureColumns {
		vec[i] = features.NumberOrZero(col)
	}
	return vec
}

// Predict returns a continuous score in [0,100] for the feature vector. The
// input passes through the scaler fitted at training time; an unfitted scaler
// is a pass-through.
func (e *MLEngine) Predict(features entity.FeatureVector) float64 {
	e.mu.RLock()
	artifacts := e.artifacts
	e.mu.RUnlock()

	if artifacts == nil || len(artifacts.Coefficients) == 0 {
		return entity.ClampScore(e.config.DefaultScore)
	}

	vec := prepareFeatures(features)
	if artifacts.ScalerFitted {
		vec = scaleVector(vec, artifacts.ScalerMeans, artifacts.ScalerStddev)
	}

	prediction := artifacts.Intercept
	for i, coef := range artifacts.Coefficients {
		if i < len(vec) {
			prediction += coef * vec[i]
		}
	}

	return entity.ClampScore(prediction)
}

// Train fits a new scaler on the samples, fits a new ridge model on the
// scaled samples against the targets, persists both artifacts under a fresh
// version, and atomically activates the new version while deactivating the
// prior active one. Empty or mismatched training data is a reported failure,
// not a panic.
func (e *MLEngine) Train(ctx context.Context, samples []entity.FeatureVector, targets []float64) (*entity.TrainingResult, error) {
	if len(samples) == 0 || len(targets) == 0 {
		e.recordTraining(string(entity.TrainingStatusError))
		return &entity.TrainingResult{
			Status:  entity.TrainingStatusError,
			Message: "no training data available",
		}, nil
	}
	if len(samples) != len(targets) {
		e.recordTraining(string(entity.TrainingStatusError))
		return &entity.TrainingResult{
			Status:  entity.TrainingStatusError,
			Message: fmt.Sprintf("samples and targets length mismatch: %d != %d", len(samples), len(targets)),
		}, nil
	}

	matrix := make([][]float64, len(samples))
	for i, sample := range samples {
		matrix[i] = prepareFeatures(sample)
	}

	means, stddev := fitScaler(matrix)
	scaled := make([][]float64, len(matrix))
	for i, row := range matrix {
		scaled[i] = scaleVector(row, means, stddev)
	}

	coefficients, intercept, err := fitRidge(scaled, targets, e.config.Lambda)
	if err != nil {
		e.recordTraining(string(entity.TrainingStatusError))
		return &entity.TrainingResult{
			Status:  entity.TrainingStatusError,
			Message: err.Error(),
		}, nil
	}

	version := time.Now().UTC().Format("20060102_150405.000000")
	artifacts := &entity.ModelArtifacts{
		Version:      version,
		Coefficients: coefficients,
		Intercept:    intercept,
		ScalerMeans:  means,
		ScalerStddev: stddev,
		ScalerFitted: true,
	}

	importance := make(map[string]interface{}, len(FeatureColumns))
	for i, col := range FeatureColumns {
		importance[col] = coefficients[i]
	}
	modelMetrics := map[string]interface{}{
		"feature_importance": importance,
		"r2":                 rSquared(scaled, targets, coefficients, intercept),
		"samples":            len(samples),
	}

	record := &entity.ModelVersion{
		Version:   version,
		ModelType: modelTypeRidge,
		Parameters: map[string]interface{}{
			"lambda":   e.config.Lambda,
			"features": FeatureColumns,
		},
		Metrics: modelMetrics,
		Active:  true,
	}

	if err := e.registry.SaveNewActive(ctx, record, artifacts); err != nil {
		e.recordTraining(string(entity.TrainingStatusError))
		return nil, err
	}

	// Swap the in-process model only after the registry accepted the new
	// version: readers always see a matched (model, scaler) pair.
	e.mu.Lock()
	e.artifacts = artifacts
	e.mu.Unlock()

	e.recordTraining(string(entity.TrainingStatusSuccess))
	e.logger.Info("Model training completed",
		logging.String("version", version),
		logging.Int("samples", len(samples)),
	)

	return &entity.TrainingResult{
		Status:  entity.TrainingStatusSuccess,
		Version: version,
		Metrics: modelMetrics,
	}, nil
}

func (e *MLEngine) recordTraining(status string) {
	if e.metrics != nil {
		e.metrics.RecordTrainingRun(status)
	}
}

// fitScaler computes per-column mean and standard deviation.
func fitScaler(matrix [][]float64) (means, stddev []float64) {
	cols := len(FeatureColumns)
	means = make([]float64, cols)
	stddev = make([]float64, cols)
	n := float64(len(matrix))

	for _, row := range matrix {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}

	for _, row := range matrix {
		for j, v := range row {
			d := v - means[j]
			stddev[j] += d * d
		}
	}
	for j := range stddev {
		stddev[j] = math.Sqrt(stddev[j] / n)
	}
	return means, stddev
}

// scaleVector standardizes one row. A zero-variance column passes through
// centered only.
func scaleVector(vec, means, stddev []float64) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = v - means[i]
		if stddev[i] > 0 {
			out[i] /= stddev[i]
		}
	}
	return out
}

// fitRidge solves (X'X + lambda*I) w = X'y by Gaussian elimination, with an
// unregularized intercept column appended to X.
func fitRidge(x [][]float64, y []float64, lambda float64) (coefficients []float64, intercept float64, err error) {
	rows := len(x)
	cols := len(x[0]) + 1 // bias column

	// Normal equations: a = X'X + lambda*I, b = X'y.
	a := make([][]float64, cols)
	for i := range a {
		a[i] = make([]float64, cols)
	}
	b := make([]float64, cols)

	augmented := func(row []float64, j int) float64 {
		if j == cols-1 {
			return 1.0
		}
		return row[j]
	}

	for r := 0; r < rows; r++ {
		for i := 0; i < cols; i++ {
			vi := augmented(x[r], i)
			b[i] += vi * y[r]
			for j := 0; j < cols; j++ {
				a[i][j] += vi * augmented(x[r], j)
			}
		}
	}
	for i := 0; i < cols-1; i++ {
		a[i][i] += lambda
	}

	weights, err := solveLinearSystem(a, b)
	if err != nil {
		return nil, 0, err
	}
	return weights[:cols-1], weights[cols-1], nil
}

// solveLinearSystem performs Gaussian elimination with partial pivoting.
func solveLinearSystem(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	for i := 0; i < n; i++ {
		pivot := i
		for r := i + 1; r < n; r++ {
			if math.Abs(a[r][i]) > math.Abs(a[pivot][i]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][i]) < 1e-12 {
			return nil, fmt.Errorf("training matrix is singular")
		}
		a[i], a[pivot] = a[pivot], a[i]
		b[i], b[pivot] = b[pivot], b[i]

		for r := i + 1; r < n; r++ {
			factor := a[r][i] / a[i][i]
			for c := i; c < n; c++ {
				a[r][c] -= factor * a[i][c]
			}
			b[r] -= factor * b[i]
		}
	}

	solution := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := b[i]
		for c := i + 1; c < n; c++ {
			sum -= a[i][c] * solution[c]
		}
		solution[i] = sum / a[i][i]
	}
	return solution, nil
}

// rSquared computes the coefficient of determination on the training set.
func rSquared(x [][]float64, y []float64, coefficients []float64, intercept float64) float64 {
	var meanY float64
	for _, v := range y {
		meanY += v
	}
	meanY /= float64(len(y))

	var ssRes, ssTot float64
	for i, row := range x {
		pred := intercept
		for j, coef := range coefficients {
			pred += coef * row[j]
		}
		ssRes += (y[i] - pred) * (y[i] - pred)
		ssTot += (y[i] - meanY) * (y[i] - meanY)
	}
	if ssTot == 0 {
		return 1.0
	}
	return 1.0 - ssRes/ssTot
}
