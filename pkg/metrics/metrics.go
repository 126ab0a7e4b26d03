package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config represents metrics configuration
type Config struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Path      string `json:"path" yaml:"path"`
}

// Collector manages all metrics for the scoring service
type Collector struct {
	namespace string
	registry  *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec

	// Scoring metrics
	ScoringOperations *prometheus.CounterVec
	ScoringDuration   *prometheus.HistogramVec
	RulesTriggered    prometheus.Histogram
	RulesSkipped      *prometheus.CounterVec
	TrainingRuns      *prometheus.CounterVec

	// Database metrics
	DatabaseQueries  *prometheus.CounterVec
	DatabaseDuration *prometheus.HistogramVec

	// Cache metrics
	CacheOperations *prometheus.CounterVec

	// Message queue metrics
	MessagesSent *prometheus.CounterVec
}

// NewCollector creates a new metrics collector
func NewCollector(namespace string) *Collector {
	c := &Collector{
		namespace: namespace,
		registry:  prometheus.NewRegistry(),
	}

	c.initializeMetrics()
	c.registerMetrics()

	return c
}

func (c *Collector) initializeMetrics() {
	c.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	c.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status_code"},
	)

	c.ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "errors_total",
			Help:      "Total number of errors",
		},
		[]string{"error_type", "component"},
	)

	c.ScoringOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "scoring_operations_total",
			Help:      "Total number of scoring operations",
		},
		[]string{"operation", "status"},
	)

	c.ScoringDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      "scoring_duration_seconds",
			Help:      "Scoring operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"},
	)

	c.RulesTriggered = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      "rules_triggered_per_evaluation",
			Help:      "Number of rules triggered per evaluation",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	c.RulesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "rules_skipped_total",
			Help:      "Total number of rules skipped due to malformed conditions",
		},
		[]string{"rule_id"},
	)

	c.TrainingRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "model_training_runs_total",
			Help:      "Total number of model training runs",
		},
		[]string{"status"},
	)

	c.DatabaseQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "database_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"operation", "table"},
	)

	c.DatabaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: c.namespace,
			Name:      "database_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation", "table"},
	)

	c.CacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "cache_operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"operation", "result"},
	)

	c.MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.namespace,
			Name:      "messages_sent_total",
			Help:      "Total number of messages published",
		},
		[]string{"topic", "status"},
	)
}

func (c *Collector) registerMetrics() {
	c.registry.MustRegister(c.RequestsTotal)
	c.registry.MustRegister(c.RequestDuration)
	c.registry.MustRegister(c.ErrorsTotal)
	c.registry.MustRegister(c.ScoringOperations)
	c.registry.MustRegister(c.ScoringDuration)
	c.registry.MustRegister(c.RulesTriggered)
	c.registry.MustRegister(c.RulesSkipped)
	c.registry.MustRegister(c.TrainingRuns)
	c.registry.MustRegister(c.DatabaseQueries)
	c.registry.MustRegister(c.DatabaseDuration)
	c.registry.MustRegister(c.CacheOperations)
	c.registry.MustRegister(c.MessagesSent)
}

// RecordHTTPRequest records HTTP request metrics
func (c *Collector) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusStr := strconv.Itoa(statusCode)
	c.RequestsTotal.WithLabelValues(method, endpoint, statusStr).Inc()
	c.RequestDuration.WithLabelValues(method, endpoint, statusStr).Observe(duration.Seconds())
}

// RecordError records error metrics
func (c *Collector) RecordError(errorType, component string) {
	c.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordScoringOperation records scoring operation metrics
func (c *Collector) RecordScoringOperation(operation, status string, duration time.Duration) {
	c.ScoringOperations.WithLabelValues(operation, status).Inc()
	c.ScoringDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRuleEvaluation records per-evaluation rule metrics
func (c *Collector) RecordRuleEvaluation(triggered int) {
	c.RulesTriggered.Observe(float64(triggered))
}

// RecordRuleSkipped records a rule skipped due to a malformed condition
func (c *Collector) RecordRuleSkipped(ruleID string) {
	c.RulesSkipped.WithLabelValues(ruleID).Inc()
}

// RecordTrainingRun records a model training attempt
func (c *Collector) RecordTrainingRun(status string) {
	c.TrainingRuns.WithLabelValues(status).Inc()
}

// RecordDatabaseQuery records database query metrics
func (c *Collector) RecordDatabaseQuery(operation, table string, duration time.Duration) {
	c.DatabaseQueries.WithLabelValues(operation, table).Inc()
	c.DatabaseDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordCacheOperation records cache operation metrics
func (c *Collector) RecordCacheOperation(operation, result string) {
	c.CacheOperations.WithLabelValues(operation, result).Inc()
}

// RecordMessageSent records message sent metrics
func (c *Collector) RecordMessageSent(topic, status string) {
	c.MessagesSent.WithLabelValues(topic, status).Inc()
}

// GetRegistry returns the metrics registry
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// CreateHandler creates an HTTP handler for metrics
func (c *Collector) CreateHandler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
