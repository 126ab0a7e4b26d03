// Package messaging publishes scoring lifecycle events to Kafka so downstream
// consumers (dashboards, alerting, the service catalog) react to score changes
// without polling the API.
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/pkg/logging"
	"github.com/cellango/SecurityApps/pkg/metrics"
	"github.com/cellango/SecurityApps/shared/common"
)

// EventPublisher defines the interface for publishing scoring events.
type EventPublisher interface {
	PublishScoreComputed(ctx context.Context, result *entity.ScoreResult) error
	PublishModelTrained(ctx context.Context, result *entity.TrainingResult) error
	Close() error
}

// ScoreComputedEvent is the payload published after every scoring run.
type ScoreComputedEvent struct {
	ApplicationID string               `json:"application_id"`
	FinalScore    float64              `json:"final_score"`
	RulesScore    float64              `json:"rules_score"`
	MLScore       float64              `json:"ml_score"`
	Triggered     []entity.RuleOutcome `json:"triggered_rules"`
	ComputedAt    time.Time            `json:"computed_at"`
}

// ModelTrainedEvent is the payload published after a training run completes,
// successful or not.
type ModelTrainedEvent struct {
	Status    entity.TrainingStatus  `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Metrics   map[string]interface{} `json:"metrics,omitempty"`
	Message   string                 `json:"message,omitempty"`
	TrainedAt time.Time              `json:"trained_at"`
}

// KafkaProducerConfig represents Kafka producer configuration
type KafkaProducerConfig struct {
	Brokers            []string      `json:"brokers"`
	ClientID           string        `json:"client_id"`
	ScoreComputedTopic string        `json:"score_computed_topic"`
	ModelTrainedTopic  string        `json:"model_trained_topic"`
	BatchSize          int           `json:"batch_size"`
	BatchTimeout       time.Duration `json:"batch_timeout"`
	WriteTimeout       time.Duration `json:"write_timeout"`
	MaxRetries         int           `json:"max_retries"`
}

// DefaultKafkaProducerConfig returns the configuration used when none is
// supplied.
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:            []string{"localhost:9092"},
		ClientID:           "appscore-engine",
		ScoreComputedTopic: "appscore.scores.computed",
		ModelTrainedTopic:  "appscore.models.trained",
		BatchSize:          100,
		BatchTimeout:       50 * time.Millisecond,
		WriteTimeout:       10 * time.Second,
		MaxRetries:         3,
	}
}

// KafkaEventPublisher implements EventPublisher using kafka-go writers, one
// per topic.
type KafkaEventPublisher struct {
	scoreWriter *kafka.Writer
	modelWriter *kafka.Writer
	logger      *logging.Logger
	metrics     *metrics.Collector
	config      *KafkaProducerConfig
}

// NewKafkaEventPublisher creates a Kafka-backed event publisher
func NewKafkaEventPublisher(logger *logging.Logger, collector *metrics.Collector, config *KafkaProducerConfig) *KafkaEventPublisher {
	if config == nil {
		config = DefaultKafkaProducerConfig()
	}
	return &KafkaEventPublisher{
		scoreWriter: newWriter(config, config.ScoreComputedTopic),
		modelWriter: newWriter(config, config.ModelTrainedTopic),
		logger:      logger.WithComponent("kafka_publisher"),
		metrics:     collector,
		config:      config,
	}
}

func newWriter(config *KafkaProducerConfig, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    config.BatchSize,
		BatchTimeout: config.BatchTimeout,
		WriteTimeout: config.WriteTimeout,
		MaxAttempts:  config.MaxRetries,
		RequiredAcks: kafka.RequireOne,
	}
}

// PublishScoreComputed publishes one score-computed event keyed by application
// so per-application ordering is preserved across partitions.
func (p *KafkaEventPublisher) PublishScoreComputed(ctx context.Context, result *entity.ScoreResult) error {
	event := ScoreComputedEvent{
		ApplicationID: result.ApplicationID,
		FinalScore:    result.FinalScore,
		RulesScore:    result.RulesScore,
		MLScore:       result.MLScore,
		Triggered:     result.Triggered,
		ComputedAt:    result.Timestamp,
	}
	return p.publish(ctx, p.scoreWriter, p.config.ScoreComputedTopic, result.ApplicationID, event)
}

// PublishModelTrained publishes one model-trained event.
func (p *KafkaEventPublisher) PublishModelTrained(ctx context.Context, result *entity.TrainingResult) error {
	event := ModelTrainedEvent{
		Status:    result.Status,
		Version:   result.Version,
		Metrics:   result.Metrics,
		Message:   result.Message,
		TrainedAt: time.Now().UTC(),
	}
	return p.publish(ctx, p.modelWriter, p.config.ModelTrainedTopic, result.Version, event)
}

func (p *KafkaEventPublisher) publish(ctx context.Context, writer *kafka.Writer, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return common.WrapError(err, common.ErrCodeInternal, "encoding event payload")
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "producer", Value: []byte(p.config.ClientID)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	}

	if err := writer.WriteMessages(ctx, message); err != nil {
		p.recordMessage(topic, "error")
		p.logger.Error("failed to publish event",
			logging.String("topic", topic),
			logging.String("key", key),
			logging.ErrorField(err))
		return common.WrapError(err, common.ErrCodeExternalService, "publishing event")
	}

	p.recordMessage(topic, "ok")
	p.logger.Debug("event published",
		logging.String("topic", topic),
		logging.String("key", key),
		logging.Int("bytes", len(data)))
	return nil
}

// Close flushes and closes both writers.
func (p *KafkaEventPublisher) Close() error {
	if err := p.scoreWriter.Close(); err != nil {
		return err
	}
	return p.modelWriter.Close()
}

func (p *KafkaEventPublisher) recordMessage(topic, status string) {
	if p.metrics != nil {
		p.metrics.RecordMessageSent(topic, status)
	}
}
