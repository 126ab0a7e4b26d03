package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cellango/SecurityApps/config"
	deliveryhttp "github.com/cellango/SecurityApps/delivery/http"
	"github.com/cellango/SecurityApps/domain/repository"
	"github.com/cellango/SecurityApps/infrastructure/cache"
	"github.com/cellango/SecurityApps/infrastructure/database"
	"github.com/cellango/SecurityApps/infrastructure/messaging"
	"github.com/cellango/SecurityApps/infrastructure/rules"
	infraservice "github.com/cellango/SecurityApps/infrastructure/service"
	"github.com/cellango/SecurityApps/pkg/logging"
	"github.com/cellango/SecurityApps/pkg/metrics"
	"github.com/cellango/SecurityApps/usecase"
)

const serviceName = "appscore-engine"

func main() {
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: serviceName,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()

	logger.Info("starting scoring engine",
		logging.String("version", cfg.Service.Version),
		logging.String("environment", cfg.Service.Environment))

	collector := metrics.NewCollector("appscore")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", logging.ErrorField(err))
		os.Exit(1)
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		logger.Error("failed to apply schema", logging.ErrorField(err))
		os.Exit(1)
	}

	audit := database.NewAuditRecorder(db, logger)
	historyRepo := database.NewPostgresScoreHistoryRepository(db, collector)
	modelRepo := database.NewAuditedModelVersionRepository(
		database.NewPostgresModelVersionRepository(db, collector), audit)
	riskParamsRepo := database.NewAuditedRiskParametersRepository(
		database.NewPostgresRiskParametersRepository(db, collector), audit)

	var ruleSource repository.RuleSource
	if cfg.Scoring.RuleFile != "" {
		ruleSource = rules.NewFileSource(cfg.Scoring.RuleFile)
	} else {
		ruleSource = database.NewAuditedRuleSource(
			database.NewPostgresRuleSource(db, collector), audit)
	}

	// Optional collaborators
	var scoreCache usecase.ScoreCache
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewScoreCache(logger, collector, &cache.RedisCacheConfig{
			Address:      cfg.Cache.Address,
			Password:     cfg.Cache.Password,
			Database:     cfg.Cache.Database,
			DefaultTTL:   cfg.Cache.DefaultTTL,
			KeyPrefix:    cfg.Cache.KeyPrefix,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
		})
		if err != nil {
			logger.Error("failed to connect to redis", logging.ErrorField(err))
			os.Exit(1)
		}
		defer redisCache.Close()
		scoreCache = redisCache
	}

	var publisher messaging.EventPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := messaging.NewKafkaEventPublisher(logger, collector, &messaging.KafkaProducerConfig{
			Brokers:            cfg.Kafka.Brokers,
			ClientID:           cfg.Kafka.ClientID,
			ScoreComputedTopic: cfg.Kafka.ScoreComputedTopic,
			ModelTrainedTopic:  cfg.Kafka.ModelTrainedTopic,
			BatchSize:          100,
			BatchTimeout:       50 * time.Millisecond,
			WriteTimeout:       10 * time.Second,
			MaxRetries:         3,
		})
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	// Domain services
	evaluator := infraservice.NewRulesEngine(logger, collector)
	predictor := infraservice.NewMLEngine(logger, collector, modelRepo, infraservice.MLEngineConfig{
		DefaultScore: cfg.Scoring.DefaultMLScore,
	})
	if err := predictor.LoadActive(ctx); err != nil {
		logger.Error("failed to load active model", logging.ErrorField(err))
		os.Exit(1)
	}

	scoreService := infraservice.NewScoreService(logger, collector, infraservice.ScoreServiceConfig{
		RulesWeight: cfg.Scoring.RulesWeight,
		MLWeight:    cfg.Scoring.MLWeight,
	}, evaluator, predictor, ruleSource, historyRepo)

	riskService := infraservice.NewRiskService(logger, collector, infraservice.StaticFactorScorer{}, historyRepo)

	featureClient := infraservice.NewFeatureClient(logger, infraservice.FeatureClientConfig{
		BaseURL: cfg.Features.BaseURL,
		Timeout: cfg.Features.Timeout,
	})

	// Use cases
	scoreUC := usecase.NewScoreApplicationUseCase(featureClient, scoreService, scoreCache, publisher, logger)
	trainUC := usecase.NewTrainModelUseCase(scoreService, publisher, cfg.Scoring.TrainMinInterval, logger)
	riskUC := usecase.NewRiskScoreUseCase(riskParamsRepo, riskService, logger)

	server := deliveryhttp.NewScoringHTTPServer(
		scoreUC, trainUC, riskUC, ruleSource, modelRepo,
		logger, collector, cfg.Server,
	)

	if err := server.Start(ctx); err != nil {
		logger.Error("http server failed", logging.ErrorField(err))
		os.Exit(1)
	}
	logger.Info("scoring engine stopped")
}
