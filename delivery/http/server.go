// Package http implements the REST API for the scoring engine.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cellango/SecurityApps/config"
	"github.com/cellango/SecurityApps/domain/entity"
	"github.com/cellango/SecurityApps/domain/repository"
	"github.com/cellango/SecurityApps/pkg/logging"
	"github.com/cellango/SecurityApps/pkg/metrics"
	"github.com/cellango/SecurityApps/shared/common"
	"github.com/cellango/SecurityApps/usecase"
)

// ScoringHTTPServer implements the HTTP REST API for the scoring engine
type ScoringHTTPServer struct {
	router  *gin.Engine
	scoreUC *usecase.ScoreApplicationUseCase
	trainUC *usecase.TrainModelUseCase
	riskUC  *usecase.RiskScoreUseCase
	rules   repository.RuleSource
	models  repository.ModelVersionRepository
	logger  *logging.Logger
	metrics *metrics.Collector
	config  config.ServerConfig
	server  *http.Server
}

// NewScoringHTTPServer creates the HTTP server and wires its routes
func NewScoringHTTPServer(
	scoreUC *usecase.ScoreApplicationUseCase,
	trainUC *usecase.TrainModelUseCase,
	riskUC *usecase.RiskScoreUseCase,
	rules repository.RuleSource,
	models repository.ModelVersionRepository,
	logger *logging.Logger,
	collector *metrics.Collector,
	cfg config.ServerConfig,
) *ScoringHTTPServer {
	s := &ScoringHTTPServer{
		scoreUC: scoreUC,
		trainUC: trainUC,
		riskUC:  riskUC,
		rules:   rules,
		models:  models,
		logger:  logger.WithComponent("http"),
		metrics: collector,
		config:  cfg,
	}
	s.setupRoutes()
	return s
}

func (s *ScoringHTTPServer) setupRoutes() {
	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.metricsMiddleware())

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(s.metrics.CreateHandler()))

	v1 := s.router.Group("/api/v1")
	{
		applications := v1.Group("/applications")
		{
			applications.POST("/:id/score", s.computeScore)
			applications.GET("/:id/score", s.getCurrentScore)
			applications.GET("/:id/score/history", s.getScoreHistory)
			applications.POST("/:id/risk-score", s.computeRiskScore)
		}

		models := v1.Group("/models")
		{
			models.POST("/train", s.trainModel)
			models.GET("", s.listModels)
		}

		rules := v1.Group("/rules")
		{
			rules.GET("", s.listRules)
			rules.PUT("", s.replaceRules)
		}

		risk := v1.Group("/risk-parameters")
		{
			risk.GET("", s.getRiskParameters)
			risk.PUT("", s.updateRiskParameters)
		}
	}
}

// Start runs the HTTP server until the context is cancelled.
func (s *ScoringHTTPServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", logging.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

// Router exposes the gin engine for tests.
func (s *ScoringHTTPServer) Router() *gin.Engine {
	return s.router
}

// Handlers

func (s *ScoringHTTPServer) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "appscore-engine",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type scoreRequest struct {
	Features entity.FeatureVector `json:"features"`
}

// computeScore scores one application. When the request body carries a
// feature vector it is used directly; otherwise the features are fetched from
// the extraction collaborator.
func (s *ScoringHTTPServer) computeScore(c *gin.Context) {
	applicationID := c.Param("id")
	ctx := c.Request.Context()

	var req scoreRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
	}

	var (
		result *entity.ScoreResult
		err    error
	)
	if req.Features != nil {
		result, err = s.scoreUC.ExecuteWithFeatures(ctx, applicationID, req.Features)
	} else {
		result, err = s.scoreUC.Execute(ctx, applicationID)
	}
	if err != nil {
		s.respondError(c, err, "failed to compute score")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *ScoringHTTPServer) getCurrentScore(c *gin.Context) {
	result, err := s.scoreUC.CurrentScore(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err, "failed to get current score")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *ScoringHTTPServer) getScoreHistory(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	records, err := s.scoreUC.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		s.respondError(c, err, "failed to get score history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"application_id": c.Param("id"), "history": records})
}

type riskScoreRequest struct {
	AppType    entity.AppType `json:"app_type"`
	Name       string         `json:"name"`
	VendorName string         `json:"vendor_name"`
}

func (s *ScoringHTTPServer) computeRiskScore(c *gin.Context) {
	var req riskScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if req.AppType != entity.AppTypeInternal && req.AppType != entity.AppTypeVendor {
		c.JSON(http.StatusBadRequest, gin.H{"error": "app_type must be internal or vendor"})
		return
	}

	app := &entity.Application{
		ID:         c.Param("id"),
		Name:       req.Name,
		AppType:    req.AppType,
		VendorName: req.VendorName,
	}
	assessment, err := s.riskUC.Execute(c.Request.Context(), app)
	if err != nil {
		s.respondError(c, err, "failed to compute risk score")
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (s *ScoringHTTPServer) trainModel(c *gin.Context) {
	result, err := s.trainUC.Execute(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "failed to train model")
		return
	}
	status := http.StatusOK
	if result.Status == entity.TrainingStatusError {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

func (s *ScoringHTTPServer) listModels(c *gin.Context) {
	versions, err := s.models.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "failed to list model versions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": versions})
}

func (s *ScoringHTTPServer) listRules(c *gin.Context) {
	rules, err := s.rules.Load(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "failed to load rules")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

type replaceRulesRequest struct {
	Rules []entity.Rule `json:"rules" binding:"required"`
}

func (s *ScoringHTTPServer) replaceRules(c *gin.Context) {
	var req replaceRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if err := s.rules.Save(c.Request.Context(), req.Rules); err != nil {
		s.respondError(c, err, "failed to save rules")
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": len(req.Rules)})
}

func (s *ScoringHTTPServer) getRiskParameters(c *gin.Context) {
	params, err := s.riskUC.Parameters(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "failed to get risk parameters")
		return
	}
	c.JSON(http.StatusOK, params)
}

func (s *ScoringHTTPServer) updateRiskParameters(c *gin.Context) {
	var params entity.RiskParameters
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if err := s.riskUC.UpdateParameters(c.Request.Context(), &params); err != nil {
		s.respondError(c, err, "failed to update risk parameters")
		return
	}
	c.JSON(http.StatusOK, &params)
}

// respondError maps application errors to HTTP responses.
func (s *ScoringHTTPServer) respondError(c *gin.Context, err error, message string) {
	if appErr := common.GetAppError(err); appErr != nil {
		if appErr.StatusCode >= http.StatusInternalServerError {
			s.logger.Error(message, logging.ErrorField(err))
		}
		c.JSON(appErr.StatusCode, gin.H{"error": appErr.Message, "code": appErr.Code})
		return
	}
	s.logger.Error(message, logging.ErrorField(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}

func (s *ScoringHTTPServer) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(
				c.Request.Method,
				c.FullPath(),
				c.Writer.Status(),
				time.Since(start),
			)
		}
	}
}
