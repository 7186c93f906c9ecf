// Package api exposes the prediction engine over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ivf-outcome-server/internal/domain"
	"github.com/ivf-outcome-server/internal/middleware"
	"github.com/ivf-outcome-server/internal/service"
)

// HealthCheck reports the health of one dependency (database, cache).
type HealthCheck func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	config    *domain.Config
	predictor *service.Predictor
	router    *gin.Engine
	server    *http.Server
	logger    *logrus.Logger
	checks    map[string]HealthCheck
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *domain.Config, predictor *service.Predictor, logger *logrus.Logger) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.AuditLogger())
	router.Use(corsMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestTimeout(cfg.Server.WriteTimeout))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.NewRateLimiter(cfg.RateLimit).Middleware())
	}

	server := &Server{
		config:    cfg,
		predictor: predictor,
		router:    router,
		logger:    logger,
		checks:    make(map[string]HealthCheck),
	}

	server.setupRoutes()

	return server
}

// WithHealthCheck registers a named dependency health check.
func (s *Server) WithHealthCheck(name string, check HealthCheck) *Server {
	s.checks[name] = check
	return s
}

// Router exposes the underlying gin engine for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/predictions", s.handleCreatePrediction)
		v1.GET("/predictions", s.handleListPredictions)
		v1.GET("/predictions/:id", s.handleGetPrediction)
		v1.GET("/stats", s.handleStats)
		v1.GET("/references", s.handleReferences)
	}
}

// handleHealth reports service and dependency health.
func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	deps := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(c.Request.Context()); err != nil {
			deps[name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
		} else {
			deps[name] = "healthy"
		}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":       overall,
		"timestamp":    time.Now().UTC(),
		"version":      domain.EngineVersion,
		"dependencies": deps,
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Correlation-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
