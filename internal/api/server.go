// Package api exposes the prediction engine and patient records over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clinsight-server/internal/audit"
	"github.com/clinsight-server/internal/domain"
	"github.com/clinsight-server/internal/middleware"
)

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	catalog       *domain.Catalog
	engine        domain.PredictionEngine
	patients      domain.PatientRepository
	mlClient      domain.MLPredictor
	auditStore    audit.Store
	hub           *Hub
	log           *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// ServerOptions carries the dependencies the server wires into handlers.
// MLClient, Patients and AuditStore may be nil; the matching features are
// then disabled or degraded.
type ServerOptions struct {
	ConfigManager domain.ConfigManager
	Catalog       *domain.Catalog
	Engine        domain.PredictionEngine
	Patients      domain.PatientRepository
	MLClient      domain.MLPredictor
	AuditStore    audit.Store
	Logger        *logrus.Logger
}

// NewServer creates a new HTTP server instance
func NewServer(opts ServerOptions) *Server {
	cfg := opts.ConfigManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestTimeout(30 * time.Second))
	router.Use(middleware.GeneralRateLimiter())

	catalog := opts.Catalog
	if catalog == nil {
		catalog = domain.DefaultCatalog()
	}

	server := &Server{
		configManager: opts.ConfigManager,
		catalog:       catalog,
		engine:        opts.Engine,
		patients:      opts.Patients,
		mlClient:      opts.MLClient,
		auditStore:    opts.AuditStore,
		hub:           NewHub(opts.Logger),
		log:           opts.Logger,
		router:        router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
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
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.hub.Close()
	return s.server.Shutdown(shutdownCtx)
}

// Router exposes the configured handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/predict", middleware.PredictionRateLimiter(), s.handlePredict)
		v1.GET("/predictions/live", s.hub.HandleLiveFeed)

		v1.POST("/patients", s.handleCreatePatient)
		v1.GET("/patients", s.handleListPatients)
		v1.GET("/patients/:id", s.handleGetPatient)
		v1.PATCH("/patients/:id", s.handleUpdatePatient)
		v1.DELETE("/patients/:id", s.handleDeletePatient)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	health := gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   "1.0.0",
	}

	if s.mlClient != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.mlClient.Health(ctx); err != nil {
			health["ml_service"] = "unavailable"
		} else {
			health["ml_service"] = "ok"
		}
	}

	c.JSON(http.StatusOK, health)
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-API-Key, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length, X-Correlation-ID")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
