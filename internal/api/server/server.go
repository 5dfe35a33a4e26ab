package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-monitor/internal/api/middleware"
	"github.com/feral-file/ff-transfer-monitor/internal/api/rest"
	"github.com/feral-file/ff-transfer-monitor/internal/auth"
	"github.com/feral-file/ff-transfer-monitor/internal/logger"
	"github.com/feral-file/ff-transfer-monitor/internal/metrics"
	"github.com/feral-file/ff-transfer-monitor/internal/store"
)

// Config holds the server configuration
type Config struct {
	Debug          bool
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
	// MetricsPath exposes Prometheus metrics when set, e.g. "/metrics"
	MetricsPath string
}

// Server wraps the HTTP server
type Server struct {
	config        Config
	events        store.TransferEventStore
	authenticator *auth.Authenticator
	registry      *prometheus.Registry
	httpServer    *http.Server
}

// New creates a new API server. A nil authenticator leaves the transfer routes open,
// which is how the Lambda deployment runs behind the API Gateway authorizer.
func New(cfg Config, events store.TransferEventStore, authenticator *auth.Authenticator) *Server {
	return &Server{
		config:        cfg,
		events:        events,
		authenticator: authenticator,
	}
}

// Router builds the gin engine with every middleware and route
func (s *Server) Router() (*gin.Engine, error) {
	// Set Gin mode based on debug flag
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	s.registry = prometheus.NewRegistry()
	httpMetrics, err := metrics.NewHTTPMetrics(s.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register HTTP metrics: %w", err)
	}

	// Setup middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(httpMetrics))
	router.Use(middleware.SetupCORS(s.config.AllowedOrigins))

	var protected []gin.HandlerFunc
	if s.authenticator != nil {
		protected = append(protected, middleware.Auth(s.authenticator))
	}

	rest.SetupRoutes(router, rest.NewHandler(s.events), protected...)

	if s.config.MetricsPath != "" {
		router.GET(s.config.MetricsPath, gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	}

	return router, nil
}

// Start initializes and starts the HTTP server
func (s *Server) Start() error {
	router, err := s.Router()
	if err != nil {
		return err
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting API server",
		zap.String("address", addr),
		zap.Bool("auth", s.authenticator != nil),
	)

	// Start server
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}
