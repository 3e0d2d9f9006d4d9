package api

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platformbuilds/vigilante-core/internal/advisor"
	"github.com/platformbuilds/vigilante-core/internal/api/handlers"
	"github.com/platformbuilds/vigilante-core/internal/api/middleware"
	"github.com/platformbuilds/vigilante-core/internal/api/websocket"
	"github.com/platformbuilds/vigilante-core/internal/config"
	"github.com/platformbuilds/vigilante-core/internal/monitoring"
	"github.com/platformbuilds/vigilante-core/pkg/cache"
	"github.com/platformbuilds/vigilante-core/pkg/logger"
)

type Server struct {
	config     atomic.Pointer[config.Config]
	logger     logger.Logger
	cache      cache.Cache
	hub        *websocket.Hub
	router     *gin.Engine
	httpServer *http.Server
}

// NewServer wires the HTTP backend. c and hub may be nil: the latest
// snapshot then answers 404 and the step stream is not mounted.
func NewServer(cfg *config.Config, log logger.Logger, c cache.Cache, hub *websocket.Hub) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &Server{
		logger: log,
		cache:  c,
		hub:    hub,
		router: gin.New(),
	}
	server.config.Store(cfg)

	server.setupMiddleware()
	server.setupRoutes()
	return server
}

// UpdateConfig swaps the configuration read by request handlers. It is
// registered as a ConfigWatcher callback in serve mode.
func (s *Server) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.config.Store(cfg)
	s.logger.Info("API configuration reloaded")
}

func (s *Server) currentConfig() *config.Config { return s.config.Load() }

func (s *Server) setupMiddleware() {
	cfg := s.currentConfig()

	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.CORSMiddleware(cfg.Server.CORS))
	s.router.Use(middleware.RequestLogger(s.logger))
	if cfg.Monitoring.Enabled {
		s.router.Use(monitoring.HTTPMetricsMiddleware())
	}
	if cfg.Monitoring.TracingEnabled {
		s.router.Use(middleware.Tracing(cfg.Monitoring.ServiceName))
	}
	s.router.Use(middleware.ErrorHandler(s.logger))
}

func (s *Server) setupRoutes() {
	cfg := s.currentConfig()

	health := handlers.NewHealthHandler(s.cache, s.logger)
	s.router.GET("/health", health.HealthCheck)
	s.router.GET("/ready", health.ReadinessCheck)

	if cfg.Monitoring.Enabled {
		monitoring.SetupPrometheusMetrics(s.router, cfg.Monitoring.MetricsPath)
	}

	events := handlers.NewEventsHandler(s.currentConfig, s.cache, s.logger)
	analyze := handlers.NewAnalyzeHandler(s.currentConfig, advisor.DefaultPolicy(), s.logger)

	api := s.router.Group("/api")
	{
		api.GET("/events", events.GetEvents)
		api.GET("/summary", events.GetSummary)
		api.GET("/snapshot/latest", events.GetLatestSnapshot)
		api.POST("/analyze", analyze.Analyze)
		if s.hub != nil {
			api.GET("/ws/steps", s.hub.ServeWS)
		}
	}

	s.router.GET("/", handlers.Root(cfg.Server.StaticDir))
	if cfg.Server.StaticDir != "" {
		s.router.Static("/static", cfg.Server.StaticDir)
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	port := s.currentConfig().Server.Port
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// The step stream holds connections open; writes are bounded
		// per message by the hub instead.
		WriteTimeout: 0,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("VIGILANTE-CORE REST API server starting", "port", port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("Shutting down VIGILANTE-CORE gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the underlying Gin engine so tests (or embedders) can mount it.
func (s *Server) Handler() http.Handler {
	return s.router
}
