package server

import (
	"time"

	"cadence/internal/config"
	"cadence/internal/handlers"
	"cadence/internal/openai"
	"cadence/internal/replay"
	"cadence/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Server represents the application server
type Server struct {
	echo   *echo.Echo
	store  *store.Store
	config *config.Config
	logger zerolog.Logger
	openai *openai.Client
	replay *replay.Controller
	queue  handlers.Enqueuer
}

// New creates a new server instance
func New(cfg *config.Config, st *store.Store, ai *openai.Client, replayCtrl *replay.Controller, queue handlers.Enqueuer, logger zerolog.Logger) *Server {
	return &Server{
		config: cfg,
		store:  st,
		openai: ai,
		replay: replayCtrl,
		queue:  queue,
		logger: logger,
	}
}

// zerologMiddleware creates a zerolog-based logging middleware for Echo
func (s *Server) zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			s.logger.Info().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote_ip", c.RealIP()).
				Int("status", res.Status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Str("user_agent", req.UserAgent()).
				Msg("HTTP request")

			return err
		}
	}
}

// Initialize sets up the Echo framework with middleware and routes
func (s *Server) Initialize() {
	s.echo = echo.New()

	// Middleware
	s.echo.Use(s.zerologMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	// Hide Echo banner
	s.echo.HideBanner = true

	// Setup routes
	s.setupRoutes()
}

// setupRoutes configures all the application routes
func (s *Server) setupRoutes() {
	// API group with /api prefix
	api := s.echo.Group("/api")

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// Health endpoints (keep at root level for monitoring)
	s.echo.GET("/healthz", handlers.HealthHandler(s.config.Version))
	s.echo.GET("/healthz/db", handlers.DBHealthHandler(s.store.DB()))

	// API endpoints under /api prefix
	api.GET("/", handlers.RootHandler(s.config.Version))
	api.POST("/search", handlers.SearchHandler(s.store, s.openai))
	api.GET("/contacts/:contactID/timeline", handlers.ContactTimelineHandler(s.store))
	api.GET("/insights/:subjectType/:subjectID", handlers.SubjectInsightsHandler(s.store))

	// Administrative surface
	admin := api.Group("/admin")
	admin.POST("/replay", handlers.ReplayHandler(s.replay))
	admin.GET("/replay/:batchID", handlers.ReplayStatusHandler(s.replay))
	admin.POST("/trigger-sync", handlers.TriggerSyncHandler(s.queue, s.config))
	admin.POST("/trigger-backfill", handlers.TriggerBackfillJobHandler(s.config))
	admin.GET("/backfill-status/:jobName", handlers.BackfillJobStatusHandler(s.config))
	admin.GET("/ingest-errors", handlers.ListIngestErrorsHandler(s.store))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Port).Msg("Server starting")
	return s.echo.Start(":" + s.config.Port)
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown() error {
	if s.echo == nil {
		return nil
	}
	return s.echo.Close()
}
