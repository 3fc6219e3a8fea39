// Package api serves the lookup endpoints and the Sonarr/Radarr webhooks.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/serialgrab/serialgrab/internal/api/handlers"
	apimw "github.com/serialgrab/serialgrab/internal/api/middleware"
	"github.com/serialgrab/serialgrab/internal/api/ratelimit"
	"github.com/serialgrab/serialgrab/internal/config"
	"github.com/serialgrab/serialgrab/internal/extractor"
	"github.com/serialgrab/serialgrab/internal/health"
	"github.com/serialgrab/serialgrab/internal/logger"
	"github.com/serialgrab/serialgrab/internal/matching"
	"github.com/serialgrab/serialgrab/internal/media"
	"github.com/serialgrab/serialgrab/internal/metadata/tmdb"
	"github.com/serialgrab/serialgrab/internal/pending"
)

// MediaService is the produced lookup interface.
type MediaService interface {
	Search(ctx context.Context, name string) ([]media.SearchItem, error)
	GetMedia(ctx context.Context, path string) (*media.Media, error)
	GetVideos(ctx context.Context, embedPath string) ([]extractor.SourceGroup, error)
	ResolveFilmStreams(ctx context.Context, q matching.SearchQuery) ([]extractor.SourceGroup, error)
}

// PendingStore is the webhook queue.
type PendingStore interface {
	Add(ctx context.Context, m pending.Media) (bool, error)
	DeleteByIDs(ctx context.Context, m pending.Media) (int64, error)
	List(ctx context.Context) ([]pending.Media, error)
}

// TitleLocalizer looks up the configured-language title of a TMDB entry.
type TitleLocalizer interface {
	LocalizedTitle(ctx context.Context, id int, kind tmdb.Kind) (string, error)
}

// SeasonLister reports the monitored seasons of a Sonarr series.
type SeasonLister interface {
	IsConfigured() bool
	MonitoredSeasons(ctx context.Context, seriesID int) ([]int, error)
}

// LogSource returns recent log entries.
type LogSource interface {
	Recent() []logger.Entry
}

// HealthChecker runs readiness checks.
type HealthChecker interface {
	Check() health.Report
}

// Deps are the services the server routes to. Logs and Health may be nil.
type Deps struct {
	Media     MediaService
	Pending   PendingStore
	Titles    TitleLocalizer
	Sonarr    SeasonLister
	Scheduler handlers.Scheduler
	Logs      LogSource
	Health    HealthChecker
}

// Server handles HTTP requests for the serialgrab API.
type Server struct {
	echo    *echo.Echo
	deps    Deps
	cfg     *config.Config
	logger  zerolog.Logger
	started time.Time
}

// NewServer creates a new API server instance.
func NewServer(deps Deps, cfg *config.Config, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		deps:    deps,
		cfg:     cfg,
		logger:  logger.With().Str("component", "api").Logger(),
		started: time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures Echo middleware.
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(apimw.RequestID(s.logger))
	s.echo.Use(apimw.SecurityHeaders())

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogError:     true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("request_id", v.RequestID).
					Err(v.Error).
					Msg("request error")
			} else {
				s.logger.Info().
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("request_id", v.RequestID).
					Msg("request")
			}
			return nil
		},
	}))

	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{Level: 5}))
}

// setupRoutes configures API routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	webhooks := s.echo.Group("/webhook")
	webhooks.POST("/sonarr", s.sonarrWebhook)
	webhooks.POST("/radarr", s.radarrWebhook)

	api := s.echo.Group("/api/v1")
	api.GET("/status", s.getStatus)
	api.GET("/pending", s.listPending)
	api.GET("/logs", s.recentLogs)
	api.GET("/health", s.readiness)

	// Lookups scrape upstream on every call.
	var limits []echo.MiddlewareFunc
	if n := s.cfg.Server.RequestsPerMinute; n > 0 {
		limits = append(limits, ratelimit.NewIPLimiter(n).Middleware())
	}
	lookups := api.Group("", limits...)
	lookups.GET("/search", s.search)
	lookups.GET("/media", s.getMedia)
	lookups.GET("/videos", s.getVideos)
	lookups.POST("/streams", s.resolveStreams)

	if s.deps.Scheduler != nil {
		handlers.NewSchedulerHandler(s.deps.Scheduler).RegisterRoutes(api.Group("/scheduler"))
	}
}

// Start runs the HTTP server until Shutdown.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying router.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"version":   config.Version,
		"startTime": s.started.Format(time.RFC3339),
		"catalog":   s.cfg.Catalog.Host,
		"sonarr":    s.cfg.Arr.Sonarr.URL != "",
		"radarr":    s.cfg.Arr.Radarr.URL != "",
	})
}

func (s *Server) readiness(c echo.Context) error {
	if s.deps.Health == nil {
		return c.JSON(http.StatusOK, health.Report{Healthy: true, Checks: []health.Check{}})
	}
	report := s.deps.Health.Check()
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, report)
}

func (s *Server) recentLogs(c echo.Context) error {
	var entries []logger.Entry
	if s.deps.Logs != nil {
		entries = s.deps.Logs.Recent()
	}
	if entries == nil {
		entries = []logger.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}
