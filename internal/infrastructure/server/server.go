package server

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/mjlescano/playcha/internal/api/http"
	"github.com/mjlescano/playcha/internal/api/middleware"
	"github.com/mjlescano/playcha/internal/domain/challenge"
	"github.com/mjlescano/playcha/internal/domain/resolution"
	"github.com/mjlescano/playcha/internal/domain/session"
	"github.com/mjlescano/playcha/internal/infrastructure/config"
	"github.com/mjlescano/playcha/internal/infrastructure/logging"
	"github.com/mjlescano/playcha/internal/infrastructure/monitoring"
	"github.com/mjlescano/playcha/internal/infrastructure/tracing"
	"github.com/mjlescano/playcha/internal/providers/browser"
	"github.com/mjlescano/playcha/internal/providers/browser/drivers"
	"github.com/mjlescano/playcha/internal/providers/captcha"
	"github.com/mjlescano/playcha/internal/shared/types"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	httpServer *nethttp.Server
	sessions   *session.Store
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
	tracer     *tracing.Tracer
}

// Option customizes server construction
type Option func(*options)

type options struct {
	logger *logging.Logger
	driver browser.Driver
}

// WithLogger replaces the logger built from configuration
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDriver replaces the configured browser backend
func WithDriver(driver browser.Driver) Option {
	return func(o *options) { o.driver = driver }
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, version string, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	logger.Info("Initializing Playcha server",
		zap.String("version", version),
		zap.String("addr", cfg.Addr()),
		zap.String("browser", cfg.Browser.Backend),
		zap.String("solver", cfg.Captcha.Solver),
	)

	metrics := monitoring.NewMetrics()
	tracer := tracing.New("playcha", logger)

	driver := o.driver
	if driver == nil {
		var err error
		driver, err = drivers.New(cfg.Browser, logger)
		if err != nil {
			tracer.Close()
			return nil, err
		}
	}

	table := challenge.DefaultTable()
	if path := cfg.Challenge.SelectorsFile; path != "" {
		var err error
		table, err = challenge.LoadTable(path)
		if err != nil {
			tracer.Close()
			return nil, fmt.Errorf("failed to load challenge selectors: %w", err)
		}
		logger.Info("Loaded challenge selectors", zap.String("path", path))
	}
	detector := challenge.NewDetector(table, logger)
	resolver := challenge.NewResolver(detector, logger)

	solvers := captcha.NewRegistry(cfg.Captcha, logger).WithMetrics(metrics)
	sessions := session.NewStore(driver, logger).WithMetrics(metrics)
	orchestrator := resolution.New(sessions, driver, solvers, detector, resolver, logger).
		WithMetrics(metrics).
		WithTracer(tracer)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limit := middleware.DefaultRateLimitConfig()
		limit.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limit.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limit))
	}

	handlers := http.NewHandlers(sessions, orchestrator, defaultProxy(cfg.Proxy), version, logger).
		WithMetrics(metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.POST("/v1", handlers.V1)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		httpServer: &nethttp.Server{
			Addr:              cfg.Addr(),
			Handler:           gzhttp.GzipHandler(router),
			ReadHeaderTimeout: 10 * time.Second,
		},
		sessions: sessions,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		tracer:   tracer,
	}, nil
}

func defaultProxy(cfg config.ProxyConfig) *types.ProxyRequest {
	if cfg.URL == "" {
		return nil
	}
	return &types.ProxyRequest{URL: cfg.URL, Username: cfg.Username, Password: cfg.Password}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() nethttp.Handler {
	return s.httpServer.Handler
}

// Sessions returns the session store
func (s *Server) Sessions() *session.Store {
	return s.sessions
}

// Run starts the HTTP server and blocks until it stops
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server and tears down every session
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		s.logger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	s.logger.Info("Destroying all sessions...", zap.Int("count", s.sessions.Len()))
	s.sessions.DestroyAll()

	s.tracer.Close()
	_ = s.logger.Sync()

	return err
}
