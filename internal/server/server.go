// Package server wires the HTTP API, storage, and background workers.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/tucanopay/tucano/internal/antifraud"
	"github.com/tucanopay/tucano/internal/apiauth"
	"github.com/tucanopay/tucano/internal/audit"
	"github.com/tucanopay/tucano/internal/config"
	"github.com/tucanopay/tucano/internal/counters"
	"github.com/tucanopay/tucano/internal/health"
	"github.com/tucanopay/tucano/internal/idgen"
	"github.com/tucanopay/tucano/internal/logging"
	"github.com/tucanopay/tucano/internal/merchants"
	"github.com/tucanopay/tucano/internal/metrics"
	"github.com/tucanopay/tucano/internal/payments"
	"github.com/tucanopay/tucano/internal/providers"
	"github.com/tucanopay/tucano/internal/pspwebhooks"
	"github.com/tucanopay/tucano/internal/ratelimit"
	"github.com/tucanopay/tucano/internal/reconciliation"
	"github.com/tucanopay/tucano/internal/secrets"
	"github.com/tucanopay/tucano/internal/security"
	"github.com/tucanopay/tucano/internal/traces"
	"github.com/tucanopay/tucano/internal/webhooks"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	db      *sql.DB       // nil when using in-memory storage
	rdb     *redis.Client // nil when using in-memory counters
	cipher  *secrets.Cipher
	nonces  counters.Store
	auditor audit.Logger

	merchantStore merchants.Store
	paymentStore  payments.Store

	fraud         *antifraud.Engine
	authenticator *apiauth.Authenticator
	rateLimiter   *ratelimit.Limiter

	registry         *providers.Registry
	webhookProcessor *pspwebhooks.Processor
	webhookValidator *pspwebhooks.Validator
	webhookStore     pspwebhooks.Store

	deliveryStore   webhooks.Store
	deliveryService *webhooks.Service
	deliveryWorker  *webhooks.Worker

	reconService *reconciliation.Service
	reconStore   reconciliation.Store
	reconTimer   *reconciliation.Timer

	healthReg    *health.Registry
	router       *gin.Engine
	httpSrv      *http.Server
	cancelRunCtx context.CancelFunc
	shutdownOTel func(context.Context) error

	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server from configuration.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cipher, err := secrets.NewCipher(cfg.SecretsKey)
	if err != nil {
		return nil, fmt.Errorf("secrets key: %w", err)
	}
	s.cipher = cipher

	if err := s.setupStorage(); err != nil {
		return nil, err
	}
	s.setupCounters()
	s.setupServices()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)
	return s, nil
}

// setupStorage picks Postgres when DATABASE_URL is set, in-memory
// otherwise.
func (s *Server) setupStorage() error {
	if s.cfg.DatabaseURL == "" {
		s.merchantStore = merchants.NewMemoryStore()
		s.paymentStore = payments.NewMemoryStore()
		s.webhookStore = pspwebhooks.NewMemoryStore()
		s.deliveryStore = webhooks.NewMemoryStore()
		s.reconStore = reconciliation.NewMemoryStore()
		s.auditor = audit.NewMemoryLogger()
		s.logger.Warn("using in-memory storage; data is lost on restart")
		return nil
	}

	db, err := sql.Open("postgres", s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	s.db = db
	s.merchantStore = merchants.NewPostgresStore(db)
	s.paymentStore = payments.NewPostgresStore(db)
	s.webhookStore = pspwebhooks.NewPostgresStore(db)
	s.deliveryStore = webhooks.NewPostgresStore(db)
	s.reconStore = reconciliation.NewPostgresStore(db)
	s.auditor = audit.NewPostgresLogger(db)
	s.logger.Info("using PostgreSQL storage", "url", maskDSN(s.cfg.DatabaseURL))
	return nil
}

// setupCounters picks Redis when REDIS_URL is set. The in-memory fallback
// is single-instance only: nonces and velocity windows are not shared.
func (s *Server) setupCounters() {
	if s.cfg.RedisURL == "" {
		s.nonces = counters.NewMemoryStore()
		s.logger.Warn("using in-memory nonce/counter store; replay protection is per-instance")
		return
	}

	opts, err := redis.ParseURL(s.cfg.RedisURL)
	if err != nil {
		s.logger.Error("invalid REDIS_URL, falling back to in-memory counters", "error", err)
		s.nonces = counters.NewMemoryStore()
		return
	}
	s.rdb = redis.NewClient(opts)
	s.nonces = counters.NewRedisStore(s.rdb)
	s.logger.Info("using Redis nonce/counter store")
}

func (s *Server) setupServices() {
	var blacklist antifraud.BlacklistStore
	if s.db != nil {
		blacklist = antifraud.NewPostgresBlacklist(s.db)
	} else {
		blacklist = antifraud.NewMemoryBlacklist()
	}

	s.fraud = antifraud.NewEngine(s.nonces, blacklist, s.auditor, s.logger).
		WithVelocityLimit(int64(s.cfg.VelocityLimit)).
		WithBlockThresholds(s.cfg.FailuresToBlock, 10*time.Minute, s.cfg.AdaptiveBlockTime)

	s.authenticator = apiauth.New(s.merchantStore, s.nonces, s.cipher, s.fraud, s.logger).
		WithSkew(s.cfg.TimestampSkew).
		WithNonceTTL(s.cfg.NonceTTL)

	s.rateLimiter = ratelimit.New(s.nonces)

	s.registry = providers.NewRegistry()
	if s.cfg.StripeAPIKey != "" {
		s.registry.Register(providers.NewStripeProvider(s.cfg.StripeAPIKey, s.cfg.StripeWebhookSecret))
	}
	if s.cfg.PixnowBaseURL != "" {
		s.registry.Register(providers.NewPixNowProvider(s.cfg.PixnowBaseURL, s.cfg.PixnowAPIKey, s.cfg.PixnowSecret))
	}
	if s.cfg.BoletohubBaseURL != "" {
		s.registry.Register(providers.NewBoletoHubProvider(s.cfg.BoletohubBaseURL, s.cfg.BoletohubAPIKey, s.cfg.BoletohubSecret))
	}

	s.deliveryService = webhooks.NewService(s.deliveryStore, s.merchantStore, webhooks.NewSender(s.cipher), s.auditor, s.logger)
	s.deliveryWorker = webhooks.NewWorker(s.deliveryService, s.deliveryStore, s.cfg.DeliveryInterval, s.logger)

	s.webhookValidator = pspwebhooks.NewValidator(s.registry, s.nonces, s.auditor, s.logger)
	s.webhookProcessor = pspwebhooks.NewProcessor(s.webhookStore, s.paymentStore, s.deliveryService, s.auditor, s.logger)

	s.reconService = reconciliation.NewService(s.registry, s.paymentStore, s.reconStore, s.auditor, s.logger)
	s.reconTimer = reconciliation.NewTimer(s.reconService, s.cfg.ReconciliationHourUTC, s.logger)

	s.healthReg = health.NewRegistry()
	if s.db != nil {
		s.healthReg.Register("postgres", health.Postgres(s.db))
	}
	if s.rdb != nil {
		s.healthReg.Register("redis", health.Redis(s.rdb))
	}
}

// maskDSN hides the password in a connection string for logging.
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	s.router.Use(security.HeadersMiddleware())
	s.router.Use(security.CORSMiddleware(nil))
	s.router.Use(s.rateLimiter.Middleware(ratelimit.Config{RequestsPerMinute: s.cfg.RateLimitPerMinute}))
	s.router.Use(metrics.Middleware())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = idgen.Hex(8)
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		ctx = audit.WithRequestID(ctx, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.livenessHandler)
	s.router.GET("/readyz", s.readinessHandler)
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/metrics", metrics.Handler())

	// Providers authenticate with signatures, not API keys.
	pspwebhooks.NewHandler(s.webhookValidator, s.webhookProcessor, s.logger).
		RegisterRoutes(s.router.Group("/v1"))

	v1 := s.router.Group("/v1")
	v1.Use(apiauth.Middleware(s.authenticator))

	payments.NewHandlers(s.paymentStore, s.fraud).RegisterRoutes(v1, apiauth.MerchantID)
	merchants.NewHandlers(s.merchantStore, s.cipher).RegisterRoutes(v1, apiauth.MerchantID)
	webhooks.NewHandler(s.deliveryService, s.deliveryStore, apiauth.MerchantID).RegisterRoutes(v1)
	reconciliation.NewHandler(s.reconService, s.reconStore).RegisterRoutes(v1)
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(503, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(503, gin.H{"status": "starting"})
		return
	}
	c.JSON(200, gin.H{"status": "ready"})
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.healthReg.CheckAll(c.Request.Context())
	code := 200
	if !healthy {
		code = 503
	}
	c.JSON(code, gin.H{
		"healthy":    healthy,
		"subsystems": statuses,
	})
}

// Run starts the HTTP server, background workers, and graceful shutdown
// handling. It blocks until a signal arrives or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	shutdownOTel, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("tracing init failed", "error", err)
	} else {
		s.shutdownOTel = shutdownOTel
	}

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port, "env", s.cfg.Env)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go s.deliveryWorker.Start(runCtx)
	go s.reconTimer.Start(runCtx)
	if s.db != nil {
		go metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server and its workers.
func (s *Server) Shutdown() error {
	s.logger.Info("starting graceful shutdown")
	s.ready.Store(false)

	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}
	s.deliveryWorker.Stop()
	s.reconTimer.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("http shutdown error", "error", err)
		}
	}
	if s.shutdownOTel != nil {
		if err := s.shutdownOTel(ctx); err != nil {
			s.logger.Warn("otel shutdown error", "error", err)
		}
	}
	if s.rdb != nil {
		_ = s.rdb.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}

	s.logger.Info("shutdown complete")
	return nil
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
