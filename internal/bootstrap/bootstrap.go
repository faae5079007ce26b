// Package bootstrap builds molscout's object graph from a Config. Both the
// apiserver binary and the CLI's serve command start the API through it.
package bootstrap

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	appmol "github.com/turtacn/molscout/internal/application/molecule"
	"github.com/turtacn/molscout/internal/config"
	domainMol "github.com/turtacn/molscout/internal/domain/molecule"
	"github.com/turtacn/molscout/internal/infrastructure/database/redis"
	"github.com/turtacn/molscout/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molscout/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molscout/internal/infrastructure/pubchem"
	grpcserver "github.com/turtacn/molscout/internal/interfaces/grpc"
	httpserver "github.com/turtacn/molscout/internal/interfaces/http"
	"github.com/turtacn/molscout/internal/interfaces/http/handlers"
	"github.com/turtacn/molscout/internal/interfaces/http/middleware"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.LogConfig) (logging.Logger, error) {
	paths := cfg.OutputPaths
	if len(paths) == 0 {
		paths = nil
	}
	return logging.NewLogger(logging.LogConfig{
		Level:       cfg.Level,
		Format:      cfg.Format,
		OutputPaths: paths,
	})
}

// NewMetrics returns live metrics and their scrape handler, or no-op metrics
// and a nil handler when metrics are disabled.
func NewMetrics(cfg config.MetricsConfig, logger logging.Logger) (*prometheus.AppMetrics, http.Handler, error) {
	if !cfg.Enabled {
		return prometheus.NewNoopMetrics(), nil, nil
	}
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            cfg.Namespace,
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics collector: %w", err)
	}
	return prometheus.NewAppMetrics(collector), collector.Handler(), nil
}

// NewService wires the toolkit, the PubChem client and the molecule service.
func NewService(cfg *config.Config, logger logging.Logger, metrics *prometheus.AppMetrics) (appmol.Service, error) {
	if metrics == nil {
		metrics = prometheus.NewNoopMetrics()
	}
	toolkit := domainMol.NewToolkit(domainMol.WithFingerprint(cfg.Chemistry.FingerprintRadius, cfg.Chemistry.FingerprintBits))

	pc, err := pubchem.NewClient(cfg.PubChem.BaseURL,
		pubchem.WithTimeout(cfg.PubChem.Timeout),
		pubchem.WithUserAgent(cfg.PubChem.UserAgent),
		pubchem.WithLogger(logger.Named("pubchem")),
		pubchem.WithRecorder(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("pubchem client: %w", err)
	}

	return appmol.NewService(appmol.Config{
		PerturbationRounds: cfg.Chemistry.PerturbationRounds,
		MaxOptimizeIters:   cfg.Chemistry.MaxOptimizeIters,
		MaxAtoms:           cfg.Chemistry.MaxAtoms,
		MaxCandidates:      cfg.PubChem.MaxCandidates,
		LookupConcurrency:  cfg.PubChem.LookupConcurrency,
		MaxConcurrency:     cfg.Chemistry.MaxConcurrency,
	}, toolkit, pc, logger, metrics), nil
}

// RateLimit is a configured limiter plus what it needs at runtime.
type RateLimit struct {
	Limiter middleware.RateLimiter
	Backend string
	// Checker is set for backends that gate readiness.
	Checker handlers.HealthChecker
	Close   func() error
}

// NewRateLimit builds the configured limiter. It returns nil when rate
// limiting is disabled.
func NewRateLimit(ctx context.Context, cfg *config.Config, logger logging.Logger) (*RateLimit, error) {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return nil, nil
	}

	switch rl.Backend {
	case "redis":
		client, err := redis.NewClient(ctx, redis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			KeyPrefix:    cfg.Redis.KeyPrefix,
		}, logger)
		if err != nil {
			return nil, err
		}
		return &RateLimit{
			Limiter: middleware.NewFixedWindowLimiter(client, WindowLimit(rl.RequestsPerSecond, rl.Window), rl.Window),
			Backend: "redis",
			Checker: client,
			Close:   client.Close,
		}, nil

	case "memory", "":
		limiter := middleware.NewTokenBucketLimiter(rl.RequestsPerSecond, rl.Burst, time.Minute)
		return &RateLimit{
			Limiter: limiter,
			Backend: "memory",
			Close:   func() error { limiter.Stop(); return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown rate limit backend %q", rl.Backend)
}

// WindowLimit converts a per-second rate into a per-window request budget,
// never less than one.
func WindowLimit(rps float64, window time.Duration) int {
	n := int(math.Ceil(rps * window.Seconds()))
	if n < 1 {
		return 1
	}
	return n
}

// CORSConfig maps the cors section onto the middleware config.
func CORSConfig(cfg config.CORSConfig) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	if cfg.AllowedOrigin != "" {
		c.AllowedOrigins = []string{cfg.AllowedOrigin}
	}
	c.AllowCredentials = cfg.AllowCredentials
	c.MaxAge = cfg.MaxAge
	return c
}

// App is the assembled API process.
type App struct {
	cfg     *config.Config
	logger  logging.Logger
	Metrics *prometheus.AppMetrics
	Service appmol.Service
	Health  *handlers.HealthHandler
	Handler http.Handler
	HTTP    *httpserver.Server
	// GRPC is nil when the gRPC endpoint is disabled.
	GRPC *grpcserver.Server

	closers []func() error
}

// New assembles the App. The gRPC listener is bound here; the HTTP one is
// bound on Run or an explicit HTTP.Listen.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	a := &App{cfg: cfg, logger: logger}

	metrics, metricsHandler, err := NewMetrics(cfg.Metrics, logger)
	if err != nil {
		return nil, err
	}
	a.Metrics = metrics

	svc, err := NewService(cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	a.Service = svc

	limit, err := NewRateLimit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var checkers []handlers.HealthChecker
	routerCfg := httpserver.RouterConfig{
		MoleculeHandler: handlers.NewMoleculeHandler(svc, logger, cfg.Server.HTTP.MaxBodySize),
		Logger:          logger,
		Metrics:         metrics,
		MetricsHandler:  metricsHandler,
		MetricsPath:     cfg.Metrics.Path,
	}
	cors := CORSConfig(cfg.CORS)
	routerCfg.CORS = &cors
	if limit != nil {
		a.closers = append(a.closers, limit.Close)
		if limit.Checker != nil {
			checkers = append(checkers, limit.Checker)
		}
		rlCfg := middleware.DefaultRateLimitConfig()
		rlCfg.Backend = limit.Backend
		if cfg.Metrics.Path != "" {
			rlCfg.SkipPaths = []string{"/healthz", "/readyz", cfg.Metrics.Path}
		}
		routerCfg.RateLimiter = limit.Limiter
		routerCfg.RateLimit = rlCfg
	}

	a.Health = handlers.NewHealthHandler(Version, checkers...)
	routerCfg.HealthHandler = a.Health
	a.Handler = httpserver.NewRouter(routerCfg)
	a.HTTP = httpserver.NewServer(cfg.Server, a.Handler, logger)

	if cfg.Server.GRPC.Enabled {
		gs, err := grpcserver.NewServer(cfg.Server.GRPC,
			grpcserver.WithHost(cfg.Server.HTTP.Host),
			grpcserver.WithReflection(cfg.Server.GRPC.Reflection),
			grpcserver.WithMaxRecvMsgSize(cfg.Server.GRPC.MaxRecvMsgSize),
			grpcserver.WithLogger(logger),
			grpcserver.WithMetrics(metrics),
			grpcserver.WithGracefulTimeout(cfg.Server.ShutdownTimeout),
		)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.GRPC = gs
	}
	return a, nil
}

// Run serves until ctx is cancelled or a server fails, then shuts both
// servers down and releases the rate limit backend.
func (a *App) Run(ctx context.Context) error {
	defer func() { _ = a.Close() }()

	if err := a.HTTP.Listen(); err != nil {
		if a.GRPC != nil {
			_ = a.GRPC.Stop(context.Background())
		}
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.HTTP.Start)
	if a.GRPC != nil {
		g.Go(a.GRPC.Start)
	}
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		a.Health.SetDraining(true)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if a.GRPC != nil {
			_ = a.GRPC.Stop(shutdownCtx)
		}
		return a.HTTP.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases resources that outlive the servers. It is safe to call
// more than once.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// WatchLogLevel applies log.level changes in path to logger without a
// restart. Loggers that cannot change level are left alone.
func WatchLogLevel(path string, logger logging.Logger) error {
	setter, ok := logger.(logging.LevelSetter)
	if !ok {
		return nil
	}
	return config.Watch(path, func(c *config.Config) {
		setter.SetLevel(c.Log.Level)
		logger.Info("log level reloaded", logging.String("level", c.Log.Level))
	}, func(err error) {
		logger.Warn("config reload failed", logging.Err(err))
	})
}
