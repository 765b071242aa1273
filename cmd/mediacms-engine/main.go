// Command mediacms-engine runs the visibility and access-resolution API:
// HTTP endpoints for media, playlists, grants, listing, search, bulk
// actions, and signed asset URLs, plus a separate health/metrics listener.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mediacms-io/mediacms-go/pkg/api"
	"github.com/mediacms-io/mediacms-go/pkg/assets"
	"github.com/mediacms-io/mediacms-go/pkg/bulk"
	"github.com/mediacms-io/mediacms-go/pkg/config"
	"github.com/mediacms-io/mediacms-go/pkg/grants"
	"github.com/mediacms-io/mediacms-go/pkg/httputil"
	"github.com/mediacms-io/mediacms-go/pkg/identity"
	"github.com/mediacms-io/mediacms-go/pkg/listing"
	"github.com/mediacms-io/mediacms-go/pkg/media"
	"github.com/mediacms-io/mediacms-go/pkg/middleware"
	"github.com/mediacms-io/mediacms-go/pkg/observability"
	"github.com/mediacms-io/mediacms-go/pkg/policy"
	"github.com/mediacms-io/mediacms-go/pkg/search"
	"github.com/mediacms-io/mediacms-go/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mediacms-engine: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"port":        cfg.Server.Port,
		"health_port": cfg.Server.HealthPort,
		"workflow":    cfg.Policy.Workflow,
	}).Info("starting mediacms-engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing and OTLP metrics.
	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	// Database.
	conns, err := storage.NewConnectionManager(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	migrations := identity.GetMigrations()
	migrations = append(migrations, media.GetMigrations()...)
	migrations = append(migrations, grants.GetMigrations()...)
	if err := storage.RunMigrations(ctx, conns.Primary(), migrations); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("database migrations applied")

	// Redis backs the principal cache and distributed rate limiting. Both
	// degrade gracefully when it is absent.
	var redisClient *redis.Client
	var principalCache *identity.Cache
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		principalCache = identity.NewCacheWithClient(redisClient, cfg.Redis.CacheTTL)
		logger.Info("redis connected")
	} else {
		logger.Warn("no redis configured, principal cache and distributed rate limiting disabled")
	}

	policyCfg, err := cfg.Policy.ToPolicy()
	if err != nil {
		return fmt.Errorf("invalid policy configuration: %w", err)
	}

	// Identity.
	groups := identity.NewGroupIndex(conns.Replica(), 4096, 5*time.Minute)
	resolver := identity.NewRoleResolver(conns.Primary(), groups, principalCache, policyCfg.RBACEnabled)
	sessions := identity.NewSessionStore(conns.Primary())

	// Stores and services.
	stateMachine := media.NewStateMachine(policyCfg.Workflow)
	mediaStore := media.NewStore(conns.Primary(), stateMachine)
	playlistStore := media.NewPlaylistStore(conns.Primary())
	grantStore := grants.NewStore(conns.Primary())
	engine := policy.NewEngine(policyCfg, grantStore)

	visibility := listing.NewBuilder(policyCfg, grantStore, mediaStore)
	listingSvc := listing.NewService(conns.Replica(), visibility, policyCfg)

	stopWords := search.NewStopWords(search.DefaultStopWords)
	if cfg.Search.StopWordFile != "" {
		if err := stopWords.LoadFile(cfg.Search.StopWordFile); err != nil {
			return fmt.Errorf("failed to load stop-word file: %w", err)
		}
		if err := stopWords.Watch(ctx, cfg.Search.StopWordFile, logger); err != nil {
			return fmt.Errorf("failed to watch stop-word file: %w", err)
		}
		logger.WithField("file", cfg.Search.StopWordFile).Info("stop-word file loaded")
	}
	tokenizer := search.NewTokenizer(stopWords)
	searchBuilder := search.NewBuilder(policyCfg, tokenizer, mediaStore, visibility)
	searchSvc := search.NewService(conns.Replica(), searchBuilder, policyCfg)

	bulkSvc := bulk.NewService(mediaStore, playlistStore, engine)

	var assetSvc *assets.Service
	if cfg.Assets.Bucket != "" {
		s3Client, err := assets.NewS3Client(ctx, cfg.Assets)
		if err != nil {
			return fmt.Errorf("failed to initialize object store: %w", err)
		}
		assetSvc = assets.NewService(mediaStore, engine, s3Client, 15*time.Minute)
		logger.WithField("bucket", cfg.Assets.Bucket).Info("object store connected")
	} else {
		logger.Warn("no object store configured, signed asset URLs disabled")
	}

	// Rate limiting keys on the resolved principal: Redis-backed when
	// available so limits hold across replicas, in-memory otherwise.
	var rateLimit func(http.Handler) http.Handler
	if redisClient != nil {
		rateLimit = middleware.NewDistributedRateLimitMiddleware(redisClient).Handler
	} else {
		limiter := middleware.NewRateLimitMiddleware()
		limiter.StartCleanup(ctx, 5*time.Minute)
		rateLimit = limiter.Handler
	}

	server := api.NewServer(api.Deps{
		Media:     mediaStore,
		Playlists: playlistStore,
		Grants:    grantStore,
		Engine:    engine,
		Listing:   listingSvc,
		Search:    searchSvc,
		Bulk:      bulkSvc,
		Assets:    assetSvc,
		Sessions:  sessions,
		Resolver:  resolver,
		Logger:    logger,
		RateLimit: rateLimit,
	})

	// Prometheus metrics and health endpoints on a separate listener.
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	engine.SetMetrics(metrics)
	listingSvc.SetMetrics(metrics)
	searchSvc.SetMetrics(metrics)
	bulkSvc.SetMetrics(metrics)
	if principalCache != nil {
		principalCache.SetMetrics(metrics)
	}

	var handler http.Handler = server
	if cfg.Observability.MetricsEnabled {
		handler = observability.HTTPMetricsMiddleware(metrics)(handler)
	}
	handler = httputil.Chain(
		httputil.LoggingMiddleware(logger),
		httputil.CORSMiddleware(cfg.Server.AllowedOrigins),
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(cfg.Server.MaxBodyBytes),
	)(handler)

	checker := observability.NewHealthChecker(conns.Primary(), redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", checker.Liveness)
	healthMux.HandleFunc("/readyz", checker.Readiness)
	observability.RegisterMetricsEndpoint(healthMux, registry)

	healthServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler:      healthMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		logger.WithField("addr", healthServer.Addr).Info("health/metrics listener started")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health listener failed")
		}
	}()

	startGaugeLoop(ctx, conns, metrics, logger)

	if cfg.Observability.OTelEnabled {
		otelMetrics, err := observability.NewOTelMetrics()
		if err != nil {
			return fmt.Errorf("failed to initialize OTel metrics: %w", err)
		}
		startOTelDBStatsLoop(ctx, conns, otelMetrics)
	}

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	go func() {
		logger.WithField("addr", apiServer.Addr).Info("API listener started")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API listener failed")
			cancel()
		}
	}()

	shutdown := observability.NewShutdownManager(logger, apiServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		cancel()
		return conns.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}
	if providers != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}

	return shutdown.WaitForShutdown()
}

// startOTelDBStatsLoop exports connection pool stats through the OTLP
// pipeline alongside the Prometheus gauges.
func startOTelDBStatsLoop(ctx context.Context, conns *storage.ConnectionManager, m *observability.OTelMetrics) {
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := conns.Stats()
				m.UpdateDBConnectionStats(ctx, stats.InUse, stats.Idle, stats.MaxOpenConnections)
			}
		}
	}()
}
