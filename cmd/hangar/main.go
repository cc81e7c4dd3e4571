package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/platinummonkey/hangar/pkg/config"
	"github.com/platinummonkey/hangar/pkg/control"
	"github.com/platinummonkey/hangar/pkg/host"
	"github.com/platinummonkey/hangar/pkg/httputil"
	"github.com/platinummonkey/hangar/pkg/middleware"
	"github.com/platinummonkey/hangar/pkg/observability"
	"github.com/platinummonkey/hangar/pkg/plugins"
	"github.com/platinummonkey/hangar/pkg/sdk"
	"github.com/platinummonkey/hangar/pkg/signing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stdout)
	if err != nil {
		return err
	}
	log := logrus.NewEntry(logger).WithField("service", "hangar")
	log.WithField("version", version).Info("Starting hangar")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := observability.NewShutdownManager(log, cfg.Server.ShutdownTimeout)

	tp, err := observability.InitTracing(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, log)
	if err != nil {
		return err
	}
	if tp != nil {
		shutdown.RegisterShutdownFunc("tracing", func(ctx context.Context) error {
			return observability.ShutdownTracing(ctx, tp)
		})
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(promRegistry)

	store, db, err := openManifestStore(ctx, cfg.Manifest)
	if err != nil {
		return err
	}
	if db != nil {
		shutdown.RegisterShutdownFunc("database", func(context.Context) error {
			return db.Close()
		})
	}

	registry := plugins.NewRegistry(
		plugins.WithLogger(log),
		plugins.WithObserver(metrics.ObserveTransition),
	)
	kernel := sdk.New(&http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}, sdk.NewEventBus())

	svc := control.NewService(store, control.WithKernel(registry, kernel), control.WithLogger(log))
	if err := svc.Load(ctx); err != nil {
		return err
	}

	descriptors, err := plugins.NewLoader(log).Discover(ctx, cfg.Plugins.Dirs...)
	if err != nil {
		return err
	}
	if err := host.Bootstrap(ctx, registry, kernel, descriptors, svc.Enabled, log); err != nil {
		return err
	}
	if err := svc.Reconcile(ctx); err != nil {
		return err
	}
	metrics.SetPluginCounts(registry.CountByStatus())

	limiter, redisClient := newLimiter(ctx, cfg.RateLimit, log)
	if redisClient != nil {
		shutdown.RegisterShutdownFunc("redis", func(context.Context) error {
			return redisClient.Close()
		})
	}

	verifierOpts := []signing.Option{signing.WithMaxSkew(cfg.Security.MaxClockSkew)}
	if cfg.Security.ReplayCache {
		verifierOpts = append(verifierOpts, signing.WithReplayCache(cfg.Security.ReplayCacheSize))
	}
	verifier, err := signing.NewVerifier([]byte(cfg.Security.SharedSecret), verifierOpts...)
	if err != nil {
		return fmt.Errorf("failed to create signature verifier: %w", err)
	}

	proxies, err := httputil.NewProxyResolver(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	apiServer := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: newRouter(routerDeps{
			Log:      log,
			Metrics:  metrics,
			SDK:      kernel,
			Registry: registry,
			Control:  svc,
			Limiter:  limiter,
			Verifier: verifier,
			Proxies:  proxies,
			Origins:  cfg.Server.AllowedOrigins,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient, version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, promRegistry)
	}
	healthServer := &http.Server{
		Addr:              cfg.Server.HealthAddr(),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown.RegisterServer(apiServer)
	shutdown.RegisterServer(healthServer)

	var watcher *plugins.Watcher
	if cfg.Plugins.Watch {
		if watcher, err = plugins.NewWatcher(log, cfg.Plugins.Dirs...); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(apiServer, "control", log) })
	g.Go(func() error { return serve(healthServer, "health", log) })
	g.Go(func() error {
		defer cancel()
		return shutdown.WaitForShutdown(gctx)
	})
	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx, func(c plugins.ManifestChange) {
				log.WithFields(logrus.Fields{
					"plugin": c.Plugin,
					"path":   c.Path,
					"op":     c.Op,
				}).Warn("Plugin manifest changed on disk, restart to apply")
			})
		})
	}

	return g.Wait()
}

// openManifestStore returns the configured store and, for SQL stores, its database
func openManifestStore(ctx context.Context, cfg config.ManifestConfig) (control.ManifestStore, *sql.DB, error) {
	var (
		dialect control.Dialect
		dsn     string
	)
	switch cfg.Store {
	case config.StoreFile:
		store, err := control.NewFileStore(cfg.Path)
		return store, nil, err
	case config.StoreSQLite:
		dialect, dsn = control.DialectSQLite, cfg.Path
	case config.StorePostgres:
		dialect, dsn = control.DialectPostgres, cfg.DatabaseURL
	default:
		return nil, nil, fmt.Errorf("invalid manifest store: %s", cfg.Store)
	}

	store, err := control.OpenSQLStore(ctx, dialect, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	return store, store.DB(), nil
}

// newLimiter picks the Redis limiter when a URL is configured. A Redis that is
// unreachable at startup is tolerated since the limiter fails open.
func newLimiter(ctx context.Context, cfg config.RateLimitConfig, log *logrus.Entry) (middleware.Limiter, *redis.Client) {
	limits := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.Requests,
		WindowDuration:    cfg.Window,
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err == nil {
			client := redis.NewClient(opts)
			limiter := middleware.NewDistributedRateLimiter(client, limits, "hangar")

			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := limiter.HealthCheck(pingCtx); err != nil {
				log.WithError(err).Warn("Redis unreachable, rate limiting will fail open until it recovers")
			}
			log.Info("Using distributed rate limiter")
			return limiter, client
		}
		log.WithError(err).Warn("Invalid Redis URL, falling back to in-memory rate limiter")
	}

	limiter := middleware.NewSlidingWindowLimiter(limits)
	limiter.StartCleanup(ctx)
	return limiter, nil
}

func serve(server *http.Server, name string, log *logrus.Entry) error {
	log.WithFields(logrus.Fields{"server": name, "addr": server.Addr}).Info("Listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server failed: %w", name, err)
	}
	return nil
}
