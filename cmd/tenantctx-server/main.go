package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/tenantctx/pkg/api"
	"github.com/platinummonkey/tenantctx/pkg/config"
	"github.com/platinummonkey/tenantctx/pkg/observability"
	"github.com/platinummonkey/tenantctx/pkg/session"
	"github.com/platinummonkey/tenantctx/pkg/tenant"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, nil)
	logger.WithField("version", version).Info("Starting tenantctx server")

	ctx := context.Background()

	// Initialize OpenTelemetry (no-op when disabled)
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize OpenTelemetry")
		os.Exit(1)
	}

	healthChecker := observability.NewHealthChecker(version)

	store, storeClose, err := buildSessionStore(cfg, healthChecker)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize session store")
		os.Exit(1)
	}

	permProvider, menuProvider, providerClose, err := buildProviders(ctx, cfg, logger, healthChecker)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize context provider")
		os.Exit(1)
	}

	var metrics *tenant.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = tenant.NewMetrics(registry)
	}

	manager, err := tenant.NewManager(tenant.Options{
		Store:       store,
		Permissions: permProvider,
		Menus:       menuProvider,
		Logger:      logger,
		Metrics:     metrics,
		UserTTL:     cfg.Session.UserTTL,
		MenuTTL:     cfg.Session.MenuTTL,
		CacheSize:   cfg.Cache.Size,
		CacheTTL:    cfg.Cache.TTL,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to initialize context manager")
		os.Exit(1)
	}

	var handler http.Handler = api.NewServer(manager, logger)
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "tenantctx",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port for probes and scrapers
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, healthChecker)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}
	go func() {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	sweeper := startSweeper(cfg, store, logger)

	shutdownManager := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	if sweeper != nil {
		shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
			<-sweeper.Stop().Done()
			return nil
		})
	}
	shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
		manager.Flush()
		return nil
	})
	shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
		return providerClose()
	})
	shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
		return storeClose()
	})
	shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, otelProviders, logger)
	})

	go func() {
		logger.WithFields(map[string]interface{}{
			"addr":     server.Addr,
			"session":  cfg.Session.Backend,
			"provider": cfg.Provider.Backend,
		}).Info("API server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("API server failed")
			os.Exit(1)
		}
	}()

	if err := shutdownManager.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown completed with errors")
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

// buildSessionStore constructs the configured session backend and wires
// its health probe. The returned closer releases backend resources.
func buildSessionStore(cfg *config.Config, hc *observability.HealthChecker) (session.Store, func() error, error) {
	switch cfg.Session.Backend {
	case config.SessionBackendMemory:
		store := session.NewMemoryStore()
		return store, store.Close, nil

	case config.SessionBackendRedis:
		store, err := session.NewRedisStore(cfg.Session.Redis)
		if err != nil {
			return nil, nil, err
		}
		hc.Register("redis", store)
		return store, store.Close, nil

	case config.SessionBackendSQLite:
		store, err := session.NewSQLiteStore(cfg.Session.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		hc.Register("sqlite", store)
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

// buildProviders constructs the configured permission and menu source.
func buildProviders(ctx context.Context, cfg *config.Config, logger *observability.Logger, hc *observability.HealthChecker) (tenant.PermissionProvider, tenant.MenuProvider, func() error, error) {
	switch cfg.Provider.Backend {
	case config.ProviderBackendFixture:
		provider, err := tenant.LoadFixtureProvider(cfg.Provider.FixturePath, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.Provider.FixtureWatch {
			if err := provider.Watch(cfg.Provider.FixturePath); err != nil {
				provider.Close()
				return nil, nil, nil, err
			}
			logger.WithField("path", cfg.Provider.FixturePath).Info("Watching fixture file for changes")
		}
		return provider, provider, provider.Close, nil

	case config.ProviderBackendHTTP:
		provider, err := tenant.NewHTTPProvider(cfg.Provider.HTTPBaseURL, tenant.HTTPProviderOptions{
			Timeout: cfg.Provider.HTTPTimeout,
			Token:   cfg.Provider.HTTPToken,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return provider, provider, func() error { return nil }, nil

	case config.ProviderBackendPostgres:
		db, err := sql.Open("postgres", cfg.Provider.PostgresURL)
		if err != nil {
			return nil, nil, nil, err
		}
		db.SetMaxOpenConns(cfg.Provider.PostgresMaxConns)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("postgres ping failed: %w", err)
		}

		provider := tenant.NewSQLProvider(db)
		hc.Register("postgres", provider)
		return provider, provider, db.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown provider backend %q", cfg.Provider.Backend)
	}
}

// startSweeper schedules expired-entry sweeps for backends without
// native TTL enforcement. Redis expires keys itself, so no job runs.
func startSweeper(cfg *config.Config, store session.Store, logger *observability.Logger) *cron.Cron {
	type memSweeper interface{ Sweep() int }
	type sqlSweeper interface {
		Sweep(ctx context.Context) (int, error)
	}

	var job func()
	switch s := store.(type) {
	case memSweeper:
		job = func() {
			if n := s.Sweep(); n > 0 {
				logger.WithField("removed", n).Debug("Swept expired session entries")
			}
		}
	case sqlSweeper:
		job = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			n, err := s.Sweep(ctx)
			if err != nil {
				logger.WithError(err).Warn("Session sweep failed")
				return
			}
			if n > 0 {
				logger.WithField("removed", n).Debug("Swept expired session entries")
			}
		}
	default:
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Session.SweepSchedule, job); err != nil {
		logger.WithError(err).Warnf("Invalid sweep schedule %q, sweeping disabled", cfg.Session.SweepSchedule)
		return nil
	}
	c.Start()
	logger.WithField("schedule", cfg.Session.SweepSchedule).Info("Session sweeper scheduled")
	return c
}
