package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/platinummonkey/venuedesk/pkg/audit"
	"github.com/platinummonkey/venuedesk/pkg/backend"
	"github.com/platinummonkey/venuedesk/pkg/config"
	"github.com/platinummonkey/venuedesk/pkg/console"
	"github.com/platinummonkey/venuedesk/pkg/middleware"
	"github.com/platinummonkey/venuedesk/pkg/navigation"
	"github.com/platinummonkey/venuedesk/pkg/observability"
	"github.com/platinummonkey/venuedesk/pkg/settings"
)

var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "Print the version and exit")
	checkConfig := flag.Bool("check-config", false, "Validate the environment configuration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *checkConfig {
		fmt.Println("configuration ok")
		return
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).WithField("service", "venue-console")
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("venue console stopped with an error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	providers, err := observability.InitOTel(ctx, cfg.OTel(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	api, err := backend.NewClient(backend.Config{
		BaseURL:   cfg.Backend.BaseURL,
		Timeout:   cfg.Backend.Timeout,
		RateLimit: cfg.Backend.RateLimit,
		Burst:     cfg.Backend.Burst,
	}, metrics)
	if err != nil {
		return err
	}

	stores, err := openStores(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}

	auditLogger, err := openAudit(cfg, logger)
	if err != nil {
		stores.Close()
		return err
	}

	nav, err := navigation.NewSource(cfg.Console.NavigationFile, logger)
	if err != nil {
		stores.Close()
		auditLogger.Close()
		return err
	}
	go func() {
		defer observability.RecoverPanic(logger, "navigation watcher")
		if err := nav.Watch(ctx); err != nil {
			logger.WithError(err).Warn("navigation hot reload disabled")
		}
	}()

	clients, err := middleware.NewClients(middleware.ClientsConfig{
		Durable:         stores.Durable,
		Scoped:          stores.Scoped,
		API:             api,
		Logger:          logger,
		Audit:           auditLogger,
		Metrics:         metrics,
		ValidateTimeout: cfg.Backend.ValidateTimeout,
		CacheSize:       cfg.Session.ClientCacheSize,
		SecureCookies:   cfg.Server.SecureCookies,
	})
	if err != nil {
		stores.Close()
		auditLogger.Close()
		return err
	}

	guard := middleware.NewGuard(clients,
		middleware.WithGuardLogger(logger),
		middleware.WithGuardAudit(auditLogger),
		middleware.WithGuardMetrics(metrics),
		middleware.WithLoadingWait(cfg.Console.LoadingWait),
	)

	loginLimit := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.Console.LoginRateLimit,
		WindowDuration:    cfg.Console.LoginRateWindow,
		BurstSize:         cfg.Console.LoginRateBurst,
	}
	var limiter middleware.Limiter
	if stores.Redis != nil {
		limiter = middleware.NewDistributedRateLimiter(stores.Redis, loginLimit, cfg.Session.RedisPrefix+":ratelimit")
	} else {
		local := middleware.NewRateLimiter(loginLimit)
		local.StartCleanup(ctx)
		limiter = local
	}

	server, err := console.NewServer(console.Options{
		Clients:      clients,
		Guard:        guard,
		Upstream:     api,
		Navigation:   nav,
		Settings:     settings.NewService(cfg.Console.SettingsCacheSize, cfg.Console.SettingsCacheTTL, settings.WithMetrics(metrics)),
		LoginLimiter: limiter,
		Audit:        auditLogger,
		Metrics:      metrics,
		Logger:       logger,
		StaticDir:    cfg.Console.StaticDir,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		LoadingWait:  cfg.Console.LoadingWait,
	})
	if err != nil {
		clients.Close()
		stores.Close()
		auditLogger.Close()
		return err
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(stores.DB, stores.Redis, api.Ping, version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, httpServer, healthServer)
	shutdown.RegisterShutdownFunc("background", func(context.Context) error {
		cancel()
		return nil
	})
	shutdown.RegisterShutdownFunc("sessions", func(ctx context.Context) error {
		clients.Close()
		return stores.Stop(ctx)
	})
	shutdown.RegisterShutdownFunc("audit", func(context.Context) error {
		return auditLogger.Close()
	})
	shutdown.RegisterShutdownFunc("otel", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	errCh := make(chan error, 2)
	for _, srv := range []*http.Server{httpServer, healthServer} {
		srv := srv
		go func() {
			logger.WithField("addr", srv.Addr).Info("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server %s: %w", srv.Addr, err)
			}
		}()
	}

	logger.WithFields(map[string]interface{}{
		"version":       version,
		"api":           cfg.Backend.BaseURL,
		"durable_store": cfg.Session.Durable,
		"scoped_store":  cfg.Session.Scoped,
	}).Info("venue console started")

	waitErr := make(chan error, 1)
	go func() { waitErr <- shutdown.WaitForShutdown() }()

	select {
	case err := <-errCh:
		sctx, scancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer scancel()
		_ = shutdown.Shutdown(sctx)
		return err
	case err := <-waitErr:
		return err
	}
}

// openAudit returns the audit trail: structured log lines always, plus the
// JSON-lines file when a directory is configured
func openAudit(cfg *config.Config, logger *observability.Logger) (audit.Logger, error) {
	structured := audit.NewStructuredLogger(logger.WithField("component", "audit"))
	if cfg.Audit.Dir == "" {
		return structured, nil
	}
	file, err := audit.NewFileLogger(audit.FileLoggerConfig{
		BasePath: cfg.Audit.Dir,
		Rotate:   cfg.Audit.Rotate,
		MaxSize:  cfg.Audit.MaxSize,
		MaxFiles: cfg.Audit.MaxFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return audit.NewMultiLogger(structured, file), nil
}
