package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/beacon/pkg/analytics"
	"github.com/platinummonkey/beacon/pkg/api"
	"github.com/platinummonkey/beacon/pkg/async"
	"github.com/platinummonkey/beacon/pkg/broadcast"
	"github.com/platinummonkey/beacon/pkg/config"
	"github.com/platinummonkey/beacon/pkg/middleware"
	"github.com/platinummonkey/beacon/pkg/observability"
)

// logHistory is how many log entries the stream ring retains for
// GET /api/v1/logs/recent.
const logHistory = 200

func main() {
	envFile := flag.String("env-file", "", "Path to a .env file to load before reading configuration")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("Failed to load env file %s: %v", *envFile, err)
		}
	} else {
		// Best effort; running without a .env file is the normal case.
		_ = godotenv.Load()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Beacon exited with error: %v", err)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The broadcaster and log stream log straight to stdout. Routing their
	// own output back through the log stream would fan out every fan-out.
	baseLogger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var registry *prometheus.Registry
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		metrics = observability.NewMetrics(registry)
	}

	broadcaster := broadcast.New(baseLogger, metrics)
	logStream := broadcast.NewLogStream(broadcaster, logHistory)
	logStream.Start(ctx)
	defer logStream.Stop()

	// Everything else logs through the tee so stream observers see the
	// service logs live.
	logger := observability.NewLogger(cfg.Observability.LogLevel, io.MultiWriter(os.Stdout, logStream))

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

	var sourceRules *analytics.SourceRules
	if cfg.Engine.SourceRulesFile != "" {
		sourceRules, err = analytics.LoadSourceRules(cfg.Engine.SourceRulesFile)
		if err != nil {
			logger.WithError(err).Warnf("Failed to load source rules from %s, using defaults", cfg.Engine.SourceRulesFile)
			sourceRules = nil
		}
	}

	// The shutdown manager owns teardown, so the engine's own signal hook
	// stays off.
	engine, err := analytics.NewEngine(analytics.Options{
		DataDir:         cfg.Engine.DataDir,
		Development:     cfg.Engine.Development,
		CleanupInterval: cfg.Engine.CleanupInterval,
		PersistInterval: cfg.Engine.PersistInterval,
		SiteDomain:      cfg.Engine.SiteDomain,
		SourceRules:     sourceRules,
		Logger:          logger,
		Metrics:         metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create analytics engine: %w", err)
	}

	alerter := analytics.NewAlerter(analytics.Thresholds{
		MaxErrorRate:  cfg.Alerts.MaxErrorRate,
		MaxErrorRatio: cfg.Alerts.MaxErrorRatio,
		MaxBounceRate: cfg.Alerts.MaxBounceRate,
	}, logger)

	var rateLimiter *middleware.RateLimitMiddleware
	if cfg.Server.RateLimitEnabled {
		rateLimiter = middleware.NewRateLimitMiddleware(&middleware.RateLimitConfig{
			RequestsPerWindow: cfg.Server.RateLimitPerMinute,
			WindowDuration:    time.Minute,
			BurstSize:         cfg.Server.RateLimitBurst,
		}, metrics)
		rateLimiter.StartCleanup(ctx)
	}

	apiServer := api.NewServer(api.Options{
		Engine:        engine,
		Broadcaster:   broadcaster,
		LogStream:     logStream,
		Logger:        logger,
		Metrics:       metrics,
		CORSOrigins:   cfg.Server.CORSOrigins,
		StreamBuffer:  cfg.Stream.Buffer,
		RateLimiter:   rateLimiter,
		TraceRequests: cfg.Observability.OTelEnabled,
	})

	httpServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler: apiServer,
		// WriteTimeout stays at the configured value; 0 keeps event stream
		// connections open indefinitely.
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthChecker := observability.NewHealthChecker(cfg.Observability.OTelServiceVersion)
	healthChecker.AddCheck("storage", observability.DirWritableCheck(cfg.Engine.DataDir))
	healthChecker.AddCheck("engine", engineCheck(engine))

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, healthChecker)
	if registry != nil {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	scheduler := startBroadcastSchedules(cfg, engine, broadcaster, alerter, logger)

	if cfg.Engine.SourceRulesFile != "" {
		async.SafeGoNoError(ctx, logger, 0, "source rules watcher", func(ctx context.Context) {
			watchSourceRules(ctx, cfg.Engine.SourceRulesFile, engine, logger)
		})
	}

	sm := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, httpServer, healthServer)
	sm.RegisterShutdownFunc("broadcast scheduler", func(ctx context.Context) error {
		select {
		case <-scheduler.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	sm.RegisterShutdownFunc("analytics engine", engine.Close)
	if providers != nil {
		sm.RegisterShutdownFunc("opentelemetry", func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(map[string]interface{}{
			"addr":        httpServer.Addr,
			"development": cfg.Engine.Development,
		}).Info("Beacon API server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sm.WaitForShutdown(gctx)
	})

	return g.Wait()
}

// engineCheck reports the engine's aggregate counters as a health
// dependency. The engine has no failure mode of its own; the check exists
// so readiness output shows what the aggregator currently holds.
func engineCheck(engine *analytics.Engine) observability.CheckFunc {
	return func(ctx context.Context) observability.DependencyStatus {
		snap := engine.Snapshot()
		return observability.DependencyStatus{
			Status:    observability.StatusHealthy,
			Message:   fmt.Sprintf("%d sessions, %d page views", snap.TotalSessions, snap.TotalPageViews),
			Timestamp: time.Now(),
		}
	}
}

// startBroadcastSchedules runs the recurring stream pushes: metrics
// snapshots, heartbeats, system status, and alert evaluation. Snapshot
// computation is skipped while nobody is connected; alert evaluation runs
// regardless so threshold breaches land in the logs.
func startBroadcastSchedules(cfg *config.Config, engine *analytics.Engine, broadcaster *broadcast.Broadcaster, alerter *analytics.Alerter, logger *observability.Logger) *cron.Cron {
	c := cron.New()

	c.Schedule(cron.Every(cfg.Stream.MetricsInterval), cron.FuncJob(func() {
		defer observability.RecoverPanic(logger, "metrics broadcast")
		if broadcaster.ClientCount() == 0 {
			return
		}
		broadcaster.BroadcastMetrics(engine.Snapshot())
	}))

	c.Schedule(cron.Every(cfg.Stream.HeartbeatInterval), cron.FuncJob(func() {
		defer observability.RecoverPanic(logger, "heartbeat broadcast")
		if broadcaster.ClientCount() == 0 {
			return
		}
		broadcaster.Broadcast(broadcast.NewEvent(broadcast.EventHeartbeat, nil))
	}))

	c.Schedule(cron.Every(cfg.Stream.StatusInterval), cron.FuncJob(func() {
		defer observability.RecoverPanic(logger, "status broadcast")
		if broadcaster.ClientCount() == 0 {
			return
		}
		snap := engine.Snapshot()
		broadcaster.BroadcastSystemStatus(map[string]interface{}{
			"status":         "healthy",
			"uptimeSeconds":  snap.UptimeSeconds,
			"activeSessions": snap.ActiveSessions,
			"streamClients":  broadcaster.ClientCount(),
			"goroutines":     runtime.NumGoroutine(),
		})
	}))

	c.Schedule(cron.Every(cfg.Stream.AlertInterval), cron.FuncJob(func() {
		defer observability.RecoverPanic(logger, "alert evaluation")
		for _, alert := range alerter.Evaluate(engine.Snapshot()) {
			broadcaster.BroadcastAlert(alert)
		}
	}))

	c.Start()
	return c
}

// watchSourceRules reloads the referrer rules file whenever it changes.
// Editors typically replace the file instead of writing in place, so the
// watch covers the directory and filters events down to the file itself.
func watchSourceRules(ctx context.Context, path string, engine *analytics.Engine, logger *observability.Logger) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.WithError(err).Error("Failed to create source rules watcher")
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		logger.WithError(err).Errorf("Failed to watch %s", dir)
		return
	}
	logger.Infof("Watching %s for source rule changes", path)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			rules, err := analytics.LoadSourceRules(path)
			if err != nil {
				logger.WithError(err).Warn("Ignoring invalid source rules update")
				continue
			}
			engine.SetSourceRules(rules)
			logger.Info("Source rules reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.WithError(err).Error("Source rules watcher error")
		}
	}
}
