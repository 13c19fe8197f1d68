// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/telehost/telehost/internal/bot"
	"github.com/telehost/telehost/internal/buildinfo"
	"github.com/telehost/telehost/internal/config"
	"github.com/telehost/telehost/internal/logger"
	"github.com/telehost/telehost/internal/metrics"
	"github.com/telehost/telehost/internal/modules/echo"
	"github.com/telehost/telehost/internal/sentry"
	"github.com/telehost/telehost/internal/shutdown"
	"github.com/telehost/telehost/internal/storage"
	"github.com/telehost/telehost/internal/telegram"
	"github.com/telehost/telehost/internal/webhook"
)

// echoStatsInterval is how often the echo bot's stats job flushes.
const echoStatsInterval = 5 * time.Minute

// reportPurgeInterval is how often expired report rows are purged.
const reportPurgeInterval = time.Hour

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg         *config.Config
	logger      *logger.Logger
	store       *storage.Store
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
	coordinator *shutdown.Coordinator
	dispatcher  *bot.Dispatcher
	webhookApp  *webhook.App
	echoModule  *echo.Module
	server      *http.Server
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(_ context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", "telehost")
	instanceID := cfg.InstanceID
	if instanceID == "" {
		if host, err := os.Hostname(); err == nil {
			instanceID = host
		}
	}
	if instanceID != "" {
		log = log.WithField("instance_id", instanceID)
	}

	log.Info("Initializing application...")
	if buildinfo.Version != "" || buildinfo.Commit != "" {
		log.WithField("version", buildinfo.Version).
			WithField("commit", buildinfo.Commit).
			WithField("build_date", buildinfo.BuildDate).
			Info("Build info")
	}
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	release := cfg.SentryRelease
	if release == "" {
		release = buildinfo.Release()
	}
	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     release,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	if sentry.IsEnabled() {
		log.WithField("environment", cfg.SentryEnvironment).Info("Sentry error reporting enabled")
	}

	store, err := storage.New(cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("report store: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).
		WithField("retention", cfg.ReportRetention).
		Info("Report store opened")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	coordinator := shutdown.NewCoordinator(shutdown.Config{
		PollInterval: config.ShutdownPollInterval,
		Logger:       log,
	})
	promauto.With(registry).NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "telehost_shutdown_conditions",
			Help: "Number of currently registered shutdown conditions",
		},
		func() float64 { return float64(coordinator.ConditionCount()) },
	)

	sink := metrics.MultiSink{m, storage.NewReportSink(store, log)}
	dispatcher := bot.NewDispatcher(sink, log)

	webhookApp := webhook.NewApp(webhook.Config{
		BaseURL:     cfg.BaseURL,
		Dispatcher:  dispatcher,
		Coordinator: coordinator,
		Metrics:     m,
		Logger:      log,
	})

	api := telegram.NewClient(cfg.BotToken, telegram.Options{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.APITimeout,
		MaxRetries: cfg.APIMaxRetries,
		RetryDelay: config.APIRetryInitial,
		Metrics:    m,
	})
	echoModule := echo.New(cfg.BotName, api, log)

	app := &Application{
		cfg:         cfg,
		logger:      log,
		store:       store,
		metrics:     m,
		registry:    registry,
		coordinator: coordinator,
		dispatcher:  dispatcher,
		webhookApp:  webhookApp,
		echoModule:  echoModule,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(securityHeadersMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(log))
	router.Use(sentryMiddleware())

	router.GET("/", app.redirectToRepo)
	router.GET("/livez", app.livenessCheck)
	router.HEAD("/livez", app.livenessCheck)
	router.GET("/readyz", app.readinessCheck)
	router.HEAD("/readyz", app.readinessCheck)
	router.GET("/metrics",
		metricsAuthMiddleware(cfg.MetricsPassword != "", cfg.MetricsUsername, cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	webhookApp.Mount(router)

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

func (a *Application) redirectToRepo(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, "https://github.com/telehost/telehost")
}

func (a *Application) livenessCheck(c *gin.Context) {
	response := gin.H{
		"status": "alive",
	}
	if buildinfo.Version != "" {
		response["version"] = buildinfo.Version
	}
	c.JSON(http.StatusOK, response)
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheckTimeout)
	defer cancel()

	if a.coordinator.IsShuttingDown() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "shutting down",
		})
		return
	}

	if err := a.store.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: report store unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "report store unavailable",
		})
		return
	}

	response := gin.H{
		"status":      "ready",
		"hosted_bots": a.webhookApp.HostedBots(),
	}
	if counts, err := a.store.OutcomeCounts(ctx); err == nil {
		response["reports"] = counts
	} else {
		a.logger.WithError(err).Warn("Failed to read report counts for readiness")
	}
	c.JSON(http.StatusOK, response)
}

// Run hosts the configured bot, starts the HTTP server and blocks until
// the shutdown coordinator declares termination: a SIGINT/SIGTERM flips
// it into the shutting-down state, the webhook endpoint refuses new
// admission, and the process exits once every in-flight dispatch and
// guarded job scope has cleared.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner, err := a.echoModule.NewRunner(a.coordinator, echoStatsInterval)
	if err != nil {
		return fmt.Errorf("build bot runner: %w", err)
	}
	registerCtx, registerCancel := context.WithTimeout(ctx, a.cfg.APITimeout)
	route, err := a.webhookApp.AddRunner(registerCtx, runner)
	registerCancel()
	if err != nil {
		return fmt.Errorf("host bot: %w", err)
	}
	a.logger.WithField("route", route).Info("Bot route assigned")

	go a.reportRetentionLoop(ctx)
	a.startHTTPServer()

	err = a.coordinator.Run(ctx)
	if errors.Is(err, shutdown.ErrForced) {
		a.logger.Warn("Shutdown forced with work still in flight")
		err = nil
	}
	if err != nil {
		return fmt.Errorf("shutdown coordinator: %w", err)
	}

	cancel()
	return a.shutdownResources()
}

// startHTTPServer starts the HTTP server in a goroutine.
func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
			sentry.CaptureException(err)
			// A dead listener means no more inbound work; let the
			// coordinator wind the process down.
			a.coordinator.Shutdown()
		}
	}()
}

// shutdownResources tears down in dependency order: stop the listener,
// unhost bots (cancelling their jobs), then close the store and flush
// error reporting.
func (a *Application) shutdownResources() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Unhosting bots...")
	a.webhookApp.Close(shutdownCtx)

	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "report_store").Error("Component close error")
	}

	sentry.Flush(2 * time.Second)
	a.logger.Info("Shutdown complete")
	return nil
}

// reportRetentionLoop purges expired report rows on a fixed interval.
// Each purge runs under a shutdown guard so a termination signal waits
// for an in-progress delete, while the idle wait between purges never
// blocks shutdown.
func (a *Application) reportRetentionLoop(ctx context.Context) {
	log := a.logger.WithModule("maintenance")
	log.Debug("Report retention job started")
	defer log.Debug("Report retention job stopped")

	guard := shutdown.NewGuard(a.coordinator, "report retention purge")
	defer guard.Close()

	ticker := time.NewTicker(reportPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			guard.Do(func() {
				a.purgeExpiredReports(ctx, log)
			})
		}
	}
}

func (a *Application) purgeExpiredReports(ctx context.Context, log *logger.Logger) {
	purgeCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-a.cfg.ReportRetention)
	deleted, err := a.store.PurgeReportsBefore(purgeCtx, cutoff)
	if err != nil {
		log.WithError(err).Error("Failed to purge expired reports")
		sentry.CaptureException(err)
		return
	}
	if deleted > 0 {
		log.WithField("deleted", deleted).
			WithField("cutoff", cutoff.Format(time.RFC3339)).
			Info("Purged expired reports")
	}
}
