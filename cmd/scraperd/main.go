// Package main is the entry point for scraperd, the scrapedesk backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scrapedesk/internal/auth"
	"scrapedesk/internal/config"
	"scrapedesk/internal/controller"
	"scrapedesk/internal/controller/handlers"
	"scrapedesk/internal/email"
	"scrapedesk/internal/export"
	"scrapedesk/internal/logger"
	"scrapedesk/internal/observability"
	"scrapedesk/internal/scheduler"
	"scrapedesk/internal/scraper"
	"scrapedesk/internal/store/postgres"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	configPath := flag.String("config", "", "Path to a YAML config file")
	genToken := flag.Bool("gen-token", false, "Print a new random api_token and exit")
	rollbackFlag := flag.Bool("rollback", false, "Revert all database migrations and exit")
	flag.Parse()

	if *genToken {
		fmt.Println(auth.GenerateToken())
		return
	}

	// Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewWithWriter(os.Stdout, logger.ParseLevel(cfg.LogLevel))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Postgres (the "Store")
	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal(log, "Failed to connect to DB", err)
	}
	defer store.Close()

	if *rollbackFlag {
		log.Warn("Reverting database migrations")
		if err := postgres.Rollback(store.DB()); err != nil {
			fatal(log, "Rollback failed", err)
		}
		log.Info("Database migrations reverted")
		return
	}

	// Run migrations if requested
	if *migrateFlag {
		log.Info("Running database migrations")
		version, err := postgres.Migrate(store.DB())
		if err != nil {
			fatal(log, "Migration failed", err)
		}
		log.Info("Migrations completed successfully", "version", version)
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: "scraperd",
		Endpoint:    cfg.OTELEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		fatal(log, "Failed to init tracing", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Error("Failed to shutdown tracer", "error", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		fatal(log, "Failed to init metrics", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Error("Failed to shutdown metrics", "error", err)
		}
	}()
	instruments, err := observability.NewInstruments()
	if err != nil {
		fatal(log, "Failed to create instruments", err)
	}

	// Queried only when /metrics is scraped.
	meter := otel.Meter(observability.MeterName)
	_, err = meter.Int64ObservableGauge("scrapedesk.jobs.active",
		metric.WithDescription("Current number of active jobs"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			stats, err := store.GetJobStats(ctx)
			if err != nil {
				log.Warn("Failed to count active jobs", "error", err)
				return nil // Don't crash metrics scrape on DB error
			}
			obs.Observe(stats.ActiveJobs)
			return nil
		}),
	)
	if err != nil {
		log.Warn("Failed to register active jobs metric", "error", err)
	}

	sc := scraper.New(
		scraper.WithTimeout(cfg.ScrapeTimeout),
		scraper.WithUserAgent(cfg.UserAgent),
		scraper.WithLogger(log),
	)
	exporter, err := export.New(cfg.ExportDir, export.WithLogger(log))
	if err != nil {
		fatal(log, "Failed to prepare export directory", err)
	}
	sched := scheduler.New(store, sc, scheduler.Config{ResyncInterval: cfg.ResyncInterval},
		scheduler.WithInstruments(instruments),
		scheduler.WithLogger(log),
	)

	h := handlers.New(handlers.Deps{
		Store:     store,
		Scraper:   sc,
		Scheduler: sched,
		Exporter:  exporter,
		Mailer:    email.New(email.WithLogger(log)),
		Metrics:   instruments,
		Logger:    log,
	})

	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("Scheduler stopped", "error", err)
		}
	}()

	// Start Server
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := controller.New(addr, h, cfg, metricsHandler)

	log.Info("scraperd starting", "addr", addr, "export_dir", exporter.Dir(), "auth", cfg.APIToken != "")
	if err := srv.Run(ctx); err != nil {
		log.Error("Server stopped", "error", err)
	}

	// Graceful Shutdown
	log.Info("Shutting down scraperd")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	log.Info("Server exited properly")
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
