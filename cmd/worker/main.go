package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zingo/backend/internal/config"
	"zingo/backend/internal/db"
	"zingo/backend/internal/integrations"
	"zingo/backend/internal/logging"
	"zingo/backend/internal/repository"
	"zingo/backend/internal/scrape"
	"zingo/backend/internal/scrape/ingest"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("log error: %v", err)
	}
	defer func() {
		_ = cleanup()
	}()
	logger = logger.With("service", "worker")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db error", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := repository.New(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("schema error", "error", err)
		os.Exit(1)
	}

	var s3Client *integrations.S3Client
	if cfg.S3.Bucket != "" {
		s3Client, err = integrations.NewS3(ctx, cfg.S3)
		if err != nil {
			logger.Error("s3 error", "error", err)
			os.Exit(1)
		}
	}

	ingestService := scrape.BuildService(cfg, repo, s3Client, logger)

	if !cfg.Scrape.Enabled {
		logger.Info("scrape_disabled")
		return
	}
	if len(cfg.Scrape.Pincodes) == 0 {
		logger.Warn("no_pincodes_configured")
		return
	}

	logger.Info("worker_started", "run_at", cfg.Scrape.RunAt, "pincodes", len(cfg.Scrape.Pincodes))
	for {
		wait := untilNextRun(time.Now().In(cfg.Scrape.Location()), cfg.Scrape.RunAt)
		logger.Info("next_run_scheduled", "in", wait.String())
		select {
		case <-ctx.Done():
			logger.Info("shutdown", "service", "worker")
			return
		case <-time.After(wait):
		}
		runAll(ctx, ingestService, cfg.Scrape.Pincodes, logger)
	}
}

// runAll syncs every configured pincode sequentially. One failed location
// does not stop the rest.
func runAll(ctx context.Context, svc *ingest.Service, pincodes []string, logger *slog.Logger) {
	for _, pincode := range pincodes {
		if ctx.Err() != nil {
			return
		}
		result, err := svc.Sync(ctx, pincode, "", 0)
		if err != nil {
			logger.Error("scheduled_sync_failed", "postal_code", pincode, "error", err)
			continue
		}
		logger.Info("scheduled_sync_done",
			"postal_code", pincode,
			"city", result.CityName,
			"venues", result.Venues,
			"events", result.Events,
			"showtimes", result.Showtimes)
	}
}

// untilNextRun computes the wait until the next HH:MM occurrence in now's
// location. A malformed RunAt falls back to 24h.
func untilNextRun(now time.Time, runAt string) time.Duration {
	at, err := time.Parse("15:04", runAt)
	if err != nil {
		return 24 * time.Hour
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
