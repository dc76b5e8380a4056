// zingo-scrape runs one scrape-and-ingest cycle from the command line and
// prints the result as JSON. Useful for backfills and provider debugging.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"zingo/backend/internal/config"
	"zingo/backend/internal/db"
	"zingo/backend/internal/logging"
	"zingo/backend/internal/repository"
	"zingo/backend/internal/scrape"

	"github.com/joho/godotenv"
)

func main() {
	pincodeFlag := flag.String("pincode", "", "postal code to sync")
	cityFlag := flag.String("city", "", "city name (overrides pincode lookup)")
	daysFlag := flag.Int("days", 0, "day window, 0 = configured default")
	timeoutFlag := flag.Duration("timeout", 10*time.Minute, "sync timeout")
	flag.Parse()

	if *pincodeFlag == "" && *cityFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: zingo-scrape -pincode 411001 [-city Pune] [-days 7]")
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger, cleanup, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log error: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = cleanup()
	}()
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "db error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := repository.New(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "schema error: %v\n", err)
		os.Exit(1)
	}

	svc := scrape.BuildService(cfg, repo, nil, logger)
	result, err := svc.Sync(ctx, *pincodeFlag, *cityFlag, *daysFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sync error: %v\n", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}
