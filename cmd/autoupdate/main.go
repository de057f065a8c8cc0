/*
main.go - One-shot update for external schedulers

Runs a single price-list update and exits 0 on success, 1 on failure.
Cron (or Task Scheduler) owns the retry policy; this binary never
retries on its own.

COMMAND-LINE FLAGS:
  -db      SQLite database path (default: data/nce_pricing.db)
  -data    Data directory for config and encryption key (default: data)
  -csv     CSV path; defaults to the configured feed path
  -force   Import even when the file digest is unchanged
  -source  "csv" (default) or "api"; the api path only verifies
           connectivity and never updates the store
*/
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/emtek/nce-pricing/config"
	"github.com/emtek/nce-pricing/ingest"
	"github.com/emtek/nce-pricing/store/sqlite"
)

const partnerCenterAPI = "https://api.partnercenter.microsoft.com/v1"

func main() {
	dbPath := flag.String("db", "data/nce_pricing.db", "SQLite database path")
	dataDir := flag.String("data", "data", "data directory for config and key")
	csvPath := flag.String("csv", "", "CSV path (defaults to configured feed)")
	force := flag.Bool("force", false, "import even when unchanged")
	source := flag.String("source", "csv", "update source: csv or api")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*dataDir)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}

	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open database")
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	switch *source {
	case "csv":
		path := *csvPath
		if path == "" {
			path = cfg.CSVPath()
		}
		if path == "" {
			logger.Error().Msg("no CSV path given or configured")
			os.Exit(1)
		}

		pipeline := ingest.NewPipeline(store, logger)
		result, err := pipeline.Run(ctx, path, *force)
		if err != nil {
			logger.Error().Err(err).Msg("update failed")
			os.Exit(1)
		}
		if result.Skipped {
			logger.Info().Msg("feed unchanged, nothing to do")
		} else {
			logger.Info().Int("imported", result.Imported).Msg("update complete")
		}

	case "api":
		tokens := ingest.StaticTokenSource(cfg.GetSecure(config.KeyAccessToken))
		client := ingest.NewRateCardClient(partnerCenterAPI, tokens, logger)
		if err := client.Fetch(ctx); err != nil {
			logger.Error().Err(err).Msg("rate card fetch failed")
			os.Exit(1)
		}
		logger.Info().Msg("rate card reachable; store not modified")

	default:
		logger.Error().Str("source", *source).Msg("unknown source")
		os.Exit(1)
	}
}
