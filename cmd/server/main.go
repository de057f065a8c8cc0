/*
main.go - Web server entry point

STARTUP SEQUENCE:
  1. Load .env (optional) and parse flags
  2. Load config (encrypted secrets live under the data dir)
  3. Initialize SQLite store and ingestion pipeline
  4. Wire handler, auth policy, router
  5. Start the auto-update scheduler
  6. Serve with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 5000)
  -db      SQLite database path (default: data/nce_pricing.db)
           Use ":memory:" for an in-memory database
  -data    Data directory for config and encryption key (default: data)
  -csv     Initial CSV to import on first run when the store is empty

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections, drain for 30s
  3. Close the database
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/emtek/nce-pricing/api"
	"github.com/emtek/nce-pricing/config"
	"github.com/emtek/nce-pricing/ingest"
	"github.com/emtek/nce-pricing/store/sqlite"
)

func main() {
	godotenv.Load()

	port := flag.Int("port", 5000, "HTTP server port")
	dbPath := flag.String("db", "data/nce_pricing.db", "SQLite database path")
	dataDir := flag.String("data", "data", "data directory for config and key")
	initialCSV := flag.String("csv", "", "CSV to import when the store is empty")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*dataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	pipeline := ingest.NewPipeline(store, logger)

	// First run: seed the store from a provided CSV.
	if *initialCSV != "" {
		if count, err := store.Count(context.Background()); err == nil && count == 0 {
			logger.Info().Str("path", *initialCSV).Msg("store empty, importing initial CSV")
			if _, err := pipeline.Run(context.Background(), *initialCSV, false); err != nil {
				logger.Warn().Err(err).Msg("initial CSV import failed")
			}
		}
	}

	handler := api.NewHandler(store, pipeline, logger)
	auth := &api.BasicAuthPolicy{
		Username: cfg.UIUsername,
		Password: cfg.UIPassword,
		Realm:    "MSP Pricing Tool",
	}
	router := api.NewRouter(handler, auth)

	scheduler := api.NewUpdateScheduler(store, pipeline, cfg, logger)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", *port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("server stopped")
}
