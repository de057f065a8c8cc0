/*
scheduler.go - Automated price-list update scheduler

PURPOSE:
  Periodically checks whether the last import is older than the
  configured frequency and, when it is, re-runs the CSV ingestion
  against the configured feed path.

DESIGN:
  - Background goroutine with a configurable check interval
  - The pipeline serializes its own runs, so a tick can never race a
    manual update into two simultaneous table swaps
  - An unchanged feed is a no-op inside the pipeline; the scheduler
    does not track state of its own

USAGE:
  scheduler := NewUpdateScheduler(store, pipeline, cfg, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/emtek/nce-pricing/config"
	"github.com/emtek/nce-pricing/ingest"
	"github.com/emtek/nce-pricing/store/sqlite"
)

// UpdateScheduler re-imports the price list on a schedule.
type UpdateScheduler struct {
	Store         *sqlite.Store
	Pipeline      *ingest.Pipeline
	Config        *config.Config
	CheckInterval time.Duration
	Log           zerolog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewUpdateScheduler creates a scheduler checking hourly.
func NewUpdateScheduler(store *sqlite.Store, pipeline *ingest.Pipeline, cfg *config.Config, log zerolog.Logger) *UpdateScheduler {
	return &UpdateScheduler{
		Store:         store,
		Pipeline:      pipeline,
		Config:        cfg,
		CheckInterval: 1 * time.Hour,
		Log:           log.With().Str("component", "scheduler").Logger(),
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (s *UpdateScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)
	go s.run()

	s.Log.Info().Dur("interval", s.CheckInterval).Msg("scheduler started")
}

// Stop stops the scheduler and waits for an in-flight check.
func (s *UpdateScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		s.Log.Info().Msg("scheduler stopped")
	}
}

func (s *UpdateScheduler) run() {
	defer s.wg.Done()

	// Check once on start, then on every tick.
	s.checkAndUpdate()

	for {
		select {
		case <-s.ticker.C:
			s.checkAndUpdate()
		case <-s.stop:
			return
		}
	}
}

// checkAndUpdate runs an import when auto-update is on, a feed path is
// configured, and the last import is stale.
func (s *UpdateScheduler) checkAndUpdate() {
	if !s.Config.AutoUpdateEnabled() {
		return
	}
	path := s.Config.CSVPath()
	if path == "" {
		return
	}

	ctx := context.Background()
	if !s.updateDue(ctx) {
		return
	}

	s.Log.Info().Str("path", path).Msg("scheduled update starting")
	result, err := s.Pipeline.Run(ctx, path, false)
	if err != nil {
		// The next tick retries; the pipeline itself never does.
		s.Log.Error().Err(err).Msg("scheduled update failed")
		return
	}
	if result.Skipped {
		s.Log.Info().Msg("scheduled update skipped, feed unchanged")
		return
	}
	s.Log.Info().Int("imported", result.Imported).Msg("scheduled update complete")
}

func (s *UpdateScheduler) updateDue(ctx context.Context) bool {
	last, err := s.Store.GetMetadata(ctx, sqlite.MetaLastImport)
	if err != nil {
		s.Log.Error().Err(err).Msg("failed to read last import time")
		return false
	}
	if last == "" {
		return true
	}

	lastImport, err := time.Parse(time.RFC3339, last)
	if err != nil {
		return true
	}

	maxAge := time.Duration(s.Config.UpdateFrequencyDays()) * 24 * time.Hour
	return time.Since(lastImport) >= maxAge
}
