/*
pipeline.go - The ingestion state machine

STATES:
  Idle -> Validating -> HashChecking -> Filtering -> Replacing -> Committing -> Idle
  Any state can move to Failed instead.

  Validating:   file exists, parses, carries the required columns
  HashChecking: unchanged digest and not forced => no-op success,
                metadata untouched
  Filtering:    keep only rows active now; empty => NoActivePrices
  Replacing:    delete + bulk insert, one transaction
  Committing:   last_csv_hash, last_import, import_source written in the
                same transaction as the swap

FAILURE SEMANTICS:
  Any error aborts the transaction; the store is never left delete-only.
  No retries here - the caller (HTTP trigger, scheduler, CLI) decides.

CONCURRENCY:
  Run is serialized with a mutex so a scheduled update can never race a
  manual one into two simultaneous table swaps.
*/
package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/emtek/nce-pricing/pricing"
	"github.com/emtek/nce-pricing/store/sqlite"
)

// State names the pipeline's position; Result reports where it ended.
type State string

const (
	StateIdle         State = "idle"
	StateValidating   State = "validating"
	StateHashChecking State = "hash_checking"
	StateFiltering    State = "filtering"
	StateReplacing    State = "replacing"
	StateCommitting   State = "committing"
	StateFailed       State = "failed"
)

// Result describes a finished pipeline run.
type Result struct {
	State     State
	Skipped   bool // digest unchanged, nothing written
	TotalRows int  // rows in the source file
	Imported  int  // rows in the active set that replaced the table
	Digest    string
}

// Pipeline ingests price-list CSVs into the store.
type Pipeline struct {
	store *sqlite.Store
	log   zerolog.Logger

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time

	runMu chan struct{}
}

// NewPipeline creates a pipeline writing to store.
func NewPipeline(store *sqlite.Store, log zerolog.Logger) *Pipeline {
	p := &Pipeline{
		store: store,
		log:   log.With().Str("component", "ingest").Logger(),
		now:   time.Now,
		runMu: make(chan struct{}, 1),
	}
	p.runMu <- struct{}{}
	return p
}

// SetClock overrides the pipeline's notion of "now". Intended for tests.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// Run executes one ingestion of the CSV at path. force bypasses the
// digest check. Returns the failing state inside Result on error.
func (p *Pipeline) Run(ctx context.Context, path string, force bool) (Result, error) {
	select {
	case <-p.runMu:
		defer func() { p.runMu <- struct{}{} }()
	case <-ctx.Done():
		return Result{State: StateFailed}, ctx.Err()
	}

	res := Result{State: StateValidating}
	p.log.Info().Str("path", path).Bool("force", force).Msg("starting CSV import")

	records, err := ParseFile(path)
	if err != nil {
		p.log.Error().Err(err).Str("path", path).Msg("source validation failed")
		return Result{State: StateFailed}, err
	}
	res.TotalRows = len(records)

	res.State = StateHashChecking
	digest, err := FileDigest(path)
	if err != nil {
		return Result{State: StateFailed}, err
	}
	res.Digest = digest

	lastDigest, err := p.store.GetMetadata(ctx, sqlite.MetaLastCSVHash)
	if err != nil {
		return Result{State: StateFailed}, err
	}
	if !force && digest == lastDigest {
		p.log.Info().Msg("CSV unchanged, skipping import")
		res.State = StateIdle
		res.Skipped = true
		return res, nil
	}

	res.State = StateFiltering
	now := p.now()
	active := FilterActive(records, now)
	p.log.Info().
		Int("total", len(records)).
		Int("active", len(active)).
		Msg("filtered active prices")
	if len(active) == 0 {
		p.log.Warn().Str("path", path).Msg("no active prices found in CSV")
		return Result{State: StateFailed, TotalRows: res.TotalRows},
			pricing.ErrNoActivePrices
	}

	// Replacing and Committing happen inside one store transaction.
	res.State = StateReplacing
	meta := map[string]string{
		sqlite.MetaLastCSVHash:  digest,
		sqlite.MetaLastImport:   now.Format(time.RFC3339),
		sqlite.MetaImportSource: "csv",
	}
	res.State = StateCommitting
	if err := p.store.ReplaceAll(ctx, active, meta); err != nil {
		p.log.Error().Err(err).Msg("replace transaction aborted")
		return Result{State: StateFailed, TotalRows: res.TotalRows}, err
	}

	res.State = StateIdle
	res.Imported = len(active)
	p.log.Info().Int("imported", res.Imported).Msg("CSV import complete")
	return res, nil
}
