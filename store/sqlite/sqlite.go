/*
Package sqlite provides the SQLite-backed price store.

PURPOSE:
  Sole owner of durable state: the prices table (one row per active
  SKU/term/billing/segment/date combination) and the metadata table
  (import bookkeeping, last-write-wins per key).

KEY TABLES:
  prices:   Replaced wholesale on every import. UNIQUE over the identity
            key (ProductId, SkuId, TermDuration, BillingPlan, Segment,
            EffectiveStartDate).
  metadata: key/value rows - last_import, last_csv_hash, import_source.

REPLACE SEMANTICS:
  ReplaceAll runs DELETE + bulk INSERT + metadata writes inside one
  transaction so concurrent readers never observe an empty or partial
  table. There is no row-level update path.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Connections are short-lived from
  the caller's perspective; the single *sql.DB handle is shared.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers are not
  blocked during the replace transaction.

USAGE:
  store, err := sqlite.New("./data/nce_pricing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/emtek/nce-pricing/pricing"
)

// dateLayout is how effective dates are stored; matches the feed's own
// second precision and keeps lexicographic order equal to time order.
const dateLayout = "2006-01-02 15:04:05"

// Metadata keys written by the ingestion pipeline.
const (
	MetaLastImport   = "last_import"
	MetaLastCSVHash  = "last_csv_hash"
	MetaImportSource = "import_source"
)

// Store implements price and metadata persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to :memory: would get its own database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS prices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ChangeIndicator TEXT,
		ProductTitle TEXT,
		ProductId TEXT,
		SkuId TEXT,
		SkuTitle TEXT,
		Publisher TEXT,
		SkuDescription TEXT,
		UnitOfMeasure TEXT,
		TermDuration TEXT,
		BillingPlan TEXT,
		Market TEXT,
		Currency TEXT,
		UnitPrice TEXT NOT NULL,
		PricingTierRangeMin TEXT,
		PricingTierRangeMax TEXT,
		EffectiveStartDate TEXT NOT NULL,
		EffectiveEndDate TEXT NOT NULL,
		Tags TEXT,
		ERPPrice TEXT NOT NULL,
		Segment TEXT,
		PreviousValues TEXT,
		imported_at TEXT NOT NULL,
		UNIQUE(ProductId, SkuId, TermDuration, BillingPlan, Segment, EffectiveStartDate)
	);

	CREATE INDEX IF NOT EXISTS idx_prices_product_title ON prices(ProductTitle);
	CREATE INDEX IF NOT EXISTS idx_prices_segment ON prices(Segment);
	CREATE INDEX IF NOT EXISTS idx_prices_term ON prices(TermDuration);
	CREATE INDEX IF NOT EXISTS idx_prices_billing ON prices(BillingPlan);
	CREATE INDEX IF NOT EXISTS idx_prices_effective
		ON prices(EffectiveStartDate, EffectiveEndDate);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REPLACE (the one write path for prices)
// =============================================================================

// ReplaceAll swaps the full contents of the prices table for the given
// records and writes the metadata keys, all in one transaction. On any
// failure the previous contents remain visible.
func (s *Store) ReplaceAll(ctx context.Context, records []pricing.PriceRecord, meta map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", pricing.ErrStoreWriteFailure, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM prices"); err != nil {
		return fmt.Errorf("%w: clear prices: %v", pricing.ErrStoreWriteFailure, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO prices
		(ChangeIndicator, ProductTitle, ProductId, SkuId, SkuTitle, Publisher,
		 SkuDescription, UnitOfMeasure, TermDuration, BillingPlan, Market,
		 Currency, UnitPrice, PricingTierRangeMin, PricingTierRangeMax,
		 EffectiveStartDate, EffectiveEndDate, Tags, ERPPrice, Segment,
		 PreviousValues, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %v", pricing.ErrStoreWriteFailure, err)
	}
	defer stmt.Close()

	importedAt := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.ChangeIndicator, r.ProductTitle, r.ProductID, r.SkuID, r.SkuTitle,
			r.Publisher, r.SkuDescription, r.UnitOfMeasure, r.TermDuration,
			r.BillingPlan, r.Market, r.Currency, r.UnitPrice.String(),
			r.PricingTierRangeMin, r.PricingTierRangeMax,
			r.EffectiveStartDate.Format(dateLayout),
			r.EffectiveEndDate.Format(dateLayout),
			r.Tags, r.ERPPrice.String(), r.Segment, r.PreviousValues,
			importedAt,
		)
		if err != nil {
			return fmt.Errorf("%w: insert %s/%s: %v",
				pricing.ErrStoreWriteFailure, r.ProductID, r.SkuID, err)
		}
	}

	for key, value := range meta {
		if err := setMetadataTx(ctx, tx, key, value); err != nil {
			return fmt.Errorf("%w: metadata %s: %v", pricing.ErrStoreWriteFailure, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", pricing.ErrStoreWriteFailure, err)
	}
	return nil
}

// =============================================================================
// METADATA
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setMetadataTx(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO metadata (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339))
	return err
}

// SetMetadata writes one metadata key, last-write-wins.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return setMetadataTx(ctx, s.db, key, value)
}

// GetMetadata returns the value for a key, or "" when the key has never
// been written.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM metadata WHERE key = ?", key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// QueryFilter narrows a price query. Zero values mean "any".
type QueryFilter struct {
	Product string
	Segment string
	Term    string
	Billing string
	Search  string
}

// Query returns records matching all provided filters, ordered by
// ProductTitle then SkuTitle, with the identity columns as tie-breaker
// so equal keys come back in a stable order.
func (s *Store) Query(ctx context.Context, f QueryFilter) ([]pricing.PriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if f.Product != "" {
		where = append(where, "ProductTitle = ?")
		args = append(args, f.Product)
	}
	if f.Segment != "" {
		where = append(where, "Segment = ?")
		args = append(args, f.Segment)
	}
	if f.Term != "" {
		where = append(where, "TermDuration = ?")
		args = append(args, f.Term)
	}
	if f.Billing != "" {
		where = append(where, "BillingPlan = ?")
		args = append(args, f.Billing)
	}
	if f.Search != "" {
		// LIKE is case-insensitive for ASCII in SQLite.
		where = append(where, "(ProductTitle LIKE ? OR SkuTitle LIKE ? OR SkuDescription LIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query := "SELECT " + priceColumns + " FROM prices"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY ProductTitle, SkuTitle,
		ProductId, SkuId, TermDuration, BillingPlan, Segment, EffectiveStartDate`

	return s.queryPrices(ctx, query, args...)
}

// GetPrice returns a record by row id, or nil when no row matches.
func (s *Store) GetPrice(ctx context.Context, id int64) (*pricing.PriceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.queryPrices(ctx,
		"SELECT "+priceColumns+" FROM prices WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// FilterValues holds the distinct values available for each dropdown.
type FilterValues struct {
	Products []string
	Segments []string
	Terms    []string
	Billing  []string
}

// GetFilterValues returns the distinct non-empty values of each
// filterable column.
func (s *Store) GetFilterValues(ctx context.Context) (FilterValues, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fv FilterValues
	for _, col := range []struct {
		name string
		dst  *[]string
	}{
		{"ProductTitle", &fv.Products},
		{"Segment", &fv.Segments},
		{"TermDuration", &fv.Terms},
		{"BillingPlan", &fv.Billing},
	} {
		values, err := s.distinct(ctx, col.name)
		if err != nil {
			return FilterValues{}, err
		}
		*col.dst = values
	}
	return fv, nil
}

func (s *Store) distinct(ctx context.Context, column string) ([]string, error) {
	// column names come from the fixed list above, never from input
	query := fmt.Sprintf(
		"SELECT DISTINCT %s FROM prices WHERE %s IS NOT NULL AND %s != '' ORDER BY %s",
		column, column, column, column)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Stats summarizes the store for the UI header.
type Stats struct {
	TotalPrices int
	LastImport  string
}

// GetStats returns the record count and last import timestamp.
// LastImport is "Never" when no import has happened.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM prices").Scan(&st.TotalPrices); err != nil {
		return Stats{}, err
	}

	var lastImport string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM metadata WHERE key = ?", MetaLastImport,
	).Scan(&lastImport)
	switch {
	case err == sql.ErrNoRows:
		st.LastImport = "Never"
	case err != nil:
		return Stats{}, err
	default:
		st.LastImport = lastImport
	}
	return st, nil
}

// Count returns the number of price rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM prices").Scan(&count)
	return count, err
}

// =============================================================================
// SCANNING
// =============================================================================

const priceColumns = `id, ChangeIndicator, ProductTitle, ProductId, SkuId,
	SkuTitle, Publisher, SkuDescription, UnitOfMeasure, TermDuration,
	BillingPlan, Market, Currency, UnitPrice, PricingTierRangeMin,
	PricingTierRangeMax, EffectiveStartDate, EffectiveEndDate, Tags,
	ERPPrice, Segment, PreviousValues, imported_at`

func (s *Store) queryPrices(ctx context.Context, query string, args ...any) ([]pricing.PriceRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var records []pricing.PriceRecord
	for rows.Next() {
		r, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanPrice(rows *sql.Rows) (pricing.PriceRecord, error) {
	var (
		r                    pricing.PriceRecord
		changeIndicator      sql.NullString
		productTitle         sql.NullString
		productID            sql.NullString
		skuID                sql.NullString
		skuTitle             sql.NullString
		publisher            sql.NullString
		skuDescription       sql.NullString
		unitOfMeasure        sql.NullString
		termDuration         sql.NullString
		billingPlan          sql.NullString
		market               sql.NullString
		currency             sql.NullString
		unitPrice            string
		tierMin, tierMax     sql.NullString
		startDate, endDate   string
		tags                 sql.NullString
		erpPrice             string
		segment              sql.NullString
		previousValues       sql.NullString
		importedAt           string
	)

	err := rows.Scan(
		&r.ID, &changeIndicator, &productTitle, &productID, &skuID,
		&skuTitle, &publisher, &skuDescription, &unitOfMeasure, &termDuration,
		&billingPlan, &market, &currency, &unitPrice, &tierMin, &tierMax,
		&startDate, &endDate, &tags, &erpPrice, &segment, &previousValues,
		&importedAt,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan price: %w", err)
	}

	r.ChangeIndicator = changeIndicator.String
	r.ProductTitle = productTitle.String
	r.ProductID = productID.String
	r.SkuID = skuID.String
	r.SkuTitle = skuTitle.String
	r.Publisher = publisher.String
	r.SkuDescription = skuDescription.String
	r.UnitOfMeasure = unitOfMeasure.String
	r.TermDuration = termDuration.String
	r.BillingPlan = billingPlan.String
	r.Market = market.String
	r.Currency = currency.String
	r.PricingTierRangeMin = tierMin.String
	r.PricingTierRangeMax = tierMax.String
	r.Tags = tags.String
	r.Segment = segment.String
	r.PreviousValues = previousValues.String

	r.UnitPrice = mustDecimal(unitPrice)
	r.ERPPrice = mustDecimal(erpPrice)
	r.EffectiveStartDate, _ = time.Parse(dateLayout, startDate)
	r.EffectiveEndDate, _ = time.Parse(dateLayout, endDate)
	r.ImportedAt, _ = time.Parse(time.RFC3339, importedAt)

	return r, nil
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
