/*
Package ingest implements the price-list ingestion pipeline.

PURPOSE:
  Takes a Microsoft NCE license-based price-list CSV from disk, keeps
  only the rows whose effective window covers "now", and swaps them
  into the store in a single transaction. A content digest of the file
  decides whether an import is needed at all.

COMPONENTS:
  csv.go      CSV parsing and column mapping (BOM tolerant)
  hash.go     Change detection via content digest
  filter.go   Active-price filtering by effective dates
  pipeline.go The ingestion state machine
  remote.go   Partner-center rate-card fetch (stub, never writes)

SEE ALSO:
  - pricing/errors.go: The error taxonomy surfaced from here
  - store/sqlite: ReplaceAll, the one write path
*/
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emtek/nce-pricing/pricing"
)

// requiredColumns must all be present (after renames) for a feed to be
// importable. Everything else is optional and defaults to empty.
var requiredColumns = []string{
	"ProductId", "SkuId", "TermDuration", "BillingPlan", "Segment",
	"EffectiveStartDate", "EffectiveEndDate", "UnitPrice", "ERPPrice",
}

// columnRenames normalizes header names that the feed spells with a
// space. Only "ERP Price" is known to need this.
var columnRenames = map[string]string{
	"ERP Price": "ERPPrice",
}

// dateLayouts are tried in order when parsing effective dates. The feed
// has shipped several formats over time.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"1/2/2006",
	"1/2/2006 15:04",
}

// ParseFile reads a price-list CSV into records. Dates that do not parse
// are left as zero times; the active-price filter excludes those rows.
// Returns ErrSourceUnavailable when the file cannot be opened and
// ErrSourceInvalid (wrapping MissingColumnsError) on a bad column set.
func ParseFile(path string) ([]pricing.PriceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", pricing.ErrSourceUnavailable, path)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads price records from r. The reader may start with a UTF-8
// byte-order mark.
func Parse(r io.Reader) ([]pricing.PriceRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // ragged rows are tolerated, missing cells read empty

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: no header row", pricing.ErrSourceInvalid)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.TrimSpace(name)
		if renamed, ok := columnRenames[name]; ok {
			name = renamed
		}
		index[name] = i
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &pricing.MissingColumnsError{Columns: missing}
	}

	var records []pricing.PriceRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", pricing.ErrSourceInvalid, err)
		}

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		records = append(records, pricing.PriceRecord{
			ChangeIndicator:     field("ChangeIndicator"),
			ProductTitle:        field("ProductTitle"),
			ProductID:           field("ProductId"),
			SkuID:               field("SkuId"),
			SkuTitle:            field("SkuTitle"),
			Publisher:           field("Publisher"),
			SkuDescription:      field("SkuDescription"),
			UnitOfMeasure:       field("UnitOfMeasure"),
			TermDuration:        field("TermDuration"),
			BillingPlan:         field("BillingPlan"),
			Market:              field("Market"),
			Currency:            field("Currency"),
			UnitPrice:           parsePrice(field("UnitPrice")),
			PricingTierRangeMin: field("PricingTierRangeMin"),
			PricingTierRangeMax: field("PricingTierRangeMax"),
			EffectiveStartDate:  parseDate(field("EffectiveStartDate")),
			EffectiveEndDate:    parseDate(field("EffectiveEndDate")),
			Tags:                field("Tags"),
			ERPPrice:            parsePrice(field("ERPPrice")),
			Segment:             field("Segment"),
			PreviousValues:      field("PreviousValues"),
		})
	}

	return records, nil
}

func parsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseDate returns the zero time when no layout matches.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
