/*
Package pricing contains the domain model for the NCE price list.

PURPOSE:
  Defines the price record as it exists in the store, its identity key,
  and the derived presentation fields (markup percent, profit per license,
  human-readable term). All money math uses decimal.Decimal to avoid
  floating-point drift on prices.

KEY CONCEPTS IN THIS FILE (types.go):
  - PriceRecord: One SKU/term/billing/segment/date row from the price list
  - PriceKey:    The uniqueness key (ProductId, SkuId, TermDuration,
                 BillingPlan, Segment, EffectiveStartDate)
  - PriceView:   A record plus its derived fields, ready for display

DESIGN PRINCIPLES:
  1. Replace, don't merge: records are bulk-replaced on every import,
     there is no row-level update path
  2. Precision: decimal.Decimal for UnitPrice/ERPPrice and everything
     derived from them
  3. The store owns durable state; this package only computes

SEE ALSO:
  - term.go:  TermDuration rendering
  - quote.go: Quote computation from a record
  - errors.go: Error taxonomy
*/
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRICE RECORD
// =============================================================================

// PriceRecord is one row of the NCE license-based price list.
type PriceRecord struct {
	ID                  int64
	ChangeIndicator     string
	ProductTitle        string
	ProductID           string
	SkuID               string
	SkuTitle            string
	Publisher           string
	SkuDescription      string
	UnitOfMeasure       string
	TermDuration        string
	BillingPlan         string
	Market              string
	Currency            string
	UnitPrice           decimal.Decimal
	PricingTierRangeMin string
	PricingTierRangeMax string
	EffectiveStartDate  time.Time
	EffectiveEndDate    time.Time
	Tags                string
	ERPPrice            decimal.Decimal
	Segment             string
	PreviousValues      string
	ImportedAt          time.Time
}

// Key returns the uniqueness key for this record.
func (r PriceRecord) Key() PriceKey {
	return PriceKey{
		ProductID:          r.ProductID,
		SkuID:              r.SkuID,
		TermDuration:       r.TermDuration,
		BillingPlan:        r.BillingPlan,
		Segment:            r.Segment,
		EffectiveStartDate: r.EffectiveStartDate,
	}
}

// ActiveAt reports whether now falls inside the record's validity window.
// Both bounds are inclusive; a zero bound never brackets anything.
func (r PriceRecord) ActiveAt(now time.Time) bool {
	if r.EffectiveStartDate.IsZero() || r.EffectiveEndDate.IsZero() {
		return false
	}
	return !r.EffectiveStartDate.After(now) && !r.EffectiveEndDate.Before(now)
}

// PriceKey identifies a record uniquely within one import.
type PriceKey struct {
	ProductID          string
	SkuID              string
	TermDuration       string
	BillingPlan        string
	Segment            string
	EffectiveStartDate time.Time
}

// =============================================================================
// DERIVED FIELDS
// =============================================================================

// PriceView is a record decorated with derived presentation fields.
type PriceView struct {
	PriceRecord
	MarkupPercent     decimal.Decimal
	ProfitPerLicense  decimal.Decimal
	TermDurationHuman string
}

// NewPriceView computes the derived fields for a record.
func NewPriceView(r PriceRecord) PriceView {
	return PriceView{
		PriceRecord:       r,
		MarkupPercent:     MarkupPercent(r.UnitPrice, r.ERPPrice),
		ProfitPerLicense:  ProfitPerLicense(r.UnitPrice, r.ERPPrice),
		TermDurationHuman: TermDurationHuman(r.TermDuration),
	}
}

// MarkupPercent returns ((erp-unit)/unit)*100 rounded to 1 decimal place,
// or zero when the unit price is not positive.
func MarkupPercent(unit, erp decimal.Decimal) decimal.Decimal {
	if unit.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	return erp.Sub(unit).Div(unit).Mul(hundred).Round(1)
}

// ProfitPerLicense returns erp-unit rounded to 2 decimal places.
func ProfitPerLicense(unit, erp decimal.Decimal) decimal.Decimal {
	return erp.Sub(unit).Round(2)
}
