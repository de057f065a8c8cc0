package pricing_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emtek/nce-pricing/pricing"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// DERIVED FIELDS
// =============================================================================

func TestMarkupPercent(t *testing.T) {
	tests := []struct {
		name string
		unit string
		erp  string
		want string
	}{
		{"typical markup", "10.00", "12.50", "25"},
		{"rounded to one decimal", "30.00", "37.01", "23.4"},
		{"zero unit price", "0", "12.50", "0"},
		{"negative unit price", "-1", "12.50", "0"},
		{"erp below unit", "10.00", "9.00", "-10"},
		{"equal prices", "10.00", "10.00", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pricing.MarkupPercent(dec(tt.unit), dec(tt.erp))
			assert.True(t, got.Equal(dec(tt.want)),
				"MarkupPercent(%s, %s) = %s, want %s", tt.unit, tt.erp, got, tt.want)
		})
	}
}

func TestProfitPerLicense(t *testing.T) {
	got := pricing.ProfitPerLicense(dec("10.004"), dec("12.509"))
	assert.True(t, got.Equal(dec("2.51")), "got %s", got)
}

func TestTermDurationHuman(t *testing.T) {
	assert.Equal(t, "1 Year (Annual)", pricing.TermDurationHuman("P1Y"))
	assert.Equal(t, "1 Month (Monthly)", pricing.TermDurationHuman("P1M"))
	assert.Equal(t, "3 Years", pricing.TermDurationHuman("P3Y"))
	assert.Equal(t, "Not specified", pricing.TermDurationHuman(""))
	// Unknown tokens pass through unchanged.
	assert.Equal(t, "P5Y", pricing.TermDurationHuman("P5Y"))
}

// =============================================================================
// ACTIVE WINDOW
// =============================================================================

func TestActiveAt(t *testing.T) {
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	record := func(start, end time.Time) pricing.PriceRecord {
		return pricing.PriceRecord{EffectiveStartDate: start, EffectiveEndDate: end}
	}

	assert.True(t, record(now.Add(-day), now.Add(day)).ActiveAt(now))
	// Both bounds inclusive: start == end == now is active.
	assert.True(t, record(now, now).ActiveAt(now))
	assert.False(t, record(now.Add(day), now.Add(2*day)).ActiveAt(now), "future window")
	assert.False(t, record(now.Add(-2*day), now.Add(-day)).ActiveAt(now), "expired window")
	// A missing bound never brackets now.
	assert.False(t, record(time.Time{}, now.Add(day)).ActiveAt(now))
	assert.False(t, record(now.Add(-day), time.Time{}).ActiveAt(now))
}

// =============================================================================
// QUOTE
// =============================================================================

func TestNewQuote_ReferenceNumbers(t *testing.T) {
	r := pricing.PriceRecord{UnitPrice: dec("100"), ERPPrice: dec("125")}

	q1 := pricing.NewQuote(r, decimal.NewFromInt(20), 1)
	q2 := pricing.NewQuote(r, decimal.NewFromInt(20), 1)

	require.NotEmpty(t, q1.Reference)
	assert.NotEqual(t, q1.Reference, q2.Reference, "each draft gets its own reference")
}

func TestNewQuote_Calculation(t *testing.T) {
	// GIVEN: UnitPrice=100, margin=20, quantity=5
	r := pricing.PriceRecord{
		ProductTitle: "Microsoft 365 Business Standard",
		UnitPrice:    dec("100"),
		ERPPrice:     dec("125"),
	}

	q := pricing.NewQuote(r, decimal.NewFromInt(20), 5)

	// THEN: the documented worked example holds
	assert.True(t, q.FinalPrice.Equal(dec("120.00")), "final %s", q.FinalPrice)
	assert.True(t, q.ProfitPerLicense.Equal(dec("20.00")), "profit %s", q.ProfitPerLicense)
	assert.True(t, q.TotalCost.Equal(dec("500.00")), "cost %s", q.TotalCost)
	assert.True(t, q.TotalPrice.Equal(dec("600.00")), "price %s", q.TotalPrice)
	assert.True(t, q.TotalProfit.Equal(dec("100.00")), "profit %s", q.TotalProfit)
	assert.True(t, q.StandardMarkup.Equal(dec("25")), "markup %s", q.StandardMarkup)
}

func TestNewQuote_DefaultsQuantity(t *testing.T) {
	r := pricing.PriceRecord{UnitPrice: dec("50"), ERPPrice: dec("60")}
	q := pricing.NewQuote(r, decimal.NewFromInt(10), 0)
	assert.Equal(t, int64(1), q.Quantity)
	assert.True(t, q.TotalCost.Equal(dec("50.00")))
}

func TestQuote_Render(t *testing.T) {
	r := pricing.PriceRecord{
		ProductTitle:       "Microsoft 365 Business Standard",
		SkuTitle:           "Business Standard",
		SkuID:              "0001",
		Publisher:          "Microsoft Corporation",
		TermDuration:       "P1Y",
		BillingPlan:        "Annual",
		Segment:            "Commercial",
		Currency:           "USD",
		UnitPrice:          dec("100"),
		ERPPrice:           dec("125"),
		EffectiveStartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EffectiveEndDate:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	draft := pricing.NewQuote(r, decimal.NewFromInt(20), 5).Render()

	assert.Contains(t, draft, "QUOTE DRAFT SUMMARY")
	assert.Contains(t, draft, "Microsoft 365 Business Standard")
	assert.Contains(t, draft, "1 Year (Annual)")
	assert.Contains(t, draft, "Final Price:    $120.00")
	assert.Contains(t, draft, "Total Est:      $600.00")
	assert.Contains(t, draft, "not a binding offer")
	// Empty description renders as N/A.
	assert.True(t, strings.Contains(draft, "N/A"))
}
