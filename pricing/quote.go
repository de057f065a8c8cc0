/*
quote.go - Quote computation and draft rendering

PURPOSE:
  Turns a price record plus a margin and quantity into the numbers a
  salesperson pastes into a customer quote, and renders them as a
  plain-text draft. Quotes are never persisted; each draft carries a
  random reference number so copies can be told apart.

CALCULATION:
  finalPrice       = UnitPrice * (1 + margin/100)
  profitPerLicense = finalPrice - UnitPrice
  totalCost        = UnitPrice * quantity
  totalPrice       = finalPrice * quantity
  totalProfit      = totalPrice - totalCost
  standardMarkup   = markup implied by the ERP reference price
*/
package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultMargin is applied when the caller does not specify one.
const DefaultMargin = 20

// Quote holds the computed pricing for one record at a given margin and
// quantity. All amounts are rounded to 2 decimal places.
type Quote struct {
	Reference        string
	Record           PriceRecord
	MarginPercent    decimal.Decimal
	Quantity         int64
	FinalPrice       decimal.Decimal
	ProfitPerLicense decimal.Decimal
	TotalCost        decimal.Decimal
	TotalPrice       decimal.Decimal
	TotalProfit      decimal.Decimal
	StandardMarkup   decimal.Decimal
	GeneratedAt      time.Time
}

// NewQuote computes a quote for a record. A non-positive quantity is
// treated as 1.
func NewQuote(r PriceRecord, margin decimal.Decimal, quantity int64) Quote {
	if quantity < 1 {
		quantity = 1
	}
	hundred := decimal.NewFromInt(100)
	qty := decimal.NewFromInt(quantity)

	final := r.UnitPrice.Mul(decimal.NewFromInt(1).Add(margin.Div(hundred))).Round(2)
	totalCost := r.UnitPrice.Mul(qty).Round(2)
	totalPrice := final.Mul(qty).Round(2)

	return Quote{
		Reference:        uuid.NewString(),
		Record:           r,
		MarginPercent:    margin,
		Quantity:         quantity,
		FinalPrice:       final,
		ProfitPerLicense: final.Sub(r.UnitPrice).Round(2),
		TotalCost:        totalCost,
		TotalPrice:       totalPrice,
		TotalProfit:      totalPrice.Sub(totalCost).Round(2),
		StandardMarkup:   MarkupPercent(r.UnitPrice, r.ERPPrice),
		GeneratedAt:      time.Now(),
	}
}

const quoteDisclaimer = `NOTES
-----
- Pricing is based on Microsoft NCE License-Based pricing
- Final pricing subject to Microsoft's terms and conditions
- Quantity and margin can be adjusted as needed
- This draft is not a binding offer`

// Render produces the plain-text quote draft.
func (q Quote) Render() string {
	r := q.Record
	desc := r.SkuDescription
	if desc == "" {
		desc = "N/A"
	}

	var b strings.Builder
	line := strings.Repeat("=", 40)
	fmt.Fprintf(&b, "%s\n        QUOTE DRAFT SUMMARY\n%s\n\n", line, line)
	fmt.Fprintf(&b, "Reference:      %s\n", q.Reference)
	fmt.Fprintf(&b, "Generated:      %s\n\n", q.GeneratedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("PRODUCT INFORMATION\n-------------------\n")
	fmt.Fprintf(&b, "Product:        %s\n", r.ProductTitle)
	fmt.Fprintf(&b, "SKU:            %s\n", r.SkuTitle)
	fmt.Fprintf(&b, "SKU ID:         %s\n", r.SkuID)
	fmt.Fprintf(&b, "Publisher:      %s\n\n", r.Publisher)

	b.WriteString("PRICING DETAILS\n---------------\n")
	fmt.Fprintf(&b, "Term:           %s\n", TermDurationHuman(r.TermDuration))
	fmt.Fprintf(&b, "Billing:        %s\n", r.BillingPlan)
	fmt.Fprintf(&b, "Segment:        %s\n", r.Segment)
	fmt.Fprintf(&b, "Currency:       %s\n\n", r.Currency)
	fmt.Fprintf(&b, "Base Price:     $%s /user/month\n", r.UnitPrice.StringFixed(2))
	fmt.Fprintf(&b, "Margin:         %s%%\n", q.MarginPercent.String())
	fmt.Fprintf(&b, "Final Price:    $%s /user/month\n", q.FinalPrice.StringFixed(2))
	fmt.Fprintf(&b, "Std Markup:     %s%% (ERP reference)\n\n", q.StandardMarkup.String())
	fmt.Fprintf(&b, "Quantity:       %d [Edit as needed]\n", q.Quantity)
	fmt.Fprintf(&b, "Total Cost:     $%s /month\n", q.TotalCost.StringFixed(2))
	fmt.Fprintf(&b, "Total Est:      $%s /month\n", q.TotalPrice.StringFixed(2))
	fmt.Fprintf(&b, "Total Profit:   $%s /month\n\n", q.TotalProfit.StringFixed(2))

	b.WriteString("EFFECTIVE DATES\n---------------\n")
	fmt.Fprintf(&b, "From:           %s\n", r.EffectiveStartDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "To:             %s\n\n", r.EffectiveEndDate.Format("2006-01-02"))

	fmt.Fprintf(&b, "DESCRIPTION\n-----------\n%s\n\n", desc)
	b.WriteString(quoteDisclaimer)
	fmt.Fprintf(&b, "\n\n%s\n", line)
	return b.String()
}
