/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the domain model
  from the external contract. Money amounts are serialized as float64
  for the UI; the domain keeps decimals internally.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
*/
package api

import (
	"time"

	"github.com/emtek/nce-pricing/pricing"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// QueryRequest carries the filter set. Empty fields mean "any".
type QueryRequest struct {
	Product string `json:"product"`
	Segment string `json:"segment"`
	Term    string `json:"term"`
	Billing string `json:"billing"`
	Search  string `json:"search"`
}

// PriceDTO is one result row with its derived fields. Field names match
// the feed's column names so exports line up with the source.
type PriceDTO struct {
	ID                 int64   `json:"id"`
	ProductTitle       string  `json:"ProductTitle"`
	ProductID          string  `json:"ProductId"`
	SkuID              string  `json:"SkuId"`
	SkuTitle           string  `json:"SkuTitle"`
	SkuDescription     string  `json:"SkuDescription"`
	Publisher          string  `json:"Publisher"`
	TermDuration       string  `json:"TermDuration"`
	TermDurationHuman  string  `json:"TermDurationHuman"`
	BillingPlan        string  `json:"BillingPlan"`
	Segment            string  `json:"Segment"`
	Market             string  `json:"Market"`
	Currency           string  `json:"Currency"`
	UnitPrice          float64 `json:"UnitPrice"`
	ERPPrice           float64 `json:"ERPPrice"`
	MarkupPercent      float64 `json:"MarkupPercent"`
	ProfitPerLicense   float64 `json:"ProfitPerLicense"`
	EffectiveStartDate string  `json:"EffectiveStartDate"`
	EffectiveEndDate   string  `json:"EffectiveEndDate"`
}

func toPriceDTO(v pricing.PriceView) PriceDTO {
	return PriceDTO{
		ID:                 v.ID,
		ProductTitle:       v.ProductTitle,
		ProductID:          v.ProductID,
		SkuID:              v.SkuID,
		SkuTitle:           v.SkuTitle,
		SkuDescription:     v.SkuDescription,
		Publisher:          v.Publisher,
		TermDuration:       v.TermDuration,
		TermDurationHuman:  v.TermDurationHuman,
		BillingPlan:        v.BillingPlan,
		Segment:            v.Segment,
		Market:             v.Market,
		Currency:           v.Currency,
		UnitPrice:          v.UnitPrice.InexactFloat64(),
		ERPPrice:           v.ERPPrice.InexactFloat64(),
		MarkupPercent:      v.MarkupPercent.InexactFloat64(),
		ProfitPerLicense:   v.ProfitPerLicense.InexactFloat64(),
		EffectiveStartDate: v.EffectiveStartDate.Format("2006-01-02 15:04:05"),
		EffectiveEndDate:   v.EffectiveEndDate.Format("2006-01-02 15:04:05"),
	}
}

// QueryResponse wraps a result list.
type QueryResponse struct {
	Results []PriceDTO `json:"results"`
	Count   int        `json:"count"`
}

// QuoteRequest asks for a draft. Margin defaults to 20, quantity to 1.
type QuoteRequest struct {
	PriceID  int64    `json:"price_id"`
	Margin   *float64 `json:"margin,omitempty"`
	Quantity int64    `json:"quantity,omitempty"`
}

// QuoteDTO carries the computed quote plus its rendered draft.
type QuoteDTO struct {
	Reference        string  `json:"reference"`
	ProductTitle     string  `json:"product_title"`
	SkuTitle         string  `json:"sku_title"`
	MarginPercent    float64 `json:"margin_percent"`
	Quantity         int64   `json:"quantity"`
	UnitPrice        float64 `json:"unit_price"`
	FinalPrice       float64 `json:"final_price"`
	ProfitPerLicense float64 `json:"profit_per_license"`
	TotalCost        float64 `json:"total_cost"`
	TotalPrice       float64 `json:"total_price"`
	TotalProfit      float64 `json:"total_profit"`
	StandardMarkup   float64 `json:"standard_markup"`
	GeneratedAt      string  `json:"generated_at"`
	Draft            string  `json:"draft"`
}

func toQuoteDTO(q pricing.Quote) QuoteDTO {
	return QuoteDTO{
		Reference:        q.Reference,
		ProductTitle:     q.Record.ProductTitle,
		SkuTitle:         q.Record.SkuTitle,
		MarginPercent:    q.MarginPercent.InexactFloat64(),
		Quantity:         q.Quantity,
		UnitPrice:        q.Record.UnitPrice.InexactFloat64(),
		FinalPrice:       q.FinalPrice.InexactFloat64(),
		ProfitPerLicense: q.ProfitPerLicense.InexactFloat64(),
		TotalCost:        q.TotalCost.InexactFloat64(),
		TotalPrice:       q.TotalPrice.InexactFloat64(),
		TotalProfit:      q.TotalProfit.InexactFloat64(),
		StandardMarkup:   q.StandardMarkup.InexactFloat64(),
		GeneratedAt:      q.GeneratedAt.Format(time.RFC3339),
		Draft:            q.Render(),
	}
}

// StatsDTO mirrors the original stats payload.
type StatsDTO struct {
	TotalPrices int    `json:"total_prices"`
	LastImport  string `json:"last_import"`
}

// UpdateRequest triggers a CSV ingestion.
type UpdateRequest struct {
	Path  string `json:"path"`
	Force bool   `json:"force"`
}

// UpdateResponse reports the pipeline outcome.
type UpdateResponse struct {
	Success  bool   `json:"success"`
	Skipped  bool   `json:"skipped"`
	Imported int    `json:"imported"`
	Total    int    `json:"total"`
	Message  string `json:"message,omitempty"`
}
