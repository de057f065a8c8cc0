/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Query endpoint (filters + search + derived fields)
- Detail 404 semantics
- Quote generation
- CSV export (BOM + round-trip)
- Update trigger
- Basic auth policy
*/
package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/emtek/nce-pricing/ingest"
	"github.com/emtek/nce-pricing/pricing"
	"github.com/emtek/nce-pricing/store/sqlite"
)

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	pipeline := ingest.NewPipeline(store, zerolog.Nop())
	handler := NewHandler(store, pipeline, zerolog.Nop())
	auth := &BasicAuthPolicy{
		Username: func() string { return "admin" },
		Password: func() string { return "" }, // auth disabled
		Realm:    "test",
	}

	srv := httptest.NewServer(NewRouter(handler, auth))
	t.Cleanup(srv.Close)
	return srv, store
}

func seedPrices(t *testing.T, store *sqlite.Store) {
	t.Helper()

	rec := func(product, sku, skuTitle, unit, erp string) pricing.PriceRecord {
		return pricing.PriceRecord{
			ProductTitle:       product,
			ProductID:          "CFQ7TTC0LF8R",
			SkuID:              sku,
			SkuTitle:           skuTitle,
			SkuDescription:     "License subscription",
			Publisher:          "Microsoft Corporation",
			TermDuration:       "P1Y",
			BillingPlan:        "Annual",
			Currency:           "USD",
			Segment:            "Commercial",
			UnitPrice:          decimal.RequireFromString(unit),
			ERPPrice:           decimal.RequireFromString(erp),
			EffectiveStartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			EffectiveEndDate:   time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		}
	}

	records := []pricing.PriceRecord{
		rec("Microsoft 365 Business Standard", "0001", "Business Basic Upgrade", "10.00", "12.50"),
		rec("Microsoft 365 Business Standard", "0002", "Business Premium", "20.00", "25.00"),
		rec("Exchange Online", "0003", "Plan 1", "4.00", "5.00"),
	}
	meta := map[string]string{
		sqlite.MetaLastImport:   "2025-06-15T12:00:00Z",
		sqlite.MetaImportSource: "csv",
	}
	if err := store.ReplaceAll(context.Background(), records, meta); err != nil {
		t.Fatalf("Failed to seed prices: %v", err)
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func TestQueryPrices_FilterAndSearch(t *testing.T) {
	srv, store := newTestServer(t)
	seedPrices(t, store)

	resp := postJSON(t, srv.URL+"/api/query", QueryRequest{
		Product: "Microsoft 365 Business Standard",
		Search:  "basic",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var result QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("Expected 1 result, got %d", result.Count)
	}

	row := result.Results[0]
	if row.SkuTitle != "Business Basic Upgrade" {
		t.Errorf("Wrong row: %s", row.SkuTitle)
	}
	if row.MarkupPercent != 25.0 {
		t.Errorf("Expected MarkupPercent 25.0, got %v", row.MarkupPercent)
	}
	if row.ProfitPerLicense != 2.5 {
		t.Errorf("Expected ProfitPerLicense 2.5, got %v", row.ProfitPerLicense)
	}
	if row.TermDurationHuman != "1 Year (Annual)" {
		t.Errorf("Expected human term, got %s", row.TermDurationHuman)
	}
}

func TestGetPriceDetail_NotFound(t *testing.T) {
	srv, store := newTestServer(t)
	seedPrices(t, store)

	resp, err := http.Get(srv.URL + "/api/prices/99999")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestGenerateQuote(t *testing.T) {
	srv, store := newTestServer(t)
	seedPrices(t, store)

	// Find a row id via query.
	resp := postJSON(t, srv.URL+"/api/query", QueryRequest{Search: "Plan 1"})
	var result QueryResponse
	json.NewDecoder(resp.Body).Decode(&result)
	resp.Body.Close()
	if result.Count != 1 {
		t.Fatalf("Seed row not found")
	}

	margin := 20.0
	resp = postJSON(t, srv.URL+"/api/quote", QuoteRequest{
		PriceID:  result.Results[0].ID,
		Margin:   &margin,
		Quantity: 5,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var quote QuoteDTO
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		t.Fatalf("Failed to decode quote: %v", err)
	}
	if quote.FinalPrice != 4.80 {
		t.Errorf("Expected final price 4.80, got %v", quote.FinalPrice)
	}
	if quote.TotalPrice != 24.00 {
		t.Errorf("Expected total 24.00, got %v", quote.TotalPrice)
	}
	if quote.Reference == "" {
		t.Error("Expected a quote reference")
	}
	if !strings.Contains(quote.Draft, "QUOTE DRAFT SUMMARY") {
		t.Error("Draft text missing")
	}
}

func TestExportCSV_RoundTrip(t *testing.T) {
	srv, store := newTestServer(t)
	seedPrices(t, store)

	resp := postJSON(t, srv.URL+"/api/export", QueryRequest{Product: "Exchange Online"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	data := buf.Bytes()

	// UTF-8 BOM prefix
	if !bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		t.Fatal("Export missing UTF-8 BOM")
	}

	rows, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	if err != nil {
		t.Fatalf("Exported CSV does not re-parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected header + 1 row, got %d rows", len(rows))
	}

	header, row := rows[0], rows[1]
	col := func(name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("Column %s missing from export", name)
		return ""
	}
	if col("ProductTitle") != "Exchange Online" {
		t.Errorf("ProductTitle wrong: %s", col("ProductTitle"))
	}
	if col("UnitPrice") != "4" {
		t.Errorf("UnitPrice wrong: %s", col("UnitPrice"))
	}
	if col("MarkupPercent") != "25" {
		t.Errorf("MarkupPercent wrong: %s", col("MarkupPercent"))
	}
}

func TestExportCSV_EmptyResultSet(t *testing.T) {
	srv, store := newTestServer(t)
	seedPrices(t, store)

	resp := postJSON(t, srv.URL+"/api/export", QueryRequest{Product: "No Such Product"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400 for empty export, got %d", resp.StatusCode)
	}
}

func TestGetStats(t *testing.T) {
	srv, store := newTestServer(t)
	seedPrices(t, store)

	resp, err := http.Get(srv.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var stats StatsDTO
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.TotalPrices != 3 {
		t.Errorf("Expected 3 prices, got %d", stats.TotalPrices)
	}
	if stats.LastImport != "2025-06-15T12:00:00Z" {
		t.Errorf("LastImport wrong: %s", stats.LastImport)
	}
}

func TestTriggerUpdate(t *testing.T) {
	srv, store := newTestServer(t)

	feed := "ProductTitle,ProductId,SkuId,SkuTitle,Publisher,SkuDescription," +
		"UnitOfMeasure,TermDuration,BillingPlan,Market,Currency,UnitPrice," +
		"PricingTierRangeMin,PricingTierRangeMax,EffectiveStartDate,EffectiveEndDate," +
		"Tags,ERP Price,Segment\n" +
		"Exchange Online,CFQ7TTC0LF8R,0003,Plan 1,Microsoft Corporation,Desc," +
		"Licenses,P1Y,Annual,US,USD,4.00,,," +
		"2020-01-01 00:00:00,2030-01-01 00:00:00,,5.00,Commercial\n"

	path := filepath.Join(t.TempDir(), "feed.csv")
	if err := os.WriteFile(path, []byte(feed), 0644); err != nil {
		t.Fatalf("Failed to write feed: %v", err)
	}

	resp := postJSON(t, srv.URL+"/api/update", UpdateRequest{Path: path})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var result UpdateResponse
	json.NewDecoder(resp.Body).Decode(&result)
	if !result.Success || result.Imported != 1 {
		t.Errorf("Unexpected result: %+v", result)
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 record, got %d", count)
	}

	// Missing file surfaces as a client error.
	resp = postJSON(t, srv.URL+"/api/update", UpdateRequest{Path: "/no/such.csv"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing file, got %d", resp.StatusCode)
	}
}

func TestBasicAuth(t *testing.T) {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	pipeline := ingest.NewPipeline(store, zerolog.Nop())
	handler := NewHandler(store, pipeline, zerolog.Nop())

	password := ""
	auth := &BasicAuthPolicy{
		Username: func() string { return "admin" },
		Password: func() string { return password },
		Realm:    "test",
	}
	srv := httptest.NewServer(NewRouter(handler, auth))
	t.Cleanup(srv.Close)

	// No password configured: requests pass without credentials.
	resp, err := http.Get(srv.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 with auth disabled, got %d", resp.StatusCode)
	}

	// Password set: anonymous requests are rejected with a challenge.
	password = "s3cret"
	resp, err = http.Get(srv.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("WWW-Authenticate"), "Basic") {
		t.Error("Missing WWW-Authenticate challenge")
	}

	// Correct credentials pass.
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/stats", nil)
	req.SetBasicAuth("admin", "s3cret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 with credentials, got %d", resp.StatusCode)
	}

	// Wrong password rejected.
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/stats", nil)
	req.SetBasicAuth("admin", "wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for wrong password, got %d", resp.StatusCode)
	}
}
