/*
handlers.go - HTTP API handlers for the pricing tool

REQUEST FLOW:
  1. Parse HTTP request
  2. Call store / domain logic
  3. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input, bad source file
  - 404: Price not found (a normal outcome, never logged as an error)
  - 401: Auth policy rejected the request (see auth.go)
  - 409: Source unchanged conflict is NOT used; an unchanged import is a
         successful no-op
  - 500: Store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/emtek/nce-pricing/ingest"
	"github.com/emtek/nce-pricing/pricing"
	"github.com/emtek/nce-pricing/store/sqlite"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Pipeline *ingest.Pipeline
	Log      zerolog.Logger
}

// NewHandler creates a new handler.
func NewHandler(store *sqlite.Store, pipeline *ingest.Pipeline, log zerolog.Logger) *Handler {
	return &Handler{
		Store:    store,
		Pipeline: pipeline,
		Log:      log.With().Str("component", "api").Logger(),
	}
}

// =============================================================================
// QUERY HANDLERS
// =============================================================================

// GetFilters returns the distinct values for the filter dropdowns.
func (h *Handler) GetFilters(w http.ResponseWriter, r *http.Request) {
	values, err := h.Store.GetFilterValues(r.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("failed to fetch filter values")
		writeError(w, http.StatusInternalServerError, "Failed to fetch filters", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"products": values.Products,
		"segments": values.Segments,
		"terms":    values.Terms,
		"billing":  values.Billing,
	})
}

// QueryPrices returns the price rows matching the posted filter set,
// each decorated with derived fields.
func (h *Handler) QueryPrices(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	records, err := h.Store.Query(r.Context(), sqlite.QueryFilter{
		Product: req.Product,
		Segment: req.Segment,
		Term:    req.Term,
		Billing: req.Billing,
		Search:  req.Search,
	})
	if err != nil {
		h.Log.Error().Err(err).Msg("price query failed")
		writeError(w, http.StatusInternalServerError, "Failed to query prices", err)
		return
	}

	dtos := make([]PriceDTO, len(records))
	for i, rec := range records {
		dtos[i] = toPriceDTO(pricing.NewPriceView(rec))
	}

	writeJSON(w, http.StatusOK, QueryResponse{Results: dtos, Count: len(dtos)})
}

// GetPriceDetail returns a single price row or 404.
func (h *Handler) GetPriceDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid price id", err)
		return
	}

	record, err := h.Store.GetPrice(r.Context(), id)
	if err != nil {
		h.Log.Error().Err(err).Int64("id", id).Msg("price detail lookup failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch price", err)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "Price not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toPriceDTO(pricing.NewPriceView(*record)))
}

// GetStats returns the record count and last import timestamp.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.GetStats(r.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("stats query failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch stats", err)
		return
	}

	writeJSON(w, http.StatusOK, StatsDTO{
		TotalPrices: stats.TotalPrices,
		LastImport:  stats.LastImport,
	})
}

// =============================================================================
// QUOTE HANDLER
// =============================================================================

// GenerateQuote computes a marked-up quote for one price row and renders
// the draft document. Nothing is persisted.
func (h *Handler) GenerateQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	record, err := h.Store.GetPrice(r.Context(), req.PriceID)
	if err != nil {
		h.Log.Error().Err(err).Int64("id", req.PriceID).Msg("quote lookup failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch price", err)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "Price not found", nil)
		return
	}

	margin := decimal.NewFromInt(pricing.DefaultMargin)
	if req.Margin != nil {
		margin = decimal.NewFromFloat(*req.Margin)
	}

	quote := pricing.NewQuote(*record, margin, req.Quantity)
	writeJSON(w, http.StatusOK, toQuoteDTO(quote))
}

// =============================================================================
// UPDATE HANDLER
// =============================================================================

// TriggerUpdate runs one CSV ingestion. An unchanged file is a
// successful no-op, not an error.
func (h *Handler) TriggerUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "Missing csv path", nil)
		return
	}

	result, err := h.Pipeline.Run(r.Context(), req.Path, req.Force)
	if err != nil {
		status := http.StatusInternalServerError
		if pricing.IsSourceError(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, "Import failed", err)
		return
	}

	resp := UpdateResponse{
		Success:  true,
		Skipped:  result.Skipped,
		Imported: result.Imported,
		Total:    result.TotalRows,
	}
	if result.Skipped {
		resp.Message = "CSV unchanged, import skipped"
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
