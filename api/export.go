/*
export.go - CSV export of the current result set

The export re-runs the posted filter set and streams the rows as CSV.
The file starts with a UTF-8 byte-order mark so Excel opens it with the
right encoding, and the columns match the keys of the query result
objects so an export lines up with what the user sees.
*/
package api

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/emtek/nce-pricing/pricing"
	"github.com/emtek/nce-pricing/store/sqlite"
)

// exportColumns fixes the CSV column order.
var exportColumns = []string{
	"id", "ProductTitle", "ProductId", "SkuId", "SkuTitle", "SkuDescription",
	"Publisher", "TermDuration", "TermDurationHuman", "BillingPlan",
	"Segment", "Market", "Currency", "UnitPrice", "ERPPrice",
	"MarkupPercent", "ProfitPerLicense", "EffectiveStartDate",
	"EffectiveEndDate",
}

// ExportCSV writes the rows matching the posted filter set as a CSV
// attachment.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
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
		h.Log.Error().Err(err).Msg("export query failed")
		writeError(w, http.StatusInternalServerError, "Failed to export", err)
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusBadRequest, "No results to export", nil)
		return
	}

	filename := fmt.Sprintf("pricing_export_%s.csv", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)

	// UTF-8 BOM for Excel
	w.Write([]byte{0xEF, 0xBB, 0xBF})

	cw := csv.NewWriter(w)
	cw.Write(exportColumns)
	for _, rec := range records {
		cw.Write(exportRow(pricing.NewPriceView(rec)))
	}
	cw.Flush()
}

func exportRow(v pricing.PriceView) []string {
	return []string{
		strconv.FormatInt(v.ID, 10),
		v.ProductTitle,
		v.ProductID,
		v.SkuID,
		v.SkuTitle,
		v.SkuDescription,
		v.Publisher,
		v.TermDuration,
		v.TermDurationHuman,
		v.BillingPlan,
		v.Segment,
		v.Market,
		v.Currency,
		v.UnitPrice.String(),
		v.ERPPrice.String(),
		v.MarkupPercent.String(),
		v.ProfitPerLicense.String(),
		v.EffectiveStartDate.Format("2006-01-02 15:04:05"),
		v.EffectiveEndDate.Format("2006-01-02 15:04:05"),
	}
}
