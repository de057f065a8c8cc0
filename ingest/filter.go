package ingest

import (
	"time"

	"github.com/emtek/nce-pricing/pricing"
)

// FilterActive returns the subset of records whose effective window
// includes now, bounds inclusive. Records with a missing or unparseable
// bound are excluded: an unparsed bound can never bracket now, and the
// feed mixes historical, current, and future-scheduled entries.
func FilterActive(records []pricing.PriceRecord, now time.Time) []pricing.PriceRecord {
	active := make([]pricing.PriceRecord, 0, len(records))
	for _, r := range records {
		if r.ActiveAt(now) {
			active = append(active, r)
		}
	}
	return active
}
