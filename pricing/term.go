package pricing

// termLabels maps the ISO-8601 duration tokens that appear in the NCE feed
// to display labels. Tokens outside this set pass through unchanged.
var termLabels = map[string]string{
	"P1M": "1 Month (Monthly)",
	"P1Y": "1 Year (Annual)",
	"P2Y": "2 Years",
	"P3Y": "3 Years",
	"":    "Not specified",
}

// TermDurationHuman renders a term duration token for display.
func TermDurationHuman(term string) string {
	if label, ok := termLabels[term]; ok {
		return label
	}
	return term
}
