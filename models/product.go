package models

// Source identifies which extraction strategy produced a Product.
type Source string

const (
	SourceVendorJSON             Source = "vendor-json"
	SourceStructuredData         Source = "structured-data"
	SourceHTML                   Source = "html"
	SourceRenderedHTML           Source = "rendered-html"
	SourceRenderedVendorJSON     Source = "rendered-vendor-json"
	SourceRenderedStructuredData Source = "rendered-structured-data"
)

// Stock hints derived from vendor data. Heuristic extraction leaves the
// hint empty; only the vendor JSON and structured-data strategies can
// verify availability.
const (
	StockInStock    = "in_stock"
	StockOutOfStock = "out_of_stock"
	StockUnknown    = "unknown"
)

// Truncation budgets. Downstream consumers (the summarization prompt in
// particular) size their context windows against these, so every strategy
// must honor them.
const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 500
	MaxRawTextLen     = 5000
	MaxCTAButtons     = 5
	MaxReviewSnippets = 5
)

// UnknownTitle is the heuristic-layer sentinel for "no title found".
// It is a signal to escalate to rendering, not a valid terminal value.
const UnknownTitle = "Unknown Product"

// CTAButton is a call-to-action link extracted from a page.
type CTAButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Product is the normalized record produced by every extraction strategy.
type Product struct {
	URL            string      `json:"url"`
	Title          string      `json:"title"`
	Price          *string     `json:"price"`
	Description    string      `json:"description"`
	RawText        string      `json:"raw_text"`
	CTAButtons     []CTAButton `json:"cta_buttons"`
	ReviewSnippets []string    `json:"review_snippets"`
	Source         Source      `json:"source"`
	StockHint      string      `json:"stock_hint,omitempty"`
}

// Truncate returns s cut to at most max characters, never splitting a rune.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
