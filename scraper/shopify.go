package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/agent-first/agentmap/models"
)

// Shopify exposes a public JSON endpoint at /products/<handle>.json that
// returns perfectly structured data without any JS rendering. It is the
// highest-fidelity strategy and, being a direct data endpoint, usually
// bypasses the network-layer blocking that kills plain page fetches.

var asciiFoldRe = regexp.MustCompile(`[^a-z0-9]+`)

// handleCandidates derives up to three handle forms from a product URL path,
// tried in order: raw (possibly percent-encoded), percent-decoded, and
// ascii-folded (Shopify's actual slug convention). Duplicates are removed
// while preserving first-occurrence order.
func handleCandidates(path string) []string {
	raw := strings.TrimRight(path, "/")
	if i := strings.LastIndex(raw, "/products/"); i >= 0 {
		raw = raw[i+len("/products/"):]
	}
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}

	decoded := raw
	if d, err := url.PathUnescape(raw); err == nil {
		decoded = d
	}
	ascii := strings.Trim(asciiFoldRe.ReplaceAllString(strings.ToLower(decoded), "-"), "-")

	candidates := make([]string, 0, 3)
	seen := make(map[string]struct{}, 3)
	for _, h := range []string{raw, decoded, ascii} {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		candidates = append(candidates, h)
	}
	return candidates
}

type shopifyPayload struct {
	Product shopifyProduct `json:"product"`
}

type shopifyProduct struct {
	Title       string           `json:"title"`
	BodyHTML    string           `json:"body_html"`
	Vendor      string           `json:"vendor"`
	ProductType string           `json:"product_type"`
	Tags        tagList          `json:"tags"`
	Variants    []shopifyVariant `json:"variants"`
	Options     []shopifyOption  `json:"options"`
}

type shopifyVariant struct {
	Price          money `json:"price"`
	CompareAtPrice money `json:"compare_at_price"`
	Available      bool  `json:"available"`
}

type shopifyOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// money tolerates both the string ("29.99") and bare-number forms Shopify
// stores emit for prices.
type money string

func (m *money) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*m = ""
		return nil
	}
	*m = money(strings.Trim(s, `"`))
	return nil
}

func (m money) Float() (float64, bool) {
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(m), 64)
	return v, err == nil
}

// tagList tolerates both the array and comma-joined string forms of tags.
type tagList []string

func (t *tagList) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, "[") {
		var arr []string
		if err := json.Unmarshal(b, &arr); err != nil {
			return err
		}
		*t = arr
		return nil
	}
	var joined string
	if err := json.Unmarshal(b, &joined); err != nil {
		return err
	}
	*t = nil
	for _, part := range strings.Split(joined, ",") {
		if p := strings.TrimSpace(part); p != "" {
			*t = append(*t, p)
		}
	}
	return nil
}

// tryShopifyJSON attempts the vendor JSON strategy. It returns (nil, nil)
// when the URL is not a product path, no handle candidate resolves, or the
// payload carries no title; the orchestrator then moves on. A failed probe
// is never fatal.
func (s *Scraper) tryShopifyJSON(ctx context.Context, u *url.URL, src models.Source) (*models.Product, error) {
	if !strings.Contains(u.Path, "/products/") {
		return nil, nil
	}

	for _, h := range handleCandidates(u.Path) {
		jsonURL := fmt.Sprintf("%s://%s/products/%s.json", u.Scheme, u.Host, h)
		res, err := s.fetcher.Get(ctx, jsonURL, s.cfg.ProbeTimeout)
		if err != nil || res.Status != 200 {
			continue
		}

		var payload shopifyPayload
		if err := json.Unmarshal(res.Body, &payload); err != nil {
			continue
		}
		if payload.Product.Title == "" {
			continue
		}
		return buildShopifyProduct(&payload.Product, u.String(), src), nil
	}

	return nil, nil
}

func buildShopifyProduct(p *shopifyProduct, pageURL string, src models.Source) *models.Product {
	title := models.Truncate(p.Title, models.MaxTitleLen)

	// Price: the modal (most frequent) price across variants, preferring
	// compare-at prices so a single discounted outlier cannot drag the
	// reported price down.
	var price *string
	var direct, compareAt []float64
	available := false
	for _, v := range p.Variants {
		if f, ok := v.Price.Float(); ok {
			direct = append(direct, f)
		}
		if f, ok := v.CompareAtPrice.Float(); ok {
			compareAt = append(compareAt, f)
		}
		if v.Available {
			available = true
		}
	}
	if len(direct) > 0 {
		ref := modalPrice(direct)
		if len(compareAt) > 0 {
			ref = modalPrice(compareAt)
		}
		formatted := formatPrice(ref)
		price = &formatted
	}

	stock := models.StockOutOfStock
	if available {
		stock = models.StockInStock
	}

	description := models.Truncate(stripMarkup(p.BodyHTML), models.MaxDescriptionLen)

	var optionLines []string
	for _, opt := range p.Options {
		if opt.Name == "" || len(opt.Values) == 0 {
			continue
		}
		values := opt.Values
		if len(values) > 8 {
			values = values[:8]
		}
		optionLines = append(optionLines, fmt.Sprintf("%s: %s", opt.Name, strings.Join(values, ", ")))
	}

	// The context blob is what downstream summarization consumes, so its
	// line order and field selection are fixed.
	lines := make([]string, 0, 8)
	lines = append(lines, "Product: "+title)
	if p.Vendor != "" {
		lines = append(lines, "Brand: "+p.Vendor)
	}
	if p.ProductType != "" {
		lines = append(lines, "Type: "+p.ProductType)
	}
	if price != nil {
		lines = append(lines, "Price: "+*price)
	}
	lines = append(lines, "Stock: "+stock)
	lines = append(lines, optionLines...)
	if len(p.Tags) > 0 {
		lines = append(lines, "Tags: "+strings.Join(p.Tags, ", "))
	}
	if description != "" {
		lines = append(lines, "Description: "+description)
	}

	return &models.Product{
		URL:            pageURL,
		Title:          title,
		Price:          price,
		Description:    description,
		RawText:        models.Truncate(strings.Join(lines, "\n"), models.MaxRawTextLen),
		CTAButtons:     []models.CTAButton{{Text: "Buy Now", URL: pageURL}},
		ReviewSnippets: []string{},
		Source:         src,
		StockHint:      stock,
	}
}

// modalPrice returns the most frequent price; ties go to the price seen
// first in variant order.
func modalPrice(prices []float64) float64 {
	counts := make(map[float64]int, len(prices))
	for _, p := range prices {
		counts[p]++
	}
	best, bestCount := prices[0], 0
	for _, p := range prices {
		if counts[p] > bestCount {
			best, bestCount = p, counts[p]
		}
	}
	return best
}

// formatPrice renders a currency string, dropping a trailing ".00" so whole
// amounts read as "$120", not "$120.00".
func formatPrice(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("$%d", int64(v))
	}
	return fmt.Sprintf("$%.2f", v)
}
