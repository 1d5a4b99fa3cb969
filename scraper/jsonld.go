package scraper

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/agent-first/agentmap/models"
)

// tryJSONLD scans for schema.org Product data embedded as JSON-LD. Sites
// with otherwise hostile markup (Nike, WooCommerce stores, editorial pages)
// often carry it, and it is readable before any JS runs. A malformed block
// is skipped silently; one broken script must never stop the scan.
func tryJSONLD(doc *goquery.Document, pageURL string, src models.Source) *models.Product {
	var product *models.Product

	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var data any
		if err := json.Unmarshal([]byte(sel.Text()), &data); err != nil {
			return true
		}

		for _, item := range candidateItems(data) {
			obj, ok := item.(map[string]any)
			if !ok || !isProductType(obj["@type"]) {
				continue
			}
			name, _ := obj["name"].(string)
			if name == "" {
				continue
			}
			product = buildJSONLDProduct(obj, name, pageURL, src)
			return false
		}
		return true
	})

	return product
}

// candidateItems flattens the three JSON-LD shapes seen in the wild: a bare
// object, an array of objects, and a {"@graph": [...]} wrapper.
func candidateItems(data any) []any {
	switch v := data.(type) {
	case []any:
		return v
	case map[string]any:
		if graph, ok := v["@graph"].([]any); ok {
			return graph
		}
		return []any{v}
	}
	return nil
}

// isProductType accepts both the string and array forms of @type.
func isProductType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "Product" || v == "IndividualProduct"
	case []any:
		for _, entry := range v {
			if s, ok := entry.(string); ok && (s == "Product" || s == "IndividualProduct") {
				return true
			}
		}
	}
	return false
}

func buildJSONLDProduct(obj map[string]any, name, pageURL string, src models.Source) *models.Product {
	title := models.Truncate(name, models.MaxTitleLen)

	offers, _ := obj["offers"].(map[string]any)
	if list, ok := obj["offers"].([]any); ok && len(list) > 0 {
		offers, _ = list[0].(map[string]any)
	}

	var price *string
	stock := models.StockUnknown
	if offers != nil {
		raw := offers["price"]
		if raw == nil {
			raw = offers["lowPrice"]
		}
		if f, ok := toFloat(raw); ok {
			currency, _ := offers["priceCurrency"].(string)
			formatted := formatOfferPrice(f, currency)
			price = &formatted
		}

		avail, _ := offers["availability"].(string)
		if strings.Contains(avail, "InStock") {
			stock = models.StockInStock
		} else if strings.Contains(avail, "OutOfStock") {
			stock = models.StockOutOfStock
		}
	}

	description, _ := obj["description"].(string)
	description = models.Truncate(description, models.MaxDescriptionLen)

	brand := ""
	if b, ok := obj["brand"].(map[string]any); ok {
		brand, _ = b["name"].(string)
	}

	priceText := ""
	if price != nil {
		priceText = *price
	}
	rawText := fmt.Sprintf("Product: %s\nBrand: %s\nPrice: %s\nDescription: %s",
		title, brand, priceText, description)

	return &models.Product{
		URL:            pageURL,
		Title:          title,
		Price:          price,
		Description:    description,
		RawText:        models.Truncate(rawText, models.MaxRawTextLen),
		CTAButtons:     []models.CTAButton{{Text: "Buy Now", URL: pageURL}},
		ReviewSnippets: []string{},
		Source:         src,
		StockHint:      stock,
	}
}

// formatOfferPrice maps USD to "$" and any other currency to a "<CODE> "
// prefix, dropping a trailing ".00" in both cases.
func formatOfferPrice(v float64, currency string) string {
	symbol := "$"
	if currency != "" && currency != "USD" {
		symbol = currency + " "
	}
	return strings.TrimSuffix(fmt.Sprintf("%s%.2f", symbol, v), ".00")
}

// toFloat coerces the number-or-string price values JSON-LD producers emit.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
