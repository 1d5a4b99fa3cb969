package scraper

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/agent-first/agentmap/models"
)

// The heuristic layer is the universal fallback: ordered selector cascades
// over a noise-stripped document, each field returning the first match that
// passes a minimum-content check. It never fails; at worst it produces the
// "Unknown Product" sentinel, which the orchestrator treats as a signal to
// escalate, not as a result.

var (
	titleSuffixRe = regexp.MustCompile(`\s*[|—–]\s*`)
	blankLinesRe  = regexp.MustCompile(`\n{3,}`)
)

// stripNoise removes elements that carry no product signal (scripts, nav,
// chrome, forms) so selector matches land on real content.
func stripNoise(r *Rules, doc *goquery.Document) {
	doc.FindMatcher(r.NoiseSelector).Remove()
}

// buildHeuristicProduct assembles a Product from selector-based extraction.
// The caller must have stripped noise already.
func buildHeuristicProduct(r *Rules, doc *goquery.Document, rawHTML string, u *url.URL, src models.Source) *models.Product {
	return &models.Product{
		URL:            u.String(),
		Title:          extractTitle(r, doc),
		Price:          extractPrice(r, doc, rawHTML),
		Description:    extractDescription(r, doc),
		RawText:        models.Truncate(cleanText(r, doc), models.MaxRawTextLen),
		CTAButtons:     extractCTAButtons(r, doc, u),
		ReviewSnippets: extractReviews(r, doc),
		Source:         src,
	}
}

func extractTitle(r *Rules, doc *goquery.Document) string {
	for _, sel := range r.TitleSelectors {
		text := textOf(doc.FindMatcher(sel).First(), "")
		if len(text) > 2 {
			return models.Truncate(text, models.MaxTitleLen)
		}
	}

	// Fallback: page <title> minus "| Brand Name" style suffixes.
	if title := textOf(doc.Find("title").First(), ""); title != "" {
		title = strings.TrimSpace(titleSuffixRe.Split(title, -1)[0])
		return models.Truncate(title, models.MaxTitleLen)
	}

	return models.UnknownTitle
}

func extractPrice(r *Rules, doc *goquery.Document, rawHTML string) *string {
	for _, sel := range r.PriceSelectors {
		el := doc.FindMatcher(sel).First()
		if el.Length() == 0 {
			continue
		}

		// schema.org markup carries the value in a content attribute.
		if content, ok := el.Attr("content"); ok && hasDigit(content) {
			if !strings.HasPrefix(content, "$") {
				content = "$" + content
			}
			return &content
		}

		text := textOf(el, "")
		if text != "" && hasDigit(text) && len(text) < 30 {
			return &text
		}
	}

	// Regex cascade over the raw HTML. Patterns require two digits so
	// sizes and ratings ("$9") never match.
	for _, pattern := range r.PricePatterns {
		if m := pattern.FindString(rawHTML); m != "" {
			price := models.Truncate(m, 30)
			return &price
		}
	}

	return nil
}

func extractDescription(r *Rules, doc *goquery.Document) string {
	// A meta description is often the best human-written summary.
	if content, ok := doc.Find("meta[name='description']").Attr("content"); ok {
		content = strings.TrimSpace(content)
		if len(content) > 30 {
			return models.Truncate(content, models.MaxDescriptionLen)
		}
	}

	for _, sel := range r.DescriptionSelectors {
		text := textOf(doc.FindMatcher(sel).First(), " ")
		if len(text) > 30 {
			return models.Truncate(text, models.MaxDescriptionLen)
		}
	}

	return ""
}

// extractCTAButtons scans anchors and buttons for purchase-intent keywords,
// resolves relative links against the page URL and deduplicates by
// (lowercased label, resolved URL), preserving first-seen order.
func extractCTAButtons(r *Rules, doc *goquery.Document, base *url.URL) []models.CTAButton {
	var ctas []models.CTAButton
	seen := make(map[string]struct{})

	doc.Find("a, button").Each(func(_ int, el *goquery.Selection) {
		display := textOf(el, "")
		lower := strings.ToLower(display)

		matched := false
		for _, kw := range r.CTAKeywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return
		}

		href, _ := el.Attr("href")
		switch {
		case href == "", strings.HasPrefix(href, "#"), strings.HasPrefix(href, "javascript"):
			href = base.String()
		case !strings.HasPrefix(href, "http"):
			ref, err := url.Parse(href)
			if err != nil {
				href = base.String()
			} else {
				href = base.ResolveReference(ref).String()
			}
		}

		key := lower + "|" + href
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		ctas = append(ctas, models.CTAButton{Text: display, URL: href})
	})

	if len(ctas) > models.MaxCTAButtons {
		ctas = ctas[:models.MaxCTAButtons]
	}
	return ctas
}

// extractReviews keeps snippets in the 20-400 character band (shorter is a
// rating fragment, longer is a scraped article), deduplicated verbatim.
func extractReviews(r *Rules, doc *goquery.Document) []string {
	var reviews []string
	seen := make(map[string]struct{})

	for _, sel := range r.ReviewSelectors {
		doc.FindMatcher(sel).EachWithBreak(func(i int, el *goquery.Selection) bool {
			if i >= models.MaxReviewSnippets {
				return false
			}
			text := textOf(el, " ")
			if n := utf8.RuneCountInString(text); n > 20 && n < 400 {
				if _, dup := seen[text]; !dup {
					seen[text] = struct{}{}
					reviews = append(reviews, text)
				}
			}
			return true
		})
	}

	if len(reviews) > models.MaxReviewSnippets {
		reviews = reviews[:models.MaxReviewSnippets]
	}
	return reviews
}

// cleanText walks the main-content selector cascade and returns the first
// area with enough text, collapsing runs of blank lines. Falls back to the
// whole document so downstream always gets something to reason about.
func cleanText(r *Rules, doc *goquery.Document) string {
	for _, sel := range r.ContentSelectors {
		el := doc.FindMatcher(sel).First()
		if el.Length() == 0 {
			continue
		}
		text := blankLinesRe.ReplaceAllString(textOf(el, "\n"), "\n\n")
		if len(text) > 100 {
			return text
		}
	}
	return textOf(doc.Selection, "\n")
}

// textOf returns the visible text of the first matched node: each text node
// is trimmed, empties dropped, and the rest joined with sep. Mirrors what a
// DOM get-text with a separator produces.
func textOf(sel *goquery.Selection, sep string) string {
	if sel.Length() == 0 {
		return ""
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(sel.Nodes[0])

	return strings.Join(parts, sep)
}

// stripMarkup flattens an HTML fragment (vendor rich-text descriptions) to
// space-joined plain text.
func stripMarkup(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return textOf(doc.Selection, " ")
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}
