package scraper

import (
	"regexp"

	"github.com/andybalholm/cascadia"
)

// Rules bundles every constant table the extraction pipeline consults:
// challenge markers, selector cascades, CTA keywords, price patterns and the
// protected-domain set. A Rules value is immutable after construction and is
// passed to the Scraper so tests can substitute smaller fixtures.
type Rules struct {
	// ProtectedDomains are sites known to reject all plain HTTP scrapers
	// (Akamai, Cloudflare Enterprise). For these the vendor JSON endpoint
	// is tried first and rendering is the only other option.
	ProtectedDomains map[string]struct{}

	// ChallengeMarkers are substrings that only occur in bot-protection
	// interstitials (cookie names, block-page fragments).
	ChallengeMarkers []string

	// ChallengeTitles are normalized <title> phrases of interstitials.
	ChallengeTitles []string

	// NoiseSelector matches elements stripped before heuristic extraction.
	NoiseSelector cascadia.Selector

	TitleSelectors       []cascadia.Selector
	PriceSelectors       []cascadia.Selector
	DescriptionSelectors []cascadia.Selector
	ReviewSelectors      []cascadia.Selector
	ContentSelectors     []cascadia.Selector

	// CTAKeywords are matched case-insensitively as substrings of
	// anchor/button text.
	CTAKeywords []string

	// PricePatterns is the regex cascade applied to raw HTML when no
	// selector matched. Every pattern requires at least two digits so a
	// "$9" shoe size or rating never passes for a price.
	PricePatterns []*regexp.Regexp

	// MinRenderedSize is the smallest byte count a rendered page can have
	// and still plausibly be a real product page; block pages are tiny.
	MinRenderedSize int
}

// DefaultRules returns the production rule set. Selector cascades are
// ordered highest-fidelity first; extraction stops at the first match that
// passes the per-field content heuristic.
func DefaultRules() *Rules {
	return &Rules{
		ProtectedDomains: toSet(
			"adidas.com", "www.adidas.com",
			"supreme.com", "www.supreme.com",
			"ticketmaster.com", "www.ticketmaster.com",
			"reebok.com", "www.reebok.com",
		),

		ChallengeMarkers: []string{
			// Cloudflare JS challenge markers
			"cf-browser-verification",
			"cf_chl_opt",
			"cf_chl_prog",
			"__cf_chl_tk__",
			"DDoS protection by Cloudflare",
			"Checking if the site connection is secure",
			// Akamai Bot Manager markers
			"_abck",
			"ak_bmsc",
			"akamai-ghost",
			"Pardon Our Interruption",
		},

		ChallengeTitles: []string{
			// Cloudflare titles
			"just a moment",
			"attention required",
			"checking your browser",
			"please wait",
			"security check",
			"one moment, please",
			// Akamai / generic block titles
			"access denied",
			"pardon our interruption",
			"service unavailable",
			"forbidden",
		},

		NoiseSelector: cascadia.MustCompile(
			"script, style, nav, header, footer, iframe, noscript, aside, meta, link, form",
		),

		TitleSelectors: compileAll(
			"h1",
			"[itemprop='name']",
			"[class*='product-title']",
			"[class*='product-name']",
			"[class*='product__title']",
			"[class*='ProductTitle']",
		),

		PriceSelectors: compileAll(
			"[itemprop='price']",
			"[class*='price--sale']", "[class*='sale-price']",
			"[class*='current-price']", "[class*='product-price']",
			"[class*='price']", "[id*='price']",
			".price", "#price", ".cost",
			"span[class*='Price']",
		),

		DescriptionSelectors: compileAll(
			"[itemprop='description']",
			"[class*='product-description']",
			"[class*='product-detail']",
			"[class*='product-body']",
			"[class*='description']",
			".description", "#description",
			"[data-testid*='description']",
		),

		ReviewSelectors: compileAll(
			".review-text", ".review-body", ".customer-review",
			"[class*='review-content']", "[class*='testimonial']",
			"[class*='review-text']", "[class*='review-body']",
			"[data-testid*='review']",
		),

		ContentSelectors: compileAll(
			"main", "article",
			"[class*='product-detail']", "[class*='product-page']",
			"[class*='ProductPage']", "[class*='product__info']",
			"[role='main']", ".content", "#content",
			"body",
		),

		CTAKeywords: []string{
			"buy now", "add to cart", "shop now", "get it now",
			"order now", "purchase", "checkout", "add to bag",
			"get yours", "buy today",
		},

		PricePatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\$[\d,]*\d{2,}\.?\d*`),
			regexp.MustCompile(`(?i)USD\s*[\d,]*\d{2,}\.?\d*`),
			regexp.MustCompile(`(?i)[\d,]*\d{2,}\.?\d*\s*USD`),
			regexp.MustCompile(`(?i)£[\d,]*\d{2,}\.?\d*`),
			regexp.MustCompile(`(?i)€[\d,]*\d{2,}\.?\d*`),
			regexp.MustCompile(`(?i)Price[:\s]+\$?[\d,]*\d{2,}\.?\d*`),
		},

		MinRenderedSize: 5000,
	}
}

// IsProtected reports whether the host is in the known-protected set.
func (r *Rules) IsProtected(host string) bool {
	_, ok := r.ProtectedDomains[host]
	return ok
}

func compileAll(selectors ...string) []cascadia.Selector {
	out := make([]cascadia.Selector, len(selectors))
	for i, s := range selectors {
		out[i] = cascadia.MustCompile(s)
	}
	return out
}

func toSet(domains ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		set[d] = struct{}{}
	}
	return set
}
