package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/agent-first/agentmap/config"
	"github.com/agent-first/agentmap/models"
)

// Renderer obtains fully rendered HTML for pages that need script execution
// or that block non-browser clients. Implemented by render.Worker; tests
// substitute a stub.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Scraper turns a commerce-page URL into a normalized product record. It
// holds no per-call state, so a single instance is safe for concurrent use.
type Scraper struct {
	cfg      config.ScraperConfig
	rules    *Rules
	fetcher  *fetcher
	renderer Renderer
}

// New creates a Scraper. renderer may be nil, in which case every path that
// would escalate to the browser fails with RENDER_UNAVAILABLE instead.
func New(cfg config.ScraperConfig, rules *Rules, renderer Renderer) *Scraper {
	return &Scraper{
		cfg:      cfg,
		rules:    rules,
		fetcher:  newFetcher(),
		renderer: renderer,
	}
}

// Extract is the single entry point: it routes by domain classification,
// sequences the extraction strategies cheapest-first and escalates to
// rendering only when the cheap paths are exhausted or known to be useless.
//
// Strategy order:
//
//	protected domains:  vendor JSON → rendering (plain fetch is known to fail)
//	everything else:    plain fetch → vendor JSON → JSON-LD → HTML heuristics
//	                    (rendering on 403, challenge page, or a weak result
//	                    on a product-detail path)
func (s *Scraper) Extract(ctx context.Context, rawURL string) (*models.Product, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("not a valid absolute URL: %q", rawURL), err)
	}

	// Protected domains reject plain HTTP outright; don't bother fetching.
	// The vendor JSON endpoint still works there because it is a direct
	// data endpoint, so it goes first.
	if s.rules.IsProtected(u.Host) {
		if p, err := s.tryShopifyJSON(ctx, u, models.SourceVendorJSON); err != nil {
			return nil, err
		} else if p != nil {
			slog.Info("vendor JSON bypassed protection", "domain", u.Host, "title", p.Title)
			return p, nil
		}
		slog.Info("protected domain, going straight to rendering", "domain", u.Host)
		return s.renderAndExtract(ctx, u)
	}

	res, err := s.fetcher.Get(ctx, u.String(), s.cfg.FetchTimeout)
	if err != nil {
		if isTimeout(err) {
			return nil, models.NewScrapeError(models.ErrCodeTimeout,
				fmt.Sprintf("request timed out for %s", u.String()), err)
		}
		return nil, models.NewScrapeError(models.ErrCodeHTTP,
			fmt.Sprintf("could not fetch %s", u.String()), err)
	}

	switch {
	case res.Status == 403:
		// Hard block; a rendered browser often gets through.
		slog.Info("403 from plain fetch, escalating to rendering", "domain", u.Host)
		return s.renderAndExtract(ctx, u)
	case res.Status == 429:
		// Never retried here; the caller decides when to back off.
		return nil, models.NewHTTPError(res.Status, u.String())
	case res.Status < 200 || res.Status > 299:
		return nil, models.NewHTTPError(res.Status, u.String())
	}

	body := string(res.Body)

	// HTTP 200 but a JS interstitial instead of content.
	if s.rules.isChallengePage(body) {
		slog.Info("challenge page detected, escalating to rendering", "domain", u.Host)
		return s.renderAndExtract(ctx, u)
	}

	if p, err := s.tryShopifyJSON(ctx, u, models.SourceVendorJSON); err != nil {
		return nil, err
	} else if p != nil {
		slog.Info("extracted via vendor JSON", "domain", u.Host, "title", p.Title)
		return p, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "failed to parse HTML", err)
	}

	if p := tryJSONLD(doc, u.String(), models.SourceStructuredData); p != nil {
		slog.Info("extracted via structured data", "domain", u.Host, "title", p.Title)
		return p, nil
	}

	stripNoise(s.rules, doc)
	p := buildHeuristicProduct(s.rules, doc, body, u, models.SourceHTML)

	// No title on a product-detail path means a JS-rendered storefront;
	// render rather than return a useless "Unknown" record. If rendering
	// fails too, the weak result is still better than nothing.
	if p.Title == models.UnknownTitle && strings.Contains(u.Path, "/products/") {
		slog.Info("title unknown on product path, escalating to rendering", "domain", u.Host)
		rendered, err := s.renderAndExtract(ctx, u)
		if err == nil {
			return rendered, nil
		}
		slog.Warn("rendering fallback failed, returning heuristic result",
			"domain", u.Host, "error", err)
	}

	return p, nil
}

// renderAndExtract runs the rendering fallback: obtain browser-rendered
// HTML, verify it is real content, then re-run the strategy ladder against
// it with "rendered-" source tags.
func (s *Scraper) renderAndExtract(ctx context.Context, u *url.URL) (*models.Product, error) {
	if s.renderer == nil {
		return nil, models.NewScrapeError(models.ErrCodeRenderUnavailable,
			"rendering engine is not configured", nil)
	}

	body, err := s.renderer.Render(ctx, u.String())
	if err != nil {
		return nil, err
	}
	slog.Info("rendered page captured", "domain", u.Host, "bytes", len(body))

	// Still an interstitial after a full render means enterprise bot
	// management; no amount of local retrying will fix that.
	if s.rules.isChallengePage(body) {
		return nil, models.NewScrapeError(models.ErrCodeBotProtection,
			fmt.Sprintf("%s serves a bot-protection block page even when fully rendered; "+
				"this site likely runs enterprise bot management (Akamai or similar) and "+
				"needs a commercial scraping proxy to bypass", u.Host), nil)
	}
	if len(body) < s.rules.MinRenderedSize {
		return nil, models.NewScrapeError(models.ErrCodeBotProtection,
			fmt.Sprintf("%s returned only %d bytes after rendering, implausibly small for "+
				"a product page, likely a block page; a commercial scraping proxy may be required",
				u.Host, len(body)), nil)
	}

	// The vendor JSON endpoint still goes over the plain session: it is
	// the data endpoint, not the page, that bypasses blocking.
	if p, err := s.tryShopifyJSON(ctx, u, models.SourceRenderedVendorJSON); err != nil {
		return nil, err
	} else if p != nil {
		return p, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "failed to parse rendered HTML", err)
	}

	if p := tryJSONLD(doc, u.String(), models.SourceRenderedStructuredData); p != nil {
		return p, nil
	}

	stripNoise(s.rules, doc)
	return buildHeuristicProduct(s.rules, doc, body, u, models.SourceRenderedHTML), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	return errors.As(err, &timeoutErr) && timeoutErr.Timeout()
}
