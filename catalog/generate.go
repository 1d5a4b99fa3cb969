// Package catalog renders the agentic sitemap artifacts (llms.txt and
// agent-map.json) from stored product summaries.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/agent-first/agentmap/config"
	"github.com/agent-first/agentmap/models"
)

// PreviewLimit caps the llms.txt preview returned by the generate endpoint.
const PreviewLimit = 3000

// Build assembles the machine-readable agent map from summaries.
func Build(summaries []models.ProductSummary) models.AgentMap {
	products := make([]models.AgentMapProduct, 0, len(summaries))
	for _, ps := range summaries {
		s := ps.Summary
		products = append(products, models.AgentMapProduct{
			URL:            ps.ProductURL,
			Title:          s.Title,
			Price:          s.Price,
			PrimaryBenefit: s.PrimaryBenefit,
			BestForIntent:  s.BestForIntent,
			WhyBuy:         s.WhyBuy,
			StockStatus:    s.StockStatus,
			TargetAudience: s.TargetAudience,
			CTAURL:         s.CTAURL,
			Sentiment:      s.Sentiment,
			Confidence:     s.Confidence,
		})
	}
	return models.AgentMap{
		GeneratedAt:  time.Now().UTC(),
		ProductCount: len(products),
		Products:     products,
	}
}

// RenderLLMsTxt renders the human/agent-readable Markdown catalog.
func RenderLLMsTxt(m models.AgentMap) string {
	var b strings.Builder
	b.WriteString("# Product Catalog\n\n")
	b.WriteString("> Machine-readable product intelligence for AI shopping agents.\n")
	fmt.Fprintf(&b, "> Generated: %s | Products: %d\n\n",
		m.GeneratedAt.Format(time.RFC3339), m.ProductCount)

	for _, p := range m.Products {
		fmt.Fprintf(&b, "## %s\n\n", p.Title)
		fmt.Fprintf(&b, "- URL: %s\n", p.URL)
		fmt.Fprintf(&b, "- Price: %s\n", priceOr(p.Price, "unknown"))
		fmt.Fprintf(&b, "- Best for: %s\n", p.BestForIntent)
		fmt.Fprintf(&b, "- Why buy: %s\n", p.WhyBuy)
		fmt.Fprintf(&b, "- Stock: %s\n", stockOr(p.StockStatus))
		fmt.Fprintf(&b, "- Audience: %s\n", p.TargetAudience)
		fmt.Fprintf(&b, "- Buy here: %s\n", p.CTAURL)
		fmt.Fprintf(&b, "- Sentiment: %s | Confidence: %.2f\n\n", p.Sentiment, p.Confidence)
	}
	return b.String()
}

// Context renders the compact per-product catalog lines injected into the
// comparison system prompt. One line per product keeps the prompt small.
func Context(m models.AgentMap) string {
	lines := make([]string, 0, len(m.Products))
	for _, p := range m.Products {
		lines = append(lines, fmt.Sprintf("- %s | %s | %s | %s | %s | %s",
			p.Title, priceOr(p.Price, "?"), p.BestForIntent, p.WhyBuy,
			stockOr(p.StockStatus), p.CTAURL))
	}
	return strings.Join(lines, "\n")
}

// Generator writes catalog artifacts to their configured paths.
type Generator struct {
	cfg config.CatalogConfig
}

func NewGenerator(cfg config.CatalogConfig) *Generator {
	return &Generator{cfg: cfg}
}

// Generate builds both artifacts from summaries, writes them to disk and
// returns the agent map, the full llms.txt text and the paths written.
func (g *Generator) Generate(summaries []models.ProductSummary) (models.AgentMap, string, []string, error) {
	m := Build(summaries)
	llmsTxt := RenderLLMsTxt(m)

	mapJSON, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return m, "", nil, err
	}

	if err := os.WriteFile(g.cfg.LLMsTxtPath, []byte(llmsTxt), 0o644); err != nil {
		return m, "", nil, fmt.Errorf("write %s: %w", g.cfg.LLMsTxtPath, err)
	}
	if err := os.WriteFile(g.cfg.AgentMapPath, mapJSON, 0o644); err != nil {
		return m, "", nil, fmt.Errorf("write %s: %w", g.cfg.AgentMapPath, err)
	}

	return m, llmsTxt, []string{g.cfg.LLMsTxtPath, g.cfg.AgentMapPath}, nil
}

// ReadLLMsTxt returns the last generated llms.txt, or ok=false when the file
// has not been generated yet.
func (g *Generator) ReadLLMsTxt() (string, bool, error) {
	data, err := os.ReadFile(g.cfg.LLMsTxtPath)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func priceOr(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}

func stockOr(s string) string {
	if s == "" {
		return models.StockUnknown
	}
	return s
}
