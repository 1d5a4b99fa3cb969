// Package summarize turns scraped product records into agent-ready summaries
// via an OpenAI-compatible chat completion API (Groq by default).
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/agent-first/agentmap/config"
	"github.com/agent-first/agentmap/models"
)

// indexingSystemPrompt defines what "agent-ready" product data looks like.
// The downstream agent map and comparison prompt are keyed to these fields.
const indexingSystemPrompt = `You are an indexing assistant for an AI shopping agent.
Your job: analyze product page content and extract structured, agent-ready intelligence.

Return ONLY a valid JSON object — no markdown fences, no explanation, no extra text.

Required fields:
{
  "title": "Product name, concise, under 60 chars",
  "price": "Price string like '$29.99', or null if unavailable",
  "primary_benefit": "The single most compelling benefit, one sentence",
  "best_for_intent": "The search intent this product satisfies, e.g. 'budget-friendly skincare for dry skin' or 'high-performance trail running shoes'",
  "why_buy": "Unique selling point in 15 words or fewer — this is what an agent cites",
  "stock_status": "in_stock | out_of_stock | unknown",
  "target_audience": "Who benefits most from this product, specific not generic",
  "cta_url": "The primary buy/checkout URL — must be a real URL string",
  "sentiment": "positive | neutral | negative (based on reviews and tone)",
  "confidence": 0.0 to 1.0 — how confident you are given the data quality
}

Rules:
- why_buy must be ≤ 15 words. Be sharp and specific, not generic ('Great quality!' is bad).
- best_for_intent should read like a search query a shopper would type.
- If price is ambiguous (range, subscription), use the lowest entry price.
- confidence < 0.5 means the page had very little product data.
- Never invent data not present in the input.`

const maxRawTextContext = 3000

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage models.LLMUsage `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client calls the chat completion API. Safe for concurrent use.
type Client struct {
	http  *resty.Client
	model string
}

// NewClient builds a Client. Returns nil when no API key is configured; the
// caller treats a nil client as "summarization disabled".
func NewClient(cfg config.LLMConfig) *Client {
	if cfg.APIKey == "" {
		return nil
	}
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	return &Client{http: c, model: cfg.Model}
}

// Chat runs a single system+user exchange and returns the assistant text.
func (c *Client) Chat(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, *models.LLMUsage, error) {
	var out chatResponse
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: user},
			},
			Temperature: temperature,
			MaxTokens:   maxTokens,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", nil, models.NewScrapeError(models.ErrCodeLLMFailure, "LLM request failed", err)
	}

	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		switch resp.StatusCode() {
		case 429:
			return "", nil, models.NewScrapeError(models.ErrCodeLLMRateLimited,
				fmt.Sprintf("LLM rate limit reached: %s", msg), nil)
		case 401, 403:
			return "", nil, models.NewScrapeError(models.ErrCodeLLMAuthFailure,
				fmt.Sprintf("LLM auth rejected: %s", msg), nil)
		default:
			return "", nil, models.NewScrapeError(models.ErrCodeLLMFailure,
				fmt.Sprintf("LLM returned HTTP %d: %s", resp.StatusCode(), msg), nil)
		}
	}

	if len(out.Choices) == 0 {
		return "", nil, models.NewScrapeError(models.ErrCodeLLMFailure, "LLM returned no choices", nil)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), &out.Usage, nil
}

// Summarize indexes one product. Unparseable model output degrades to a
// minimal fallback summary rather than failing the whole scrape.
func (c *Client) Summarize(ctx context.Context, p *models.Product) (*models.Summary, error) {
	raw, _, err := c.Chat(ctx, indexingSystemPrompt, buildUserMessage(p), 0.1, 1024)
	if err != nil {
		return nil, err
	}

	var s models.Summary
	if jsonErr := json.Unmarshal([]byte(stripFences(raw)), &s); jsonErr != nil {
		slog.Error("summary JSON parse failed, using fallback",
			"url", p.URL, "error", jsonErr)
		s = fallbackSummary(p)
	}

	if s.CTAURL == "" {
		if len(p.CTAButtons) > 0 {
			s.CTAURL = p.CTAButtons[0].URL
		} else {
			s.CTAURL = p.URL
		}
	}

	slog.Info("product summarized", "title", s.Title, "confidence", s.Confidence)
	return &s, nil
}

func buildUserMessage(p *models.Product) string {
	ctaJSON, _ := json.Marshal(p.CTAButtons)
	reviewJSON, _ := json.Marshal(p.ReviewSnippets)

	var stockNote string
	if p.StockHint != "" && p.StockHint != models.StockUnknown {
		stockNote = fmt.Sprintf("\nStock Status (verified from API): %s", p.StockHint)
	}

	price := "Not found"
	if p.Price != nil {
		price = *p.Price
	}

	return fmt.Sprintf(`Analyze this product page and return the structured JSON summary.
Data source: %s%s

--- PRODUCT PAGE DATA ---
URL: %s
Title: %s
Price: %s
Description: %s
CTA Buttons: %s
Customer Reviews: %s

Page Content:
%s
--- END DATA ---

Return ONLY the JSON object.`,
		p.Source, stockNote,
		p.URL, p.Title, price, p.Description,
		ctaJSON, reviewJSON,
		models.Truncate(p.RawText, maxRawTextContext))
}

// stripFences removes accidental markdown code fences around JSON output.
func stripFences(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	parts := strings.Split(raw, "```")
	if len(parts) < 2 {
		return raw
	}
	body := parts[1]
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body)
}

func fallbackSummary(p *models.Product) models.Summary {
	benefit := p.Description
	if benefit == "" {
		benefit = "See product page for details"
	}
	ctaURL := p.URL
	if len(p.CTAButtons) > 0 {
		ctaURL = p.CTAButtons[0].URL
	}
	return models.Summary{
		Title:          p.Title,
		Price:          p.Price,
		PrimaryBenefit: models.Truncate(benefit, 120),
		BestForIntent:  "general shopping",
		WhyBuy:         "Visit the product page for details",
		StockStatus:    models.StockUnknown,
		TargetAudience: "general consumers",
		CTAURL:         ctaURL,
		Sentiment:      "neutral",
		Confidence:     0.1,
	}
}
