package models

import "time"

// Summary is the agent-ready intelligence record produced by the LLM for a
// scraped product. Field names are part of the catalog contract: the agent
// map and the comparison prompt are keyed to them.
type Summary struct {
	Title          string  `json:"title"`
	Price          *string `json:"price"`
	PrimaryBenefit string  `json:"primary_benefit"`
	BestForIntent  string  `json:"best_for_intent"`
	WhyBuy         string  `json:"why_buy"`
	StockStatus    string  `json:"stock_status"`
	TargetAudience string  `json:"target_audience"`
	CTAURL         string  `json:"cta_url"`
	Sentiment      string  `json:"sentiment"`
	Confidence     float64 `json:"confidence"`
}

// ProductSummary pairs a stored product URL with its summary, the unit the
// catalog generator consumes.
type ProductSummary struct {
	ProductURL string  `json:"product_url"`
	Summary    Summary `json:"summary_data"`
}

// AgentMap is the machine-readable catalog served to AI shopping agents.
type AgentMap struct {
	GeneratedAt  time.Time         `json:"generated_at"`
	ProductCount int               `json:"product_count"`
	Products     []AgentMapProduct `json:"products"`
}

// AgentMapProduct is one catalog entry in agent-map.json.
type AgentMapProduct struct {
	URL            string  `json:"url"`
	Title          string  `json:"title"`
	Price          *string `json:"price"`
	PrimaryBenefit string  `json:"primary_benefit"`
	BestForIntent  string  `json:"best_for_intent"`
	WhyBuy         string  `json:"why_buy"`
	StockStatus    string  `json:"stock_status"`
	TargetAudience string  `json:"target_audience"`
	CTAURL         string  `json:"cta_url"`
	Sentiment      string  `json:"sentiment"`
	Confidence     float64 `json:"confidence"`
}

// LLMUsage reports token consumption from an LLM call.
type LLMUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
