package models

import "time"

// ScrapeRequest is the payload for POST /scrape.
type ScrapeRequest struct {
	// URL is the product page to index. Required.
	URL string `json:"url" binding:"required,url"`

	// ForceRefresh re-scrapes a URL that is already indexed.
	ForceRefresh bool `json:"force_refresh,omitempty"`
}

// CompareRequest is the payload for POST /compare.
type CompareRequest struct {
	// Question is what the shopping assistant is asked, with and without
	// the catalog context. Required.
	Question string `json:"question" binding:"required"`
}

// StoredProduct is a persisted product record as returned by the API.
type StoredProduct struct {
	ID             int64       `json:"id"`
	URL            string      `json:"url"`
	Title          string      `json:"title"`
	Price          *string     `json:"price"`
	Description    string      `json:"description"`
	CTAButtons     []CTAButton `json:"cta_buttons"`
	ReviewSnippets []string    `json:"review_snippets"`
	CreatedAt      time.Time   `json:"created_at"`
	Summary        *Summary    `json:"summary"`
}

// ScrapeResponse is the response for POST /scrape.
type ScrapeResponse struct {
	// Status is "indexed" for a fresh scrape, "cached" when the URL was
	// already stored and force_refresh was not set.
	Status    string         `json:"status"`
	ProductID int64          `json:"product_id,omitempty"`
	Message   string         `json:"message,omitempty"`
	Product   *StoredProduct `json:"product,omitempty"`
	Error     *ErrorDetail   `json:"error,omitempty"`
}

// CompareAnswer holds one side of a with/without-context comparison.
type CompareAnswer struct {
	Answer     string `json:"answer"`
	TokensUsed int    `json:"tokens_used"`
	Label      string `json:"label"`
}

// CompareResponse is the response for POST /compare.
type CompareResponse struct {
	Question       string        `json:"question"`
	WithoutContext CompareAnswer `json:"without_context"`
	WithContext    CompareAnswer `json:"with_context"`
}

// Comparison is a persisted with/without-context comparison.
type Comparison struct {
	ID             int64     `json:"id"`
	Question       string    `json:"question"`
	WithoutContext string    `json:"without_context"`
	WithContext    string    `json:"with_context"`
	CreatedAt      time.Time `json:"created_at"`
}

// GenerateResponse is the response for POST /generate.
type GenerateResponse struct {
	Status         string   `json:"status"`
	ProductCount   int      `json:"product_count"`
	FilesWritten   []string `json:"files_written"`
	LLMsTxtPreview string   `json:"llms_txt_preview"`
	AgentMap       AgentMap `json:"agent_map"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}
