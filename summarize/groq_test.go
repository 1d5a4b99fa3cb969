package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agent-first/agentmap/config"
	"github.com/agent-first/agentmap/models"
)

func llmServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(config.LLMConfig{
		APIKey:  "test-key",
		Model:   "llama-3.3-70b-versatile",
		BaseURL: srv.URL,
	})
	require.NotNil(t, c)
	return c
}

func completion(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
		"usage": map[string]any{"prompt_tokens": 100, "completion_tokens": 50, "total_tokens": 150},
	}
}

func sampleProduct() *models.Product {
	price := "$29.99"
	return &models.Product{
		URL:         "https://acme.test/products/hoodie",
		Title:       "Classic Hoodie",
		Price:       &price,
		Description: "Soft fleece hoodie.",
		RawText:     "Product: Classic Hoodie",
		CTAButtons:  []models.CTAButton{{Text: "Buy Now", URL: "https://acme.test/cart"}},
		Source:      models.SourceVendorJSON,
		StockHint:   models.StockInStock,
	}
}

func TestNewClient_NilWithoutKey(t *testing.T) {
	require.Nil(t, NewClient(config.LLMConfig{}))
}

func TestSummarize_ParsesModelOutput(t *testing.T) {
	var gotReq chatRequest
	c := llmServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(completion(`{
			"title": "Classic Hoodie",
			"price": "$29.99",
			"primary_benefit": "Stays warm all winter.",
			"best_for_intent": "cozy winter hoodie",
			"why_buy": "Fleece-lined warmth under thirty dollars",
			"stock_status": "in_stock",
			"target_audience": "casual winter wearers",
			"cta_url": "https://acme.test/cart",
			"sentiment": "positive",
			"confidence": 0.9
		}`))
	})

	s, err := c.Summarize(context.Background(), sampleProduct())
	require.NoError(t, err)
	require.Equal(t, "Classic Hoodie", s.Title)
	require.Equal(t, 0.9, s.Confidence)
	require.Equal(t, "https://acme.test/cart", s.CTAURL)

	require.Equal(t, "llama-3.3-70b-versatile", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	require.Equal(t, "system", gotReq.Messages[0].Role)
	require.Contains(t, gotReq.Messages[1].Content, "Title: Classic Hoodie")
	require.Contains(t, gotReq.Messages[1].Content, "Stock Status (verified from API): in_stock")
	require.Equal(t, 0.1, gotReq.Temperature)
	require.Equal(t, 1024, gotReq.MaxTokens)
}

func TestSummarize_StripsMarkdownFences(t *testing.T) {
	c := llmServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completion("```json\n{\"title\": \"Fenced\", \"confidence\": 0.8}\n```"))
	})

	s, err := c.Summarize(context.Background(), sampleProduct())
	require.NoError(t, err)
	require.Equal(t, "Fenced", s.Title)
}

func TestSummarize_FallbackOnUnparseableOutput(t *testing.T) {
	c := llmServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completion("I'm sorry, I cannot produce JSON today."))
	})

	s, err := c.Summarize(context.Background(), sampleProduct())
	require.NoError(t, err)
	require.Equal(t, "Classic Hoodie", s.Title)
	require.Equal(t, models.StockUnknown, s.StockStatus)
	require.Equal(t, 0.1, s.Confidence)
	require.Equal(t, "https://acme.test/cart", s.CTAURL)
}

func TestSummarize_CTAURLBackfill(t *testing.T) {
	c := llmServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completion(`{"title": "No CTA", "confidence": 0.7}`))
	})

	p := sampleProduct()
	p.CTAButtons = nil
	s, err := c.Summarize(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, p.URL, s.CTAURL)
}

func TestChat_ErrorMapping(t *testing.T) {
	cases := []struct {
		status   int
		wantCode string
	}{
		{http.StatusTooManyRequests, models.ErrCodeLLMRateLimited},
		{http.StatusUnauthorized, models.ErrCodeLLMAuthFailure},
		{http.StatusForbidden, models.ErrCodeLLMAuthFailure},
		{http.StatusInternalServerError, models.ErrCodeLLMFailure},
	}

	for _, tc := range cases {
		c := llmServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "nope"}})
		})

		_, _, err := c.Chat(context.Background(), "system", "user", 0.7, 512)
		var scrapeErr *models.ScrapeError
		require.ErrorAs(t, err, &scrapeErr, "status %d", tc.status)
		require.Equal(t, tc.wantCode, scrapeErr.Code, "status %d", tc.status)
	}
}

func TestChat_ReturnsUsage(t *testing.T) {
	c := llmServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completion("an answer"))
	})

	answer, usage, err := c.Chat(context.Background(), "system", "user", 0.7, 512)
	require.NoError(t, err)
	require.Equal(t, "an answer", answer)
	require.Equal(t, 150, usage.TotalTokens)
}

func TestStripFences(t *testing.T) {
	require.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
