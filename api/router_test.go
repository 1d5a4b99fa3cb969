package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/agent-first/agentmap/catalog"
	"github.com/agent-first/agentmap/config"
	"github.com/agent-first/agentmap/models"
	"github.com/agent-first/agentmap/scraper"
	"github.com/agent-first/agentmap/store"
)

// newTestEnv wires a router against a fake storefront, a real sqlite store
// and no LLM client (scraping still indexes, summaries are skipped).
func newTestEnv(t *testing.T) (*gin.Engine, *httptest.Server) {
	t.Helper()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/products/hoodie.json":
			fmt.Fprint(w, `{"product":{"title":"Classic Hoodie","variants":[{"price":"29.99","available":true}]}}`)
		case "/products/hoodie":
			fmt.Fprint(w, `<html><head><title>Classic Hoodie | Acme</title></head><body><h1>Classic Hoodie</h1></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(site.Close)

	dir := t.TempDir()
	st, err := store.Open(config.StoreConfig{Path: filepath.Join(dir, "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.Load()
	cfg.Server.Mode = gin.TestMode
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 1000
	cfg.Catalog.LLMsTxtPath = filepath.Join(dir, "llms.txt")
	cfg.Catalog.AgentMapPath = filepath.Join(dir, "agent-map.json")

	sc := scraper.New(cfg.Scraper, scraper.DefaultRules(), nil)
	gen := catalog.NewGenerator(cfg.Catalog)

	return NewRouter(sc, nil, st, gen, cfg, time.Now()), site
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestEnv(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
}

func TestRouter_ScrapeIndexThenCache(t *testing.T) {
	router, site := newTestEnv(t)
	target := site.URL + "/products/hoodie"

	w := doJSON(t, router, http.MethodPost, "/scrape", models.ScrapeRequest{URL: target})
	require.Equal(t, http.StatusOK, w.Code)

	var first models.ScrapeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.Equal(t, "indexed", first.Status)
	require.NotNil(t, first.Product)
	require.Equal(t, "Classic Hoodie", first.Product.Title)

	w = doJSON(t, router, http.MethodPost, "/scrape", models.ScrapeRequest{URL: target})
	require.Equal(t, http.StatusOK, w.Code)

	var second models.ScrapeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	require.Equal(t, "cached", second.Status)
	require.Equal(t, first.ProductID, second.ProductID)

	w = doJSON(t, router, http.MethodPost, "/scrape",
		models.ScrapeRequest{URL: target, ForceRefresh: true})
	require.Equal(t, http.StatusOK, w.Code)

	var third models.ScrapeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &third))
	require.Equal(t, "indexed", third.Status)
}

func TestRouter_ScrapeValidation(t *testing.T) {
	router, _ := newTestEnv(t)

	w := doJSON(t, router, http.MethodPost, "/scrape", map[string]string{"url": "not-a-url"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/scrape", map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_ProductsCRUD(t *testing.T) {
	router, site := newTestEnv(t)
	target := site.URL + "/products/hoodie"

	w := doJSON(t, router, http.MethodPost, "/scrape", models.ScrapeRequest{URL: target})
	require.Equal(t, http.StatusOK, w.Code)
	var scraped models.ScrapeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scraped))

	w = doJSON(t, router, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Count    int                    `json:"count"`
		Products []models.StoredProduct `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)

	w = doJSON(t, router, http.MethodGet, fmt.Sprintf("/products/%d", scraped.ProductID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/products/9999", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/products/abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/products/%d", scraped.ProductID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/products/%d", scraped.ProductID), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_GenerateRequiresSummaries(t *testing.T) {
	router, site := newTestEnv(t)

	// Products indexed without an LLM client carry no summaries.
	w := doJSON(t, router, http.MethodPost, "/scrape",
		models.ScrapeRequest{URL: site.URL + "/products/hoodie"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/generate", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_LLMsTxtBeforeGeneration(t *testing.T) {
	router, _ := newTestEnv(t)

	w := doJSON(t, router, http.MethodGet, "/llms.txt", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_CompareWithoutLLM(t *testing.T) {
	router, _ := newTestEnv(t)

	w := doJSON(t, router, http.MethodPost, "/compare",
		models.CompareRequest{Question: "best hoodie under $50?"})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_ScrapeFailureIs422(t *testing.T) {
	router, site := newTestEnv(t)

	w := doJSON(t, router, http.MethodPost, "/scrape",
		models.ScrapeRequest{URL: site.URL + "/missing"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Error models.ErrorDetail `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, models.ErrCodeHTTP, resp.Error.Code)
	require.True(t, strings.Contains(resp.Error.Message, "404"))
}

func TestRouter_RateLimit(t *testing.T) {
	// A router with a one-token bucket.
	cfg := config.Load()
	cfg.Server.Mode = gin.TestMode
	cfg.RateLimit.RequestsPerSecond = 0.1
	cfg.RateLimit.Burst = 1

	dir := t.TempDir()
	st, err := store.Open(config.StoreConfig{Path: filepath.Join(dir, "rl.db")})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sc := scraper.New(cfg.Scraper, scraper.DefaultRules(), nil)
	gen := catalog.NewGenerator(cfg.Catalog)
	limited := NewRouter(sc, nil, st, gen, cfg, time.Now())

	w := doJSON(t, limited, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, limited, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	// Health is exempt from rate limiting.
	w = doJSON(t, limited, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
}
