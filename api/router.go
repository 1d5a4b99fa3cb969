package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agent-first/agentmap/api/handler"
	"github.com/agent-first/agentmap/api/middleware"
	"github.com/agent-first/agentmap/catalog"
	"github.com/agent-first/agentmap/config"
	"github.com/agent-first/agentmap/scraper"
	"github.com/agent-first/agentmap/store"
	"github.com/agent-first/agentmap/summarize"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	Routes:  RateLimit
//
// Health endpoint sits outside rate limiting so monitoring probes always work.
func NewRouter(sc *scraper.Scraper, sum *summarize.Client, st *store.Store, gen *catalog.Generator, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/health", handler.Health(startTime))

	limited := r.Group("")
	limited.Use(middleware.RateLimit(cfg.RateLimit))

	limited.POST("/scrape", handler.Scrape(sc, sum, st))

	limited.GET("/products", handler.ListProducts(st))
	limited.GET("/products/:id", handler.GetProduct(st))
	limited.DELETE("/products/:id", handler.DeleteProduct(st))

	limited.POST("/generate", handler.Generate(st, gen))
	limited.GET("/llms.txt", handler.LLMsTxt(gen))

	limited.POST("/compare", handler.Compare(st, sum))
	limited.GET("/comparisons", handler.ListComparisons(st))

	return r
}
