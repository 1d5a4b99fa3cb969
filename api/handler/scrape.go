package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agent-first/agentmap/models"
	"github.com/agent-first/agentmap/scraper"
	"github.com/agent-first/agentmap/store"
	"github.com/agent-first/agentmap/summarize"
)

// Scrape returns a handler for POST /scrape.
//
// Flow:
//  1. Parse & validate request.
//  2. Cached lookup: an already-indexed URL short-circuits unless
//     force_refresh is set.
//  3. Scraper.Extract to a normalized product record.
//  4. Summarize via LLM (skipped with a warning when no key is configured).
//  5. Upsert product + summary, return the stored record.
func Scrape(sc *scraper.Scraper, sum *summarize.Client, st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		ctx := c.Request.Context()

		existing, err := st.GetProductByURL(ctx, req.URL)
		if err != nil {
			respondError(c, err)
			return
		}
		if existing != nil && !req.ForceRefresh {
			c.JSON(http.StatusOK, models.ScrapeResponse{
				Status:    "cached",
				ProductID: existing.ID,
				Message:   "Already indexed. Pass force_refresh=true to re-scrape.",
				Product:   existing,
			})
			return
		}

		product, err := sc.Extract(ctx, req.URL)
		if err != nil {
			respondError(c, err)
			return
		}

		var summary *models.Summary
		if sum != nil {
			summary, err = sum.Summarize(ctx, product)
			if err != nil {
				respondError(c, err)
				return
			}
		} else {
			slog.Warn("no LLM key configured, storing product without summary", "url", req.URL)
		}

		id, err := st.SaveProduct(ctx, product, summary)
		if err != nil {
			respondError(c, err)
			return
		}

		stored, err := st.GetProduct(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.ScrapeResponse{
			Status:    "indexed",
			ProductID: id,
			Product:   stored,
		})
	}
}
