package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agent-first/agentmap/catalog"
	"github.com/agent-first/agentmap/models"
	"github.com/agent-first/agentmap/store"
	"github.com/agent-first/agentmap/summarize"
)

const baselinePrompt = "You are a helpful shopping assistant. " +
	"Answer the user's question about products. " +
	"You have no specific product catalog — answer from general knowledge."

const contextPromptFormat = `You are an intelligent shopping assistant. You have been given a pre-indexed product catalog (an Agentic Sitemap) built from real product pages.

=== PRODUCT CATALOG ===
%s
=== END CATALOG ===

Instructions:
- Search the catalog first. If one or more products match the user's request, recommend those — cite the exact product name, price, and buy URL so the user can act immediately.
- If the user states a price limit, only recommend catalog products at or below that price. Never suggest a catalog product that exceeds the stated budget.
- When multiple catalog products qualify, list all of them.
- You may use your general knowledge to explain WHY a catalog product fits — but do not recommend products that are not in the catalog.
- If no catalog product matches, say so clearly and describe what IS available.`

// Compare returns a handler for POST /compare: ask the LLM the same
// question twice, once from general knowledge and once with the catalog
// injected, and persist both answers.
func Compare(st *store.Store, sum *summarize.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CompareRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		if sum == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeLLMFailure,
					Message: "no LLM key configured",
				},
			})
			return
		}

		ctx := c.Request.Context()

		summaries, err := st.ListSummaries(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		if len(summaries) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "No indexed products found. Scrape some URLs first.",
				},
			})
			return
		}

		withoutAnswer, withoutUsage, err := sum.Chat(ctx, baselinePrompt, req.Question, 0.7, 512)
		if err != nil {
			respondError(c, err)
			return
		}

		agentMap := catalog.Build(summaries)
		systemWithContext := fmt.Sprintf(contextPromptFormat, catalog.Context(agentMap))

		withAnswer, withUsage, err := sum.Chat(ctx, systemWithContext, req.Question, 0.7, 512)
		if err != nil {
			respondError(c, err)
			return
		}

		if _, err := st.SaveComparison(ctx, &models.Comparison{
			Question:       req.Question,
			WithoutContext: withoutAnswer,
			WithContext:    withAnswer,
		}); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.CompareResponse{
			Question: req.Question,
			WithoutContext: models.CompareAnswer{
				Answer:     withoutAnswer,
				TokensUsed: withoutUsage.TotalTokens,
				Label:      "Baseline — No Product Context",
			},
			WithContext: models.CompareAnswer{
				Answer:     withAnswer,
				TokensUsed: withUsage.TotalTokens,
				Label:      "Agent-First — With Agentic Sitemap",
			},
		})
	}
}

// ListComparisons returns a handler for GET /comparisons: recent
// proof-layer history, newest first.
func ListComparisons(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		comparisons, err := st.ListComparisons(c.Request.Context(), 20)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"count":       len(comparisons),
			"comparisons": comparisons,
		})
	}
}
