package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agent-first/agentmap/catalog"
	"github.com/agent-first/agentmap/models"
	"github.com/agent-first/agentmap/store"
)

// Generate returns a handler for POST /generate: rebuild llms.txt and
// agent-map.json from every stored summary.
func Generate(st *store.Store, gen *catalog.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		summaries, err := st.ListSummaries(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		if len(summaries) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "No summaries available. Scrape some URLs first.",
				},
			})
			return
		}

		agentMap, llmsTxt, written, err := gen.Generate(summaries)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.GenerateResponse{
			Status:         "generated",
			ProductCount:   agentMap.ProductCount,
			FilesWritten:   written,
			LLMsTxtPreview: models.Truncate(llmsTxt, catalog.PreviewLimit),
			AgentMap:       agentMap,
		})
	}
}

// LLMsTxt returns a handler for GET /llms.txt: serve the generated catalog
// as plain text, the file an AI agent would fetch.
func LLMsTxt(gen *catalog.Generator) gin.HandlerFunc {
	return func(c *gin.Context) {
		content, ok, err := gen.ReadLLMsTxt()
		if err != nil {
			respondError(c, err)
			return
		}
		if !ok {
			notFound(c, "llms.txt not generated yet. POST to /generate first.")
			return
		}
		c.String(http.StatusOK, content)
	}
}
