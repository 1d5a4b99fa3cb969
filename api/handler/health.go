package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agent-first/agentmap/models"
)

// Health returns a handler for GET /health. Kept outside rate limiting so
// monitoring probes always work.
func Health(startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: "0.1.0",
		})
	}
}
