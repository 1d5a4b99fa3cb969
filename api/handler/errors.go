package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agent-first/agentmap/models"
)

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}
	c.JSON(mapErrorToStatus(scrapeErr), gin.H{"error": scrapeErr.ToDetail()})
}

// mapErrorToStatus translates error codes to HTTP status codes.
// Extraction failures are 422: the request was well-formed, the page just
// could not be turned into a product record.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited, models.ErrCodeLLMRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeLLMFailure, models.ErrCodeLLMAuthFailure:
		return http.StatusBadGateway // 502
	case models.ErrCodeBotProtection, models.ErrCodeHTTP, models.ErrCodeRenderUnavailable:
		return http.StatusUnprocessableEntity // 422
	default:
		return http.StatusInternalServerError // 500
	}
}
