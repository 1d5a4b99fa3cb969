package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeTimeout           = "SCRAPE_TIMEOUT"
	ErrCodeHTTP              = "HTTP_ERROR"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeBotProtection     = "BOT_PROTECTION"
	ErrCodeRenderUnavailable = "RENDER_UNAVAILABLE"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeInternal          = "INTERNAL_ERROR"

	// LLM-related error codes for summarization and comparison.
	ErrCodeLLMFailure     = "LLM_FAILURE"
	ErrCodeLLMAuthFailure = "LLM_AUTH_FAILURE"
	ErrCodeLLMRateLimited = "LLM_RATE_LIMITED"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// Status holds the upstream HTTP status for HTTP_ERROR / RATE_LIMITED.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Status  int
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// NewHTTPError creates a ScrapeError for a non-2xx upstream response.
func NewHTTPError(status int, url string) *ScrapeError {
	code := ErrCodeHTTP
	if status == 429 {
		code = ErrCodeRateLimited
	}
	return &ScrapeError{
		Code:    code,
		Message: fmt.Sprintf("HTTP %d fetching %s", status, url),
		Status:  status,
	}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}
