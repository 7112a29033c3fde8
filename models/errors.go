package models

import "fmt"

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidSource = "INVALID_SOURCE"
	ErrCodeFetchFailed   = "FETCH_FAILED"
	ErrCodeTimeout       = "SCRAPE_TIMEOUT"
	ErrCodeBrowserCrash  = "BROWSER_CRASH"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
//
// Message is the caller-facing text: the API copies it verbatim into the
// response's message field.
type ScrapeError struct {
	Code       string
	Message    string
	StatusCode int   // upstream HTTP status, set for ErrCodeFetchFailed
	Err        error // wrapped original error
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

// NewFetchError reports a cart page that answered with a non-2xx status.
func NewFetchError(status int) *ScrapeError {
	return &ScrapeError{
		Code:       ErrCodeFetchFailed,
		Message:    fmt.Sprintf("failed to fetch cart page: HTTP %d", status),
		StatusCode: status,
	}
}
