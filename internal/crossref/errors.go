package crossref

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the Crossref client and mapper.
var (
	// ErrNotFound indicates the DOI is unknown to Crossref.
	ErrNotFound = errors.New("DOI not found in Crossref")

	// ErrRateLimited indicates Crossref rejected the request for rate.
	ErrRateLimited = errors.New("Crossref rate limit exceeded")

	// ErrNetworkError indicates a transport failure.
	ErrNetworkError = errors.New("network error communicating with Crossref")

	// ErrInvalidResponse indicates a body that is not JSON or not status "ok".
	ErrInvalidResponse = errors.New("invalid JSON response from Crossref")

	// ErrMissingTitle indicates a work record without a title.
	ErrMissingTitle = errors.New("failed to parse Crossref data: missing title")
)

// APIError is a non-2xx response from Crossref.
type APIError struct {
	StatusCode int
	Message    string
	DOI        string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP Error: %d", e.StatusCode)
}

// IsNotFound returns true if the error indicates an unknown DOI.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
