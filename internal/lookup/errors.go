package lookup

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the lookup clients.
var (
	// ErrNotFound indicates the service had no matching item.
	ErrNotFound = errors.New("no matching item")

	// ErrRateLimited indicates the service answered 429.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error")

	// ErrInvalidResponse indicates an unexpected response body.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrRetriesExhausted wraps the last error once every attempt failed.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// APIError represents a non-success HTTP response from a metadata service.
type APIError struct {
	Service    string
	StatusCode int
	Code       string // not_found, server_error, api_error
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d, code %s): %s", e.Service, e.StatusCode, e.Code, e.Message)
}

// IsNotFound returns true if the error indicates no matching item.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound || apiErr.Code == "not_found"
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

// isRetryable reports whether another attempt may succeed. Network
// failures, rate limiting and server errors are retried; a definite
// answer such as 404 or a malformed body is not.
func isRetryable(err error) bool {
	if errors.Is(err, ErrNetworkError) || IsRateLimited(err) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return false
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(service string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &APIError{Service: service, StatusCode: resp.StatusCode, Code: "not_found", Message: "HTTP 404"}
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w: status %d", service, ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return &APIError{Service: service, StatusCode: resp.StatusCode, Code: "server_error", Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return &APIError{Service: service, StatusCode: resp.StatusCode, Code: "api_error", Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	return nil
}
