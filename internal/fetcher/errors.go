package fetcher

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotEntitled marks 401/404 responses: the merchant lacks API scope for the resource.
var ErrNotEntitled = errors.New("resource not entitled")

// RateLimitError is returned once a page has been rate limited on every attempt.
type RateLimitError struct {
	URL      string
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited after %d attempts: %s", e.Attempts, e.URL)
}

// TimeoutError is returned when the upstream did not answer within the request deadline.
type TimeoutError struct {
	URL   string
	After string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no response within %s: %s", e.After, e.URL)
}

// StatusError carries a non-retryable upstream response for diagnostics.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	if body == "" {
		return fmt.Sprintf("upstream error (%d): %s", e.Status, e.URL)
	}
	return fmt.Sprintf("upstream error (%d): %s: %s", e.Status, e.URL, body)
}
