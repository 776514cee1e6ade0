package service

import (
	"context"
	"errors"
	"fmt"

	"dispute-analytics/internal/fetcher"
)

// Kind classifies a fatal pipeline failure for the caller.
type Kind string

// Pipeline error kinds.
const (
	KindRateLimited      Kind = "rate_limited"
	KindTimeout          Kind = "timeout"
	KindUpstream         Kind = "upstream"
	KindCurrencySnapshot Kind = "currency_snapshot"
	KindInvalidRequest   Kind = "invalid_request"
	KindUnknownTenant    Kind = "unknown_tenant"
	KindCanceled         Kind = "canceled"
)

// PipelineError is the single structured error surfaced when a run aborts.
type PipelineError struct {
	Kind    Kind   `json:"errorKind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Err     error  `json:"-"`
}

func (e *PipelineError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// KindOf returns the kind of a pipeline error, or "" for any other error.
func KindOf(err error) Kind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func invalidRequest(msg string, err error) *PipelineError {
	pe := &PipelineError{Kind: KindInvalidRequest, Message: msg, Err: err}
	if err != nil {
		pe.Detail = err.Error()
	}
	return pe
}

// classify maps a fetch failure of the named resource onto a pipeline error.
func classify(resource string, err error) *PipelineError {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}

	var rl *fetcher.RateLimitError
	var to *fetcher.TimeoutError
	var se *fetcher.StatusError
	switch {
	case errors.As(err, &rl):
		return &PipelineError{
			Kind:    KindRateLimited,
			Message: fmt.Sprintf("%s: upstream kept rate limiting after %d attempts", resource, rl.Attempts),
			Detail:  rl.URL,
			Err:     err,
		}
	case errors.As(err, &to):
		return &PipelineError{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("%s: upstream did not respond within %s", resource, to.After),
			Detail:  to.URL,
			Err:     err,
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &PipelineError{Kind: KindCanceled, Message: resource + ": run canceled", Err: err}
	case errors.As(err, &se):
		return &PipelineError{
			Kind:    KindUpstream,
			Message: fmt.Sprintf("%s: upstream responded %d", resource, se.Status),
			Detail:  se.Error(),
			Err:     err,
		}
	default:
		return &PipelineError{Kind: KindUpstream, Message: resource + ": fetch failed", Detail: err.Error(), Err: err}
	}
}
