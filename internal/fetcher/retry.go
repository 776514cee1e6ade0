package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultBackoffUnit    = 1200 * time.Millisecond
	defaultMaxAttempts    = 5
)

// RetryOptions parameterise the per-page request controller.
type RetryOptions struct {
	Timeout     time.Duration
	BackoffUnit time.Duration
	MaxAttempts int
	UserAgent   string
}

// Response is a fully read upstream response.
type Response struct {
	Body     []byte
	Header   http.Header
	Attempts int
}

// Requester issues GET requests with a per-request deadline and linear backoff on 429.
type Requester struct {
	opts   RetryOptions
	client *http.Client
	logger zerolog.Logger
}

// NewRequester constructs a request controller. Zero options fall back to the
// upstream's documented limits.
func NewRequester(opts RetryOptions, client *http.Client, logger zerolog.Logger) *Requester {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRequestTimeout
	}
	if opts.BackoffUnit <= 0 {
		opts.BackoffUnit = defaultBackoffUnit
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Requester{
		opts:   opts,
		client: client,
		logger: logger.With().Str("component", "requester").Logger(),
	}
}

// Get fetches url, retrying only on HTTP 429. Timeouts, entitlement failures and
// every other non-2xx status are returned immediately.
func (r *Requester) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	for attempt := 1; ; attempt++ {
		status, resp, err := r.do(ctx, url, header)
		if err != nil {
			return nil, err
		}

		switch {
		case status >= 200 && status < 300:
			resp.Attempts = attempt
			return resp, nil
		case status == http.StatusTooManyRequests:
			if attempt >= r.opts.MaxAttempts {
				return nil, &RateLimitError{URL: url, Attempts: attempt}
			}
			delay := r.opts.BackoffUnit * time.Duration(attempt)
			r.logger.Warn().
				Str("url", url).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("rate limited; backing off")
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		case status == http.StatusUnauthorized || status == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s (%d)", ErrNotEntitled, url, status)
		default:
			return nil, &StatusError{URL: url, Status: status, Body: string(resp.Body)}
		}
	}
}

func (r *Requester) do(ctx context.Context, url string, header http.Header) (int, *Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if r.opts.UserAgent != "" {
		req.Header.Set("User-Agent", r.opts.UserAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, nil, r.classify(ctx, reqCtx, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, r.classify(ctx, reqCtx, url, err)
	}

	return resp.StatusCode, &Response{Body: body, Header: resp.Header}, nil
}

// classify separates our own request deadline from caller cancellation and
// plain network failures.
func (r *Requester) classify(parent, reqCtx context.Context, url string, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{URL: url, After: r.opts.Timeout.String()}
	}
	return fmt.Errorf("request %s: %w", url, err)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
