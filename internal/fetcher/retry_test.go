package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRequesterAlwaysRateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	req := NewRequester(fastRetry(), srv.Client(), noopLogger())
	_, err := req.Get(context.Background(), srv.URL+"/page", nil)

	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rl.Attempts != 5 || calls.Load() != 5 {
		t.Fatalf("expected exactly 5 attempts, got attempts=%d calls=%d", rl.Attempts, calls.Load())
	}
	if rl.URL != srv.URL+"/page" {
		t.Fatalf("error should identify the page url, got %s", rl.URL)
	}
}

func TestRequesterRecoversAfterOneRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	req := NewRequester(fastRetry(), srv.Client(), noopLogger())
	resp, err := req.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("second attempt should succeed: %v", err)
	}
	if resp.Attempts != 2 {
		t.Fatalf("expected success on attempt 2, got %d", resp.Attempts)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", resp.Body)
	}
}

func TestRequesterLinearBackoff(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	opts := fastRetry()
	opts.BackoffUnit = 20 * time.Millisecond
	req := NewRequester(opts, srv.Client(), noopLogger())

	start := time.Now()
	if _, err := req.Get(context.Background(), srv.URL, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1×unit after the first 429 plus 2×unit after the second.
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Fatalf("backoff too short: %s", elapsed)
	}
}

func TestRequesterEntitlementNotRetried(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusNotFound} {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
		}))

		req := NewRequester(fastRetry(), srv.Client(), noopLogger())
		_, err := req.Get(context.Background(), srv.URL, nil)
		srv.Close()

		if !errors.Is(err, ErrNotEntitled) {
			t.Fatalf("status %d should map to ErrNotEntitled, got %v", status, err)
		}
		if calls.Load() != 1 {
			t.Fatalf("status %d must not be retried, got %d calls", status, calls.Load())
		}
	}
}

func TestRequesterTimeoutNotRetried(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	opts := fastRetry()
	opts.Timeout = 50 * time.Millisecond
	req := NewRequester(opts, srv.Client(), noopLogger())

	_, err := req.Get(context.Background(), srv.URL, nil)
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("timeouts must not be retried, got %d calls", calls.Load())
	}
}

func TestRequesterOtherStatusIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	req := NewRequester(fastRetry(), srv.Client(), noopLogger())
	_, err := req.Get(context.Background(), srv.URL, nil)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != http.StatusInternalServerError || se.Body != "boom" {
		t.Fatalf("status error should carry diagnostics: %+v", se)
	}
}

func TestRequesterCallerCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	opts := fastRetry()
	opts.BackoffUnit = time.Hour
	req := NewRequester(opts, srv.Client(), noopLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := req.Get(ctx, srv.URL, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("caller deadline should abort the backoff, got %v", err)
	}
}
