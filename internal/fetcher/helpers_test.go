package fetcher

import (
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func fastRetry() RetryOptions {
	return RetryOptions{
		Timeout:     time.Second,
		BackoffUnit: time.Millisecond,
		MaxAttempts: 5,
		UserAgent:   "test",
	}
}
