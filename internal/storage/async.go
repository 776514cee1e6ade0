package storage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AsyncWriter hands dispute batches to a background goroutine so callers never
// wait on persistence. Failures are logged and dropped.
type AsyncWriter struct {
	store   DisputeStore
	queue   chan []StoredDispute
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewAsyncWriter starts the background writer. queueSize bounds pending batches.
func NewAsyncWriter(store DisputeStore, queueSize int, logger zerolog.Logger) *AsyncWriter {
	if queueSize <= 0 {
		queueSize = 64
	}
	w := &AsyncWriter{
		store:   store,
		queue:   make(chan []StoredDispute, queueSize),
		timeout: 30 * time.Second,
		logger:  logger.With().Str("component", "persistence").Logger(),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w
}

// Enqueue schedules a batch. It never blocks; a full queue drops the batch.
func (w *AsyncWriter) Enqueue(batch []StoredDispute) bool {
	if w == nil || len(batch) == 0 {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.logger.Warn().Int("disputes", len(batch)).Msg("writer closed, dropping batch")
		return false
	}

	select {
	case w.queue <- batch:
		return true
	default:
		w.logger.Warn().Int("disputes", len(batch)).Msg("persistence queue full, dropping batch")
		return false
	}
}

// Close stops accepting batches and waits for pending writes to finish.
func (w *AsyncWriter) Close() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *AsyncWriter) loop() {
	defer close(w.done)
	for batch := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		if err := w.store.UpsertDisputes(ctx, batch); err != nil {
			w.logger.Error().Err(err).Int("disputes", len(batch)).Msg("failed to persist disputes")
		} else {
			w.logger.Debug().Int("disputes", len(batch)).Msg("disputes persisted")
		}
		cancel()
	}
}
