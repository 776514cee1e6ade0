package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type recordingStore struct {
	mu      sync.Mutex
	batches [][]StoredDispute
	err     error
	block   chan struct{}
}

func (r *recordingStore) UpsertDisputes(_ context.Context, disputes []StoredDispute) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, disputes)
	return r.err
}

func (r *recordingStore) ListRecentDisputes(context.Context, int) ([]StoredDispute, error) {
	return nil, nil
}

func (r *recordingStore) Close() error { return nil }

func (r *recordingStore) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func TestAsyncWriterDrainsOnClose(t *testing.T) {
	store := &recordingStore{}
	w := NewAsyncWriter(store, 4, zerolog.Nop())

	for i := 0; i < 3; i++ {
		if !w.Enqueue([]StoredDispute{{TenantID: "acme", DisputeID: "x"}}) {
			t.Fatalf("第 %d 批应入队成功", i)
		}
	}
	w.Close()

	if store.count() != 3 {
		t.Fatalf("关闭后应写完 3 批, 实际 %d", store.count())
	}
	if w.Enqueue([]StoredDispute{{DisputeID: "late"}}) {
		t.Fatal("关闭后不应再接受写入")
	}
}

func TestAsyncWriterDropsWhenFull(t *testing.T) {
	store := &recordingStore{block: make(chan struct{})}
	w := NewAsyncWriter(store, 1, zerolog.Nop())

	accepted := 0
	for i := 0; i < 5; i++ {
		if w.Enqueue([]StoredDispute{{DisputeID: "x"}}) {
			accepted++
		}
	}
	if accepted >= 5 {
		t.Fatalf("队列已满时应丢弃部分批次, 实际全部接受")
	}

	close(store.block)
	w.Close()
	if store.count() != accepted {
		t.Fatalf("写入批次 %d 与接受批次 %d 不一致", store.count(), accepted)
	}
}

func TestAsyncWriterSwallowsStoreErrors(t *testing.T) {
	store := &recordingStore{err: errors.New("disk full")}
	w := NewAsyncWriter(store, 2, zerolog.Nop())
	w.Enqueue([]StoredDispute{{DisputeID: "x"}})
	w.Close()
	if store.count() != 1 {
		t.Fatalf("失败的写入也应被尝试一次")
	}
}

func TestAsyncWriterIgnoresEmptyBatch(t *testing.T) {
	store := &recordingStore{}
	w := NewAsyncWriter(store, 2, zerolog.Nop())
	if w.Enqueue(nil) {
		t.Fatal("空批次不应入队")
	}
	w.Close()
}
