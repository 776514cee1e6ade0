package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNextTickAligned(t *testing.T) {
	s := New(Options{Interval: time.Hour, AlignToStart: true}, zerolog.Nop())
	now := time.Date(2024, 5, 1, 10, 17, 0, 0, time.UTC)

	got := s.nextTick(now)
	want := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("下一个对齐时间应为 %s, 实际 %s", want, got)
	}

	onBoundary := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	if got := s.nextTick(onBoundary); !got.Equal(onBoundary.Add(time.Hour)) {
		t.Fatalf("整点时应跳到下一个周期, 实际 %s", got)
	}
	if got := s.bucketStart(now); !got.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("bucketStart 不正确: %s", got)
	}
}

func TestNextTickUnaligned(t *testing.T) {
	s := New(Options{Interval: 15 * time.Minute}, zerolog.Nop())
	now := time.Date(2024, 5, 1, 10, 17, 3, 0, time.UTC)
	if got := s.nextTick(now); !got.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("未对齐模式应直接加间隔, 实际 %s", got)
	}
	if got := s.bucketStart(now); !got.Equal(now) {
		t.Fatalf("未对齐模式 bucket 应为原时间")
	}
}

func TestRunOnStartAndCancel(t *testing.T) {
	s := New(Options{Interval: time.Hour, RunOnStart: true}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	var calls int32
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(context.Context, time.Time) error {
			atomic.AddInt32(&calls, 1)
			cancel()
			return errors.New("tick failure is logged only")
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("取消后应返回 context.Canceled, 实际 %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run 未在取消后退出")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("启动时应执行一次, 实际 %d", calls)
	}
}

func TestNewPanicsOnZeroInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("间隔为 0 时应 panic")
		}
	}()
	New(Options{}, zerolog.Nop())
}
