package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestPoolDrainsOnStop(t *testing.T) {
	p := NewPool("test", 3, 10, zaptest.NewLogger(t))
	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		if err := p.Push(func(context.Context) error {
			ran.Add(1)
			return nil
		}); err != nil {
			t.Fatalf("Push %d: %v", i, err)
		}
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := ran.Load(); got != 10 {
		t.Errorf("ran = %d, want 10", got)
	}
	if err := p.Push(func(context.Context) error { return nil }); !errors.Is(err, ErrPoolStopped) {
		t.Errorf("Push after stop = %v, want ErrPoolStopped", err)
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Errorf("second Stop = %v", err)
	}
}

func TestPoolQueueFull(t *testing.T) {
	p := NewPool("full", 1, 1, zaptest.NewLogger(t))
	release := make(chan struct{})
	started := make(chan struct{})

	if err := p.Push(func(context.Context) error {
		close(started)
		<-release
		return nil
	}); err != nil {
		t.Fatalf("Push blocker: %v", err)
	}
	<-started
	if err := p.Push(func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Push queued: %v", err)
	}
	if err := p.Push(func(context.Context) error { return nil }); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Push overflow = %v, want ErrQueueFull", err)
	}
	close(release)
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestPoolStopTimeoutCancelsJobs(t *testing.T) {
	p := NewPool("slow", 1, 1, zaptest.NewLogger(t))
	started := make(chan struct{})
	if err := p.Push(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop = %v, want deadline exceeded", err)
	}
}

func TestPoolRecoversPanics(t *testing.T) {
	p := NewPool("panic", 1, 2, zaptest.NewLogger(t))
	var ran atomic.Bool
	_ = p.Push(func(context.Context) error { panic("bad job") })
	_ = p.Push(func(context.Context) error {
		ran.Store(true)
		return nil
	})
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !ran.Load() {
		t.Error("job after panic did not run")
	}
}
