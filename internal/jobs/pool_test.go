package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/launchcopy-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestPoolRunsSubmittedTasks(t *testing.T) {
	pool := NewPool(testLogger(t), 2, 16)
	pool.Start(context.Background())

	var ran int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		err := pool.Submit(Task{
			Name: "count",
			Fn: func(ctx context.Context) {
				atomic.AddInt32(&ran, 1)
				wg.Done()
			},
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()
	pool.Stop()

	if got := atomic.LoadInt32(&ran); got != 10 {
		t.Fatalf("tasks run: want 10, got %d", got)
	}
}

func TestPoolRejectsWhenNotStarted(t *testing.T) {
	pool := NewPool(testLogger(t), 1, 1)
	if err := pool.Submit(Task{Name: "x", Fn: func(ctx context.Context) {}}); err == nil {
		t.Fatalf("Submit before Start must fail")
	}
}

func TestPoolRejectsWhenFull(t *testing.T) {
	pool := NewPool(testLogger(t), 1, 1)
	pool.Start(context.Background())
	defer pool.Stop()

	block := make(chan struct{})
	defer close(block)

	// Occupy the single worker, then fill the single queue slot.
	if err := pool.Submit(Task{Name: "blocker", Fn: func(ctx context.Context) { <-block }}); err != nil {
		t.Fatalf("Submit blocker: %v", err)
	}
	// Give the worker a moment to pick the blocker up.
	deadline := time.Now().Add(time.Second)
	queued := false
	for time.Now().Before(deadline) {
		if err := pool.Submit(Task{Name: "queued", Fn: func(ctx context.Context) {}}); err == nil {
			queued = true
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !queued {
		t.Fatalf("could not queue a task behind the blocker")
	}

	if err := pool.Submit(Task{Name: "overflow", Fn: func(ctx context.Context) {}}); err == nil {
		t.Fatalf("Submit on a full queue must fail")
	}
}

func TestPoolStopDrainsQueue(t *testing.T) {
	pool := NewPool(testLogger(t), 1, 16)
	pool.Start(context.Background())

	var ran int32
	for i := 0; i < 8; i++ {
		if err := pool.Submit(Task{
			Name: "drain",
			Fn: func(ctx context.Context) {
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&ran, 1)
			},
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	pool.Stop()

	if got := atomic.LoadInt32(&ran); got != 8 {
		t.Fatalf("queued tasks dropped on Stop: want 8, got %d", got)
	}

	if err := pool.Submit(Task{Name: "late", Fn: func(ctx context.Context) {}}); err == nil {
		t.Fatalf("Submit after Stop must fail")
	}
}

func TestPoolSurvivesPanickingTask(t *testing.T) {
	pool := NewPool(testLogger(t), 1, 4)
	pool.Start(context.Background())

	if err := pool.Submit(Task{Name: "boom", Fn: func(ctx context.Context) { panic("boom") }}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	done := make(chan struct{})
	if err := pool.Submit(Task{Name: "after", Fn: func(ctx context.Context) { close(done) }}); err != nil {
		t.Fatalf("Submit after panic: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker died with the panicking task")
	}
	pool.Stop()
}
