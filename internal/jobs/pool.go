package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/launchcopy-backend/internal/platform/logger"
)

type Task struct {
	Name string
	Fn   func(ctx context.Context)
}

// Pool is a bounded background worker pool. Submit never blocks: when the
// queue is full the task is rejected and the caller decides whether that
// matters. Stop drains queued tasks before returning.
type Pool struct {
	log     *logger.Logger
	tasks   chan Task
	workers int

	mu      sync.Mutex
	wg      sync.WaitGroup
	started bool
	stopped bool
}

func NewPool(baseLog *logger.Logger, workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		log:     baseLog.With("component", "JobPool"),
		tasks:   make(chan Task, queueSize),
		workers: workers,
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		start := time.Now()
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					p.log.Error("Background task panicked", "task", task.Name, "panic", rec)
				}
			}()
			task.Fn(ctx)
		}()
		p.log.Debug("Background task finished", "task", task.Name, "worker", id, "duration_ms", time.Since(start).Milliseconds())
	}
}

func (p *Pool) Submit(task Task) error {
	if task.Fn == nil {
		return fmt.Errorf("nil task fn")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return fmt.Errorf("pool stopped")
	}
	if !p.started {
		return fmt.Errorf("pool not started")
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return fmt.Errorf("queue full, task %q rejected", task.Name)
	}
}

// Stop rejects new submissions, lets queued tasks finish, and waits for the
// workers to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped || !p.started {
		p.stopped = true
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}
