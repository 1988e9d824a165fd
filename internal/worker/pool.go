package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned by Push when the queue has no free slot.
	ErrQueueFull = errors.New("worker queue full")
	// ErrPoolStopped is returned by Push after Stop was called.
	ErrPoolStopped = errors.New("worker pool stopped")
)

// Job is a unit of background work.
type Job func(ctx context.Context) error

// Pool runs jobs on a fixed number of goroutines over a bounded queue.
type Pool struct {
	name   string
	logger *zap.Logger
	queue  chan Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewPool starts workers goroutines. Jobs see a context that is cancelled
// only when Stop gives up waiting.
func NewPool(name string, workers, queueSize int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		name:   name,
		logger: logger.With(zap.String("pool", name)),
		queue:  make(chan Job, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run(i)
	}
	return p
}

func (p *Pool) run(id int) {
	defer p.wg.Done()
	for job := range p.queue {
		p.execute(id, job)
	}
}

func (p *Pool) execute(id int, job Job) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", zap.Int("worker", id), zap.Any("panic", r))
		}
	}()
	if err := job(p.ctx); err != nil {
		p.logger.Warn("job failed", zap.Int("worker", id), zap.Error(err))
	}
}

// Push enqueues a job without blocking.
func (p *Pool) Push(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new jobs and waits for queued ones to drain. When ctx ends
// first, running jobs are cancelled and ctx.Err() is returned.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}
