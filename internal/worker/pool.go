package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPoolClosed is returned when submitting to a closed or shut down pool
var ErrPoolClosed = errors.New("worker pool closed")

// Job represents a unit of CPU-bound work
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// PanicError wraps a value recovered from a panicking job
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job panicked: %v", e.Value)
}

type panicResult struct {
	err error
}

func (r *panicResult) GetError() error {
	return r.err
}

type task struct {
	ctx   context.Context
	job   Job
	reply chan Result
}

// Pool is a fixed set of long-lived workers. Each submitted job gets its own
// reply channel, so callers on different goroutines can share one pool.
type Pool struct {
	workers    int
	queue      chan task
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc

	mu        sync.RWMutex
	closed    chan struct{}
	closeOnce sync.Once
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:    workers,
		queue:      make(chan task, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
		closed:     make(chan struct{}),
	}
}

// Workers returns the pool size
func (p *Pool) Workers() int {
	return p.workers
}

// Start starts the worker goroutines
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case t := <-p.queue:
			p.run(t)
		case <-p.closed:
			// finish what was queued before Close
			for {
				select {
				case t := <-p.queue:
					p.run(t)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) run(t task) {
	var result Result
	func() {
		defer func() {
			if v := recover(); v != nil {
				result = &panicResult{err: &PanicError{Value: v}}
			}
		}()
		result = t.job.Execute(t.ctx)
	}()
	t.reply <- result
}

// Submit queues job and returns a channel that receives exactly one result
func (p *Pool) Submit(ctx context.Context, job Job) (<-chan Result, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	select {
	case <-p.closed:
		return nil, ErrPoolClosed
	default:
	}

	t := task{ctx: ctx, job: job, reply: make(chan Result, 1)}
	select {
	case <-p.ctx.Done():
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	case p.queue <- t:
		return t.reply, nil
	}
}

// Do submits job and waits for its result
func (p *Pool) Do(ctx context.Context, job Job) (Result, error) {
	reply, err := p.Submit(ctx, job)
	if err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, ErrPoolClosed
	}
}

// Close stops accepting jobs and waits for queued jobs to finish
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		close(p.closed)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

// Shutdown stops the workers immediately; queued jobs are dropped
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
}
