// Package workerpool runs tasks on a fixed set of goroutines and refuses new
// work instead of queueing it without bound.
package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/marmos91/dittohttp/internal/logger"
)

var (
	// ErrSaturated is returned by Submit when no worker (or queue slot) is
	// free to take the task right now.
	ErrSaturated = errors.New("worker pool saturated")

	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("worker pool closed")
)

// Task is a unit of work. The context is cancelled by Pool.Cancel.
type Task func(ctx context.Context)

// Pool is a fixed-size worker pool with a non-blocking Submit.
//
// A task holds a slot from Submit until it finishes. There are size slots
// for running tasks plus queueSize slots for tasks waiting for a worker, so
// Submit only reports ErrSaturated when every worker is busy and the queue
// is full. With a zero queue size a task is accepted exactly when a worker
// is free.
type Pool struct {
	size  int
	slots int32
	tasks chan Task

	mu     sync.RWMutex
	closed bool

	wg      sync.WaitGroup
	done    chan struct{}
	busy    atomic.Int32
	pending atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
}

// New starts size workers. It panics if size is not positive.
func New(size, queueSize int) *Pool {
	if size <= 0 {
		panic("workerpool: size must be > 0")
	}
	if queueSize < 0 {
		queueSize = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		size:   size,
		slots:  int32(size + queueSize),
		tasks:  make(chan Task, size+queueSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}

	p.wg.Add(size)
	for range size {
		go p.worker()
	}

	go func() {
		p.wg.Wait()
		close(p.done)
	}()
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	p.busy.Add(1)
	defer func() {
		p.busy.Add(-1)
		p.pending.Add(-1)
		if r := recover(); r != nil {
			logger.Error("Panic in worker task: %v", r)
		}
	}()
	task(p.ctx)
}

// acquire reserves a slot. It fails when all slots are taken.
func (p *Pool) acquire() bool {
	for {
		n := p.pending.Load()
		if n >= p.slots {
			return false
		}
		if p.pending.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Submit hands task to the pool without blocking.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}
	if !p.acquire() {
		return ErrSaturated
	}

	// The channel holds as many tasks as there are slots, so this never
	// blocks.
	p.tasks <- task
	return nil
}

// Close stops accepting tasks. Queued and running tasks still complete.
// Close is idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.tasks)
}

// Cancel cancels the context passed to running tasks.
func (p *Pool) Cancel() {
	p.cancel()
}

// Wait blocks until every worker has exited after Close, or ctx is done.
// It can be called again after a timeout.
func (p *Pool) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		p.cancel()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Busy returns the number of workers currently running a task.
func (p *Pool) Busy() int { return int(p.busy.Load()) }

// Pending returns the number of accepted tasks that have not finished,
// running or queued.
func (p *Pool) Pending() int { return int(p.pending.Load()) }
