package prefetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Task produces the encoded form of one sample. ctx is the context of the
// worker running it, as returned by the pool's WorkerSetup.
type Task func(ctx context.Context) ([]byte, error)

// WorkerSetup runs once on every worker goroutine before it takes a task.
// It receives the context the pool was created with and returns the context
// the worker's tasks run under. Returning nil keeps the pool context.
type WorkerSetup func(ctx context.Context, workerID int) context.Context

// Pending is the handle to a submitted task. The result becomes available
// once Done is closed.
type Pending struct {
	done      chan struct{}
	buf       []byte
	err       error
	discarded atomic.Bool
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

// Done is closed when the task has finished.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Ready reports whether the task has finished, without blocking.
func (p *Pending) Ready() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Result returns the task's output. Only valid after Done is closed.
func (p *Pending) Result() ([]byte, error) { return p.buf, p.err }

// Wait blocks until the task finishes or ctx is done.
func (p *Pending) Wait(ctx context.Context) ([]byte, error) {
	select {
	case <-p.done:
		return p.buf, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Discard abandons the result. It does not stop the task; the worker runs it
// to completion and drops the output. Discard never blocks.
func (p *Pending) Discard() {
	if p.discarded.CompareAndSwap(false, true) && p.Ready() {
		p.buf = nil
	}
}

// Discarded reports whether Discard was called.
func (p *Pending) Discarded() bool { return p.discarded.Load() }

func (p *Pending) complete(buf []byte, err error) {
	if !p.discarded.Load() {
		p.buf = buf
	}
	p.err = err
	close(p.done)
}

type job struct {
	task Task
	p    *Pending
}

// WorkerPool runs submitted tasks on a fixed set of goroutines. Tasks wait
// in an unbounded FIFO, so Submit never blocks.
type WorkerPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []job
	closed  bool
	group   errgroup.Group
	workers int
	log     *slog.Logger
}

// PoolOption configures a WorkerPool.
type PoolOption func(*WorkerPool)

// WithPoolLogger sets the logger used for worker lifecycle events.
func WithPoolLogger(l *slog.Logger) PoolOption {
	return func(p *WorkerPool) {
		if l != nil {
			p.log = l
		}
	}
}

// NewWorkerPool starts workers goroutines. setup, if non-nil, runs once on
// each of them before any task, with ctx captured by value.
func NewWorkerPool(ctx context.Context, workers int, setup WorkerSetup, opts ...PoolOption) (*WorkerPool, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("%w: workers=%d", ErrInvalidArgument, workers)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	p := &WorkerPool{
		workers: workers,
		log:     slog.New(slog.DiscardHandler),
	}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	for id := range workers {
		p.group.Go(func() error {
			wctx := ctx
			if setup != nil {
				if c := setup(ctx, id); c != nil {
					wctx = c
				}
			}
			for {
				j, ok := p.next()
				if !ok {
					return nil
				}
				j.p.complete(runTask(wctx, j.task))
			}
		})
	}
	p.log.Debug("prefetch: worker pool started", "workers", workers)
	return p, nil
}

// next blocks until a task is queued. It reports false once the pool is
// closed and the queue has drained.
func (p *WorkerPool) next() (job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return job{}, false
	}
	j := p.queue[0]
	p.queue[0] = job{}
	p.queue = p.queue[1:]
	return j, true
}

func runTask(ctx context.Context, task Task) (buf []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, fmt.Errorf("prefetch: task panic: %v", r)
		}
	}()
	return task(ctx)
}

// Submit queues task and returns its handle without blocking. After Close
// the handle is already finished with ErrClosed.
func (p *WorkerPool) Submit(task Task) *Pending {
	pending := newPending()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		pending.complete(nil, ErrClosed)
		return pending
	}
	p.queue = append(p.queue, job{task: task, p: pending})
	p.cond.Signal()
	return pending
}

// Queued returns the number of submitted tasks no worker has started yet.
func (p *WorkerPool) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int { return p.workers }

// Close stops accepting tasks and waits for queued and running ones to finish.
// It is safe to call more than once.
func (p *WorkerPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	err := p.group.Wait()
	p.log.Debug("prefetch: worker pool stopped", "workers", p.workers)
	return err
}
