package prefetch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// Cache serves samples from a Source through a window of prefetched indices.
//
// In prefetch mode, Get(idx) keeps the next WindowSize indices starting at
// idx in flight on a WorkerPool, so a caller walking the source sequentially
// finds each sample already fetched. In pass-through mode (0 workers, 0
// window) Get calls the source directly.
//
// The window is owned by the goroutine calling Get and is not guarded by any
// lock: a Cache must not be used by more than one consumer at a time. Workers
// only ever write into their own Pending handle. GetStats, Workers,
// WindowSize and Size may be called from any goroutine.
type Cache[S any] struct {
	src     Source[S]
	codec   Codec[S]
	workers int
	window  int
	pool    *WorkerPool

	// current is the absolute index of queue[0]; -1 until the first serve.
	current int64
	queue   []*Pending
	closed  bool

	log     *slog.Logger
	metrics Metrics
	stats   counters
}

type workerKey struct{}

// WorkerID returns the id of the pool worker running the current task.
func WorkerID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(workerKey{}).(int)
	return id, ok
}

// New creates a cache with DefaultOptions and the given worker and window
// sizes. Pass 0, 0 for pass-through mode.
func New[S any](src Source[S], codec Codec[S], workers, window int) (*Cache[S], error) {
	opts := DefaultOptions()
	opts.Workers = workers
	opts.WindowSize = window
	return NewWithOptions(src, codec, opts)
}

// NewWithOptions creates a cache with custom options. It returns an error
// wrapping ErrInvalidArgument for a nil source, a nil codec in prefetch
// mode, or a worker/window pair that is neither (0, 0) nor both positive.
func NewWithOptions[S any](src Source[S], codec Codec[S], opts Options) (*Cache[S], error) {
	if src == nil {
		return nil, fmt.Errorf("%w: source is nil", ErrInvalidArgument)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	c := &Cache[S]{
		src:     src,
		codec:   codec,
		current: -1,
		log:     opts.logger(),
		metrics: opts.Metrics,
	}
	if opts.PassThrough() {
		return c, nil
	}
	if codec == nil {
		return nil, fmt.Errorf("%w: codec is nil", ErrInvalidArgument)
	}

	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := NewWorkerPool(ctx, opts.Workers, opts.bindWorker(), WithPoolLogger(c.log))
	if err != nil {
		return nil, err
	}

	c.workers = opts.Workers
	c.window = opts.WindowSize
	c.pool = pool
	c.queue = make([]*Pending, 0, opts.WindowSize)
	return c, nil
}

// bindWorker binds each worker to the creator's context: the context is
// captured by value, tagged with the worker id, optionally pinned to an OS
// thread, and then handed to the user hook.
func (o Options) bindWorker() WorkerSetup {
	return func(ctx context.Context, id int) context.Context {
		if o.LockOSThread {
			runtime.LockOSThread()
		}
		ctx = context.WithValue(ctx, workerKey{}, id)
		if o.WorkerSetup != nil {
			if c := o.WorkerSetup(ctx, id); c != nil {
				return c
			}
		}
		return ctx
	}
}

// Size returns the size of the underlying source. It is not cached.
func (c *Cache[S]) Size() int64 {
	return c.src.Size()
}

// Get returns the sample at idx.
//
// Errors: *IndexError (ErrIndexOutOfRange) for idx outside [0, Size()),
// leaving the window untouched; *FetchError (ErrFetch) when producing the
// sample failed, in which case the slot is consumed; ErrClosed after Close;
// ctx.Err() if ctx ends while waiting, in which case the slot stays queued.
func (c *Cache[S]) Get(ctx context.Context, idx int64) (S, error) {
	var zero S

	size := c.src.Size()
	if idx < 0 || idx >= size {
		return zero, &IndexError{Index: idx, Size: size}
	}

	if c.pool == nil {
		s, err := fetch(ctx, c.src, idx)
		if err != nil {
			c.fail()
			return zero, &FetchError{Index: idx, Err: err}
		}
		c.current = idx + 1
		c.stats.served.Add(1)
		return s, nil
	}
	if c.closed {
		return zero, ErrClosed
	}

	c.reconcile(idx)
	c.refill(idx, size)

	head := c.queue[0]
	var wait time.Duration
	if head.Ready() {
		c.stats.ready.Add(1)
	} else {
		start := time.Now()
		select {
		case <-head.Done():
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		wait = time.Since(start)
		c.stats.waited.Add(1)
	}

	c.queue[0] = nil
	c.queue = c.queue[1:]
	c.current = idx + 1
	if c.metrics != nil {
		c.metrics.ObserveWait(wait)
		c.metrics.SetInFlight(len(c.queue))
	}

	buf, err := head.Result()
	if err != nil {
		c.fail()
		return zero, &FetchError{Index: idx, Err: err}
	}
	s, err := c.codec.Decode(buf)
	if err != nil {
		c.fail()
		return zero, &FetchError{Index: idx, Err: err}
	}
	c.stats.served.Add(1)
	return s, nil
}

// reconcile drops window entries until the head corresponds to idx. An
// empty window is rebased onto idx.
func (c *Cache[S]) reconcile(idx int64) {
	from := c.current
	dropped := 0
	for len(c.queue) > 0 && c.current != idx {
		c.queue[0].Discard()
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.current++
		dropped++
	}
	if len(c.queue) == 0 {
		c.current = idx
	}
	if dropped == 0 {
		return
	}
	c.stats.discarded.Add(uint64(dropped))
	if c.metrics != nil {
		c.metrics.AddDiscarded(dropped)
		c.metrics.SetInFlight(len(c.queue))
	}
	c.log.Debug("prefetch: window reconciled", "from", from, "to", idx, "discarded", dropped)
}

// refill tops the window up to its size, never past the end of the source.
// Submit does not block, so refill never waits on stale work.
func (c *Cache[S]) refill(idx, size int64) {
	submitted := 0
	for len(c.queue) < c.window {
		next := idx + int64(len(c.queue))
		if next >= size {
			break
		}
		c.queue = append(c.queue, c.pool.Submit(c.fetchTask(next)))
		submitted++
	}
	if submitted == 0 {
		return
	}
	c.stats.submitted.Add(uint64(submitted))
	if c.metrics != nil {
		c.metrics.AddSubmitted(submitted)
		c.metrics.SetInFlight(len(c.queue))
	}
}

func (c *Cache[S]) fetchTask(idx int64) Task {
	return func(ctx context.Context) ([]byte, error) {
		s, err := fetch(ctx, c.src, idx)
		if err != nil {
			return nil, err
		}
		return c.codec.Encode(s)
	}
}

func (c *Cache[S]) fail() {
	c.stats.failed.Add(1)
	if c.metrics != nil {
		c.metrics.IncFailed()
	}
}

// Close discards the window and shuts the worker pool down, waiting for
// in-flight fetches to finish. It does not close the source.
func (c *Cache[S]) Close() error {
	if c.pool == nil || c.closed {
		return nil
	}
	c.closed = true
	for i, p := range c.queue {
		p.Discard()
		c.queue[i] = nil
	}
	c.queue = c.queue[:0]
	if c.metrics != nil {
		c.metrics.SetInFlight(0)
	}
	return c.pool.Close()
}
