package prefetch

import "sync/atomic"

// Stats is a snapshot of cache counters.
// ReadyRatio is the percentage (0-100) of prefetch-mode serves whose sample
// was already fetched when Get reached it.
type Stats struct {
	Served     uint64
	Ready      uint64
	Waited     uint64
	Submitted  uint64
	Discarded  uint64
	Failed     uint64
	ReadyRatio float64
}

type counters struct {
	served    atomic.Uint64
	ready     atomic.Uint64
	waited    atomic.Uint64
	submitted atomic.Uint64
	discarded atomic.Uint64
	failed    atomic.Uint64
}

// GetStats returns a snapshot of the counters. Safe to call from any goroutine.
func (c *Cache[S]) GetStats() Stats {
	ready := c.stats.ready.Load()
	waited := c.stats.waited.Load()
	ratio := 0.0
	if total := ready + waited; total > 0 {
		ratio = float64(ready) / float64(total) * 100.0
	}
	return Stats{
		Served:     c.stats.served.Load(),
		Ready:      ready,
		Waited:     waited,
		Submitted:  c.stats.submitted.Load(),
		Discarded:  c.stats.discarded.Load(),
		Failed:     c.stats.failed.Load(),
		ReadyRatio: ratio,
	}
}

// ResetStats zeroes the counters.
func (c *Cache[S]) ResetStats() {
	c.stats.served.Store(0)
	c.stats.ready.Store(0)
	c.stats.waited.Store(0)
	c.stats.submitted.Store(0)
	c.stats.discarded.Store(0)
	c.stats.failed.Store(0)
}

// Workers returns the configured worker count (0 in pass-through mode).
func (c *Cache[S]) Workers() int { return c.workers }

// WindowSize returns the configured window size (0 in pass-through mode).
func (c *Cache[S]) WindowSize() int { return c.window }

// CurrentIndex returns the index the head of the window corresponds to,
// which is the last served index plus one. -1 before the first serve.
func (c *Cache[S]) CurrentIndex() int64 { return c.current }

// Pending returns the number of fetches currently queued in the window.
func (c *Cache[S]) Pending() int { return len(c.queue) }
