package archive

import "sync/atomic"

// Stats is a snapshot of read outcomes. Corrupted reads are also counted
// as misses. HitRatio is a percentage (0-100).
type Stats struct {
	Hits      uint64
	Misses    uint64
	Corrupted uint64
	HitRatio  float64
}

type readCounters struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	corrupted atomic.Uint64
}

func (c *readCounters) hit()  { c.hits.Add(1) }
func (c *readCounters) miss() { c.misses.Add(1) }

func (c *readCounters) corrupt() {
	c.corrupted.Add(1)
	c.misses.Add(1)
}

func (c *readCounters) snapshot() Stats {
	st := Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Corrupted: c.corrupted.Load(),
	}
	if total := st.Hits + st.Misses; total > 0 {
		st.HitRatio = float64(st.Hits) / float64(total) * 100
	}
	return st
}

func (c *readCounters) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.corrupted.Store(0)
}

// GetStats returns the read counters. It does not lock.
func (a *Archive) GetStats() Stats { return a.reads.snapshot() }

// ResetStats zeroes the read counters.
func (a *Archive) ResetStats() { a.reads.reset() }
