package prefetch

import (
	"context"
	"fmt"
	"log/slog"
)

// Options configures a Cache.
//
//   - Workers:      number of fetch goroutines (0 together with WindowSize 0 = pass-through)
//   - WindowSize:   number of indices kept in flight ahead of the caller
//   - Context:      execution context every worker is bound to (nil = context.Background())
//   - LockOSThread: pin each worker to its OS thread before it takes any task
//   - WorkerSetup:  per-worker hook, runs once on the worker before its first task
//   - Logger:       debug logging of pool and window events (nil = discard)
//   - Metrics:      optional metrics sink (nil = disabled)
//
// Workers and WindowSize are fixed for the lifetime of the cache.
type Options struct {
	Workers      int
	WindowSize   int
	Context      context.Context
	LockOSThread bool
	WorkerSetup  WorkerSetup
	Logger       *slog.Logger
	Metrics      Metrics
}

// DefaultOptions returns the configuration used by New when only the
// worker and window sizes are given.
func DefaultOptions() Options {
	return Options{
		Workers:    4,
		WindowSize: 8,
	}
}

// PassThrough reports whether the options disable caching entirely.
func (o Options) PassThrough() bool {
	return o.Workers == 0 && o.WindowSize == 0
}

func (o Options) validate() error {
	if o.PassThrough() {
		return nil
	}
	if o.Workers > 0 && o.WindowSize > 0 {
		return nil
	}
	return fmt.Errorf("%w: workers=%d window=%d (want both zero or both positive)",
		ErrInvalidArgument, o.Workers, o.WindowSize)
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}
