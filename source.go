package prefetch

import "context"

// Source is a fixed-size, randomly indexable, read-only sequence of samples.
//
// Size must be idempotent and must not shrink while a Cache uses the source.
// Get must be safe for concurrent calls on distinct indices.
type Source[S any] interface {
	Size() int64
	Get(idx int64) (S, error)
}

// ContextSource is implemented by sources that accept a context. Prefetch
// tasks call GetContext with the context of the worker running them, so the
// fetch executes under the execution context the pool was bound to.
type ContextSource[S any] interface {
	Source[S]
	GetContext(ctx context.Context, idx int64) (S, error)
}

func fetch[S any](ctx context.Context, src Source[S], idx int64) (S, error) {
	if cs, ok := src.(ContextSource[S]); ok {
		return cs.GetContext(ctx, idx)
	}
	return src.Get(idx)
}

// SliceSource serves samples from an in-memory slice.
type SliceSource[S any] []S

func (s SliceSource[S]) Size() int64 { return int64(len(s)) }

func (s SliceSource[S]) Get(idx int64) (S, error) {
	if idx < 0 || idx >= int64(len(s)) {
		var zero S
		return zero, &IndexError{Index: idx, Size: int64(len(s))}
	}
	return s[idx], nil
}

// SourceFunc adapts a size and a fetch function into a Source.
type SourceFunc[S any] struct {
	N     int64
	Fetch func(idx int64) (S, error)
}

func (s SourceFunc[S]) Size() int64 { return s.N }

func (s SourceFunc[S]) Get(idx int64) (S, error) { return s.Fetch(idx) }
