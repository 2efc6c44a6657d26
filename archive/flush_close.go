package archive

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Flush forces all data and the written length to disk.
func (a *Archive) Flush() error {
	if a.closed.Load() {
		return ErrClosed
	}
	var firstErr error
	for i, s := range a.shards {
		if s.mmap != nil {
			if err := unix.Msync(s.mmap, unix.MS_SYNC); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("msync shard %d: %w", i, err)
			}
		} else {
			if err := s.file.Sync(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("sync shard %d: %w", i, err)
			}
		}
	}
	if err := saveMeta(a.metaPath, a.length.Load()); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("save meta: %w", err)
	}
	return firstErr
}

// Close persists the written length and releases every shard's file and
// mapping. Calling Close again is a no-op.
func (a *Archive) Close() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	// wait out readers and writers that passed the closed check
	defer a.locks.lockAll()()

	var firstErr error
	if err := saveMeta(a.metaPath, a.length.Load()); err != nil {
		firstErr = fmt.Errorf("save meta: %w", err)
	}
	for i, s := range a.shards {
		if s.mmap != nil {
			if err := unix.Munmap(s.mmap); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("unmap shard %d: %w", i, err)
			}
		}
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close shard %d: %w", i, err)
		}
	}
	return firstErr
}
