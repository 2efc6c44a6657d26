package archive

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// shard is one file of the archive. It holds the contiguous record range
// [offset, offset+size). When UseMmap is set, mmap holds the mapped region
// and reads and writes are plain memory copies.
type shard struct {
	file     *os.File // backing file
	mmap     []byte   // mapped region (nil when mmap is disabled)
	filePath string   // path on disk
	size     int64    // number of records in the shard
	offset   int64    // index of the shard's first record
}

// findShard locates the shard holding idx and returns the index relative to
// that shard.
func (a *Archive) findShard(idx int64) (*shard, int64, error) {
	if idx < 0 || idx >= a.capacity {
		return nil, 0, fmt.Errorf("%w: %d (capacity %d)", ErrOutOfRange, idx, a.capacity)
	}
	for _, s := range a.shards {
		if idx >= s.offset && idx < s.offset+s.size {
			return s, idx - s.offset, nil
		}
	}
	// unreachable while the shards cover [0, capacity)
	return nil, 0, fmt.Errorf("%w: %d not covered by any shard", ErrOutOfRange, idx)
}

// writeFrame stores f in slot rel and, when flush is set, syncs the shard.
func (s *shard) writeFrame(rel int64, f frame, flush bool) error {
	off := rel * int64(len(f))
	if s.mmap != nil {
		copy(s.mmap[off:off+int64(len(f))], f)
		if flush {
			return unix.Msync(s.mmap, unix.MS_SYNC)
		}
		return nil
	}
	if _, err := s.file.WriteAt(f, off); err != nil {
		return err
	}
	if flush {
		return s.file.Sync()
	}
	return nil
}

// readFrame fills f from slot rel.
func (s *shard) readFrame(rel int64, f frame) error {
	off := rel * int64(len(f))
	if s.mmap != nil {
		copy(f, s.mmap[off:off+int64(len(f))])
		return nil
	}
	_, err := s.file.ReadAt(f, off)
	return err
}
