package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Archive is a file-backed store of fixed-size records with sharding,
// memory-mapping and a buffer pool.
//
// All operations are safe for concurrent use. Size reports how many records
// have been written, so a reader only ever sees indices that exist.
type Archive struct {
	shards   []*shard // shard files (always >= 1)
	capacity int64    // total record slots
	record   int      // public payload size
	locks    stripes
	frames   *framePool
	options  Options
	metaPath string

	length atomic.Int64 // one past the highest written index
	closed atomic.Bool
	reads  readCounters
}

const lockStripes = 256

// Open opens or creates the archive rooted at basePath. When a layout was
// persisted by an earlier Open, it overrides RecordSize, Capacity and
// ShardCount in opts.
func Open(basePath string, opts Options) (*Archive, error) {
	if opts.ShardCount <= 0 {
		opts.ShardCount = 1
	}
	if err := os.MkdirAll(filepath.Dir(basePath), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	if err := loadOrWriteConfig(configPath(basePath), &opts); err != nil {
		return nil, err
	}
	if opts.RecordSize <= 0 || opts.Capacity <= 0 {
		return nil, fmt.Errorf("%w: record size %d, capacity %d must be positive",
			ErrInvalidOptions, opts.RecordSize, opts.Capacity)
	}
	if int64(opts.ShardCount) > opts.Capacity {
		opts.ShardCount = int(opts.Capacity)
	}

	diskRec := opts.RecordSize + crcLen

	// split capacity evenly, rounding up; the last shard takes the remainder
	shardSize := opts.Capacity / int64(opts.ShardCount)
	if opts.Capacity%int64(opts.ShardCount) != 0 {
		shardSize++
	}

	shards := make([]*shard, 0, opts.ShardCount)
	var offset int64
	for i := 0; i < opts.ShardCount && offset < opts.Capacity; i++ {
		size := min(shardSize, opts.Capacity-offset)

		path := basePath
		if opts.ShardCount > 1 {
			path = fmt.Sprintf("%s.%d", basePath, i)
		}
		s, err := openShard(path, offset, size, diskRec, opts.UseMmap)
		if err != nil {
			closeShards(shards)
			return nil, fmt.Errorf("open shard %d: %w", i, err)
		}
		shards = append(shards, s)
		offset += size
	}

	a := &Archive{
		shards:   shards,
		capacity: opts.Capacity,
		record:   opts.RecordSize,
		locks:    make(stripes, lockStripes),
		frames:   newFramePool(opts.RecordSize, opts.BufferPoolSize > 0),
		options:  opts,
		metaPath: metaPath(basePath),
	}

	length, err := loadMeta(a.metaPath)
	if err != nil {
		closeShards(shards)
		return nil, fmt.Errorf("load meta: %w", err)
	}
	a.length.Store(min(length, a.capacity))
	return a, nil
}

func openShard(path string, offset, size int64, diskRec int, useMmap bool) (*shard, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}

	diskSize := size * int64(diskRec)
	if err := f.Truncate(diskSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("allocate: %w", err)
	}

	s := &shard{
		file:     f,
		filePath: path,
		size:     size,
		offset:   offset,
	}
	if useMmap {
		mmap, err := unix.Mmap(int(f.Fd()), 0, int(diskSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("mmap: %w", err)
		}
		s.mmap = mmap
	}
	return s, nil
}

func closeShards(shards []*shard) {
	for _, s := range shards {
		if s.mmap != nil {
			unix.Munmap(s.mmap)
		}
		s.file.Close()
	}
}

// Size returns the number of readable records: one past the highest index
// written so far. It never shrinks.
func (a *Archive) Size() int64 { return a.length.Load() }

// Capacity returns the total number of record slots.
func (a *Archive) Capacity() int64 { return a.capacity }

// RecordSize returns the payload size of each record.
func (a *Archive) RecordSize() int { return a.record }

// ShardCount returns the number of shard files on disk.
func (a *Archive) ShardCount() int { return len(a.shards) }
