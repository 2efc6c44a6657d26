package archive

// Options configures an Archive.
//
//   - UseMmap:        memory-map shard files instead of pread/pwrite
//   - ShardCount:     number of shard files (0 = single file)
//   - RecordSize:     payload size of each record in bytes, must be > 0
//   - Capacity:       number of record slots, must be > 0
//   - BufferPoolSize: enable the record buffer pool when > 0
//
// RecordSize, Capacity and ShardCount define the on-disk layout and are
// persisted next to the data; reopening uses the persisted values.
type Options struct {
	UseMmap        bool
	ShardCount     int
	RecordSize     int
	Capacity       int64
	BufferPoolSize int
}

// DefaultOptions returns the configuration used when only a path is given.
func DefaultOptions() Options {
	return Options{
		UseMmap:        true,
		ShardCount:     4,
		RecordSize:     32,
		Capacity:       1000000, // 1M slots
		BufferPoolSize: 1000,
	}
}
