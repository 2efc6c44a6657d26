// Package archive provides a file-backed store of fixed-size records with
// CRC integrity, optional memory-mapping, sharding and buffer pooling.
//
// Records are addressed by a 0-based index. An Archive satisfies
// prefetch.Source[[]byte], so it can be walked through a prefetch.Cache.
//
// The package is organised into several files:
//
//	options.go     – configuration struct & defaults
//	archive.go     – constructor & core fields
//	shard.go       – shard representation, lookup & slot I/O
//	frame.go       – CRC-framed records, frame pool & lock stripes
//	io.go          – read/write logic
//	meta.go        – persisted length
//	config.go      – persisted layout
//	counters.go    – read hit/miss/corruption counters
//	flush_close.go – flush & close helpers
package archive
