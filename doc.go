// Package prefetch provides a windowed asynchronous prefetch cache that sits
// in front of a random-access, read-only source of samples and overlaps the
// fetch of upcoming indices with consumption of the current one.
//
// A Cache keeps a FIFO of pending fetches for the indices directly after the
// one being served. Sequential walks are served from that window; any jump
// (random access or restarting from 0) drops the stale part of the window
// and refills it from the new position. Fetches run on a fixed WorkerPool and
// cross back to the caller through a Codec, so every returned sample is an
// independent copy.
//
// The library is organised into several files:
//
//	options.go – configuration struct & defaults
//	source.go  – Source interface and adapters
//	codec.go   – Codec interface, bytes/gob/zstd codecs
//	buffer.go  – pooled encode buffers
//	pool.go    – WorkerPool, Task, Pending
//	cache.go   – Cache constructors, Get, Size, Close
//	stats.go   – lightweight stats accessors
//	metrics.go – optional metrics hooks
//	errors.go  – error kinds
//
// Concrete sources live in the archive, sqlsource and badgersource packages.
package prefetch
