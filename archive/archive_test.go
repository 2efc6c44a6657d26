package archive

import (
	"bytes"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper to create an archive in a temporary directory with deterministic options
func newTestArchive(t *testing.T, capacity int64, recordSize int) (*Archive, string) {
	t.Helper()
	opts := DefaultOptions()
	opts.UseMmap = false
	opts.ShardCount = 1
	return newTestArchiveWithOpts(t, capacity, recordSize, opts)
}

func newTestArchiveWithOpts(t *testing.T, capacity int64, recordSize int, opts Options) (*Archive, string) {
	t.Helper()
	base := filepath.Join(t.TempDir(), "archive.data")
	opts.RecordSize = recordSize
	opts.Capacity = capacity
	opts.BufferPoolSize = 10

	a, err := Open(base, opts)
	require.NoError(t, err)
	return a, base
}

func TestWriteRead(t *testing.T) {
	const (
		size       = 100
		recordSize = 32
	)
	a, _ := newTestArchive(t, size, recordSize)
	defer a.Close()

	// write random payloads and read them back
	for idx := int64(0); idx < size; idx++ {
		payload := make([]byte, recordSize)
		rand.Read(payload)

		require.NoError(t, a.Write(idx, payload, true), "write idx %d", idx)
		got, err := a.Read(idx)
		require.NoError(t, err, "read idx %d", idx)
		require.Equal(t, payload, got, "payload mismatch at idx %d", idx)
	}

	st := a.GetStats()
	assert.Equal(t, uint64(size), st.Hits)
	assert.Zero(t, st.Misses)
	assert.Equal(t, int64(size), a.Size())
}

func TestWriteReadMmapShards(t *testing.T) {
	opts := DefaultOptions()
	opts.ShardCount = 3
	a, _ := newTestArchiveWithOpts(t, 10, 8, opts)
	defer a.Close()

	require.Equal(t, 3, a.ShardCount())
	for idx := int64(0); idx < 10; idx++ {
		require.NoError(t, a.Write(idx, bytes.Repeat([]byte{byte('a' + idx)}, 8), false))
	}
	require.NoError(t, a.Flush())
	for idx := int64(0); idx < 10; idx++ {
		got, err := a.Read(idx)
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte{byte('a' + idx)}, 8), got)
	}
}

func TestAppendAcrossShardBoundary(t *testing.T) {
	// capacity 10 over 2 shards: append 6 records so the sixth lands in shard 1
	opts := DefaultOptions()
	opts.ShardCount = 2
	a, _ := newTestArchiveWithOpts(t, 10, 2048, opts)
	defer a.Close()

	for i := int64(0); i < 6; i++ {
		payload := bytes.Repeat([]byte{byte(i)}, 2048)
		idx, err := a.Append(payload, false)
		require.NoError(t, err)
		assert.Equal(t, i, idx)
	}
	got, err := a.Read(5)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{5}, 2048), got)
}

func TestAppendFull(t *testing.T) {
	a, _ := newTestArchive(t, 2, 4)
	defer a.Close()

	for range 2 {
		_, err := a.Append([]byte("abcd"), false)
		require.NoError(t, err)
	}
	_, err := a.Append([]byte("abcd"), false)
	require.ErrorIs(t, err, ErrFull)
}

func TestReadOutOfRange(t *testing.T) {
	a, _ := newTestArchive(t, 10, 4)
	defer a.Close()

	require.NoError(t, a.Write(2, []byte("abcd"), false))
	assert.Equal(t, int64(3), a.Size())

	for _, idx := range []int64{-1, 3, 10} {
		_, err := a.Read(idx)
		require.ErrorIs(t, err, ErrOutOfRange, "idx %d", idx)
	}
	// slots below the length that were never written fail the CRC check
	_, err := a.Read(0)
	require.ErrorIs(t, err, ErrCorrupted)

	require.ErrorIs(t, a.Write(10, []byte("abcd"), false), ErrOutOfRange)
	require.ErrorIs(t, a.Write(0, []byte("abc"), false), ErrPayloadSize)
}

func TestBulkWriteRead(t *testing.T) {
	a, _ := newTestArchive(t, 50, 16)
	defer a.Close()

	payloads := [][]byte{
		[]byte("abcdefghijklmnop"), // 16 bytes
		[]byte("qrstuvwxyzABCDEF"), // 16 bytes
		[]byte("GHIJKLMNOPQRSTUV"), // 16 bytes
	}

	require.NoError(t, a.BulkWrite(10, payloads, true))

	got, err := a.BulkRead(10, len(payloads))
	require.NoError(t, err)
	assert.Equal(t, payloads, got)

	_, err = a.BulkRead(12, 2)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestCRCError(t *testing.T) {
	a, base := newTestArchive(t, 10, 8)
	defer a.Close()

	require.NoError(t, a.Write(0, []byte("12345678"), true))

	// corrupt the first payload byte on disk (skip the 4 CRC bytes)
	f, err := os.OpenFile(base, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteAt([]byte{0xFF}, 4)
	require.NoError(t, err)

	_, err = a.Read(0)
	require.ErrorIs(t, err, ErrCorrupted)
	st := a.GetStats()
	assert.Equal(t, uint64(1), st.Corrupted)
	assert.Equal(t, uint64(1), st.Misses)

	a.ResetStats()
	assert.Equal(t, Stats{}, a.GetStats())
}

func TestFrameSealAndCheck(t *testing.T) {
	fp := newFramePool(6, true)
	f := fp.get()
	require.Len(t, f, 6+crcLen)

	f.seal([]byte("abcdef"))
	assert.True(t, f.intact())
	assert.Equal(t, []byte("abcdef"), []byte(f.payload()))

	f[crcLen] ^= 0xFF
	assert.False(t, f.intact())
	fp.put(f)

	// frames of the wrong size never enter the pool
	fp.put(make(frame, 3))
	assert.Len(t, fp.get(), 6+crcLen)
	assert.Len(t, newFramePool(6, false).get(), 6+crcLen)
}

func TestFlushClosePersistence(t *testing.T) {
	a, base := newTestArchive(t, 5, 12)
	payload := []byte("HelloWorld!!")
	require.NoError(t, a.Write(3, payload, false))
	require.NoError(t, a.Flush())
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	_, err := a.Read(3)
	require.ErrorIs(t, err, ErrClosed)

	// reopen with a different layout: the persisted one wins
	opts := DefaultOptions()
	opts.UseMmap = false
	opts.RecordSize = 99
	opts.Capacity = 1
	reopened, err := Open(base, opts)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 12, reopened.RecordSize())
	assert.Equal(t, int64(5), reopened.Capacity())
	assert.Equal(t, int64(4), reopened.Size())

	got, err := reopened.Read(3)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestOpenRejectsInvalidLayout(t *testing.T) {
	base := filepath.Join(t.TempDir(), "bad.data")
	_, err := Open(base, Options{RecordSize: 0, Capacity: 10})
	require.ErrorIs(t, err, ErrInvalidOptions)
}

func TestConcurrentAccess(t *testing.T) {
	a, _ := newTestArchive(t, 200, 24)
	defer a.Close()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int64(0); i < 200; i++ {
			p := make([]byte, 24)
			rand.Read(p)
			if err := a.Write(i, p, false); err != nil {
				t.Errorf("write %d: %v", i, err)
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int64(0); i < 200; i++ {
			// reads may run ahead of the writer, ignore
			_, _ = a.Read(i)
		}
	}()

	wg.Wait()
	assert.Equal(t, int64(200), a.Size())
}
