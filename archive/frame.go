package archive

import (
	"encoding/binary"
	"hash/crc32"
	"sync"
)

const crcLen = 4

// frame is the on-disk form of one record: a little-endian CRC32 of the
// payload followed by the payload itself.
type frame []byte

func (f frame) seal(payload []byte) {
	binary.LittleEndian.PutUint32(f[:crcLen], crc32.ChecksumIEEE(payload))
	copy(f[crcLen:], payload)
}

func (f frame) payload() []byte { return f[crcLen:] }

func (f frame) intact() bool {
	return crc32.ChecksumIEEE(f[crcLen:]) == binary.LittleEndian.Uint32(f[:crcLen])
}

// framePool recycles frames of a single size. Without a pool every get
// allocates.
type framePool struct {
	size int
	pool *sync.Pool
}

func newFramePool(recordSize int, pooled bool) *framePool {
	fp := &framePool{size: recordSize + crcLen}
	if pooled {
		fp.pool = &sync.Pool{New: func() any { return make(frame, fp.size) }}
	}
	return fp
}

func (fp *framePool) get() frame {
	if fp.pool == nil {
		return make(frame, fp.size)
	}
	return fp.pool.Get().(frame)
}

func (fp *framePool) put(f frame) {
	if fp.pool != nil && len(f) == fp.size {
		fp.pool.Put(f)
	}
}

// stripes maps record indices onto a fixed set of RWMutexes.
type stripes []sync.RWMutex

func (s stripes) of(idx int64) *sync.RWMutex { return &s[idx%int64(len(s))] }

// lockAll takes every stripe for writing and returns the matching unlock.
func (s stripes) lockAll() (unlock func()) {
	for i := range s {
		s[i].Lock()
	}
	return func() {
		for i := range s {
			s[i].Unlock()
		}
	}
}
