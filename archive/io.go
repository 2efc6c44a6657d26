package archive

import (
	"bytes"
	"fmt"
)

// Write stores payload at idx. idx may be any slot below the capacity;
// writing past the current length extends it.
func (a *Archive) Write(idx int64, payload []byte, flush bool) error {
	if a.closed.Load() {
		return ErrClosed
	}
	if len(payload) != a.record {
		return fmt.Errorf("%w: got %d want %d", ErrPayloadSize, len(payload), a.record)
	}
	s, rel, err := a.findShard(idx)
	if err != nil {
		return err
	}

	m := a.locks.of(idx)
	m.Lock()
	defer m.Unlock()
	if a.closed.Load() {
		return ErrClosed
	}

	f := a.frames.get()
	defer a.frames.put(f)
	f.seal(payload)

	if err := s.writeFrame(rel, f, flush); err != nil {
		return err
	}
	a.extend(idx)
	if flush {
		return saveMeta(a.metaPath, a.length.Load())
	}
	return nil
}

// Append writes payload to the first slot past the current length and
// returns its index. Append assumes a single appending goroutine.
func (a *Archive) Append(payload []byte, flush bool) (int64, error) {
	idx := a.length.Load()
	if idx >= a.capacity {
		return 0, ErrFull
	}
	if err := a.Write(idx, payload, flush); err != nil {
		return 0, err
	}
	return idx, nil
}

// Read returns a copy of the payload at idx. Only indices below Size are
// readable.
func (a *Archive) Read(idx int64) ([]byte, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}
	if n := a.length.Load(); idx < 0 || idx >= n {
		a.reads.miss()
		return nil, fmt.Errorf("%w: %d (size %d)", ErrOutOfRange, idx, n)
	}
	s, rel, err := a.findShard(idx)
	if err != nil {
		a.reads.miss()
		return nil, err
	}

	m := a.locks.of(idx)
	m.RLock()
	defer m.RUnlock()
	if a.closed.Load() {
		return nil, ErrClosed
	}

	f := a.frames.get()
	defer a.frames.put(f)
	if err := s.readFrame(rel, f); err != nil {
		a.reads.miss()
		return nil, err
	}
	if !f.intact() {
		a.reads.corrupt()
		return nil, fmt.Errorf("%w: index %d", ErrCorrupted, idx)
	}
	a.reads.hit()
	return bytes.Clone(f.payload()), nil
}

// Get is Read under the name prefetch.Source expects.
func (a *Archive) Get(idx int64) ([]byte, error) {
	return a.Read(idx)
}

// BulkWrite writes consecutive payloads starting at startIdx.
func (a *Archive) BulkWrite(startIdx int64, payloads [][]byte, flush bool) error {
	if startIdx < 0 || startIdx+int64(len(payloads)) > a.capacity {
		return fmt.Errorf("%w: range [%d, %d)", ErrOutOfRange, startIdx, startIdx+int64(len(payloads)))
	}
	for i, p := range payloads {
		if len(p) != a.record {
			return fmt.Errorf("%w: payload %d is %d bytes, want %d", ErrPayloadSize, i, len(p), a.record)
		}
	}
	for i, p := range payloads {
		idx := startIdx + int64(i)
		shouldFlush := flush && i == len(payloads)-1
		if err := a.Write(idx, p, shouldFlush); err != nil {
			return fmt.Errorf("write record %d: %w", idx, err)
		}
	}
	return nil
}

// BulkRead reads count consecutive records starting at startIdx.
func (a *Archive) BulkRead(startIdx int64, count int) ([][]byte, error) {
	if startIdx < 0 || count < 0 || startIdx+int64(count) > a.length.Load() {
		return nil, fmt.Errorf("%w: range [%d, %d)", ErrOutOfRange, startIdx, startIdx+int64(count))
	}
	res := make([][]byte, count)
	for i := range count {
		idx := startIdx + int64(i)
		p, err := a.Read(idx)
		if err != nil {
			return res, fmt.Errorf("read record %d: %w", idx, err)
		}
		res[i] = p
	}
	return res, nil
}
