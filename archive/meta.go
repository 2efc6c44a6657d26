package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// meta file layout: 8 bytes little-endian, the number of records written
// (one past the highest written index).

func metaPath(base string) string { return base + ".meta" }

func saveMeta(path string, length int64) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(length))
	return os.WriteFile(path, buf, 0o644)
}

// loadMeta returns 0 when no meta file exists yet.
func loadMeta(path string) (int64, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) < 8 {
		return 0, fmt.Errorf("meta file too small")
	}
	return int64(binary.LittleEndian.Uint64(data)), nil
}

// extend raises the written length to cover idx.
func (a *Archive) extend(idx int64) {
	for {
		cur := a.length.Load()
		if idx < cur || a.length.CompareAndSwap(cur, idx+1) {
			return
		}
	}
}
