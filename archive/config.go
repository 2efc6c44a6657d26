package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// persistedConfig captures the subset of Options that defines the file layout.
type persistedConfig struct {
	RecordSize int   `json:"record_size"`
	Capacity   int64 `json:"capacity"`
	ShardCount int   `json:"shard_count"`
}

func newPersistedConfig(opts Options) persistedConfig {
	return persistedConfig{
		RecordSize: opts.RecordSize,
		Capacity:   opts.Capacity,
		ShardCount: opts.ShardCount,
	}
}

func configPath(base string) string { return base + ".config" }

// loadOrWriteConfig reads the layout persisted at path into opts. When no
// layout exists yet, the one in opts is written.
func loadOrWriteConfig(path string, opts *Options) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if opts.RecordSize <= 0 || opts.Capacity <= 0 {
			return fmt.Errorf("%w: record size %d, capacity %d must be positive",
				ErrInvalidOptions, opts.RecordSize, opts.Capacity)
		}
		data, err := json.MarshalIndent(newPersistedConfig(*opts), "", "  ")
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var have persistedConfig
	if err := json.Unmarshal(data, &have); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if have.RecordSize <= 0 || have.Capacity <= 0 || have.ShardCount <= 0 {
		return fmt.Errorf("%w: persisted layout %+v", ErrInvalidOptions, have)
	}

	// the persisted layout wins over the supplied one
	opts.RecordSize = have.RecordSize
	opts.Capacity = have.Capacity
	opts.ShardCount = have.ShardCount
	return nil
}
