package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	prefetch "github.com/luhtfiimanal/go-prefetch-archive"
	"github.com/luhtfiimanal/go-prefetch-archive/archive"
)

// Config is the full CLI configuration.
type Config struct {
	Archive ArchiveConfig `mapstructure:"archive"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Scan    ScanConfig    `mapstructure:"scan"`
	Create  CreateConfig  `mapstructure:"create"`
}

type ArchiveConfig struct {
	Path       string `mapstructure:"path"`
	RecordSize int    `mapstructure:"record_size"`
	Capacity   int64  `mapstructure:"capacity"`
	Shards     int    `mapstructure:"shards"`
	Mmap       bool   `mapstructure:"mmap"`
}

type CacheConfig struct {
	Workers      int  `mapstructure:"workers"`
	Window       int  `mapstructure:"window"`
	LockOSThread bool `mapstructure:"lock_os_thread"`
	// ZstdLevel compresses prefetched records when positive.
	ZstdLevel int `mapstructure:"zstd_level"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig enables a Prometheus /metrics endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type ScanConfig struct {
	From int64 `mapstructure:"from"`
}

type CreateConfig struct {
	Records int64 `mapstructure:"records"`
}

func setDefaults(v *viper.Viper) {
	ao := archive.DefaultOptions()
	co := prefetch.DefaultOptions()

	v.SetDefault("archive.path", "")
	v.SetDefault("archive.record_size", ao.RecordSize)
	v.SetDefault("archive.capacity", ao.Capacity)
	v.SetDefault("archive.shards", ao.ShardCount)
	v.SetDefault("archive.mmap", ao.UseMmap)
	v.SetDefault("cache.workers", co.Workers)
	v.SetDefault("cache.window", co.WindowSize)
	v.SetDefault("cache.lock_os_thread", false)
	v.SetDefault("cache.zstd_level", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("scan.from", 0)
	v.SetDefault("create.records", 1000)
}

// bind ties a flag to a config key. Unknown flags are a programming error.
func (a *app) bind(f *pflag.Flag, key string) {
	if err := a.v.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

// load resolves the configuration for cmd and sets up the logger.
func (a *app) load(cmd *cobra.Command) error {
	v := a.v
	setDefaults(v)

	// PREFETCH_CACHE_WORKERS=8 overrides cache.workers
	v.SetEnvPrefix("PREFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				return fmt.Errorf("config file not found: %s", a.cfgFile)
			}
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	log, err := newLogger(a.cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.log = log
	if a.cfgFile != "" {
		a.log.Debug("configuration loaded", "file", a.cfgFile)
	}
	return nil
}

func (c ArchiveConfig) options() archive.Options {
	opts := archive.DefaultOptions()
	opts.RecordSize = c.RecordSize
	opts.Capacity = c.Capacity
	opts.ShardCount = c.Shards
	opts.UseMmap = c.Mmap
	return opts
}

func (c ArchiveConfig) open() (*archive.Archive, error) {
	if c.Path == "" {
		return nil, errors.New("archive path is required (--archive or PREFETCH_ARCHIVE_PATH)")
	}
	a, err := archive.Open(c.Path, c.options())
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", c.Path, err)
	}
	return a, nil
}
