package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	prefetch "github.com/luhtfiimanal/go-prefetch-archive"
	"github.com/luhtfiimanal/go-prefetch-archive/prommetrics"
)

func newScanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Walk an archive sequentially through the prefetch cache",
		Long: `Walk an archive from --from to its end through a prefetch cache and
report throughput and cache statistics.

Use --workers 0 --window 0 for a pass-through baseline without prefetching.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runScan(cmd)
		},
	}

	f := cmd.Flags()
	f.Int("workers", 4, "prefetch workers (0 with --window 0 disables prefetching)")
	f.Int("window", 8, "prefetch window size")
	f.Bool("lock-os-thread", false, "pin each worker to an OS thread")
	f.Int("zstd-level", 0, "compress prefetched records with zstd at this level (0 disables)")
	f.Int64("from", 0, "first index to read")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address during the scan")
	a.bind(f.Lookup("workers"), "cache.workers")
	a.bind(f.Lookup("window"), "cache.window")
	a.bind(f.Lookup("lock-os-thread"), "cache.lock_os_thread")
	a.bind(f.Lookup("zstd-level"), "cache.zstd_level")
	a.bind(f.Lookup("from"), "scan.from")
	a.bind(f.Lookup("metrics-addr"), "metrics.addr")

	return cmd
}

func (a *app) runScan(cmd *cobra.Command) error {
	ctx := cmd.Context()

	ar, err := a.cfg.Archive.open()
	if err != nil {
		return err
	}
	defer ar.Close()

	opts := prefetch.DefaultOptions()
	opts.Workers = a.cfg.Cache.Workers
	opts.WindowSize = a.cfg.Cache.Window
	opts.LockOSThread = a.cfg.Cache.LockOSThread
	opts.Context = ctx
	opts.Logger = a.log

	if addr := a.cfg.Metrics.Addr; addr != "" {
		reg := prometheus.NewRegistry()
		opts.Metrics = prommetrics.New(reg, "prefetchscan")
		stop, err := a.serveMetrics(addr, reg)
		if err != nil {
			return err
		}
		defer stop()
	}

	var codec prefetch.Codec[[]byte] = prefetch.BytesCodec{}
	if level := a.cfg.Cache.ZstdLevel; level > 0 && !opts.PassThrough() {
		zc, err := prefetch.NewZstdCodec[[]byte](codec, level)
		if err != nil {
			return err
		}
		defer zc.Close()
		codec = zc
	}

	cache, err := prefetch.NewWithOptions[[]byte](ar, codec, opts)
	if err != nil {
		return err
	}
	defer cache.Close()

	from, size := a.cfg.Scan.From, cache.Size()
	if from < 0 || (from > 0 && from >= size) {
		return fmt.Errorf("--from %d is outside the archive (size %d)", from, size)
	}

	a.log.Info("scan started",
		"archive", a.cfg.Archive.Path,
		"size", size,
		"workers", cache.Workers(),
		"window", cache.WindowSize())

	start := time.Now()
	var bytes int64
	for idx := from; idx < size; idx++ {
		rec, err := cache.Get(ctx, idx)
		if err != nil {
			return fmt.Errorf("read record %d: %w", idx, err)
		}
		bytes += int64(len(rec))
	}
	elapsed := time.Since(start)

	n := size - from
	st := cache.GetStats()
	a.log.Info("scan finished", "records", n, "elapsed", elapsed)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scanned %d records (%d bytes) in %s\n", n, bytes, elapsed.Round(time.Microsecond))
	if secs := elapsed.Seconds(); secs > 0 {
		fmt.Fprintf(out, "throughput: %.0f records/s\n", float64(n)/secs)
	}
	fmt.Fprintf(out, "served=%d prefetched=%d waited=%d submitted=%d discarded=%d failed=%d ready=%.1f%%\n",
		st.Served, st.Ready, st.Waited, st.Submitted, st.Discarded, st.Failed, st.ReadyRatio)
	return nil
}

// serveMetrics starts a /metrics endpoint and returns a function that shuts
// it down.
func (a *app) serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server error", "error", err)
		}
	}()
	a.log.Info("metrics enabled", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
