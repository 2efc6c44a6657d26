package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateThenScan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.data")

	out, err := run(t, "create", "--archive", path, "--records", "50",
		"--record-size", "64", "--capacity", "100", "--shards", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "created 50 records (archive size 50, record size 64)")

	out, err = run(t, "scan", "--archive", path, "--workers", "3", "--window", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "scanned 50 records (3200 bytes)")
	assert.Contains(t, out, "served=50")
	assert.Contains(t, out, "failed=0")
}

func TestScanFromOffsetWithZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.data")
	_, err := run(t, "create", "--archive", path, "--records", "20", "--capacity", "20")
	require.NoError(t, err)

	out, err := run(t, "scan", "--archive", path, "--from", "5", "--zstd-level", "3",
		"--metrics-addr", "127.0.0.1:0")
	require.NoError(t, err)
	assert.Contains(t, out, "scanned 15 records (480 bytes)")

	_, err = run(t, "scan", "--archive", path, "--from", "20")
	require.Error(t, err)
}

func TestEnvironmentSelectsPassThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.data")
	_, err := run(t, "create", "--archive", path, "--records", "10", "--capacity", "10")
	require.NoError(t, err)

	t.Setenv("PREFETCH_ARCHIVE_PATH", path)
	t.Setenv("PREFETCH_CACHE_WORKERS", "0")
	t.Setenv("PREFETCH_CACHE_WINDOW", "0")

	out, err := run(t, "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "scanned 10 records")
	assert.Contains(t, out, "submitted=0")
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.data")
	cfgPath := filepath.Join(dir, "prefetch.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
archive:
  path: `+path+`
  record_size: 8
  capacity: 30
create:
  records: 12
cache:
  workers: 2
  window: 3
log:
  format: json
`), 0o600))

	out, err := run(t, "create", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "created 12 records (archive size 12, record size 8)")

	// flags override the file
	out, err = run(t, "scan", "--config", cfgPath, "--from", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "scanned 2 records (16 bytes)")
}

func TestInvalidSettings(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "scan")
	require.ErrorContains(t, err, "archive path is required")

	_, err = run(t, "create", "--archive", filepath.Join(dir, "a.data"), "--log-level", "loud")
	require.ErrorContains(t, err, "invalid log level")

	_, err = run(t, "scan", "--archive", filepath.Join(dir, "b.data"), "--workers", "2", "--window", "0")
	require.Error(t, err)

	_, err = run(t, "create", "--archive", filepath.Join(dir, "c.data"), "--records", "11", "--capacity", "10")
	require.ErrorContains(t, err, "room for 10 more records")

	_, err = run(t, "scan", "--config", filepath.Join(dir, "missing.yaml"))
	require.ErrorContains(t, err, "config file not found")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "prefetchscan dev")
}
