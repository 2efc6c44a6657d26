package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	prefetch "github.com/luhtfiimanal/go-prefetch-archive"
)

var _ prefetch.ContextSource[[]byte] = (*Source)(nil)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return newTestDBAt(t, filepath.Join(t.TempDir(), "samples.db"))
}

func newTestDBAt(tb testing.TB, path string) *sql.DB {
	tb.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestSource(t *testing.T, n int) *Source {
	t.Helper()
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, CreateTable(ctx, db, DefaultConfig()))

	s, err := New(ctx, db, DefaultConfig())
	require.NoError(t, err)
	require.Zero(t, s.Size())

	payloads := make([][]byte, n)
	for i := range payloads {
		payloads[i] = []byte(fmt.Sprintf("row-%d", i))
	}
	require.NoError(t, s.Load(ctx, 0, payloads))
	return s
}

func TestSourceGet(t *testing.T) {
	s := newTestSource(t, 10)
	assert.Equal(t, int64(10), s.Size())

	got, err := s.Get(7)
	require.NoError(t, err)
	assert.Equal(t, []byte("row-7"), got)

	_, err = s.Get(10)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSourceRefreshNeverShrinks(t *testing.T) {
	s := newTestSource(t, 5)
	_, err := s.db.Exec("DELETE FROM samples WHERE id >= 3")
	require.NoError(t, err)

	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, int64(5), s.Size())

	_, err = s.Get(4)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewRejectsBadIdentifiers(t *testing.T) {
	db := newTestDB(t)
	_, err := New(context.Background(), db, Config{Table: "samples; DROP TABLE x", IDColumn: "id", PayloadColumn: "payload"})
	require.Error(t, err)
	require.Error(t, CreateTable(context.Background(), db, Config{Table: "1bad", IDColumn: "id", PayloadColumn: "p"}))
}

func TestSourceThroughPrefetchCache(t *testing.T) {
	s := newTestSource(t, 30)
	// a missing row surfaces as a fetch error at its own index only
	_, err := s.db.Exec("DELETE FROM samples WHERE id = 12")
	require.NoError(t, err)

	c, err := prefetch.New[[]byte](s, prefetch.BytesCodec{}, 3, 6)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	for idx := range s.Size() {
		got, err := c.Get(ctx, idx)
		if idx == 12 {
			require.ErrorIs(t, err, prefetch.ErrFetch)
			require.ErrorIs(t, err, ErrNotFound)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, []byte(fmt.Sprintf("row-%d", idx)), got)
	}
}
