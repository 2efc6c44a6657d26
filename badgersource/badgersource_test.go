package badgersource

import (
	"context"
	"fmt"
	"testing"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	prefetch "github.com/luhtfiimanal/go-prefetch-archive"
)

var _ prefetch.Source[[]byte] = (*Source)(nil)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPutGet(t *testing.T) {
	db := newTestDB(t)
	s, err := New(db, "train/")
	require.NoError(t, err)
	assert.Zero(t, s.Size())

	require.NoError(t, s.Put(0, []byte("zero")))
	require.NoError(t, s.Put(2, []byte("two")))
	assert.Equal(t, int64(3), s.Size())

	got, err := s.Get(2)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)

	_, err = s.Get(1)
	require.ErrorIs(t, err, ErrNotFound)
	require.Error(t, s.Put(-1, nil))
}

func TestNewScansExistingKeys(t *testing.T) {
	db := newTestDB(t)
	train, err := New(db, "train/")
	require.NoError(t, err)
	for i := int64(0); i < 7; i++ {
		require.NoError(t, train.Put(i, []byte(fmt.Sprintf("t%d", i))))
	}
	other, err := New(db, "eval/")
	require.NoError(t, err)
	require.NoError(t, other.Put(0, []byte("e0")))

	reopened, err := New(db, "train/")
	require.NoError(t, err)
	assert.Equal(t, int64(7), reopened.Size())

	eval, err := New(db, "eval/")
	require.NoError(t, err)
	assert.Equal(t, int64(1), eval.Size())
}

func TestSourceThroughPrefetchCache(t *testing.T) {
	db := newTestDB(t)
	s, err := New(db, "s/")
	require.NoError(t, err)
	for i := int64(0); i < 25; i++ {
		require.NoError(t, s.Put(i, []byte(fmt.Sprintf("v%02d", i))))
	}

	c, err := prefetch.New[[]byte](s, prefetch.BytesCodec{}, 4, 5)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	for _, idx := range []int64{0, 1, 2, 10, 11, 0, 24} {
		got, err := c.Get(ctx, idx)
		require.NoError(t, err)
		assert.Equal(t, []byte(fmt.Sprintf("v%02d", idx)), got)
	}
}
