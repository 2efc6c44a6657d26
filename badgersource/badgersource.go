// Package badgersource serves samples stored as values in a Badger database.
//
// A sample with index i lives under the key prefix + big-endian uint64(i),
// so keys sort in index order. Indices are expected to be dense from 0.
package badgersource

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned by Get for an index without a value.
var ErrNotFound = errors.New("badgersource: sample not found")

// Source reads samples from a Badger key range. It does not own the
// database; the caller closes it.
type Source struct {
	db     *badger.DB
	prefix []byte
	size   atomic.Int64
}

// New scans the key range once to find its size.
func New(db *badger.DB, prefix string) (*Source, error) {
	if db == nil {
		return nil, errors.New("badgersource: nil db")
	}
	s := &Source{db: db, prefix: []byte(prefix)}

	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = s.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(s.prefix); it.ValidForPrefix(s.prefix); it.Next() {
			idx, ok := s.indexOf(it.Item().Key())
			if ok {
				s.extend(idx)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badgersource: scan: %w", err)
	}
	return s, nil
}

func (s *Source) key(idx int64) []byte {
	k := make([]byte, len(s.prefix)+8)
	copy(k, s.prefix)
	binary.BigEndian.PutUint64(k[len(s.prefix):], uint64(idx))
	return k
}

func (s *Source) indexOf(key []byte) (int64, bool) {
	if len(key) != len(s.prefix)+8 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(key[len(s.prefix):])), true
}

func (s *Source) extend(idx int64) {
	for {
		cur := s.size.Load()
		if idx < cur || s.size.CompareAndSwap(cur, idx+1) {
			return
		}
	}
}

// Size returns one past the highest index stored.
func (s *Source) Size() int64 { return s.size.Load() }

// Get returns a copy of the value stored for idx.
func (s *Source) Get(idx int64) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(idx))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, idx)
	}
	if err != nil {
		return nil, fmt.Errorf("badgersource: get %d: %w", idx, err)
	}
	return out, nil
}

// Put stores value for idx and grows the size to cover it.
func (s *Source) Put(idx int64, value []byte) error {
	if idx < 0 {
		return fmt.Errorf("badgersource: negative index %d", idx)
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(idx), value)
	})
	if err != nil {
		return fmt.Errorf("badgersource: put %d: %w", idx, err)
	}
	s.extend(idx)
	return nil
}
