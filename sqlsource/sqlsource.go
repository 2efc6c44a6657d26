// Package sqlsource serves samples stored as rows of a database/sql table.
//
// Rows are addressed by an integer id column holding the sample index; ids
// are expected to be dense from 0. Queries use "?" placeholders (SQLite,
// MySQL).
package sqlsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
)

// ErrNotFound is returned by Get for an index without a row.
var ErrNotFound = errors.New("sqlsource: sample not found")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config names the table and columns holding the samples.
type Config struct {
	Table         string
	IDColumn      string
	PayloadColumn string
}

// DefaultConfig returns the layout created by CreateTable when no other is
// given: table "samples" with columns "id" and "payload".
func DefaultConfig() Config {
	return Config{Table: "samples", IDColumn: "id", PayloadColumn: "payload"}
}

func (c Config) validate() error {
	for _, name := range []string{c.Table, c.IDColumn, c.PayloadColumn} {
		if !identRe.MatchString(name) {
			return fmt.Errorf("sqlsource: invalid identifier %q", name)
		}
	}
	return nil
}

// Source reads samples from a table. Size is snapshotted by New and Refresh
// so it stays stable while a prefetch cache walks the table.
type Source struct {
	db         *sql.DB
	cfg        Config
	getQuery   string
	sizeQuery  string
	insertStmt string
	size       atomic.Int64
}

// New validates cfg and takes the initial size snapshot.
func New(ctx context.Context, db *sql.DB, cfg Config) (*Source, error) {
	if db == nil {
		return nil, errors.New("sqlsource: nil db")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Source{
		db:         db,
		cfg:        cfg,
		getQuery:   fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", cfg.PayloadColumn, cfg.Table, cfg.IDColumn),
		sizeQuery:  fmt.Sprintf("SELECT COALESCE(MAX(%s) + 1, 0) FROM %s", cfg.IDColumn, cfg.Table),
		insertStmt: fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", cfg.Table, cfg.IDColumn, cfg.PayloadColumn),
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh re-reads the size from the table. It never lowers the size.
func (s *Source) Refresh(ctx context.Context) error {
	var n int64
	if err := s.db.QueryRowContext(ctx, s.sizeQuery).Scan(&n); err != nil {
		return fmt.Errorf("sqlsource: size: %w", err)
	}
	for {
		cur := s.size.Load()
		if n <= cur || s.size.CompareAndSwap(cur, n) {
			return nil
		}
	}
}

// Size returns the last size snapshot: one past the highest id.
func (s *Source) Size() int64 { return s.size.Load() }

// Get reads the payload of row idx.
func (s *Source) Get(idx int64) ([]byte, error) {
	return s.GetContext(context.Background(), idx)
}

// GetContext reads the payload of row idx under ctx.
func (s *Source) GetContext(ctx context.Context, idx int64) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, s.getQuery, idx).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, s.cfg.IDColumn, idx)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlsource: get %d: %w", idx, err)
	}
	return payload, nil
}

// CreateTable creates the table described by cfg if it does not exist.
func CreateTable(ctx context.Context, db *sql.DB, cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s INTEGER PRIMARY KEY, %s BLOB NOT NULL)",
		cfg.Table, cfg.IDColumn, cfg.PayloadColumn)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlsource: create table: %w", err)
	}
	return nil
}

// Load inserts payloads as rows startIdx, startIdx+1, ... in one transaction
// and refreshes the size.
func (s *Source) Load(ctx context.Context, startIdx int64, payloads [][]byte) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlsource: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, s.insertStmt)
	if err != nil {
		return fmt.Errorf("sqlsource: prepare: %w", err)
	}
	defer stmt.Close()

	for i, p := range payloads {
		if _, err := stmt.ExecContext(ctx, startIdx+int64(i), p); err != nil {
			return fmt.Errorf("sqlsource: insert %d: %w", startIdx+int64(i), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlsource: commit: %w", err)
	}
	return s.Refresh(ctx)
}
