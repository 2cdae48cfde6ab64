// Package store persists the library catalog in sqlite.
//
// It exposes one table set (artists, albums, tracks, playlists, kv) with
// get-by-id, get-all, indexed queries, add, bulk add, update and delete
// operations. Tables run either against the database or inside a
// transaction opened with Store.WithTx.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/cleftly/cleftly/internal/db"
)

const (
	appName    = "cleftly"
	dbFileName = "library.db"
)

// ErrNotFound is returned by get-by-id lookups for missing rows.
var ErrNotFound = errors.New("not found")

// Tables holds every table operation. It runs against whatever Querier it wraps.
type Tables struct {
	q db.Querier
}

// Store is the sqlite-backed catalog.
type Store struct {
	Tables
	db *sql.DB
}

// DefaultPath returns the database location under the XDG data directory.
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}

// Open opens (creating if needed) the database at path. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: a single writer, and :memory: stays one database.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		conn.Close()
		return nil, err
	}
	if path != ":memory:" {
		if _, err := conn.Exec(`PRAGMA journal_mode = WAL`); err != nil {
			conn.Close()
			return nil, err
		}
	}

	if err := initSchema(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{Tables: Tables{q: conn}, db: conn}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithTx runs fn against tables bound to a single transaction.
// Any error from fn discards every write made through it.
func (s *Store) WithTx(ctx context.Context, fn func(t *Tables) error) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&Tables{q: tx})
	})
}

func encodeGenres(genres []string) string {
	if len(genres) == 0 {
		return "[]"
	}
	b, err := json.Marshal(genres)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeGenres(raw string) []string {
	var genres []string
	if err := json.Unmarshal([]byte(raw), &genres); err != nil || genres == nil {
		return []string{}
	}
	return genres
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := range n {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}
