// Package sqlite provides a SQLite store.Store using modernc.org/sqlite.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/xraph/dyson/store"
	"github.com/xraph/dyson/store/sqlstore"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Dialect is the SQLite flavour of sqlstore.
var Dialect = sqlstore.Dialect{Name: "dyson/sqlite"}

// Store implements store.Store on SQLite.
type Store struct {
	*sqlstore.Store
}

// New wraps an open SQLite database.
func New(db *sql.DB) *Store {
	return &Store{Store: sqlstore.New(db, Dialect, Migrations)}
}

// Open opens (creating if needed) the database file at path with WAL
// journaling and a busy timeout. Use ":memory:" for a private in-memory
// database.
func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("dyson/sqlite: path is required")
	}

	dsn := cleanPath
	if cleanPath != ":memory:" {
		dsn = filepath.Clean(cleanPath)
	}
	dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("dyson/sqlite: open %s: %w", cleanPath, err)
	}
	if cleanPath == ":memory:" {
		// Every connection would otherwise see its own empty database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("dyson/sqlite: ping %s: %w", cleanPath, err)
	}
	return New(sqlDB), nil
}
