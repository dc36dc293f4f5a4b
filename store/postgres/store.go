// Package postgres provides a PostgreSQL store.Store using lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" driver

	"github.com/xraph/dyson/store"
	"github.com/xraph/dyson/store/sqlstore"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Dialect is the PostgreSQL flavour of sqlstore.
var Dialect = sqlstore.Dialect{
	Name:                 "dyson/postgres",
	NumberedPlaceholders: true,
	ByteOrderCollation:   ` COLLATE "C"`,
}

// Store implements store.Store on PostgreSQL.
type Store struct {
	*sqlstore.Store
}

// New wraps an open PostgreSQL database.
func New(db *sql.DB) *Store {
	return &Store{Store: sqlstore.New(db, Dialect, Migrations)}
}

// Open connects to the database at dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("dyson/postgres: open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("dyson/postgres: ping: %w", err)
	}
	return New(db), nil
}
