// Package sqlstore implements store.Store on database/sql. The SQLite and
// PostgreSQL backends wrap it with their driver, dialect and migrations.
//
// Quantities are stored in BIGINT columns and timestamps as Unix
// milliseconds so the same statements run on both engines.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/dyson"
	"github.com/xraph/dyson/store"
	"github.com/xraph/dyson/types"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Counter names for scalar totals kept in dyson_counters next to sequences.
const (
	counterInvestmentTotal   = "investment_total"
	counterEnergyCaptured    = "energy_captured"
	counterEnergyDistributed = "energy_distributed"
)

// Dialect captures the differences between SQL engines.
type Dialect struct {
	// Name prefixes error messages, e.g. "dyson/sqlite".
	Name string

	// NumberedPlaceholders rewrites ? placeholders to $1, $2, ...
	NumberedPlaceholders bool

	// ByteOrderCollation is appended to text ORDER BY columns so keys sort
	// by byte value on every backend, e.g. ` COLLATE "C"`.
	ByteOrderCollation string
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a store.Store over a *sql.DB.
type Store struct {
	db         *sql.DB
	q          querier
	tx         *sql.Tx
	dialect    Dialect
	migrations []Migration
}

// New wraps db. migrations are applied in version order by Migrate.
func New(db *sql.DB, dialect Dialect, migrations []Migration) *Store {
	return &Store{db: db, q: db, dialect: dialect, migrations: migrations}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Atomic implements store.Store with BEGIN/COMMIT/ROLLBACK.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) (err error) {
	if s.tx != nil {
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w: %w", s.dialect.Name, dyson.ErrTransactionFailed, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // best-effort rollback
		}
	}()

	inner := &Store{db: s.db, q: tx, tx: tx, dialect: s.dialect, migrations: s.migrations}
	if err = fn(ctx, inner); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w: %w", s.dialect.Name, dyson.ErrTransactionFailed, err)
	}
	return nil
}

// NextSequence implements store.Store.
func (s *Store) NextSequence(ctx context.Context, name string) (uint64, error) {
	var v int64
	err := s.queryRow(ctx, `
INSERT INTO dyson_counters (name, value) VALUES (?, 1)
ON CONFLICT (name) DO UPDATE SET value = dyson_counters.value + 1
RETURNING value`, name).Scan(&v)
	if err != nil {
		return 0, s.wrap("next sequence "+name, err)
	}
	return uint64(v), nil
}

func (s *Store) getCounter(ctx context.Context, name string) (uint64, error) {
	var v int64
	err := s.queryRow(ctx, `SELECT value FROM dyson_counters WHERE name = ?`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, s.wrap("get counter "+name, err)
	}
	return uint64(v), nil
}

func (s *Store) setCounter(ctx context.Context, name string, value uint64) error {
	q, err := quantity(value)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `
INSERT INTO dyson_counters (name, value) VALUES (?, ?)
ON CONFLICT (name) DO UPDATE SET value = excluded.value`, name, q)
	if err != nil {
		return s.wrap("set counter "+name, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.tx != nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.q.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.q.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *Store) wrap(op string, err error) error {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		err = fmt.Errorf("%w: %w", dyson.ErrStoreClosed, err)
	}
	return fmt.Errorf("%s: %s: %w", s.dialect.Name, op, err)
}

// orderText returns an ORDER BY term for a text key column.
func (s *Store) orderText(column string) string {
	return column + s.dialect.ByteOrderCollation
}

// rebind rewrites ? placeholders for dialects with numbered parameters.
// Statements never contain a literal question mark.
func (s *Store) rebind(query string) string {
	if !s.dialect.NumberedPlaceholders || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// quantity converts a ledger quantity to its column value.
func quantity(v uint64) (int64, error) {
	if v > types.MaxQuantity {
		return 0, fmt.Errorf("%w: %d", types.ErrOverflow, v)
	}
	return int64(v), nil
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// pageClause appends LIMIT/OFFSET. A zero limit means no limit.
func pageClause(query string, args []any, limit, offset int) (string, []any) {
	if limit <= 0 && offset <= 0 {
		return query, args
	}
	if limit <= 0 {
		limit = math.MaxInt32
	}
	query += " LIMIT ? OFFSET ?"
	return query, append(args, limit, max(offset, 0))
}
