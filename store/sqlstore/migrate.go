package sqlstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

const migrationTable = "dyson_migrations"

// Migration is one versioned schema change. Up may hold several statements.
type Migration struct {
	Name    string
	Version string
	Up      string
}

// Migrate applies every migration not yet recorded in dyson_migrations,
// each in its own transaction.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS `+migrationTable+` (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at BIGINT NOT NULL
)`); err != nil {
		return fmt.Errorf("%s: ensure migration table: %w", s.dialect.Name, err)
	}

	ordered := slices.Clone(s.migrations)
	slices.SortFunc(ordered, func(a, b Migration) int { return strings.Compare(a.Version, b.Version) })

	for _, m := range ordered {
		applied, err := s.migrationApplied(ctx, m.Version)
		if err != nil {
			return fmt.Errorf("%s: check migration %s: %w", s.dialect.Name, m.Name, err)
		}
		if applied {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("%s: migration %s failed: %w", s.dialect.Name, m.Name, err)
		}
	}
	return nil
}

func (s *Store) migrationApplied(ctx context.Context, version string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM `+migrationTable+` WHERE version = ?`), version).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) applyMigration(ctx context.Context, m Migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		_ = tx.Rollback() //nolint:errcheck // best-effort rollback
		return err
	}
	if _, err := tx.ExecContext(ctx,
		s.rebind(`INSERT INTO `+migrationTable+` (version, name, applied_at) VALUES (?, ?, ?)`),
		m.Version, m.Name, time.Now().UTC().UnixMilli(),
	); err != nil {
		_ = tx.Rollback() //nolint:errcheck // best-effort rollback
		return err
	}
	return tx.Commit()
}
