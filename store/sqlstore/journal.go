package sqlstore

import (
	"context"
	"strings"

	"github.com/xraph/dyson/id"
	"github.com/xraph/dyson/journal"
	"github.com/xraph/dyson/types"
)

const entryColumns = `id, seq, module, operation, caller, subject, amount, detail, at`

func (s *Store) AppendEntry(ctx context.Context, e *journal.Entry) error {
	amount, err := quantity(e.Amount)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `
INSERT INTO dyson_journal (`+entryColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), int64(e.Sequence), e.Module, e.Operation, string(e.Caller),
		e.Subject, amount, e.Detail, millis(e.At),
	)
	if err != nil {
		return s.wrap("append journal entry", err)
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	var (
		where []string
		args  []any
	)
	if opts.Module != "" {
		where = append(where, "module = ?")
		args = append(args, opts.Module)
	}
	if opts.Caller != "" {
		where = append(where, "caller = ?")
		args = append(args, string(opts.Caller))
	}

	query := `SELECT ` + entryColumns + ` FROM dyson_journal`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY seq`
	query, args = pageClause(query, args, opts.Limit, opts.Offset)

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, s.wrap("list journal", err)
	}
	defer rows.Close()

	var result []*journal.Entry
	for rows.Next() {
		var (
			e           journal.Entry
			entryID     string
			seq, amount int64
			caller      string
			at          int64
		)
		if err := rows.Scan(&entryID, &seq, &e.Module, &e.Operation, &caller,
			&e.Subject, &amount, &e.Detail, &at); err != nil {
			return nil, s.wrap("list journal", err)
		}
		parsed, err := id.ParseEntryID(entryID)
		if err != nil {
			return nil, s.wrap("list journal", err)
		}
		e.ID = parsed
		e.Sequence = uint64(seq)
		e.Caller = types.Principal(caller)
		e.Amount = uint64(amount)
		e.At = fromMillis(at)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list journal", err)
	}
	return result, nil
}
