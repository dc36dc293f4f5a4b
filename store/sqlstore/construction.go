package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xraph/dyson"
	"github.com/xraph/dyson/construction"
)

const phaseColumns = `id, name, description, requirements, status, created_at, updated_at`

func (s *Store) CreatePhase(ctx context.Context, p *construction.Phase) error {
	reqs, err := json.Marshal(p.Requirements)
	if err != nil {
		return s.wrap("encode requirements", err)
	}
	id, err := quantity(uint64(p.ID))
	if err != nil {
		return err
	}
	res, err := s.exec(ctx, `
INSERT INTO dyson_phases (`+phaseColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`,
		id, p.Name, p.Description, string(reqs), string(p.Status),
		millis(p.CreatedAt), millis(p.UpdatedAt),
	)
	if err != nil {
		return s.wrap("create phase", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: create phase %d: %w", s.dialect.Name, p.ID, dyson.ErrAlreadyExists)
	}
	return nil
}

func (s *Store) GetPhase(ctx context.Context, phaseID construction.PhaseID) (*construction.Phase, error) {
	row := s.queryRow(ctx, `SELECT `+phaseColumns+` FROM dyson_phases WHERE id = ?`, int64(phaseID))
	p, err := scanPhase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dyson.ErrPhaseNotFound
	}
	if err != nil {
		return nil, s.wrap("get phase", err)
	}
	return p, nil
}

func (s *Store) ListPhases(ctx context.Context, opts construction.ListOpts) ([]*construction.Phase, error) {
	query := `SELECT ` + phaseColumns + ` FROM dyson_phases`
	var args []any
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY id`
	query, args = pageClause(query, args, opts.Limit, opts.Offset)

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, s.wrap("list phases", err)
	}
	defer rows.Close()

	var result []*construction.Phase
	for rows.Next() {
		p, err := scanPhase(rows)
		if err != nil {
			return nil, s.wrap("list phases", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list phases", err)
	}
	return result, nil
}

func (s *Store) UpdatePhase(ctx context.Context, p *construction.Phase) error {
	reqs, err := json.Marshal(p.Requirements)
	if err != nil {
		return s.wrap("encode requirements", err)
	}
	res, err := s.exec(ctx, `
UPDATE dyson_phases
SET name = ?, description = ?, requirements = ?, status = ?, updated_at = ?
WHERE id = ?`,
		p.Name, p.Description, string(reqs), string(p.Status), millis(p.UpdatedAt), int64(p.ID),
	)
	if err != nil {
		return s.wrap("update phase", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return dyson.ErrPhaseNotFound
	}
	return nil
}

func (s *Store) GetResource(ctx context.Context, kind string) (*construction.ResourceAllocation, error) {
	row := s.queryRow(ctx, `
SELECT resource, allocated, used, created_at, updated_at
FROM dyson_resources WHERE resource = ?`, kind)
	r, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dyson.ErrResourceNotFound
	}
	if err != nil {
		return nil, s.wrap("get resource", err)
	}
	return r, nil
}

func (s *Store) PutResource(ctx context.Context, r *construction.ResourceAllocation) error {
	allocated, err := quantity(r.Committed)
	if err != nil {
		return err
	}
	used, err := quantity(r.Consumed)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `
INSERT INTO dyson_resources (resource, allocated, used, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (resource) DO UPDATE SET
    allocated = excluded.allocated,
    used = excluded.used,
    updated_at = excluded.updated_at`,
		r.Resource, allocated, used, millis(r.CreatedAt), millis(r.UpdatedAt),
	)
	if err != nil {
		return s.wrap("put resource", err)
	}
	return nil
}

func (s *Store) ListResources(ctx context.Context) ([]*construction.ResourceAllocation, error) {
	rows, err := s.query(ctx, `
SELECT resource, allocated, used, created_at, updated_at
FROM dyson_resources ORDER BY `+s.orderText("resource"))
	if err != nil {
		return nil, s.wrap("list resources", err)
	}
	defer rows.Close()

	var result []*construction.ResourceAllocation
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, s.wrap("list resources", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list resources", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPhase(sc scanner) (*construction.Phase, error) {
	var (
		p                  construction.Phase
		id                 int64
		reqs, status       string
		createdAt, updated int64
	)
	if err := sc.Scan(&id, &p.Name, &p.Description, &reqs, &status, &createdAt, &updated); err != nil {
		return nil, err
	}
	if reqs != "" {
		if err := json.Unmarshal([]byte(reqs), &p.Requirements); err != nil {
			return nil, fmt.Errorf("decode requirements of phase %d: %w", id, err)
		}
	}
	p.ID = construction.PhaseID(id)
	p.Status = construction.PhaseStatus(status)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updated)
	return &p, nil
}

func scanResource(sc scanner) (*construction.ResourceAllocation, error) {
	var (
		r                  construction.ResourceAllocation
		allocated, used    int64
		createdAt, updated int64
	)
	if err := sc.Scan(&r.Resource, &allocated, &used, &createdAt, &updated); err != nil {
		return nil, err
	}
	r.Committed = uint64(allocated)
	r.Consumed = uint64(used)
	r.CreatedAt = fromMillis(createdAt)
	r.UpdatedAt = fromMillis(updated)
	return &r, nil
}
