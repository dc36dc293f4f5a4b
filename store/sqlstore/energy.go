package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/xraph/dyson"
	"github.com/xraph/dyson/energy"
)

func (s *Store) GetEnergyStats(ctx context.Context) (energy.Stats, error) {
	captured, err := s.getCounter(ctx, counterEnergyCaptured)
	if err != nil {
		return energy.Stats{}, err
	}
	distributed, err := s.getCounter(ctx, counterEnergyDistributed)
	if err != nil {
		return energy.Stats{}, err
	}
	return energy.Stats{TotalCaptured: captured, TotalDistributed: distributed}, nil
}

// PutEnergyStats writes both totals. Callers run it inside Atomic so the
// pair is never observed half-updated.
func (s *Store) PutEnergyStats(ctx context.Context, stats energy.Stats) error {
	if err := s.setCounter(ctx, counterEnergyCaptured, stats.TotalCaptured); err != nil {
		return err
	}
	return s.setCounter(ctx, counterEnergyDistributed, stats.TotalDistributed)
}

func (s *Store) GetSector(ctx context.Context, sector string) (*energy.SectorEnergy, error) {
	row := s.queryRow(ctx, `
SELECT sector, allocated, used, created_at, updated_at
FROM dyson_sectors WHERE sector = ?`, sector)
	se, err := scanSector(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dyson.ErrSectorNotFound
	}
	if err != nil {
		return nil, s.wrap("get sector", err)
	}
	return se, nil
}

func (s *Store) PutSector(ctx context.Context, se *energy.SectorEnergy) error {
	allocated, err := quantity(se.Committed)
	if err != nil {
		return err
	}
	used, err := quantity(se.Consumed)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `
INSERT INTO dyson_sectors (sector, allocated, used, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (sector) DO UPDATE SET
    allocated = excluded.allocated,
    used = excluded.used,
    updated_at = excluded.updated_at`,
		se.Sector, allocated, used, millis(se.CreatedAt), millis(se.UpdatedAt),
	)
	if err != nil {
		return s.wrap("put sector", err)
	}
	return nil
}

func (s *Store) ListSectors(ctx context.Context) ([]*energy.SectorEnergy, error) {
	rows, err := s.query(ctx, `
SELECT sector, allocated, used, created_at, updated_at
FROM dyson_sectors ORDER BY `+s.orderText("sector"))
	if err != nil {
		return nil, s.wrap("list sectors", err)
	}
	defer rows.Close()

	var result []*energy.SectorEnergy
	for rows.Next() {
		se, err := scanSector(rows)
		if err != nil {
			return nil, s.wrap("list sectors", err)
		}
		result = append(result, se)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list sectors", err)
	}
	return result, nil
}

func scanSector(sc scanner) (*energy.SectorEnergy, error) {
	var (
		se                 energy.SectorEnergy
		allocated, used    int64
		createdAt, updated int64
	)
	if err := sc.Scan(&se.Sector, &allocated, &used, &createdAt, &updated); err != nil {
		return nil, err
	}
	se.Committed = uint64(allocated)
	se.Consumed = uint64(used)
	se.CreatedAt = fromMillis(createdAt)
	se.UpdatedAt = fromMillis(updated)
	return &se, nil
}
