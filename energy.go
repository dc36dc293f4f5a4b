package dyson

import (
	"context"
	"fmt"

	"github.com/xraph/dyson/energy"
	"github.com/xraph/dyson/journal"
	"github.com/xraph/dyson/store"
	"github.com/xraph/dyson/types"
)

// Energy operation names.
const (
	OpSimulateEnergyCapture      = "simulate-energy-capture"
	OpSimulateEnergyDistribution = "simulate-energy-distribution"
	OpUseEnergy                  = "use-energy"
	OpGetEnergyStats             = "get-energy-stats"
	OpGetSectorEnergy            = "get-sector-energy"
)

// Energy is a two-level ledger: captured energy is distributed to sectors,
// and each sector consumes what it was given.
type Energy struct {
	e *Engine
}

// SimulateEnergyCapture adds amount to the captured total.
func (en *Energy) SimulateEnergyCapture(ctx context.Context, caller types.Principal, amount uint64) error {
	var stats energy.Stats
	err := en.e.mutate(ctx, ModuleSimulation, OpSimulateEnergyCapture, caller, amount,
		func(ctx context.Context, tx store.Store, _ *journal.Entry) error {
			s, err := tx.GetEnergyStats(ctx)
			if err != nil {
				return err
			}
			if s.TotalCaptured, err = types.AddQuantity(s.TotalCaptured, amount); err != nil {
				return err
			}
			if err := tx.PutEnergyStats(ctx, s); err != nil {
				return err
			}
			stats = s
			return nil
		})
	if err != nil {
		return err
	}

	en.e.plugins.EmitEnergyCaptured(ctx, caller, stats, amount)
	return nil
}

// SimulateEnergyDistribution moves amount from the available pool to a
// sector. It fails with ErrInsufficientEnergy when the pool is short.
func (en *Energy) SimulateEnergyDistribution(ctx context.Context, caller types.Principal, sector string, amount uint64) error {
	var (
		stats energy.Stats
		rec   *energy.SectorEnergy
	)
	err := en.e.mutate(ctx, ModuleSimulation, OpSimulateEnergyDistribution, caller, amount,
		func(ctx context.Context, tx store.Store, entry *journal.Entry) error {
			if err := requireKey("sector", sector); err != nil {
				return err
			}
			entry.Subject = sector

			s, err := tx.GetEnergyStats(ctx)
			if err != nil {
				return err
			}
			pool, err := s.Pool().Consume(amount)
			if err != nil {
				return fmt.Errorf("%w: %d available, %d requested", ErrInsufficientEnergy, s.Available(), amount)
			}
			s.TotalDistributed = pool.Consumed

			r, err := loadSector(ctx, tx, sector)
			if err != nil {
				return err
			}
			if r == nil {
				r = &energy.SectorEnergy{Entity: types.NewEntity(), Sector: sector}
			}
			if r.Allocation, err = r.Allocation.Commit(amount); err != nil {
				return err
			}
			r.Touch()

			if err := tx.PutEnergyStats(ctx, s); err != nil {
				return err
			}
			if err := tx.PutSector(ctx, r); err != nil {
				return err
			}
			stats, rec = s, r
			return nil
		})
	if err != nil {
		return err
	}

	en.e.plugins.EmitEnergyDistributed(ctx, caller, rec, stats, amount)
	return nil
}

// UseEnergy consumes amount of a sector's allocation. It fails with
// ErrInsufficientAllocatedEnergy when the sector has less available.
func (en *Energy) UseEnergy(ctx context.Context, caller types.Principal, sector string, amount uint64) error {
	var rec *energy.SectorEnergy
	err := en.e.mutate(ctx, ModuleSimulation, OpUseEnergy, caller, amount,
		func(ctx context.Context, tx store.Store, entry *journal.Entry) error {
			if err := requireKey("sector", sector); err != nil {
				return err
			}
			entry.Subject = sector

			r, err := loadSector(ctx, tx, sector)
			if err != nil {
				return err
			}
			if r == nil {
				if amount > 0 {
					return fmt.Errorf("%w: %s has 0 available, %d requested", ErrInsufficientAllocatedEnergy, sector, amount)
				}
				rec = &energy.SectorEnergy{Sector: sector}
				return nil
			}
			alloc, err := r.Allocation.Consume(amount)
			if err != nil {
				return fmt.Errorf("%w: %s has %d available, %d requested",
					ErrInsufficientAllocatedEnergy, sector, r.Available(), amount)
			}
			r.Allocation = alloc
			r.Touch()
			if err := tx.PutSector(ctx, r); err != nil {
				return err
			}
			rec = r
			return nil
		})
	if err != nil {
		return err
	}

	en.e.plugins.EmitEnergyUsed(ctx, caller, rec, amount)
	return nil
}

// GetEnergyStats returns the global totals. Available is derived from them.
func (en *Energy) GetEnergyStats(ctx context.Context) (energy.Stats, error) {
	return en.e.store.GetEnergyStats(ctx)
}

// GetSectorEnergy returns the sector record, or nil when the sector never
// received energy.
func (en *Energy) GetSectorEnergy(ctx context.Context, sector string) (*energy.SectorEnergy, error) {
	s, err := en.e.store.GetSector(ctx, sector)
	if IsNotFound(err) {
		return nil, nil
	}
	return s, err
}

// ListSectors lists every sector that received energy.
func (en *Energy) ListSectors(ctx context.Context) ([]*energy.SectorEnergy, error) {
	return en.e.store.ListSectors(ctx)
}

func loadSector(ctx context.Context, tx store.Store, sector string) (*energy.SectorEnergy, error) {
	s, err := tx.GetSector(ctx, sector)
	if IsNotFound(err) {
		return nil, nil
	}
	return s, err
}
