package energy

import "context"

// Store persists energy totals and sector records.
type Store interface {
	// GetEnergyStats returns zero totals before the first capture.
	GetEnergyStats(ctx context.Context) (Stats, error)
	PutEnergyStats(ctx context.Context, s Stats) error

	GetSector(ctx context.Context, sector string) (*SectorEnergy, error)
	PutSector(ctx context.Context, s *SectorEnergy) error
	ListSectors(ctx context.Context) ([]*SectorEnergy, error)
}
