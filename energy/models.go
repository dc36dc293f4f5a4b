// Package energy models captured energy and its per-sector distribution.
package energy

import "github.com/xraph/dyson/types"

// Stats holds the global energy totals. Available is derived, never stored.
type Stats struct {
	TotalCaptured    uint64 `json:"total_captured"`
	TotalDistributed uint64 `json:"total_distributed"`
}

// Available returns TotalCaptured - TotalDistributed.
func (s Stats) Available() uint64 { return s.Pool().Available() }

// Pool views the totals as an allocation pair: captured energy is the
// committed side, distributed energy the consumed side.
func (s Stats) Pool() types.Allocation {
	return types.Allocation{Committed: s.TotalCaptured, Consumed: s.TotalDistributed}
}

// SectorEnergy tracks the energy distributed to one sector and how much of
// it the sector has used.
type SectorEnergy struct {
	types.Entity
	Sector string `json:"sector"`
	types.Allocation
}

// Clone returns a copy of the sector record.
func (s *SectorEnergy) Clone() *SectorEnergy {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
