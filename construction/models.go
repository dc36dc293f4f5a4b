// Package construction models the phases of the build and the global
// per-resource-kind allocation records.
package construction

import (
	"slices"

	"github.com/xraph/dyson/types"
)

// PhaseID is the sequential identifier of a phase. The first phase is 1.
type PhaseID uint64

// PhaseStatus is the lifecycle state of a phase. The set of accepted values
// is configured on the engine; the constants below are the defaults.
type PhaseStatus string

const (
	StatusPlanned    PhaseStatus = "planned"
	StatusInProgress PhaseStatus = "in-progress"
	StatusCompleted  PhaseStatus = "completed"
	StatusCancelled  PhaseStatus = "cancelled"
)

// DefaultStatuses returns the default status vocabulary. The first entry is
// the status assigned to new phases.
func DefaultStatuses() []PhaseStatus {
	return []PhaseStatus{StatusPlanned, StatusInProgress, StatusCompleted, StatusCancelled}
}

// Requirement is one line of a phase's resource requirement list.
type Requirement struct {
	Resource string `json:"resource" bson:"resource"`
	Amount   uint64 `json:"amount"   bson:"amount"`
}

// Phase is a discrete stage of the construction project.
type Phase struct {
	types.Entity
	ID           PhaseID       `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Requirements []Requirement `json:"resource_requirements"`
	Status       PhaseStatus   `json:"status"`
}

// Clone returns a deep copy of the phase.
func (p *Phase) Clone() *Phase {
	if p == nil {
		return nil
	}
	c := *p
	c.Requirements = slices.Clone(p.Requirements)
	return &c
}

// ResourceAllocation tracks how much of one resource kind has been allocated
// to the project and how much of that has been used.
type ResourceAllocation struct {
	types.Entity
	Resource string `json:"resource"`
	types.Allocation
}

// Clone returns a copy of the allocation record.
func (r *ResourceAllocation) Clone() *ResourceAllocation {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
