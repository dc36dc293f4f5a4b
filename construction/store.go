package construction

import "context"

// Store persists phases and resource allocations.
type Store interface {
	CreatePhase(ctx context.Context, p *Phase) error
	GetPhase(ctx context.Context, phaseID PhaseID) (*Phase, error)
	ListPhases(ctx context.Context, opts ListOpts) ([]*Phase, error)
	UpdatePhase(ctx context.Context, p *Phase) error

	GetResource(ctx context.Context, resource string) (*ResourceAllocation, error)
	PutResource(ctx context.Context, r *ResourceAllocation) error
	ListResources(ctx context.Context) ([]*ResourceAllocation, error)
}

// ListOpts filters and pages phase listings. Phases are returned in id order.
type ListOpts struct {
	Status PhaseStatus
	Limit  int
	Offset int
}
