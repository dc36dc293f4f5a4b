package dyson

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/journal"
	"github.com/xraph/dyson/store"
	"github.com/xraph/dyson/types"
)

// Construction operation names.
const (
	OpAddConstructionPhase  = "add-construction-phase"
	OpUpdatePhaseStatus     = "update-phase-status"
	OpAllocateResource      = "allocate-resource"
	OpUseResource           = "use-resource"
	OpGetPhase              = "get-phase"
	OpGetResourceAllocation = "get-resource-allocation"
)

// Construction tracks build phases and the global resource ledger.
type Construction struct {
	e *Engine
}

// AddConstructionPhase registers a phase with the next sequential id and
// the initial configured status.
func (c *Construction) AddConstructionPhase(ctx context.Context, caller types.Principal, name, description string, reqs []construction.Requirement) (construction.PhaseID, error) {
	for i, r := range reqs {
		if r.Amount > types.MaxQuantity {
			return 0, fmt.Errorf("%w: requirement %d amount %d", ErrOverflow, i, r.Amount)
		}
	}

	var phase *construction.Phase
	err := c.e.mutate(ctx, ModuleConstruction, OpAddConstructionPhase, caller, 0,
		func(ctx context.Context, tx store.Store, entry *journal.Entry) error {
			seq, err := tx.NextSequence(ctx, store.SeqPhase)
			if err != nil {
				return err
			}
			phase = &construction.Phase{
				Entity:       types.NewEntity(),
				ID:           construction.PhaseID(seq),
				Name:         name,
				Description:  description,
				Requirements: slices.Clone(reqs),
				Status:       c.e.config.InitialStatus(),
			}
			if phase.Requirements == nil {
				phase.Requirements = []construction.Requirement{}
			}
			if err := tx.CreatePhase(ctx, phase); err != nil {
				return err
			}
			entry.Subject = phaseSubject(phase.ID)
			entry.Detail = name
			return nil
		})
	if err != nil {
		return 0, err
	}

	c.e.plugins.EmitPhaseAdded(ctx, caller, phase)
	return phase.ID, nil
}

// UpdatePhaseStatus moves a phase to any configured status.
func (c *Construction) UpdatePhaseStatus(ctx context.Context, caller types.Principal, phaseID construction.PhaseID, status construction.PhaseStatus) error {
	var (
		phase *construction.Phase
		from  construction.PhaseStatus
	)
	err := c.e.mutate(ctx, ModuleConstruction, OpUpdatePhaseStatus, caller, 0,
		func(ctx context.Context, tx store.Store, entry *journal.Entry) error {
			if !c.e.config.AcceptsStatus(status) {
				return ValidationError{Field: "status", Message: fmt.Sprintf("unknown phase status %q", status)}
			}
			p, err := tx.GetPhase(ctx, phaseID)
			if err != nil {
				if IsNotFound(err) {
					return fmt.Errorf("%w: %d", ErrPhaseNotFound, phaseID)
				}
				return err
			}
			from = p.Status
			p.Status = status
			p.Touch()
			if err := tx.UpdatePhase(ctx, p); err != nil {
				return err
			}
			phase = p
			entry.Subject = phaseSubject(phaseID)
			entry.Detail = string(from) + " -> " + string(status)
			return nil
		})
	if err != nil {
		return err
	}

	c.e.plugins.EmitPhaseStatusChanged(ctx, caller, phase, from)
	return nil
}

// AllocateResource adds amount to the committed side of a resource kind,
// creating its record on first use.
func (c *Construction) AllocateResource(ctx context.Context, caller types.Principal, kind string, amount uint64) error {
	var res *construction.ResourceAllocation
	err := c.e.mutate(ctx, ModuleConstruction, OpAllocateResource, caller, amount,
		func(ctx context.Context, tx store.Store, entry *journal.Entry) error {
			if err := requireKey("resource", kind); err != nil {
				return err
			}
			r, err := loadResource(ctx, tx, kind)
			if err != nil {
				return err
			}
			if r == nil {
				r = &construction.ResourceAllocation{Entity: types.NewEntity(), Resource: kind}
			}
			alloc, err := r.Allocation.Commit(amount)
			if err != nil {
				return err
			}
			r.Allocation = alloc
			r.Touch()
			if err := tx.PutResource(ctx, r); err != nil {
				return err
			}
			res = r
			entry.Subject = kind
			return nil
		})
	if err != nil {
		return err
	}

	c.e.plugins.EmitResourceAllocated(ctx, caller, res, amount)
	return nil
}

// UseResource consumes amount of a resource kind. It fails with
// ErrInsufficientResource when amount exceeds what is available; a kind
// that was never allocated has nothing available.
func (c *Construction) UseResource(ctx context.Context, caller types.Principal, kind string, amount uint64) error {
	var res *construction.ResourceAllocation
	err := c.e.mutate(ctx, ModuleConstruction, OpUseResource, caller, amount,
		func(ctx context.Context, tx store.Store, entry *journal.Entry) error {
			if err := requireKey("resource", kind); err != nil {
				return err
			}
			entry.Subject = kind
			r, err := loadResource(ctx, tx, kind)
			if err != nil {
				return err
			}
			if r == nil {
				if amount > 0 {
					return fmt.Errorf("%w: %s has 0 available, %d requested", ErrInsufficientResource, kind, amount)
				}
				res = &construction.ResourceAllocation{Resource: kind}
				return nil
			}
			alloc, err := r.Allocation.Consume(amount)
			if err != nil {
				return fmt.Errorf("%w: %s has %d available, %d requested",
					ErrInsufficientResource, kind, r.Available(), amount)
			}
			r.Allocation = alloc
			r.Touch()
			if err := tx.PutResource(ctx, r); err != nil {
				return err
			}
			res = r
			return nil
		})
	if err != nil {
		return err
	}

	c.e.plugins.EmitResourceUsed(ctx, caller, res, amount)
	return nil
}

// GetPhase returns the phase, or nil when no phase has that id.
func (c *Construction) GetPhase(ctx context.Context, phaseID construction.PhaseID) (*construction.Phase, error) {
	p, err := c.e.store.GetPhase(ctx, phaseID)
	if IsNotFound(err) {
		return nil, nil
	}
	return p, err
}

// GetResourceAllocation returns the allocation record of a resource kind,
// or nil when the kind was never allocated.
func (c *Construction) GetResourceAllocation(ctx context.Context, kind string) (*construction.ResourceAllocation, error) {
	r, err := c.e.store.GetResource(ctx, kind)
	if IsNotFound(err) {
		return nil, nil
	}
	return r, err
}

// ListPhases lists phases in id order.
func (c *Construction) ListPhases(ctx context.Context, opts construction.ListOpts) ([]*construction.Phase, error) {
	return c.e.store.ListPhases(ctx, opts)
}

// ListResourceAllocations lists every resource kind ever allocated.
func (c *Construction) ListResourceAllocations(ctx context.Context) ([]*construction.ResourceAllocation, error) {
	return c.e.store.ListResources(ctx)
}

func loadResource(ctx context.Context, tx store.Store, kind string) (*construction.ResourceAllocation, error) {
	r, err := tx.GetResource(ctx, kind)
	if IsNotFound(err) {
		return nil, nil
	}
	return r, err
}

func requireKey(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return ValidationError{Field: field, Message: "must not be empty"}
	}
	return nil
}

func phaseSubject(phaseID construction.PhaseID) string {
	return strconv.FormatUint(uint64(phaseID), 10)
}

func phaseStatus(s string) construction.PhaseStatus {
	return construction.PhaseStatus(strings.TrimSpace(s))
}
