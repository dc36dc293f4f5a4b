// Package plugin provides an extensible plugin system for Dyson.
// Plugins hook into lifecycle and ledger events. Ledger hooks fire after
// the mutation has committed; their errors are logged and never change the
// outcome of the operation.
package plugin

import (
	"context"

	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/energy"
	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/investment"
	"github.com/xraph/dyson/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts. engine is the *dyson.Engine.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Construction hooks
// ──────────────────────────────────────────────────

// OnPhaseAdded is called after a construction phase is added.
type OnPhaseAdded interface {
	Plugin
	OnPhaseAdded(ctx context.Context, caller types.Principal, phase *construction.Phase) error
}

// OnPhaseStatusChanged is called after a phase changes status.
type OnPhaseStatusChanged interface {
	Plugin
	OnPhaseStatusChanged(ctx context.Context, caller types.Principal, phase *construction.Phase, from construction.PhaseStatus) error
}

// OnResourceAllocated is called after amount is added to a resource allocation.
type OnResourceAllocated interface {
	Plugin
	OnResourceAllocated(ctx context.Context, caller types.Principal, res *construction.ResourceAllocation, amount uint64) error
}

// OnResourceUsed is called after amount of a resource is used.
type OnResourceUsed interface {
	Plugin
	OnResourceUsed(ctx context.Context, caller types.Principal, res *construction.ResourceAllocation, amount uint64) error
}

// ──────────────────────────────────────────────────
// Investment hooks
// ──────────────────────────────────────────────────

// OnInvested is called after an investment; total is the new TotalInvestment.
type OnInvested interface {
	Plugin
	OnInvested(ctx context.Context, inv *investment.Investment, amount, total uint64) error
}

// OnWithdrawn is called after a withdrawal; total is the new TotalInvestment.
type OnWithdrawn interface {
	Plugin
	OnWithdrawn(ctx context.Context, inv *investment.Investment, amount, total uint64) error
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnProposalCreated is called after a proposal is created.
type OnProposalCreated interface {
	Plugin
	OnProposalCreated(ctx context.Context, proposal *governance.Proposal) error
}

// OnVoteCast is called after a vote is recorded. proposal carries the new tally.
type OnVoteCast interface {
	Plugin
	OnVoteCast(ctx context.Context, proposal *governance.Proposal, vote *governance.Vote) error
}

// OnProposalClosed is called after a proposal is closed.
type OnProposalClosed interface {
	Plugin
	OnProposalClosed(ctx context.Context, caller types.Principal, proposal *governance.Proposal) error
}

// ──────────────────────────────────────────────────
// Energy hooks
// ──────────────────────────────────────────────────

// OnEnergyCaptured is called after energy is captured.
type OnEnergyCaptured interface {
	Plugin
	OnEnergyCaptured(ctx context.Context, caller types.Principal, stats energy.Stats, amount uint64) error
}

// OnEnergyDistributed is called after energy is distributed to a sector.
type OnEnergyDistributed interface {
	Plugin
	OnEnergyDistributed(ctx context.Context, caller types.Principal, sector *energy.SectorEnergy, stats energy.Stats, amount uint64) error
}

// OnEnergyUsed is called after a sector uses allocated energy.
type OnEnergyUsed interface {
	Plugin
	OnEnergyUsed(ctx context.Context, caller types.Principal, sector *energy.SectorEnergy, amount uint64) error
}

// ──────────────────────────────────────────────────
// Rejections
// ──────────────────────────────────────────────────

// OnOperationRejected is called when a mutating operation fails and its
// transaction is rolled back.
type OnOperationRejected interface {
	Plugin
	OnOperationRejected(ctx context.Context, module, operation string, caller types.Principal, err error) error
}
