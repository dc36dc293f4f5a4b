// Package audithook bridges Dyson ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/energy"
	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/id"
	"github.com/xraph/dyson/investment"
	"github.com/xraph/dyson/plugin"
	"github.com/xraph/dyson/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnPhaseAdded         = (*Extension)(nil)
	_ plugin.OnPhaseStatusChanged = (*Extension)(nil)
	_ plugin.OnResourceAllocated  = (*Extension)(nil)
	_ plugin.OnResourceUsed       = (*Extension)(nil)
	_ plugin.OnInvested           = (*Extension)(nil)
	_ plugin.OnWithdrawn          = (*Extension)(nil)
	_ plugin.OnProposalCreated    = (*Extension)(nil)
	_ plugin.OnVoteCast           = (*Extension)(nil)
	_ plugin.OnProposalClosed     = (*Extension)(nil)
	_ plugin.OnEnergyCaptured     = (*Extension)(nil)
	_ plugin.OnEnergyDistributed  = (*Extension)(nil)
	_ plugin.OnEnergyUsed         = (*Extension)(nil)
	_ plugin.OnOperationRejected  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one audited ledger event.
type AuditEvent struct {
	ID         id.AuditID     `json:"id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
	At         time.Time      `json:"at"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Construction hooks
// ──────────────────────────────────────────────────

// OnPhaseAdded implements plugin.OnPhaseAdded.
func (e *Extension) OnPhaseAdded(ctx context.Context, caller types.Principal, phase *construction.Phase) error {
	return e.record(ctx, ActionPhaseAdded, SeverityInfo, OutcomeSuccess,
		ResourcePhase, phaseID(phase), CategoryConstruction, caller, nil,
		"name", phase.Name,
		"status", string(phase.Status),
		"requirements", len(phase.Requirements),
	)
}

// OnPhaseStatusChanged implements plugin.OnPhaseStatusChanged.
func (e *Extension) OnPhaseStatusChanged(ctx context.Context, caller types.Principal, phase *construction.Phase, from construction.PhaseStatus) error {
	return e.record(ctx, ActionPhaseStatusChanged, SeverityInfo, OutcomeSuccess,
		ResourcePhase, phaseID(phase), CategoryConstruction, caller, nil,
		"from", string(from),
		"to", string(phase.Status),
	)
}

// OnResourceAllocated implements plugin.OnResourceAllocated.
func (e *Extension) OnResourceAllocated(ctx context.Context, caller types.Principal, res *construction.ResourceAllocation, amount uint64) error {
	return e.record(ctx, ActionResourceAllocated, SeverityInfo, OutcomeSuccess,
		ResourceMaterial, res.Resource, CategoryConstruction, caller, nil,
		"amount", amount,
		"allocated", res.Committed,
		"used", res.Consumed,
	)
}

// OnResourceUsed implements plugin.OnResourceUsed.
func (e *Extension) OnResourceUsed(ctx context.Context, caller types.Principal, res *construction.ResourceAllocation, amount uint64) error {
	return e.record(ctx, ActionResourceUsed, SeverityInfo, OutcomeSuccess,
		ResourceMaterial, res.Resource, CategoryConstruction, caller, nil,
		"amount", amount,
		"allocated", res.Committed,
		"used", res.Consumed,
	)
}

// ──────────────────────────────────────────────────
// Investment hooks
// ──────────────────────────────────────────────────

// OnInvested implements plugin.OnInvested.
func (e *Extension) OnInvested(ctx context.Context, inv *investment.Investment, amount, total uint64) error {
	return e.record(ctx, ActionInvested, SeverityInfo, OutcomeSuccess,
		ResourceInvestment, inv.Investor.String(), CategoryCapital, inv.Investor, nil,
		"amount", amount,
		"balance", inv.Amount,
		"total", total,
	)
}

// OnWithdrawn implements plugin.OnWithdrawn.
func (e *Extension) OnWithdrawn(ctx context.Context, inv *investment.Investment, amount, total uint64) error {
	return e.record(ctx, ActionWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceInvestment, inv.Investor.String(), CategoryCapital, inv.Investor, nil,
		"amount", amount,
		"balance", inv.Amount,
		"total", total,
	)
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnProposalCreated implements plugin.OnProposalCreated.
func (e *Extension) OnProposalCreated(ctx context.Context, proposal *governance.Proposal) error {
	return e.record(ctx, ActionProposalCreated, SeverityInfo, OutcomeSuccess,
		ResourceProposal, proposalID(proposal), CategoryGovernance, proposal.Proposer, nil,
		"title", proposal.Title,
	)
}

// OnVoteCast implements plugin.OnVoteCast.
func (e *Extension) OnVoteCast(ctx context.Context, proposal *governance.Proposal, vote *governance.Vote) error {
	return e.record(ctx, ActionVoteCast, SeverityInfo, OutcomeSuccess,
		ResourceProposal, proposalID(proposal), CategoryGovernance, vote.Voter, nil,
		"vote_for", vote.VoteFor,
		"votes_for", proposal.VotesFor,
		"votes_against", proposal.VotesAgainst,
	)
}

// OnProposalClosed implements plugin.OnProposalClosed.
func (e *Extension) OnProposalClosed(ctx context.Context, caller types.Principal, proposal *governance.Proposal) error {
	return e.record(ctx, ActionProposalClosed, SeverityInfo, OutcomeSuccess,
		ResourceProposal, proposalID(proposal), CategoryGovernance, caller, nil,
		"votes_for", proposal.VotesFor,
		"votes_against", proposal.VotesAgainst,
	)
}

// ──────────────────────────────────────────────────
// Energy hooks
// ──────────────────────────────────────────────────

// OnEnergyCaptured implements plugin.OnEnergyCaptured.
func (e *Extension) OnEnergyCaptured(ctx context.Context, caller types.Principal, stats energy.Stats, amount uint64) error {
	return e.record(ctx, ActionEnergyCaptured, SeverityInfo, OutcomeSuccess,
		ResourceEnergy, "", CategoryEnergy, caller, nil,
		"amount", amount,
		"total_captured", stats.TotalCaptured,
		"available", stats.Available(),
	)
}

// OnEnergyDistributed implements plugin.OnEnergyDistributed.
func (e *Extension) OnEnergyDistributed(ctx context.Context, caller types.Principal, sector *energy.SectorEnergy, stats energy.Stats, amount uint64) error {
	return e.record(ctx, ActionEnergyDistributed, SeverityInfo, OutcomeSuccess,
		ResourceSector, sector.Sector, CategoryEnergy, caller, nil,
		"amount", amount,
		"allocated", sector.Committed,
		"available", stats.Available(),
	)
}

// OnEnergyUsed implements plugin.OnEnergyUsed.
func (e *Extension) OnEnergyUsed(ctx context.Context, caller types.Principal, sector *energy.SectorEnergy, amount uint64) error {
	return e.record(ctx, ActionEnergyUsed, SeverityInfo, OutcomeSuccess,
		ResourceSector, sector.Sector, CategoryEnergy, caller, nil,
		"amount", amount,
		"allocated", sector.Committed,
		"used", sector.Consumed,
	)
}

// ──────────────────────────────────────────────────
// Rejections
// ──────────────────────────────────────────────────

// OnOperationRejected implements plugin.OnOperationRejected.
func (e *Extension) OnOperationRejected(ctx context.Context, module, operation string, caller types.Principal, opErr error) error {
	return e.record(ctx, ActionOperationRejected, SeverityWarning, OutcomeFailure,
		ResourceOperation, module+"/"+operation, CategoryAccess, caller, opErr,
		"module", module,
		"operation", operation,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	actor types.Principal,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewAuditID(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Actor:      actor.String(),
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
		At:         time.Now().UTC(),
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

func phaseID(p *construction.Phase) string {
	return strconv.FormatUint(uint64(p.ID), 10)
}

func proposalID(p *governance.Proposal) string {
	return strconv.FormatUint(uint64(p.ID), 10)
}
