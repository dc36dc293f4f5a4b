package dyson

import (
	"context"
	"fmt"
	"strings"

	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/energy"
	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/investment"
	"github.com/xraph/dyson/types"
)

// callHandler runs one operation from positional arguments.
type callHandler func(ctx context.Context, e *Engine, caller types.Principal, a args) (any, error)

type callKey struct{ module, operation string }

var callTable = map[callKey]callHandler{
	{ModuleConstruction, OpAddConstructionPhase}:  callAddConstructionPhase,
	{ModuleConstruction, OpUpdatePhaseStatus}:     callUpdatePhaseStatus,
	{ModuleConstruction, OpAllocateResource}:      callAllocateResource,
	{ModuleConstruction, OpUseResource}:           callUseResource,
	{ModuleConstruction, OpGetPhase}:              callGetPhase,
	{ModuleConstruction, OpGetResourceAllocation}: callGetResourceAllocation,

	{ModuleInvestment, OpInvest}:             callInvest,
	{ModuleInvestment, OpWithdraw}:           callWithdraw,
	{ModuleInvestment, OpGetInvestment}:      callGetInvestment,
	{ModuleInvestment, OpGetTotalInvestment}: callGetTotalInvestment,

	{ModuleGovernance, OpCreateProposal}: callCreateProposal,
	{ModuleGovernance, OpVote}:           callVote,
	{ModuleGovernance, OpCloseProposal}:  callCloseProposal,
	{ModuleGovernance, OpGetProposal}:    callGetProposal,

	{ModuleSimulation, OpSimulateEnergyCapture}:      callSimulateEnergyCapture,
	{ModuleSimulation, OpSimulateEnergyDistribution}: callSimulateEnergyDistribution,
	{ModuleSimulation, OpUseEnergy}:                  callUseEnergy,
	{ModuleSimulation, OpGetEnergyStats}:             callGetEnergyStats,
	{ModuleSimulation, OpGetSectorEnergy}:            callGetSectorEnergy,
}

// Call invokes an operation by module and operation name with positional
// arguments, the way an external transport addresses the ledgers. Module
// names may carry a "dyson-" prefix ("dyson-construction").
//
// Mutations that create a record return its id as a uint64, other
// mutations return true. Reads return a map in the external record shape,
// or nil when the record is absent.
func (e *Engine) Call(ctx context.Context, caller types.Principal, module, operation string, params ...any) (any, error) {
	key := callKey{module: strings.TrimPrefix(module, "dyson-"), operation: operation}
	h, ok := callTable[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownOperation, module, operation)
	}
	return h(ctx, e, caller, args(params))
}

// Operations lists every module/operation pair Call accepts.
func Operations() map[string][]string {
	out := make(map[string][]string)
	for k := range callTable {
		out[k.module] = append(out[k.module], k.operation)
	}
	return out
}

func callAddConstructionPhase(ctx context.Context, e *Engine, caller types.Principal, a args) (any, error) {
	if err := a.arity(3); err != nil {
		return nil, err
	}
	name, err := a.str(0, "name")
	if err != nil {
		return nil, err
	}
	description, err := a.str(1, "description")
	if err != nil {
		return nil, err
	}
	reqs, err := a.requirements(2, "resource_requirements")
	if err != nil {
		return nil, err
	}
	phaseID, err := e.Construction().AddConstructionPhase(ctx, caller, name, description, reqs)
	if err != nil {
		return nil, err
	}
	return uint64(phaseID), nil
}

func callUpdatePhaseStatus(ctx context.Context, e *Engine, caller types.Principal, a args) (any, error) {
	if err := a.arity(2); err != nil {
		return nil, err
	}
	phaseID, err := a.uint(0, "phase_id")
	if err != nil {
		return nil, err
	}
	status, err := a.str(1, "status")
	if err != nil {
		return nil, err
	}
	if err := e.Construction().UpdatePhaseStatus(ctx, caller, construction.PhaseID(phaseID), phaseStatus(status)); err != nil {
		return nil, err
	}
	return true, nil
}

func callAllocateResource(ctx context.Context, e *Engine, caller types.Principal, a args) (any, error) {
	kind, amount, err := keyAmount(a, "resource")
	if err != nil {
		return nil, err
	}
	if err := e.Construction().AllocateResource(ctx, caller, kind, amount); err != nil {
		return nil, err
	}
	return true, nil
}

func callUseResource(ctx context.Context, e *Engine, caller types.Principal, a args) (any, error) {
	kind, amount, err := keyAmount(a, "resource")
	if err != nil {
		return nil, err
	}
	if err := e.Construction().UseResource(ctx, caller, kind, amount); err != nil {
		return nil, err
	}
	return true, nil
}

func callGetPhase(ctx context.Context, e *Engine, _ types.Principal, a args) (any, error) {
	if err := a.arity(1); err != nil {
		return nil, err
	}
	phaseID, err := a.uint(0, "phase_id")
	if err != nil {
		return nil, err
	}
	p, err := e.Construction().GetPhase(ctx, construction.PhaseID(phaseID))
	if err != nil || p == nil {
		return nil, err
	}
	return phaseRecord(p), nil
}

func callGetResourceAllocation(ctx context.Context, e *Engine, _ types.Principal, a args) (any, error) {
	if err := a.arity(1); err != nil {
		return nil, err
	}
	kind, err := a.str(0, "resource")
	if err != nil {
		return nil, err
	}
	r, err := e.Construction().GetResourceAllocation(ctx, kind)
	if err != nil || r == nil {
		return nil, err
	}
	return allocationRecord(r.Allocation), nil
}

func callInvest(ctx context.Context, e *Engine, caller types.Principal, a args) (any, error) {
	amount, err := singleUint(a, "amount")
	if err != nil {
		return nil, err
	}
	if err := e.Investment().Invest(ctx, caller, amount); err != nil {
		return nil, err
	}
	return true, nil
}

func callWithdraw(ctx context.Context, e *Engine, caller types.Principal, a args) (any, error) {
	amount, err := singleUint(a, "amount")
	if err != nil {
		return nil, err
	}
	if err := e.Investment().Withdraw(ctx, caller, amount); err != nil {
		return nil, err
	}
	return true, nil
}

func callGetInvestment(ctx context.Context, e *Engine, _ types.Principal, a args) (any, error) {
	if err := a.arity(1); err != nil {
		return nil, err
	}
	investor, err := a.principal(0, "investor")
	if err != nil {
		return nil, err
	}
	inv, err := e.Investment().GetInvestment(ctx, investor)
	if err != nil || inv == nil {
		return nil, err
	}
	return investmentRecord(inv), nil
}

func callGetTotalInvestment(ctx context.Context, e *Engine, _ types.Principal, a args) (any, error) {
	if err := a.arity(0); err != nil {
		return nil, err
	}
	total, err := e.Investment().GetTotalInvestment(ctx)
	if err != nil {
		return nil, err
	}
	return total, nil
}

func callCreateProposal(ctx context.Context, e *Engine, caller types.Principal, a args) (any, error) {
	if err := a.arity(2); err != nil {
		return nil, err
	}
	title, err := a.str(0, "title")
	if err != nil {
		return nil, err
	}
	description, err := a.str(1, "description")
	if err != nil {
		return nil, err
	}
	proposalID, err := e.Governance().CreateProposal(ctx, caller, title, description)
	if err != nil {
		return nil, err
	}
	return uint64(proposalID), nil
}

func callVote(ctx context.Context, e *Engine, caller types.Principal, a args) (any, error) {
	if err := a.arity(2); err != nil {
		return nil, err
	}
	proposalID, err := a.uint(0, "proposal_id")
	if err != nil {
		return nil, err
	}
	voteFor, err := a.boolean(1, "vote_for")
	if err != nil {
		return nil, err
	}
	if err := e.Governance().Vote(ctx, caller, governance.ProposalID(proposalID), voteFor); err != nil {
		return nil, err
	}
	return true, nil
}

func callCloseProposal(ctx context.Context, e *Engine, caller types.Principal, a args) (any, error) {
	proposalID, err := singleUint(a, "proposal_id")
	if err != nil {
		return nil, err
	}
	if err := e.Governance().CloseProposal(ctx, caller, governance.ProposalID(proposalID)); err != nil {
		return nil, err
	}
	return true, nil
}

func callGetProposal(ctx context.Context, e *Engine, _ types.Principal, a args) (any, error) {
	proposalID, err := singleUint(a, "proposal_id")
	if err != nil {
		return nil, err
	}
	p, err := e.Governance().GetProposal(ctx, governance.ProposalID(proposalID))
	if err != nil || p == nil {
		return nil, err
	}
	return proposalRecord(p), nil
}

func callSimulateEnergyCapture(ctx context.Context, e *Engine, caller types.Principal, a args) (any, error) {
	amount, err := singleUint(a, "amount")
	if err != nil {
		return nil, err
	}
	if err := e.Energy().SimulateEnergyCapture(ctx, caller, amount); err != nil {
		return nil, err
	}
	return true, nil
}

func callSimulateEnergyDistribution(ctx context.Context, e *Engine, caller types.Principal, a args) (any, error) {
	sector, amount, err := keyAmount(a, "sector")
	if err != nil {
		return nil, err
	}
	if err := e.Energy().SimulateEnergyDistribution(ctx, caller, sector, amount); err != nil {
		return nil, err
	}
	return true, nil
}

func callUseEnergy(ctx context.Context, e *Engine, caller types.Principal, a args) (any, error) {
	sector, amount, err := keyAmount(a, "sector")
	if err != nil {
		return nil, err
	}
	if err := e.Energy().UseEnergy(ctx, caller, sector, amount); err != nil {
		return nil, err
	}
	return true, nil
}

func callGetEnergyStats(ctx context.Context, e *Engine, _ types.Principal, a args) (any, error) {
	if err := a.arity(0); err != nil {
		return nil, err
	}
	s, err := e.Energy().GetEnergyStats(ctx)
	if err != nil {
		return nil, err
	}
	return statsRecord(s), nil
}

func callGetSectorEnergy(ctx context.Context, e *Engine, _ types.Principal, a args) (any, error) {
	if err := a.arity(1); err != nil {
		return nil, err
	}
	sector, err := a.str(0, "sector")
	if err != nil {
		return nil, err
	}
	s, err := e.Energy().GetSectorEnergy(ctx, sector)
	if err != nil || s == nil {
		return nil, err
	}
	return allocationRecord(s.Allocation), nil
}

func keyAmount(a args, field string) (string, uint64, error) {
	if err := a.arity(2); err != nil {
		return "", 0, err
	}
	key, err := a.str(0, field)
	if err != nil {
		return "", 0, err
	}
	amount, err := a.uint(1, "amount")
	if err != nil {
		return "", 0, err
	}
	return key, amount, nil
}

func singleUint(a args, field string) (uint64, error) {
	if err := a.arity(1); err != nil {
		return 0, err
	}
	return a.uint(0, field)
}

// ──────────────────────────────────────────────────
// External record shapes
// ──────────────────────────────────────────────────

func phaseRecord(p *construction.Phase) map[string]any {
	reqs := make([]map[string]any, 0, len(p.Requirements))
	for _, r := range p.Requirements {
		reqs = append(reqs, map[string]any{"resource": r.Resource, "amount": r.Amount})
	}
	return map[string]any{
		"name":                  p.Name,
		"description":           p.Description,
		"resource_requirements": reqs,
		"status":                string(p.Status),
	}
}

func allocationRecord(a types.Allocation) map[string]any {
	return map[string]any{"allocated": a.Committed, "used": a.Consumed}
}

func investmentRecord(inv *investment.Investment) map[string]any {
	return map[string]any{"amount": inv.Amount}
}

func proposalRecord(p *governance.Proposal) map[string]any {
	return map[string]any{
		"title":         p.Title,
		"description":   p.Description,
		"proposer":      p.Proposer.String(),
		"status":        string(p.Status),
		"votes_for":     p.VotesFor,
		"votes_against": p.VotesAgainst,
	}
}

func statsRecord(s energy.Stats) map[string]uint64 {
	return map[string]uint64{
		"total_captured":    s.TotalCaptured,
		"total_distributed": s.TotalDistributed,
		"available":         s.Available(),
	}
}
