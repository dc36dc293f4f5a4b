package dyson

import (
	"context"
	"fmt"

	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/store"
	"github.com/xraph/dyson/types"
)

// Invariant names reported in InvariantError.
const (
	InvariantResourceUsage     = "resource-usage"
	InvariantSectorUsage       = "sector-usage"
	InvariantEnergyConserved   = "energy-conservation"
	InvariantDistributionBound = "distribution-bound"
	InvariantInvestmentTotal   = "investment-total"
	InvariantVoteTally         = "vote-tally"
	InvariantProposalStatus    = "proposal-status"
	InvariantPhaseStatus       = "phase-status"
)

// VerifyInvariants checks the accounting properties of every ledger against
// the stored state. It returns nil when they all hold, or a MultiError of
// InvariantError values. Store failures are returned as-is.
//
// The check holds the mutation lock and reads inside one transaction, so it
// sees a single point in the operation order.
func (e *Engine) VerifyInvariants(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs MultiError
	err := e.store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		errs = MultiError{}
		if err := e.verifyConstruction(ctx, tx, &errs); err != nil {
			return err
		}
		if err := e.verifyEnergy(ctx, tx, &errs); err != nil {
			return err
		}
		if err := e.verifyInvestment(ctx, tx, &errs); err != nil {
			return err
		}
		return e.verifyGovernance(ctx, tx, &errs)
	})
	if err != nil {
		return err
	}

	return errs.ErrorOrNil()
}

func (e *Engine) verifyConstruction(ctx context.Context, s store.Store, errs *MultiError) error {
	resources, err := s.ListResources(ctx)
	if err != nil {
		return err
	}
	for _, r := range resources {
		if !r.Valid() {
			errs.Add(InvariantError{
				Invariant: InvariantResourceUsage,
				Subject:   r.Resource,
				Detail:    fmt.Sprintf("used %d exceeds allocated %d", r.Consumed, r.Committed),
			})
		}
	}

	phases, err := s.ListPhases(ctx, construction.ListOpts{})
	if err != nil {
		return err
	}
	for _, p := range phases {
		if !e.config.AcceptsStatus(p.Status) {
			errs.Add(InvariantError{
				Invariant: InvariantPhaseStatus,
				Subject:   phaseSubject(p.ID),
				Detail:    fmt.Sprintf("status %q is not configured", p.Status),
			})
		}
	}
	return nil
}

func (e *Engine) verifyEnergy(ctx context.Context, s store.Store, errs *MultiError) error {
	stats, err := s.GetEnergyStats(ctx)
	if err != nil {
		return err
	}
	if !stats.Pool().Valid() {
		errs.Add(InvariantError{
			Invariant: InvariantEnergyConserved,
			Detail:    fmt.Sprintf("distributed %d exceeds captured %d", stats.TotalDistributed, stats.TotalCaptured),
		})
	}

	sectors, err := s.ListSectors(ctx)
	if err != nil {
		return err
	}
	var allocated uint64
	for _, s := range sectors {
		if !s.Valid() {
			errs.Add(InvariantError{
				Invariant: InvariantSectorUsage,
				Subject:   s.Sector,
				Detail:    fmt.Sprintf("used %d exceeds allocated %d", s.Consumed, s.Committed),
			})
		}
		if allocated, err = types.AddQuantity(allocated, s.Committed); err != nil {
			errs.Add(InvariantError{Invariant: InvariantDistributionBound, Detail: err.Error()})
			return nil
		}
	}
	if allocated > stats.TotalDistributed {
		errs.Add(InvariantError{
			Invariant: InvariantDistributionBound,
			Detail:    fmt.Sprintf("sector allocations %d exceed distributed %d", allocated, stats.TotalDistributed),
		})
	}
	return nil
}

func (e *Engine) verifyInvestment(ctx context.Context, s store.Store, errs *MultiError) error {
	investments, err := s.ListInvestments(ctx)
	if err != nil {
		return err
	}
	total, err := s.GetTotalInvestment(ctx)
	if err != nil {
		return err
	}

	var sum uint64
	for _, inv := range investments {
		if sum, err = types.AddQuantity(sum, inv.Amount); err != nil {
			errs.Add(InvariantError{Invariant: InvariantInvestmentTotal, Detail: err.Error()})
			return nil
		}
	}
	if sum != total {
		errs.Add(InvariantError{
			Invariant: InvariantInvestmentTotal,
			Detail:    fmt.Sprintf("stored total %d, sum of investments %d", total, sum),
		})
	}
	return nil
}

func (e *Engine) verifyGovernance(ctx context.Context, s store.Store, errs *MultiError) error {
	proposals, err := s.ListProposals(ctx, governance.ListOpts{})
	if err != nil {
		return err
	}
	for _, p := range proposals {
		subject := proposalSubject(p.ID)
		if !p.Status.Valid() {
			errs.Add(InvariantError{
				Invariant: InvariantProposalStatus,
				Subject:   subject,
				Detail:    fmt.Sprintf("unknown status %q", p.Status),
			})
		}

		votes, err := s.ListVotes(ctx, p.ID)
		if err != nil {
			return err
		}
		var votesFor, votesAgainst uint64
		for _, v := range votes {
			if v.VoteFor {
				votesFor++
			} else {
				votesAgainst++
			}
		}
		if votesFor != p.VotesFor || votesAgainst != p.VotesAgainst {
			errs.Add(InvariantError{
				Invariant: InvariantVoteTally,
				Subject:   subject,
				Detail: fmt.Sprintf("tally %d/%d, recorded votes %d/%d",
					p.VotesFor, p.VotesAgainst, votesFor, votesAgainst),
			})
		}
	}
	return nil
}
