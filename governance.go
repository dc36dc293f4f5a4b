package dyson

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/journal"
	"github.com/xraph/dyson/store"
	"github.com/xraph/dyson/types"
)

// Governance operation names.
const (
	OpCreateProposal = "create-proposal"
	OpVote           = "vote"
	OpCloseProposal  = "close-proposal"
	OpGetProposal    = "get-proposal"
)

// Governance runs proposals and one-vote-per-voter tallies.
type Governance struct {
	e *Engine
}

// CreateProposal opens an active proposal authored by the caller.
func (g *Governance) CreateProposal(ctx context.Context, caller types.Principal, title, description string) (governance.ProposalID, error) {
	var proposal *governance.Proposal
	err := g.e.mutate(ctx, ModuleGovernance, OpCreateProposal, caller, 0,
		func(ctx context.Context, tx store.Store, entry *journal.Entry) error {
			seq, err := tx.NextSequence(ctx, store.SeqProposal)
			if err != nil {
				return err
			}
			proposal = &governance.Proposal{
				Entity:      types.NewEntity(),
				ID:          governance.ProposalID(seq),
				Title:       title,
				Description: description,
				Proposer:    caller,
				Status:      governance.StatusActive,
			}
			if err := tx.CreateProposal(ctx, proposal); err != nil {
				return err
			}
			entry.Subject = proposalSubject(proposal.ID)
			entry.Detail = title
			return nil
		})
	if err != nil {
		return 0, err
	}

	g.e.plugins.EmitProposalCreated(ctx, proposal)
	return proposal.ID, nil
}

// Vote records the caller's vote and increments the matching tally.
func (g *Governance) Vote(ctx context.Context, caller types.Principal, proposalID governance.ProposalID, voteFor bool) error {
	var (
		proposal *governance.Proposal
		vote     *governance.Vote
	)
	err := g.e.mutate(ctx, ModuleGovernance, OpVote, caller, 0,
		func(ctx context.Context, tx store.Store, entry *journal.Entry) error {
			entry.Subject = proposalSubject(proposalID)
			p, err := loadProposal(ctx, tx, proposalID)
			if err != nil {
				return err
			}
			if !p.Status.AcceptsVotes() {
				return fmt.Errorf("%w: %d", ErrProposalNotActive, proposalID)
			}
			if _, err := tx.GetVote(ctx, proposalID, caller); err == nil {
				return fmt.Errorf("%w: %s on proposal %d", ErrAlreadyVoted, caller, proposalID)
			} else if !IsNotFound(err) {
				return err
			}

			if err := p.Tally(voteFor); err != nil {
				return err
			}
			p.Touch()
			v := &governance.Vote{
				ProposalID: proposalID,
				Voter:      caller,
				VoteFor:    voteFor,
				CastAt:     time.Now().UTC(),
			}
			if err := tx.CreateVote(ctx, v); err != nil {
				return err
			}
			if err := tx.UpdateProposal(ctx, p); err != nil {
				return err
			}
			proposal, vote = p, v
			entry.Detail = voteSide(voteFor)
			return nil
		})
	if err != nil {
		return err
	}

	g.e.plugins.EmitVoteCast(ctx, proposal, vote)
	return nil
}

// CloseProposal moves an active proposal to closed. Tallies are frozen.
func (g *Governance) CloseProposal(ctx context.Context, caller types.Principal, proposalID governance.ProposalID) error {
	var proposal *governance.Proposal
	err := g.e.mutate(ctx, ModuleGovernance, OpCloseProposal, caller, 0,
		func(ctx context.Context, tx store.Store, entry *journal.Entry) error {
			entry.Subject = proposalSubject(proposalID)
			p, err := loadProposal(ctx, tx, proposalID)
			if err != nil {
				return err
			}
			if !p.Status.CanClose() {
				return fmt.Errorf("%w: %d", ErrProposalNotActive, proposalID)
			}
			if g.e.config.CloseRequiresProposer && p.Proposer != caller {
				return fmt.Errorf("%w: only the proposer may close proposal %d", ErrForbidden, proposalID)
			}
			p.Status = governance.StatusClosed
			p.Touch()
			if err := tx.UpdateProposal(ctx, p); err != nil {
				return err
			}
			proposal = p
			entry.Detail = fmt.Sprintf("for=%d against=%d", p.VotesFor, p.VotesAgainst)
			return nil
		})
	if err != nil {
		return err
	}

	g.e.plugins.EmitProposalClosed(ctx, caller, proposal)
	return nil
}

// GetProposal returns the proposal, or nil when no proposal has that id.
func (g *Governance) GetProposal(ctx context.Context, proposalID governance.ProposalID) (*governance.Proposal, error) {
	p, err := g.e.store.GetProposal(ctx, proposalID)
	if IsNotFound(err) {
		return nil, nil
	}
	return p, err
}

// ListProposals lists proposals in id order.
func (g *Governance) ListProposals(ctx context.Context, opts governance.ListOpts) ([]*governance.Proposal, error) {
	return g.e.store.ListProposals(ctx, opts)
}

// ListVotes lists the votes cast on a proposal, ordered by voter.
func (g *Governance) ListVotes(ctx context.Context, proposalID governance.ProposalID) ([]*governance.Vote, error) {
	return g.e.store.ListVotes(ctx, proposalID)
}

// HasVoted reports whether voter has a vote recorded on the proposal.
func (g *Governance) HasVoted(ctx context.Context, proposalID governance.ProposalID, voter types.Principal) (bool, error) {
	_, err := g.e.store.GetVote(ctx, proposalID, voter)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

func loadProposal(ctx context.Context, tx store.Store, proposalID governance.ProposalID) (*governance.Proposal, error) {
	p, err := tx.GetProposal(ctx, proposalID)
	if IsNotFound(err) {
		return nil, fmt.Errorf("%w: %d", ErrProposalNotFound, proposalID)
	}
	return p, err
}

func proposalSubject(proposalID governance.ProposalID) string {
	return fmt.Sprintf("%d", proposalID)
}

func voteSide(voteFor bool) string {
	if voteFor {
		return "for"
	}
	return "against"
}
