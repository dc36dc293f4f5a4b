package governance

import (
	"context"

	"github.com/xraph/dyson/types"
)

// Store persists proposals and vote records.
type Store interface {
	CreateProposal(ctx context.Context, p *Proposal) error
	GetProposal(ctx context.Context, proposalID ProposalID) (*Proposal, error)
	ListProposals(ctx context.Context, opts ListOpts) ([]*Proposal, error)
	UpdateProposal(ctx context.Context, p *Proposal) error

	// CreateVote fails with an already-voted error when the voter already has
	// a vote on the proposal.
	CreateVote(ctx context.Context, v *Vote) error
	GetVote(ctx context.Context, proposalID ProposalID, voter types.Principal) (*Vote, error)
	ListVotes(ctx context.Context, proposalID ProposalID) ([]*Vote, error)
}

// ListOpts filters and pages proposal listings. Proposals are returned in id order.
type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
