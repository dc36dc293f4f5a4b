// Package governance models proposals and the votes cast on them.
package governance

import (
	"time"

	"github.com/xraph/dyson/types"
)

// ProposalID is the sequential identifier of a proposal. The first proposal is 1.
type ProposalID uint64

// Status is the lifecycle state of a proposal.
//
//	active --vote*--> active --close--> closed
//
// closed is terminal.
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusClosed:
		return true
	default:
		return false
	}
}

// AcceptsVotes reports whether votes may be cast in this status.
func (s Status) AcceptsVotes() bool { return s == StatusActive }

// CanClose reports whether a proposal in this status may be closed.
func (s Status) CanClose() bool { return s == StatusActive }

// Proposal is a governance item accumulating for/against votes.
type Proposal struct {
	types.Entity
	ID           ProposalID      `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Proposer     types.Principal `json:"proposer"`
	Status       Status          `json:"status"`
	VotesFor     uint64          `json:"votes_for"`
	VotesAgainst uint64          `json:"votes_against"`
}

// Clone returns a copy of the proposal.
func (p *Proposal) Clone() *Proposal {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// TotalVotes returns VotesFor + VotesAgainst.
func (p *Proposal) TotalVotes() uint64 { return p.VotesFor + p.VotesAgainst }

// Tally adds one vote to the matching side.
func (p *Proposal) Tally(voteFor bool) error {
	var err error
	if voteFor {
		p.VotesFor, err = types.AddQuantity(p.VotesFor, 1)
	} else {
		p.VotesAgainst, err = types.AddQuantity(p.VotesAgainst, 1)
	}
	return err
}

// Vote records that a voter has voted on a proposal. At most one exists per
// (ProposalID, Voter).
type Vote struct {
	ProposalID ProposalID      `json:"proposal_id"`
	Voter      types.Principal `json:"voter"`
	VoteFor    bool            `json:"vote_for"`
	CastAt     time.Time       `json:"cast_at"`
}
