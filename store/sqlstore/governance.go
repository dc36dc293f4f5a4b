package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/dyson"
	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/types"
)

const proposalColumns = `id, title, description, proposer, status, votes_for, votes_against, created_at, updated_at`

func (s *Store) CreateProposal(ctx context.Context, p *governance.Proposal) error {
	id, err := quantity(uint64(p.ID))
	if err != nil {
		return err
	}
	res, err := s.exec(ctx, `
INSERT INTO dyson_proposals (`+proposalColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`,
		id, p.Title, p.Description, string(p.Proposer), string(p.Status),
		int64(p.VotesFor), int64(p.VotesAgainst), millis(p.CreatedAt), millis(p.UpdatedAt),
	)
	if err != nil {
		return s.wrap("create proposal", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: create proposal %d: %w", s.dialect.Name, p.ID, dyson.ErrAlreadyExists)
	}
	return nil
}

func (s *Store) GetProposal(ctx context.Context, proposalID governance.ProposalID) (*governance.Proposal, error) {
	row := s.queryRow(ctx, `SELECT `+proposalColumns+` FROM dyson_proposals WHERE id = ?`, int64(proposalID))
	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dyson.ErrProposalNotFound
	}
	if err != nil {
		return nil, s.wrap("get proposal", err)
	}
	return p, nil
}

func (s *Store) ListProposals(ctx context.Context, opts governance.ListOpts) ([]*governance.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM dyson_proposals`
	var args []any
	if opts.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(opts.Status))
	}
	query += ` ORDER BY id`
	query, args = pageClause(query, args, opts.Limit, opts.Offset)

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, s.wrap("list proposals", err)
	}
	defer rows.Close()

	var result []*governance.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, s.wrap("list proposals", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list proposals", err)
	}
	return result, nil
}

func (s *Store) UpdateProposal(ctx context.Context, p *governance.Proposal) error {
	votesFor, err := quantity(p.VotesFor)
	if err != nil {
		return err
	}
	votesAgainst, err := quantity(p.VotesAgainst)
	if err != nil {
		return err
	}
	res, err := s.exec(ctx, `
UPDATE dyson_proposals
SET title = ?, description = ?, status = ?, votes_for = ?, votes_against = ?, updated_at = ?
WHERE id = ?`,
		p.Title, p.Description, string(p.Status), votesFor, votesAgainst, millis(p.UpdatedAt), int64(p.ID),
	)
	if err != nil {
		return s.wrap("update proposal", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return dyson.ErrProposalNotFound
	}
	return nil
}

func (s *Store) CreateVote(ctx context.Context, v *governance.Vote) error {
	voteFor := 0
	if v.VoteFor {
		voteFor = 1
	}
	res, err := s.exec(ctx, `
INSERT INTO dyson_votes (proposal_id, voter, vote_for, cast_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (proposal_id, voter) DO NOTHING`,
		int64(v.ProposalID), string(v.Voter), voteFor, millis(v.CastAt),
	)
	if err != nil {
		return s.wrap("create vote", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return dyson.ErrAlreadyVoted
	}
	return nil
}

func (s *Store) GetVote(ctx context.Context, proposalID governance.ProposalID, voter types.Principal) (*governance.Vote, error) {
	row := s.queryRow(ctx, `
SELECT proposal_id, voter, vote_for, cast_at
FROM dyson_votes WHERE proposal_id = ? AND voter = ?`, int64(proposalID), string(voter))
	v, err := scanVote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dyson.ErrVoteNotFound
	}
	if err != nil {
		return nil, s.wrap("get vote", err)
	}
	return v, nil
}

func (s *Store) ListVotes(ctx context.Context, proposalID governance.ProposalID) ([]*governance.Vote, error) {
	rows, err := s.query(ctx, `
SELECT proposal_id, voter, vote_for, cast_at
FROM dyson_votes WHERE proposal_id = ? ORDER BY `+s.orderText("voter"), int64(proposalID))
	if err != nil {
		return nil, s.wrap("list votes", err)
	}
	defer rows.Close()

	var result []*governance.Vote
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, s.wrap("list votes", err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list votes", err)
	}
	return result, nil
}

func scanProposal(sc scanner) (*governance.Proposal, error) {
	var (
		p                      governance.Proposal
		id                     int64
		proposer, status       string
		votesFor, votesAgainst int64
		createdAt, updatedAt   int64
	)
	if err := sc.Scan(&id, &p.Title, &p.Description, &proposer, &status,
		&votesFor, &votesAgainst, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.ID = governance.ProposalID(id)
	p.Proposer = types.Principal(proposer)
	p.Status = governance.Status(status)
	p.VotesFor = uint64(votesFor)
	p.VotesAgainst = uint64(votesAgainst)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

func scanVote(sc scanner) (*governance.Vote, error) {
	var (
		v       governance.Vote
		id      int64
		voter   string
		voteFor int64
		castAt  int64
	)
	if err := sc.Scan(&id, &voter, &voteFor, &castAt); err != nil {
		return nil, err
	}
	v.ProposalID = governance.ProposalID(id)
	v.Voter = types.Principal(voter)
	v.VoteFor = voteFor != 0
	v.CastAt = fromMillis(castAt)
	return &v, nil
}
