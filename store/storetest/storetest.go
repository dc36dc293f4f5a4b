// Package storetest is a conformance suite run against every store.Store
// backend.
package storetest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/dyson"
	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/energy"
	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/id"
	"github.com/xraph/dyson/investment"
	"github.com/xraph/dyson/journal"
	"github.com/xraph/dyson/store"
	"github.com/xraph/dyson/types"
)

// Factory returns a migrated, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"Sequences", testSequences},
		{"Phases", testPhases},
		{"Resources", testResources},
		{"Investments", testInvestments},
		{"Proposals", testProposals},
		{"Votes", testVotes},
		{"Energy", testEnergy},
		{"Journal", testJournal},
		{"Paging", testPaging},
		{"AtomicCommit", testAtomicCommit},
		{"AtomicRollback", testAtomicRollback},
		{"AtomicNested", testAtomicNested},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			require.NoError(t, s.Ping(context.Background()))
			tt.fn(t, s)
		})
	}
}

const alice types.Principal = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"

const bob types.Principal = "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"

func testSequences(t *testing.T, s store.Store) {
	ctx := context.Background()

	for want := uint64(1); want <= 3; want++ {
		got, err := s.NextSequence(ctx, store.SeqPhase)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := s.NextSequence(ctx, store.SeqProposal)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got, "sequences are independent")
}

func testPhases(t *testing.T, s store.Store) {
	ctx := context.Background()

	p := &construction.Phase{
		Entity:      types.NewEntity(),
		ID:          1,
		Name:        "Initial Framework",
		Description: "Establish the basic structure",
		Requirements: []construction.Requirement{
			{Resource: "steel", Amount: 1000000},
			{Resource: "solar-panels", Amount: 500000},
		},
		Status: construction.StatusPlanned,
	}
	require.NoError(t, s.CreatePhase(ctx, p))
	require.ErrorIs(t, s.CreatePhase(ctx, p), dyson.ErrAlreadyExists)

	got, err := s.GetPhase(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Description, got.Description)
	assert.Equal(t, p.Requirements, got.Requirements)
	assert.Equal(t, construction.StatusPlanned, got.Status)

	_, err = s.GetPhase(ctx, 99)
	require.ErrorIs(t, err, dyson.ErrNotFound)
	require.ErrorIs(t, err, dyson.ErrPhaseNotFound)

	got.Status = construction.StatusInProgress
	got.Touch()
	require.NoError(t, s.UpdatePhase(ctx, got))

	got, err = s.GetPhase(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, construction.StatusInProgress, got.Status)

	missing := p.Clone()
	missing.ID = 42
	require.ErrorIs(t, s.UpdatePhase(ctx, missing), dyson.ErrNotFound)

	second := p.Clone()
	second.ID = 2
	second.Name = "Collector Array"
	second.Requirements = nil
	require.NoError(t, s.CreatePhase(ctx, second))

	all, err := s.ListPhases(ctx, construction.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, construction.PhaseID(1), all[0].ID)
	assert.Equal(t, construction.PhaseID(2), all[1].ID)
	assert.Empty(t, all[1].Requirements)

	planned, err := s.ListPhases(ctx, construction.ListOpts{Status: construction.StatusPlanned})
	require.NoError(t, err)
	require.Len(t, planned, 1)
	assert.Equal(t, "Collector Array", planned[0].Name)

	paged, err := s.ListPhases(ctx, construction.ListOpts{Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, construction.PhaseID(2), paged[0].ID)

	limited, err := s.ListPhases(ctx, construction.ListOpts{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, construction.PhaseID(1), limited[0].ID)
}

func testResources(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetResource(ctx, "steel")
	require.ErrorIs(t, err, dyson.ErrNotFound)

	r := &construction.ResourceAllocation{
		Entity:     types.NewEntity(),
		Resource:   "steel",
		Allocation: types.Allocation{Committed: 500000},
	}
	require.NoError(t, s.PutResource(ctx, r))

	r.Consumed = 100000
	require.NoError(t, s.PutResource(ctx, r))
	require.NoError(t, s.PutResource(ctx, &construction.ResourceAllocation{
		Entity:     types.NewEntity(),
		Resource:   "glass",
		Allocation: types.Allocation{Committed: 7},
	}))

	got, err := s.GetResource(ctx, "steel")
	require.NoError(t, err)
	assert.Equal(t, types.Allocation{Committed: 500000, Consumed: 100000}, got.Allocation)

	all, err := s.ListResources(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "glass", all[0].Resource)
	assert.Equal(t, "steel", all[1].Resource)
}

func testInvestments(t *testing.T, s store.Store) {
	ctx := context.Background()

	total, err := s.GetTotalInvestment(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = s.GetInvestment(ctx, alice)
	require.ErrorIs(t, err, dyson.ErrNotFound)

	require.NoError(t, s.PutInvestment(ctx, &investment.Investment{Entity: types.NewEntity(), Investor: alice, Amount: 1000000}))
	require.NoError(t, s.PutInvestment(ctx, &investment.Investment{Entity: types.NewEntity(), Investor: bob, Amount: 5000}))
	require.NoError(t, s.PutInvestment(ctx, &investment.Investment{Entity: types.NewEntity(), Investor: alice, Amount: 0}))
	require.NoError(t, s.SetTotalInvestment(ctx, 5000))

	got, err := s.GetInvestment(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, got.Amount, "withdrawn investors keep a zero record")

	total, err = s.GetTotalInvestment(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), total)

	all, err := s.ListInvestments(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, alice, all[0].Investor)
	assert.Equal(t, bob, all[1].Investor)
}

func testProposals(t *testing.T, s store.Store) {
	ctx := context.Background()

	p := &governance.Proposal{
		Entity:      types.NewEntity(),
		ID:          1,
		Title:       "Increase Solar Panel Production",
		Description: "Double the output of the panel foundry",
		Proposer:    alice,
		Status:      governance.StatusActive,
	}
	require.NoError(t, s.CreateProposal(ctx, p))
	require.ErrorIs(t, s.CreateProposal(ctx, p), dyson.ErrAlreadyExists)

	_, err := s.GetProposal(ctx, 2)
	require.ErrorIs(t, err, dyson.ErrProposalNotFound)

	got, err := s.GetProposal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, alice, got.Proposer)
	assert.Equal(t, governance.StatusActive, got.Status)

	got.VotesFor = 3
	got.VotesAgainst = 1
	got.Status = governance.StatusClosed
	require.NoError(t, s.UpdateProposal(ctx, got))

	missing := p.Clone()
	missing.ID = 7
	require.ErrorIs(t, s.UpdateProposal(ctx, missing), dyson.ErrNotFound)

	second := p.Clone()
	second.ID = 2
	require.NoError(t, s.CreateProposal(ctx, second))

	closed, err := s.ListProposals(ctx, governance.ListOpts{Status: governance.StatusClosed})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, governance.ProposalID(1), closed[0].ID)
	assert.Equal(t, uint64(3), closed[0].VotesFor)
	assert.Equal(t, uint64(1), closed[0].VotesAgainst)

	all, err := s.ListProposals(ctx, governance.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func testVotes(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateProposal(ctx, &governance.Proposal{
		Entity: types.NewEntity(), ID: 1, Title: "t", Proposer: alice, Status: governance.StatusActive,
	}))

	castAt := time.Now().UTC()
	require.NoError(t, s.CreateVote(ctx, &governance.Vote{ProposalID: 1, Voter: bob, VoteFor: false, CastAt: castAt}))
	require.NoError(t, s.CreateVote(ctx, &governance.Vote{ProposalID: 1, Voter: alice, VoteFor: true, CastAt: castAt}))

	err := s.CreateVote(ctx, &governance.Vote{ProposalID: 1, Voter: alice, VoteFor: false, CastAt: castAt})
	require.ErrorIs(t, err, dyson.ErrAlreadyVoted)

	v, err := s.GetVote(ctx, 1, alice)
	require.NoError(t, err)
	assert.True(t, v.VoteFor, "the first vote is kept")

	_, err = s.GetVote(ctx, 1, "ST3NOBODY")
	require.ErrorIs(t, err, dyson.ErrNotFound)

	// Lowercase sorts after uppercase in byte order.
	require.NoError(t, s.CreateVote(ctx, &governance.Vote{ProposalID: 1, Voter: "alpha", VoteFor: true, CastAt: castAt}))

	votes, err := s.ListVotes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, votes, 3)
	assert.Equal(t, alice, votes[0].Voter)
	assert.Equal(t, bob, votes[1].Voter)
	assert.False(t, votes[1].VoteFor)
	assert.Equal(t, types.Principal("alpha"), votes[2].Voter)

	none, err := s.ListVotes(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testEnergy(t *testing.T, s store.Store) {
	ctx := context.Background()

	stats, err := s.GetEnergyStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, energy.Stats{}, stats)

	require.NoError(t, s.PutEnergyStats(ctx, energy.Stats{TotalCaptured: 1000000, TotalDistributed: 250000}))
	stats, err = s.GetEnergyStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(750000), stats.Available())

	_, err = s.GetSector(ctx, "industrial")
	require.ErrorIs(t, err, dyson.ErrSectorNotFound)

	require.NoError(t, s.PutSector(ctx, &energy.SectorEnergy{
		Entity:     types.NewEntity(),
		Sector:     "industrial",
		Allocation: types.Allocation{Committed: 250000, Consumed: 1000},
	}))
	require.NoError(t, s.PutSector(ctx, &energy.SectorEnergy{
		Entity: types.NewEntity(),
		Sector: "residential",
	}))

	got, err := s.GetSector(ctx, "industrial")
	require.NoError(t, err)
	assert.Equal(t, types.Allocation{Committed: 250000, Consumed: 1000}, got.Allocation)

	all, err := s.ListSectors(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "industrial", all[0].Sector)
	assert.Equal(t, "residential", all[1].Sector)
}

func testJournal(t *testing.T, s store.Store) {
	ctx := context.Background()

	entries := []*journal.Entry{
		{Module: "construction", Operation: "allocate-resource", Caller: alice, Subject: "steel", Amount: 500000},
		{Module: "investment", Operation: "invest", Caller: bob, Amount: 1000000},
		{Module: "construction", Operation: "use-resource", Caller: bob, Subject: "steel", Amount: 100000},
	}
	for i, e := range entries {
		e.ID = id.NewEntryID()
		e.Sequence = uint64(i + 1)
		e.At = time.Now().UTC()
		require.NoError(t, s.AppendEntry(ctx, e))
	}

	all, err := s.ListEntries(ctx, journal.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, e := range all {
		assert.Equal(t, uint64(i+1), e.Sequence)
		assert.Equal(t, entries[i].ID.String(), e.ID.String())
	}

	built, err := s.ListEntries(ctx, journal.ListOpts{Module: "construction"})
	require.NoError(t, err)
	require.Len(t, built, 2)
	assert.Equal(t, "use-resource", built[1].Operation)
	assert.Equal(t, "steel", built[1].Subject)
	assert.Equal(t, uint64(100000), built[1].Amount)

	byBob, err := s.ListEntries(ctx, journal.ListOpts{Caller: bob, Limit: 1})
	require.NoError(t, err)
	require.Len(t, byBob, 1)
	assert.Equal(t, "invest", byBob[0].Operation)

	tail, err := s.ListEntries(ctx, journal.ListOpts{Offset: 2})
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, uint64(3), tail[0].Sequence)
}

func testPaging(t *testing.T, s store.Store) {
	ctx := context.Background()

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, s.CreatePhase(ctx, &construction.Phase{
			Entity: types.NewEntity(), ID: construction.PhaseID(i), Name: "phase", Status: construction.StatusPlanned,
		}))
		require.NoError(t, s.CreateProposal(ctx, &governance.Proposal{
			Entity: types.NewEntity(), ID: governance.ProposalID(i), Title: "p", Proposer: alice, Status: governance.StatusActive,
		}))
		require.NoError(t, s.AppendEntry(ctx, &journal.Entry{
			ID: id.NewEntryID(), Sequence: i, Module: "construction", Operation: "add-construction-phase", Caller: alice, At: time.Now().UTC(),
		}))
	}

	tests := []struct {
		name          string
		offset, limit int
		want          int
	}{
		{"no limit", 0, 0, 3},
		{"limit", 0, 2, 2},
		{"offset and limit", 1, 1, 1},
		{"max limit", 1, math.MaxInt, 2},
		{"max limit from start", 0, math.MaxInt, 3},
		{"offset past end", 5, math.MaxInt, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phases, err := s.ListPhases(ctx, construction.ListOpts{Offset: tt.offset, Limit: tt.limit})
			require.NoError(t, err)
			assert.Len(t, phases, tt.want)

			proposals, err := s.ListProposals(ctx, governance.ListOpts{Offset: tt.offset, Limit: tt.limit})
			require.NoError(t, err)
			assert.Len(t, proposals, tt.want)

			entries, err := s.ListEntries(ctx, journal.ListOpts{Offset: tt.offset, Limit: tt.limit})
			require.NoError(t, err)
			assert.Len(t, entries, tt.want)
		})
	}
}

func testAtomicCommit(t *testing.T, s store.Store) {
	ctx := context.Background()

	err := s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.PutInvestment(ctx, &investment.Investment{Entity: types.NewEntity(), Investor: alice, Amount: 1000000}); err != nil {
			return err
		}
		if err := tx.SetTotalInvestment(ctx, 1000000); err != nil {
			return err
		}
		// Reads inside the transaction see its own writes.
		inv, err := tx.GetInvestment(ctx, alice)
		if err != nil {
			return err
		}
		if inv.Amount != 1000000 {
			return errors.New("read-your-writes failed")
		}
		_, err = tx.NextSequence(ctx, store.SeqJournal)
		return err
	})
	require.NoError(t, err)

	inv, err := s.GetInvestment(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000000), inv.Amount)

	total, err := s.GetTotalInvestment(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000000), total)

	seq, err := s.NextSequence(ctx, store.SeqJournal)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), seq)
}

func testAtomicRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := tx.NextSequence(ctx, store.SeqPhase); err != nil {
			return err
		}
		if err := tx.CreatePhase(ctx, &construction.Phase{
			Entity: types.NewEntity(), ID: 1, Name: "doomed", Status: construction.StatusPlanned,
		}); err != nil {
			return err
		}
		if err := tx.PutEnergyStats(ctx, energy.Stats{TotalCaptured: 10}); err != nil {
			return err
		}
		if err := tx.AppendEntry(ctx, &journal.Entry{
			ID: id.NewEntryID(), Sequence: 1, Module: "construction", Operation: "add-construction-phase",
			Caller: alice, At: time.Now().UTC(),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetPhase(ctx, 1)
	require.ErrorIs(t, err, dyson.ErrNotFound)

	stats, err := s.GetEnergyStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, energy.Stats{}, stats)

	entries, err := s.ListEntries(ctx, journal.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	seq, err := s.NextSequence(ctx, store.SeqPhase)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq, "rolled back sequence increments are discarded")
}

func testAtomicNested(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("outer failure")

	err := s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.Atomic(ctx, func(ctx context.Context, inner store.Store) error {
			return inner.PutSector(ctx, &energy.SectorEnergy{
				Entity: types.NewEntity(), Sector: "industrial", Allocation: types.Allocation{Committed: 5},
			})
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetSector(ctx, "industrial")
	require.ErrorIs(t, err, dyson.ErrNotFound, "nested writes roll back with the enclosing transaction")
}
