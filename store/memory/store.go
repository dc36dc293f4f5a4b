// Package memory provides an in-process store.Store. Transactions write
// in place under the store lock and keep an undo log that is replayed on
// rollback.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/xraph/dyson"
	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/energy"
	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/investment"
	"github.com/xraph/dyson/journal"
	"github.com/xraph/dyson/store"
	"github.com/xraph/dyson/types"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

type voteKey struct {
	proposal governance.ProposalID
	voter    types.Principal
}

// state holds every ledger. Stored records are never mutated in place;
// writes replace the map value.
type state struct {
	phases          map[construction.PhaseID]*construction.Phase
	resources       map[string]*construction.ResourceAllocation
	investments     map[types.Principal]*investment.Investment
	totalInvestment uint64
	proposals       map[governance.ProposalID]*governance.Proposal
	votes           map[voteKey]*governance.Vote
	energy          energy.Stats
	sectors         map[string]*energy.SectorEnergy
	journal         []*journal.Entry
	counters        map[string]uint64
}

func newState() *state {
	return &state{
		phases:      make(map[construction.PhaseID]*construction.Phase),
		resources:   make(map[string]*construction.ResourceAllocation),
		investments: make(map[types.Principal]*investment.Investment),
		proposals:   make(map[governance.ProposalID]*governance.Proposal),
		votes:       make(map[voteKey]*governance.Vote),
		sectors:     make(map[string]*energy.SectorEnergy),
		counters:    make(map[string]uint64),
	}
}

// undoLog records how to revert each write of a transaction. A nil log
// records nothing.
type undoLog struct {
	steps []func()
}

func (u *undoLog) push(step func()) {
	if u != nil {
		u.steps = append(u.steps, step)
	}
}

func (u *undoLog) rollback() {
	for i := len(u.steps) - 1; i >= 0; i-- {
		u.steps[i]()
	}
	u.steps = nil
}

// put sets m[k] and records the previous value.
func put[K comparable, V any](u *undoLog, m map[K]V, k K, v V) {
	if u != nil {
		old, existed := m[k]
		u.push(func() {
			if existed {
				m[k] = old
			} else {
				delete(m, k)
			}
		})
	}
	m[k] = v
}

type db struct {
	mu     sync.RWMutex
	state  *state
	closed bool
}

// Store is an in-memory store.Store. The zero value is not usable; call New.
type Store struct {
	db *db
	tx *undoLog // non-nil inside Atomic, which holds db.mu
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{db: &db{state: newState()}}
}

func (s *Store) read(fn func(st *state) error) error {
	if s.tx != nil {
		return fn(s.db.state)
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if s.db.closed {
		return dyson.ErrStoreClosed
	}
	return fn(s.db.state)
}

// write applies fn to the state, logging undo steps inside a transaction.
// Write funcs check before they assign.
func (s *Store) write(fn func(st *state, u *undoLog) error) error {
	if s.tx != nil {
		return fn(s.db.state, s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.closed {
		return dyson.ErrStoreClosed
	}
	return fn(s.db.state, nil)
}

// Atomic implements store.Store. Any error, cancellation or panic in fn
// reverts its writes.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.closed {
		return dyson.ErrStoreClosed
	}

	log := &undoLog{}
	committed := false
	defer func() {
		if !committed {
			log.rollback()
		}
	}()

	if err := fn(ctx, &Store{db: s.db, tx: log}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", dyson.ErrTransactionFailed, err)
	}
	committed = true
	return nil
}

// NextSequence implements store.Store.
func (s *Store) NextSequence(_ context.Context, name string) (uint64, error) {
	var next uint64
	err := s.write(func(st *state, u *undoLog) error {
		v, err := types.AddQuantity(st.counters[name], 1)
		if err != nil {
			return err
		}
		put(u, st.counters, name, v)
		next = v
		return nil
	})
	return next, err
}

// ──────────────────────────────────────────────────
// Construction
// ──────────────────────────────────────────────────

func (s *Store) CreatePhase(_ context.Context, p *construction.Phase) error {
	return s.write(func(st *state, u *undoLog) error {
		if _, exists := st.phases[p.ID]; exists {
			return dyson.ErrAlreadyExists
		}
		put(u, st.phases, p.ID, p.Clone())
		return nil
	})
}

func (s *Store) GetPhase(_ context.Context, phaseID construction.PhaseID) (*construction.Phase, error) {
	var out *construction.Phase
	err := s.read(func(st *state) error {
		p, ok := st.phases[phaseID]
		if !ok {
			return dyson.ErrPhaseNotFound
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (s *Store) ListPhases(_ context.Context, opts construction.ListOpts) ([]*construction.Phase, error) {
	var result []*construction.Phase
	err := s.read(func(st *state) error {
		for _, p := range st.phases {
			if opts.Status == "" || p.Status == opts.Status {
				result = append(result, p.Clone())
			}
		}
		return nil
	})
	slices.SortFunc(result, func(a, b *construction.Phase) int { return cmp.Compare(a.ID, b.ID) })
	return page(result, opts.Offset, opts.Limit), err
}

func (s *Store) UpdatePhase(_ context.Context, p *construction.Phase) error {
	return s.write(func(st *state, u *undoLog) error {
		if _, exists := st.phases[p.ID]; !exists {
			return dyson.ErrPhaseNotFound
		}
		put(u, st.phases, p.ID, p.Clone())
		return nil
	})
}

func (s *Store) GetResource(_ context.Context, kind string) (*construction.ResourceAllocation, error) {
	var out *construction.ResourceAllocation
	err := s.read(func(st *state) error {
		r, ok := st.resources[kind]
		if !ok {
			return dyson.ErrResourceNotFound
		}
		out = r.Clone()
		return nil
	})
	return out, err
}

func (s *Store) PutResource(_ context.Context, r *construction.ResourceAllocation) error {
	return s.write(func(st *state, u *undoLog) error {
		put(u, st.resources, r.Resource, r.Clone())
		return nil
	})
}

func (s *Store) ListResources(_ context.Context) ([]*construction.ResourceAllocation, error) {
	var result []*construction.ResourceAllocation
	err := s.read(func(st *state) error {
		for _, r := range st.resources {
			result = append(result, r.Clone())
		}
		return nil
	})
	slices.SortFunc(result, func(a, b *construction.ResourceAllocation) int { return cmp.Compare(a.Resource, b.Resource) })
	return result, err
}

// ──────────────────────────────────────────────────
// Investment
// ──────────────────────────────────────────────────

func (s *Store) GetInvestment(_ context.Context, investor types.Principal) (*investment.Investment, error) {
	var out *investment.Investment
	err := s.read(func(st *state) error {
		inv, ok := st.investments[investor]
		if !ok {
			return dyson.ErrInvestmentNotFound
		}
		out = inv.Clone()
		return nil
	})
	return out, err
}

func (s *Store) PutInvestment(_ context.Context, inv *investment.Investment) error {
	return s.write(func(st *state, u *undoLog) error {
		put(u, st.investments, inv.Investor, inv.Clone())
		return nil
	})
}

func (s *Store) ListInvestments(_ context.Context) ([]*investment.Investment, error) {
	var result []*investment.Investment
	err := s.read(func(st *state) error {
		for _, inv := range st.investments {
			result = append(result, inv.Clone())
		}
		return nil
	})
	slices.SortFunc(result, func(a, b *investment.Investment) int { return cmp.Compare(a.Investor, b.Investor) })
	return result, err
}

func (s *Store) GetTotalInvestment(_ context.Context) (uint64, error) {
	var total uint64
	err := s.read(func(st *state) error {
		total = st.totalInvestment
		return nil
	})
	return total, err
}

func (s *Store) SetTotalInvestment(_ context.Context, total uint64) error {
	return s.write(func(st *state, u *undoLog) error {
		old := st.totalInvestment
		u.push(func() { st.totalInvestment = old })
		st.totalInvestment = total
		return nil
	})
}

// ──────────────────────────────────────────────────
// Governance
// ──────────────────────────────────────────────────

func (s *Store) CreateProposal(_ context.Context, p *governance.Proposal) error {
	return s.write(func(st *state, u *undoLog) error {
		if _, exists := st.proposals[p.ID]; exists {
			return dyson.ErrAlreadyExists
		}
		put(u, st.proposals, p.ID, p.Clone())
		return nil
	})
}

func (s *Store) GetProposal(_ context.Context, proposalID governance.ProposalID) (*governance.Proposal, error) {
	var out *governance.Proposal
	err := s.read(func(st *state) error {
		p, ok := st.proposals[proposalID]
		if !ok {
			return dyson.ErrProposalNotFound
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (s *Store) ListProposals(_ context.Context, opts governance.ListOpts) ([]*governance.Proposal, error) {
	var result []*governance.Proposal
	err := s.read(func(st *state) error {
		for _, p := range st.proposals {
			if opts.Status == "" || p.Status == opts.Status {
				result = append(result, p.Clone())
			}
		}
		return nil
	})
	slices.SortFunc(result, func(a, b *governance.Proposal) int { return cmp.Compare(a.ID, b.ID) })
	return page(result, opts.Offset, opts.Limit), err
}

func (s *Store) UpdateProposal(_ context.Context, p *governance.Proposal) error {
	return s.write(func(st *state, u *undoLog) error {
		if _, exists := st.proposals[p.ID]; !exists {
			return dyson.ErrProposalNotFound
		}
		put(u, st.proposals, p.ID, p.Clone())
		return nil
	})
}

func (s *Store) CreateVote(_ context.Context, v *governance.Vote) error {
	return s.write(func(st *state, u *undoLog) error {
		k := voteKey{proposal: v.ProposalID, voter: v.Voter}
		if _, exists := st.votes[k]; exists {
			return dyson.ErrAlreadyVoted
		}
		vote := *v
		put(u, st.votes, k, &vote)
		return nil
	})
}

func (s *Store) GetVote(_ context.Context, proposalID governance.ProposalID, voter types.Principal) (*governance.Vote, error) {
	var out *governance.Vote
	err := s.read(func(st *state) error {
		v, ok := st.votes[voteKey{proposal: proposalID, voter: voter}]
		if !ok {
			return dyson.ErrVoteNotFound
		}
		vote := *v
		out = &vote
		return nil
	})
	return out, err
}

func (s *Store) ListVotes(_ context.Context, proposalID governance.ProposalID) ([]*governance.Vote, error) {
	var result []*governance.Vote
	err := s.read(func(st *state) error {
		for k, v := range st.votes {
			if k.proposal == proposalID {
				vote := *v
				result = append(result, &vote)
			}
		}
		return nil
	})
	slices.SortFunc(result, func(a, b *governance.Vote) int { return cmp.Compare(a.Voter, b.Voter) })
	return result, err
}

// ──────────────────────────────────────────────────
// Energy
// ──────────────────────────────────────────────────

func (s *Store) GetEnergyStats(_ context.Context) (energy.Stats, error) {
	var stats energy.Stats
	err := s.read(func(st *state) error {
		stats = st.energy
		return nil
	})
	return stats, err
}

func (s *Store) PutEnergyStats(_ context.Context, stats energy.Stats) error {
	return s.write(func(st *state, u *undoLog) error {
		old := st.energy
		u.push(func() { st.energy = old })
		st.energy = stats
		return nil
	})
}

func (s *Store) GetSector(_ context.Context, sector string) (*energy.SectorEnergy, error) {
	var out *energy.SectorEnergy
	err := s.read(func(st *state) error {
		se, ok := st.sectors[sector]
		if !ok {
			return dyson.ErrSectorNotFound
		}
		out = se.Clone()
		return nil
	})
	return out, err
}

func (s *Store) PutSector(_ context.Context, se *energy.SectorEnergy) error {
	return s.write(func(st *state, u *undoLog) error {
		put(u, st.sectors, se.Sector, se.Clone())
		return nil
	})
}

func (s *Store) ListSectors(_ context.Context) ([]*energy.SectorEnergy, error) {
	var result []*energy.SectorEnergy
	err := s.read(func(st *state) error {
		for _, se := range st.sectors {
			result = append(result, se.Clone())
		}
		return nil
	})
	slices.SortFunc(result, func(a, b *energy.SectorEnergy) int { return cmp.Compare(a.Sector, b.Sector) })
	return result, err
}

// ──────────────────────────────────────────────────
// Journal
// ──────────────────────────────────────────────────

func (s *Store) AppendEntry(_ context.Context, e *journal.Entry) error {
	return s.write(func(st *state, u *undoLog) error {
		entry := *e
		n := len(st.journal)
		u.push(func() {
			clear(st.journal[n:])
			st.journal = st.journal[:n]
		})
		st.journal = append(st.journal, &entry)
		return nil
	})
}

func (s *Store) ListEntries(_ context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	var result []*journal.Entry
	err := s.read(func(st *state) error {
		for _, e := range st.journal {
			if opts.Module != "" && e.Module != opts.Module {
				continue
			}
			if opts.Caller != "" && e.Caller != opts.Caller {
				continue
			}
			entry := *e
			result = append(result, &entry)
		}
		return nil
	})
	return page(result, opts.Offset, opts.Limit), err
}

// ──────────────────────────────────────────────────
// Core
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports ErrStoreClosed after Close.
func (s *Store) Ping(_ context.Context) error {
	return s.read(func(*state) error { return nil })
}

// Close releases the state. Further calls fail with dyson.ErrStoreClosed.
func (s *Store) Close() error {
	if s.tx != nil {
		return nil
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.closed = true
	s.db.state = newState()
	return nil
}

// page applies offset and limit. A zero limit means no limit.
func page[T any](items []T, offset, limit int) []T {
	start := min(max(offset, 0), len(items))
	end := len(items)
	if limit > 0 && limit < end-start {
		end = start + limit
	}
	return items[start:end]
}
