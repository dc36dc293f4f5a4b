package mongo

import (
	"time"

	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/energy"
	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/id"
	"github.com/xraph/dyson/investment"
	"github.com/xraph/dyson/journal"
	"github.com/xraph/dyson/types"
)

// Quantities are stored as int64; every value is bounded by types.MaxQuantity.

// ==================== Construction models ====================

type phaseModel struct {
	ID           int64              `bson:"_id"`
	Name         string             `bson:"name"`
	Description  string             `bson:"description"`
	Requirements []requirementModel `bson:"requirements"`
	Status       string             `bson:"status"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

type requirementModel struct {
	Resource string `bson:"resource"`
	Amount   int64  `bson:"amount"`
}

func toPhaseModel(p *construction.Phase) *phaseModel {
	reqs := make([]requirementModel, len(p.Requirements))
	for i, r := range p.Requirements {
		reqs[i] = requirementModel{Resource: r.Resource, Amount: int64(r.Amount)}
	}
	return &phaseModel{
		ID:           int64(p.ID),
		Name:         p.Name,
		Description:  p.Description,
		Requirements: reqs,
		Status:       string(p.Status),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func fromPhaseModel(m *phaseModel) *construction.Phase {
	reqs := make([]construction.Requirement, len(m.Requirements))
	for i, r := range m.Requirements {
		reqs[i] = construction.Requirement{Resource: r.Resource, Amount: uint64(r.Amount)}
	}
	return &construction.Phase{
		Entity:       types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:           construction.PhaseID(m.ID),
		Name:         m.Name,
		Description:  m.Description,
		Requirements: reqs,
		Status:       construction.PhaseStatus(m.Status),
	}
}

// allocationModel backs both resource and sector documents.
type allocationModel struct {
	Key       string    `bson:"_id"`
	Allocated int64     `bson:"allocated"`
	Used      int64     `bson:"used"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toAllocationModel(key string, e types.Entity, a types.Allocation) *allocationModel {
	return &allocationModel{
		Key:       key,
		Allocated: int64(a.Committed),
		Used:      int64(a.Consumed),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func (m *allocationModel) entity() types.Entity {
	return types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *allocationModel) allocation() types.Allocation {
	return types.Allocation{Committed: uint64(m.Allocated), Consumed: uint64(m.Used)}
}

func fromResourceModel(m *allocationModel) *construction.ResourceAllocation {
	return &construction.ResourceAllocation{Entity: m.entity(), Resource: m.Key, Allocation: m.allocation()}
}

func fromSectorModel(m *allocationModel) *energy.SectorEnergy {
	return &energy.SectorEnergy{Entity: m.entity(), Sector: m.Key, Allocation: m.allocation()}
}

// ==================== Investment models ====================

type investmentModel struct {
	Investor  string    `bson:"_id"`
	Amount    int64     `bson:"amount"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toInvestmentModel(inv *investment.Investment) *investmentModel {
	return &investmentModel{
		Investor:  string(inv.Investor),
		Amount:    int64(inv.Amount),
		CreatedAt: inv.CreatedAt,
		UpdatedAt: inv.UpdatedAt,
	}
}

func fromInvestmentModel(m *investmentModel) *investment.Investment {
	return &investment.Investment{
		Entity:   types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Investor: types.Principal(m.Investor),
		Amount:   uint64(m.Amount),
	}
}

// ==================== Governance models ====================

type proposalModel struct {
	ID           int64     `bson:"_id"`
	Title        string    `bson:"title"`
	Description  string    `bson:"description"`
	Proposer     string    `bson:"proposer"`
	Status       string    `bson:"status"`
	VotesFor     int64     `bson:"votes_for"`
	VotesAgainst int64     `bson:"votes_against"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toProposalModel(p *governance.Proposal) *proposalModel {
	return &proposalModel{
		ID:           int64(p.ID),
		Title:        p.Title,
		Description:  p.Description,
		Proposer:     string(p.Proposer),
		Status:       string(p.Status),
		VotesFor:     int64(p.VotesFor),
		VotesAgainst: int64(p.VotesAgainst),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func fromProposalModel(m *proposalModel) *governance.Proposal {
	return &governance.Proposal{
		Entity:       types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:           governance.ProposalID(m.ID),
		Title:        m.Title,
		Description:  m.Description,
		Proposer:     types.Principal(m.Proposer),
		Status:       governance.Status(m.Status),
		VotesFor:     uint64(m.VotesFor),
		VotesAgainst: uint64(m.VotesAgainst),
	}
}

// voteKey is the compound _id of a vote document, making duplicate votes a
// duplicate-key error.
type voteKey struct {
	ProposalID int64  `bson:"proposal_id"`
	Voter      string `bson:"voter"`
}

type voteModel struct {
	Key     voteKey   `bson:"_id"`
	VoteFor bool      `bson:"vote_for"`
	CastAt  time.Time `bson:"cast_at"`
}

func fromVoteModel(m *voteModel) *governance.Vote {
	return &governance.Vote{
		ProposalID: governance.ProposalID(m.Key.ProposalID),
		Voter:      types.Principal(m.Key.Voter),
		VoteFor:    m.VoteFor,
		CastAt:     m.CastAt,
	}
}

// ==================== Journal models ====================

type entryModel struct {
	ID        string    `bson:"_id"`
	Sequence  int64     `bson:"seq"`
	Module    string    `bson:"module"`
	Operation string    `bson:"operation"`
	Caller    string    `bson:"caller"`
	Subject   string    `bson:"subject,omitempty"`
	Amount    int64     `bson:"amount"`
	Detail    string    `bson:"detail,omitempty"`
	At        time.Time `bson:"at"`
}

func toEntryModel(e *journal.Entry) *entryModel {
	return &entryModel{
		ID:        e.ID.String(),
		Sequence:  int64(e.Sequence),
		Module:    e.Module,
		Operation: e.Operation,
		Caller:    string(e.Caller),
		Subject:   e.Subject,
		Amount:    int64(e.Amount),
		Detail:    e.Detail,
		At:        e.At,
	}
}

func fromEntryModel(m *entryModel) (*journal.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	return &journal.Entry{
		ID:        entryID,
		Sequence:  uint64(m.Sequence),
		Module:    m.Module,
		Operation: m.Operation,
		Caller:    types.Principal(m.Caller),
		Subject:   m.Subject,
		Amount:    uint64(m.Amount),
		Detail:    m.Detail,
		At:        m.At,
	}, nil
}

type counterModel struct {
	Name  string `bson:"_id"`
	Value int64  `bson:"value"`
}
