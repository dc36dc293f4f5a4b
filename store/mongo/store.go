// Package mongo provides a MongoDB store.Store. Atomic runs inside a
// session transaction, so the deployment must be a replica set or sharded
// cluster.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/dyson"
	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/energy"
	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/investment"
	"github.com/xraph/dyson/journal"
	dysonstore "github.com/xraph/dyson/store"
	"github.com/xraph/dyson/types"
)

// Collection name constants.
const (
	colCounters    = "dyson_counters"
	colPhases      = "dyson_phases"
	colResources   = "dyson_resources"
	colInvestments = "dyson_investments"
	colProposals   = "dyson_proposals"
	colVotes       = "dyson_votes"
	colSectors     = "dyson_sectors"
	colJournal     = "dyson_journal"
)

// Counter names for scalar totals kept next to sequences.
const (
	counterInvestmentTotal   = "investment_total"
	counterEnergyCaptured    = "energy_captured"
	counterEnergyDistributed = "energy_distributed"
)

// compile-time interface check
var _ dysonstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	inTx   bool
}

// New creates a store over the named database of a connected client.
func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

// Open connects to uri and verifies the connection.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("dyson/mongo: connect: %w", err)
	}
	s := New(client, database)
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(ctx) //nolint:errcheck // best-effort cleanup
		return nil, err
	}
	return s, nil
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates indexes for all dyson collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("dyson/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("dyson/mongo: ping: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	if s.inTx {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Atomic implements store.Store with a session transaction. The driver may
// re-run fn on transient transaction errors.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx dysonstore.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("dyson/mongo: start session: %w: %w", dyson.ErrTransactionFailed, err)
	}
	defer sess.EndSession(ctx)

	inner := &Store{client: s.client, db: s.db, inTx: true}
	_, err = sess.WithTransaction(ctx, func(txCtx context.Context) (any, error) {
		return nil, fn(txCtx, inner)
	})
	return err
}

// NextSequence implements store.Store.
func (s *Store) NextSequence(ctx context.Context, name string) (uint64, error) {
	var m counterModel
	err := s.db.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		return 0, fmt.Errorf("dyson/mongo: next sequence %s: %w", name, err)
	}
	return uint64(m.Value), nil
}

func (s *Store) getCounter(ctx context.Context, name string) (uint64, error) {
	var m counterModel
	err := s.db.Collection(colCounters).FindOne(ctx, bson.M{"_id": name}).Decode(&m)
	if isNoDocuments(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("dyson/mongo: get counter %s: %w", name, err)
	}
	return uint64(m.Value), nil
}

func (s *Store) setCounter(ctx context.Context, name string, value uint64) error {
	if value > types.MaxQuantity {
		return fmt.Errorf("%w: %d", types.ErrOverflow, value)
	}
	_, err := s.db.Collection(colCounters).UpdateOne(ctx,
		bson.M{"_id": name},
		bson.M{"$set": bson.M{"value": int64(value)}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("dyson/mongo: set counter %s: %w", name, err)
	}
	return nil
}

func (s *Store) upsert(ctx context.Context, col string, key any, doc any) error {
	_, err := s.db.Collection(col).ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

func findPage(limit, offset int) *options.FindOptionsBuilder {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

// ==================== Construction Store ====================

func (s *Store) CreatePhase(ctx context.Context, p *construction.Phase) error {
	if _, err := s.db.Collection(colPhases).InsertOne(ctx, toPhaseModel(p)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("dyson/mongo: create phase %d: %w", p.ID, dyson.ErrAlreadyExists)
		}
		return fmt.Errorf("dyson/mongo: create phase: %w", err)
	}
	return nil
}

func (s *Store) GetPhase(ctx context.Context, phaseID construction.PhaseID) (*construction.Phase, error) {
	var m phaseModel
	err := s.db.Collection(colPhases).FindOne(ctx, bson.M{"_id": int64(phaseID)}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, dyson.ErrPhaseNotFound
		}
		return nil, fmt.Errorf("dyson/mongo: get phase: %w", err)
	}
	return fromPhaseModel(&m), nil
}

func (s *Store) ListPhases(ctx context.Context, opts construction.ListOpts) ([]*construction.Phase, error) {
	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	var models []phaseModel
	if err := s.findAll(ctx, colPhases, filter, findPage(opts.Limit, opts.Offset), &models); err != nil {
		return nil, fmt.Errorf("dyson/mongo: list phases: %w", err)
	}
	result := make([]*construction.Phase, len(models))
	for i := range models {
		result[i] = fromPhaseModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpdatePhase(ctx context.Context, p *construction.Phase) error {
	res, err := s.db.Collection(colPhases).ReplaceOne(ctx, bson.M{"_id": int64(p.ID)}, toPhaseModel(p))
	if err != nil {
		return fmt.Errorf("dyson/mongo: update phase: %w", err)
	}
	if res.MatchedCount == 0 {
		return dyson.ErrPhaseNotFound
	}
	return nil
}

func (s *Store) GetResource(ctx context.Context, kind string) (*construction.ResourceAllocation, error) {
	var m allocationModel
	err := s.db.Collection(colResources).FindOne(ctx, bson.M{"_id": kind}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, dyson.ErrResourceNotFound
		}
		return nil, fmt.Errorf("dyson/mongo: get resource: %w", err)
	}
	return fromResourceModel(&m), nil
}

func (s *Store) PutResource(ctx context.Context, r *construction.ResourceAllocation) error {
	if !r.Valid() {
		return fmt.Errorf("dyson/mongo: put resource %q: %w", r.Resource, types.ErrExhausted)
	}
	if err := s.upsert(ctx, colResources, r.Resource, toAllocationModel(r.Resource, r.Entity, r.Allocation)); err != nil {
		return fmt.Errorf("dyson/mongo: put resource: %w", err)
	}
	return nil
}

func (s *Store) ListResources(ctx context.Context) ([]*construction.ResourceAllocation, error) {
	var models []allocationModel
	if err := s.findAll(ctx, colResources, bson.M{}, findPage(0, 0), &models); err != nil {
		return nil, fmt.Errorf("dyson/mongo: list resources: %w", err)
	}
	result := make([]*construction.ResourceAllocation, len(models))
	for i := range models {
		result[i] = fromResourceModel(&models[i])
	}
	return result, nil
}

// ==================== Investment Store ====================

func (s *Store) GetInvestment(ctx context.Context, investor types.Principal) (*investment.Investment, error) {
	var m investmentModel
	err := s.db.Collection(colInvestments).FindOne(ctx, bson.M{"_id": string(investor)}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, dyson.ErrInvestmentNotFound
		}
		return nil, fmt.Errorf("dyson/mongo: get investment: %w", err)
	}
	return fromInvestmentModel(&m), nil
}

func (s *Store) PutInvestment(ctx context.Context, inv *investment.Investment) error {
	if inv.Amount > types.MaxQuantity {
		return fmt.Errorf("%w: %d", types.ErrOverflow, inv.Amount)
	}
	if err := s.upsert(ctx, colInvestments, string(inv.Investor), toInvestmentModel(inv)); err != nil {
		return fmt.Errorf("dyson/mongo: put investment: %w", err)
	}
	return nil
}

func (s *Store) ListInvestments(ctx context.Context) ([]*investment.Investment, error) {
	var models []investmentModel
	if err := s.findAll(ctx, colInvestments, bson.M{}, findPage(0, 0), &models); err != nil {
		return nil, fmt.Errorf("dyson/mongo: list investments: %w", err)
	}
	result := make([]*investment.Investment, len(models))
	for i := range models {
		result[i] = fromInvestmentModel(&models[i])
	}
	return result, nil
}

func (s *Store) GetTotalInvestment(ctx context.Context) (uint64, error) {
	return s.getCounter(ctx, counterInvestmentTotal)
}

func (s *Store) SetTotalInvestment(ctx context.Context, total uint64) error {
	return s.setCounter(ctx, counterInvestmentTotal, total)
}

// ==================== Governance Store ====================

func (s *Store) CreateProposal(ctx context.Context, p *governance.Proposal) error {
	if _, err := s.db.Collection(colProposals).InsertOne(ctx, toProposalModel(p)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("dyson/mongo: create proposal %d: %w", p.ID, dyson.ErrAlreadyExists)
		}
		return fmt.Errorf("dyson/mongo: create proposal: %w", err)
	}
	return nil
}

func (s *Store) GetProposal(ctx context.Context, proposalID governance.ProposalID) (*governance.Proposal, error) {
	var m proposalModel
	err := s.db.Collection(colProposals).FindOne(ctx, bson.M{"_id": int64(proposalID)}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, dyson.ErrProposalNotFound
		}
		return nil, fmt.Errorf("dyson/mongo: get proposal: %w", err)
	}
	return fromProposalModel(&m), nil
}

func (s *Store) ListProposals(ctx context.Context, opts governance.ListOpts) ([]*governance.Proposal, error) {
	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	var models []proposalModel
	if err := s.findAll(ctx, colProposals, filter, findPage(opts.Limit, opts.Offset), &models); err != nil {
		return nil, fmt.Errorf("dyson/mongo: list proposals: %w", err)
	}
	result := make([]*governance.Proposal, len(models))
	for i := range models {
		result[i] = fromProposalModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpdateProposal(ctx context.Context, p *governance.Proposal) error {
	res, err := s.db.Collection(colProposals).ReplaceOne(ctx, bson.M{"_id": int64(p.ID)}, toProposalModel(p))
	if err != nil {
		return fmt.Errorf("dyson/mongo: update proposal: %w", err)
	}
	if res.MatchedCount == 0 {
		return dyson.ErrProposalNotFound
	}
	return nil
}

func (s *Store) CreateVote(ctx context.Context, v *governance.Vote) error {
	m := &voteModel{
		Key:     voteKey{ProposalID: int64(v.ProposalID), Voter: string(v.Voter)},
		VoteFor: v.VoteFor,
		CastAt:  v.CastAt,
	}
	if _, err := s.db.Collection(colVotes).InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return dyson.ErrAlreadyVoted
		}
		return fmt.Errorf("dyson/mongo: create vote: %w", err)
	}
	return nil
}

func (s *Store) GetVote(ctx context.Context, proposalID governance.ProposalID, voter types.Principal) (*governance.Vote, error) {
	var m voteModel
	key := voteKey{ProposalID: int64(proposalID), Voter: string(voter)}
	err := s.db.Collection(colVotes).FindOne(ctx, bson.M{"_id": key}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, dyson.ErrVoteNotFound
		}
		return nil, fmt.Errorf("dyson/mongo: get vote: %w", err)
	}
	return fromVoteModel(&m), nil
}

func (s *Store) ListVotes(ctx context.Context, proposalID governance.ProposalID) ([]*governance.Vote, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id.voter", Value: 1}})
	var models []voteModel
	if err := s.findAll(ctx, colVotes, bson.M{"_id.proposal_id": int64(proposalID)}, opts, &models); err != nil {
		return nil, fmt.Errorf("dyson/mongo: list votes: %w", err)
	}
	result := make([]*governance.Vote, len(models))
	for i := range models {
		result[i] = fromVoteModel(&models[i])
	}
	return result, nil
}

// ==================== Energy Store ====================

func (s *Store) GetEnergyStats(ctx context.Context) (energy.Stats, error) {
	captured, err := s.getCounter(ctx, counterEnergyCaptured)
	if err != nil {
		return energy.Stats{}, err
	}
	distributed, err := s.getCounter(ctx, counterEnergyDistributed)
	if err != nil {
		return energy.Stats{}, err
	}
	return energy.Stats{TotalCaptured: captured, TotalDistributed: distributed}, nil
}

func (s *Store) PutEnergyStats(ctx context.Context, stats energy.Stats) error {
	if err := s.setCounter(ctx, counterEnergyCaptured, stats.TotalCaptured); err != nil {
		return err
	}
	return s.setCounter(ctx, counterEnergyDistributed, stats.TotalDistributed)
}

func (s *Store) GetSector(ctx context.Context, sector string) (*energy.SectorEnergy, error) {
	var m allocationModel
	err := s.db.Collection(colSectors).FindOne(ctx, bson.M{"_id": sector}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, dyson.ErrSectorNotFound
		}
		return nil, fmt.Errorf("dyson/mongo: get sector: %w", err)
	}
	return fromSectorModel(&m), nil
}

func (s *Store) PutSector(ctx context.Context, se *energy.SectorEnergy) error {
	if !se.Valid() {
		return fmt.Errorf("dyson/mongo: put sector %q: %w", se.Sector, types.ErrExhausted)
	}
	if err := s.upsert(ctx, colSectors, se.Sector, toAllocationModel(se.Sector, se.Entity, se.Allocation)); err != nil {
		return fmt.Errorf("dyson/mongo: put sector: %w", err)
	}
	return nil
}

func (s *Store) ListSectors(ctx context.Context) ([]*energy.SectorEnergy, error) {
	var models []allocationModel
	if err := s.findAll(ctx, colSectors, bson.M{}, findPage(0, 0), &models); err != nil {
		return nil, fmt.Errorf("dyson/mongo: list sectors: %w", err)
	}
	result := make([]*energy.SectorEnergy, len(models))
	for i := range models {
		result[i] = fromSectorModel(&models[i])
	}
	return result, nil
}

// ==================== Journal Store ====================

func (s *Store) AppendEntry(ctx context.Context, e *journal.Entry) error {
	if _, err := s.db.Collection(colJournal).InsertOne(ctx, toEntryModel(e)); err != nil {
		return fmt.Errorf("dyson/mongo: append journal entry: %w", err)
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	filter := bson.M{}
	if opts.Module != "" {
		filter["module"] = opts.Module
	}
	if opts.Caller != "" {
		filter["caller"] = string(opts.Caller)
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	var models []entryModel
	if err := s.findAll(ctx, colJournal, filter, findOpts, &models); err != nil {
		return nil, fmt.Errorf("dyson/mongo: list journal: %w", err)
	}
	result := make([]*journal.Entry, 0, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("dyson/mongo: list journal: %w", err)
		}
		result = append(result, e)
	}
	return result, nil
}

// ==================== Helpers ====================

func (s *Store) findAll(ctx context.Context, col string, filter any, opts *options.FindOptionsBuilder, out any) error {
	cur, err := s.db.Collection(col).Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for the dyson collections.
// Primary keys live in _id and need no extra index.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colPhases: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colProposals: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: 1}}},
		},
		colJournal: {
			{
				Keys:    bson.D{{Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "module", Value: 1}, {Key: "seq", Value: 1}}},
			{Keys: bson.D{{Key: "caller", Value: 1}, {Key: "seq", Value: 1}}},
		},
	}
}
