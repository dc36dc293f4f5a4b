package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/dyson"
	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/investment"
	"github.com/xraph/dyson/store"
	"github.com/xraph/dyson/store/postgres"
	"github.com/xraph/dyson/types"
)

func newMockStore(t *testing.T) (*postgres.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return postgres.New(db), mock
}

const selectPhase = "SELECT id, name, description, requirements, status, created_at, updated_at FROM dyson_phases WHERE id = $1"

func TestGetPhase(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "name", "description", "requirements", "status", "created_at", "updated_at"}).
		AddRow(1, "Initial Framework", "Establish the basic structure",
			`[{"amount": 1000000, "resource": "steel"}, {"amount": 500000, "resource": "solar-panels"}]`,
			"planned", int64(1760000000000), int64(1760000000000))
	mock.ExpectQuery(regexp.QuoteMeta(selectPhase)).WithArgs(1).WillReturnRows(rows)

	p, err := s.GetPhase(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, construction.PhaseID(1), p.ID)
	assert.Equal(t, construction.StatusPlanned, p.Status)
	assert.Equal(t, []construction.Requirement{
		{Resource: "steel", Amount: 1000000},
		{Resource: "solar-panels", Amount: 500000},
	}, p.Requirements)
	assert.Equal(t, int64(1760000000000), p.CreatedAt.UnixMilli())
}

func TestGetPhaseNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectPhase)).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "requirements", "status", "created_at", "updated_at"}))

	p, err := s.GetPhase(context.Background(), 2)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, dyson.ErrPhaseNotFound)
	assert.True(t, dyson.IsNotFound(err))
}

func TestListPhasesPaging(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, name, description, requirements, status, created_at, updated_at FROM dyson_phases WHERE status = $1 ORDER BY id LIMIT $2 OFFSET $3")).
		WithArgs("planned", 10, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "requirements", "status", "created_at", "updated_at"}).
			AddRow(6, "Collector Array", "", "[]", "planned", 0, 0))

	phases, err := s.ListPhases(context.Background(), construction.ListOpts{Status: construction.StatusPlanned, Limit: 10, Offset: 5})
	require.NoError(t, err)
	require.Len(t, phases, 1)
	assert.Equal(t, construction.PhaseID(6), phases[0].ID)
	assert.True(t, phases[0].CreatedAt.IsZero())
}

func TestNextSequence(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO dyson_counters (name, value) VALUES ($1, 1) ON CONFLICT (name) DO UPDATE SET value = dyson_counters.value + 1 RETURNING value")).
		WithArgs(store.SeqProposal).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(7))

	seq, err := s.NextSequence(context.Background(), store.SeqProposal)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), seq)
}

func TestGetTotalInvestmentDefaultsToZero(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM dyson_counters WHERE name = $1")).
		WithArgs("investment_total").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	total, err := s.GetTotalInvestment(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateVoteDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dyson_votes (proposal_id, voter, vote_for, cast_at) VALUES ($1, $2, $3, $4) ON CONFLICT (proposal_id, voter) DO NOTHING")).
		WithArgs(1, "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.CreateVote(context.Background(), &governance.Vote{
		ProposalID: 1,
		Voter:      "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM",
		VoteFor:    true,
	})
	assert.ErrorIs(t, err, dyson.ErrAlreadyVoted)
}

func TestUpdateProposalMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE dyson_proposals")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateProposal(context.Background(), &governance.Proposal{ID: 9, Status: governance.StatusClosed})
	assert.ErrorIs(t, err, dyson.ErrProposalNotFound)
}

func TestAtomicCommit(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dyson_investments")).
		WithArgs("investor-1", 1000000, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dyson_counters (name, value) VALUES ($1, $2)")).
		WithArgs("investment_total", 1000000).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.Atomic(context.Background(), func(ctx context.Context, tx store.Store) error {
		if err := tx.PutInvestment(ctx, &investment.Investment{Entity: types.NewEntity(), Investor: "investor-1", Amount: 1000000}); err != nil {
			return err
		}
		return tx.SetTotalInvestment(ctx, 1000000)
	})
	require.NoError(t, err)
}

func TestAtomicRollback(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dyson_investments")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectRollback()

	err := s.Atomic(context.Background(), func(ctx context.Context, tx store.Store) error {
		if err := tx.PutInvestment(ctx, &investment.Investment{Investor: "investor-1", Amount: 5}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
}

func TestAtomicCommitFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err := s.Atomic(context.Background(), func(context.Context, store.Store) error { return nil })
	require.ErrorIs(t, err, dyson.ErrTransactionFailed)
	assert.True(t, dyson.IsRetryable(err))
}

func TestMigrateSkipsAppliedVersions(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS dyson_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	last := len(postgres.Migrations) - 1
	for i, m := range postgres.Migrations {
		applied := 1
		if i == last {
			applied = 0
		}
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM dyson_migrations WHERE version = $1")).
			WithArgs(m.Version).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(applied))
	}
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS dyson_journal")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dyson_migrations (version, name, applied_at) VALUES ($1, $2, $3)")).
		WithArgs(postgres.Migrations[last].Version, postgres.Migrations[last].Name, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Migrate(context.Background()))
}

func TestTextKeysSortByByteOrder(t *testing.T) {
	ctx := context.Background()
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT proposal_id, voter, vote_for, cast_at FROM dyson_votes WHERE proposal_id = $1 ORDER BY voter COLLATE "C"`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"proposal_id", "voter", "vote_for", "cast_at"}).
			AddRow(1, "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM", 1, int64(1760000000000)).
			AddRow(1, "alpha", 0, int64(1760000000000)))
	votes, err := s.ListVotes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, types.Principal("alpha"), votes[1].Voter)

	for _, tc := range []struct {
		query string
		list  func() error
	}{
		{`FROM dyson_investments ORDER BY investor COLLATE "C"`, func() error { _, err := s.ListInvestments(ctx); return err }},
		{`FROM dyson_resources ORDER BY resource COLLATE "C"`, func() error { _, err := s.ListResources(ctx); return err }},
		{`FROM dyson_sectors ORDER BY sector COLLATE "C"`, func() error { _, err := s.ListSectors(ctx); return err }},
	} {
		mock.ExpectQuery(regexp.QuoteMeta(tc.query)).WillReturnRows(sqlmock.NewRows([]string{"key"}))
		require.NoError(t, tc.list())
	}
}
