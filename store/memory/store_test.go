package memory_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/dyson"
	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/energy"
	"github.com/xraph/dyson/journal"
	"github.com/xraph/dyson/store"
	"github.com/xraph/dyson/store/memory"
	"github.com/xraph/dyson/store/storetest"
	"github.com/xraph/dyson/types"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return memory.New() })
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	p := &construction.Phase{
		Entity:       types.NewEntity(),
		ID:           1,
		Name:         "Initial Framework",
		Requirements: []construction.Requirement{{Resource: "steel", Amount: 10}},
		Status:       construction.StatusPlanned,
	}
	require.NoError(t, s.CreatePhase(ctx, p))
	p.Requirements[0].Amount = 99

	got, err := s.GetPhase(ctx, 1)
	require.NoError(t, err)
	got.Status = construction.StatusCancelled
	got.Requirements[0].Resource = "glass"

	again, err := s.GetPhase(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, construction.StatusPlanned, again.Status)
	require.Equal(t, construction.Requirement{Resource: "steel", Amount: 10}, again.Requirements[0])
}

func TestClosedStore(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Close())

	require.ErrorIs(t, s.Ping(ctx), dyson.ErrStoreClosed)
	_, err := s.NextSequence(ctx, store.SeqPhase)
	require.ErrorIs(t, err, dyson.ErrStoreClosed)
	err = s.Atomic(ctx, func(context.Context, store.Store) error { return nil })
	require.ErrorIs(t, err, dyson.ErrStoreClosed)
}

func TestAtomicCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := memory.New()

	err := s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		_, err := tx.NextSequence(ctx, store.SeqPhase)
		cancel()
		return err
	})
	require.ErrorIs(t, err, dyson.ErrTransactionFailed)
	require.ErrorIs(t, err, context.Canceled)

	seq, err := s.NextSequence(context.Background(), store.SeqPhase)
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)
}

func TestRollbackRestoresPreviousValues(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, s.PutResource(ctx, &construction.ResourceAllocation{
		Entity: types.NewEntity(), Resource: "steel", Allocation: types.Allocation{Committed: 500},
	}))
	require.NoError(t, s.SetTotalInvestment(ctx, 7000))
	require.NoError(t, s.PutEnergyStats(ctx, energy.Stats{TotalCaptured: 900}))
	require.NoError(t, s.AppendEntry(ctx, &journal.Entry{Sequence: 1, Module: "construction"}))

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		for _, amount := range []uint64{600, 700} {
			if err := tx.PutResource(ctx, &construction.ResourceAllocation{
				Entity: types.NewEntity(), Resource: "steel", Allocation: types.Allocation{Committed: amount},
			}); err != nil {
				return err
			}
		}
		if err := tx.PutResource(ctx, &construction.ResourceAllocation{Entity: types.NewEntity(), Resource: "glass"}); err != nil {
			return err
		}
		if err := tx.SetTotalInvestment(ctx, 1); err != nil {
			return err
		}
		if err := tx.PutEnergyStats(ctx, energy.Stats{TotalCaptured: 1}); err != nil {
			return err
		}
		if _, err := tx.NextSequence(ctx, store.SeqJournal); err != nil {
			return err
		}
		for seq := uint64(2); seq <= 4; seq++ {
			if err := tx.AppendEntry(ctx, &journal.Entry{Sequence: seq}); err != nil {
				return err
			}
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	steel, err := s.GetResource(ctx, "steel")
	require.NoError(t, err)
	require.Equal(t, uint64(500), steel.Committed)
	_, err = s.GetResource(ctx, "glass")
	require.ErrorIs(t, err, dyson.ErrNotFound)

	total, err := s.GetTotalInvestment(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(7000), total)

	stats, err := s.GetEnergyStats(ctx)
	require.NoError(t, err)
	require.Equal(t, energy.Stats{TotalCaptured: 900}, stats)

	entries, err := s.ListEntries(ctx, journal.ListOpts{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	seq, err := s.NextSequence(ctx, store.SeqJournal)
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq)

	require.NoError(t, s.AppendEntry(ctx, &journal.Entry{Sequence: 2}))
	entries, err = s.ListEntries(ctx, journal.ListOpts{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, uint64(2), entries[1].Sequence)
}

func TestPanicRollsBack(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	require.Panics(t, func() {
		_ = s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
			if err := tx.SetTotalInvestment(ctx, 42); err != nil {
				return err
			}
			panic("boom")
		})
	})

	total, err := s.GetTotalInvestment(ctx)
	require.NoError(t, err)
	require.Zero(t, total)

	// The lock was released.
	require.NoError(t, s.SetTotalInvestment(ctx, 1))
}

func TestHugeLimit(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, s.AppendEntry(ctx, &journal.Entry{Sequence: seq}))
	}

	entries, err := s.ListEntries(ctx, journal.ListOpts{Offset: 1, Limit: math.MaxInt})
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

// BenchmarkAtomicAppend measures one journaled transaction on a store whose
// history grows with b.N. The cost per op stays flat.
func BenchmarkAtomicAppend(b *testing.B) {
	ctx := context.Background()
	s := memory.New()
	for i := 0; i < b.N; i++ {
		err := s.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
			seq, err := tx.NextSequence(ctx, store.SeqJournal)
			if err != nil {
				return err
			}
			if err := tx.PutEnergyStats(ctx, energy.Stats{TotalCaptured: seq}); err != nil {
				return err
			}
			return tx.AppendEntry(ctx, &journal.Entry{Sequence: seq})
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}
