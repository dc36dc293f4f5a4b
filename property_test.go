package dyson_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/xraph/dyson"
	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/journal"
	"github.com/xraph/dyson/store/memory"
	"github.com/xraph/dyson/types"
)

// ledgerOp is one randomly generated call against the engine.
type ledgerOp struct {
	Kind   int
	Key    string
	Amount uint64
	Who    int
	Flag   bool
}

func (o ledgerOp) String() string {
	return fmt.Sprintf("op%d(%s, %d, who=%d, %v)", o.Kind, o.Key, o.Amount, o.Who, o.Flag)
}

var principals = []types.Principal{alice, bob, "ST3AMKRD7TJFJ2QH3MH4GT7CNXJN0WP8Y8GXWQ4RM"}

func genOp() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 10),
		gen.OneConstOf("steel", "glass", "sector-a", "sector-b"),
		gen.UInt64Range(0, 3000),
		gen.IntRange(0, len(principals)-1),
		gen.Bool(),
	).Map(func(v []any) ledgerOp {
		return ledgerOp{
			Kind:   v[0].(int),
			Key:    v[1].(string),
			Amount: v[2].(uint64),
			Who:    v[3].(int),
			Flag:   v[4].(bool),
		}
	})
}

func apply(ctx context.Context, e *dyson.Engine, op ledgerOp) error {
	caller := principals[op.Who]
	switch op.Kind {
	case 0:
		return e.Construction().AllocateResource(ctx, caller, op.Key, op.Amount)
	case 1:
		return e.Construction().UseResource(ctx, caller, op.Key, op.Amount)
	case 2:
		return e.Investment().Invest(ctx, caller, op.Amount)
	case 3:
		return e.Investment().Withdraw(ctx, caller, op.Amount)
	case 4:
		_, err := e.Governance().CreateProposal(ctx, caller, op.Key, "")
		return err
	case 5:
		return e.Governance().Vote(ctx, caller, proposalOf(op), op.Flag)
	case 6:
		return e.Governance().CloseProposal(ctx, caller, proposalOf(op))
	case 7:
		return e.Energy().SimulateEnergyCapture(ctx, caller, op.Amount)
	case 8:
		return e.Energy().SimulateEnergyDistribution(ctx, caller, op.Key, op.Amount)
	case 9:
		return e.Energy().UseEnergy(ctx, caller, op.Key, op.Amount)
	default:
		_, err := e.Construction().AddConstructionPhase(ctx, caller, op.Key, "",
			[]construction.Requirement{{Resource: op.Key, Amount: op.Amount}})
		return err
	}
}

func proposalOf(op ledgerOp) governance.ProposalID {
	return governance.ProposalID(op.Amount%4 + 1)
}

func expectedFailure(err error) bool {
	return dyson.IsInsufficient(err) ||
		dyson.IsNotFound(err) ||
		errors.Is(err, dyson.ErrBelowMinimum) ||
		errors.Is(err, dyson.ErrInvalidState) ||
		errors.Is(err, dyson.ErrAlreadyVoted)
}

type snapshot struct {
	Phases      any
	Resources   any
	Investments any
	Total       uint64
	Proposals   []*governance.Proposal
	Votes       map[governance.ProposalID][]*governance.Vote
	Sectors     any
	Stats       any
	Journal     int
}

func takeSnapshot(ctx context.Context, e *dyson.Engine) (snapshot, error) {
	var (
		s   snapshot
		err error
	)
	if s.Phases, err = e.Construction().ListPhases(ctx, construction.ListOpts{}); err != nil {
		return s, err
	}
	if s.Resources, err = e.Construction().ListResourceAllocations(ctx); err != nil {
		return s, err
	}
	if s.Investments, err = e.Investment().ListInvestments(ctx); err != nil {
		return s, err
	}
	if s.Total, err = e.Investment().GetTotalInvestment(ctx); err != nil {
		return s, err
	}
	if s.Proposals, err = e.Governance().ListProposals(ctx, governance.ListOpts{}); err != nil {
		return s, err
	}
	s.Votes = make(map[governance.ProposalID][]*governance.Vote, len(s.Proposals))
	for _, p := range s.Proposals {
		if s.Votes[p.ID], err = e.Governance().ListVotes(ctx, p.ID); err != nil {
			return s, err
		}
	}
	if s.Sectors, err = e.Energy().ListSectors(ctx); err != nil {
		return s, err
	}
	if s.Stats, err = e.Energy().GetEnergyStats(ctx); err != nil {
		return s, err
	}
	entries, err := e.Journal(ctx, journal.ListOpts{})
	s.Journal = len(entries)
	return s, err
}

func TestLedgerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("invariants hold after any operation sequence", prop.ForAll(
		func(ops []ledgerOp) string {
			ctx := context.Background()
			e, err := dyson.New(memory.New(),
				dyson.WithLogger(slog.New(slog.DiscardHandler)),
				dyson.WithMinInvestment(500),
			)
			if err != nil {
				return err.Error()
			}

			for _, op := range ops {
				before, err := takeSnapshot(ctx, e)
				if err != nil {
					return err.Error()
				}

				if err := apply(ctx, e, op); err != nil {
					if !expectedFailure(err) {
						return fmt.Sprintf("%v: unexpected error %v", op, err)
					}
					after, err := takeSnapshot(ctx, e)
					if err != nil {
						return err.Error()
					}
					if !reflect.DeepEqual(before, after) {
						return fmt.Sprintf("%v: rejected operation changed state", op)
					}
				}

				if err := e.VerifyInvariants(ctx); err != nil {
					return fmt.Sprintf("%v: %v", op, err)
				}
			}
			return ""
		},
		gen.SliceOfN(40, genOp()),
	))

	properties.Property("energy available is captured minus distributed", prop.ForAll(
		func(captures, distributions []uint64) bool {
			ctx := context.Background()
			e, err := dyson.New(memory.New(), dyson.WithLogger(slog.New(slog.DiscardHandler)))
			if err != nil {
				return false
			}

			var captured, distributed uint64
			for _, c := range captures {
				if e.Energy().SimulateEnergyCapture(ctx, alice, c) == nil {
					captured += c
				}
			}
			for i, d := range distributions {
				if e.Energy().SimulateEnergyDistribution(ctx, alice, fmt.Sprintf("s%d", i%3), d) == nil {
					distributed += d
				}
			}

			stats, err := e.Energy().GetEnergyStats(ctx)
			return err == nil &&
				stats.TotalCaptured == captured &&
				stats.TotalDistributed == distributed &&
				stats.Available() == captured-distributed
		},
		gen.SliceOf(gen.UInt64Range(0, 10000)),
		gen.SliceOf(gen.UInt64Range(0, 10000)),
	))

	properties.TestingRun(t)
}

func TestRejectedGovernanceLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, dyson.WithCloseRequiresProposer(true))

	proposalID, err := e.Governance().CreateProposal(ctx, alice, "Expand", "")
	require.NoError(t, err)
	require.NoError(t, e.Governance().Vote(ctx, bob, proposalID, true))

	rejected := []struct {
		name string
		op   func() error
	}{
		{"second vote", func() error { return e.Governance().Vote(ctx, bob, proposalID, false) }},
		{"vote on unknown proposal", func() error { return e.Governance().Vote(ctx, bob, proposalID+1, true) }},
		{"close by non-proposer", func() error { return e.Governance().CloseProposal(ctx, bob, proposalID) }},
	}

	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			before, err := takeSnapshot(ctx, e)
			require.NoError(t, err)
			require.Error(t, tt.op())
			after, err := takeSnapshot(ctx, e)
			require.NoError(t, err)
			require.Equal(t, before, after)
		})
	}

	require.NoError(t, e.Governance().CloseProposal(ctx, alice, proposalID))
	before, err := takeSnapshot(ctx, e)
	require.NoError(t, err)
	require.ErrorIs(t, e.Governance().Vote(ctx, alice, proposalID, true), dyson.ErrInvalidState)
	require.ErrorIs(t, e.Governance().CloseProposal(ctx, alice, proposalID), dyson.ErrInvalidState)
	after, err := takeSnapshot(ctx, e)
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Len(t, after.Votes[proposalID], 1)
}
