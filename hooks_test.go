package dyson_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/xraph/dyson"
	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/energy"
	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/investment"
	"github.com/xraph/dyson/types"
)

type recorder struct {
	mu     sync.Mutex
	events []string
	totals []uint64
	errs   []error
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) OnInit(context.Context, any) error { r.add("init"); return nil }

func (r *recorder) OnPhaseAdded(_ context.Context, _ types.Principal, p *construction.Phase) error {
	r.add("phase-added:" + p.Name)
	return nil
}

func (r *recorder) OnPhaseStatusChanged(_ context.Context, _ types.Principal, p *construction.Phase, from construction.PhaseStatus) error {
	r.add("phase-status:" + string(from) + "->" + string(p.Status))
	return nil
}

func (r *recorder) OnResourceAllocated(_ context.Context, _ types.Principal, res *construction.ResourceAllocation, _ uint64) error {
	r.add("allocated:" + res.Resource)
	return nil
}

func (r *recorder) OnInvested(_ context.Context, _ *investment.Investment, _, total uint64) error {
	r.add("invested")
	r.mu.Lock()
	r.totals = append(r.totals, total)
	r.mu.Unlock()
	return nil
}

func (r *recorder) OnVoteCast(_ context.Context, _ *governance.Proposal, v *governance.Vote) error {
	if v.VoteFor {
		r.add("vote:for")
	} else {
		r.add("vote:against")
	}
	return nil
}

func (r *recorder) OnProposalClosed(context.Context, types.Principal, *governance.Proposal) error {
	r.add("closed")
	return nil
}

func (r *recorder) OnEnergyDistributed(_ context.Context, _ types.Principal, s *energy.SectorEnergy, stats energy.Stats, _ uint64) error {
	r.add("distributed:" + s.Sector)
	return nil
}

func (r *recorder) OnOperationRejected(_ context.Context, module, operation string, _ types.Principal, err error) error {
	r.add("rejected:" + module + "/" + operation)
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	return nil
}

func (r *recorder) OnShutdown(context.Context) error { r.add("shutdown"); return nil }

func TestPluginHooks(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	e := newEngine(t, dyson.WithPlugin(rec))

	phaseID, err := e.Construction().AddConstructionPhase(ctx, alice, "Framework", "", nil)
	require.NoError(t, err)
	require.NoError(t, e.Construction().UpdatePhaseStatus(ctx, alice, phaseID, construction.StatusInProgress))
	require.NoError(t, e.Construction().AllocateResource(ctx, alice, "steel", 5))
	require.NoError(t, e.Investment().Invest(ctx, alice, 2000))
	require.NoError(t, e.Investment().Invest(ctx, bob, 3000))

	proposalID, err := e.Governance().CreateProposal(ctx, alice, "t", "d")
	require.NoError(t, err)
	require.NoError(t, e.Governance().Vote(ctx, bob, proposalID, false))
	require.NoError(t, e.Governance().CloseProposal(ctx, alice, proposalID))

	require.NoError(t, e.Energy().SimulateEnergyCapture(ctx, alice, 10))
	require.NoError(t, e.Energy().SimulateEnergyDistribution(ctx, alice, "north", 4))
	require.Error(t, e.Energy().SimulateEnergyDistribution(ctx, alice, "north", 40))

	assert.Equal(t, []string{
		"init",
		"phase-added:Framework",
		"phase-status:planned->in-progress",
		"allocated:steel",
		"invested",
		"invested",
		"vote:against",
		"closed",
		"distributed:north",
		"rejected:simulation/simulate-energy-distribution",
	}, rec.snapshot())

	rec.mu.Lock()
	assert.Equal(t, []uint64{2000, 5000}, rec.totals)
	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], dyson.ErrInsufficientEnergy)
	rec.mu.Unlock()
}

type failingPlugin struct{}

func (failingPlugin) Name() string { return "failing" }

func (failingPlugin) OnInvested(context.Context, *investment.Investment, uint64, uint64) error {
	panic("boom")
}

func TestPluginFailureDoesNotAffectOperation(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, dyson.WithPlugin(failingPlugin{}))

	require.NoError(t, e.Investment().Invest(ctx, alice, 5000))

	total, err := e.Investment().GetTotalInvestment(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), total)
}

func TestTracing(t *testing.T) {
	ctx := context.Background()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	e := newEngine(t, dyson.WithTracer(tp.Tracer("dyson-test")))

	require.NoError(t, e.Construction().AllocateResource(ctx, alice, "steel", 5))
	require.ErrorIs(t, e.Construction().UseResource(ctx, alice, "steel", 6), dyson.ErrInsufficientResource)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "dyson.construction.allocate-resource", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, "dyson.construction.use-resource", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	attrs := map[string]string{}
	for _, kv := range spans[1].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "construction", attrs["dyson.module"])
	assert.Equal(t, alice.String(), attrs["dyson.caller"])
	assert.Equal(t, "6", attrs["dyson.amount"])
}
