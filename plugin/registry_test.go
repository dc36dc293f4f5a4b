package plugin_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/plugin"
	"github.com/xraph/dyson/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietRegistry() *plugin.Registry {
	return plugin.NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type phaseCounter struct {
	name  string
	calls atomic.Int32
	err   error
}

func (p *phaseCounter) Name() string { return p.name }

func (p *phaseCounter) OnPhaseAdded(context.Context, types.Principal, *construction.Phase) error {
	p.calls.Add(1)
	return p.err
}

type blockingVoter struct {
	release chan struct{}
}

func (b *blockingVoter) Name() string { return "blocking" }

func (b *blockingVoter) OnVoteCast(context.Context, *governance.Proposal, *governance.Vote) error {
	<-b.release
	return nil
}

type panickingCloser struct{}

func (panickingCloser) Name() string { return "panicking" }

func (panickingCloser) OnProposalClosed(context.Context, types.Principal, *governance.Proposal) error {
	panic("boom")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := quietRegistry()
	require.NoError(t, r.Register(&phaseCounter{name: "counter"}))
	require.Error(t, r.Register(&phaseCounter{name: "counter"}))
	assert.Equal(t, 1, r.Count())
	assert.NotNil(t, r.Get("counter"))
	assert.Nil(t, r.Get("missing"))
	assert.Len(t, r.List(), 1)
}

func TestEmitDispatchesOnlyToImplementers(t *testing.T) {
	r := quietRegistry()
	counter := &phaseCounter{name: "counter"}
	failing := &phaseCounter{name: "failing", err: errors.New("hook failed")}
	require.NoError(t, r.Register(counter))
	require.NoError(t, r.Register(failing))
	require.NoError(t, r.Register(panickingCloser{}))

	ctx := context.Background()
	r.EmitPhaseAdded(ctx, "caller", &construction.Phase{ID: 1})
	r.EmitPhaseAdded(ctx, "caller", &construction.Phase{ID: 2})
	r.EmitProposalClosed(ctx, "caller", &governance.Proposal{ID: 1})

	assert.Equal(t, int32(2), counter.calls.Load())
	assert.Equal(t, int32(2), failing.calls.Load(), "a failing hook does not stop dispatch")
}

func TestEmitTimesOut(t *testing.T) {
	r := quietRegistry().WithTimeout(20 * time.Millisecond)
	blocker := &blockingVoter{release: make(chan struct{})}
	defer close(blocker.release)
	require.NoError(t, r.Register(blocker))

	start := time.Now()
	r.EmitVoteCast(context.Background(), &governance.Proposal{ID: 1}, &governance.Vote{ProposalID: 1})
	assert.Less(t, time.Since(start), time.Second)
}

func TestEmitHonoursContext(t *testing.T) {
	r := quietRegistry()
	blocker := &blockingVoter{release: make(chan struct{})}
	defer close(blocker.release)
	require.NoError(t, r.Register(blocker))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	r.EmitVoteCast(ctx, &governance.Proposal{ID: 1}, &governance.Vote{ProposalID: 1})
	assert.Less(t, time.Since(start), plugin.DefaultTimeout)
}
