package audithook_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/dyson"
	audithook "github.com/xraph/dyson/audit_hook"
	"github.com/xraph/dyson/id"
	"github.com/xraph/dyson/store/memory"
	"github.com/xraph/dyson/types"
)

const caller types.Principal = "ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM"

type memoryRecorder struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (m *memoryRecorder) Record(_ context.Context, evt *audithook.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *memoryRecorder) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, evt := range m.events {
		out = append(out, evt.Action)
	}
	return out
}

func newEngine(t *testing.T, hook *audithook.Extension) *dyson.Engine {
	t.Helper()
	e, err := dyson.New(memory.New(),
		dyson.WithLogger(slog.New(slog.DiscardHandler)),
		dyson.WithPlugin(hook),
	)
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() { _ = e.Stop() })
	return e
}

func TestAuditTrail(t *testing.T) {
	ctx := context.Background()
	rec := &memoryRecorder{}
	e := newEngine(t, audithook.New(rec))

	require.NoError(t, e.Construction().AllocateResource(ctx, caller, "steel", 500))
	require.NoError(t, e.Investment().Invest(ctx, caller, 5000))
	proposalID, err := e.Governance().CreateProposal(ctx, caller, "Expand", "")
	require.NoError(t, err)
	require.NoError(t, e.Governance().Vote(ctx, caller, proposalID, true))
	require.Error(t, e.Energy().UseEnergy(ctx, caller, "north", 1))

	assert.Equal(t, []string{
		audithook.ActionResourceAllocated,
		audithook.ActionInvested,
		audithook.ActionProposalCreated,
		audithook.ActionVoteCast,
		audithook.ActionOperationRejected,
	}, rec.actions())

	first := rec.events[0]
	assert.Equal(t, audithook.ResourceMaterial, first.Resource)
	assert.Equal(t, "steel", first.ResourceID)
	assert.Equal(t, caller.String(), first.Actor)
	assert.Equal(t, uint64(500), first.Metadata["allocated"])
	assert.Equal(t, id.PrefixAudit, first.ID.Prefix())

	rejected := rec.events[4]
	assert.Equal(t, audithook.OutcomeFailure, rejected.Outcome)
	assert.Equal(t, audithook.SeverityWarning, rejected.Severity)
	assert.Equal(t, "simulation/use-energy", rejected.ResourceID)
	assert.Contains(t, rejected.Reason, "insufficient allocated energy")
}

func TestEnabledActions(t *testing.T) {
	ctx := context.Background()
	rec := &memoryRecorder{}
	e := newEngine(t, audithook.New(rec, audithook.WithEnabledActions(audithook.ActionInvested)))

	require.NoError(t, e.Construction().AllocateResource(ctx, caller, "steel", 500))
	require.NoError(t, e.Investment().Invest(ctx, caller, 5000))

	assert.Equal(t, []string{audithook.ActionInvested}, rec.actions())
}

func TestDisabledActions(t *testing.T) {
	ctx := context.Background()
	rec := &memoryRecorder{}
	e := newEngine(t, audithook.New(rec, audithook.WithDisabledActions(audithook.ActionInvested)))

	require.NoError(t, e.Construction().AllocateResource(ctx, caller, "steel", 500))
	require.NoError(t, e.Investment().Invest(ctx, caller, 5000))

	assert.Equal(t, []string{audithook.ActionResourceAllocated}, rec.actions())
}

func TestRecorderFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	failing := audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	})
	hook := audithook.New(failing, audithook.WithLogger(slog.New(slog.DiscardHandler)))
	e := newEngine(t, hook)

	require.NoError(t, e.Energy().SimulateEnergyCapture(ctx, caller, 10))
}
