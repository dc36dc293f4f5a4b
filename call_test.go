package dyson_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/dyson"
)

func decodeArgs(t *testing.T, raw string) []any {
	t.Helper()
	var out []any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestCallConstruction(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	params := decodeArgs(t, `["Initial Framework", "Constructing the initial framework for the Dyson sphere",
		[{"resource": "steel", "amount": 1000000}, {"resource": "solar-panels", "amount": 500000}]]`)

	got, err := e.Call(ctx, alice, "dyson-construction", "add-construction-phase", params...)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got)

	got, err = e.Call(ctx, alice, "construction", "get-phase", 1.0)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":        "Initial Framework",
		"description": "Constructing the initial framework for the Dyson sphere",
		"resource_requirements": []map[string]any{
			{"resource": "steel", "amount": uint64(1000000)},
			{"resource": "solar-panels", "amount": uint64(500000)},
		},
		"status": "planned",
	}, got)

	got, err = e.Call(ctx, alice, "dyson-construction", "update-phase-status", 1, "in-progress")
	require.NoError(t, err)
	assert.Equal(t, true, got)

	_, err = e.Call(ctx, alice, "dyson-construction", "update-phase-status", 999, "completed")
	require.ErrorIs(t, err, dyson.ErrNotFound)

	got, err = e.Call(ctx, alice, "dyson-construction", "allocate-resource", "steel", 500000)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = e.Call(ctx, alice, "dyson-construction", "use-resource", "steel", json.Number("100000"))
	require.NoError(t, err)
	assert.Equal(t, true, got)

	_, err = e.Call(ctx, alice, "dyson-construction", "use-resource", "steel", "u1000000000")
	require.ErrorIs(t, err, dyson.ErrInsufficientResource)

	got, err = e.Call(ctx, alice, "dyson-construction", "get-resource-allocation", "steel")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"allocated": uint64(500000), "used": uint64(100000)}, got)

	got, err = e.Call(ctx, alice, "dyson-construction", "get-phase", 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCallInvestment(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	_, err := e.Call(ctx, alice, "dyson-investment", "invest", 1)
	require.ErrorIs(t, err, dyson.ErrBelowMinimum)

	got, err := e.Call(ctx, alice, "dyson-investment", "invest", 1000000)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	_, err = e.Call(ctx, alice, "dyson-investment", "withdraw", 2000000)
	require.ErrorIs(t, err, dyson.ErrInsufficientBalance)

	got, err = e.Call(ctx, alice, "dyson-investment", "withdraw", 500000)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = e.Call(ctx, bob, "dyson-investment", "get-investment", alice.String())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"amount": uint64(500000)}, got)

	got, err = e.Call(ctx, bob, "dyson-investment", "get-investment", bob)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = e.Call(ctx, bob, "dyson-investment", "get-total-investment")
	require.NoError(t, err)
	assert.Equal(t, uint64(500000), got)
}

func TestCallGovernance(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	got, err := e.Call(ctx, alice, "dyson-governance", "create-proposal",
		"Increase Solar Panel Efficiency", "Allocate more resources to improve solar panel efficiency")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got)

	got, err = e.Call(ctx, bob, "dyson-governance", "vote", 1, true)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	_, err = e.Call(ctx, bob, "dyson-governance", "vote", 1, "false")
	require.ErrorIs(t, err, dyson.ErrAlreadyVoted)

	got, err = e.Call(ctx, alice, "dyson-governance", "close-proposal", 1)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	_, err = e.Call(ctx, alice, "dyson-governance", "vote", 1, true)
	require.ErrorIs(t, err, dyson.ErrInvalidState)

	got, err = e.Call(ctx, alice, "dyson-governance", "get-proposal", 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"title":         "Increase Solar Panel Efficiency",
		"description":   "Allocate more resources to improve solar panel efficiency",
		"proposer":      alice.String(),
		"status":        "closed",
		"votes_for":     uint64(1),
		"votes_against": uint64(0),
	}, got)

	got, err = e.Call(ctx, alice, "dyson-governance", "get-proposal", 999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCallSimulation(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	for _, step := range []struct {
		op   string
		args []any
	}{
		{"simulate-energy-capture", []any{1000000}},
		{"simulate-energy-distribution", []any{"sector-a", 400000}},
		{"use-energy", []any{"sector-a", 100000}},
	} {
		got, err := e.Call(ctx, alice, "dyson-simulation", step.op, step.args...)
		require.NoError(t, err, step.op)
		assert.Equal(t, true, got, step.op)
	}

	_, err := e.Call(ctx, alice, "dyson-simulation", "simulate-energy-distribution", "sector-b", 700000)
	require.ErrorIs(t, err, dyson.ErrInsufficientEnergy)

	_, err = e.Call(ctx, alice, "dyson-simulation", "use-energy", "sector-a", 400000)
	require.ErrorIs(t, err, dyson.ErrInsufficientAllocatedEnergy)

	got, err := e.Call(ctx, alice, "dyson-simulation", "get-energy-stats")
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{
		"total_captured":    1000000,
		"total_distributed": 400000,
		"available":         600000,
	}, got)

	got, err = e.Call(ctx, alice, "dyson-simulation", "get-sector-energy", "sector-a")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"allocated": uint64(400000), "used": uint64(100000)}, got)

	got, err = e.Call(ctx, alice, "dyson-simulation", "get-sector-energy", "sector-z")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCallRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	tests := []struct {
		name      string
		module    string
		operation string
		args      []any
		expectErr error
	}{
		{"unknown module", "dyson-mining", "dig", nil, dyson.ErrUnknownOperation},
		{"unknown operation", "dyson-investment", "borrow", []any{1}, dyson.ErrUnknownOperation},
		{"module of another ledger", "construction", "invest", []any{1000}, dyson.ErrUnknownOperation},
		{"missing argument", "dyson-investment", "invest", nil, dyson.ErrInvalidArgument},
		{"extra argument", "dyson-simulation", "get-energy-stats", []any{1}, dyson.ErrInvalidArgument},
		{"negative amount", "dyson-investment", "invest", []any{-5.0}, dyson.ErrInvalidArgument},
		{"fractional amount", "dyson-investment", "invest", []any{1000.5}, dyson.ErrInvalidArgument},
		{"amount as word", "dyson-construction", "allocate-resource", []any{"steel", "lots"}, dyson.ErrInvalidArgument},
		{"resource as number", "dyson-construction", "allocate-resource", []any{7, 10}, dyson.ErrInvalidArgument},
		{"vote side not boolean", "dyson-governance", "vote", []any{1, 3}, dyson.ErrInvalidArgument},
		{"requirement without resource", "dyson-construction", "add-construction-phase",
			[]any{"n", "d", []any{map[string]any{"amount": 1.0}}}, dyson.ErrInvalidArgument},
		{"requirements not a list", "dyson-construction", "add-construction-phase",
			[]any{"n", "d", "steel"}, dyson.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Call(ctx, alice, tt.module, tt.operation, tt.args...)
			require.ErrorIs(t, err, tt.expectErr)
		})
	}
}

func TestOperations(t *testing.T) {
	ops := dyson.Operations()
	assert.Len(t, ops, 4)
	assert.ElementsMatch(t, []string{
		"create-proposal", "vote", "close-proposal", "get-proposal",
	}, ops["governance"])
	assert.Len(t, ops["construction"], 6)
	assert.Len(t, ops["simulation"], 5)
}
