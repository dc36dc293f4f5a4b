package dyson_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/xraph/dyson"
	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/store/sqlite"
)

// TestDocumentationExamples verifies that the package documentation examples work.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		ctx := context.Background()

		// Persistent store (use store/memory for tests and demos)
		s, err := sqlite.Open(filepath.Join(t.TempDir(), "dyson.db"))
		if err != nil {
			t.Fatal(err)
		}

		engine, err := dyson.New(s,
			dyson.WithLogger(slog.New(slog.DiscardHandler)),
			dyson.WithMinInvestment(1000),
		)
		if err != nil {
			t.Fatal(err)
		}
		if err := engine.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer engine.Stop()

		caller := dyson.Principal("ST1PQHQKV0RJXZFY1DGX8MNSNYVE3VGZJSRTPGZGM")

		// Resources are allocated, then used up to what was allocated
		if err := engine.Construction().AllocateResource(ctx, caller, "steel", 500000); err != nil {
			t.Fatal(err)
		}
		if err := engine.Construction().UseResource(ctx, caller, "steel", 100000); err != nil {
			t.Fatal(err)
		}

		// Energy is captured, distributed to sectors, then used by each sector
		if err := engine.Energy().SimulateEnergyCapture(ctx, caller, 1000000); err != nil {
			t.Fatal(err)
		}
		if err := engine.Energy().SimulateEnergyDistribution(ctx, caller, "sector-a", 400000); err != nil {
			t.Fatal(err)
		}
		if err := engine.Energy().UseEnergy(ctx, caller, "sector-a", 100000); err != nil {
			t.Fatal(err)
		}

		// Failures write nothing
		err = engine.Construction().UseResource(ctx, caller, "steel", 1000000000)
		if !errors.Is(err, dyson.ErrInsufficientResource) {
			t.Fatalf("expected ErrInsufficientResource, got %v", err)
		}

		// Call surface
		reqs := []construction.Requirement{{Resource: "steel", Amount: 1000000}}
		id, err := engine.Call(ctx, caller, "dyson-construction", "add-construction-phase",
			"Initial Framework", "Constructing the initial framework", reqs)
		if err != nil {
			t.Fatal(err)
		}
		if id != uint64(1) {
			t.Fatalf("expected phase id 1, got %v", id)
		}

		if err := engine.VerifyInvariants(ctx); err != nil {
			t.Fatal(err)
		}
	})
}
