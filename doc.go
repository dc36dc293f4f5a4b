// Package dyson provides the bookkeeping core for a shared megastructure
// build: four ledgers that all follow one committed-versus-consumed pattern.
//
// Dyson is a library, not a service. Callers arrive pre-authenticated and are
// passed explicitly to every mutating method. It provides:
//
//   - Construction phases and a global per-resource-kind allocation ledger
//   - Per-investor capital balances with a running total
//   - Proposals with one vote per voter and an active to closed lifecycle
//   - Captured energy distributed to sectors and consumed by them
//   - An append-only journal written in the same transaction as each change
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/dyson"
//	    "github.com/xraph/dyson/store/sqlite"
//	)
//
//	s, err := sqlite.Open("dyson.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine, err := dyson.New(s, dyson.WithMinInvestment(1000))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Ledgers
//
// Resources are allocated, then used up to what was allocated:
//
//	_ = engine.Construction().AllocateResource(ctx, caller, "steel", 500000)
//	_ = engine.Construction().UseResource(ctx, caller, "steel", 100000)
//
// Energy is captured, distributed to sectors, then used by each sector:
//
//	_ = engine.Energy().SimulateEnergyCapture(ctx, caller, 1000000)
//	_ = engine.Energy().SimulateEnergyDistribution(ctx, caller, "sector-a", 400000)
//	_ = engine.Energy().UseEnergy(ctx, caller, "sector-a", 100000)
//
// Every operation either commits all of its writes or none of them. Failures
// are sentinel errors matched with errors.Is:
//
//	if errors.Is(err, dyson.ErrInsufficientResource) {
//	    // nothing was written
//	}
//
// # Call surface
//
// Engine.Call addresses operations by module and operation name with
// positional arguments, as an external transport would:
//
//	id, err := engine.Call(ctx, caller, "dyson-construction", "add-construction-phase",
//	    "Initial Framework", "Constructing the initial framework", reqs)
//
// # Stores
//
// store/memory keeps state in process. store/sqlite, store/postgres and
// store/mongo persist it; all of them run each operation in one transaction.
package dyson
