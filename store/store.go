package store

import (
	"context"

	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/energy"
	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/investment"
	"github.com/xraph/dyson/journal"
)

// Store is the unified storage interface for all Dyson ledgers.
//
// Getters return an error wrapping dyson.ErrNotFound for absent keys; the
// engine turns that into an absent result on read paths.
type Store interface {
	construction.Store
	investment.Store
	governance.Store
	energy.Store
	journal.Store

	// Atomic runs fn inside a single transaction. Every write made through tx
	// is committed when fn returns nil and discarded otherwise. Calling Atomic
	// on a transactional Store joins the enclosing transaction.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Store) error) error

	// NextSequence increments the named counter and returns its new value.
	// The first call for a name returns 1.
	NextSequence(ctx context.Context, name string) (uint64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Sequence names shared by every backend.
const (
	SeqPhase    = "phase"
	SeqProposal = "proposal"
	SeqJournal  = "journal"
)
