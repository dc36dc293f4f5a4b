package dyson

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xraph/dyson/id"
	"github.com/xraph/dyson/journal"
	"github.com/xraph/dyson/plugin"
	"github.com/xraph/dyson/store"
	"github.com/xraph/dyson/types"
)

// Module names as they appear in the journal and on the call surface.
const (
	ModuleConstruction = "construction"
	ModuleInvestment   = "investment"
	ModuleGovernance   = "governance"
	ModuleSimulation   = "simulation"
)

// Engine owns the four ledgers and the store they share.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	tracer  trace.Tracer
	config  Config

	// mu serializes mutations so the journal order is the global order.
	mu sync.Mutex

	construction *Construction
	investment   *Investment
	governance   *Governance
	energy       *Energy
}

// New creates an Engine over s. The configuration is validated once all
// options have been applied.
func New(s store.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		tracer:  noop.NewTracerProvider().Tracer("github.com/xraph/dyson"),
		config:  DefaultConfig(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.config.Validate(); err != nil {
		return nil, err
	}
	e.plugins.WithTimeout(e.config.PluginTimeout)

	e.construction = &Construction{e: e}
	e.investment = &Investment{e: e}
	e.governance = &Governance{e: e}
	e.energy = &Energy{e: e}

	return e, nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.config = cfg
	}
}

// WithMinInvestment sets the smallest accepted investment.
func WithMinInvestment(amount uint64) Option {
	return func(e *Engine) {
		e.config.MinInvestment = amount
	}
}

// WithPhaseStatuses sets the accepted phase statuses. The first one is
// assigned to new phases.
func WithPhaseStatuses(statuses ...string) Option {
	return func(e *Engine) {
		e.config.PhaseStatuses = e.config.PhaseStatuses[:0:0]
		for _, s := range statuses {
			e.config.PhaseStatuses = append(e.config.PhaseStatuses, phaseStatus(s))
		}
	}
}

// WithCloseRequiresProposer restricts proposal closing to the proposer.
func WithCloseRequiresProposer(v bool) Option {
	return func(e *Engine) {
		e.config.CloseRequiresProposer = v
	}
}

// WithPluginTimeout bounds every plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.config.PluginTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithTracer wraps every mutation in a span started from t.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("dyson engine started",
		"min_investment", e.config.MinInvestment,
		"phase_statuses", len(e.config.PhaseStatuses),
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop notifies plugins and closes the store.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	e.logger.Info("dyson engine stopped")
	return e.store.Close()
}

// Construction returns the construction ledger.
func (e *Engine) Construction() *Construction { return e.construction }

// Investment returns the investment ledger.
func (e *Engine) Investment() *Investment { return e.investment }

// Governance returns the governance engine.
func (e *Engine) Governance() *Governance { return e.governance }

// Energy returns the energy ledger.
func (e *Engine) Energy() *Energy { return e.energy }

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	cfg := e.config
	cfg.PhaseStatuses = append(cfg.PhaseStatuses[:0:0], cfg.PhaseStatuses...)
	return cfg
}

// Journal lists committed operations in commit order.
func (e *Engine) Journal(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	return e.store.ListEntries(ctx, opts)
}

// mutate runs fn in one store transaction and appends the journal entry fn
// fills in. entry arrives with Module, Operation, Caller and Amount set.
func (e *Engine) mutate(
	ctx context.Context,
	module, operation string,
	caller types.Principal,
	amount uint64,
	fn func(ctx context.Context, tx store.Store, entry *journal.Entry) error,
) error {
	ctx, span := e.tracer.Start(ctx, "dyson."+module+"."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("dyson.module", module),
			attribute.String("dyson.operation", operation),
			attribute.String("dyson.caller", caller.String()),
			attribute.Int64("dyson.amount", int64(min(amount, types.MaxQuantity))), //nolint:gosec // bounded above
		),
	)
	defer span.End()

	var entry *journal.Entry
	err := e.run(ctx, caller, func(ctx context.Context, tx store.Store) error {
		entry = &journal.Entry{
			Module:    module,
			Operation: operation,
			Caller:    caller,
			Amount:    amount,
		}
		if err := fn(ctx, tx, entry); err != nil {
			return err
		}

		seq, err := tx.NextSequence(ctx, store.SeqJournal)
		if err != nil {
			return err
		}
		entry.ID = id.NewEntryID()
		entry.Sequence = seq
		entry.At = time.Now().UTC()
		return tx.AppendEntry(ctx, entry)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		e.logger.Warn("dyson operation rejected",
			"module", module,
			"operation", operation,
			"caller", caller,
			"error", err,
		)
		e.plugins.EmitOperationRejected(ctx, module, operation, caller, err)
		return err
	}

	span.SetAttributes(attribute.Int64("dyson.sequence", int64(min(entry.Sequence, types.MaxQuantity)))) //nolint:gosec // bounded above
	e.logger.Debug("dyson operation committed",
		"module", module,
		"operation", operation,
		"caller", caller,
		"subject", entry.Subject,
		"sequence", entry.Sequence,
	)
	return nil
}

func (e *Engine) run(ctx context.Context, caller types.Principal, fn func(ctx context.Context, tx store.Store) error) error {
	if caller.IsZero() {
		return ValidationError{Field: "caller", Message: "is required"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.store.Atomic(ctx, fn)
}
