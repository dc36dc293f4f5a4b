// Package observability provides a metrics extension for Dyson that records
// ledger event counts and quantities via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/energy"
	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/investment"
	"github.com/xraph/dyson/plugin"
	"github.com/xraph/dyson/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnPhaseAdded         = (*MetricsExtension)(nil)
	_ plugin.OnPhaseStatusChanged = (*MetricsExtension)(nil)
	_ plugin.OnResourceAllocated  = (*MetricsExtension)(nil)
	_ plugin.OnResourceUsed       = (*MetricsExtension)(nil)
	_ plugin.OnInvested           = (*MetricsExtension)(nil)
	_ plugin.OnWithdrawn          = (*MetricsExtension)(nil)
	_ plugin.OnProposalCreated    = (*MetricsExtension)(nil)
	_ plugin.OnVoteCast           = (*MetricsExtension)(nil)
	_ plugin.OnProposalClosed     = (*MetricsExtension)(nil)
	_ plugin.OnEnergyCaptured     = (*MetricsExtension)(nil)
	_ plugin.OnEnergyDistributed  = (*MetricsExtension)(nil)
	_ plugin.OnEnergyUsed         = (*MetricsExtension)(nil)
	_ plugin.OnOperationRejected  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger metrics.
// Register it as a Dyson plugin to track every committed operation.
type MetricsExtension struct {
	factory MetricFactory

	// Construction metrics
	PhaseAdded         Counter
	PhaseStatusChanged Counter
	ResourceAllocated  Counter
	ResourceUsed       Counter

	// Investment metrics
	Investments     Counter
	InvestedAmount  Counter
	Withdrawals     Counter
	WithdrawnAmount Counter
	InvestmentSize  Histogram

	// Governance metrics
	ProposalCreated Counter
	VotesFor        Counter
	VotesAgainst    Counter
	ProposalClosed  Counter

	// Energy metrics
	EnergyCaptured     Counter
	EnergyDistributed  Counter
	EnergyUsed         Counter
	DistributionAmount Histogram

	// Error metrics
	OperationsRejected Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use NewOTelFactory to back it with an OpenTelemetry meter.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Construction metrics
		PhaseAdded:         factory.Counter("dyson.construction.phase.added"),
		PhaseStatusChanged: factory.Counter("dyson.construction.phase.status_changed"),
		ResourceAllocated:  factory.Counter("dyson.construction.resource.allocated"),
		ResourceUsed:       factory.Counter("dyson.construction.resource.used"),

		// Investment metrics
		Investments:     factory.Counter("dyson.investment.invest.count"),
		InvestedAmount:  factory.Counter("dyson.investment.invest.amount"),
		Withdrawals:     factory.Counter("dyson.investment.withdraw.count"),
		WithdrawnAmount: factory.Counter("dyson.investment.withdraw.amount"),
		InvestmentSize:  factory.Histogram("dyson.investment.invest.size"),

		// Governance metrics
		ProposalCreated: factory.Counter("dyson.governance.proposal.created"),
		VotesFor:        factory.Counter("dyson.governance.votes.for"),
		VotesAgainst:    factory.Counter("dyson.governance.votes.against"),
		ProposalClosed:  factory.Counter("dyson.governance.proposal.closed"),

		// Energy metrics
		EnergyCaptured:     factory.Counter("dyson.energy.captured"),
		EnergyDistributed:  factory.Counter("dyson.energy.distributed"),
		EnergyUsed:         factory.Counter("dyson.energy.used"),
		DistributionAmount: factory.Histogram("dyson.energy.distribution.size"),

		// Error metrics
		OperationsRejected: factory.Counter("dyson.operations.rejected"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Construction hooks
// ──────────────────────────────────────────────────

// OnPhaseAdded implements plugin.OnPhaseAdded.
func (m *MetricsExtension) OnPhaseAdded(_ context.Context, _ types.Principal, _ *construction.Phase) error {
	m.PhaseAdded.Inc()
	return nil
}

// OnPhaseStatusChanged implements plugin.OnPhaseStatusChanged.
func (m *MetricsExtension) OnPhaseStatusChanged(_ context.Context, _ types.Principal, _ *construction.Phase, _ construction.PhaseStatus) error {
	m.PhaseStatusChanged.Inc()
	return nil
}

// OnResourceAllocated implements plugin.OnResourceAllocated.
func (m *MetricsExtension) OnResourceAllocated(_ context.Context, _ types.Principal, _ *construction.ResourceAllocation, amount uint64) error {
	m.ResourceAllocated.Add(float64(amount))
	return nil
}

// OnResourceUsed implements plugin.OnResourceUsed.
func (m *MetricsExtension) OnResourceUsed(_ context.Context, _ types.Principal, _ *construction.ResourceAllocation, amount uint64) error {
	m.ResourceUsed.Add(float64(amount))
	return nil
}

// ──────────────────────────────────────────────────
// Investment hooks
// ──────────────────────────────────────────────────

// OnInvested implements plugin.OnInvested.
func (m *MetricsExtension) OnInvested(_ context.Context, _ *investment.Investment, amount, _ uint64) error {
	m.Investments.Inc()
	m.InvestedAmount.Add(float64(amount))
	m.InvestmentSize.Observe(float64(amount))
	return nil
}

// OnWithdrawn implements plugin.OnWithdrawn.
func (m *MetricsExtension) OnWithdrawn(_ context.Context, _ *investment.Investment, amount, _ uint64) error {
	m.Withdrawals.Inc()
	m.WithdrawnAmount.Add(float64(amount))
	return nil
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnProposalCreated implements plugin.OnProposalCreated.
func (m *MetricsExtension) OnProposalCreated(_ context.Context, _ *governance.Proposal) error {
	m.ProposalCreated.Inc()
	return nil
}

// OnVoteCast implements plugin.OnVoteCast.
func (m *MetricsExtension) OnVoteCast(_ context.Context, _ *governance.Proposal, vote *governance.Vote) error {
	if vote.VoteFor {
		m.VotesFor.Inc()
	} else {
		m.VotesAgainst.Inc()
	}
	return nil
}

// OnProposalClosed implements plugin.OnProposalClosed.
func (m *MetricsExtension) OnProposalClosed(_ context.Context, _ types.Principal, _ *governance.Proposal) error {
	m.ProposalClosed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Energy hooks
// ──────────────────────────────────────────────────

// OnEnergyCaptured implements plugin.OnEnergyCaptured.
func (m *MetricsExtension) OnEnergyCaptured(_ context.Context, _ types.Principal, _ energy.Stats, amount uint64) error {
	m.EnergyCaptured.Add(float64(amount))
	return nil
}

// OnEnergyDistributed implements plugin.OnEnergyDistributed.
func (m *MetricsExtension) OnEnergyDistributed(_ context.Context, _ types.Principal, _ *energy.SectorEnergy, _ energy.Stats, amount uint64) error {
	m.EnergyDistributed.Add(float64(amount))
	m.DistributionAmount.Observe(float64(amount))
	return nil
}

// OnEnergyUsed implements plugin.OnEnergyUsed.
func (m *MetricsExtension) OnEnergyUsed(_ context.Context, _ types.Principal, _ *energy.SectorEnergy, amount uint64) error {
	m.EnergyUsed.Add(float64(amount))
	return nil
}

// OnOperationRejected implements plugin.OnOperationRejected.
func (m *MetricsExtension) OnOperationRejected(_ context.Context, _, _ string, _ types.Principal, _ error) error {
	m.OperationsRejected.Inc()
	return nil
}
