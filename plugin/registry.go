package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/energy"
	"github.com/xraph/dyson/governance"
	"github.com/xraph/dyson/investment"
	"github.com/xraph/dyson/types"
)

// DefaultTimeout bounds every hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onPhaseAdded         []OnPhaseAdded
	onPhaseStatusChanged []OnPhaseStatusChanged
	onResourceAllocated  []OnResourceAllocated
	onResourceUsed       []OnResourceUsed
	onInvested           []OnInvested
	onWithdrawn          []OnWithdrawn
	onProposalCreated    []OnProposalCreated
	onVoteCast           []OnVoteCast
	onProposalClosed     []OnProposalClosed
	onEnergyCaptured     []OnEnergyCaptured
	onEnergyDistributed  []OnEnergyDistributed
	onEnergyUsed         []OnEnergyUsed
	onOperationRejected  []OnOperationRejected
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout. Non-positive values are ignored.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnPhaseAdded); ok {
		r.onPhaseAdded = append(r.onPhaseAdded, v)
	}
	if v, ok := p.(OnPhaseStatusChanged); ok {
		r.onPhaseStatusChanged = append(r.onPhaseStatusChanged, v)
	}
	if v, ok := p.(OnResourceAllocated); ok {
		r.onResourceAllocated = append(r.onResourceAllocated, v)
	}
	if v, ok := p.(OnResourceUsed); ok {
		r.onResourceUsed = append(r.onResourceUsed, v)
	}
	if v, ok := p.(OnInvested); ok {
		r.onInvested = append(r.onInvested, v)
	}
	if v, ok := p.(OnWithdrawn); ok {
		r.onWithdrawn = append(r.onWithdrawn, v)
	}
	if v, ok := p.(OnProposalCreated); ok {
		r.onProposalCreated = append(r.onProposalCreated, v)
	}
	if v, ok := p.(OnVoteCast); ok {
		r.onVoteCast = append(r.onVoteCast, v)
	}
	if v, ok := p.(OnProposalClosed); ok {
		r.onProposalClosed = append(r.onProposalClosed, v)
	}
	if v, ok := p.(OnEnergyCaptured); ok {
		r.onEnergyCaptured = append(r.onEnergyCaptured, v)
	}
	if v, ok := p.(OnEnergyDistributed); ok {
		r.onEnergyDistributed = append(r.onEnergyDistributed, v)
	}
	if v, ok := p.(OnEnergyUsed); ok {
		r.onEnergyUsed = append(r.onEnergyUsed, v)
	}
	if v, ok := p.(OnOperationRejected); ok {
		r.onOperationRejected = append(r.onOperationRejected, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnPhaseAdded", reflect.TypeFor[OnPhaseAdded]()},
	{"OnPhaseStatusChanged", reflect.TypeFor[OnPhaseStatusChanged]()},
	{"OnResourceAllocated", reflect.TypeFor[OnResourceAllocated]()},
	{"OnResourceUsed", reflect.TypeFor[OnResourceUsed]()},
	{"OnInvested", reflect.TypeFor[OnInvested]()},
	{"OnWithdrawn", reflect.TypeFor[OnWithdrawn]()},
	{"OnProposalCreated", reflect.TypeFor[OnProposalCreated]()},
	{"OnVoteCast", reflect.TypeFor[OnVoteCast]()},
	{"OnProposalClosed", reflect.TypeFor[OnProposalClosed]()},
	{"OnEnergyCaptured", reflect.TypeFor[OnEnergyCaptured]()},
	{"OnEnergyDistributed", reflect.TypeFor[OnEnergyDistributed]()},
	{"OnEnergyUsed", reflect.TypeFor[OnEnergyUsed]()},
	{"OnOperationRejected", reflect.TypeFor[OnOperationRejected]()},
}

// implementedInterfaces returns the hook interfaces implemented by the plugin.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			interfaces = append(interfaces, h.name)
		}
	}
	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnInit", p.Name(), func() error { return p.OnInit(ctx, engine) })
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnShutdown", p.Name(), func() error { return p.OnShutdown(ctx) })
	}
}

// EmitPhaseAdded emits a phase added event.
func (r *Registry) EmitPhaseAdded(ctx context.Context, caller types.Principal, phase *construction.Phase) {
	r.mu.RLock()
	plugins := r.onPhaseAdded
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnPhaseAdded", p.Name(), func() error { return p.OnPhaseAdded(ctx, caller, phase) })
	}
}

// EmitPhaseStatusChanged emits a phase status change event.
func (r *Registry) EmitPhaseStatusChanged(ctx context.Context, caller types.Principal, phase *construction.Phase, from construction.PhaseStatus) {
	r.mu.RLock()
	plugins := r.onPhaseStatusChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnPhaseStatusChanged", p.Name(), func() error {
			return p.OnPhaseStatusChanged(ctx, caller, phase, from)
		})
	}
}

// EmitResourceAllocated emits a resource allocated event.
func (r *Registry) EmitResourceAllocated(ctx context.Context, caller types.Principal, res *construction.ResourceAllocation, amount uint64) {
	r.mu.RLock()
	plugins := r.onResourceAllocated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnResourceAllocated", p.Name(), func() error {
			return p.OnResourceAllocated(ctx, caller, res, amount)
		})
	}
}

// EmitResourceUsed emits a resource used event.
func (r *Registry) EmitResourceUsed(ctx context.Context, caller types.Principal, res *construction.ResourceAllocation, amount uint64) {
	r.mu.RLock()
	plugins := r.onResourceUsed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnResourceUsed", p.Name(), func() error {
			return p.OnResourceUsed(ctx, caller, res, amount)
		})
	}
}

// EmitInvested emits an investment event.
func (r *Registry) EmitInvested(ctx context.Context, inv *investment.Investment, amount, total uint64) {
	r.mu.RLock()
	plugins := r.onInvested
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnInvested", p.Name(), func() error { return p.OnInvested(ctx, inv, amount, total) })
	}
}

// EmitWithdrawn emits a withdrawal event.
func (r *Registry) EmitWithdrawn(ctx context.Context, inv *investment.Investment, amount, total uint64) {
	r.mu.RLock()
	plugins := r.onWithdrawn
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnWithdrawn", p.Name(), func() error { return p.OnWithdrawn(ctx, inv, amount, total) })
	}
}

// EmitProposalCreated emits a proposal created event.
func (r *Registry) EmitProposalCreated(ctx context.Context, proposal *governance.Proposal) {
	r.mu.RLock()
	plugins := r.onProposalCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnProposalCreated", p.Name(), func() error { return p.OnProposalCreated(ctx, proposal) })
	}
}

// EmitVoteCast emits a vote cast event.
func (r *Registry) EmitVoteCast(ctx context.Context, proposal *governance.Proposal, vote *governance.Vote) {
	r.mu.RLock()
	plugins := r.onVoteCast
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnVoteCast", p.Name(), func() error { return p.OnVoteCast(ctx, proposal, vote) })
	}
}

// EmitProposalClosed emits a proposal closed event.
func (r *Registry) EmitProposalClosed(ctx context.Context, caller types.Principal, proposal *governance.Proposal) {
	r.mu.RLock()
	plugins := r.onProposalClosed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnProposalClosed", p.Name(), func() error { return p.OnProposalClosed(ctx, caller, proposal) })
	}
}

// EmitEnergyCaptured emits an energy captured event.
func (r *Registry) EmitEnergyCaptured(ctx context.Context, caller types.Principal, stats energy.Stats, amount uint64) {
	r.mu.RLock()
	plugins := r.onEnergyCaptured
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnEnergyCaptured", p.Name(), func() error {
			return p.OnEnergyCaptured(ctx, caller, stats, amount)
		})
	}
}

// EmitEnergyDistributed emits an energy distributed event.
func (r *Registry) EmitEnergyDistributed(ctx context.Context, caller types.Principal, sector *energy.SectorEnergy, stats energy.Stats, amount uint64) {
	r.mu.RLock()
	plugins := r.onEnergyDistributed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnEnergyDistributed", p.Name(), func() error {
			return p.OnEnergyDistributed(ctx, caller, sector, stats, amount)
		})
	}
}

// EmitEnergyUsed emits an energy used event.
func (r *Registry) EmitEnergyUsed(ctx context.Context, caller types.Principal, sector *energy.SectorEnergy, amount uint64) {
	r.mu.RLock()
	plugins := r.onEnergyUsed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnEnergyUsed", p.Name(), func() error {
			return p.OnEnergyUsed(ctx, caller, sector, amount)
		})
	}
}

// EmitOperationRejected emits a rejected operation event.
func (r *Registry) EmitOperationRejected(ctx context.Context, module, operation string, caller types.Principal, opErr error) {
	r.mu.RLock()
	plugins := r.onOperationRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		r.call(ctx, "OnOperationRejected", p.Name(), func() error {
			return p.OnOperationRejected(ctx, module, operation, caller, opErr)
		})
	}
}

func (r *Registry) call(ctx context.Context, hook, pluginName string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("plugin panic: %s: %v", pluginName, rec)
			}
		}()
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
