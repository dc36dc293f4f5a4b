package extension

import (
	"time"

	"github.com/xraph/dyson"
	"github.com/xraph/dyson/plugin"
	"github.com/xraph/dyson/store"
)

// Option configures the Dyson Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine, bypassing the configured driver.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a dyson.Option through to the underlying engine.
func WithEngineOption(opt dyson.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a Dyson plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, dyson.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithDriver selects the store backend and its DSN.
func WithDriver(driver, dsn string) Option {
	return func(e *Extension) {
		e.config.Driver = driver
		e.config.DSN = dsn
	}
}

// WithDatabase sets the mongo database name.
func WithDatabase(name string) Option {
	return func(e *Extension) { e.config.Database = name }
}

// WithMinInvestment sets the minimum accepted investment.
func WithMinInvestment(amount uint64) Option {
	return func(e *Extension) { e.config.MinInvestment = &amount }
}

// WithPhaseStatuses sets the accepted construction phase statuses.
func WithPhaseStatuses(statuses ...string) Option {
	return func(e *Extension) { e.config.PhaseStatuses = statuses }
}

// WithCloseRequiresProposer restricts closing a proposal to its proposer.
func WithCloseRequiresProposer() Option {
	return func(e *Extension) { e.config.CloseRequiresProposer = true }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
