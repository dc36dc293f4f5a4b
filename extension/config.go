package extension

import "time"

// Store drivers understood by the extension.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds the Dyson extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.dyson" or "dyson" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Driver selects the store backend: memory, sqlite, postgres or mongo
	// (default: memory). Ignored when a store is passed with WithStore.
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// DSN is the sqlite file path, the postgres connection string or the
	// mongo URI.
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`

	// Database is the mongo database name (default: "dyson").
	Database string `json:"database" mapstructure:"database" yaml:"database"`

	// MinInvestment is the smallest accepted investment (default: 1000).
	// An explicit 0 accepts any amount.
	MinInvestment *uint64 `json:"min_investment,omitempty" mapstructure:"min_investment" yaml:"min_investment,omitempty"`

	// PhaseStatuses is the accepted construction phase status set. The
	// first entry is the status new phases start in.
	PhaseStatuses []string `json:"phase_statuses" mapstructure:"phase_statuses" yaml:"phase_statuses"`

	// CloseRequiresProposer restricts closing a proposal to its proposer.
	CloseRequiresProposer bool `json:"close_requires_proposer" mapstructure:"close_requires_proposer" yaml:"close_requires_proposer"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:        DriverMemory,
		Database:      "dyson",
		MinInvestment: ptr(uint64(1000)),
		PluginTimeout: 5 * time.Second,
	}
}

func ptr[T any](v T) *T { return &v }
