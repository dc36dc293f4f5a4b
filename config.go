package dyson

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/xraph/dyson/construction"
	"github.com/xraph/dyson/plugin"
)

// DefaultMinInvestment is the smallest accepted investment.
const DefaultMinInvestment uint64 = 1000

// Config holds the tunable rules of an Engine.
type Config struct {
	// MinInvestment is the smallest amount Invest accepts.
	MinInvestment uint64 `env:"MIN_INVESTMENT" json:"min_investment" yaml:"min_investment"`

	// PhaseStatuses is the accepted phase status vocabulary. The first entry
	// is assigned to new phases.
	PhaseStatuses []construction.PhaseStatus `env:"PHASE_STATUSES" envSeparator:"," json:"phase_statuses" yaml:"phase_statuses"`

	// CloseRequiresProposer restricts CloseProposal to the proposal's author.
	CloseRequiresProposer bool `env:"CLOSE_REQUIRES_PROPOSER" json:"close_requires_proposer" yaml:"close_requires_proposer"`

	// PluginTimeout bounds every plugin hook call.
	PluginTimeout time.Duration `env:"PLUGIN_TIMEOUT" json:"plugin_timeout" yaml:"plugin_timeout"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		MinInvestment: DefaultMinInvestment,
		PhaseStatuses: construction.DefaultStatuses(),
		PluginTimeout: plugin.DefaultTimeout,
	}
}

// ConfigFromEnv returns DefaultConfig overlaid with DYSON_* environment
// variables, for example DYSON_MIN_INVESTMENT=5000 or
// DYSON_PHASE_STATUSES=planned,active,done.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	opts := env.Options{
		Prefix: "DYSON_",
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(construction.PhaseStatus("")): func(v string) (any, error) {
				return construction.PhaseStatus(strings.TrimSpace(v)), nil
			},
		},
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first problem with the configuration.
func (c Config) Validate() error {
	if len(c.PhaseStatuses) == 0 {
		return ValidationError{Field: "phase_statuses", Message: "at least one status is required"}
	}
	seen := make(map[construction.PhaseStatus]struct{}, len(c.PhaseStatuses))
	for _, s := range c.PhaseStatuses {
		if strings.TrimSpace(string(s)) == "" {
			return ValidationError{Field: "phase_statuses", Message: "status must not be empty"}
		}
		if _, dup := seen[s]; dup {
			return ValidationError{Field: "phase_statuses", Message: fmt.Sprintf("duplicate status %q", s)}
		}
		seen[s] = struct{}{}
	}
	if c.PluginTimeout < 0 {
		return ValidationError{Field: "plugin_timeout", Message: "must not be negative"}
	}
	return nil
}

// InitialStatus is the status assigned to new phases.
func (c Config) InitialStatus() construction.PhaseStatus {
	if len(c.PhaseStatuses) == 0 {
		return construction.StatusPlanned
	}
	return c.PhaseStatuses[0]
}

// AcceptsStatus reports whether s is in the configured vocabulary.
func (c Config) AcceptsStatus(s construction.PhaseStatus) bool {
	return slices.Contains(c.PhaseStatuses, s)
}
