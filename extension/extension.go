// Package extension provides the Forge extension adapter for Dyson.
//
// It implements the forge.Extension interface to integrate the Dyson engine
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.dyson" or "dyson" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/dyson"
	"github.com/xraph/dyson/store"
	"github.com/xraph/dyson/store/memory"
	mongostore "github.com/xraph/dyson/store/mongo"
	"github.com/xraph/dyson/store/postgres"
	"github.com/xraph/dyson/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "dyson"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Construction, investment, governance and energy ledgers"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Dyson as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *dyson.Engine
	store      store.Store
	engineOpts []dyson.Option
}

// New creates a new Dyson Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *dyson.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// opens the store, builds the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.init(context.Background()); err != nil {
		return err
	}

	return vessel.Provide(fapp.Container(), func() (*dyson.Engine, error) {
		return e.engine, nil
	})
}

// init opens the configured store (unless one was supplied) and builds
// the engine over it.
func (e *Extension) init(ctx context.Context) error {
	if e.store == nil {
		s, err := openStore(ctx, e.config)
		if err != nil {
			return err
		}
		e.store = s
	}

	eng, err := dyson.New(e.store, e.buildEngineOpts()...)
	if err != nil {
		return fmt.Errorf("dyson: build engine: %w", err)
	}
	e.engine = eng
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("dyson: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("dyson: store not initialized")
	}
	return e.store.Ping(ctx)
}

// openStore opens the backend named by cfg.Driver.
func openStore(ctx context.Context, cfg Config) (store.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", DriverMemory:
		return memory.New(), nil
	case DriverSQLite:
		return sqlite.Open(cfg.DSN)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, errors.New("dyson: postgres driver requires a dsn")
		}
		return postgres.Open(ctx, cfg.DSN)
	case DriverMongo:
		if cfg.DSN == "" {
			return nil, errors.New("dyson: mongo driver requires a dsn")
		}
		database := cfg.Database
		if database == "" {
			database = DefaultConfig().Database
		}
		return mongostore.Open(ctx, cfg.DSN, database)
	default:
		return nil, fmt.Errorf("dyson: unknown store driver %q", cfg.Driver)
	}
}

// buildEngineOpts constructs dyson.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []dyson.Option {
	opts := make([]dyson.Option, 0, len(e.engineOpts)+5)

	if e.config.MinInvestment != nil {
		opts = append(opts, dyson.WithMinInvestment(*e.config.MinInvestment))
	}
	if len(e.config.PhaseStatuses) > 0 {
		opts = append(opts, dyson.WithPhaseStatuses(e.config.PhaseStatuses...))
	}
	if e.config.CloseRequiresProposer {
		opts = append(opts, dyson.WithCloseRequiresProposer(true))
	}
	if e.config.PluginTimeout > 0 {
		opts = append(opts, dyson.WithPluginTimeout(e.config.PluginTimeout))
	}

	// Pass-through options win over config-derived ones.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("dyson: configuration is required but not found in config files; " +
				"ensure 'extensions.dyson' or 'dyson' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("dyson: configuration loaded",
		forge.F("driver", e.config.Driver),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("min_investment", minInvestment(e.config)),
		forge.F("phase_statuses", e.config.PhaseStatuses),
		forge.F("close_requires_proposer", e.config.CloseRequiresProposer),
		forge.F("plugin_timeout", e.config.PluginTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.dyson", "dyson"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("dyson: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("dyson: loaded config from file", forge.F("key", key))
		return cfg, true
	}

	return Config{}, false
}

func minInvestment(cfg Config) uint64 {
	if cfg.MinInvestment == nil {
		return 0
	}
	return *cfg.MinInvestment
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Driver == "" {
		cfg.Driver = defaults.Driver
	}
	if cfg.Database == "" {
		cfg.Database = defaults.Database
	}
	if cfg.MinInvestment == nil {
		cfg.MinInvestment = defaults.MinInvestment
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps and
// programmatic bool flags override when true.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.CloseRequiresProposer {
		yamlConfig.CloseRequiresProposer = true
	}

	if yamlConfig.Driver == "" {
		yamlConfig.Driver = programmaticConfig.Driver
	}
	if yamlConfig.DSN == "" {
		yamlConfig.DSN = programmaticConfig.DSN
	}
	if yamlConfig.Database == "" {
		yamlConfig.Database = programmaticConfig.Database
	}
	if yamlConfig.MinInvestment == nil {
		yamlConfig.MinInvestment = programmaticConfig.MinInvestment
	}
	if len(yamlConfig.PhaseStatuses) == 0 {
		yamlConfig.PhaseStatuses = programmaticConfig.PhaseStatuses
	}
	if yamlConfig.PluginTimeout == 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	return mergeWithDefaults(yamlConfig)
}
