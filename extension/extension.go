// Package extension provides the Forge extension adapter for till.
//
// It implements the forge.Extension interface to integrate till
// into a Forge application with DI registration of the engine and its
// summary view, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.till" or "till" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/till"
	"github.com/xraph/till/clock"
	"github.com/xraph/till/store"
	"github.com/xraph/till/store/memory"
	"github.com/xraph/till/store/postgres"
	"github.com/xraph/till/store/sqlite"
	"github.com/xraph/till/summary"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "till"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Point-of-sale ledger for pop-up retail events"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts till as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config   Config
	engine   *till.Till
	summary  *summary.Engine
	store    store.Store
	db       *grove.DB
	tillOpts []till.Option
}

// New creates a new till Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Till instance.
// This is nil until Register is called.
func (e *Extension) Engine() *till.Till { return e.engine }

// Summary returns the summary engine bound to the till.
// This is nil until Register is called.
func (e *Extension) Summary() *summary.Engine { return e.summary }

// Register implements [forge.Extension]. It loads configuration,
// initializes the till engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.init(); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*till.Till, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}
	return vessel.Provide(fapp.Container(), func() (*summary.Engine, error) {
		return e.summary, nil
	})
}

// init builds the store, the till and the summary engine from the
// resolved config.
func (e *Extension) init() error {
	if e.store == nil {
		s, err := buildStore(e.config.Backend, e.db)
		if err != nil {
			return err
		}
		e.store = s
	}

	opts, err := e.buildTillOpts()
	if err != nil {
		return err
	}

	e.engine = till.New(e.store, opts...)
	e.summary = summary.NewEngine(e.engine)
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("till: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
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
		return errors.New("till: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildStore constructs the store for backend around db.
func buildStore(backend Backend, db *grove.DB) (store.Store, error) {
	switch backend {
	case "", BackendMemory:
		return memory.New(), nil
	case BackendSQLite, BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("till: backend %q needs a grove database; use WithGroveDB", backend)
		}
		if backend == BackendSQLite {
			return sqlite.New(db), nil
		}
		return postgres.New(db), nil
	default:
		return nil, fmt.Errorf("till: unknown backend %q", backend)
	}
}

// buildTillOpts constructs till.Option values from the resolved config.
func (e *Extension) buildTillOpts() ([]till.Option, error) {
	opts := make([]till.Option, 0, len(e.tillOpts)+6)

	if e.config.TimeZone != "" {
		loc, err := loadLocation(e.config.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("till: time_zone: %w", err)
		}
		opts = append(opts, till.WithLocation(loc))
	}
	if e.config.Currency != "" {
		opts = append(opts, till.WithCurrency(e.config.Currency))
	}
	if e.config.RecentSalesLimit > 0 {
		opts = append(opts, till.WithRecentSalesLimit(e.config.RecentSalesLimit))
	}
	if e.config.PluginTimeout > 0 {
		opts = append(opts, till.WithPluginTimeout(e.config.PluginTimeout))
	}
	opts = append(opts, till.WithRestockOnCancel(e.config.RestockOnCancel))
	if e.config.DisableMigrate {
		opts = append(opts, till.WithoutMigrate())
	}

	// Append any pass-through till options.
	opts = append(opts, e.tillOpts...)

	return opts, nil
}

// loadLocation resolves a zone name. Tokyo time needs no tzdata.
func loadLocation(name string) (*time.Location, error) {
	switch strings.ToLower(name) {
	case "asia/tokyo", "jst":
		return clock.JST, nil
	case "utc":
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("till: configuration is required but not found in config files; " +
				"ensure 'extensions.till' or 'till' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("till: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("backend", string(e.config.Backend)),
		forge.F("currency", e.config.Currency),
		forge.F("time_zone", e.config.TimeZone),
		forge.F("recent_sales_limit", e.config.RecentSalesLimit),
		forge.F("restock_on_cancel", e.config.RestockOnCancel),
		forge.F("plugin_timeout", e.config.PluginTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.till" first (namespaced pattern).
	if cm.IsSet("extensions.till") {
		if err := cm.Bind("extensions.till", &cfg); err == nil {
			e.Logger().Debug("till: loaded config from file",
				forge.F("key", "extensions.till"),
			)
			return cfg, true
		}
		e.Logger().Warn("till: failed to bind extensions.till config",
			forge.F("error", "bind failed"),
		)
	}

	// Try short "till" key.
	if cm.IsSet("till") {
		if err := cm.Bind("till", &cfg); err == nil {
			e.Logger().Debug("till: loaded config from file",
				forge.F("key", "till"),
			)
			return cfg, true
		}
		e.Logger().Warn("till: failed to bind till config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Backend == "" {
		cfg.Backend = defaults.Backend
	}
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = defaults.TimeZone
	}
	if cfg.RecentSalesLimit == 0 {
		cfg.RecentSalesLimit = defaults.RecentSalesLimit
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.RestockOnCancel {
		yamlConfig.RestockOnCancel = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Backend == "" && programmaticConfig.Backend != "" {
		yamlConfig.Backend = programmaticConfig.Backend
	}
	if yamlConfig.Currency == "" && programmaticConfig.Currency != "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}
	if yamlConfig.TimeZone == "" && programmaticConfig.TimeZone != "" {
		yamlConfig.TimeZone = programmaticConfig.TimeZone
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.RecentSalesLimit == 0 && programmaticConfig.RecentSalesLimit != 0 {
		yamlConfig.RecentSalesLimit = programmaticConfig.RecentSalesLimit
	}
	if yamlConfig.PluginTimeout == 0 && programmaticConfig.PluginTimeout != 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
