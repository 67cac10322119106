package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/till"
	"github.com/xraph/till/plugin"
	"github.com/xraph/till/store"
)

// Option configures the till Forge extension.
type Option func(*Extension)

// WithStore sets the store for the till engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB builds the store from a grove database. The backend is taken
// from Config.Backend and must match the database's driver.
func WithGroveDB(db *grove.DB, backend Backend) Option {
	return func(e *Extension) {
		e.db = db
		e.config.Backend = backend
	}
}

// WithTillOption passes a till.Option through to the underlying engine.
func WithTillOption(opt till.Option) Option {
	return func(e *Extension) {
		e.tillOpts = append(e.tillOpts, opt)
	}
}

// WithPlugin registers a till plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.tillOpts = append(e.tillOpts, till.WithPlugin(p))
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

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithCurrency sets the display currency.
func WithCurrency(code string) Option {
	return func(e *Extension) { e.config.Currency = code }
}

// WithTimeZone sets the IANA zone sale timestamps are recorded in.
func WithTimeZone(name string) Option {
	return func(e *Extension) { e.config.TimeZone = name }
}

// WithRecentSalesLimit bounds the sales history list.
func WithRecentSalesLimit(n int) Option {
	return func(e *Extension) { e.config.RecentSalesLimit = n }
}

// WithRestockOnCancel returns cancelled quantities to stock.
func WithRestockOnCancel() Option {
	return func(e *Extension) { e.config.RestockOnCancel = true }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}
