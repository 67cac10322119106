package extension

import "time"

// Backend names a store implementation the extension can build.
type Backend string

// Supported backends.
const (
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Config holds the till extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.till" or "till" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Backend selects the store built around a grove.DB passed with
	// WithGroveDB (default: "memory" when no DB is given).
	Backend Backend `json:"backend" mapstructure:"backend" yaml:"backend"`

	// Currency is the ISO 4217 code used to render amounts (default: "jpy").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// TimeZone is the IANA zone sale timestamps are recorded in
	// (default: "Asia/Tokyo").
	TimeZone string `json:"time_zone" mapstructure:"time_zone" yaml:"time_zone"`

	// RecentSalesLimit bounds the sales history list (default: 20).
	RecentSalesLimit int `json:"recent_sales_limit" mapstructure:"recent_sales_limit" yaml:"recent_sales_limit"`

	// RestockOnCancel returns a cancelled sale's quantity to stock.
	RestockOnCancel bool `json:"restock_on_cancel" mapstructure:"restock_on_cancel" yaml:"restock_on_cancel"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:          BackendMemory,
		Currency:         "jpy",
		TimeZone:         "Asia/Tokyo",
		RecentSalesLimit: 20,
		PluginTimeout:    5 * time.Second,
	}
}
