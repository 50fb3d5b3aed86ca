package extension

import "time"

// Config holds the audit ledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.auditledger" or "auditledger" keys).
type Config struct {
	// DisableRoutes prevents HTTP handler construction.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix the host mounts Handler under (default: "/audits").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// RateRefreshInterval is how often the exchange rate is refreshed (default: 5m).
	RateRefreshInterval time.Duration `json:"rate_refresh_interval" mapstructure:"rate_refresh_interval" yaml:"rate_refresh_interval"`

	// Recipient receives every service payment (default: auditledger.DefaultRecipient).
	Recipient string `json:"recipient" mapstructure:"recipient" yaml:"recipient"`

	// Admins are the wallet addresses allowed to submit for free, see
	// private reports and delete reports.
	Admins []string `json:"admins" mapstructure:"admins" yaml:"admins"`

	// SnapshotKey names the persisted snapshot entry (default: "fito_all_audits").
	SnapshotKey string `json:"snapshot_key" mapstructure:"snapshot_key" yaml:"snapshot_key"`

	// GroveDriver selects the store built around a grove.DB passed with
	// WithGroveDatabase: "postgres", "sqlite" or "mongo".
	GroveDriver string `json:"grove_driver" mapstructure:"grove_driver" yaml:"grove_driver"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:            "/audits",
		RateRefreshInterval: 5 * time.Minute,
		SnapshotKey:         "fito_all_audits",
	}
}
