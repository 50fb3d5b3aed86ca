package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/auditledger"
	"github.com/xraph/auditledger/plugin"
	"github.com/xraph/auditledger/store"
)

// Option configures the audit ledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes an auditledger.Option through to the underlying engine.
func WithLedgerOption(opt auditledger.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, auditledger.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents HTTP handler construction.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for ledger routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithRateRefreshInterval sets how often the exchange rate is refreshed.
func WithRateRefreshInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.RateRefreshInterval = d }
}

// WithRecipient sets the payment recipient.
func WithRecipient(addr string) Option {
	return func(e *Extension) { e.config.Recipient = addr }
}

// WithAdmins sets the administrator addresses.
func WithAdmins(addrs ...string) Option {
	return func(e *Extension) { e.config.Admins = addrs }
}

// WithGroveDatabase backs the ledger with db. The extension constructs
// the postgres, sqlite or mongo store named by driver.
func WithGroveDatabase(db *grove.DB, driver string) Option {
	return func(e *Extension) {
		e.groveDB = db
		e.config.GroveDriver = driver
	}
}
