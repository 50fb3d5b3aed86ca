// Package extension provides the Forge extension adapter for the audit
// ledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.auditledger" or
// "auditledger" keys.
package extension

import (
	"context"
	"errors"
	"net/http"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/auditledger"
	"github.com/xraph/auditledger/api"
	"github.com/xraph/auditledger/store"
	"github.com/xraph/auditledger/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "auditledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Paid AI security-audit ledger with re-audit entitlements"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the audit ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *auditledger.Ledger
	store      store.Store
	groveDB    *grove.DB
	ledgerOpts []auditledger.Option
	handler    http.Handler
}

// New creates a new audit ledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *auditledger.Ledger { return e.engine }

// Handler returns the HTTP API for mounting under Config.BasePath.
// It is nil until Register is called, and stays nil with DisableRoutes.
func (e *Extension) Handler() http.Handler { return e.handler }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.resolveStore(); err != nil {
		return err
	}

	eng := auditledger.New(e.store, e.buildLedgerOpts()...)
	e.engine = eng

	if !e.config.DisableRoutes {
		srv := api.New(eng, api.WithAdmins(auditledger.NewAdminSet(e.config.Admins...)))
		e.handler = http.StripPrefix(e.config.BasePath, srv.Routes())
	}

	return vessel.Provide(fapp.Container(), func() (*auditledger.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("auditledger: extension not initialized")
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
		return errors.New("auditledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// resolveStore picks the programmatic store, then a grove database, then
// the in-memory store.
func (e *Extension) resolveStore() error {
	if e.store != nil {
		return nil
	}
	if e.groveDB != nil {
		s, err := groveStore(e.groveDB, e.config.GroveDriver, e.config.SnapshotKey)
		if err != nil {
			return err
		}
		e.store = s
		return nil
	}
	e.store = memory.New()
	return nil
}

// buildLedgerOpts constructs auditledger.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []auditledger.Option {
	opts := make([]auditledger.Option, 0, len(e.ledgerOpts)+2)

	if e.config.RateRefreshInterval > 0 {
		opts = append(opts, auditledger.WithRateRefreshInterval(e.config.RateRefreshInterval))
	}
	if e.config.Recipient != "" {
		opts = append(opts, auditledger.WithRecipient(e.config.Recipient))
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("auditledger: configuration is required but not found in config files; " +
				"ensure 'extensions.auditledger' or 'auditledger' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("auditledger: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("rate_refresh_interval", e.config.RateRefreshInterval),
		forge.F("admins", len(e.config.Admins)),
		forge.F("grove_driver", e.config.GroveDriver),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.auditledger" first (namespaced pattern).
	if cm.IsSet("extensions.auditledger") {
		if err := cm.Bind("extensions.auditledger", &cfg); err == nil {
			e.Logger().Debug("auditledger: loaded config from file",
				forge.F("key", "extensions.auditledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("auditledger: failed to bind extensions.auditledger config",
			forge.F("error", "bind failed"),
		)
	}

	// Try bare "auditledger" key.
	if cm.IsSet("auditledger") {
		if err := cm.Bind("auditledger", &cfg); err == nil {
			e.Logger().Debug("auditledger: loaded config from file",
				forge.F("key", "auditledger"),
			)
			return cfg, true
		}
		e.Logger().Warn("auditledger: failed to bind auditledger config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.RateRefreshInterval == 0 {
		cfg.RateRefreshInterval = defaults.RateRefreshInterval
	}
	if cfg.SnapshotKey == "" {
		cfg.SnapshotKey = defaults.SnapshotKey
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.BasePath == "" && programmaticConfig.BasePath != "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.Recipient == "" && programmaticConfig.Recipient != "" {
		yamlConfig.Recipient = programmaticConfig.Recipient
	}
	if yamlConfig.SnapshotKey == "" && programmaticConfig.SnapshotKey != "" {
		yamlConfig.SnapshotKey = programmaticConfig.SnapshotKey
	}
	if yamlConfig.GroveDriver == "" && programmaticConfig.GroveDriver != "" {
		yamlConfig.GroveDriver = programmaticConfig.GroveDriver
	}
	if len(yamlConfig.Admins) == 0 {
		yamlConfig.Admins = programmaticConfig.Admins
	}

	// Duration fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.RateRefreshInterval == 0 && programmaticConfig.RateRefreshInterval != 0 {
		yamlConfig.RateRefreshInterval = programmaticConfig.RateRefreshInterval
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
