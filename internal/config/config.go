// Package config loads the auditd configuration from YAML, a .env file
// and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers supported by auditd.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Analysis providers supported by auditd.
const (
	ProviderGemini = "gemini"
	ProviderRemote = "remote"
)

// Config is the auditd configuration.
type Config struct {
	Listen   string         `yaml:"listen"`
	Admins   []string       `yaml:"admins"`
	Logging  LoggingConfig  `yaml:"logging"`
	Store    StoreConfig    `yaml:"store"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Payment  PaymentConfig  `yaml:"payment"`
	Rates    RatesConfig    `yaml:"rates"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// StoreConfig selects the ledger backend.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	// Path is the snapshot file for the file driver.
	Path string `yaml:"path"`
	// Key names the snapshot entry (default: fito_all_audits).
	Key string `yaml:"key"`
	// RedisAddr is the address for the redis driver.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	// Lock enables the cross-process ledger lock (redis only).
	Lock    bool   `yaml:"lock"`
	LockTTL string `yaml:"lock_ttl"`
}

// AnalysisConfig selects the model boundary.
type AnalysisConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	// BaseURL overrides the Gemini endpoint, or points at the remote proxy.
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
	// Proxy serves POST /api/audit from this process.
	Proxy bool `yaml:"proxy"`
}

// PaymentConfig configures the EVM payer.
type PaymentConfig struct {
	RPCURL         string `yaml:"rpc_url"`
	Recipient      string `yaml:"recipient"`
	ConfirmTimeout string `yaml:"confirm_timeout"`
	PollInterval   string `yaml:"poll_interval"`
}

// RatesConfig configures the exchange-rate feed. FixedUSD pins the rate
// and disables fetching.
type RatesConfig struct {
	CoinID          string `yaml:"coin_id"`
	URL             string `yaml:"url"`
	RefreshInterval string `yaml:"refresh_interval"`
	FixedUSD        string `yaml:"fixed_usd"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Driver:  StoreFile,
			Path:    "data/audits.json",
			LockTTL: "30s",
		},
		Analysis: AnalysisConfig{
			Provider:    ProviderGemini,
			Model:       "gemini-2.5-flash",
			Temperature: 0.2,
			Timeout:     "120s",
		},
		Payment: PaymentConfig{
			RPCURL:         "http://localhost:8545",
			Recipient:      "0x51EA5875D6b7E3B517ddA9fbC1B4FE61d566BF98",
			ConfirmTimeout: "3m",
			PollInterval:   "2s",
		},
		Rates: RatesConfig{
			CoinID:          "binancecoin",
			RefreshInterval: "5m",
		},
	}
}

// Load reads path (a missing file yields defaults), then the .env files
// that exist, then environment overrides.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("config: load env: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}

	set(&c.Listen, "AUDITD_LISTEN")
	set(&c.Logging.Level, "AUDITD_LOG_LEVEL")
	set(&c.Logging.Format, "AUDITD_LOG_FORMAT")

	set(&c.Store.Driver, "AUDITD_STORE")
	set(&c.Store.Path, "AUDITD_STORE_PATH")
	set(&c.Store.Key, "AUDITD_STORE_KEY")
	set(&c.Store.RedisAddr, "REDIS_ADDRESS")
	set(&c.Store.RedisPassword, "REDIS_PASSWORD")

	set(&c.Analysis.Provider, "AUDITD_ANALYSIS_PROVIDER")
	set(&c.Analysis.APIKey, "GEMINI_API_KEY", "API_KEY")
	set(&c.Analysis.Model, "AUDITD_ANALYSIS_MODEL")
	set(&c.Analysis.BaseURL, "AUDITD_ANALYSIS_URL")

	set(&c.Payment.RPCURL, "AUDITD_RPC_URL")
	set(&c.Payment.Recipient, "AUDITD_RECIPIENT")

	set(&c.Rates.FixedUSD, "AUDITD_FIXED_RATE_USD")

	if v := strings.TrimSpace(os.Getenv("AUDITD_ADMINS")); v != "" {
		c.Admins = nil
		for _, a := range strings.Split(v, ",") {
			if a = strings.TrimSpace(a); a != "" {
				c.Admins = append(c.Admins, a)
			}
		}
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StoreFile:
		if c.Store.Path == "" {
			return errors.New("config: store.path is required for the file store")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return errors.New("config: store.redis_addr is required for the redis store")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Lock && c.Store.Driver != StoreRedis {
		return errors.New("config: store.lock requires the redis store")
	}

	switch c.Analysis.Provider {
	case ProviderGemini:
		if c.Analysis.APIKey == "" {
			return errors.New("config: analysis API key not configured (set GEMINI_API_KEY)")
		}
	case ProviderRemote:
		if c.Analysis.BaseURL == "" {
			return errors.New("config: analysis.base_url is required for the remote provider")
		}
	default:
		return fmt.Errorf("config: unknown analysis provider %q", c.Analysis.Provider)
	}

	for name, v := range map[string]string{
		"store.lock_ttl":          c.Store.LockTTL,
		"analysis.timeout":        c.Analysis.Timeout,
		"payment.confirm_timeout": c.Payment.ConfirmTimeout,
		"payment.poll_interval":   c.Payment.PollInterval,
		"rates.refresh_interval":  c.Rates.RefreshInterval,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Duration parses a validated duration string, falling back to def.
func Duration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
