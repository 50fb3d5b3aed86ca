package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":8080" || cfg.Store.Driver != StoreFile || cfg.Analysis.APIKey != "k" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := writeFile(t, "auditd.yaml", `
listen: ":9000"
admins: ["0xAAA"]
store:
  driver: memory
analysis:
  provider: remote
  base_url: http://proxy
rates:
  fixed_usd: "600"
`)
	t.Setenv("AUDITD_LISTEN", ":9100")
	t.Setenv("AUDITD_ADMINS", "0xBBB, 0xCCC")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9100" {
		t.Errorf("listen = %q, env should win", cfg.Listen)
	}
	if cfg.Store.Driver != StoreMemory || cfg.Analysis.BaseURL != "http://proxy" || cfg.Rates.FixedUSD != "600" {
		t.Errorf("yaml not applied: %+v", cfg)
	}
	if len(cfg.Admins) != 2 || cfg.Admins[1] != "0xCCC" {
		t.Errorf("admins = %v", cfg.Admins)
	}
}

func TestLoadEnvFile(t *testing.T) {
	env := writeFile(t, ".env", "API_KEY=from-dotenv\n")
	t.Setenv("API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	os.Unsetenv("API_KEY")

	cfg, err := Load("", env, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Analysis.APIKey != "from-dotenv" {
		t.Errorf("api key = %q", cfg.Analysis.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.Store.Driver = "etcd" }},
		{"redis without addr", func(c *Config) { c.Store.Driver = StoreRedis }},
		{"lock without redis", func(c *Config) { c.Store.Lock = true }},
		{"gemini without key", func(c *Config) { c.Analysis.APIKey = "" }},
		{"remote without url", func(c *Config) { c.Analysis.Provider = ProviderRemote }},
		{"bad duration", func(c *Config) { c.Payment.ConfirmTimeout = "soon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Analysis.APIKey = "k"
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	path := filepath.Join(t.TempDir(), "nested", "auditd.yaml")
	cfg := Default()
	cfg.Analysis.APIKey = "saved"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Analysis.APIKey != "saved" {
		t.Errorf("api key = %q", got.Analysis.APIKey)
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("90s", time.Second); got != 90*time.Second {
		t.Errorf("got %s", got)
	}
	if got := Duration("", time.Second); got != time.Second {
		t.Errorf("fallback = %s", got)
	}
}
