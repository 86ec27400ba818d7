package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/evanofslack/dnsctl/internal/provider"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
log:
  level: debug
dns:
  provider: joker
  domain: example.com
  authUsername: user
  authPassword: secret
  ttl: 600
  timeout: 5s
reconcile:
  prune: true
  protectedRecords:
    - example.com
cassette:
  mode: replay
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.DNS.Provider != "joker" || cfg.DNS.Domain != "example.com" || cfg.DNS.TTL != 600 {
		t.Errorf("unexpected dns section %+v", cfg.DNS)
	}
	if cfg.DNS.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.DNS.Timeout)
	}
	if !cfg.Reconcile.Prune || len(cfg.Reconcile.ProtectedRecords) != 1 {
		t.Errorf("unexpected reconcile section %+v", cfg.Reconcile)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Env != defaultLogEnv {
		t.Errorf("unexpected log section %+v", cfg.Log)
	}
	if cfg.Cassette.Mode != CassetteReplay || cfg.Cassette.Path != defaultCassettePath || len(cfg.Cassette.Secrets) != len(defaultSecrets) {
		t.Errorf("unexpected cassette section %+v", cfg.Cassette)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}

	opts := cfg.ProviderOptions()
	if opts.AuthUsername != "user" || opts.AuthPassword != "secret" || opts.Timeout != 5*time.Second {
		t.Errorf("unexpected provider options")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.DNS.Timeout != defaultTimeout || cfg.Trace.Exporter != defaultTraceExport || cfg.Cassette.Mode != CassetteOff {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("dns: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DNSCTL_PROVIDER":          "cloudflare",
		"DNSCTL_DOMAIN":            "example.org",
		"DNSCTL_AUTH_TOKEN":        "tok",
		"DNSCTL_TTL":               "120",
		"DNSCTL_TIMEOUT":           "10s",
		"DNSCTL_DRYRUN":            "true",
		"DNSCTL_PROTECTED_RECORDS": "a.example.org, b.example.org,",
		"DNSCTL_CASSETTE_SECRETS":  "password",
	}
	cfg := Config{DNS: DNS{Provider: "joker", TTL: 300}}
	cfg.applyEnv(func(k string) string { return env[k] })

	if cfg.DNS.Provider != "cloudflare" || cfg.DNS.Domain != "example.org" || cfg.DNS.AuthToken != "tok" {
		t.Errorf("unexpected dns section %+v", cfg.DNS)
	}
	if cfg.DNS.TTL != 120 || cfg.DNS.Timeout != 10*time.Second {
		t.Errorf("numeric overrides not applied: %+v", cfg.DNS)
	}
	if !cfg.Reconcile.DryRun {
		t.Error("expected dry run")
	}
	if len(cfg.Reconcile.ProtectedRecords) != 2 || cfg.Reconcile.ProtectedRecords[1] != "b.example.org" {
		t.Errorf("unexpected protected records %v", cfg.Reconcile.ProtectedRecords)
	}
	if len(cfg.Cassette.Secrets) != 1 {
		t.Errorf("unexpected secrets %v", cfg.Cassette.Secrets)
	}
}

func TestApplyEnvIgnoresInvalidValues(t *testing.T) {
	env := map[string]string{"DNSCTL_TTL": "soon", "DNSCTL_DRYRUN": "maybe"}
	cfg := Config{DNS: DNS{TTL: 300}, Reconcile: Reconcile{DryRun: true}}
	cfg.applyEnv(func(k string) string { return env[k] })
	if cfg.DNS.TTL != 300 || !cfg.Reconcile.DryRun {
		t.Errorf("invalid values should be ignored: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Config{DNS: DNS{Provider: "joker", Domain: "example.com"}}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing provider", func(c *Config) { c.DNS.Provider = "" }},
		{"missing domain", func(c *Config) { c.DNS.Domain = "" }},
		{"negative ttl", func(c *Config) { c.DNS.TTL = -5 }},
		{"cassette mode", func(c *Config) { c.Cassette.Mode = "rewind" }},
		{"trace exporter", func(c *Config) { c.Trace.Exporter = "jaeger" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, provider.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() failed on valid config: %v", err)
	}
}
