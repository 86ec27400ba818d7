package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evanofslack/dnsctl/internal/provider"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultCassettePath = "dnsctl-cassette.db"
	defaultCassetteMode = CassetteOff
	defaultLogLevel     = "info"
	defaultLogEnv       = "prod"
	defaultTraceExport  = "none"

	envPrefix = "DNSCTL_"
)

const (
	CassetteOff    = "off"
	CassetteRecord = "record"
	CassetteReplay = "replay"
)

var defaultSecrets = []string{"username", "password", "Authorization", "token"}

type Config struct {
	Log       Log       `yaml:"log"`
	DNS       DNS       `yaml:"dns"`
	Reconcile Reconcile `yaml:"reconcile"`
	Metrics   Metrics   `yaml:"metrics"`
	Trace     Trace     `yaml:"trace"`
	Cassette  Cassette  `yaml:"cassette"`
}

type DNS struct {
	Provider     string        `yaml:"provider"`
	Domain       string        `yaml:"domain"`
	AuthUsername string        `yaml:"authUsername"`
	AuthPassword string        `yaml:"authPassword"`
	AuthToken    string        `yaml:"authToken"`
	Endpoint     string        `yaml:"endpoint"`
	TTL          int           `yaml:"ttl"`
	Timeout      time.Duration `yaml:"timeout"`
}

type Log struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

type Reconcile struct {
	DryRun           bool     `yaml:"dryRun"`
	Prune            bool     `yaml:"prune"`
	ProtectedRecords []string `yaml:"protectedRecords"`
}

type Metrics struct {
	Textfile string `yaml:"textfile"`
}

type Trace struct {
	Exporter string `yaml:"exporter"`
}

type Cassette struct {
	Path    string   `yaml:"path"`
	Mode    string   `yaml:"mode"`
	Secrets []string `yaml:"secrets"`
}

// Load reads path (a missing file is not an error), applies DNSCTL_*
// environment overrides and fills in defaults.
func Load(path string) (*Config, error) {
	configFile := path != ""
	if configFile {
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			slog.Default().Warn("fail find config file, proceeding", "path", path)
			configFile = false
		}
	}

	var cfg Config
	if configFile {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			f.Close()
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			slog.Default().Warn("fail close config file", "path", path, "error", err)
		}
	}

	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.DNS.Timeout == 0 {
		cfg.DNS.Timeout = defaultTimeout
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Log.Env == "" {
		cfg.Log.Env = defaultLogEnv
	}
	if cfg.Trace.Exporter == "" {
		cfg.Trace.Exporter = defaultTraceExport
	}
	if cfg.Cassette.Path == "" {
		cfg.Cassette.Path = defaultCassettePath
	}
	if cfg.Cassette.Mode == "" {
		cfg.Cassette.Mode = defaultCassetteMode
	}
	if len(cfg.Cassette.Secrets) == 0 {
		cfg.Cassette.Secrets = append([]string(nil), defaultSecrets...)
	}
}

// applyEnv overrides fields from the environment. getenv is os.Getenv outside
// of tests.
func (cfg *Config) applyEnv(getenv func(string) string) {
	env := func(key string) string { return getenv(envPrefix + key) }

	if v := env("PROVIDER"); v != "" {
		cfg.DNS.Provider = v
	}
	if v := env("DOMAIN"); v != "" {
		cfg.DNS.Domain = v
	}
	if v := env("AUTH_USERNAME"); v != "" {
		cfg.DNS.AuthUsername = v
	}
	if v := env("AUTH_PASSWORD"); v != "" {
		cfg.DNS.AuthPassword = v
	}
	if v := env("AUTH_TOKEN"); v != "" {
		cfg.DNS.AuthToken = v
	}
	if v := env("ENDPOINT"); v != "" {
		cfg.DNS.Endpoint = v
	}
	if v := env("TTL"); v != "" {
		if ttl, err := strconv.Atoi(v); err == nil {
			cfg.DNS.TTL = ttl
		} else {
			slog.Default().Warn("fail parse ttl to int from string", "ttl", v, "error", err)
		}
	}
	if v := env("TIMEOUT"); v != "" {
		if timeout, err := time.ParseDuration(v); err == nil {
			cfg.DNS.Timeout = timeout
		} else {
			slog.Default().Warn("fail parse timeout to duration from string", "timeout", v, "error", err)
		}
	}
	if v := env("DRYRUN"); v != "" {
		if dryRun, err := strconv.ParseBool(v); err == nil {
			cfg.Reconcile.DryRun = dryRun
		} else {
			slog.Default().Warn("fail parse dryrun to bool from string", "dryrun", v)
		}
	}
	if v := env("PRUNE"); v != "" {
		if prune, err := strconv.ParseBool(v); err == nil {
			cfg.Reconcile.Prune = prune
		} else {
			slog.Default().Warn("fail parse prune to bool from string", "prune", v)
		}
	}
	if v := env("PROTECTED_RECORDS"); v != "" {
		cfg.Reconcile.ProtectedRecords = splitList(v)
	}
	if v := env("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := env("LOG_ENV"); v != "" {
		cfg.Log.Env = v
	}
	if v := env("METRICS_TEXTFILE"); v != "" {
		cfg.Metrics.Textfile = v
	}
	if v := env("TRACE_EXPORTER"); v != "" {
		cfg.Trace.Exporter = v
	}
	if v := env("CASSETTE_PATH"); v != "" {
		cfg.Cassette.Path = v
	}
	if v := env("CASSETTE_MODE"); v != "" {
		cfg.Cassette.Mode = v
	}
	if v := env("CASSETTE_SECRETS"); v != "" {
		cfg.Cassette.Secrets = splitList(v)
	}
}

// Validate checks settings that do not depend on the chosen provider.
func (cfg *Config) Validate() error {
	if cfg.DNS.Provider == "" {
		return fmt.Errorf("%w: dns provider is required", provider.ErrConfiguration)
	}
	if cfg.DNS.Domain == "" {
		return fmt.Errorf("%w: domain is required", provider.ErrConfiguration)
	}
	if cfg.DNS.TTL < 0 {
		return fmt.Errorf("%w: ttl must be positive, got %d", provider.ErrConfiguration, cfg.DNS.TTL)
	}
	switch cfg.Cassette.Mode {
	case CassetteOff, CassetteRecord, CassetteReplay:
	default:
		return fmt.Errorf("%w: unknown cassette mode %q", provider.ErrConfiguration, cfg.Cassette.Mode)
	}
	switch cfg.Trace.Exporter {
	case "none", "console":
	default:
		return fmt.Errorf("%w: unknown trace exporter %q", provider.ErrConfiguration, cfg.Trace.Exporter)
	}
	return nil
}

// ProviderOptions converts the dns section to provider construction options.
func (cfg *Config) ProviderOptions() provider.Options {
	return provider.Options{
		Domain:       cfg.DNS.Domain,
		AuthUsername: cfg.DNS.AuthUsername,
		AuthPassword: cfg.DNS.AuthPassword,
		AuthToken:    cfg.DNS.AuthToken,
		Endpoint:     cfg.DNS.Endpoint,
		TTL:          cfg.DNS.TTL,
		Timeout:      cfg.DNS.Timeout,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
