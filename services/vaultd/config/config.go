package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures runtime configuration for vaultd.
type Config struct {
	ListenAddress string          `yaml:"listen"`
	JournalPath   string          `yaml:"journal"`
	VaultConfig   string          `yaml:"vault_config"`
	Environment   string          `yaml:"environment"`
	LogLevel      string          `yaml:"log_level"`
	Keeper        KeeperConfig    `yaml:"keeper"`
	Admin         AdminConfig     `yaml:"admin"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
}

// KeeperConfig tunes the reward collection loop.
type KeeperConfig struct {
	Disabled bool `yaml:"disabled"`
	// Caller is the address the keeper collects as. Empty means the vault's
	// liquidations admin.
	Caller   string   `yaml:"caller"`
	Interval Duration `yaml:"interval"`
	// MaxAttemptsPerHour bounds collection attempts, successful or not.
	MaxAttemptsPerHour int `yaml:"max_attempts_per_hour"`
}

// AdminConfig guards the mutating endpoints.
type AdminConfig struct {
	BearerToken string `yaml:"bearer_token"`
}

// TelemetryConfig controls OTLP export.
type TelemetryConfig struct {
	Endpoint       string   `yaml:"endpoint"`
	Insecure       bool     `yaml:"insecure"`
	Traces         bool     `yaml:"traces"`
	Metrics        bool     `yaml:"metrics"`
	SampleRatio    float64  `yaml:"sample_ratio"`
	MetricInterval Duration `yaml:"metric_interval"`
}

// Load reads configuration from the supplied path.
func Load(path string) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":7090"
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = "./vault-data/journal.sqlite"
	}
	if cfg.VaultConfig == "" {
		cfg.VaultConfig = "./vault.toml"
	}
	if cfg.Keeper.Interval.Duration == 0 {
		cfg.Keeper.Interval.Duration = time.Minute
	}
	if cfg.Keeper.MaxAttemptsPerHour == 0 {
		cfg.Keeper.MaxAttemptsPerHour = 6
	}
	if cfg.Telemetry.MetricInterval.Duration == 0 {
		cfg.Telemetry.MetricInterval.Duration = 15 * time.Second
	}
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return fmt.Errorf("listen address required")
	}
	if cfg.Keeper.Interval.Duration < 0 {
		return fmt.Errorf("keeper interval must be positive")
	}
	if cfg.Keeper.MaxAttemptsPerHour < 0 {
		return fmt.Errorf("keeper max_attempts_per_hour must be positive")
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample_ratio must be within [0, 1]")
	}
	return nil
}
