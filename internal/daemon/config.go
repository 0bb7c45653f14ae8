// Package daemon manages the task list daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ppc-network/tasklist/internal/app/reward"
	"github.com/ppc-network/tasklist/internal/logx"
)

// Config holds all daemon configuration.
type Config struct {
	Node      NodeConfig      `toml:"node"`
	API       APIConfig       `toml:"api"`
	Economics EconomicsConfig `toml:"economics"`
	Reward    RewardConfig    `toml:"reward"`
	Records   RecordsConfig   `toml:"records"`
	Health    HealthConfig    `toml:"health"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// NodeConfig identifies this node.
type NodeConfig struct {
	ID string `toml:"id"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// EconomicsConfig holds the payout parameters.
type EconomicsConfig struct {
	SalaryRate int64 `toml:"salary_rate"`
}

// RewardConfig selects the reward token and its scaling.
// An empty Endpoint keeps the token in a local database.
type RewardConfig struct {
	Scaling    string `toml:"scaling"`
	PPCPerUnit int64  `toml:"ppc_per_unit"`
	Endpoint   string `toml:"endpoint"`
	Minter     string `toml:"minter"`
}

// RecordsConfig controls the operation record chain.
type RecordsConfig struct {
	SubscriberBuffer int  `toml:"subscriber_buffer"`
	Sign             bool `toml:"sign"`
}

// HealthConfig controls the periodic checker.
type HealthConfig struct {
	Interval string `toml:"interval"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// TelemetryConfig controls metrics export.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8545,
			CORSOrigins: []string{"*"},
		},
		Economics: EconomicsConfig{
			SalaryRate: 1,
		},
		Reward: RewardConfig{
			Scaling:    string(reward.ScalingFlat),
			PPCPerUnit: reward.DefaultPPCPerUnit,
			Minter:     "tasklist",
		},
		Records: RecordsConfig{
			SubscriberBuffer: 64,
			Sign:             true,
		},
		Health: HealthConfig{
			Interval: "60s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// Policy returns the configured reward policy.
func (c RewardConfig) Policy() (reward.Policy, error) {
	scaling, err := reward.ParseScaling(c.Scaling)
	if err != nil {
		return reward.Policy{}, err
	}
	p := reward.Policy{Scaling: scaling, PPCPerUnit: c.PPCPerUnit}
	return p, p.Validate()
}

// Validate checks the configuration for values the daemon cannot run with.
func (c Config) Validate() error {
	if c.Economics.SalaryRate < 0 {
		return fmt.Errorf("economics.salary_rate must be >= 0, got %d", c.Economics.SalaryRate)
	}
	if _, err := c.Reward.Policy(); err != nil {
		return fmt.Errorf("reward: %w", err)
	}
	if c.Reward.Minter == "" {
		return fmt.Errorf("reward.minter must not be empty")
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port out of range: %d", c.API.Port)
	}
	if _, err := logx.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if c.Health.Interval != "" {
		if _, err := time.ParseDuration(c.Health.Interval); err != nil {
			return fmt.Errorf("health.interval: %w", err)
		}
	}
	return nil
}

// LoadConfig reads config from $TASKLIST_HOME/config.toml, falling back to
// defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := ConfigPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet, use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes the config to $TASKLIST_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// ConfigPath is the location of the config file.
func ConfigPath() string {
	return filepath.Join(tasklistHome(), "config.toml")
}

// tasklistHome returns the data directory.
func tasklistHome() string {
	if env := os.Getenv("TASKLIST_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tasklist")
}

// Home is exported for use by other packages.
func Home() string {
	return tasklistHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
