package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the finsim backend.
type Config struct {
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	History History `yaml:"history"`
	Alpaca  Alpaca  `yaml:"alpaca"`
	Sim     Sim     `yaml:"sim"`
	Logging Logging `yaml:"logging"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Storage holds paths for data persistence (synthetic-series cache and the
// profile database; simulation sessions themselves are memory-only).
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// History selects and parameterizes the price-history source.
// Source is one of "synthetic", "http", or "alpaca".
type History struct {
	Source     string `yaml:"source"`
	Endpoint   string `yaml:"endpoint"` // http source only
	Days       int    `yaml:"days"`
	Interval   string `yaml:"interval"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Alpaca holds credentials for the Alpaca market-data API (alpaca source).
type Alpaca struct {
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	DataURL         string `yaml:"data_url"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Sim defines simulation session parameters.
type Sim struct {
	StartCash      float64 `yaml:"start_cash"`
	SpeedMs        int     `yaml:"speed_ms"`
	MinSpeedMs     int     `yaml:"min_speed_ms"`
	MaxSpeedMs     int     `yaml:"max_speed_ms"`
	NewsIntervalMs int     `yaml:"news_interval_ms"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into
// a Config, applies environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// Default returns a Config with all defaults filled, for running without a
// config file.
func Default() *Config {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("HISTORY_SOURCE"); v != "" {
		cfg.History.Source = v
	}
	if v := os.Getenv("HISTORY_ENDPOINT"); v != "" {
		cfg.History.Endpoint = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	// Canonical Alpaca env vars take priority (names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// applyDefaults fills zero-valued fields with working defaults. The sim
// defaults match the original sandbox: $10,000 starting cash, 500ms per
// simulated day clamped to [100ms, 1000ms], news rotation every 10s.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.History.Source == "" {
		cfg.History.Source = "synthetic"
	}
	if cfg.History.Days == 0 {
		cfg.History.Days = 365
	}
	if cfg.History.Interval == "" {
		cfg.History.Interval = "1d"
	}
	if cfg.History.TimeoutSec == 0 {
		cfg.History.TimeoutSec = 10
	}
	if cfg.Alpaca.RateLimitPerMin == 0 {
		cfg.Alpaca.RateLimitPerMin = 200
	}
	if cfg.Sim.StartCash == 0 {
		cfg.Sim.StartCash = 10000
	}
	if cfg.Sim.SpeedMs == 0 {
		cfg.Sim.SpeedMs = 500
	}
	if cfg.Sim.MinSpeedMs == 0 {
		cfg.Sim.MinSpeedMs = 100
	}
	if cfg.Sim.MaxSpeedMs == 0 {
		cfg.Sim.MaxSpeedMs = 1000
	}
	if cfg.Sim.NewsIntervalMs == 0 {
		cfg.Sim.NewsIntervalMs = 10000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
