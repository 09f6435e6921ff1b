package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "finsim.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATA_DIR", "SQLITE_PATH", "HISTORY_SOURCE", "HISTORY_ENDPOINT",
		"LOG_LEVEL", "PORT", "ALPACA_API_KEY", "ALPACA_API_SECRET",
		"APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  data_dir: "/tmp/finsim/data"
  sqlite_path: "/tmp/finsim/finsim.db"
history:
  source: "http"
  endpoint: "https://fin-api-three.vercel.app/fakestockdata"
  days: 180
sim:
  start_cash: 25000
  speed_ms: 250
logging:
  level: "debug"
  format: "text"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Storage.DataDir != "/tmp/finsim/data" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.History.Source != "http" {
		t.Errorf("History.Source = %q, want http", cfg.History.Source)
	}
	if cfg.History.Days != 180 {
		t.Errorf("History.Days = %d, want 180", cfg.History.Days)
	}
	if cfg.Sim.StartCash != 25000 {
		t.Errorf("Sim.StartCash = %v, want 25000", cfg.Sim.StartCash)
	}
	if cfg.Sim.SpeedMs != 250 {
		t.Errorf("Sim.SpeedMs = %d, want 250", cfg.Sim.SpeedMs)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}

	// Unset fields get defaults.
	if cfg.History.Interval != "1d" {
		t.Errorf("History.Interval = %q, want default 1d", cfg.History.Interval)
	}
	if cfg.Sim.MinSpeedMs != 100 || cfg.Sim.MaxSpeedMs != 1000 {
		t.Errorf("speed clamp defaults = [%d, %d], want [100, 1000]", cfg.Sim.MinSpeedMs, cfg.Sim.MaxSpeedMs)
	}
	if cfg.Sim.NewsIntervalMs != 10000 {
		t.Errorf("Sim.NewsIntervalMs = %d, want 10000", cfg.Sim.NewsIntervalMs)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
storage:
  data_dir: "/original/data"
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
`)

	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("ALPACA_API_KEY", "env-key")
	t.Setenv("APCA_API_SECRET_KEY", "canonical-secret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want env override", cfg.Storage.DataDir)
	}
	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want env-key", cfg.Alpaca.APIKey)
	}
	if cfg.Alpaca.APISecret != "canonical-secret" {
		t.Errorf("Alpaca.APISecret = %q, want canonical override", cfg.Alpaca.APISecret)
	}
}

func TestDefault(t *testing.T) {
	clearEnv(t)

	cfg := Default()
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.History.Source != "synthetic" {
		t.Errorf("History.Source = %q, want synthetic", cfg.History.Source)
	}
	if cfg.History.Days != 365 {
		t.Errorf("History.Days = %d, want 365", cfg.History.Days)
	}
	if cfg.Sim.StartCash != 10000 {
		t.Errorf("Sim.StartCash = %v, want 10000", cfg.Sim.StartCash)
	}
}
