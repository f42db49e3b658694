package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 30*time.Second, cfg.Server.PollInterval)
	assert.Equal(t, 3, cfg.Thresholds.MinActiveProfilesPerHouse)
	assert.Equal(t, "450", cfg.Thresholds.LowBalanceThreshold.String())
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
server:
  addr: ":8081"
  poll_interval: 1m
  baseline: "2500"
storage:
  backend: postgres
  postgres_dsn: postgres://file
thresholds:
  min_active_profiles_per_house: 0
  low_balance_threshold: "-5"
  target_daily_volume: 7000
`)
	t.Setenv("POSTGRES_DSN", "postgres://env")
	t.Setenv("OPS_MIN_CAPITAL_PER_HOUSE", "1500.50")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Server.Addr)
	assert.Equal(t, time.Minute, cfg.Server.PollInterval)
	assert.Equal(t, "2500", cfg.Server.Baseline.String())
	assert.Equal(t, "postgres://env", cfg.Storage.PostgresDSN)

	// clamped
	assert.Equal(t, 1, cfg.Thresholds.MinActiveProfilesPerHouse)
	assert.True(t, cfg.Thresholds.LowBalanceThreshold.IsZero())

	assert.Equal(t, "7000", cfg.Thresholds.TargetDailyVolume.String())
	assert.Equal(t, "1500.5", cfg.Thresholds.MinCapitalPerHouse.String())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "bad yaml", body: "server: [unterminated"},
		{name: "unknown backend", body: "storage:\n  backend: sqlite\n"},
		{name: "postgres without dsn", body: "storage:\n  backend: postgres\n"},
		{name: "bad env duration", body: "", env: map[string]string{"OPS_POLL_INTERVAL": "soon"}},
		{name: "bad env decimal", body: "", env: map[string]string{"OPS_LOW_BALANCE": "lots"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeFile(t, t.TempDir(), "config.yaml", tt.body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "OPS_TEST_ONLY_KEY=from-file\n")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("OPS_TEST_ONLY_KEY"))
	os.Unsetenv("OPS_TEST_ONLY_KEY")

	assert.NoError(t, LoadEnvFile(filepath.Join(dir, "absent.env")))
}
