package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv marks keys for restoration after the test and removes them for its duration.
func isolateEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestNewConfigDefaults(t *testing.T) {
	isolateEnv(t, "PORT", "STORE_DRIVER", "ABANDONMENT_TIMEOUT", "ABANDONMENT_SWEEP_INTERVAL", "CLICKHOUSE_HOST")

	cfg, err := NewConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverBuntDB, cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.AbandonAfter)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.False(t, cfg.ClickHouse().Configured())
}

func TestNewConfigReadsDotEnv(t *testing.T) {
	isolateEnv(t, "STORE_DRIVER", "ABANDONMENT_TIMEOUT", "CLICKHOUSE_HOST", "CLICKHOUSE_NATIVE_PORT", "CLICKHOUSE_DB_NAME")

	path := filepath.Join(t.TempDir(), ".env")
	content := "STORE_DRIVER=SQLite\nABANDONMENT_TIMEOUT=2h\n" +
		"CLICKHOUSE_HOST=localhost\nCLICKHOUSE_NATIVE_PORT=9000\nCLICKHOUSE_DB_NAME=funnel\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := NewConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, 2*time.Hour, cfg.AbandonAfter)
	ch := cfg.ClickHouse()
	assert.True(t, ch.Configured())
	assert.Equal(t, 9000, ch.Port)
}

func TestNewConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "redis")

	_, err := NewConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "STORE_DRIVER")
}

func TestLogConfigMapsFields(t *testing.T) {
	cfg := &Configuration{LogLevel: "debug", LogFormat: "json", LogFile: "logs/app.log", LogMaxSizeMB: 10, LogMaxBackups: 2}

	lc := cfg.LogConfig()
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "json", lc.Format)
	assert.Equal(t, "logs/app.log", lc.File)
	assert.Equal(t, 10, lc.MaxSizeMB)
	assert.Equal(t, 2, lc.MaxBackups)
}
