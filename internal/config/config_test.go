package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pivend", cfg.ServiceName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, HardwareMock, cfg.HardwareMode)
	assert.Equal(t, 2, cfg.LowStockThreshold)
	assert.True(t, cfg.TelemetryEnabled)
	assert.Equal(t, 30*time.Minute, cfg.TelemetryInterval)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PIVEND_HTTP_ADDR", ":9090")
	t.Setenv("PIVEND_STORE", "sqlite")
	t.Setenv("PIVEND_SQLITE_PATH", "/tmp/test.db")
	t.Setenv("PIVEND_LOW_STOCK_THRESHOLD", "5")
	t.Setenv("PIVEND_TELEMETRY_INTERVAL", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "/tmp/test.db", cfg.SQLitePath)
	assert.Equal(t, 5, cfg.LowStockThreshold)
	assert.Equal(t, time.Minute, cfg.TelemetryInterval)
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("PIVEND_STORE", "cassandra")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store")
}

func TestLoadRejectsUnknownHardwareMode(t *testing.T) {
	t.Setenv("PIVEND_HARDWARE_MODE", "gpio")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown hardware mode")
}
