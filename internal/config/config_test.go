package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitewatch/internal/config"
)

func TestGetConfigDefaults(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	cfg := config.GetConfig()

	assert.Equal(t, "sitewatch", cfg.AppName)
	assert.Equal(t, config.Development, cfg.Environment)
	assert.Equal(t, config.SQLiteDatabase, cfg.DatabaseType)
	assert.Equal(t, 300, cfg.JobIntervalSeconds)
	assert.Equal(t, 60, cfg.SnapshotOrphanMaxAgeMinutes)
	assert.Equal(t, "storage/blocklist.txt", cfg.BlocklistPath)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestGetConfigEnvOverrides(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	t.Setenv("SITEWATCH_ENV", config.Test)
	t.Setenv("SITEWATCH_STORAGE_PATH", "/tmp/sitewatch")
	t.Setenv("SITEWATCH_JOB_INTERVAL_SECONDS", "30")

	cfg := config.GetConfig()

	assert.Equal(t, config.Test, cfg.Environment)
	assert.Equal(t, "/tmp/sitewatch/buffers", cfg.BuffersDirectory())
	assert.Equal(t, 30, cfg.JobIntervalSeconds)
}

func TestDatabaseSourcePerType(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	t.Setenv("SITEWATCH_ENV", config.Test)
	t.Setenv("SITEWATCH_STORAGE_PATH", "/tmp/sitewatch")

	cfg := config.GetConfig()
	require.Equal(t, config.SQLiteDatabase, cfg.DatabaseType)
	assert.Equal(t, "/tmp/sitewatch/sitewatch-test.db", cfg.DatabaseSource())
}

func TestConnectionPoolSizing(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)

	t.Setenv("SITEWATCH_ENV", config.Test)
	cfg := config.GetConfig()

	assert.Equal(t, 1, cfg.GetMaxOpenConns())
	assert.Equal(t, 1, cfg.GetMaxIdleConns())
}
