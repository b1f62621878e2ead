package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 10, cfg.MaxConcurrent)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 60*time.Second, cfg.DBConnTimeout)
	assert.Equal(t, int64(100*1024*1024), cfg.MaxArchiveMemberBytes)
	assert.Equal(t, int64(1024*1024*1024), cfg.MaxArchiveTotalBytes)
	assert.Equal(t, 100.0, cfg.MaxCompressionRatio)
	assert.Equal(t, 14, cfg.LookbackDays)
	assert.Equal(t, 10, cfg.MinSamples)
	assert.Equal(t, 10.0, cfg.OutlierThresholdFt)
	assert.True(t, cfg.EnableAdaptivePrompts)
	assert.False(t, cfg.EnableBudgetEnforcement)
	assert.InDelta(t, 1.35, cfg.ShoreScales["north"].Multiplier, 1e-9)
	assert.InDelta(t, 0.55, cfg.ShoreScales["east"].Multiplier, 1e-9)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("MAX_CONCURRENT", "5")
	t.Setenv("FETCH_TIMEOUT", "15s")
	t.Setenv("VALIDATION_LOOKBACK_DAYS", "7")
	t.Setenv("VALIDATION_MIN_SAMPLES", "3")
	t.Setenv("VALIDATION_OUTLIER_THRESHOLD_FT", "5")
	t.Setenv("SECURITY_ALLOWED_DATA_DOMAINS", "ndbc.noaa.gov, pae-paha.pacioos.hawaii.edu")
	t.Setenv("FORECAST_TOKEN_BUDGET", "50000")
	t.Setenv("FORECAST_ENABLE_BUDGET_ENFORCEMENT", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 5, cfg.MaxConcurrent)
	assert.Equal(t, 15*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 7, cfg.LookbackDays)
	assert.Equal(t, 3, cfg.MinSamples)
	assert.Equal(t, 5.0, cfg.OutlierThresholdFt)
	assert.Equal(t, []string{"ndbc.noaa.gov", "pae-paha.pacioos.hawaii.edu"}, cfg.AllowedDataDomains)
	assert.Equal(t, 50000, cfg.TokenBudget)
	assert.True(t, cfg.EnableBudgetEnforcement)
}

func TestLoad_YAMLFileLayeredUnderEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("loglevel: warn\nmaxconcurrent: 20\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MAX_CONCURRENT", "4")

	cfg, err := Load()
	require.NoError(t, err)

	// YAML sets maxconcurrent to 20, but env overrides it to 4.
	assert.Equal(t, 4, cfg.MaxConcurrent)
}

func TestLoad_YAMLFileAppliesWhenEnvUnset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("loglevel: warn\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidMaxConcurrent(t *testing.T) {
	t.Setenv("MAX_CONCURRENT", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_CONCURRENT")
}

func TestLoad_InvalidCompressionRatio(t *testing.T) {
	t.Setenv("SECURITY_MAX_COMPRESSION_RATIO", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECURITY_MAX_COMPRESSION_RATIO")
}

func TestLoad_BudgetEnforcementWithoutBudget(t *testing.T) {
	t.Setenv("FORECAST_ENABLE_BUDGET_ENFORCEMENT", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORECAST_TOKEN_BUDGET")
}

func TestLoad_DBPathDefaultsWhenUnset(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.DBPath)
}
