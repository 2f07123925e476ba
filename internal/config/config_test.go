package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigPath = "testdata/valid_config.yaml"

func loadValid(t *testing.T) *Config {
	t.Helper()
	t.Setenv("TEST_DB_PASSWORD", "secret")
	cfg, err := Load(validConfigPath)
	require.NoError(t, err)
	return cfg
}

func TestLoadConfigSuccess(t *testing.T) {
	cfg := loadValid(t)

	assert.Equal(t, "strategy-search", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 50, cfg.Search.NTrials)
	assert.Equal(t, int64(1_000_000), cfg.Search.InitialBankroll)
	assert.Equal(t, int64(7), cfg.Search.RandomSeed)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfigExpandsEnvironment(t *testing.T) {
	cfg := loadValid(t)
	assert.Equal(t, "secret", cfg.Database.Password)
}

func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := Load("testdata/does_not_exist.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults("testdata/does_not_exist.yaml")
	require.NoError(t, err, "a missing file falls back to defaults")

	assert.Equal(t, "strategy-search", cfg.App.Name)
	assert.Equal(t, 500, cfg.Search.NTrials)
	assert.Equal(t, int64(1_000_000), cfg.Search.InitialBankroll)
	assert.Equal(t, 1000, cfg.Search.MCSimulations)
	assert.Equal(t, int64(42), cfg.Search.RandomSeed)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestValidateSuccess(t *testing.T) {
	cfg := loadValid(t)
	assert.NoError(t, Validate(cfg))
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad environment", func(c *Config) { c.App.Environment = "sandbox" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad date format", func(c *Config) { c.Search.DateFrom = "01/02/2024" }},
		{"inverted date range", func(c *Config) { c.Search.DateFrom, c.Search.DateTo = c.Search.DateTo, c.Search.DateFrom }},
		{"zero trials", func(c *Config) { c.Search.NTrials = 0 }},
		{"negative bankroll", func(c *Config) { c.Search.InitialBankroll = -1 }},
		{"bad ssl mode", func(c *Config) { c.Database.SSLMode = "maybe" }},
		{"port out of range", func(c *Config) { c.Database.Port = 70000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadValid(t)
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestParsedDates(t *testing.T) {
	cfg := loadValid(t)

	from, err := cfg.Search.ParsedDateFrom()
	require.NoError(t, err)
	to, err := cfg.Search.ParsedDateTo()
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), to)
}
