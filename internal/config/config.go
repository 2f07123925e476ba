// Package config provides configuration management for the strategy search
// application.
package config

import (
	"fmt"
	"time"
)

// Config is the full application configuration tree.
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Search   SearchConfig   `mapstructure:"search" validate:"required"`
	Logging  LoggingConfig  `mapstructure:"logging" validate:"required"`
	Metrics  MetricsConfig  `mapstructure:"metrics" validate:"required"`
}

// AppConfig names the application and its runtime environment.
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	Host           string `mapstructure:"host" validate:"required"`
	Port           int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required"`
	User           string `mapstructure:"user" validate:"required"`
	Password       string `mapstructure:"password" validate:"required"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"required,gt=0"`
}

// DSN renders the pgx connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// SearchConfig represents the autonomous search session configuration
type SearchConfig struct {
	DateFrom           string  `mapstructure:"date_from" validate:"required,dateonly"`
	DateTo             string  `mapstructure:"date_to" validate:"required,dateonly"`
	NTrials            int     `mapstructure:"n_trials" validate:"required,gt=0"`
	InitialBankroll    int64   `mapstructure:"initial_bankroll" validate:"required,gt=0"`
	MCSimulations      int     `mapstructure:"mc_simulations" validate:"required,gt=0"`
	RandomSeed         int64   `mapstructure:"random_seed"`
	EarlyStopThreshold float64 `mapstructure:"early_stop_threshold" validate:"gte=0,lte=1"`
	EventCacheTTL      int     `mapstructure:"event_cache_ttl_seconds" validate:"gte=0"`
}

// LoggingConfig represents structured logging and rotation configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"required,loglevel"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"omitempty,gt=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"omitempty,gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"omitempty,gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment reports whether the runtime environment is development.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// ParsedDateFrom returns the search range start as a time.Time.
func (s *SearchConfig) ParsedDateFrom() (time.Time, error) {
	return time.Parse("2006-01-02", s.DateFrom)
}

// ParsedDateTo returns the search range end as a time.Time.
func (s *SearchConfig) ParsedDateTo() (time.Time, error) {
	return time.Parse("2006-01-02", s.DateTo)
}
