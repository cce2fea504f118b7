package database

import (
	"fmt"
	"slices"
	"time"
)

var logLevels = []string{"silent", "error", "warn", "info"}

// Config is the database block of the service settings.
//
// DSN selects both the engine and the database: "postgres://u:p@host/app",
// "host=... dbname=app", or a SQLite path ("app.db", "file:app.db?...",
// "sqlite://app.db").
type Config struct {
	Enabled         bool          `mapstructure:"enabled"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`

	// MaxRetries connection attempts are made at startup, waiting
	// attempt*RetryBackoff between them.
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`

	// Queries slower than SlowQueryThreshold are logged at warn.
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	// LogLevel is GORM's: silent, error, warn or info.
	LogLevel string `mapstructure:"log_level"`
}

func (c *Config) ApplyDefaults() {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = 5 * time.Minute
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.SlowQueryThreshold == 0 {
		c.SlowQueryThreshold = 200 * time.Millisecond
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Validate accepts any disabled config.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch {
	case c.DSN == "":
		return fmt.Errorf("database DSN is required")
	case c.MaxOpenConns <= 0:
		return fmt.Errorf("max_open_conns must be > 0")
	case c.MaxIdleConns <= 0:
		return fmt.Errorf("max_idle_conns must be > 0")
	case c.MaxIdleConns > c.MaxOpenConns:
		return fmt.Errorf("max_idle_conns (%d) must be <= max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	case c.MaxRetries <= 0:
		return fmt.Errorf("max_retries must be > 0")
	case c.LogLevel != "" && !slices.Contains(logLevels, c.LogLevel):
		return fmt.Errorf("log_level must be one of %v (got: %s)", logLevels, c.LogLevel)
	}
	for name, d := range map[string]time.Duration{
		"conn_max_lifetime":    c.ConnMaxLifetime,
		"conn_max_idle_time":   c.ConnMaxIdleTime,
		"retry_backoff":        c.RetryBackoff,
		"slow_query_threshold": c.SlowQueryThreshold,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative (got: %s)", name, d)
		}
	}
	return nil
}
