// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Database types
const (
	SQLiteDatabase = "sqlite"
	MySQLDatabase  = "mysql"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// File paths
	StoragePath   string `mapstructure:"storagepath"`
	BlocklistPath string `mapstructure:"blocklistpath"`
	DatabaseName  string `mapstructure:"-"` // Derived from other settings

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseType         string `mapstructure:"dbtype"`
	DatabaseDSN          string `mapstructure:"dbdsn"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Job scheduling settings
	JobIntervalSeconds int `mapstructure:"jobintervalseconds"`

	// Data retention settings
	SnapshotOrphanMaxAgeMinutes int `mapstructure:"snapshotorphanmaxageminutes"`

	// Metrics endpoint; empty disables the listener
	MetricsAddr string `mapstructure:"metricsaddr"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "sitewatch")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("storagepath", "storage")
		v.SetDefault("blocklistpath", "storage/blocklist.txt")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbtype", SQLiteDatabase)
		v.SetDefault("dbdsn", "")
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("jobintervalseconds", 300)
		v.SetDefault("snapshotorphanmaxageminutes", 60)
		v.SetDefault("metricsaddr", "")

		// Bind environment variables
		v.BindEnv("appname", "SITEWATCH_APP_NAME")
		v.BindEnv("environment", "SITEWATCH_ENV")
		v.BindEnv("loglevel", "SITEWATCH_LOG_LEVEL")
		v.BindEnv("storagepath", "SITEWATCH_STORAGE_PATH")
		v.BindEnv("blocklistpath", "SITEWATCH_BLOCKLIST_PATH")
		v.BindEnv("logsdir", "SITEWATCH_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "SITEWATCH_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "SITEWATCH_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "SITEWATCH_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbtype", "SITEWATCH_DB_TYPE")
		v.BindEnv("dbdsn", "SITEWATCH_DB_DSN")
		v.BindEnv("dbmaxopenconns", "SITEWATCH_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "SITEWATCH_DB_MAX_IDLE_CONNS")
		v.BindEnv("jobintervalseconds", "SITEWATCH_JOB_INTERVAL_SECONDS")
		v.BindEnv("snapshotorphanmaxageminutes", "SITEWATCH_SNAPSHOT_ORPHAN_MAX_AGE_MINUTES")
		v.BindEnv("metricsaddr", "SITEWATCH_METRICS_ADDR")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		// Validate
		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		// Set derived values
		cfg.DatabaseName = cfg.GetDatabasePath()
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validDBTypes := map[string]bool{
		SQLiteDatabase: true,
		MySQLDatabase:  true,
	}
	if !validDBTypes[c.DatabaseType] {
		return fmt.Errorf("invalid database type: %s", c.DatabaseType)
	}

	if c.DatabaseType == MySQLDatabase && c.DatabaseDSN == "" {
		return fmt.Errorf("mysql database type requires SITEWATCH_DB_DSN")
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.StoragePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// DatabaseSource returns the connection string for the configured database type.
// For sqlite this is a file path; for mysql it is the DSN.
func (c *Config) DatabaseSource() string {
	if c.DatabaseType == MySQLDatabase {
		return c.DatabaseDSN
	}
	return c.GetDatabasePath()
}

// BuffersDirectory returns the directory holding the per-domain event buffers
func (c *Config) BuffersDirectory() string {
	return filepath.Join(c.StoragePath, "buffers")
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (required for in-memory sqlite test stability)
// - Development/Production: 10
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
