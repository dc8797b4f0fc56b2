// Package database manages the gorm connection and the SQL dialect in use.
package database

import (
	"fmt"
	"log/slog"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"sitewatch/internal/config"
)

// DBManager owns the gorm connection and the dialect matching the configured
// database type.
type DBManager struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *gorm.DB
	dialect Dialect
}

// NewDBManager creates a database manager for the configured database type.
func NewDBManager(cfg *config.Config, logger *slog.Logger) (*DBManager, error) {
	dialect, err := DialectFor(cfg.DatabaseType)
	if err != nil {
		return nil, err
	}

	return &DBManager{
		cfg:     cfg,
		logger:  logger,
		dialect: dialect,
	}, nil
}

// Init opens the database connection and configures the pool.
func (m *DBManager) Init() error {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch m.cfg.DatabaseType {
	case config.MySQLDatabase:
		db, err = gorm.Open(mysql.Open(m.cfg.DatabaseSource()), gormCfg)
	default:
		db, err = gorm.Open(sqlite.Open(m.cfg.DatabaseSource()), gormCfg)
	}
	if err != nil {
		return fmt.Errorf("database: failed to open %s connection: %w", m.cfg.DatabaseType, err)
	}

	if m.cfg.DatabaseType == config.SQLiteDatabase {
		db.Exec("PRAGMA journal_mode = WAL")
		db.Exec("PRAGMA busy_timeout = 5000")
		db.Exec("PRAGMA foreign_keys = ON")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database: failed to access sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(m.cfg.GetMaxOpenConns())
	sqlDB.SetMaxIdleConns(m.cfg.GetMaxIdleConns())

	m.db = db
	m.logger.Info("Database connection established",
		slog.String("type", m.cfg.DatabaseType))
	return nil
}

// NewManagerWithConnection wraps an already-open gorm connection with the
// given dialect. Used by testsupport and embedded setups.
func NewManagerWithConnection(db *gorm.DB, dialect Dialect, logger *slog.Logger) *DBManager {
	return &DBManager{
		logger:  logger,
		db:      db,
		dialect: dialect,
	}
}

// GetConnection returns the gorm connection.
func (m *DBManager) GetConnection() *gorm.DB {
	return m.db
}

// Dialect returns the SQL dialect for the configured database type.
func (m *DBManager) Dialect() Dialect {
	return m.dialect
}

// Close releases the underlying connection pool.
func (m *DBManager) Close() error {
	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
