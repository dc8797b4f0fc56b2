// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sitewatch/internal/config"
	"sitewatch/internal/database"
	"sitewatch/internal/domains"
	"sitewatch/internal/stats"
)

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// SetupTestDB creates a test database with the domains table migrated. Uses a
// named in-memory database with cache=shared so multiple connections within a
// test share the same database; cached by root test name.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	rootName := t.Name()
	if idx := strings.Index(rootName, "/"); idx > 0 {
		rootName = rootName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")

	if err := db.AutoMigrate(&domains.Domain{}); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a sqlite-dialect DBManager over a test database.
func SetupTestDBManager(t *testing.T) (*database.DBManager, *slog.Logger) {
	t.Helper()

	db := SetupTestDB(t)
	log := GetLogger()

	dialect, err := database.DialectFor(config.SQLiteDatabase)
	if err != nil {
		t.Fatalf("testsupport: failed to build dialect: %v", err)
	}

	return database.NewManagerWithConnection(db, dialect, log), log
}

// CreateTestDomain registers a domain and provisions its statistics tables.
func CreateTestDomain(t *testing.T, db *gorm.DB, name string) domains.Domain {
	t.Helper()

	var d domains.Domain
	if db.Where("name = ?", name).First(&d).Error != nil {
		d = domains.Domain{Name: name, CreatedAt: time.Now().UTC()}
		if err := db.Create(&d).Error; err != nil {
			t.Fatalf("testsupport: failed to create domain %q: %v", name, err)
		}
	}

	if err := stats.EnsureSchema(db, config.SQLiteDatabase, d.ID); err != nil {
		t.Fatalf("testsupport: failed to provision schema for %q: %v", name, err)
	}
	return d
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// WriteBufferFile writes raw lines into a domain's buffer file under dir, the
// way the collector would have left them.
func WriteBufferFile(t *testing.T, dir, domainName string, lines ...string) {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("testsupport: failed to create buffers dir: %v", err)
	}
	path := dir + "/" + domainName + ".events"
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("testsupport: failed to write buffer file: %v", err)
	}
}

// WriteBlocklistFile writes a blocklist file and returns its path.
func WriteBlocklistFile(t *testing.T, dir string, entries ...string) string {
	t.Helper()

	path := dir + "/blocklist.txt"
	content := strings.Join(entries, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("testsupport: failed to write blocklist file: %v", err)
	}
	return path
}
