// Package stats persists run totals: per-domain daily statistics tables, URL
// dimension tables and the rolling realtime counter window.
package stats

import (
	"fmt"

	"gorm.io/gorm"

	"sitewatch/internal/config"
)

// Tables names the per-domain statistics tables. Every table name carries the
// domain id suffix, so two domains never share dimension ids or stat rows.
type Tables struct {
	DomainID uint
}

// TablesFor returns the table set for a domain id.
func TablesFor(domainID uint) Tables {
	return Tables{DomainID: domainID}
}

func (t Tables) SiteStats() string      { return fmt.Sprintf("site_stats_%d", t.DomainID) }
func (t Tables) PageURLs() string       { return fmt.Sprintf("page_urls_%d", t.DomainID) }
func (t Tables) PageStats() string      { return fmt.Sprintf("page_stats_%d", t.DomainID) }
func (t Tables) ReferrerURLs() string   { return fmt.Sprintf("referrer_urls_%d", t.DomainID) }
func (t Tables) ReferrerStats() string  { return fmt.Sprintf("referrer_stats_%d", t.DomainID) }
func (t Tables) RealtimeCounts() string { return fmt.Sprintf("realtime_counts_%d", t.DomainID) }

// EnsureSchema creates the statistics tables for one domain if they do not
// exist. Schema provisioning is owned by the operator tooling; the aggregation
// run itself assumes the tables are present.
func EnsureSchema(db *gorm.DB, dialectName string, domainID uint) error {
	t := TablesFor(domainID)

	var ddl []string
	switch dialectName {
	case config.MySQLDatabase:
		ddl = []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				day DATE PRIMARY KEY,
				visitors BIGINT UNSIGNED NOT NULL DEFAULT 0,
				pageviews BIGINT UNSIGNED NOT NULL DEFAULT 0
			)`, t.SiteStats()),
			dimensionDDLMySQL(t.PageURLs()),
			statDDLMySQL(t.PageStats(), "page_id"),
			dimensionDDLMySQL(t.ReferrerURLs()),
			statDDLMySQL(t.ReferrerStats(), "referrer_id"),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				ts BIGINT NOT NULL,
				count BIGINT UNSIGNED NOT NULL
			)`, t.RealtimeCounts()),
		}
	default:
		ddl = []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				day TEXT PRIMARY KEY,
				visitors INTEGER NOT NULL DEFAULT 0,
				pageviews INTEGER NOT NULL DEFAULT 0
			)`, t.SiteStats()),
			dimensionDDLSQLite(t.PageURLs()),
			statDDLSQLite(t.PageStats(), "page_id"),
			dimensionDDLSQLite(t.ReferrerURLs()),
			statDDLSQLite(t.ReferrerStats(), "referrer_id"),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				ts INTEGER NOT NULL,
				count INTEGER NOT NULL
			)`, t.RealtimeCounts()),
		}
	}

	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("stats: failed to create schema for domain %d: %w", domainID, err)
		}
	}
	return nil
}

func dimensionDDLSQLite(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE
	)`, table)
}

func statDDLSQLite(table, idCol string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		day TEXT NOT NULL,
		%s INTEGER NOT NULL,
		visitors INTEGER NOT NULL DEFAULT 0,
		pageviews INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (day, %s)
	)`, table, idCol, idCol)
}

func dimensionDDLMySQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		url VARCHAR(2048) NOT NULL,
		UNIQUE KEY uniq_url (url(500))
	)`, table)
}

func statDDLMySQL(table, idCol string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		day DATE NOT NULL,
		%s BIGINT UNSIGNED NOT NULL,
		visitors BIGINT UNSIGNED NOT NULL DEFAULT 0,
		pageviews BIGINT UNSIGNED NOT NULL DEFAULT 0,
		PRIMARY KEY (day, %s)
	)`, table, idCol, idCol)
}
