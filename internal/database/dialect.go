package database

import (
	"fmt"
	"strings"

	"sitewatch/internal/config"
)

// Dialect abstracts the two SQL variants of the additive upsert capability.
// Both variants implement one behavior: insert a row, and on key conflict add
// the new numeric values to the stored ones instead of replacing them.
type Dialect interface {
	Name() string
	// AdditiveUpsert builds a multi-row insert for the given table where
	// keyCols form the unique key and each addCols value is merged additively
	// on conflict. rows is the number of placeholder groups.
	AdditiveUpsert(table string, keyCols, addCols []string, rows int) string
	// InsertIgnore builds a multi-row insert that silently skips rows
	// conflicting on the table's unique constraint.
	InsertIgnore(table string, cols []string, rows int) string
}

// DialectFor returns the Dialect implementation for the configured database type.
func DialectFor(dbType string) (Dialect, error) {
	switch dbType {
	case config.SQLiteDatabase:
		return sqliteDialect{}, nil
	case config.MySQLDatabase:
		return mysqlDialect{}, nil
	default:
		return nil, fmt.Errorf("database: unsupported database type %q", dbType)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return config.SQLiteDatabase }

func (sqliteDialect) AdditiveUpsert(table string, keyCols, addCols []string, rows int) string {
	cols := append(append([]string{}, keyCols...), addCols...)

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) DO UPDATE SET ",
		table, strings.Join(cols, ", "), valuePlaceholders(len(cols), rows), strings.Join(keyCols, ", "))
	for i, col := range addCols {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = %s.%s + excluded.%s", col, table, col, col)
	}
	return b.String()
}

func (sqliteDialect) InsertIgnore(table string, cols []string, rows int) string {
	return fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES %s",
		table, strings.Join(cols, ", "), valuePlaceholders(len(cols), rows))
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return config.MySQLDatabase }

func (mysqlDialect) AdditiveUpsert(table string, keyCols, addCols []string, rows int) string {
	cols := append(append([]string{}, keyCols...), addCols...)

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES %s ON DUPLICATE KEY UPDATE ",
		table, strings.Join(cols, ", "), valuePlaceholders(len(cols), rows))
	for i, col := range addCols {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = %s + VALUES(%s)", col, col, col)
	}
	return b.String()
}

func (mysqlDialect) InsertIgnore(table string, cols []string, rows int) string {
	return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES %s",
		table, strings.Join(cols, ", "), valuePlaceholders(len(cols), rows))
}

// valuePlaceholders renders rows groups of width positional placeholders,
// e.g. (?, ?, ?), (?, ?, ?).
func valuePlaceholders(width, rows int) string {
	group := "(" + strings.TrimSuffix(strings.Repeat("?, ", width), ", ") + ")"

	var b strings.Builder
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(group)
	}
	return b.String()
}
