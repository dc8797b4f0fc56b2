package stats

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"sitewatch/internal/database"
)

// ResolveDimensions maps a set of distinct URLs to their stable integer ids in
// the given dimension table, creating missing entries.
//
// The resolution takes exactly two round-trips regardless of set size: one
// bulk insert-if-absent and one bulk lookup. Ids are append-only and never
// reused, so resolving the same URL across runs always yields the same id.
func ResolveDimensions(ctx context.Context, db *gorm.DB, dialect database.Dialect, table string, urls []string) (map[string]int64, error) {
	if len(urls) == 0 {
		return map[string]int64{}, nil
	}

	args := make([]any, len(urls))
	for i, u := range urls {
		args[i] = u
	}

	insert := dialect.InsertIgnore(table, []string{"url"}, len(urls))
	if err := db.WithContext(ctx).Exec(insert, args...).Error; err != nil {
		return nil, fmt.Errorf("stats: failed to insert dimension urls into %s: %w", table, err)
	}

	var rows []struct {
		ID  int64
		URL string
	}
	lookup := fmt.Sprintf("SELECT id, url FROM %s WHERE url IN ?", table)
	if err := db.WithContext(ctx).Raw(lookup, urls).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("stats: failed to look up dimension urls in %s: %w", table, err)
	}

	ids := make(map[string]int64, len(rows))
	for _, r := range rows {
		ids[r.URL] = r.ID
	}
	if len(ids) != len(urls) {
		return nil, fmt.Errorf("stats: resolved %d of %d urls in %s", len(ids), len(urls), table)
	}
	return ids, nil
}
