package stats

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"sitewatch/internal/aggregate"
	"sitewatch/internal/database"
)

const (
	// upsertBatchSize bounds the rows per upsert statement so a
	// high-cardinality run cannot produce an unbounded statement.
	upsertBatchSize = 200

	dayFormat = "2006-01-02"
)

// RealtimeWindow is the trailing window kept in the realtime counter table;
// older samples are pruned on every non-empty commit.
const RealtimeWindow = 3 * time.Hour

// Committer writes run totals into the per-domain statistics tables using the
// additive upsert capability of the configured dialect.
//
// The commit is intentionally not wrapped in one transaction: site stats, page
// stats, referrer stats and the realtime window are independent statements,
// matching the at-least-daily merge-add model where a crash between statements
// is repaired by the next run's retry of the remaining buffer.
type Committer struct {
	dbm    *database.DBManager
	logger *slog.Logger
}

// NewCommitter creates a committer over the shared database manager.
func NewCommitter(dbm *database.DBManager, logger *slog.Logger) *Committer {
	return &Committer{dbm: dbm, logger: logger}
}

var _ aggregate.Committer = (*Committer)(nil)

// Commit persists one run's totals for the given domain and day. A run with
// zero site pageviews short-circuits without touching storage at all, the
// realtime table included.
func (c *Committer) Commit(ctx context.Context, domainID uint, now time.Time, totals *aggregate.Totals) error {
	if totals.Site.PageViews == 0 {
		return nil
	}

	db := c.dbm.GetConnection().WithContext(ctx)
	dialect := c.dbm.Dialect()
	tables := TablesFor(domainID)
	day := now.UTC().Format(dayFormat)

	site := dialect.AdditiveUpsert(tables.SiteStats(), []string{"day"}, []string{"visitors", "pageviews"}, 1)
	if err := db.Exec(site, day, totals.Site.Visitors, totals.Site.PageViews).Error; err != nil {
		return fmt.Errorf("stats: failed to upsert site stats for domain %d: %w", domainID, err)
	}

	// The page and referrer legs are independent; run them concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.commitDimension(gctx, tables.PageURLs(), tables.PageStats(), "page_id", day, totals.Pages)
	})
	g.Go(func() error {
		return c.commitDimension(gctx, tables.ReferrerURLs(), tables.ReferrerStats(), "referrer_id", day, totals.Referrers)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	realtime := tables.RealtimeCounts()
	ts := now.UTC().Unix()
	if err := db.Exec(
		fmt.Sprintf("INSERT INTO %s (ts, count) VALUES (?, ?)", realtime),
		ts, totals.Site.PageViews,
	).Error; err != nil {
		return fmt.Errorf("stats: failed to append realtime sample for domain %d: %w", domainID, err)
	}
	cutoff := now.UTC().Add(-RealtimeWindow).Unix()
	if err := db.Exec(
		fmt.Sprintf("DELETE FROM %s WHERE ts < ?", realtime),
		cutoff,
	).Error; err != nil {
		return fmt.Errorf("stats: failed to prune realtime samples for domain %d: %w", domainID, err)
	}

	return nil
}

// commitDimension resolves the dimension ids for one totals map and emits the
// merge-add upserts in bounded batches. An empty map writes nothing.
func (c *Committer) commitDimension(ctx context.Context, urlTable, statTable, idCol, day string, totals map[string]*aggregate.Counts) error {
	if len(totals) == 0 {
		return nil
	}

	urls := make([]string, 0, len(totals))
	for u := range totals {
		urls = append(urls, u)
	}

	db := c.dbm.GetConnection()
	dialect := c.dbm.Dialect()

	ids, err := ResolveDimensions(ctx, db, dialect, urlTable, urls)
	if err != nil {
		return err
	}

	for start := 0; start < len(urls); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(urls) {
			end = len(urls)
		}
		batch := urls[start:end]

		stmt := dialect.AdditiveUpsert(statTable, []string{"day", idCol}, []string{"visitors", "pageviews"}, len(batch))
		args := make([]any, 0, len(batch)*4)
		for _, u := range batch {
			counts := totals[u]
			args = append(args, day, ids[u], counts.Visitors, counts.PageViews)
		}
		if err := db.WithContext(ctx).Exec(stmt, args...).Error; err != nil {
			return fmt.Errorf("stats: failed to upsert %s batch: %w", statTable, err)
		}
	}

	c.logger.Debug("Committed dimension stats",
		slog.String("table", statTable),
		slog.Int("rows", len(urls)))
	return nil
}

// RealtimePageViews sums the realtime samples inside the trailing window for a
// domain, the figure behind a near-live visitor counter.
func RealtimePageViews(db *gorm.DB, domainID uint, now time.Time) (uint64, error) {
	tables := TablesFor(domainID)
	cutoff := now.UTC().Add(-RealtimeWindow).Unix()

	var sum sql.NullInt64
	err := db.Raw(
		fmt.Sprintf("SELECT SUM(count) FROM %s WHERE ts >= ?", tables.RealtimeCounts()),
		cutoff,
	).Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("stats: failed to sum realtime samples for domain %d: %w", domainID, err)
	}
	if !sum.Valid {
		return 0, nil
	}
	return uint64(sum.Int64), nil
}
