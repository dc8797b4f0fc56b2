package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sitewatch/internal/blocklist"
	"sitewatch/internal/buffer"
	"sitewatch/internal/domains"
	"sitewatch/internal/metrics"
)

// Committer persists the run totals for one domain and day.
type Committer interface {
	Commit(ctx context.Context, domainID uint, day time.Time, totals *Totals) error
}

// SessionCleaner is the downstream collaborator notified once per successful
// non-empty commit. The notification is fire-and-forget; the run never waits
// on it.
type SessionCleaner interface {
	CleanupStaleSessions()
}

// Runner sequences one aggregation run: rotate, decode, filter, accumulate,
// commit, reset. A Runner owns its accumulation maps, so concurrent Run calls
// on the same instance are not allowed; the scheduler serializes runs per
// domain.
type Runner struct {
	rotator   *buffer.Rotator
	blocklist *blocklist.List
	committer Committer
	cleaner   SessionCleaner
	logger    *slog.Logger
	totals    *Totals
}

// NewRunner wires the aggregation run for one domain. cleaner may be nil.
func NewRunner(rotator *buffer.Rotator, bl *blocklist.List, committer Committer, cleaner SessionCleaner, logger *slog.Logger) *Runner {
	return &Runner{
		rotator:   rotator,
		blocklist: bl,
		committer: committer,
		cleaner:   cleaner,
		logger:    logger,
		totals:    NewTotals(),
	}
}

// Run executes one aggregation run for the domain. A missing buffer means the
// domain has no new data; the buffer is created and the run ends with zero
// storage writes. A malformed line aborts the whole run uncommitted, and the
// snapshot is discarded on every exit path.
func (r *Runner) Run(ctx context.Context, d domains.Domain) error {
	// Totals must not survive the run. A failed run's events would otherwise
	// be folded into the next run on this instance and committed then, which
	// both resurrects an aborted run and double-counts after a partial commit.
	defer r.totals.Reset()

	snap, err := r.rotator.Rotate(d)
	if err != nil {
		return err
	}
	if snap == nil {
		r.logger.Debug("No buffer yet, nothing to aggregate", slog.String("domain", d.Name))
		return nil
	}
	defer func() {
		if cerr := snap.Close(); cerr != nil {
			r.logger.Warn("Failed to discard snapshot",
				slog.String("domain", d.Name),
				slog.Any("error", cerr))
		}
	}()

	var accepted, blocked uint64
	sc := snap.Scanner()
	for sc.Scan() {
		rec, ok, derr := buffer.DecodeLine(sc.Bytes())
		if derr != nil {
			metrics.DecodeFailures.Inc()
			return derr
		}
		if !ok {
			continue
		}
		if r.blocklist.IsBlocked(rec.Referrer) {
			blocked++
			continue
		}
		r.totals.Add(rec)
		accepted++
	}
	if serr := sc.Err(); serr != nil {
		return fmt.Errorf("aggregate: failed to read snapshot for %q: %w", d.Name, serr)
	}

	metrics.EventsAccepted.Add(float64(accepted))
	metrics.EventsBlocked.Add(float64(blocked))

	pageViews := r.totals.Site.PageViews
	if err := r.committer.Commit(ctx, d.ID, time.Now().UTC(), r.totals); err != nil {
		return err
	}

	r.logger.Info("Aggregation run committed",
		slog.String("domain", d.Name),
		slog.Uint64("pageviews", pageViews),
		slog.Uint64("blocked", blocked))

	if pageViews > 0 && r.cleaner != nil {
		go r.cleaner.CleanupStaleSessions()
	}
	return nil
}
