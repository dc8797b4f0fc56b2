package jobs

import (
	"context"
	"log/slog"
	"sync"

	"sitewatch/internal/aggregate"
	"sitewatch/internal/blocklist"
	"sitewatch/internal/buffer"
	"sitewatch/internal/config"
	"sitewatch/internal/database"
	"sitewatch/internal/domains"
	"sitewatch/internal/metrics"
	"sitewatch/internal/stats"
)

// AggregationJob drains the event buffers of all tracked domains. Runs are
// serialized per domain: a runner instance owns its accumulation maps, so a
// domain whose previous run is still in flight is skipped, never run twice
// concurrently.
type AggregationJob struct {
	dbm       *database.DBManager
	logger    *slog.Logger
	rotator   *buffer.Rotator
	blocklist *blocklist.List
	committer *stats.Committer
	cleaner   aggregate.SessionCleaner

	mu      sync.Mutex
	runners map[uint]*domainRunner
}

type domainRunner struct {
	lock   sync.Mutex
	runner *aggregate.Runner
}

// NewAggregationJob wires the aggregation pipeline from the configuration.
func NewAggregationJob(cfg *config.Config, dbm *database.DBManager, cleaner aggregate.SessionCleaner, logger *slog.Logger) (*AggregationJob, error) {
	bl, err := blocklist.New(cfg.BlocklistPath, logger)
	if err != nil {
		return nil, err
	}

	return &AggregationJob{
		dbm:       dbm,
		logger:    logger,
		rotator:   buffer.NewRotator(cfg.BuffersDirectory(), logger),
		blocklist: bl,
		committer: stats.NewCommitter(dbm, logger),
		cleaner:   cleaner,
		runners:   make(map[uint]*domainRunner),
	}, nil
}

// Run aggregates every tracked domain once. A fatal error on one domain does
// not prevent the remaining domains from running; the first error is returned
// so the scheduler can log and retry next period.
func (j *AggregationJob) Run(ctx context.Context) error {
	all, err := domains.List(j.dbm.GetConnection())
	if err != nil {
		return err
	}

	j.logger.Info("Starting aggregation sweep", slog.Int("domains", len(all)))

	var firstErr error
	for _, d := range all {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := j.runDomain(ctx, d); err != nil {
			metrics.RunFailures.Inc()
			j.logger.Error("Aggregation run failed",
				slog.String("domain", d.Name),
				slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.RunsTotal.Inc()
	}
	return firstErr
}

func (j *AggregationJob) runDomain(ctx context.Context, d domains.Domain) error {
	dr := j.runnerFor(d.ID)
	if !dr.lock.TryLock() {
		j.logger.Debug("Skipping domain, previous run still in flight", slog.String("domain", d.Name))
		return nil
	}
	defer dr.lock.Unlock()

	return dr.runner.Run(ctx, d)
}

func (j *AggregationJob) runnerFor(domainID uint) *domainRunner {
	j.mu.Lock()
	defer j.mu.Unlock()

	dr := j.runners[domainID]
	if dr == nil {
		dr = &domainRunner{
			runner: aggregate.NewRunner(j.rotator, j.blocklist, j.committer, j.cleaner, j.logger),
		}
		j.runners[domainID] = dr
	}
	return dr
}

// Blocklist exposes the loaded blocklist, mainly so operators can trigger a
// reload without restarting.
func (j *AggregationJob) Blocklist() *blocklist.List {
	return j.blocklist
}
