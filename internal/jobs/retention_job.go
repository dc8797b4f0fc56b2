package jobs

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sitewatch/internal/config"
	"sitewatch/internal/database"
	"sitewatch/internal/domains"
	"sitewatch/internal/stats"
)

// RetentionJob sweeps up what a crashed run can leave behind: orphaned
// snapshot files in the buffers directory and realtime samples that outlived
// the window because no commit ran to prune them.
type RetentionJob struct {
	dbm    *database.DBManager
	logger *slog.Logger
	cfg    *config.Config
}

func NewRetentionJob(cfg *config.Config, dbm *database.DBManager, logger *slog.Logger) *RetentionJob {
	return &RetentionJob{dbm: dbm, logger: logger, cfg: cfg}
}

// Run removes stale snapshot files and prunes expired realtime samples for
// every tracked domain.
func (j *RetentionJob) Run() error {
	j.sweepOrphanedSnapshots()
	return j.pruneRealtime()
}

// sweepOrphanedSnapshots deletes *.processing leftovers older than the
// configured age. An in-flight run's snapshot is always younger than the
// cutoff, so only crash remnants are removed.
func (j *RetentionJob) sweepOrphanedSnapshots() {
	pattern := filepath.Join(j.cfg.BuffersDirectory(), "*.processing")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		j.logger.Warn("Failed to scan for orphaned snapshots", slog.Any("error", err))
		return
	}

	cutoff := time.Now().Add(-time.Duration(j.cfg.SnapshotOrphanMaxAgeMinutes) * time.Minute)
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			j.logger.Warn("Failed to remove orphaned snapshot",
				slog.String("path", path),
				slog.Any("error", err))
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("Removed orphaned snapshots", slog.Int("count", removed))
	}
}

func (j *RetentionJob) pruneRealtime() error {
	db := j.dbm.GetConnection()
	all, err := domains.List(db)
	if err != nil {
		return err
	}

	cutoff := time.Now().UTC().Add(-stats.RealtimeWindow).Unix()
	for _, d := range all {
		tables := stats.TablesFor(d.ID)
		if err := db.Exec("DELETE FROM "+tables.RealtimeCounts()+" WHERE ts < ?", cutoff).Error; err != nil {
			j.logger.Warn("Failed to prune realtime samples",
				slog.String("domain", d.Name),
				slog.Any("error", err))
		}
	}
	return nil
}
