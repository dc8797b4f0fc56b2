package jobs_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitewatch/internal/jobs"
	"sitewatch/internal/stats"
	"sitewatch/internal/testsupport"
)

func TestRetentionJobRemovesOrphanedSnapshots(t *testing.T) {
	dbm, log := testsupport.SetupTestDBManager(t)
	cfg := newTestConfig(t)
	cfg.SnapshotOrphanMaxAgeMinutes = 60

	buffers := cfg.BuffersDirectory()
	require.NoError(t, os.MkdirAll(buffers, 0o755))

	stale := filepath.Join(buffers, "old.example.events.processing")
	require.NoError(t, os.WriteFile(stale, []byte(`["/a", true, true, ""]`+"\n"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(buffers, "live.example.events.processing")
	require.NoError(t, os.WriteFile(fresh, nil, 0o644))

	job := jobs.NewRetentionJob(cfg, dbm, log)
	require.NoError(t, job.Run())

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale snapshot should be swept")
	_, err = os.Stat(fresh)
	assert.NoError(t, err, "a recent snapshot belongs to an in-flight run")
}

func TestRetentionJobPrunesExpiredRealtimeSamples(t *testing.T) {
	dbm, log := testsupport.SetupTestDBManager(t)
	db := dbm.GetConnection()
	cfg := newTestConfig(t)

	d := testsupport.CreateTestDomain(t, db, "prune.example")
	tables := stats.TablesFor(d.ID)

	now := time.Now().UTC()
	insert := fmt.Sprintf("INSERT INTO %s (ts, count) VALUES (?, ?)", tables.RealtimeCounts())
	require.NoError(t, db.Exec(insert, now.Add(-stats.RealtimeWindow-time.Minute).Unix(), 5).Error)
	require.NoError(t, db.Exec(insert, now.Add(-time.Minute).Unix(), 3).Error)

	job := jobs.NewRetentionJob(cfg, dbm, log)
	require.NoError(t, job.Run())

	var rows int64
	require.NoError(t, db.Raw(
		fmt.Sprintf("SELECT COUNT(*) FROM %s", tables.RealtimeCounts()),
	).Scan(&rows).Error)
	assert.Equal(t, int64(1), rows)

	sum, err := stats.RealtimePageViews(db, d.ID, now)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sum)
}
