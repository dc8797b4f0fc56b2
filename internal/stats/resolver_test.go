package stats_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitewatch/internal/stats"
	"sitewatch/internal/testsupport"
)

func TestResolveDimensionsAssignsAndReturnsIds(t *testing.T) {
	dbm, _ := testsupport.SetupTestDBManager(t)
	db := dbm.GetConnection()
	d := testsupport.CreateTestDomain(t, db, "resolve.example")
	tables := stats.TablesFor(d.ID)

	ids, err := stats.ResolveDimensions(context.Background(), db, dbm.Dialect(), tables.PageURLs(), []string{"/a", "/b", "/c"})
	require.NoError(t, err)

	require.Len(t, ids, 3)
	seen := make(map[int64]bool)
	for _, id := range ids {
		assert.Greater(t, id, int64(0))
		assert.False(t, seen[id], "ids must be distinct")
		seen[id] = true
	}
}

func TestResolveDimensionsIdsAreStableAcrossRuns(t *testing.T) {
	dbm, _ := testsupport.SetupTestDBManager(t)
	db := dbm.GetConnection()
	d := testsupport.CreateTestDomain(t, db, "stable.example")
	tables := stats.TablesFor(d.ID)
	ctx := context.Background()

	first, err := stats.ResolveDimensions(ctx, db, dbm.Dialect(), tables.PageURLs(), []string{"/a", "/b"})
	require.NoError(t, err)

	// Second run mixes known and new URLs; known ones keep their ids.
	second, err := stats.ResolveDimensions(ctx, db, dbm.Dialect(), tables.PageURLs(), []string{"/b", "/c"})
	require.NoError(t, err)

	assert.Equal(t, first["/b"], second["/b"])
	assert.NotEqual(t, second["/b"], second["/c"])

	var count int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM "+tables.PageURLs()).Scan(&count).Error)
	assert.Equal(t, int64(3), count, "re-resolving a url must not duplicate it")
}

func TestResolveDimensionsEmptySet(t *testing.T) {
	dbm, _ := testsupport.SetupTestDBManager(t)
	db := dbm.GetConnection()
	d := testsupport.CreateTestDomain(t, db, "empty.example")
	tables := stats.TablesFor(d.ID)

	ids, err := stats.ResolveDimensions(context.Background(), db, dbm.Dialect(), tables.PageURLs(), nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	var count int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM "+tables.PageURLs()).Scan(&count).Error)
	assert.Zero(t, count)
}

func TestResolveDimensionsIsolatedPerDomain(t *testing.T) {
	dbm, _ := testsupport.SetupTestDBManager(t)
	db := dbm.GetConnection()
	first := testsupport.CreateTestDomain(t, db, "one.example")
	second := testsupport.CreateTestDomain(t, db, "two.example")
	ctx := context.Background()

	_, err := stats.ResolveDimensions(ctx, db, dbm.Dialect(), stats.TablesFor(first.ID).PageURLs(), []string{"/only-one"})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM "+stats.TablesFor(second.ID).PageURLs()).Scan(&count).Error)
	assert.Zero(t, count, "dimension tables must not leak across domains")
}
