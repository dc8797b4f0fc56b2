package buffer_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitewatch/internal/buffer"
	"sitewatch/internal/domains"
	"sitewatch/internal/testsupport"
)

func TestRotateCreatesBufferWhenMissing(t *testing.T) {
	dir := t.TempDir()
	r := buffer.NewRotator(dir, testsupport.GetLogger())
	d := domains.Domain{ID: 1, Name: "example.com"}

	assert.False(t, r.Known(d.Name))

	snap, err := r.Rotate(d)
	require.NoError(t, err)
	assert.Nil(t, snap)

	// The empty buffer now exists, meaning the domain is known to the collector.
	assert.True(t, r.Known(d.Name))
	info, err := os.Stat(r.BufferPath(d.Name))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestRotateDetachesSnapshotAndReplacesBuffer(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteBufferFile(t, dir, "example.com",
		`["/a", true, true, ""]`,
		`["/b", false, false, ""]`,
	)

	r := buffer.NewRotator(dir, testsupport.GetLogger())
	d := domains.Domain{ID: 1, Name: "example.com"}

	snap, err := r.Rotate(d)
	require.NoError(t, err)
	require.NotNil(t, snap)

	// A fresh empty buffer is in place; appends land there, not in the snapshot.
	info, err := os.Stat(r.BufferPath(d.Name))
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	f, err := os.OpenFile(r.BufferPath(d.Name), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`["/c", false, false, ""]` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	var lines []string
	sc := snap.Scanner()
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, []string{`["/a", true, true, ""]`, `["/b", false, false, ""]`}, lines)

	require.NoError(t, snap.Close())
	_, err = os.Stat(snap.Path())
	assert.True(t, os.IsNotExist(err), "snapshot file should be removed on close")
}

func TestRotateEmptyBufferYieldsEmptySnapshot(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteBufferFile(t, dir, "example.com")

	r := buffer.NewRotator(dir, testsupport.GetLogger())
	snap, err := r.Rotate(domains.Domain{ID: 1, Name: "example.com"})
	require.NoError(t, err)
	require.NotNil(t, snap)
	defer snap.Close()

	sc := snap.Scanner()
	assert.False(t, sc.Scan())
	require.NoError(t, sc.Err())
}

func TestBufferPathNaming(t *testing.T) {
	r := buffer.NewRotator("/tmp/buffers", testsupport.GetLogger())
	assert.Equal(t, filepath.Join("/tmp/buffers", "example.com.events"), r.BufferPath("example.com"))
}

func TestRotatePreservesOrphanedSnapshots(t *testing.T) {
	dir := t.TempDir()
	r := buffer.NewRotator(dir, testsupport.GetLogger())
	d := domains.Domain{ID: 1, Name: "example.com"}

	// A snapshot left behind by a crashed run.
	orphan := r.BufferPath(d.Name) + ".1.processing"
	require.NoError(t, os.WriteFile(orphan, []byte(`["/lost", true, true, ""]`+"\n"), 0o644))

	testsupport.WriteBufferFile(t, dir, d.Name, `["/a", false, true, ""]`)

	snap, err := r.Rotate(d)
	require.NoError(t, err)
	require.NotNil(t, snap)
	defer snap.Close()

	assert.NotEqual(t, orphan, snap.Path())
	data, err := os.ReadFile(orphan)
	require.NoError(t, err)
	assert.Equal(t, `["/lost", true, true, ""]`+"\n", string(data), "orphan is left for the retention sweep")

	assert.Len(t, r.Snapshots(d.Name), 2)
}
