// Package buffer implements the append-only event buffer hand-off. The
// collector appends one serialized event per line to a per-domain buffer file;
// Rotate atomically detaches that file so a run can consume a closed snapshot
// while new events keep landing in a fresh buffer.
package buffer

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sitewatch/internal/domains"
)

const (
	bufferExt   = ".events"
	snapshotExt = ".processing"
)

// Rotator manages the per-domain buffer files under a single directory.
type Rotator struct {
	dir    string
	logger *slog.Logger
}

// NewRotator creates a rotator over the given buffers directory.
func NewRotator(dir string, logger *slog.Logger) *Rotator {
	return &Rotator{dir: dir, logger: logger}
}

// BufferPath returns the buffer file path for a domain name.
func (r *Rotator) BufferPath(name string) string {
	return filepath.Join(r.dir, name+bufferExt)
}

// Snapshots returns the detached snapshot files currently on disk for a
// domain name. Outside of an in-flight run these are crash leftovers.
func (r *Rotator) Snapshots(name string) []string {
	matches, _ := filepath.Glob(r.BufferPath(name) + ".*" + snapshotExt)
	return matches
}

// Known reports whether a buffer file exists for the domain, which is the
// signal that the domain is registered with the collection endpoint.
func (r *Rotator) Known(name string) bool {
	_, err := os.Stat(r.BufferPath(name))
	return err == nil
}

// Rotate detaches the current buffer for the domain and returns it as a
// snapshot. When no buffer exists yet an empty one is created and nil is
// returned, meaning there is no new data to process.
//
// The rename is atomic, so the collector never observes a missing or partial
// target: every append issued after this call lands in the replacement buffer,
// never in the returned snapshot.
func (r *Rotator) Rotate(d domains.Domain) (*Snapshot, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("buffer: failed to create buffers directory: %w", err)
	}

	src := r.BufferPath(d.Name)
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if cerr := createEmpty(src); cerr != nil {
				return nil, fmt.Errorf("buffer: failed to create buffer for %q: %w", d.Name, cerr)
			}
			r.logger.Debug("Created empty buffer", slog.String("domain", d.Name))
			return nil, nil
		}
		return nil, fmt.Errorf("buffer: failed to stat buffer for %q: %w", d.Name, err)
	}

	// A unique snapshot name keeps an orphaned snapshot from a crashed run
	// intact for the retention sweep instead of being overwritten here.
	tmp := fmt.Sprintf("%s.%d%s", src, time.Now().UnixNano(), snapshotExt)
	if err := os.Rename(src, tmp); err != nil {
		return nil, fmt.Errorf("buffer: failed to rotate buffer for %q: %w", d.Name, err)
	}
	if err := createEmpty(src); err != nil {
		return nil, fmt.Errorf("buffer: failed to replace buffer for %q: %w", d.Name, err)
	}

	f, err := os.Open(tmp)
	if err != nil {
		return nil, fmt.Errorf("buffer: failed to open snapshot for %q: %w", d.Name, err)
	}

	return &Snapshot{path: tmp, f: f}, nil
}

// createEmpty ensures an empty buffer file exists at path without truncating
// anything the collector may already have appended.
func createEmpty(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Snapshot is a detached, immutable buffer consumed by exactly one run.
type Snapshot struct {
	path string
	f    *os.File
}

// Path returns the snapshot file path.
func (s *Snapshot) Path() string {
	return s.path
}

// Scanner returns a line scanner over the snapshot.
func (s *Snapshot) Scanner() *bufio.Scanner {
	sc := bufio.NewScanner(s.f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return sc
}

// Close releases the snapshot handle and removes the underlying file. It must
// run on every exit path of a run, including decode failures.
func (s *Snapshot) Close() error {
	cerr := s.f.Close()
	rerr := os.Remove(s.path)
	if cerr != nil {
		return cerr
	}
	return rerr
}
