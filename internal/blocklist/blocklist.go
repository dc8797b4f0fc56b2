// Package blocklist filters referrer URLs against a list of substrings loaded
// from a text file, one entry per line.
package blocklist

import (
	"bufio"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// List holds the loaded blocklist. It is constructed once at startup and
// passed by reference to the aggregation run; Reload re-reads the file, which
// tests and operators use instead of restarting the process.
type List struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries []string
}

// New loads the blocklist from path. A missing file yields an empty list, not
// an error.
func New(path string, logger *slog.Logger) (*List, error) {
	l := &List{path: path, logger: logger}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the blocklist file, replacing the current entries.
func (l *List) Reload() error {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.mu.Lock()
			l.entries = nil
			l.mu.Unlock()
			l.logger.Debug("No blocklist file, referrer filtering disabled", slog.String("path", l.path))
			return nil
		}
		return err
	}
	defer f.Close()

	var entries []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		entry := strings.TrimSpace(sc.Text())
		if entry != "" {
			entries = append(entries, entry)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()

	l.logger.Debug("Loaded blocklist", slog.Int("entries", len(entries)))
	return nil
}

// IsBlocked reports whether the referrer URL contains any blocklist entry as a
// substring. There is no anchoring or normalization; containment anywhere in
// the URL blocks it. An empty referrer is never blocked.
func (l *List) IsBlocked(referrer string) bool {
	if referrer == "" {
		return false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, entry := range l.entries {
		if strings.Contains(referrer, entry) {
			return true
		}
	}
	return false
}

// Len returns the number of loaded entries.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
