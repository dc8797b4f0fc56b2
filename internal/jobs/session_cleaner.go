package jobs

import (
	"log/slog"

	"sitewatch/internal/aggregate"
)

// LoggingSessionCleaner is the default session-cleanup collaborator. The real
// stale-session cleanup task lives outside this service; this implementation
// only records that the signal fired so the hand-off is observable.
type LoggingSessionCleaner struct {
	logger *slog.Logger
}

func NewLoggingSessionCleaner(logger *slog.Logger) *LoggingSessionCleaner {
	return &LoggingSessionCleaner{logger: logger}
}

var _ aggregate.SessionCleaner = (*LoggingSessionCleaner)(nil)

// CleanupStaleSessions logs the fire-and-forget cleanup signal.
func (c *LoggingSessionCleaner) CleanupStaleSessions() {
	c.logger.Debug("Session cleanup signal sent")
}
