// Package logging builds the application logger on top of log/slog with
// size-based file rotation in production.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"sitewatch/internal/config"
)

// NewLogger returns a slog.Logger configured from the application config.
// Development and test environments log text to stdout; production logs JSON
// to a rotated file and stdout.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.LogLevel)

	if !cfg.IsProduction() {
		handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		return slog.New(handler)
	}

	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogsDirectory, cfg.AppName+".log"),
		MaxSize:    cfg.LogsMaxSizeInMb,
		MaxBackups: cfg.LogsMaxBackups,
		MaxAge:     cfg.LogsMaxAgeInDays,
		Compress:   true,
	}

	handler := slog.NewJSONHandler(io.MultiWriter(os.Stdout, rotated), &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func parseLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn:
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
