package main

import (
	"log/slog"
	"os"
	"strings"
)

// initLogging installs the default slog logger. Output is JSON when
// RKGREP_JSON_LOG is 1, true or json; RKGREP_LOG_LEVEL picks the level.
func initLogging(service string) *slog.Logger {
	mode := strings.ToLower(os.Getenv("RKGREP_JSON_LOG"))
	json := mode == "1" || mode == "true" || mode == "json"

	opts := &slog.HandlerOptions{Level: levelFromEnv()}
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
	logger.Debug("logging initialized", "json", json)
	return logger
}

func levelFromEnv() slog.Leveler {
	switch strings.ToLower(os.Getenv("RKGREP_LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
