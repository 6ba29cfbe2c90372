package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// redactedKeys are attribute keys whose values never reach the log output.
var redactedKeys = map[string]bool{
	"api_key":       true,
	"authorization": true,
	"x-api-key":     true,
}

func setupLogger(level, format string) *slog.Logger {
	return newLogger(os.Stdout, level, format)
}

// newLogger builds the process logger. Unknown levels fall back to info and
// unknown formats to JSON; validateFlags rejects both before we get here.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := parseLogLevel(level)
	opts := &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   lvl <= slog.LevelDebug,
		ReplaceAttr: redactSecrets,
	}

	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With(
		"service", appName,
		"version", Version,
		"pid", os.Getpid(),
	)
}

func parseLogLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// redactSecrets masks credentials that slip into log attributes, such as
// forwarded headers logged at debug level.
func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if redactedKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}
