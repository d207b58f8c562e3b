package observability

import (
	"io"
	"log/slog"
	"strings"
)

// newLogger builds the process logger. LOG_FORMAT=text switches to logfmt-style
// output for local runs; every record carries the service name.
func newLogger(w io.Writer, settings Settings) *slog.Logger {
	opts := &slog.HandlerOptions{Level: settings.LogLevel, AddSource: settings.LogLevel <= slog.LevelDebug}
	var handler slog.Handler
	if settings.LogFormat == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With(slog.String("service", settings.ServiceName))
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}
