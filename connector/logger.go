package connector

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn or error
	Format string `json:"format" yaml:"format"` // "json" or "text"
}

// NewLogger builds a logger writing to w, or stderr when w is nil. Unknown
// levels fall back to info.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
