package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the process-wide JSON logger. An explicit level from config wins;
// otherwise dev environments log debug and everything else info.
func New(env, level string) *slog.Logger {
	lv := slog.LevelInfo
	if env == "dev" {
		lv = slog.LevelDebug
	}
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "info":
		lv = slog.LevelInfo
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	}
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lv})
	return slog.New(h)
}
