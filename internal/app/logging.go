package app

import (
	"io"
	"log/slog"
	"strings"

	"github.com/p-n-ai/diplomado/internal/platform/config"
)

// NewLogger builds the process logger from cfg. Unknown levels fall back to info.
func NewLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
