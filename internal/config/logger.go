package config

import (
	"fmt"
	"io"
	"log/slog"
)

// NewLogger returns a text logger writing to w at the named level ("debug",
// "info", "warn" or "error"). A silent logger discards everything.
func NewLogger(w io.Writer, level string, silent bool) (*slog.Logger, error) {
	if silent {
		return slog.New(slog.DiscardHandler), nil
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
