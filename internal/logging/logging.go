// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging builds the application slog logger and records degraded
// operations so that expected soft failures stay distinguishable from bugs.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/olegiv/sitecms/internal/model"
)

// Log formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ParseLevel converts a configured level name into a slog.Level.
// Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger writing to w in the given format.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Soft records a failure that the caller degrades to a default value.
// Expected failures (backend unavailable, not found) are logged at WARN;
// anything else is a likely bug and logged at ERROR. Context cancellation is
// the caller's decision and only logged at DEBUG.
func Soft(logger *slog.Logger, op string, err error, attrs ...any) {
	if logger == nil || err == nil {
		return
	}

	args := append([]any{"op", op, "error", err}, attrs...)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Debug("operation abandoned by caller", args...)
	case model.IsSoft(err):
		logger.Warn("degraded to default value", append(args, "soft", true)...)
	default:
		logger.Error("unexpected failure, degraded to default value", append(args, "soft", false)...)
	}
}
