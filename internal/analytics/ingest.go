// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/olegiv/sitecms/internal/logging"
	"github.com/olegiv/sitecms/internal/model"
)

const (
	maxUserAgentLength = 512
	maxPathLength      = 2048
)

// Ingestor records visitor events. Recording is best effort: failures are
// logged and never returned, so analytics outages cannot break navigation.
type Ingestor struct {
	writer EventWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewIngestor creates an ingestor writing to w.
func NewIngestor(w EventWriter, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Ingestor{writer: w, logger: logger, now: time.Now}
}

// Record appends one event after filling derived metadata. Bot traffic is
// dropped.
func (i *Ingestor) Record(ctx context.Context, e model.VisitorEvent) {
	e, ok := i.prepare(e)
	if !ok {
		i.logger.Debug("dropping bot page view", "path", e.PagePath, "browser", e.Browser)
		return
	}

	if err := i.writer.Append(ctx, e); err != nil {
		logging.Soft(i.logger, "record visitor event", err, "path", e.PagePath)
	}
}

// prepare normalizes e and reports whether it should be stored.
func (i *Ingestor) prepare(e model.VisitorEvent) (model.VisitorEvent, bool) {
	e.UserAgent = truncate(strings.TrimSpace(e.UserAgent), maxUserAgentLength)
	e.PagePath = truncate(strings.TrimSpace(e.PagePath), maxPathLength)
	if e.PagePath == "" {
		e.PagePath = "/"
	}
	if e.Referrer != nil && strings.TrimSpace(*e.Referrer) == "" {
		e.Referrer = nil
	}
	if e.VisitedAt.IsZero() {
		e.VisitedAt = i.now()
	}
	e.VisitedAt = e.VisitedAt.UTC()
	if !model.IsValidDeviceType(e.DeviceType) {
		e.DeviceType = ""
	}

	if e.UserAgent != "" {
		ua := parseUserAgent(e.UserAgent)
		if ua.DeviceType == model.DeviceBot {
			e.Browser = ua.Browser
			return e, false
		}
		if e.DeviceType == "" {
			e.DeviceType = ua.DeviceType
		}
		if e.Browser == "" {
			e.Browser = ua.Browser
		}
		if e.OS == "" {
			e.OS = ua.OS
		}
	}
	if e.DeviceType == "" {
		e.DeviceType = deviceFromScreen(e.ScreenWidth)
	}

	return e, true
}

// EnsureSessionID returns id, or a new random session id when id is blank.
func EnsureSessionID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
