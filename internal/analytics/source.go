// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package analytics records visitor page views and computes dashboard
// statistics from the event log.
package analytics

import (
	"context"

	"github.com/olegiv/sitecms/internal/model"
)

// EventWriter appends visitor events to the event log.
type EventWriter interface {
	Append(ctx context.Context, e model.VisitorEvent) error
}

// EventSource answers aggregate queries over the event log. Ranges are
// inclusive on both ends.
type EventSource interface {
	CountViews(ctx context.Context, r model.TimeRange) (int64, error)
	CountUniqueSessions(ctx context.Context, r model.TimeRange) (int64, error)
	PageViews(ctx context.Context, r model.TimeRange) (map[string]int64, error)
	DeviceCounts(ctx context.Context, r model.TimeRange) (map[string]int64, error)
	Recent(ctx context.Context, limit int) ([]model.VisitorEvent, error)
}

// EventLog is implemented by both the SQL store and the REST client.
type EventLog interface {
	EventWriter
	EventSource
}
