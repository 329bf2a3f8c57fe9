// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/schema"
)

var eventColumns = []string{
	"id", "session_id", "page_path", "referrer", "device_type", "browser", "os",
	"screen_width", "screen_height", "user_agent", "visited_at",
}

// EventLog is the append-only visitor event log. Aggregates are computed by
// the database.
type EventLog struct {
	db      *sql.DB
	dialect Dialect
	sb      squirrel.StatementBuilderType
}

// NewEventLog creates an event log over an open, migrated database.
func NewEventLog(db *sql.DB, dialect Dialect) *EventLog {
	return &EventLog{db: db, dialect: dialect, sb: builder(dialect)}
}

// Append stores one event. A missing id is generated.
func (l *EventLog) Append(ctx context.Context, e model.VisitorEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.VisitedAt.IsZero() {
		e.VisitedAt = time.Now()
	}

	query, args, err := l.sb.Insert(model.TableVisitorEvents).
		Columns(eventColumns...).
		Values(e.ID, e.SessionID, e.PagePath, e.Referrer, e.DeviceType, e.Browser, e.OS,
			e.ScreenWidth, e.ScreenHeight, e.UserAgent, l.timeValue(e.VisitedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return mapError(err)
	}
	return nil
}

// CountViews returns the number of events in the range.
func (l *EventLog) CountViews(ctx context.Context, r model.TimeRange) (int64, error) {
	return l.count(ctx, l.sb.Select("COUNT(*)").
		From(model.TableVisitorEvents).
		Where(l.inRange(r)))
}

// CountUniqueSessions returns the number of distinct non-empty session ids in
// the range.
func (l *EventLog) CountUniqueSessions(ctx context.Context, r model.TimeRange) (int64, error) {
	return l.count(ctx, l.sb.Select("COUNT(DISTINCT session_id)").
		From(model.TableVisitorEvents).
		Where(l.inRange(r)).
		Where(squirrel.NotEq{"session_id": ""}).
		Where(squirrel.NotEq{"session_id": nil}))
}

// PageViews returns event counts per page path. An empty path counts as "/".
func (l *EventLog) PageViews(ctx context.Context, r model.TimeRange) (map[string]int64, error) {
	return l.groupCount(ctx, "COALESCE(NULLIF(page_path, ''), '/')", r)
}

// DeviceCounts returns event counts per device type. An empty type counts as
// "unknown".
func (l *EventLog) DeviceCounts(ctx context.Context, r model.TimeRange) (map[string]int64, error) {
	return l.groupCount(ctx, "COALESCE(NULLIF(device_type, ''), '"+model.DeviceUnknown+"')", r)
}

// Recent returns up to limit events, newest first.
func (l *EventLog) Recent(ctx context.Context, limit int) ([]model.VisitorEvent, error) {
	query, args, err := l.sb.Select(eventColumns...).
		From(model.TableVisitorEvents).
		OrderBy("visited_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer func() { _ = rows.Close() }()

	events := []model.VisitorEvent{}
	for rows.Next() {
		var (
			e         model.VisitorEvent
			referrer  sql.NullString
			visitedAt any
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.PagePath, &referrer, &e.DeviceType, &e.Browser,
			&e.OS, &e.ScreenWidth, &e.ScreenHeight, &e.UserAgent, &visitedAt); err != nil {
			return nil, mapError(err)
		}
		if referrer.Valid {
			e.Referrer = &referrer.String
		}
		if b, ok := visitedAt.([]byte); ok {
			visitedAt = string(b)
		}
		if t, ok := schema.ParseTime(visitedAt); ok {
			e.VisitedAt = t.UTC()
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return events, nil
}

func (l *EventLog) inRange(r model.TimeRange) squirrel.And {
	where := squirrel.And{}
	if !r.From.IsZero() {
		where = append(where, squirrel.GtOrEq{"visited_at": l.timeValue(r.From)})
	}
	if !r.To.IsZero() {
		where = append(where, squirrel.LtOrEq{"visited_at": l.timeValue(r.To)})
	}
	return where
}

func (l *EventLog) count(ctx context.Context, q squirrel.SelectBuilder) (int64, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("building count: %w", err)
	}

	var n int64
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

func (l *EventLog) groupCount(ctx context.Context, expr string, r model.TimeRange) (map[string]int64, error) {
	query, args, err := l.sb.Select(expr+" AS grp", "COUNT(*)").
		From(model.TableVisitorEvents).
		Where(l.inRange(r)).
		GroupBy("grp").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building group count: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			key string
			n   int64
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, mapError(err)
		}
		out[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return out, nil
}

func (l *EventLog) timeValue(t time.Time) any {
	if l.dialect == DialectSQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}
