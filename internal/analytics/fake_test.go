// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/olegiv/sitecms/internal/model"
)

// memoryLog is an in-memory EventLog. err, when set, fails every call.
type memoryLog struct {
	mu     sync.Mutex
	events []model.VisitorEvent
	err    error
	calls  int
}

func (l *memoryLog) fail() error {
	l.calls++
	return l.err
}

func (l *memoryLog) Append(_ context.Context, e model.VisitorEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.fail(); err != nil {
		return err
	}
	l.events = append(l.events, e)
	return nil
}

func inside(r model.TimeRange, t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	return r.To.IsZero() || !t.After(r.To)
}

func (l *memoryLog) inRange(r model.TimeRange) []model.VisitorEvent {
	var out []model.VisitorEvent
	for _, e := range l.events {
		if inside(r, e.VisitedAt) {
			out = append(out, e)
		}
	}
	return out
}

func (l *memoryLog) CountViews(_ context.Context, r model.TimeRange) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.fail(); err != nil {
		return 0, err
	}
	return int64(len(l.inRange(r))), nil
}

func (l *memoryLog) CountUniqueSessions(_ context.Context, r model.TimeRange) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.fail(); err != nil {
		return 0, err
	}
	seen := map[string]bool{}
	for _, e := range l.inRange(r) {
		if e.SessionID != "" {
			seen[e.SessionID] = true
		}
	}
	return int64(len(seen)), nil
}

func (l *memoryLog) group(r model.TimeRange, key func(model.VisitorEvent) string) (map[string]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.fail(); err != nil {
		return nil, err
	}
	out := map[string]int64{}
	for _, e := range l.inRange(r) {
		out[key(e)]++
	}
	return out, nil
}

func (l *memoryLog) PageViews(_ context.Context, r model.TimeRange) (map[string]int64, error) {
	return l.group(r, func(e model.VisitorEvent) string { return cmp.Or(e.PagePath, "/") })
}

func (l *memoryLog) DeviceCounts(_ context.Context, r model.TimeRange) (map[string]int64, error) {
	return l.group(r, func(e model.VisitorEvent) string { return cmp.Or(e.DeviceType, model.DeviceUnknown) })
}

func (l *memoryLog) Recent(_ context.Context, limit int) ([]model.VisitorEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.fail(); err != nil {
		return nil, err
	}
	out := slices.Clone(l.events)
	slices.SortFunc(out, func(a, b model.VisitorEvent) int { return b.VisitedAt.Compare(a.VisitedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (l *memoryLog) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

var _ EventLog = (*memoryLog)(nil)
