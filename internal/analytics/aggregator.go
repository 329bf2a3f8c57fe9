// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/olegiv/sitecms/internal/cache"
	"github.com/olegiv/sitecms/internal/logging"
	"github.com/olegiv/sitecms/internal/model"
)

// Recent limits
const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

// Aggregator computes dashboard statistics. Read failures degrade to empty
// results and are logged; callers always get a usable value.
type Aggregator struct {
	source EventSource
	logger *slog.Logger
	loc    *time.Location
	stats  *cache.JSON[model.Stats]
	store  cache.Cache
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithLocation sets the time zone that bare dates are interpreted in.
func WithLocation(loc *time.Location) AggregatorOption {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithCache caches complete statistics for ttl.
func WithCache(c cache.Cache, ttl time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if c != nil {
			a.stats = cache.NewJSON[model.Stats](c, ttl)
			a.store = c
		}
	}
}

// NewAggregator creates an aggregator over source.
func NewAggregator(source EventSource, logger *slog.Logger, opts ...AggregatorOption) *Aggregator {
	if logger == nil {
		logger = logging.Discard()
	}
	a := &Aggregator{source: source, logger: logger, loc: time.UTC}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Location returns the time zone used for bare dates.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// CacheStats reports the stats cache counters. ok is false when no cache
// is configured.
func (a *Aggregator) CacheStats() (stats cache.Stats, ok bool) {
	if a.store == nil {
		return cache.Stats{}, false
	}
	return a.store.Stats(), true
}

// ComputeStats returns statistics for the inclusive range [start, end].
// Bounds are YYYY-MM-DD dates or RFC 3339 timestamps; an empty or malformed
// bound is unbounded. With a stats cache configured, a result may be served
// from the cache for up to its TTL, so ranges covering the current day can
// lag recent page views by that long. The Warmer refreshes the dashboard
// presets on its own schedule.
func (a *Aggregator) ComputeStats(ctx context.Context, start, end string) model.Stats {
	r := model.TimeRange{}
	if from, err := parseBound(start, false, a.loc); err != nil {
		logging.Soft(a.logger, "parse stats start", fmt.Errorf("%w: %w", model.ErrInvalidArgument, err))
	} else {
		r.From = from
	}
	if to, err := parseBound(end, true, a.loc); err != nil {
		logging.Soft(a.logger, "parse stats end", fmt.Errorf("%w: %w", model.ErrInvalidArgument, err))
	} else {
		r.To = to
	}

	return a.StatsForRange(ctx, r)
}

// StatsForRange returns statistics for an already parsed range.
func (a *Aggregator) StatsForRange(ctx context.Context, r model.TimeRange) model.Stats {
	if a.stats == nil {
		stats, _ := a.compute(ctx, r)
		return stats
	}

	key := statsKey(r)
	if stats, ok := a.stats.Get(ctx, key); ok {
		return stats
	}

	stats, complete := a.compute(ctx, r)
	if complete {
		if err := a.stats.Set(ctx, key, stats); err != nil {
			a.logger.Warn("failed to cache stats", "error", err)
		}
	}
	return stats
}

// Refresh recomputes statistics for r and replaces any cached value.
func (a *Aggregator) Refresh(ctx context.Context, r model.TimeRange) error {
	stats, complete := a.compute(ctx, r)
	if !complete {
		return fmt.Errorf("computing stats: %w", model.ErrBackendUnavailable)
	}
	if a.stats == nil {
		return nil
	}
	return a.stats.Set(ctx, statsKey(r), stats)
}

// compute runs the four aggregate queries concurrently. complete is false
// when any of them degraded.
func (a *Aggregator) compute(ctx context.Context, r model.TimeRange) (model.Stats, bool) {
	stats := model.EmptyStats()
	attrs := []any{"from", r.From, "to", r.To}

	var (
		g      errgroup.Group
		failed atomic.Bool
	)
	// Failures are logged and recorded, never returned, so one degraded
	// query does not cancel the others.
	run := func(op string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				logging.Soft(a.logger, op, err, attrs...)
				failed.Store(true)
			}
			return nil
		})
	}

	run("count views", func() error {
		n, err := a.source.CountViews(ctx, r)
		if err != nil {
			return err
		}
		stats.TotalViews = n
		return nil
	})
	run("count unique sessions", func() error {
		n, err := a.source.CountUniqueSessions(ctx, r)
		if err != nil {
			return err
		}
		stats.UniqueVisitors = n
		return nil
	})
	run("page views", func() error {
		m, err := a.source.PageViews(ctx, r)
		if err == nil && m != nil {
			stats.PageViews = m
		}
		return err
	})
	run("device counts", func() error {
		m, err := a.source.DeviceCounts(ctx, r)
		if err == nil && m != nil {
			stats.DeviceStats = m
		}
		return err
	})
	_ = g.Wait()

	return stats, !failed.Load()
}

// Recent returns up to limit events, newest first. limit is clamped to
// [1, MaxRecentLimit]; a non-positive limit uses DefaultRecentLimit.
func (a *Aggregator) Recent(ctx context.Context, limit int) []model.VisitorEvent {
	events, err := a.source.Recent(ctx, ClampLimit(limit))
	if err != nil {
		logging.Soft(a.logger, "recent visitor events", err, "limit", limit)
		return []model.VisitorEvent{}
	}
	if events == nil {
		return []model.VisitorEvent{}
	}
	return events
}

// ClampLimit bounds a requested event limit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultRecentLimit
	case limit > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return limit
	}
}

func statsKey(r model.TimeRange) string {
	return "stats:" + boundKey(r.From) + ":" + boundKey(r.To)
}

func boundKey(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339Nano)
}
