// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/sitecms/internal/cache"
	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/testutil"
)

func TestWarmer_WarmFillsDashboardRanges(t *testing.T) {
	log := &memoryLog{events: scenarioEvents()}
	mem := cache.NewMemoryCache(cache.MemoryOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })
	a := NewAggregator(log, testutil.TestLoggerSilent(), WithCache(mem, time.Minute))

	w := NewWarmer(a, testutil.TestLoggerSilent())
	w.now = func() time.Time { return fixedNow }

	require.NoError(t, w.Warm(context.Background()))
	assert.Equal(t, 3, mem.Stats().Items)

	// A dashboard request for the last 7 days is now a cache hit.
	calls := log.callCount()
	stats := a.ComputeStats(context.Background(), "2026-03-04", "2026-03-10")
	assert.Equal(t, int64(3), stats.TotalViews)
	assert.Equal(t, calls, log.callCount())
}

func TestWarmer_Ranges(t *testing.T) {
	a := NewAggregator(&memoryLog{}, nil)
	w := NewWarmer(a, nil)
	w.now = func() time.Time { return fixedNow }

	ranges := w.ranges()
	require.Len(t, ranges, 3)
	assert.Equal(t, model.TimeRange{}, ranges[0])
	assert.True(t, ranges[1].From.Equal(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)))
	assert.True(t, ranges[2].From.Equal(time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)))
	assert.True(t, ranges[2].To.Equal(time.Date(2026, 3, 10, 23, 59, 59, 999_000_000, time.UTC)))
}

func TestWarmer_StartStop(t *testing.T) {
	w := NewWarmer(NewAggregator(&memoryLog{}, nil), nil)

	assert.Error(t, w.Start("not a schedule"))

	w = NewWarmer(NewAggregator(&memoryLog{}, nil), nil)
	require.NoError(t, w.Start(""))
	w.Stop()
}

func TestWarmer_WarmReportsBackendFailure(t *testing.T) {
	log := &memoryLog{err: model.ErrBackendUnavailable}
	w := NewWarmer(NewAggregator(log, testutil.TestLoggerSilent()), testutil.TestLoggerSilent())

	assert.ErrorIs(t, w.Warm(context.Background()), model.ErrBackendUnavailable)
}
