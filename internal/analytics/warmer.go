// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/sitecms/internal/logging"
	"github.com/olegiv/sitecms/internal/model"
)

// DefaultWarmSchedule refreshes dashboard stats every five minutes.
const DefaultWarmSchedule = "*/5 * * * *"

// Warmer periodically precomputes the dashboard's default stats ranges so
// the first dashboard load is served from cache.
type Warmer struct {
	aggregator *Aggregator
	logger     *slog.Logger
	cron       *cron.Cron
	now        func() time.Time
}

// NewWarmer creates a warmer for aggregator.
func NewWarmer(aggregator *Aggregator, logger *slog.Logger) *Warmer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Warmer{
		aggregator: aggregator,
		logger:     logger,
		cron:       cron.New(cron.WithLocation(aggregator.Location())),
		now:        time.Now,
	}
}

// addCronJob registers a cron job with timeout and error logging.
func (w *Warmer) addCronJob(schedule string, timeout time.Duration, jobFunc func(context.Context) error, errMsg string) error {
	_, err := w.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := jobFunc(ctx); err != nil {
			logging.Soft(w.logger, errMsg, err)
		}
	})
	return err
}

// Start schedules the warm job and begins running it.
func (w *Warmer) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultWarmSchedule
	}
	if err := w.addCronJob(schedule, time.Minute, w.Warm, "stats warm-up failed"); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Debug("stats warmer started", "schedule", schedule)
	return nil
}

// Stop stops scheduling and waits for a running job to finish.
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
}

// Warm refreshes the cached stats for all time, the last 7 days and the
// last 30 days.
func (w *Warmer) Warm(ctx context.Context) error {
	for _, r := range w.ranges() {
		if err := w.aggregator.Refresh(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// ranges returns the dashboard presets as whole days in the aggregator's
// location, matching what ComputeStats derives from bare dates.
func (w *Warmer) ranges() []model.TimeRange {
	loc := w.aggregator.Location()
	today := w.now().In(loc).Format(dateLayout)

	out := []model.TimeRange{{}}
	for _, days := range []int{7, 30} {
		start := w.now().In(loc).AddDate(0, 0, -(days - 1)).Format(dateLayout)
		r, err := ParseRange(start, today, loc)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}
