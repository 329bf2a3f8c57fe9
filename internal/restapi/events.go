// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package restapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/olegiv/sitecms/internal/model"
)

const eventsPath = "/visitor_events"

// Append stores one visitor event.
func (c *Client) Append(ctx context.Context, e model.VisitorEvent) error {
	_, err := c.do(ctx, http.MethodPost, eventsPath, nil, e, nil)
	return err
}

// CountViews returns the number of events in the range.
func (c *Client) CountViews(ctx context.Context, r model.TimeRange) (int64, error) {
	return c.countEvents(ctx, "/views", r)
}

// CountUniqueSessions returns the number of distinct sessions in the range.
func (c *Client) CountUniqueSessions(ctx context.Context, r model.TimeRange) (int64, error) {
	return c.countEvents(ctx, "/sessions", r)
}

// PageViews returns event counts per page path.
func (c *Client) PageViews(ctx context.Context, r model.TimeRange) (map[string]int64, error) {
	return c.groupEvents(ctx, "/pages", r)
}

// DeviceCounts returns event counts per device type.
func (c *Client) DeviceCounts(ctx context.Context, r model.TimeRange) (map[string]int64, error) {
	return c.groupEvents(ctx, "/devices", r)
}

// Recent returns up to limit events, newest first.
func (c *Client) Recent(ctx context.Context, limit int) ([]model.VisitorEvent, error) {
	values := url.Values{}
	values.Set("limit", strconv.Itoa(limit))

	var events []model.VisitorEvent
	if _, err := c.do(ctx, http.MethodGet, eventsPath, values, nil, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.VisitorEvent{}
	}
	for i := range events {
		events[i].VisitedAt = events[i].VisitedAt.UTC()
	}
	return events, nil
}

func (c *Client) countEvents(ctx context.Context, suffix string, r model.TimeRange) (int64, error) {
	var res countResult
	if _, err := c.do(ctx, http.MethodGet, eventsPath+suffix, rangeValues(r), nil, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

func (c *Client) groupEvents(ctx context.Context, suffix string, r model.TimeRange) (map[string]int64, error) {
	out := map[string]int64{}
	if _, err := c.do(ctx, http.MethodGet, eventsPath+suffix, rangeValues(r), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// rangeValues encodes an inclusive range; zero bounds are omitted.
func rangeValues(r model.TimeRange) url.Values {
	values := url.Values{}
	if !r.From.IsZero() {
		values.Set("from", r.From.UTC().Format(time.RFC3339Nano))
	}
	if !r.To.IsZero() {
		values.Set("to", r.To.UTC().Format(time.RFC3339Nano))
	}
	return values
}
