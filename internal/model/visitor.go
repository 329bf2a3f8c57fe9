// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Device types
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

// IsValidDeviceType reports whether t is a device class stored on events.
// Bot and unknown are classification results, never stored values.
func IsValidDeviceType(t string) bool {
	switch t {
	case DeviceMobile, DeviceTablet, DeviceDesktop:
		return true
	}
	return false
}

// TableVisitorEvents is the storage table of the visitor event log.
const TableVisitorEvents = "visitor_events"

// VisitorEvent is a single page view. Events are append-only.
type VisitorEvent struct {
	ID           string    `json:"id,omitempty"`
	SessionID    string    `json:"sessionId"`
	PagePath     string    `json:"pagePath"`
	Referrer     *string   `json:"referrer"`
	DeviceType   string    `json:"deviceType"`
	Browser      string    `json:"browser"`
	OS           string    `json:"os"`
	ScreenWidth  int       `json:"screenWidth"`
	ScreenHeight int       `json:"screenHeight"`
	UserAgent    string    `json:"userAgent,omitempty"`
	VisitedAt    time.Time `json:"visitedAt"`
}

// TimeRange is an inclusive [From, To] window. A zero bound is unbounded.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Stats holds aggregate visitor statistics for a time range.
type Stats struct {
	TotalViews     int64            `json:"totalViews"`
	UniqueVisitors int64            `json:"uniqueVisitors"`
	PageViews      map[string]int64 `json:"pageViews"`
	DeviceStats    map[string]int64 `json:"deviceStats"`
}

// EmptyStats returns zeroed stats with non-nil maps.
func EmptyStats() Stats {
	return Stats{
		PageViews:   map[string]int64{},
		DeviceStats: map[string]int64{},
	}
}
