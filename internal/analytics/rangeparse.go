// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/sitecms/internal/model"
)

const dateLayout = "2006-01-02"

// ParseRange parses inclusive range bounds. A bare date (YYYY-MM-DD) covers
// the whole day in loc: start becomes 00:00:00.000 and end 23:59:59.999.
// RFC 3339 timestamps are used as given. An empty bound is unbounded.
func ParseRange(start, end string, loc *time.Location) (model.TimeRange, error) {
	return ParseNamedRange("start", start, "end", end, loc)
}

// ParseNamedRange is ParseRange for bounds that arrive under other parameter
// names; validation errors name startName and endName.
func ParseNamedRange(startName, start, endName, end string, loc *time.Location) (model.TimeRange, error) {
	from, err := parseBound(start, false, loc)
	if err != nil {
		return model.TimeRange{}, model.NewValidationError(startName, err.Error())
	}
	to, err := parseBound(end, true, loc)
	if err != nil {
		return model.TimeRange{}, model.NewValidationError(endName, err.Error())
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return model.TimeRange{}, model.NewValidationError(startName, "must not be after "+endName)
	}
	return model.TimeRange{From: from, To: to}, nil
}

func parseBound(s string, isEnd bool, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	if day, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		if isEnd {
			return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, int(999*time.Millisecond), loc), nil
		}
		return day, nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC 3339 timestamp, got %q", s)
	}
	return t, nil
}
