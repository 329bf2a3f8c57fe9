// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package repository

import (
	"context"
	"time"

	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/schema"
)

// Newsletter storage columns.
const (
	columnPublished   = "published"
	columnPublishedAt = "published_at"
)

// StampPublished keeps a published newsletter row from being stored without
// a published_at. A row that sets published to true without a timestamp gets
// now, unless id names a stored row that already has one. Other tables and
// other rows pass through unchanged.
func StampPublished(ctx context.Context, b Backend, table, id string, row model.Row, now time.Time) (model.Row, error) {
	if table != model.CollectionNewsletters {
		return row, nil
	}
	if published, ok := schema.Coerce(model.KindBool, row[columnPublished]); !ok || published != true {
		return row, nil
	}
	if !blank(row[columnPublishedAt]) {
		return row, nil
	}

	if id != "" {
		current, err := b.Get(ctx, table, id)
		if err != nil {
			return nil, err
		}
		if !blank(current[columnPublishedAt]) {
			return row, nil
		}
	}

	out := make(model.Row, len(row)+1)
	for k, v := range row {
		out[k] = v
	}
	out[columnPublishedAt] = now.UTC()
	return out, nil
}

func blank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []byte:
		return len(val) == 0
	}
	return false
}
