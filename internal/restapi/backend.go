// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package restapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/schema"
)

// upsertResult mirrors the upsert response body.
type upsertResult struct {
	Row      model.Row `json:"row"`
	Inserted bool      `json:"inserted"`
}

type countResult struct {
	Count int64 `json:"count"`
}

// List returns rows matching q.
func (c *Client) List(ctx context.Context, table string, q model.Query) ([]model.Row, error) {
	values, err := filterValues(q.Filters)
	if err != nil {
		return nil, err
	}
	if q.OrderBy != "" {
		values.Set("order", q.OrderBy)
	}
	if q.Asc {
		values.Set("asc", "true")
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}

	var rows []model.Row
	if _, err := c.do(ctx, http.MethodGet, collectionPath(table), values, nil, &rows); err != nil {
		return nil, err
	}

	out := make([]model.Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, normalize(table, row))
	}
	return out, nil
}

// Count returns the number of rows matching the equality filters.
func (c *Client) Count(ctx context.Context, table string, filters map[string]any) (int64, error) {
	values, err := filterValues(filters)
	if err != nil {
		return 0, err
	}

	var res countResult
	if _, err := c.do(ctx, http.MethodGet, collectionPath(table, "count"), values, nil, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// Get returns the row with the given id.
func (c *Client) Get(ctx context.Context, table, id string) (model.Row, error) {
	var row model.Row
	if _, err := c.do(ctx, http.MethodGet, collectionPath(table, id), nil, nil, &row); err != nil {
		return nil, err
	}
	return normalize(table, row), nil
}

// Insert stores a new row; the remote assigns id and timestamps.
func (c *Client) Insert(ctx context.Context, table string, row model.Row) (model.Row, error) {
	var created model.Row
	if _, err := c.do(ctx, http.MethodPost, collectionPath(table), nil, row, &created); err != nil {
		return nil, err
	}
	return normalize(table, created), nil
}

// Update merges row onto the record with the given id.
func (c *Client) Update(ctx context.Context, table, id string, row model.Row) (model.Row, error) {
	var updated model.Row
	if _, err := c.do(ctx, http.MethodPatch, collectionPath(table, id), nil, row, &updated); err != nil {
		return nil, err
	}
	return normalize(table, updated), nil
}

// Delete removes the record with the given id.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	_, err := c.do(ctx, http.MethodDelete, collectionPath(table, id), nil, nil, nil)
	return err
}

// Upsert inserts row or updates the record sharing its key column value.
func (c *Client) Upsert(ctx context.Context, table, key string, row model.Row) (model.Row, bool, error) {
	var res upsertResult
	if _, err := c.do(ctx, http.MethodPut, collectionPath(table, "upsert", key), nil, row, &res); err != nil {
		return nil, false, err
	}
	return normalize(table, res.Row), res.Inserted, nil
}

// normalize gives rows decoded from JSON the same value types the SQL store
// produces.
func normalize(table string, row model.Row) model.Row {
	if row == nil {
		return nil
	}
	coll, ok := model.CollectionByName(table)
	if !ok {
		return row
	}
	out := make(model.Row, len(row))
	for col, v := range row {
		out[col] = schema.ReadColumn(coll, col, v)
	}
	return out
}

// filterValues encodes equality filters as query parameters.
func filterValues(filters map[string]any) (url.Values, error) {
	values := url.Values{}
	for col, v := range filters {
		switch col {
		case "order", "asc", "limit":
			return nil, model.NewValidationError(col, "cannot be used as a filter")
		}

		switch val := v.(type) {
		case nil:
			return nil, model.NewValidationError(col, "null filters are not supported")
		case string:
			values.Set(col, val)
		case bool:
			values.Set(col, strconv.FormatBool(val))
		case int:
			values.Set(col, strconv.Itoa(val))
		case int64:
			values.Set(col, strconv.FormatInt(val, 10))
		case time.Time:
			values.Set(col, val.UTC().Format(time.RFC3339Nano))
		default:
			values.Set(col, fmt.Sprint(val))
		}
	}
	return values, nil
}
