// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package repository

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/sitecms/internal/model"
)

// fakeBackend is an in-memory Backend for unit tests. Setting err makes every
// call fail with it.
type fakeBackend struct {
	mu     sync.Mutex
	tables map[string]map[string]model.Row
	clock  time.Time
	err    error

	// conflictOnce makes the next Upsert fail with ErrConflict after
	// inserting, as a concurrent writer would.
	conflictOnce bool
}

var _ Backend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		tables: make(map[string]map[string]model.Row),
		clock:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeBackend) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeBackend) table(name string) map[string]model.Row {
	t, ok := f.tables[name]
	if !ok {
		t = make(map[string]model.Row)
		f.tables[name] = t
	}
	return t
}

func copyRow(r model.Row) model.Row {
	out := make(model.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func matches(r model.Row, filters map[string]any) bool {
	for k, v := range filters {
		if !reflect.DeepEqual(r[k], v) {
			return false
		}
	}
	return true
}

func (f *fakeBackend) List(_ context.Context, table string, q model.Query) ([]model.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	var rows []model.Row
	for _, r := range f.table(table) {
		if matches(r, q.Filters) {
			rows = append(rows, copyRow(r))
		}
	}

	order := q.OrderBy
	if order == "" {
		order = model.ColumnCreatedAt
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := fmt.Sprint(rows[i][order]), fmt.Sprint(rows[j][order])
		if ti, ok := rows[i][order].(time.Time); ok {
			if tj, ok := rows[j][order].(time.Time); ok {
				if q.Asc {
					return ti.Before(tj)
				}
				return ti.After(tj)
			}
		}
		if q.Asc {
			return a < b
		}
		return a > b
	})

	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func (f *fakeBackend) Count(_ context.Context, table string, filters map[string]any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}

	var n int64
	for _, r := range f.table(table) {
		if matches(r, filters) {
			n++
		}
	}
	return n, nil
}

func (f *fakeBackend) Get(_ context.Context, table, id string) (model.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	r, ok := f.table(table)[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return copyRow(r), nil
}

func (f *fakeBackend) insertLocked(table string, row model.Row) model.Row {
	now := f.tick()
	r := copyRow(row)
	r[model.ColumnID] = uuid.NewString()
	r[model.ColumnCreatedAt] = now
	r[model.ColumnUpdatedAt] = now
	f.table(table)[r[model.ColumnID].(string)] = r
	return copyRow(r)
}

func (f *fakeBackend) Insert(_ context.Context, table string, row model.Row) (model.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.insertLocked(table, row), nil
}

func (f *fakeBackend) updateLocked(table, id string, row model.Row) (model.Row, error) {
	r, ok := f.table(table)[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	for k, v := range row {
		if k == model.ColumnID || k == model.ColumnCreatedAt {
			continue
		}
		r[k] = v
	}
	r[model.ColumnUpdatedAt] = f.tick()
	return copyRow(r), nil
}

func (f *fakeBackend) Update(_ context.Context, table, id string, row model.Row) (model.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.updateLocked(table, id, row)
}

func (f *fakeBackend) Delete(_ context.Context, table, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}

	if _, ok := f.table(table)[id]; !ok {
		return model.ErrNotFound
	}
	delete(f.table(table), id)
	return nil
}

func (f *fakeBackend) Upsert(_ context.Context, table, key string, row model.Row) (model.Row, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}

	if f.conflictOnce {
		f.conflictOnce = false
		f.insertLocked(table, row)
		return nil, false, model.ErrConflict
	}

	for id, r := range f.table(table) {
		if reflect.DeepEqual(r[key], row[key]) {
			updated, err := f.updateLocked(table, id, row)
			return updated, false, err
		}
	}
	return f.insertLocked(table, row), true, nil
}

func (f *fakeBackend) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
