// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package repository provides the uniform CRUD interface over content
// collections and the entity-specific repositories built on top of it.
// Repositories hold no state beyond their collaborators and are safe for
// concurrent use.
package repository

import (
	"context"

	"github.com/olegiv/sitecms/internal/model"
)

// Backend is a persistence service speaking rows in storage shape. The backend
// assigns ids and timestamps. Implementations map their failures onto the
// model error taxonomy: missing records are model.ErrNotFound, unreachable or
// unconfigured services are model.ErrBackendUnavailable.
type Backend interface {
	// List returns rows matching q, newest created first unless q orders otherwise.
	List(ctx context.Context, table string, q model.Query) ([]model.Row, error)

	// Count returns the number of rows matching the equality filters.
	Count(ctx context.Context, table string, filters map[string]any) (int64, error)

	// Get returns the row with the given id.
	Get(ctx context.Context, table, id string) (model.Row, error)

	// Insert stores a new row and returns it with id, created_at and updated_at set.
	Insert(ctx context.Context, table string, row model.Row) (model.Row, error)

	// Update merges row onto the record with the given id, refreshes
	// updated_at and returns the full record.
	Update(ctx context.Context, table, id string, row model.Row) (model.Row, error)

	// Delete removes the record with the given id.
	Delete(ctx context.Context, table, id string) error

	// Upsert inserts row or, when a record with the same value in column key
	// exists, updates it in place. It reports whether a new record was created.
	Upsert(ctx context.Context, table, key string, row model.Row) (model.Row, bool, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
