// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/schema"
)

// sqliteTimeLayout is fixed width so stored timestamps compare lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Backend serves content collections from a SQL database. Only tables and
// columns of the built-in collections are addressable.
type Backend struct {
	db      *sql.DB
	dialect Dialect
	sb      squirrel.StatementBuilderType
	tables  map[string]model.Collection
	now     func() time.Time
}

// NewBackend creates a backend over an open, migrated database.
func NewBackend(db *sql.DB, dialect Dialect) *Backend {
	tables := make(map[string]model.Collection)
	for _, c := range model.Collections() {
		tables[c.Name] = c
	}

	return &Backend{
		db:      db,
		dialect: dialect,
		sb:      builder(dialect),
		tables:  tables,
		now:     time.Now,
	}
}

func builder(dialect Dialect) squirrel.StatementBuilderType {
	if dialect == DialectPostgres {
		return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	}
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)
}

// DB returns the underlying database handle.
func (b *Backend) DB() *sql.DB {
	return b.db
}

// List returns rows matching q.
func (b *Backend) List(ctx context.Context, table string, q model.Query) ([]model.Row, error) {
	c, err := b.collection(table)
	if err != nil {
		return nil, err
	}

	where, err := b.filters(c, q.Filters)
	if err != nil {
		return nil, err
	}

	order := q.OrderBy
	if order == "" {
		order = model.ColumnCreatedAt
	}
	if !c.HasColumn(order) {
		return nil, model.NewValidationError("orderBy", "unknown column "+order)
	}
	dir := " DESC"
	if q.Asc {
		dir = " ASC"
	}

	query := b.sb.Select(c.Columns()...).
		From(c.Name).
		Where(where).
		OrderBy(order+dir, model.ColumnID+dir)
	if q.Limit > 0 {
		query = query.Limit(uint64(q.Limit))
	}

	return b.query(ctx, c, query)
}

// Count returns the number of rows matching the equality filters.
func (b *Backend) Count(ctx context.Context, table string, filters map[string]any) (int64, error) {
	c, err := b.collection(table)
	if err != nil {
		return 0, err
	}

	where, err := b.filters(c, filters)
	if err != nil {
		return 0, err
	}

	query, args, err := b.sb.Select("COUNT(*)").From(c.Name).Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building count: %w", err)
	}

	var n int64
	if err := b.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// Get returns the row with the given id.
func (b *Backend) Get(ctx context.Context, table, id string) (model.Row, error) {
	c, err := b.collection(table)
	if err != nil {
		return nil, err
	}

	rows, err := b.query(ctx, c, b.sb.Select(c.Columns()...).
		From(c.Name).
		Where(squirrel.Eq{model.ColumnID: id}))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, model.ErrNotFound
	}
	return rows[0], nil
}

// Insert stores a new row with a generated id and timestamps.
func (b *Backend) Insert(ctx context.Context, table string, row model.Row) (model.Row, error) {
	c, err := b.collection(table)
	if err != nil {
		return nil, err
	}

	values, err := b.writeValues(c, row)
	if err != nil {
		return nil, err
	}

	now := b.timeValue(b.now())
	values[model.ColumnID] = uuid.NewString()
	values[model.ColumnCreatedAt] = now
	values[model.ColumnUpdatedAt] = now

	rows, err := b.query(ctx, c, b.sb.Insert(c.Name).
		SetMap(values).
		Suffix("RETURNING "+returning(c)))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert into %s returned no row", c.Name)
	}
	return rows[0], nil
}

// Update merges row onto the record with the given id.
func (b *Backend) Update(ctx context.Context, table, id string, row model.Row) (model.Row, error) {
	c, err := b.collection(table)
	if err != nil {
		return nil, err
	}

	values, err := b.writeValues(c, row)
	if err != nil {
		return nil, err
	}
	values[model.ColumnUpdatedAt] = b.timeValue(b.now())

	rows, err := b.query(ctx, c, b.sb.Update(c.Name).
		SetMap(values).
		Where(squirrel.Eq{model.ColumnID: id}).
		Suffix("RETURNING "+returning(c)))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, model.ErrNotFound
	}
	return rows[0], nil
}

// Delete removes the record with the given id.
func (b *Backend) Delete(ctx context.Context, table, id string) error {
	c, err := b.collection(table)
	if err != nil {
		return err
	}

	query, args, err := b.sb.Delete(c.Name).Where(squirrel.Eq{model.ColumnID: id}).ToSql()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}

	res, err := b.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Upsert inserts row, or updates the existing record holding the same value in
// column key. The key column must carry a unique constraint.
func (b *Backend) Upsert(ctx context.Context, table, key string, row model.Row) (model.Row, bool, error) {
	c, err := b.collection(table)
	if err != nil {
		return nil, false, err
	}
	if _, ok := c.ByColumn(key); !ok {
		return nil, false, model.NewValidationError("key", "unknown column "+key)
	}
	if row[key] == nil {
		return nil, false, model.NewValidationError(key, "is required")
	}

	values, err := b.writeValues(c, row)
	if err != nil {
		return nil, false, err
	}

	id := uuid.NewString()
	now := b.timeValue(b.now())
	values[model.ColumnID] = id
	values[model.ColumnCreatedAt] = now
	values[model.ColumnUpdatedAt] = now

	suffix := "ON CONFLICT (" + key + ") DO UPDATE SET "
	for col := range values {
		if col == key || col == model.ColumnID || col == model.ColumnCreatedAt {
			continue
		}
		suffix += col + " = excluded." + col + ", "
	}
	suffix = suffix[:len(suffix)-2] + " RETURNING " + returning(c)

	rows, err := b.query(ctx, c, b.sb.Insert(c.Name).SetMap(values).Suffix(suffix))
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, fmt.Errorf("upsert into %s returned no row", c.Name)
	}

	// The conflicting record keeps its own id.
	inserted := rows[0][model.ColumnID] == id
	return rows[0], inserted, nil
}

// Ping checks that the database is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	return mapError(b.db.PingContext(ctx))
}

func (b *Backend) collection(table string) (model.Collection, error) {
	c, ok := b.tables[table]
	if !ok {
		return model.Collection{}, fmt.Errorf("collection %q: %w", table, model.ErrNotFound)
	}
	return c, nil
}

func returning(c model.Collection) string {
	cols := c.Columns()
	out := cols[0]
	for _, col := range cols[1:] {
		out += ", " + col
	}
	return out
}

// filters builds an equality predicate, coercing values to column kinds so
// that string input (e.g. from a query string) matches typed storage.
func (b *Backend) filters(c model.Collection, filters map[string]any) (squirrel.Eq, error) {
	eq := squirrel.Eq{}
	for col, v := range filters {
		if col == model.ColumnID {
			eq[col] = v
			continue
		}
		f, ok := c.ByColumn(col)
		if !ok {
			return nil, model.NewValidationError(col, "unknown column for "+c.Name)
		}
		val, err := b.storageValue(f, v)
		if err != nil {
			return nil, err
		}
		eq[col] = val
	}
	return eq, nil
}

func (b *Backend) writeValues(c model.Collection, row model.Row) (map[string]any, error) {
	values := make(map[string]any, len(row)+3)
	for col, v := range row {
		switch col {
		case model.ColumnID, model.ColumnCreatedAt, model.ColumnUpdatedAt:
			continue
		}
		f, ok := c.ByColumn(col)
		if !ok {
			return nil, model.NewValidationError(col, "unknown column for "+c.Name)
		}
		val, err := b.storageValue(f, v)
		if err != nil {
			return nil, err
		}
		values[col] = val
	}
	return values, nil
}

func (b *Backend) storageValue(f model.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch f.Kind {
	case model.KindList:
		return schema.EncodeList(v), nil
	case model.KindText:
		val, _ := schema.Coerce(f.Kind, v)
		return val, nil
	}

	val, ok := schema.Coerce(f.Kind, v)
	if !ok {
		return nil, model.NewValidationError(f.Name, "has an invalid value")
	}
	if t, isTime := val.(time.Time); isTime {
		return b.timeValue(t), nil
	}
	return val, nil
}

func (b *Backend) timeValue(t time.Time) any {
	if b.dialect == DialectSQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

func (b *Backend) query(ctx context.Context, c model.Collection, q squirrel.Sqlizer) ([]model.Row, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, mapError(err)
	}

	out := []model.Row{}
	for rows.Next() {
		dest := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, mapError(err)
		}

		row := make(model.Row, len(cols))
		for i, col := range cols {
			row[col] = schema.ReadColumn(c, col, dest[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return out, nil
}
