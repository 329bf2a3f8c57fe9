// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/olegiv/sitecms/internal/logging"
	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/schema"
)

// Repository provides CRUD over one collection. Every call passes through
// the schema mapper so callers only ever see canonical entities.
type Repository struct {
	coll    model.Collection
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a repository for the collection on the given backend.
func New(c model.Collection, b Backend, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Repository{coll: c, backend: b, logger: logger, now: time.Now}
}

// Collection returns the collection descriptor.
func (r *Repository) Collection() model.Collection {
	return r.coll
}

// ListAll returns every record, newest created first. An empty collection
// yields an empty, non-nil slice.
func (r *Repository) ListAll(ctx context.Context) ([]model.Entity, error) {
	return r.list(ctx, model.Query{})
}

// ListAllOrEmpty is ListAll for non-critical views: any failure is logged and
// degrades to an empty list.
func (r *Repository) ListAllOrEmpty(ctx context.Context) []model.Entity {
	items, err := r.ListAll(ctx)
	if err != nil {
		logging.Soft(r.logger, r.coll.Name+".list", err)
		return []model.Entity{}
	}
	return items
}

// GetByID returns the record with the given id.
func (r *Repository) GetByID(ctx context.Context, id string) (*model.Entity, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	row, err := r.backend.Get(ctx, r.coll.Name, id)
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", r.coll.Name, id, err)
	}

	e := schema.ToInternal(r.coll, row)
	return &e, nil
}

// Create stores a new record. The backend assigns id and timestamps; the
// returned entity is fully materialized.
func (r *Repository) Create(ctx context.Context, fields model.Fields) (*model.Entity, error) {
	if err := r.validateFields(fields); err != nil {
		return nil, err
	}

	row, err := StampPublished(ctx, r.backend, r.coll.Name, "", schema.ToExternal(r.coll, fields), r.now())
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", r.coll.Name, err)
	}

	row, err = r.backend.Insert(ctx, r.coll.Name, row)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", r.coll.Name, err)
	}

	e := schema.ToInternal(r.coll, row)
	return &e, nil
}

// Update merges the provided fields onto the record and refreshes updatedAt.
// The id is never changed, even when present in fields.
func (r *Repository) Update(ctx context.Context, id string, fields model.Fields) (*model.Entity, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	if err := r.validateFields(fields); err != nil {
		return nil, err
	}

	row, err := StampPublished(ctx, r.backend, r.coll.Name, id, schema.ToExternal(r.coll, fields), r.now())
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", r.coll.Name, id, err)
	}

	row, err = r.backend.Update(ctx, r.coll.Name, id, row)
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", r.coll.Name, id, err)
	}

	e := schema.ToInternal(r.coll, row)
	return &e, nil
}

// Delete removes the record. Deleting a missing id returns model.ErrNotFound;
// callers that treat deletion as idempotent can ignore that error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	if err := r.backend.Delete(ctx, r.coll.Name, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", r.coll.Name, id, err)
	}
	return nil
}

// Count returns the number of records in the collection.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	n, err := r.backend.Count(ctx, r.coll.Name, nil)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.coll.Name, err)
	}
	return n, nil
}

// FindBy returns records whose canonical fields equal the given values.
func (r *Repository) FindBy(ctx context.Context, match model.Fields, orderBy string, asc bool, limit int) ([]model.Entity, error) {
	if err := r.validateFields(match); err != nil {
		return nil, err
	}

	q := model.Query{
		Filters: map[string]any(schema.ToExternal(r.coll, match)),
		Asc:     asc,
		Limit:   limit,
	}
	if orderBy != "" {
		col, err := r.orderColumn(orderBy)
		if err != nil {
			return nil, err
		}
		q.OrderBy = col
	}

	return r.list(ctx, q)
}

func (r *Repository) orderColumn(name string) (string, error) {
	switch name {
	case model.FieldCreatedAt:
		return model.ColumnCreatedAt, nil
	case model.FieldUpdatedAt:
		return model.ColumnUpdatedAt, nil
	}
	if f, ok := r.coll.Field(name); ok {
		return f.Column, nil
	}
	return "", model.NewValidationError("orderBy", "unknown field "+name)
}

func (r *Repository) list(ctx context.Context, q model.Query) ([]model.Entity, error) {
	rows, err := r.backend.List(ctx, r.coll.Name, q)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.coll.Name, err)
	}

	items := make([]model.Entity, 0, len(rows))
	for _, row := range rows {
		items = append(items, schema.ToInternal(r.coll, row))
	}
	return items, nil
}

func (r *Repository) validateFields(fields model.Fields) error {
	unknown := schema.Unknown(r.coll, fields)
	if len(unknown) == 0 {
		return nil
	}

	sort.Strings(unknown)
	errs := make([]model.FieldError, 0, len(unknown))
	for _, name := range unknown {
		errs = append(errs, model.FieldError{Field: name, Message: "unknown field for " + r.coll.Name})
	}
	return model.NewValidationErrors(errs)
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return model.NewValidationError("id", "is required")
	}
	return nil
}

// IgnoreNotFound returns nil for model.ErrNotFound and err otherwise. It lets
// callers opt into idempotent deletes.
func IgnoreNotFound(err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	return err
}
