// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package repository

import (
	"context"
	"log/slog"

	"github.com/olegiv/sitecms/internal/model"
)

// ResourceRepository adds download counting to the resources collection.
type ResourceRepository struct {
	*Repository
}

// NewResourceRepository creates a resource repository.
func NewResourceRepository(b Backend, logger *slog.Logger) *ResourceRepository {
	return &ResourceRepository{Repository: New(model.Resources, b, logger)}
}

// IncrementDownloadCount adds one to the resource's download count.
// The read and the write are separate calls, so concurrent increments may
// be lost; the count is a display metric.
func (r *ResourceRepository) IncrementDownloadCount(ctx context.Context, id string) (*model.Entity, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Update(ctx, id, model.Fields{
		"downloadCount": current.Fields.Int("downloadCount") + 1,
	})
}
