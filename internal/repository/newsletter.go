// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package repository

import (
	"context"
	"log/slog"

	"github.com/olegiv/sitecms/internal/model"
)

// NewsletterRepository adds publishing to the newsletters collection. Plain
// Create and Update also stamp publishedAt when a write sets published.
type NewsletterRepository struct {
	*Repository
}

// NewNewsletterRepository creates a newsletter repository.
func NewNewsletterRepository(b Backend, logger *slog.Logger) *NewsletterRepository {
	return &NewsletterRepository{Repository: New(model.Newsletters, b, logger)}
}

// Publish marks the newsletter published and stamps publishedAt with the
// current time. Publishing again re-stamps it.
func (r *NewsletterRepository) Publish(ctx context.Context, id string) (*model.Entity, error) {
	return r.Update(ctx, id, model.Fields{
		"published":   true,
		"publishedAt": r.now().UTC(),
	})
}

// Unpublish clears the published flag. publishedAt is left as it was.
func (r *NewsletterRepository) Unpublish(ctx context.Context, id string) (*model.Entity, error) {
	return r.Update(ctx, id, model.Fields{"published": false})
}

// ListPublished returns published newsletters, most recently published first.
func (r *NewsletterRepository) ListPublished(ctx context.Context) ([]model.Entity, error) {
	return r.FindBy(ctx, model.Fields{"published": true}, "publishedAt", false, 0)
}
