// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/olegiv/sitecms/internal/model"
)

// seedRows is the demo content inserted into empty collections.
var seedRows = map[string][]model.Row{
	model.CollectionAdvisors: {{
		"name":        "Jane Doe",
		"title":       "Strategy Advisor",
		"description": "Twenty years of go-to-market experience.",
		"image_ref":   "/uploads/advisors/jane.jpg",
		"position":    "center top",
		"sort_order":  int64(1),
	}},
	model.CollectionSolutions: {{
		"title":       "Data Platform",
		"description": "Modern analytics on your own infrastructure.",
		"icon":        "database",
		"points":      `["Managed ingestion","Self-service dashboards","Audit trail"]`,
	}},
	model.CollectionResources: {{
		"title":          "Getting Started Guide",
		"description":    "A short introduction for new clients.",
		"category":       "guides",
		"file_url":       "/uploads/resources/getting-started.pdf",
		"download_count": int64(0),
	}},
}

// Seed creates demo content in collections that are still empty.
func Seed(ctx context.Context, b *Backend, logger *slog.Logger) error {
	for _, table := range []string{model.CollectionAdvisors, model.CollectionSolutions, model.CollectionResources} {
		n, err := b.Count(ctx, table, nil)
		if err != nil {
			return fmt.Errorf("checking %s: %w", table, err)
		}
		if n > 0 {
			logger.Info("collection not empty, skipping seed", "collection", table)
			continue
		}

		for _, row := range seedRows[table] {
			created, err := b.Insert(ctx, table, row)
			if err != nil {
				return fmt.Errorf("seeding %s: %w", table, err)
			}
			logger.Info("seeded demo record", "collection", table, "id", created[model.ColumnID])
		}
	}

	return nil
}
