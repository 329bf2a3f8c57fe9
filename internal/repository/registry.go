// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package repository

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/olegiv/sitecms/internal/logging"
	"github.com/olegiv/sitecms/internal/model"
)

// Registry holds one repository per built-in collection, all sharing the
// backend chosen at startup.
type Registry struct {
	backend Backend
	logger  *slog.Logger
	repos   map[string]*Repository

	Newsletters *NewsletterRepository
	Subscribers *SubscriberRepository
	Resources   *ResourceRepository
	Submissions *SubmissionRepository
	Chat        *ChatRepository
}

// NewRegistry builds repositories for every built-in collection.
func NewRegistry(b Backend, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = logging.Discard()
	}

	reg := &Registry{
		backend:     b,
		logger:      logger,
		repos:       make(map[string]*Repository),
		Newsletters: NewNewsletterRepository(b, logger),
		Subscribers: NewSubscriberRepository(b, logger),
		Resources:   NewResourceRepository(b, logger),
		Submissions: NewSubmissionRepository(b, logger),
		Chat:        NewChatRepository(b, logger),
	}
	for _, c := range model.Collections() {
		reg.repos[c.Name] = New(c, b, logger)
	}
	return reg
}

// Collection returns the generic repository for a collection.
func (reg *Registry) Collection(name string) (*Repository, bool) {
	r, ok := reg.repos[name]
	return r, ok
}

// Ping checks the backend.
func (reg *Registry) Ping(ctx context.Context) error {
	return reg.backend.Ping(ctx)
}

// Counts returns the record count of every collection, fetched concurrently.
// A failing count is logged and reported as zero.
func (reg *Registry) Counts(ctx context.Context) map[string]int64 {
	var mu sync.Mutex
	counts := make(map[string]int64, len(reg.repos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for name, r := range reg.repos {
		g.Go(func() error {
			n, err := r.Count(gctx)
			if err != nil {
				logging.Soft(reg.logger, name+".count", err)
				n = 0
			}
			mu.Lock()
			counts[name] = n
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return counts
}
