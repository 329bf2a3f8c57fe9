// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"time"
)

// JSON provides type-safe caching of values serialized as JSON.
type JSON[T any] struct {
	cache Cache
	ttl   time.Duration
}

// NewJSON wraps a cache for values of type T.
func NewJSON[T any](c Cache, ttl time.Duration) *JSON[T] {
	return &JSON[T]{cache: c, ttl: ttl}
}

// Get returns the cached value and true on a hit. Undecodable entries count
// as misses.
func (c *JSON[T]) Get(ctx context.Context, key string) (T, bool) {
	var value T

	data, err := c.cache.Get(ctx, key)
	if err != nil {
		return value, false
	}
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false
	}
	return value, true
}

// Set stores value under key.
func (c *JSON[T]) Set(ctx context.Context, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, key, data, c.ttl)
}
