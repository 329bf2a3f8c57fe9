// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Query narrows a backend list call. Filters are equality matches on storage
// columns. An empty OrderBy means newest created first.
type Query struct {
	Filters map[string]any
	OrderBy string
	Asc     bool
	Limit   int
}
