// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionByName(t *testing.T) {
	for _, c := range Collections() {
		got, ok := CollectionByName(c.Name)
		require.True(t, ok, c.Name)
		assert.Equal(t, c.Name, got.Name)
	}

	_, ok := CollectionByName("nope")
	assert.False(t, ok)
}

func TestCollectionColumnsUnique(t *testing.T) {
	for _, c := range Collections() {
		seen := map[string]bool{}
		for _, col := range c.Columns() {
			if seen[col] {
				t.Errorf("%s: duplicate column %q", c.Name, col)
			}
			seen[col] = true
		}
	}
}

func TestCollectionRenames(t *testing.T) {
	f, ok := Advisors.ByColumn("image_ref")
	require.True(t, ok)
	assert.Equal(t, "imageUrl", f.Name)

	f, ok = Advisors.ByColumn("position")
	require.True(t, ok)
	assert.Equal(t, "imagePosition", f.Name)

	assert.True(t, Advisors.HasColumn(ColumnCreatedAt))
	assert.False(t, Advisors.HasColumn("imageUrl"))
}

func TestFieldsAccessors(t *testing.T) {
	now := time.Now()
	f := Fields{
		"s":    "text",
		"b":    int64(1),
		"n":    float64(42),
		"t":    now,
		"list": []any{"a"},
	}

	assert.Equal(t, "text", f.String("s"))
	assert.Equal(t, "", f.String("missing"))
	assert.True(t, f.Bool("b"))
	assert.Equal(t, int64(42), f.Int("n"))
	require.NotNil(t, f.Time("t"))
	assert.True(t, now.Equal(*f.Time("t")))
	assert.Nil(t, f.Time("missing"))
	assert.Equal(t, []any{"a"}, f.List("list"))
	assert.Equal(t, []any{}, f.List("missing"))
}

func TestEntityMarshalJSON(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := Entity{ID: "abc", CreatedAt: created, UpdatedAt: created, Fields: Fields{"name": "A"}}

	b, err := json.Marshal(e)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "abc", out["id"])
	assert.Equal(t, "A", out["name"])
	assert.Equal(t, "2026-01-02T03:04:05Z", out["createdAt"])
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewValidationError("email", "is invalid"))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Nil(t, NewValidationErrors(nil))
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not found", fmt.Errorf("advisors x: %w", ErrNotFound), "The requested item could not be found."},
		{"unavailable", fmt.Errorf("dial tcp: %w", ErrBackendUnavailable), "The service is temporarily unavailable. Please try again later."},
		{"conflict", ErrConflict, "This item already exists."},
		{"field", NewValidationError("status", "must be one of new, read, replied, archived"), "Please check the status field: must be one of new, read, replied, archived."},
		{"unknown", errors.New("sqlite: disk I/O error"), "Something went wrong. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestEnumerations(t *testing.T) {
	assert.True(t, IsValidSubmissionStatus("archived"))
	assert.False(t, IsValidSubmissionStatus("spam"))
	assert.True(t, IsValidSubmissionType("quote_request"))
	assert.False(t, IsValidSenderType("admin"))
	assert.True(t, IsValidChatStatus("failed"))
	assert.True(t, Attachment{Name: "a.pdf"}.Failed())
}
