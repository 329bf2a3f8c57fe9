// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/sitecms/internal/model"
)

func TestToInternal_RenamesStorageColumns(t *testing.T) {
	row := model.Row{
		"id":          "a1",
		"created_at":  "2026-02-01T10:00:00.000000000Z",
		"updated_at":  "2026-02-02T10:00:00.000000000Z",
		"name":        "Ada",
		"image_ref":   "/uploads/ada.jpg",
		"position":    "center top",
		"sort_order":  int64(3),
		"extra_field": "kept",
	}

	e := ToInternal(model.Advisors, row)

	assert.Equal(t, "a1", e.ID)
	assert.Equal(t, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC), e.CreatedAt)
	assert.Equal(t, time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC), e.UpdatedAt)
	assert.Equal(t, "Ada", e.Fields["name"])
	assert.Equal(t, "/uploads/ada.jpg", e.Fields["imageUrl"])
	assert.Equal(t, "center top", e.Fields["imagePosition"])
	assert.Equal(t, int64(3), e.Fields["sortOrder"])
	assert.Equal(t, "kept", e.Fields["extra_field"])
	assert.False(t, e.Fields.Has("image_ref"))
}

func TestToInternal_AbsentOptionalFieldsStayAbsent(t *testing.T) {
	e := ToInternal(model.ContactSubmissions, model.Row{
		"id":    "c1",
		"name":  "N",
		"phone": nil,
	})

	assert.False(t, e.Fields.Has("phone"))
	assert.False(t, e.Fields.Has("company"))
	assert.Equal(t, "N", e.Fields["name"])
}

func TestToInternal_StructuredFields(t *testing.T) {
	tests := []struct {
		name   string
		stored any
		want   []any
	}{
		{"encoded text", `["a","b"]`, []any{"a", "b"}},
		{"malformed text", "{not json", []any{}},
		{"object is not a list", `{"a":1}`, []any{}},
		{"null", nil, []any{}},
		{"empty string", "", []any{}},
		{"native list", []any{"x"}, []any{"x"}},
		{"native string slice", []string{"x", "y"}, []any{"x", "y"}},
		{"bytes", []byte(`["z"]`), []any{"z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ToInternal(model.Solutions, model.Row{"id": "s1", "points": tt.stored})
			assert.Equal(t, tt.want, e.Fields["points"])
		})
	}
}

func TestToInternal_MissingStructuredFieldIsEmptyList(t *testing.T) {
	e := ToInternal(model.Projects, model.Row{"id": "p1", "title": "T"})
	assert.Equal(t, []any{}, e.Fields["sections"])
}

func TestToInternal_ConvertsKinds(t *testing.T) {
	e := ToInternal(model.Newsletters, model.Row{
		"id":           "n1",
		"published":    int64(1),
		"published_at": "2026-03-04 05:06:07",
	})

	assert.Equal(t, true, e.Fields["published"])
	require.NotNil(t, e.Fields.Time("publishedAt"))
	assert.Equal(t, time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC), *e.Fields.Time("publishedAt"))

	r := ToInternal(model.Resources, model.Row{"id": "r1", "download_count": json.Number("12")})
	assert.Equal(t, int64(12), r.Fields["downloadCount"])
}

func TestToInternal_AcceptsCanonicalKeys(t *testing.T) {
	e := ToInternal(model.Advisors, model.Row{"id": "a", "imageUrl": "/x.png", "createdAt": "2026-01-01T00:00:00Z"})
	assert.Equal(t, "/x.png", e.Fields["imageUrl"])
	assert.Equal(t, 2026, e.CreatedAt.Year())
}

func TestToExternal(t *testing.T) {
	fields := model.Fields{
		"id":            "ignored",
		"createdAt":     time.Now(),
		"updatedAt":     time.Now(),
		"title":         "Project",
		"imageUrl":      "/img.png",
		"imagePosition": "left",
		"sections": []any{
			map[string]any{"title": "Intro", "content": "Hello"},
		},
	}

	row := ToExternal(model.Projects, fields)

	assert.NotContains(t, row, "id")
	assert.NotContains(t, row, "created_at")
	assert.NotContains(t, row, "createdAt")
	assert.Equal(t, "Project", row["title"])
	assert.Equal(t, "/img.png", row["image_ref"])
	assert.Equal(t, "left", row["position"])
	assert.Equal(t, `[{"content":"Hello","title":"Intro"}]`, row["sections"])
}

func TestToExternal_TextStructuredFieldUntouched(t *testing.T) {
	row := ToExternal(model.Solutions, model.Fields{"points": `["a"]`})
	assert.Equal(t, `["a"]`, row["points"])

	row = ToExternal(model.Solutions, model.Fields{"points": nil})
	assert.Equal(t, "[]", row["points"])
}

func TestRoundTrip(t *testing.T) {
	lists := [][]any{
		{},
		{"a", "b", "c"},
		{"b", "a"},
		{
			map[string]any{"title": "One", "content": "First"},
			map[string]any{"title": "Two", "content": "Second"},
		},
	}

	for _, l := range lists {
		encoded := EncodeList(l)
		assert.Equal(t, l, DecodeList(encoded))

		row := ToExternal(model.Solutions, model.Fields{"points": l})
		row["id"] = "x"
		assert.Equal(t, l, ToInternal(model.Solutions, row).Fields["points"])
	}
}

func TestMapperIsPure(t *testing.T) {
	row := model.Row{"id": "s", "points": `["a"]`, "title": "T"}
	first := ToInternal(model.Solutions, row)
	second := ToInternal(model.Solutions, row)

	assert.Equal(t, first, second)
	assert.Equal(t, `["a"]`, row["points"])
}

func TestUnknown(t *testing.T) {
	got := Unknown(model.Advisors, model.Fields{"name": "A", "image_ref": "x", "id": "1", "bogus": 1})
	assert.Equal(t, []string{"bogus"}, got)
}

func TestTargetKey(t *testing.T) {
	assert.Equal(t, "id", TargetKey(model.Advisors))
}

func TestReadColumn(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 7200))

	assert.Equal(t, created.UTC(), ReadColumn(model.Newsletters, model.ColumnCreatedAt, created.Format(time.RFC3339)))
	assert.Equal(t, "abc", ReadColumn(model.Newsletters, model.ColumnID, []byte("abc")))
	assert.Equal(t, true, ReadColumn(model.Newsletters, "published", int64(1)))
	assert.Equal(t, int64(7), ReadColumn(model.Resources, "download_count", json.Number("7")))
	assert.Equal(t, int64(7), ReadColumn(model.Resources, "download_count", float64(7)))
	assert.Equal(t, `["a"]`, ReadColumn(model.Solutions, "points", []byte(`["a"]`)))
	assert.Nil(t, ReadColumn(model.Newsletters, "published_at", nil))
}
