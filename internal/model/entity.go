// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model contains the canonical entity shapes, collection descriptors
// and error taxonomy shared by every layer of sitecms.
package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// Canonical header field names.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Storage header column names.
const (
	ColumnID        = "id"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

// Row is a record in its storage (wire) shape, keyed by column name.
type Row map[string]any

// Fields holds entity attributes keyed by canonical field name.
type Fields map[string]any

// Entity is a content record in its canonical shape.
type Entity struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	Fields    Fields
}

// MarshalJSON flattens the header and the fields into a single object.
func (e Entity) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+3)
	for k, v := range e.Fields {
		out[k] = v
	}
	out[FieldID] = e.ID
	out[FieldCreatedAt] = e.CreatedAt
	out[FieldUpdatedAt] = e.UpdatedAt
	return json.Marshal(out)
}

// String returns the field as a string, or "" when absent.
func (f Fields) String(key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Bool returns the field as a bool. Numeric 0/1 and "true"/"false" are accepted.
func (f Fields) Bool(key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case float64:
		return v != 0
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// Int returns the field as an int64, or 0 when absent or not numeric.
func (f Fields) Int(key string) int64 {
	switch v := f[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// Time returns the field as a time, or nil when absent.
func (f Fields) Time(key string) *time.Time {
	switch v := f[key].(type) {
	case time.Time:
		return &v
	case *time.Time:
		return v
	}
	return nil
}

// List returns the field as a list, or an empty list when absent.
func (f Fields) List(key string) []any {
	if v, ok := f[key].([]any); ok {
		return v
	}
	return []any{}
}

// Has reports whether the key is present.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Clone returns a shallow copy of the fields.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}
