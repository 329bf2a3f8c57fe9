// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package schema translates records between their storage shape (snake_case
// columns, structured fields as JSON text) and the canonical entity shape.
// All functions are pure.
package schema

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/sitecms/internal/model"
)

// timeLayouts are the textual time formats accepted on read, most specific first.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToInternal converts a storage row into a canonical entity. Known columns are
// renamed to their canonical names and converted to their kind; unknown keys
// pass through unchanged. Structured fields always come out as a list, empty
// when the stored value is null, absent or undecodable.
func ToInternal(c model.Collection, row model.Row) model.Entity {
	e := model.Entity{Fields: make(model.Fields, len(row))}

	for key, v := range row {
		switch key {
		case model.ColumnID:
			e.ID = toString(v)
			continue
		case model.ColumnCreatedAt, model.FieldCreatedAt:
			if t, ok := ParseTime(v); ok {
				e.CreatedAt = t
			}
			continue
		case model.ColumnUpdatedAt, model.FieldUpdatedAt:
			if t, ok := ParseTime(v); ok {
				e.UpdatedAt = t
			}
			continue
		}

		f, ok := c.ByColumn(key)
		if !ok {
			// Rows may already use canonical names (e.g. from a REST peer).
			f, ok = c.Field(key)
		}
		if !ok {
			e.Fields[key] = v
			continue
		}

		if val, keep := Coerce(f.Kind, v); keep {
			e.Fields[f.Name] = val
		}
	}

	for _, f := range c.Fields {
		if f.Kind == model.KindList && !e.Fields.Has(f.Name) {
			e.Fields[f.Name] = []any{}
		}
	}

	return e
}

// ToExternal converts canonical fields into a storage row for writing.
// Header fields are dropped since the storage layer manages them. Structured
// fields are encoded to JSON text unless they already are text.
func ToExternal(c model.Collection, fields model.Fields) model.Row {
	row := make(model.Row, len(fields))

	for key, v := range fields {
		if isHeader(key) {
			continue
		}

		f, ok := c.Field(key)
		if !ok {
			f, ok = c.ByColumn(key)
		}
		if !ok {
			row[key] = v
			continue
		}

		if f.Kind == model.KindList {
			row[f.Column] = EncodeList(v)
			continue
		}
		row[f.Column] = v
	}

	return row
}

// TargetKey returns the storage primary-key column used to address a record
// on update and delete.
func TargetKey(model.Collection) string {
	return model.ColumnID
}

// Unknown returns the keys of fields that the collection does not define.
// Header fields are ignored.
func Unknown(c model.Collection, fields model.Fields) []string {
	var unknown []string
	for key := range fields {
		if isHeader(key) {
			continue
		}
		if _, ok := c.Field(key); ok {
			continue
		}
		if _, ok := c.ByColumn(key); ok {
			continue
		}
		unknown = append(unknown, key)
	}
	return unknown
}

func isHeader(key string) bool {
	switch key {
	case model.FieldID, model.FieldCreatedAt, model.FieldUpdatedAt,
		model.ColumnCreatedAt, model.ColumnUpdatedAt:
		return true
	}
	return false
}

// EncodeList encodes a structured value as JSON text. Text is returned as is;
// nil encodes as an empty list.
func EncodeList(v any) any {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case json.RawMessage:
		return string(val)
	case nil:
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// DecodeList decodes a structured value into an ordered list. It never fails:
// undecodable input yields an empty list.
func DecodeList(v any) []any {
	var raw []byte
	switch val := v.(type) {
	case nil:
		return []any{}
	case []any:
		out := make([]any, len(val))
		copy(out, val)
		return out
	case string:
		raw = []byte(val)
	case []byte:
		raw = val
	case json.RawMessage:
		raw = val
	default:
		// Native slices of other element types are normalized through JSON.
		b, err := json.Marshal(val)
		if err != nil {
			return []any{}
		}
		raw = b
	}

	if len(strings.TrimSpace(string(raw))) == 0 {
		return []any{}
	}

	var out []any
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return []any{}
	}
	return out
}

// ReadColumn normalizes a value read from storage so every backend yields the
// same row shape: text as string, times as UTC time.Time, flags as bool,
// numbers as int64. List columns stay encoded.
func ReadColumn(c model.Collection, col string, v any) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil
	}

	switch col {
	case model.ColumnID:
		return toString(v)
	case model.ColumnCreatedAt, model.ColumnUpdatedAt:
		if t, ok := ParseTime(v); ok {
			return t.UTC()
		}
		return v
	}

	f, ok := c.ByColumn(col)
	if !ok || f.Kind == model.KindList || f.Kind == model.KindText {
		return v
	}
	if val, ok := Coerce(f.Kind, v); ok {
		if t, isTime := val.(time.Time); isTime {
			return t.UTC()
		}
		return val
	}
	return v
}

// ParseTime converts a stored time value into a time.Time.
func ParseTime(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case *time.Time:
		if val == nil {
			return time.Time{}, false
		}
		return *val, true
	case []byte:
		return parseTimeString(string(val))
	case string:
		return parseTimeString(val)
	}
	return time.Time{}, false
}

func parseTimeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Coerce converts a stored value to the field kind. It reports false when the
// value is null or unusable, in which case the field stays absent.
func Coerce(kind model.FieldKind, v any) (any, bool) {
	if kind == model.KindList {
		return DecodeList(v), true
	}
	if v == nil {
		return nil, false
	}

	switch kind {
	case model.KindBool:
		return toBool(v)
	case model.KindInt:
		return toInt(v)
	case model.KindTime:
		t, ok := ParseTime(v)
		return t, ok
	default:
		return toString(v), true
	}
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case nil:
		return ""
	case json.Number:
		return val.String()
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func toBool(v any) (any, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case int64:
		return val != 0, true
	case int:
		return val != 0, true
	case float64:
		return val != 0, true
	case json.Number:
		n, err := val.Int64()
		return n != 0, err == nil
	case string:
		b, err := strconv.ParseBool(val)
		return b, err == nil
	case []byte:
		b, err := strconv.ParseBool(string(val))
		return b, err == nil
	}
	return nil, false
}

func toInt(v any) (any, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case float64:
		return int64(val), true
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, true
		}
		f, err := val.Float64()
		return int64(f), err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(strings.TrimSpace(string(val)), 10, 64)
		return n, err == nil
	}
	return nil, false
}
