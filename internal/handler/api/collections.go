// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/repository"
)

// Reserved list query parameters; every other parameter filters a column.
const (
	paramOrder = "order"
	paramAsc   = "asc"
	paramLimit = "limit"
)

// UpsertResult is the response body of an upsert.
type UpsertResult struct {
	Row      model.Row `json:"row"`
	Inserted bool      `json:"inserted"`
}

// CountResult is the response body of count endpoints.
type CountResult struct {
	Count int64 `json:"count"`
}

// ListRows handles GET /collections/{table}.
func (h *Handler) ListRows(w http.ResponseWriter, r *http.Request) {
	q, ok := parseListQuery(w, r)
	if !ok {
		return
	}

	rows, err := h.backend.List(r.Context(), chi.URLParam(r, "table"), q)
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteSuccess(w, rows, &Meta{Total: int64(len(rows))})
}

// CountRows handles GET /collections/{table}/count.
func (h *Handler) CountRows(w http.ResponseWriter, r *http.Request) {
	n, err := h.backend.Count(r.Context(), chi.URLParam(r, "table"), filterParams(r))
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteSuccess(w, CountResult{Count: n}, nil)
}

// GetRow handles GET /collections/{table}/{id}.
func (h *Handler) GetRow(w http.ResponseWriter, r *http.Request) {
	row, err := h.backend.Get(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteSuccess(w, row, nil)
}

// InsertRow handles POST /collections/{table}.
func (h *Handler) InsertRow(w http.ResponseWriter, r *http.Request) {
	var row model.Row
	if !decodeJSON(w, r, &row) {
		return
	}

	table := chi.URLParam(r, "table")
	row, err := repository.StampPublished(r.Context(), h.backend, table, "", row, time.Now())
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}

	created, err := h.backend.Insert(r.Context(), table, row)
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteCreated(w, created)
}

// UpdateRow handles PATCH /collections/{table}/{id}.
func (h *Handler) UpdateRow(w http.ResponseWriter, r *http.Request) {
	var row model.Row
	if !decodeJSON(w, r, &row) {
		return
	}

	table, id := chi.URLParam(r, "table"), chi.URLParam(r, "id")
	row, err := repository.StampPublished(r.Context(), h.backend, table, id, row, time.Now())
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}

	updated, err := h.backend.Update(r.Context(), table, id, row)
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteSuccess(w, updated, nil)
}

// DeleteRow handles DELETE /collections/{table}/{id}.
func (h *Handler) DeleteRow(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.Delete(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "id")); err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpsertRow handles PUT /collections/{table}/upsert/{key}.
func (h *Handler) UpsertRow(w http.ResponseWriter, r *http.Request) {
	var row model.Row
	if !decodeJSON(w, r, &row) {
		return
	}

	table := chi.URLParam(r, "table")
	row, err := repository.StampPublished(r.Context(), h.backend, table, "", row, time.Now())
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}

	stored, inserted, err := h.backend.Upsert(r.Context(), table, chi.URLParam(r, "key"), row)
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}

	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}
	WriteJSON(w, status, Response{Data: UpsertResult{Row: stored, Inserted: inserted}})
}

func parseListQuery(w http.ResponseWriter, r *http.Request) (model.Query, bool) {
	values := r.URL.Query()
	q := model.Query{
		Filters: filterParams(r),
		OrderBy: values.Get(paramOrder),
	}

	if v := values.Get(paramAsc); v != "" {
		asc, err := strconv.ParseBool(v)
		if err != nil {
			WriteBadRequest(w, "Invalid asc parameter")
			return q, false
		}
		q.Asc = asc
	}
	if v := values.Get(paramLimit); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			WriteBadRequest(w, "Invalid limit parameter")
			return q, false
		}
		q.Limit = limit
	}

	return q, true
}

// filterParams turns non-reserved query parameters into equality filters.
func filterParams(r *http.Request) map[string]any {
	filters := map[string]any{}
	for key, vals := range r.URL.Query() {
		switch key {
		case paramOrder, paramAsc, paramLimit:
			continue
		}
		if len(vals) > 0 {
			filters[key] = vals[0]
		}
	}
	return filters
}
