// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/olegiv/sitecms/internal/analytics"
	"github.com/olegiv/sitecms/internal/model"
)

// AppendEvent handles POST /visitor_events, the raw append used by the REST
// backend. The event is stored as sent apart from the device class check;
// metadata derivation is the recording side's job.
func (h *Handler) AppendEvent(w http.ResponseWriter, r *http.Request) {
	var e model.VisitorEvent
	if !decodeJSON(w, r, &e) {
		return
	}
	if e.DeviceType != "" && !model.IsValidDeviceType(e.DeviceType) {
		h.WriteModelError(w, r, model.NewValidationError("deviceType", "must be one of mobile, tablet, desktop"))
		return
	}

	if err := h.events.Append(r.Context(), e); err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TrackEvent handles POST /track, the beacon endpoint of the public site.
// It never fails: ingestion is best effort.
func (h *Handler) TrackEvent(w http.ResponseWriter, r *http.Request) {
	var e model.VisitorEvent
	if !decodeJSON(w, r, &e) {
		return
	}

	if e.UserAgent == "" {
		e.UserAgent = r.UserAgent()
	}
	e.SessionID = analytics.EnsureSessionID(e.SessionID)
	e.ID = ""
	e.VisitedAt = e.VisitedAt.UTC()

	h.ingestor.Record(context.WithoutCancel(r.Context()), e)
	WriteJSON(w, http.StatusAccepted, Response{Data: map[string]string{"sessionId": e.SessionID}})
}

// RecentEvents handles GET /visitor_events?limit=n.
func (h *Handler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		limit = n
	}

	events, err := h.events.Recent(r.Context(), analytics.ClampLimit(limit))
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteSuccess(w, events, &Meta{Total: int64(len(events))})
}

// CountViews handles GET /visitor_events/views.
func (h *Handler) CountViews(w http.ResponseWriter, r *http.Request) {
	h.countEvents(w, r, h.events.CountViews)
}

// CountSessions handles GET /visitor_events/sessions.
func (h *Handler) CountSessions(w http.ResponseWriter, r *http.Request) {
	h.countEvents(w, r, h.events.CountUniqueSessions)
}

// PageViews handles GET /visitor_events/pages.
func (h *Handler) PageViews(w http.ResponseWriter, r *http.Request) {
	h.groupEvents(w, r, h.events.PageViews)
}

// DeviceCounts handles GET /visitor_events/devices.
func (h *Handler) DeviceCounts(w http.ResponseWriter, r *http.Request) {
	h.groupEvents(w, r, h.events.DeviceCounts)
}

// Stats handles GET /stats?start=&end=. Bounds follow ComputeStats: bare
// dates or RFC 3339 timestamps.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if _, err := analytics.ParseRange(q.Get("start"), q.Get("end"), h.aggregator.Location()); err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteSuccess(w, h.aggregator.ComputeStats(r.Context(), q.Get("start"), q.Get("end")), nil)
}

func (h *Handler) eventRange(w http.ResponseWriter, r *http.Request) (model.TimeRange, bool) {
	q := r.URL.Query()
	tr, err := analytics.ParseNamedRange("from", q.Get("from"), "to", q.Get("to"), h.aggregator.Location())
	if err != nil {
		h.WriteModelError(w, r, err)
		return tr, false
	}
	return tr, true
}

func (h *Handler) countEvents(w http.ResponseWriter, r *http.Request, count func(context.Context, model.TimeRange) (int64, error)) {
	tr, ok := h.eventRange(w, r)
	if !ok {
		return
	}
	n, err := count(r.Context(), tr)
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteSuccess(w, CountResult{Count: n}, nil)
}

func (h *Handler) groupEvents(w http.ResponseWriter, r *http.Request, group func(context.Context, model.TimeRange) (map[string]int64, error)) {
	tr, ok := h.eventRange(w, r)
	if !ok {
		return
	}
	m, err := group(r.Context(), tr)
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteSuccess(w, m, nil)
}
