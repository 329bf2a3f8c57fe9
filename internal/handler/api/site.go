// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/sitecms/internal/analytics"
	"github.com/olegiv/sitecms/internal/cache"
	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/repository"
)

// SubscribeRequest is the newsletter signup form.
type SubscribeRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SubscribeResponse reports the subscription outcome.
type SubscribeResponse struct {
	Outcome    string       `json:"outcome"`
	Subscriber model.Entity `json:"subscriber"`
}

// ContactRequest is the contact or quote request form.
type ContactRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Company        string `json:"company"`
	Service        string `json:"service"`
	Message        string `json:"message"`
	SubmissionType string `json:"submissionType"`
}

// ChatRequest is a chat widget message.
type ChatRequest struct {
	SessionID   string             `json:"sessionId"`
	Message     string             `json:"message"`
	SenderName  string             `json:"senderName"`
	SenderEmail string             `json:"senderEmail"`
	SenderType  string             `json:"senderType"`
	Attachments []model.Attachment `json:"attachments"`
}

// StatusRequest changes the status of a submission or chat message.
type StatusRequest struct {
	Status string `json:"status"`
}

// DashboardResponse is the admin dashboard summary.
type DashboardResponse struct {
	Counts map[string]int64     `json:"counts"`
	Stats  model.Stats          `json:"stats"`
	Recent []model.VisitorEvent `json:"recent"`
	Cache  *CacheReport         `json:"cache,omitempty"`
}

// CacheReport describes the stats cache. Absent when caching is off.
type CacheReport struct {
	cache.Stats
	HitRate float64 `json:"hitRate"`
}

// Subscribe handles POST /site/subscribe.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, outcome, err := h.registry.Subscribers.Subscribe(r.Context(), req.Email, req.Name)
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}

	status := http.StatusOK
	if outcome == repository.Subscribed {
		status = http.StatusCreated
	}
	WriteJSON(w, status, Response{Data: SubscribeResponse{Outcome: outcome.String(), Subscriber: *sub}})
}

// Unsubscribe handles POST /site/unsubscribe.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sub, err := h.registry.Subscribers.Unsubscribe(r.Context(), req.Email)
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteSuccess(w, sub, nil)
}

// Contact handles POST /site/contact.
func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e, err := h.registry.Submissions.Submit(r.Context(), repository.SubmissionInput(req))
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteCreated(w, e)
}

// Chat handles POST /site/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e, err := h.registry.Chat.Create(r.Context(), repository.ChatInput{
		SessionID:   req.SessionID,
		Message:     req.Message,
		SenderName:  req.SenderName,
		SenderEmail: req.SenderEmail,
		SenderType:  req.SenderType,
		Attachments: req.Attachments,
	})
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteCreated(w, e)
}

// ChatHistory handles GET /site/chat/{session}.
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	messages, err := h.registry.Chat.ListBySession(r.Context(), chi.URLParam(r, "session"))
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteSuccess(w, messages, &Meta{Total: int64(len(messages))})
}

// PublishedNewsletters handles GET /site/newsletters. Backend failures
// degrade to an empty list.
func (h *Handler) PublishedNewsletters(w http.ResponseWriter, r *http.Request) {
	list, err := h.registry.Newsletters.ListPublished(r.Context())
	if err != nil {
		if !model.IsSoft(err) {
			h.WriteModelError(w, r, err)
			return
		}
		h.logger.Warn("listing published newsletters", "error", err)
		list = []model.Entity{}
	}
	WriteSuccess(w, list, &Meta{Total: int64(len(list))})
}

// ListCollection handles GET /site/{collection}: the public listing of a
// content collection, degrading to empty on backend failure.
func (h *Handler) ListCollection(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.registry.Collection(chi.URLParam(r, "collection"))
	if !ok || !isPublicCollection(repo.Collection().Name) {
		WriteNotFound(w, model.UserMessage(model.ErrNotFound))
		return
	}

	list := repo.ListAllOrEmpty(r.Context())
	WriteSuccess(w, list, &Meta{Total: int64(len(list))})
}

// DownloadResource handles POST /site/resources/{id}/download.
func (h *Handler) DownloadResource(w http.ResponseWriter, r *http.Request) {
	e, err := h.registry.Resources.IncrementDownloadCount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteSuccess(w, e, nil)
}

// PublishNewsletter handles POST /admin/newsletters/{id}/publish.
func (h *Handler) PublishNewsletter(w http.ResponseWriter, r *http.Request) {
	e, err := h.registry.Newsletters.Publish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteSuccess(w, e, nil)
}

// UnpublishNewsletter handles POST /admin/newsletters/{id}/unpublish.
func (h *Handler) UnpublishNewsletter(w http.ResponseWriter, r *http.Request) {
	e, err := h.registry.Newsletters.Unpublish(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteSuccess(w, e, nil)
}

// ListSubmissions handles GET /admin/submissions?status=.
func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		status = model.SubmissionStatusNew
	}

	list, err := h.registry.Submissions.ListByStatus(r.Context(), status)
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteSuccess(w, list, &Meta{Total: int64(len(list))})
}

// UpdateSubmissionStatus handles PATCH /admin/submissions/{id}.
func (h *Handler) UpdateSubmissionStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e, err := h.registry.Submissions.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteSuccess(w, e, nil)
}

// UpdateChatStatus handles PATCH /admin/chat/{id}.
func (h *Handler) UpdateChatStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e, err := h.registry.Chat.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.WriteModelError(w, r, err)
		return
	}
	WriteSuccess(w, e, nil)
}

// Dashboard handles GET /admin/dashboard?start=&end=&limit=.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit <= 0 {
		limit = 10
	}

	resp := DashboardResponse{
		Counts: h.registry.Counts(r.Context()),
		Stats:  h.aggregator.ComputeStats(r.Context(), q.Get("start"), q.Get("end")),
		Recent: h.aggregator.Recent(r.Context(), analytics.ClampLimit(limit)),
	}
	if cs, ok := h.aggregator.CacheStats(); ok {
		resp.Cache = &CacheReport{Stats: cs, HitRate: cs.HitRate()}
	}
	WriteSuccess(w, resp, nil)
}

// isPublicCollection reports whether a collection is listed on the public
// site. Visitor-submitted collections are admin only; newsletters are listed
// through the published endpoint.
func isPublicCollection(name string) bool {
	switch name {
	case model.CollectionSubscribers, model.CollectionContactSubmissions,
		model.CollectionChatMessages, model.CollectionNewsletters:
		return false
	}
	return true
}
