// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON HTTP API: raw collection access for remote
// backends, visitor event ingestion and aggregates, and the public site
// endpoints built on the specialized repositories.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/sitecms/internal/analytics"
	"github.com/olegiv/sitecms/internal/logging"
	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/repository"
	"github.com/olegiv/sitecms/internal/version"
)

// maxBodyBytes limits request bodies.
const maxBodyBytes = 1 << 20

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	backend    repository.Backend
	registry   *repository.Registry
	events     analytics.EventLog
	ingestor   *analytics.Ingestor
	aggregator *analytics.Aggregator
	logger     *slog.Logger
	version    string
	startTime  time.Time
}

// Deps are the collaborators of the API.
type Deps struct {
	Backend    repository.Backend
	Events     analytics.EventLog
	Aggregator *analytics.Aggregator
	Logger     *slog.Logger
	Version    version.Info
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	aggregator := d.Aggregator
	if aggregator == nil {
		aggregator = analytics.NewAggregator(d.Events, logger)
	}
	return &Handler{
		backend:    d.Backend,
		registry:   repository.NewRegistry(d.Backend, logger),
		events:     d.Events,
		ingestor:   analytics.NewIngestor(d.Events, logger),
		aggregator: aggregator,
		logger:     logger,
		version:    d.Version.String(),
		startTime:  time.Now(),
	}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains list metadata.
type Meta struct {
	Total int64 `json:"total"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Error codes
const (
	CodeBadRequest         = "bad_request"
	CodeValidation         = "validation_error"
	CodeNotFound           = "not_found"
	CodeConflict           = "conflict"
	CodeUnauthorized       = "unauthorized"
	CodeBackendUnavailable = "backend_unavailable"
	CodeInternal           = "internal_error"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeBadRequest, message, nil)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message, nil)
}

// WriteModelError maps an error of the model taxonomy to a response. The
// message is derived from the error kind and never exposes backend text.
func (h *Handler) WriteModelError(w http.ResponseWriter, r *http.Request, err error) {
	message := model.UserMessage(err)

	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		details := make(map[string]string, len(ve.Errors))
		for _, fe := range ve.Errors {
			details[fe.Field] = fe.Message
		}
		WriteError(w, http.StatusUnprocessableEntity, CodeValidation, message, details)
	case errors.Is(err, model.ErrInvalidArgument):
		WriteError(w, http.StatusUnprocessableEntity, CodeValidation, message, nil)
	case errors.Is(err, model.ErrNotFound):
		WriteNotFound(w, message)
	case errors.Is(err, model.ErrConflict):
		WriteError(w, http.StatusConflict, CodeConflict, message, nil)
	case errors.Is(err, model.ErrBackendUnavailable):
		h.logger.Warn("backend unavailable", "path", r.URL.Path, "error", err)
		WriteError(w, http.StatusServiceUnavailable, CodeBackendUnavailable, message, nil)
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
		WriteError(w, http.StatusInternalServerError, CodeInternal, message, nil)
	}
}

// decodeJSON reads a JSON body into dst. Numbers are kept exact.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		WriteBadRequest(w, "Invalid JSON body")
		return false
	}
	return true
}

// HealthResponse reports backend reachability.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", "error", err)
		WriteError(w, http.StatusServiceUnavailable, CodeBackendUnavailable, model.UserMessage(model.ErrBackendUnavailable), nil)
		return
	}
	WriteSuccess(w, HealthResponse{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	}, nil)
}
