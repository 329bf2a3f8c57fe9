// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/olegiv/sitecms/internal/analytics"
	"github.com/olegiv/sitecms/internal/middleware"
)

// Route patterns.
const (
	RoutePrefix = "/api/v1"

	RouteHealth        = "/health"
	RouteTrack         = "/track"
	RouteStats         = "/stats"
	RouteCollections   = "/collections/{table}"
	RouteCollectionID  = RouteCollections + "/{id}"
	RouteCollectionCnt = RouteCollections + "/count"
	RouteCollectionUps = RouteCollections + "/upsert/{key}"
	RouteEvents        = "/visitor_events"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// APIKey protects raw collection access, event reads and admin routes.
	// Empty disables authentication.
	APIKey string

	// RateLimit is the per-client request rate of the API; zero disables it.
	RateLimit float64
	RateBurst int

	// RequestTimeout bounds every request; zero means 30 seconds.
	RequestTimeout time.Duration

	// StaticDir, if set, is served at / with visitor tracking.
	StaticDir string
	Tracker   *analytics.Tracker
}

// NewRouter builds the HTTP handler tree.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(timeout))
	// Handlers run on the timeout goroutine; recover there.
	r.Use(chimw.Recoverer)

	r.Route(RoutePrefix, func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(middleware.NewGlobalRateLimiter(cfg.RateLimit, cfg.RateBurst).Middleware())
		}

		// Public endpoints
		r.Get(RouteHealth, h.Health)
		r.Post(RouteTrack, h.TrackEvent)

		r.Route("/site", func(r chi.Router) {
			r.Post("/subscribe", h.Subscribe)
			r.Post("/unsubscribe", h.Unsubscribe)
			r.Post("/contact", h.Contact)
			r.Post("/chat", h.Chat)
			r.Get("/chat/{session}", h.ChatHistory)
			r.Get("/newsletters", h.PublishedNewsletters)
			r.Get("/{collection}", h.ListCollection)
			r.Post("/resources/{id}/download", h.DownloadResource)
		})

		// Protected endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(cfg.APIKey))

			r.Get(RouteCollections, h.ListRows)
			r.Post(RouteCollections, h.InsertRow)
			r.Get(RouteCollectionCnt, h.CountRows)
			r.Put(RouteCollectionUps, h.UpsertRow)
			r.Get(RouteCollectionID, h.GetRow)
			r.Patch(RouteCollectionID, h.UpdateRow)
			r.Delete(RouteCollectionID, h.DeleteRow)

			r.Post(RouteEvents, h.AppendEvent)
			r.Get(RouteEvents, h.RecentEvents)
			r.Get(RouteEvents+"/views", h.CountViews)
			r.Get(RouteEvents+"/sessions", h.CountSessions)
			r.Get(RouteEvents+"/pages", h.PageViews)
			r.Get(RouteEvents+"/devices", h.DeviceCounts)
			r.Get(RouteStats, h.Stats)

			r.Route("/admin", func(r chi.Router) {
				r.Get("/dashboard", h.Dashboard)
				r.Post("/newsletters/{id}/publish", h.PublishNewsletter)
				r.Post("/newsletters/{id}/unpublish", h.UnpublishNewsletter)
				r.Get("/submissions", h.ListSubmissions)
				r.Patch("/submissions/{id}", h.UpdateSubmissionStatus)
				r.Patch("/chat/{id}", h.UpdateChatStatus)
			})
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			WriteNotFound(w, "Endpoint not found")
		})
	})

	if cfg.StaticDir != "" {
		site := http.FileServer(http.Dir(cfg.StaticDir))
		if cfg.Tracker != nil {
			site = cfg.Tracker.Middleware()(site)
		}
		r.Handle("/*", site)
	}

	return r
}

// requestLogger logs one line per request at debug level, or warn for
// server errors.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := slog.LevelDebug
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}
