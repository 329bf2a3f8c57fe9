// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/olegiv/sitecms/internal/logging"
	"github.com/olegiv/sitecms/internal/model"
)

// SessionCookieName is the cookie holding the visitor session id.
const SessionCookieName = "sitecms_session"

const (
	trackTimeout      = 5 * time.Second
	limiterIdleExpiry = 30 * time.Minute
)

// TrackerConfig configures page view tracking.
type TrackerConfig struct {
	// Rate is the sustained number of tracked views per second per session.
	// Zero disables limiting.
	Rate         float64
	Burst        int
	ExcludePaths []string
	SecureCookie bool
}

// Tracker records page views for successful GET navigations.
type Tracker struct {
	ingestor *Ingestor
	logger   *slog.Logger
	cfg      TrackerConfig
	now      func() time.Time

	mu        sync.Mutex
	limiters  map[string]*sessionLimiter
	lastSweep time.Time

	// track runs recording; tests replace it to run synchronously.
	track func(func())
}

type sessionLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewTracker creates a tracker recording through ingestor.
func NewTracker(ingestor *Ingestor, logger *slog.Logger, cfg TrackerConfig) *Tracker {
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.Rate > 0 && cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Tracker{
		ingestor: ingestor,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		limiters: make(map[string]*sessionLimiter),
		track:    func(fn func()) { go fn() },
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.status = http.StatusOK
		rw.wroteHeader = true
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns middleware that tracks page views.
func (t *Tracker) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !t.shouldTrack(r) {
				next.ServeHTTP(w, r)
				return
			}

			// The cookie has to be set before the handler writes headers.
			sessionID, returning := t.sessionID(w, r)

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			if rw.status != http.StatusOK {
				t.logger.Debug("analytics: skipping non-200 response", "path", r.URL.Path, "status", rw.status)
				return
			}
			// Clients that drop cookies get a new session on every request,
			// so they are limited by address instead.
			limitKey := sessionID
			if !returning {
				limitKey = "ip:" + getRealIP(r)
			}
			if !t.allow(limitKey) {
				t.logger.Debug("analytics: session rate limited", "path", r.URL.Path)
				return
			}

			event := t.eventFromRequest(r, sessionID)
			ctx := context.WithoutCancel(r.Context())
			t.track(func() {
				ctx, cancel := context.WithTimeout(ctx, trackTimeout)
				defer cancel()
				t.ingestor.Record(ctx, event)
			})
		})
	}
}

// shouldTrack determines if a request should be tracked.
func (t *Tracker) shouldTrack(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}

	path := r.URL.Path

	staticPrefixes := []string{
		"/static/",
		"/assets/",
		"/media/",
		"/uploads/",
		"/favicon.",
		"/robots.txt",
		"/sitemap",
		"/.well-known/",
	}
	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}

	staticExtensions := []string{
		".css", ".js", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico", ".webp",
		".woff", ".woff2", ".ttf", ".eot", ".otf",
		".xml", ".json", ".txt", ".pdf", ".map",
		".mp3", ".mp4", ".webm", ".ogg", ".wav",
		".zip", ".tar", ".gz", ".rar",
	}
	pathLower := strings.ToLower(path)
	for _, ext := range staticExtensions {
		if strings.HasSuffix(pathLower, ext) {
			return false
		}
	}

	for _, prefix := range []string{"/admin", "/api/", "/health"} {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}

	for _, excludePath := range t.cfg.ExcludePaths {
		if excludePath != "" && strings.HasPrefix(path, excludePath) {
			return false
		}
	}

	// Prefetches are not navigations.
	if r.Header.Get("Sec-Purpose") != "" || r.Header.Get("Purpose") == "prefetch" {
		return false
	}

	return true
}

// sessionID reads the session cookie, issuing a new one when absent.
// returning reports whether the cookie was already present.
func (t *Tracker) sessionID(w http.ResponseWriter, r *http.Request) (id string, returning bool) {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value, true
	}

	id = EnsureSessionID("")
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   t.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return id, false
}

// allow applies the per-key rate limit and forgets idle keys.
func (t *Tracker) allow(key string) bool {
	if t.cfg.Rate <= 0 {
		return true
	}

	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if now.Sub(t.lastSweep) > time.Minute {
		for id, sl := range t.limiters {
			if now.Sub(sl.lastSeen) > limiterIdleExpiry {
				delete(t.limiters, id)
			}
		}
		t.lastSweep = now
	}

	sl, ok := t.limiters[key]
	if !ok {
		sl = &sessionLimiter{limiter: rate.NewLimiter(rate.Limit(t.cfg.Rate), t.cfg.Burst)}
		t.limiters[key] = sl
	}
	sl.lastSeen = now
	return sl.limiter.AllowN(now, 1)
}

func (t *Tracker) eventFromRequest(r *http.Request, sessionID string) model.VisitorEvent {
	e := model.VisitorEvent{
		SessionID: sessionID,
		PagePath:  r.URL.Path,
		UserAgent: r.UserAgent(),
		VisitedAt: t.now(),
	}
	if ref := r.Referer(); ref != "" {
		e.Referrer = &ref
	}
	if hint := r.Header.Get("Sec-CH-UA-Mobile"); hint == "?1" {
		e.DeviceType = model.DeviceMobile
	}
	return e
}

// getRealIP extracts the real client IP from the request.
// It respects X-Real-IP and X-Forwarded-For headers set by reverse proxies.
func getRealIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx > 0 {
		ip = ip[:idx]
	}
	ip = strings.TrimPrefix(ip, "[")
	ip = strings.TrimSuffix(ip, "]")

	return ip
}
