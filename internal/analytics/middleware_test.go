// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package analytics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/sitecms/internal/model"
	"github.com/olegiv/sitecms/internal/testutil"
)

func newTestTracker(log *memoryLog, cfg TrackerConfig) *Tracker {
	tr := NewTracker(newTestIngestor(log), testutil.TestLoggerSilent(), cfg)
	tr.now = func() time.Time { return fixedNow }
	tr.track = func(fn func()) { fn() }
	return tr
}

func serve(tr *Tracker, status int, req *http.Request) *httptest.ResponseRecorder {
	h := tr.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("<html></html>"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTracker_RecordsPageViewAndSetsCookie(t *testing.T) {
	log := &memoryLog{}
	tr := newTestTracker(log, TrackerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/solutions", nil)
	req.Header.Set("User-Agent", uaChromeWindows)
	req.Header.Set("Referer", "https://www.google.com/")
	rec := serve(tr, http.StatusOK, req)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	require.Len(t, log.events, 1)
	e := log.events[0]
	assert.Equal(t, cookies[0].Value, e.SessionID)
	assert.Equal(t, "/solutions", e.PagePath)
	assert.Equal(t, model.DeviceDesktop, e.DeviceType)
	require.NotNil(t, e.Referrer)
	assert.Equal(t, "https://www.google.com/", *e.Referrer)
}

func TestTracker_ReusesSessionCookie(t *testing.T) {
	log := &memoryLog{}
	tr := newTestTracker(log, TrackerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "known-session"})
	rec := serve(tr, http.StatusOK, req)

	assert.Empty(t, rec.Result().Cookies())
	require.Len(t, log.events, 1)
	assert.Equal(t, "known-session", log.events[0].SessionID)
}

func TestTracker_SkipsNonTrackable(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"post", http.MethodPost, "/contact", http.StatusOK},
		{"static prefix", http.MethodGet, "/static/app.css", http.StatusOK},
		{"asset extension", http.MethodGet, "/images/logo.PNG", http.StatusOK},
		{"api", http.MethodGet, "/api/v1/advisors", http.StatusOK},
		{"admin", http.MethodGet, "/admin/dashboard", http.StatusOK},
		{"excluded", http.MethodGet, "/preview/draft", http.StatusOK},
		{"not found", http.MethodGet, "/missing", http.StatusNotFound},
		{"server error", http.MethodGet, "/broken", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &memoryLog{}
			tr := newTestTracker(log, TrackerConfig{ExcludePaths: []string{"/preview"}})

			serve(tr, tt.status, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Empty(t, log.events)
		})
	}
}

func TestTracker_SkipsPrefetch(t *testing.T) {
	log := &memoryLog{}
	tr := newTestTracker(log, TrackerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Sec-Purpose", "prefetch")
	serve(tr, http.StatusOK, req)

	assert.Empty(t, log.events)
}

func TestTracker_RateLimitsPerSession(t *testing.T) {
	log := &memoryLog{}
	tr := newTestTracker(log, TrackerConfig{Rate: 1, Burst: 2})

	for range 5 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "busy"})
		serve(tr, http.StatusOK, req)
	}
	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "calm"})
	serve(tr, http.StatusOK, other)

	require.Len(t, log.events, 3)
	assert.Equal(t, "calm", log.events[2].SessionID)
}

func TestTracker_CookielessClientsLimitedByAddress(t *testing.T) {
	log := &memoryLog{}
	tr := newTestTracker(log, TrackerConfig{Rate: 1, Burst: 1})

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		serve(tr, http.StatusOK, req)
	}

	assert.Len(t, log.events, 1)
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{"X-Real-IP header", "127.0.0.1:12345", map[string]string{"X-Real-IP": "203.0.113.50"}, "203.0.113.50"},
		{"X-Forwarded-For list", "127.0.0.1:12345", map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}, "203.0.113.50"},
		{"remote addr", "192.168.1.100:54321", nil, "192.168.1.100"},
		{"IPv6 remote addr", "[::1]:8080", nil, "::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getRealIP(req); got != tt.expected {
				t.Errorf("getRealIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}
