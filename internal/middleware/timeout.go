// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Timeout bounds each request to d. The handler runs on its own goroutine
// with a deadline on its context; when the deadline passes first the client
// gets a 503 "timeout" error, unless the handler already started responding.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &timeoutWriter{ResponseWriter: w}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case <-done:
				tw.finish()
			case <-ctx.Done():
				if tw.expire() {
					WriteAPIError(w, http.StatusServiceUnavailable, "timeout", "Request timeout", nil)
				}
			}
		})
	}
}

// timeoutWriter serializes writes from the handler goroutine with the
// timeout response. The handler gets its own header map, copied to the
// real writer only when the handler's response is committed, so the
// timeout response never shares headers with a still-running handler.
type timeoutWriter struct {
	http.ResponseWriter

	mu       sync.Mutex
	h        http.Header
	started  bool
	timedOut bool
}

func (tw *timeoutWriter) Header() http.Header {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.h == nil {
		tw.h = make(http.Header)
	}
	return tw.h
}

// expire marks the request as timed out and reports whether the timeout
// response may still be written.
func (tw *timeoutWriter) expire() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.timedOut = true
	if tw.started {
		return false
	}
	tw.started = true
	return true
}

// finish copies headers of a handler that returned without writing.
func (tw *timeoutWriter) finish() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if !tw.started {
		tw.copyHeader()
	}
}

// copyHeader must be called with mu held.
func (tw *timeoutWriter) copyHeader() {
	dst := tw.ResponseWriter.Header()
	for k, v := range tw.h {
		dst[k] = append([]string(nil), v...)
	}
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.started {
		return
	}
	tw.started = true
	tw.copyHeader()
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if !tw.started {
		tw.started = true
		tw.copyHeader()
		tw.ResponseWriter.WriteHeader(http.StatusOK)
	}
	return tw.ResponseWriter.Write(b)
}
