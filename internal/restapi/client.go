// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package restapi is the REST backend: a client for the collections and
// visitor event endpoints of a remote sitecms API. It implements the same
// contracts as the SQL store so the two are interchangeable at startup.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/olegiv/sitecms/internal/logging"
	"github.com/olegiv/sitecms/internal/model"
)

// Client configuration defaults.
const (
	DefaultTimeout    = 10 * time.Second
	DefaultRetryDelay = 500 * time.Millisecond
	maxResponseBytes  = 10 << 20
	userAgent         = "sitecms/1.0"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. https://cms.example.com/api/v1.
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// RetryDelay is the pause before retrying a failed read. Negative
	// disables retries.
	RetryDelay time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to a remote sitecms API.
type Client struct {
	baseURL    string
	apiKey     string
	retryDelay time.Duration
	httpClient *http.Client
	log        *slog.Logger
}

// New creates a client. A missing or malformed base URL leaves the backend
// unconfigured and is reported as unavailable.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: REST backend URL not configured", model.ErrBackendUnavailable)
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid REST backend URL %q", model.ErrBackendUnavailable, base)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	retryDelay := opts.RetryDelay
	if retryDelay == 0 {
		retryDelay = DefaultRetryDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Client{
		baseURL:    base,
		apiKey:     opts.APIKey,
		retryDelay: retryDelay,
		httpClient: httpClient,
		log:        logger.With("backend", "rest"),
	}, nil
}

// envelope is the API response wrapper.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *apiError       `json:"error"`
}

type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

// do sends one request and decodes the data member of the response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (int, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return 0, fmt.Errorf("%w: encoding request: %w", model.ErrInvalidArgument, err)
		}
	}

	newRequest := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		return req, nil
	}

	c.log.DebugContext(ctx, "rest request", "method", method, "path", path)

	resp, err := c.send(ctx, method, newRequest)
	if err != nil {
		return 0, transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, transportError(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var env envelope
		_ = json.Unmarshal(raw, &env)
		return resp.StatusCode, statusError(method, path, resp.StatusCode, env.Error)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: decoding %s response: %w", model.ErrBackendUnavailable, path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(env.Data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: decoding %s data: %w", model.ErrBackendUnavailable, path, err)
	}
	return resp.StatusCode, nil
}

// send executes the request, retrying reads once on network errors or 5xx.
func (c *Client) send(ctx context.Context, method string, newRequest func() (*http.Request, error)) (*http.Response, error) {
	req, err := newRequest()
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)

	shouldRetry := err != nil || resp.StatusCode >= http.StatusInternalServerError
	if !shouldRetry || method != http.MethodGet || c.retryDelay < 0 || ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
		_ = resp.Body.Close()
	}
	c.log.WarnContext(ctx, "rest retry", "url", req.URL.Path, "reason", reason)

	select {
	case <-time.After(c.retryDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if req, err = newRequest(); err != nil {
		return nil, err
	}
	return c.httpClient.Do(req)
}

// transportError classifies a failure to reach the API. Cancellation by the
// caller passes through.
func transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	return fmt.Errorf("%w: %w", model.ErrBackendUnavailable, err)
}

// statusError maps an error response onto the model taxonomy.
func statusError(method, path string, status int, body *apiError) error {
	msg := http.StatusText(status)
	if body != nil && body.Message != "" {
		msg = body.Message
	}
	where := method + " " + path

	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", where, model.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: %w", where, model.ErrConflict)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if body != nil && len(body.Details) > 0 {
			fields := make([]string, 0, len(body.Details))
			for f := range body.Details {
				fields = append(fields, f)
			}
			slices.Sort(fields)

			errs := make([]model.FieldError, 0, len(fields))
			for _, f := range fields {
				errs = append(errs, model.FieldError{Field: f, Message: body.Details[f]})
			}
			return &model.ValidationError{Errors: errs}
		}
		return fmt.Errorf("%s: %w: %s", where, model.ErrInvalidArgument, msg)
	default:
		// Auth failures, rate limits and server errors all mean the remote
		// backend cannot serve us right now.
		return fmt.Errorf("%s: %w: status %d: %s", where, model.ErrBackendUnavailable, status, msg)
	}
}

func collectionPath(table string, parts ...string) string {
	p := "/collections/" + url.PathEscape(table)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// Ping checks that the API answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
	return err
}
