// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package upstream

import (
	"context"
	"crypto/tls"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NVIDIA/cns-portal/pkg/defaults"
	"github.com/NVIDIA/cns-portal/pkg/errors"
)

const (
	// DefaultUserAgent identifies the portal to upstream services.
	DefaultUserAgent = "CNS-Portal/1.0"

	tracerName = "github.com/NVIDIA/cns-portal/pkg/upstream"
)

var (
	upstreamAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_upstream_attempts_total",
			Help: "Total number of upstream request attempts by outcome",
		},
		[]string{"outcome"},
	)

	upstreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "portal_upstream_attempt_duration_seconds",
			Help:    "Upstream request attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled default client. Its Timeout should be
// zero; per-attempt budgets are enforced through the request context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the default per-attempt budget.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxAttempts sets the default number of attempts, first try included.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n >= 1 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the step multiplied by the attempt number between retries.
func WithBackoff(step time.Duration) Option {
	return func(c *Client) {
		if step >= 0 {
			c.backoff = step
		}
	}
}

// WithLogger sets the logger receiving per-attempt records.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the tracer used for per-attempt spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxBodyBytes caps how many body bytes are decoded.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// Client fetches JSON documents from upstream services.
type Client struct {
	httpClient   *http.Client
	timeout      time.Duration
	maxAttempts  int
	backoff      time.Duration
	maxBodyBytes int64
	userAgent    string
	logger       *slog.Logger
	tracer       trace.Tracer
}

// NewClient creates a Client with the specified options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Transport: newDefaultHTTPTransport()},
		timeout:      defaults.UpstreamTimeout,
		maxAttempts:  defaults.UpstreamMaxAttempts,
		backoff:      defaults.UpstreamBackoffStep,
		maxBodyBytes: defaults.UpstreamMaxBodyBytes,
		userAgent:    DefaultUserAgent,
		logger:       slog.Default(),
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newDefaultHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: defaults.HTTPMaxIdleConnsPerHost,
		DialContext: (&net.Dialer{
			Timeout:   defaults.HTTPConnectTimeout,
			KeepAlive: defaults.HTTPKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   defaults.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       defaults.HTTPIdleConnTimeout,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

type requestConfig struct {
	timeout     time.Duration
	maxAttempts int
}

// RequestOption overrides client defaults for a single call.
type RequestOption func(*requestConfig)

// Timeout overrides the per-attempt budget. Non-positive values are ignored.
func Timeout(d time.Duration) RequestOption {
	return func(rc *requestConfig) {
		if d > 0 {
			rc.timeout = d
		}
	}
}

// MaxAttempts overrides the attempt count. Values below 1 are clamped to 1.
func MaxAttempts(n int) RequestOption {
	return func(rc *requestConfig) {
		rc.maxAttempts = max(n, 1)
	}
}

// GetJSON fetches url and decodes the body into a new T.
func GetJSON[T any](ctx context.Context, c *Client, url string, opts ...RequestOption) (T, error) {
	var out T
	if err := c.Get(ctx, url, &out, opts...); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Get fetches url and decodes the JSON body into out. On failure the returned
// error is a *errors.StructuredError classifying the final attempt.
func (c *Client) Get(ctx context.Context, url string, out any, opts ...RequestOption) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if url == "" {
		return errors.New(errors.ErrCodeUnknown, "upstream url is empty")
	}

	rc := requestConfig{timeout: c.timeout, maxAttempts: c.maxAttempts}
	for _, opt := range opts {
		opt(&rc)
	}

	var err error
	for attempt := 1; attempt <= rc.maxAttempts; attempt++ {
		err = c.attempt(ctx, url, attempt, rc.timeout, out)
		if err == nil {
			return nil
		}
		if !errors.IsRetryable(err) || attempt == rc.maxAttempts {
			return err
		}
		if werr := c.wait(ctx, time.Duration(attempt)*c.backoff); werr != nil {
			return werr
		}
	}
	return err
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return errors.Wrap(errors.ErrCodeUnknown, "upstream request cancelled", ctx.Err())
	}
}

// attempt performs one request under its own timeout. The deferred cancel
// releases the timer on every return path.
func (c *Client) attempt(ctx context.Context, url string, n int, timeout time.Duration, out any) (err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	requestID := CorrelationID(ctx)
	attemptCtx, span := c.tracer.Start(attemptCtx, "upstream.GET",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodGet),
			attribute.String("url.full", url),
			attribute.Int("upstream.attempt", n),
			attribute.String("request.id", requestID),
		))

	start := time.Now()
	status := 0
	defer func() {
		duration := time.Since(start)
		outcome := "success"
		attrs := []slog.Attr{
			slog.String("requestID", requestID),
			slog.String("method", http.MethodGet),
			slog.String("url", url),
			slog.Int("attempt", n),
			slog.Duration("duration", duration),
		}
		if status != 0 {
			attrs = append(attrs, slog.Int("status", status))
			span.SetAttributes(attribute.Int("http.response.status_code", status))
		}
		if err != nil {
			outcome = string(errors.CodeOf(err))
			attrs = append(attrs, slog.String("error", err.Error()))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		upstreamAttempts.WithLabelValues(outcome).Inc()
		upstreamDuration.Observe(duration.Seconds())
		c.logger.LogAttrs(ctx, slog.LevelDebug, "upstream request", attrs...)
	}()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeUnknown, "invalid upstream request", err,
			map[string]any{"url": url})
	}
	req.Header.Set("Accept", "application/json")
	if requestID != "" {
		req.Header.Set(HeaderRequestID, requestID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(ctx, attemptCtx, url, n, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return errors.Upstream(resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return classify(ctx, attemptCtx, url, n, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.WrapWithContext(errors.ErrCodeUnknown, "upstream body is not valid JSON", err,
			map[string]any{"url": url, "status": status})
	}
	return nil
}

// classify maps a transport-level failure onto the error taxonomy.
func classify(parent, attemptCtx context.Context, url string, n int, err error) error {
	ctxInfo := map[string]any{"url": url, "attempt": n}

	if parent.Err() != nil {
		return errors.WrapWithContext(errors.ErrCodeUnknown, "upstream request cancelled", parent.Err(), ctxInfo)
	}
	if stderrors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return errors.WrapWithContext(errors.ErrCodeTimeout, "upstream request timed out", err, ctxInfo)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.WrapWithContext(errors.ErrCodeTimeout, "upstream request timed out", err, ctxInfo)
	}
	return errors.WrapWithContext(errors.ErrCodeNetwork, fmt.Sprintf("upstream transport failure on attempt %d", n), err, ctxInfo)
}
