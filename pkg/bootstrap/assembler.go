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

package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"

	"github.com/NVIDIA/cns-portal/pkg/defaults"
	"github.com/NVIDIA/cns-portal/pkg/errors"
	"github.com/NVIDIA/cns-portal/pkg/reqctx"
	"github.com/NVIDIA/cns-portal/pkg/ttlcache"
	"github.com/NVIDIA/cns-portal/pkg/upstream"
)

const (
	tracerName = "github.com/NVIDIA/cns-portal/pkg/bootstrap"

	// UserIDPlaceholder is replaced with the path-escaped identity in the
	// identity URL.
	UserIDPlaceholder = "{userId}"

	// keySep joins the user id and route of a private key. Cookie values
	// cannot contain it, so the user id ends at the first keySep.
	keySep = "\x00"
)

var assemblies = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "portal_bootstrap_assemblies_total",
		Help: "Total number of bootstrap payloads assembled by page kind and cache",
	},
	[]string{"kind", "cache"},
)

// Getter fetches JSON from an upstream URL. *upstream.Client implements it.
type Getter interface {
	Get(ctx context.Context, url string, out any, opts ...upstream.RequestOption) error
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithIdentityURL sets the identity upstream. It may contain UserIDPlaceholder.
func WithIdentityURL(u string) Option {
	return func(a *Assembler) {
		a.identityURL = u
	}
}

// WithListingURL sets the listing upstream.
func WithListingURL(u string) Option {
	return func(a *Assembler) {
		a.listingURL = u
	}
}

// WithPublicTTL sets the lifetime of anonymous payloads.
func WithPublicTTL(d time.Duration) Option {
	return func(a *Assembler) {
		a.publicTTL = d
	}
}

// WithPrivateTTL sets the lifetime of authenticated payloads.
func WithPrivateTTL(d time.Duration) Option {
	return func(a *Assembler) {
		a.privateTTL = d
	}
}

// WithDataTTL sets the lifetime of datasets served by Dataset.
func WithDataTTL(d time.Duration) Option {
	return func(a *Assembler) {
		a.dataTTL = d
	}
}

// WithMaxEntries bounds each cache.
func WithMaxEntries(n int) Option {
	return func(a *Assembler) {
		a.maxEntries = n
	}
}

// WithSweepInterval enables background removal of expired entries.
func WithSweepInterval(d time.Duration) Option {
	return func(a *Assembler) {
		a.sweepInterval = d
	}
}

// WithClock replaces the wall clock used by the caches.
func WithClock(c clock.WithTicker) Option {
	return func(a *Assembler) {
		if c != nil {
			a.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(a *Assembler) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithUpstreamTimeout sets the per-attempt budget of upstream calls.
func WithUpstreamTimeout(d time.Duration) Option {
	return func(a *Assembler) {
		a.upstreamOpts = append(a.upstreamOpts, upstream.Timeout(d))
	}
}

// WithUpstreamMaxAttempts sets the attempt count of upstream calls.
func WithUpstreamMaxAttempts(n int) Option {
	return func(a *Assembler) {
		a.upstreamOpts = append(a.upstreamOpts, upstream.MaxAttempts(n))
	}
}

// Assembler builds and caches bootstrap payloads.
type Assembler struct {
	getter       Getter
	identityURL  string
	listingURL   string
	upstreamOpts []upstream.RequestOption

	publicTTL     time.Duration
	privateTTL    time.Duration
	dataTTL       time.Duration
	maxEntries    int
	sweepInterval time.Duration
	clock         clock.WithTicker

	logger *slog.Logger
	tracer trace.Tracer

	public  *ttlcache.Cache[Payload]
	private *ttlcache.Cache[Payload]
	data    *ttlcache.Cache[[]ListingItem]
	group   singleflight.Group
}

// NewAssembler creates an assembler fetching through getter.
func NewAssembler(getter Getter, opts ...Option) *Assembler {
	a := &Assembler{
		getter:     getter,
		publicTTL:  defaults.BootstrapCacheTTL,
		privateTTL: defaults.BootstrapCacheTTL,
		dataTTL:    defaults.DataCacheTTL,
		maxEntries: defaults.CacheMaxEntries,
		clock:      clock.RealClock{},
		logger:     slog.Default(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}

	cacheOpts := func(name string) []ttlcache.Option {
		return []ttlcache.Option{
			ttlcache.WithName(name),
			ttlcache.WithClock(a.clock),
			ttlcache.WithMaxEntries(a.maxEntries),
			ttlcache.WithSweepInterval(a.sweepInterval),
		}
	}
	a.public = ttlcache.New[Payload](a.publicTTL, cacheOpts("bootstrap_public")...)
	a.private = ttlcache.New[Payload](a.privateTTL, cacheOpts("bootstrap_private")...)
	a.data = ttlcache.New[[]ListingItem](a.dataTTL, cacheOpts("data")...)
	return a
}

// IsPublic reports whether payloads for rc may be shared between callers.
// Greetings name the caller once authenticated, so only anonymous requests
// qualify.
func IsPublic(rc reqctx.RequestContext) bool {
	return !rc.IsAuthenticated
}

// CacheKey returns the cache rc's payload is stored in and its key there.
func CacheKey(rc reqctx.RequestContext) (cache, key string) {
	if IsPublic(rc) {
		return "public", rc.Route
	}
	// An empty id marks an authenticated request without an identity.
	return "private", rc.UserID + keySep + rc.Route
}

func (a *Assembler) cacheFor(rc reqctx.RequestContext) (*ttlcache.Cache[Payload], string, string) {
	name, key := CacheKey(rc)
	if name == "public" {
		return a.public, name, key
	}
	return a.private, name, key
}

// Get returns the bootstrap payload for rc. It never fails; upstream failures
// produce an error payload.
func (a *Assembler) Get(ctx context.Context, rc reqctx.RequestContext) Payload {
	ctx = upstream.WithCorrelationID(ctx, rc.RequestID)
	cache, cacheName, key := a.cacheFor(rc)

	ctx, span := a.tracer.Start(ctx, "bootstrap.Get", trace.WithAttributes(
		attribute.String("bootstrap.route", rc.Route),
		attribute.String("bootstrap.cache", cacheName),
		attribute.String("request.id", rc.RequestID),
	))
	defer span.End()

	if p, ok := cache.Get(key); ok {
		span.SetAttributes(attribute.Bool("bootstrap.cache_hit", true))
		a.logger.Debug("bootstrap cache hit", "ctx", rc, "cache", cacheName)
		return p
	}
	span.SetAttributes(attribute.Bool("bootstrap.cache_hit", false))

	v, _, shared := a.group.Do(cacheName+"\x00"+key, func() (any, error) {
		if p, ok := cache.Get(key); ok {
			return p, nil
		}
		p := a.assemble(ctx, rc)
		assemblies.WithLabelValues(string(p.Page.Kind()), cacheName).Inc()
		if !p.IsError() {
			cache.Set(key, p)
		}
		return p, nil
	})
	p := v.(Payload)
	span.SetAttributes(
		attribute.Bool("bootstrap.coalesced", shared),
		attribute.String("bootstrap.kind", string(p.Page.Kind())),
	)
	if ep, ok := p.Page.(ErrorPage); ok {
		span.SetStatus(codes.Error, string(ep.Code))
	}
	return p
}

// assemble builds a payload without consulting the caches. Panics are
// contained and reported as UNKNOWN.
func (a *Assembler) assemble(ctx context.Context, rc reqctx.RequestContext) (p Payload) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.New(errors.ErrCodeUnknown, fmt.Sprintf("panic during bootstrap assembly: %v", r))
			p = a.errorPayload(ctx, rc, err)
		}
	}()

	greeting := a.greeting(ctx, rc)

	page, err := a.page(ctx, rc)
	if err != nil {
		return a.errorPayload(ctx, rc, err)
	}
	return Payload{Route: rc.Route, Greeting: greeting, Page: page}
}

func (a *Assembler) errorPayload(ctx context.Context, rc reqctx.RequestContext, err error) Payload {
	ep := ErrorPageFor(err)
	a.logger.WarnContext(ctx, "bootstrap assembly failed",
		"ctx", rc,
		"code", string(errors.CodeOf(err)),
		"status", ep.Status,
		"error", err,
	)
	trace.SpanFromContext(ctx).RecordError(err)
	return Payload{
		Route:    rc.Route,
		Greeting: baseGreeting(rc.IsAuthenticated),
		Page:     ep,
	}
}

// greeting never fails: identity problems degrade to the generic
// authenticated greeting.
func (a *Assembler) greeting(ctx context.Context, rc reqctx.RequestContext) string {
	if !rc.IsAuthenticated || !rc.HasIdentity() || a.identityURL == "" {
		return baseGreeting(rc.IsAuthenticated)
	}

	var id Identity
	if err := a.getter.Get(ctx, IdentityURL(a.identityURL, rc.UserID), &id, a.upstreamOpts...); err != nil {
		a.logger.WarnContext(ctx, "identity lookup failed, using generic greeting",
			"ctx", rc,
			"code", string(errors.CodeOf(err)),
			"error", err,
		)
		return greetingAuthenticated
	}

	name := DisplayName(id)
	if name == "" {
		return greetingAuthenticated
	}
	return greetingAuthenticated + ", " + name
}

func (a *Assembler) page(ctx context.Context, rc reqctx.RequestContext) (Page, error) {
	switch rc.Route {
	case ListingRoute:
		items, err := a.fetchListing(ctx)
		if err != nil {
			return nil, err
		}
		return ListingPage{Items: items}, nil
	default:
		return HomePage{}, nil
	}
}

func (a *Assembler) fetchListing(ctx context.Context) ([]ListingItem, error) {
	if a.listingURL == "" {
		return nil, errors.New(errors.ErrCodeUnknown, "listing upstream is not configured")
	}
	var records []Record
	if err := a.getter.Get(ctx, a.listingURL, &records, a.upstreamOpts...); err != nil {
		return nil, err
	}
	return Project(records), nil
}

// Datasets lists the names Dataset serves.
func Datasets() []string {
	return []string{ListingDataset}
}

// Dataset returns the named dataset in its internal shape, cached in the
// data cache. Unknown names fail with ErrCodeNotFound.
func (a *Assembler) Dataset(ctx context.Context, rc reqctx.RequestContext, name string) ([]ListingItem, error) {
	if name != ListingDataset {
		return nil, errors.NewWithContext(errors.ErrCodeNotFound, "unknown dataset",
			map[string]any{"dataset": name})
	}
	ctx = upstream.WithCorrelationID(ctx, rc.RequestID)

	ctx, span := a.tracer.Start(ctx, "bootstrap.Dataset", trace.WithAttributes(
		attribute.String("bootstrap.dataset", name),
		attribute.String("request.id", rc.RequestID),
	))
	defer span.End()

	if items, ok := a.data.Get(name); ok {
		a.logger.Debug("dataset cache hit", "ctx", rc, "dataset", name)
		return items, nil
	}

	v, err, _ := a.group.Do("data\x00"+name, func() (any, error) {
		if items, ok := a.data.Get(name); ok {
			return items, nil
		}
		items, err := a.fetchListing(ctx)
		if err != nil {
			return nil, err
		}
		a.data.Set(name, items)
		return items, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errors.CodeOf(err)))
		a.logger.WarnContext(ctx, "dataset fetch failed", "ctx", rc, "dataset", name, "error", err)
		return nil, err
	}
	return v.([]ListingItem), nil
}

// Invalidate drops every cached payload for route and returns how many
// entries were removed.
func (a *Assembler) Invalidate(route string) int {
	n := a.public.Invalidate(func(key string, _ Payload) bool {
		return key == route
	})
	n += a.private.Invalidate(func(key string, _ Payload) bool {
		_, r, ok := strings.Cut(key, keySep)
		return ok && r == route
	})
	if route == ListingRoute {
		n += a.data.Invalidate(func(key string, _ []ListingItem) bool {
			return key == ListingDataset
		})
	}
	return n
}

// Clear empties every cache.
func (a *Assembler) Clear() {
	a.public.Clear()
	a.private.Clear()
	a.data.Clear()
}

// Destroy stops background sweeping and empties the caches.
func (a *Assembler) Destroy() {
	a.public.Destroy()
	a.private.Destroy()
	a.data.Destroy()
}

// IdentityURL expands the identity URL template for userID.
func IdentityURL(template, userID string) string {
	return strings.ReplaceAll(template, UserIDPlaceholder, url.PathEscape(userID))
}
