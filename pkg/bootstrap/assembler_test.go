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
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/NVIDIA/cns-portal/pkg/errors"
	"github.com/NVIDIA/cns-portal/pkg/reqctx"
	"github.com/NVIDIA/cns-portal/pkg/upstream"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	identityURL = "http://identity.test/users/{userId}"
	listingURL  = "http://listing.test/todos"
)

type response struct {
	body string
	err  error
}

// fakeGetter serves canned JSON per URL and counts calls.
type fakeGetter struct {
	mu        sync.Mutex
	responses map[string]response
	calls     map[string]int
	gate      chan struct{}
	panicOn   string
	lastID    atomic.Value
}

func newFakeGetter() *fakeGetter {
	return &fakeGetter{
		responses: map[string]response{},
		calls:     map[string]int{},
	}
}

func (f *fakeGetter) set(url, body string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = response{body: body, err: err}
}

func (f *fakeGetter) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *fakeGetter) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeGetter) Get(ctx context.Context, url string, out any, _ ...upstream.RequestOption) error {
	f.mu.Lock()
	f.calls[url]++
	resp, ok := f.responses[url]
	gate := f.gate
	panicOn := f.panicOn
	f.mu.Unlock()

	f.lastID.Store(upstream.CorrelationID(ctx))
	if url == panicOn {
		panic("boom")
	}
	if gate != nil {
		<-gate
	}
	if !ok {
		return errors.New(errors.ErrCodeNetwork, "no route to "+url)
	}
	if resp.err != nil {
		return resp.err
	}
	return json.Unmarshal([]byte(resp.body), out)
}

const threeTodos = `[
	{"userId":1,"id":1,"title":"a","completed":false,"extra":"x"},
	{"userId":1,"id":2,"title":"b","completed":true},
	{"userId":1,"id":3,"title":"c","completed":false}
]`

func anon(route string) reqctx.RequestContext {
	return reqctx.RequestContext{RequestID: "req-anon", AnonymousID: "anon-1", Route: route}
}

func user(id, route string) reqctx.RequestContext {
	return reqctx.RequestContext{RequestID: "req-" + id, UserID: id, IsAuthenticated: true, Route: route}
}

func newTestAssembler(g Getter, opts ...Option) *Assembler {
	base := []Option{WithIdentityURL(identityURL), WithListingURL(listingURL)}
	return NewAssembler(g, append(base, opts...)...)
}

func TestGet_AnonymousHome(t *testing.T) {
	g := newFakeGetter()
	a := newTestAssembler(g)
	defer a.Destroy()

	p := a.Get(context.Background(), anon("/"))

	assert.Equal(t, "/", p.Route)
	assert.Equal(t, "Welcome", p.Greeting)
	assert.Equal(t, HomePage{}, p.Page)
	assert.Zero(t, g.total())
}

func TestGet_AuthenticatedListing(t *testing.T) {
	g := newFakeGetter()
	g.set("http://identity.test/users/abc123", `{"name":"Ada","email":"ada@example.com"}`, nil)
	g.set(listingURL, threeTodos, nil)
	a := newTestAssembler(g)
	defer a.Destroy()

	p := a.Get(context.Background(), user("abc123", "/todos"))

	assert.Equal(t, "Welcome back, Ada", p.Greeting)
	assert.Equal(t, "/todos", p.Route)
	assert.Equal(t, ListingPage{Items: []ListingItem{
		{ID: 1, Title: "a", Completed: false},
		{ID: 2, Title: "b", Completed: true},
		{ID: 3, Title: "c", Completed: false},
	}}, p.Page)
	assert.Equal(t, "req-abc123", g.lastID.Load())

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "extra")
	assert.NotContains(t, string(out), "userId")
	assert.NotContains(t, string(out), "email")
}

func TestGet_IdentityFailureFallsBack(t *testing.T) {
	g := newFakeGetter()
	g.set("http://identity.test/users/abc123", "", errors.Upstream(500, "id"))
	a := newTestAssembler(g)
	defer a.Destroy()

	p := a.Get(context.Background(), user("abc123", "/"))

	assert.Equal(t, "Welcome back", p.Greeting)
	assert.Equal(t, HomePage{}, p.Page)
}

func TestGet_AuthorizationWithoutIdentity(t *testing.T) {
	g := newFakeGetter()
	a := newTestAssembler(g)
	defer a.Destroy()

	rc := reqctx.RequestContext{RequestID: "r", IsAuthenticated: true, AnonymousID: "anon-x", Route: "/"}
	p := a.Get(context.Background(), rc)

	assert.Equal(t, "Welcome back", p.Greeting)
	cache, key := CacheKey(rc)
	assert.Equal(t, "private", cache)
	assert.Equal(t, "\x00/", key)
	assert.Equal(t, 0, a.public.Len())
	assert.Equal(t, 1, a.private.Len())
}

func TestGet_PrivateCacheIsolation(t *testing.T) {
	g := newFakeGetter()
	g.set("http://identity.test/users/u1", `{"name":"ada"}`, nil)
	g.set("http://identity.test/users/u2", `{"name":"grace"}`, nil)
	a := newTestAssembler(g)
	defer a.Destroy()

	ctx := context.Background()
	for range 3 {
		assert.Equal(t, "Welcome back, Ada", a.Get(ctx, user("u1", "/")).Greeting)
		assert.Equal(t, "Welcome back, Grace", a.Get(ctx, user("u2", "/")).Greeting)
		assert.Equal(t, "Welcome", a.Get(ctx, anon("/")).Greeting)
	}

	assert.Equal(t, 1, g.count("http://identity.test/users/u1"))
	assert.Equal(t, 1, g.count("http://identity.test/users/u2"))
	assert.Equal(t, 1, a.public.Len())
	assert.Equal(t, 2, a.private.Len())
}

func TestGet_CacheExpiry(t *testing.T) {
	g := newFakeGetter()
	g.set(listingURL, threeTodos, nil)
	fc := testingclock.NewFakeClock(time.Now())
	a := newTestAssembler(g, WithClock(fc), WithPublicTTL(30*time.Second))
	defer a.Destroy()

	ctx := context.Background()
	a.Get(ctx, anon("/todos"))
	require.Equal(t, 1, g.count(listingURL))

	fc.Step(30*time.Second - time.Millisecond)
	a.Get(ctx, anon("/todos"))
	assert.Equal(t, 1, g.count(listingURL))

	fc.Step(time.Millisecond)
	a.Get(ctx, anon("/todos"))
	assert.Equal(t, 2, g.count(listingURL))
}

func TestGet_ErrorPayloads(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   errors.ErrorCode
		wantStatus int
	}{
		{"timeout", errors.New(errors.ErrCodeTimeout, "fuse fired"), errors.ErrCodeTimeout, 504},
		{"upstream 503", errors.Upstream(503, listingURL), errors.ErrCodeUpstream, 503},
		{"upstream 404", errors.Upstream(404, listingURL), errors.ErrCodeUpstream, 502},
		{"network", errors.New(errors.ErrCodeNetwork, "refused"), errors.ErrCodeUnknown, 500},
		{"decode", errors.New(errors.ErrCodeUnknown, "bad json"), errors.ErrCodeUnknown, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newFakeGetter()
			g.set("http://identity.test/users/abc123", `{"name":"Ada"}`, nil)
			g.set(listingURL, "", tt.err)
			a := newTestAssembler(g)
			defer a.Destroy()

			ctx := context.Background()
			p := a.Get(ctx, user("abc123", "/todos"))

			ep, ok := p.Page.(ErrorPage)
			require.True(t, ok, "expected error page, got %T", p.Page)
			assert.Equal(t, tt.wantCode, ep.Code)
			assert.Equal(t, tt.wantStatus, ep.Status)
			assert.Equal(t, "/todos", p.Route)
			assert.Equal(t, "Welcome back", p.Greeting)
			assert.NotContains(t, ep.Message, tt.err.Error())
			require.NoError(t, p.Validate())

			// Error payloads are not cached.
			a.Get(ctx, user("abc123", "/todos"))
			assert.Equal(t, 2, g.count(listingURL))
			assert.Equal(t, 0, a.private.Len())
		})
	}
}

func TestGet_PanicBecomesUnknown(t *testing.T) {
	g := newFakeGetter()
	g.panicOn = listingURL
	a := newTestAssembler(g)
	defer a.Destroy()

	p := a.Get(context.Background(), anon("/todos"))

	ep, ok := p.Page.(ErrorPage)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeUnknown, ep.Code)
	assert.Equal(t, 500, ep.Status)
}

func TestGet_ListingNotConfigured(t *testing.T) {
	a := NewAssembler(newFakeGetter())
	defer a.Destroy()

	p := a.Get(context.Background(), anon("/todos"))
	assert.True(t, p.IsError())
}

func TestGet_CoalescesConcurrentMisses(t *testing.T) {
	g := newFakeGetter()
	g.set(listingURL, threeTodos, nil)
	g.gate = make(chan struct{})
	a := newTestAssembler(g)
	defer a.Destroy()

	const callers = 20
	var wg sync.WaitGroup
	results := make([]Payload, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = a.Get(context.Background(), anon("/todos"))
		}()
	}

	require.Eventually(t, func() bool { return g.count(listingURL) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(g.gate)
	wg.Wait()

	assert.Equal(t, 1, g.count(listingURL))
	for _, p := range results {
		assert.Equal(t, results[0], p)
	}
}

func TestGet_RepeatedPayloadIsByteIdentical(t *testing.T) {
	g := newFakeGetter()
	g.set(listingURL, threeTodos, nil)
	a := newTestAssembler(g)
	defer a.Destroy()

	first, err := json.Marshal(a.Get(context.Background(), anon("/todos")))
	require.NoError(t, err)
	second, err := json.Marshal(a.Get(context.Background(), anon("/todos")))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, g.count(listingURL))
}

func TestGet_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	a := newTestAssembler(newFakeGetter(), WithTracer(tp.Tracer("test")))
	defer a.Destroy()

	a.Get(context.Background(), anon("/"))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "bootstrap.Get", spans[0].Name())
}

func TestDataset(t *testing.T) {
	g := newFakeGetter()
	g.set(listingURL, threeTodos, nil)
	a := newTestAssembler(g)
	defer a.Destroy()

	ctx := context.Background()
	items, err := a.Dataset(ctx, anon("/api/todos"), ListingDataset)
	require.NoError(t, err)
	assert.Len(t, items, 3)

	_, err = a.Dataset(ctx, anon("/api/todos"), ListingDataset)
	require.NoError(t, err)
	assert.Equal(t, 1, g.count(listingURL))

	_, err = a.Dataset(ctx, anon("/api/users"), "users")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestDataset_ErrorNotCached(t *testing.T) {
	g := newFakeGetter()
	g.set(listingURL, "", errors.New(errors.ErrCodeTimeout, "slow"))
	a := newTestAssembler(g)
	defer a.Destroy()

	ctx := context.Background()
	_, err := a.Dataset(ctx, anon("/api/todos"), ListingDataset)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTimeout, errors.CodeOf(err))

	g.set(listingURL, threeTodos, nil)
	items, err := a.Dataset(ctx, anon("/api/todos"), ListingDataset)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestInvalidate(t *testing.T) {
	g := newFakeGetter()
	g.set(listingURL, threeTodos, nil)
	a := newTestAssembler(g)
	defer a.Destroy()

	ctx := context.Background()
	a.Get(ctx, anon("/todos"))
	a.Get(ctx, user("u1", "/todos"))
	a.Get(ctx, user("u1", "/"))
	_, err := a.Dataset(ctx, anon("/api/todos"), ListingDataset)
	require.NoError(t, err)

	assert.Equal(t, 3, a.Invalidate("/todos"))
	assert.Equal(t, 0, a.public.Len())
	assert.Equal(t, 1, a.private.Len())

	a.Clear()
	assert.Equal(t, 0, a.private.Len())
}

func TestCacheKey_Unambiguous(t *testing.T) {
	tests := []struct {
		name string
		a, b reqctx.RequestContext
	}{
		{"separator in route vs user id", user("a", "/x|/y"), user("a|/x", "/y")},
		{"cookie spelling the fallback", user("~authenticated", "/"), reqctx.RequestContext{IsAuthenticated: true, Route: "/"}},
		{"empty-looking user id", user("|", "/"), reqctx.RequestContext{IsAuthenticated: true, Route: "||/"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ka := CacheKey(tt.a)
			_, kb := CacheKey(tt.b)
			assert.NotEqual(t, ka, kb)
		})
	}
}

func TestInvalidate_MatchesWholeRoute(t *testing.T) {
	a := newTestAssembler(newFakeGetter())
	defer a.Destroy()

	a.Get(context.Background(), user("a|/x", "/y"))
	require.Equal(t, 1, a.private.Len())

	assert.Equal(t, 0, a.Invalidate("/x|/y"))
	assert.Equal(t, 1, a.Invalidate("/y"))
	assert.Equal(t, 0, a.private.Len())
}

func TestDestroy_StopsSweepers(t *testing.T) {
	a := newTestAssembler(newFakeGetter(), WithSweepInterval(time.Millisecond))
	a.Get(context.Background(), anon("/"))
	a.Destroy()
	a.Destroy()
}

func TestIsPublic(t *testing.T) {
	for i, rc := range []reqctx.RequestContext{anon("/"), user("u", "/")} {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			assert.Equal(t, !rc.IsAuthenticated, IsPublic(rc))
		})
	}
}
