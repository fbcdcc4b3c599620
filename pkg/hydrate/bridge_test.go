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

package hydrate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/NVIDIA/cns-portal/pkg/assets"
	"github.com/NVIDIA/cns-portal/pkg/bootstrap"
	"github.com/NVIDIA/cns-portal/pkg/errors"
	"github.com/NVIDIA/cns-portal/pkg/reqctx"
	"github.com/NVIDIA/cns-portal/pkg/render"
	"github.com/NVIDIA/cns-portal/pkg/store"
	"github.com/NVIDIA/cns-portal/pkg/ui"
	"github.com/NVIDIA/cns-portal/pkg/upstream"
)

var (
	homePayload = bootstrap.Payload{Route: "/", Greeting: "Welcome", Page: bootstrap.HomePage{}}

	listingPayload = bootstrap.Payload{Route: "/todos", Greeting: "Welcome back, Ada", Page: bootstrap.ListingPage{
		Items: []bootstrap.ListingItem{
			{ID: 1, Title: "a"},
			{ID: 2, Title: "b <&> 'quoted' \"text\"", Completed: true},
			{ID: 3, Title: "c"},
		},
	}}
)

// serverDocument renders p the way the server does and parses the result.
func serverDocument(t *testing.T, p bootstrap.Payload) *html.Node {
	t.Helper()
	out, err := render.NewRenderer(&ui.App{}).RenderHTML(context.Background(), render.Input{
		Ctx:       reqctx.RequestContext{RequestID: "r", Route: p.Route},
		Bootstrap: p,
		Assets:    assets.Assets{Script: "/assets/main.js"},
	})
	require.NoError(t, err)
	doc, err := html.Parse(strings.NewReader(string(out)))
	require.NoError(t, err)
	return doc
}

// countingSource is a ui.DataSource that records calls.
type countingSource struct {
	calls atomic.Int32
}

func (c *countingSource) fetch(context.Context, string) ([]bootstrap.ListingItem, error) {
	c.calls.Add(1)
	return nil, nil
}

// staticFetcher returns a fixed payload and counts calls.
type staticFetcher struct {
	payload bootstrap.Payload
	err     error
	calls   int
	routes  []string
}

func (f *staticFetcher) FetchBootstrap(_ context.Context, route string) (bootstrap.Payload, error) {
	f.calls++
	f.routes = append(f.routes, route)
	return f.payload, f.err
}

func TestBoot_AttachFromSnapshot(t *testing.T) {
	doc := serverDocument(t, listingPayload)
	src := &countingSource{}
	fetcher := &staticFetcher{}
	b := &Bridge{Tree: &ui.App{Data: src.fetch}, Fetcher: fetcher}

	rootBefore, err := renderChildren(findByID(doc, render.RootID))
	require.NoError(t, err)

	res, err := b.Boot(context.Background(), doc, "/todos")
	require.NoError(t, err)

	assert.Equal(t, ModeAttach, res.Mode)
	assert.Equal(t, SourceSnapshot, res.Source)
	assert.False(t, res.Mismatch)
	assert.Equal(t, []string{bootstrap.ListingDataset}, res.Reprimed)
	assert.Zero(t, fetcher.calls)
	assert.Zero(t, src.calls.Load(), "render after hydration must not fetch")

	assert.Nil(t, findByID(doc, render.StateSlot), "state slot must be deleted")
	assert.NotNil(t, findByID(doc, render.BootstrapSlot))

	rootAfter, err := renderChildren(findByID(doc, render.RootID))
	require.NoError(t, err)
	assert.Equal(t, rootBefore, rootAfter, "attach must not touch the DOM")
}

func TestBoot_StateEquivalence(t *testing.T) {
	server := store.New()
	require.NoError(t, store.Seed(server, listingPayload))

	res, err := (&Bridge{Tree: &ui.App{}}).Boot(context.Background(), serverDocument(t, listingPayload), "/todos")
	require.NoError(t, err)

	if diff := cmp.Diff(server.Snapshot(), res.Store.Snapshot(), store.JSONEqual()); diff != "" {
		t.Errorf("hydrated state differs from server state (-server +client):\n%s", diff)
	}
}

func TestBoot_FirstListingReadIsServedFromCache(t *testing.T) {
	res, err := (&Bridge{Tree: &ui.App{}}).Boot(context.Background(), serverDocument(t, listingPayload), "/todos")
	require.NoError(t, err)

	fetches := 0
	items, err := store.Read(context.Background(), res.Store, bootstrap.ListingDataset,
		func(context.Context) ([]bootstrap.ListingItem, error) {
			fetches++
			return nil, nil
		})
	require.NoError(t, err)
	assert.Zero(t, fetches)
	assert.Equal(t, listingPayload.Items(), items)
}

func TestBoot_FallbackFetchOverHTTP(t *testing.T) {
	var hits atomic.Int32
	var gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotPath.Store(r.URL.Path + "?" + r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(homePayload))
	}))
	defer srv.Close()

	doc := serverDocument(t, homePayload)
	remove(findByID(doc, render.StateSlot))

	client := upstream.NewClient(upstream.WithBackoff(time.Millisecond))
	b := &Bridge{Tree: &ui.App{}, Fetcher: NewHTTPFetcher(srv.URL+"/", client)}

	res, err := b.Boot(context.Background(), doc, "/")
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, "/api/bootstrap?path=%2F", gotPath.Load())
	assert.Equal(t, SourceFetch, res.Source)
	assert.Equal(t, ModeAttach, res.Mode)
	assert.False(t, res.Mismatch)

	app, ok := res.Store.App()
	require.True(t, ok)
	assert.Equal(t, "Welcome", app.Greeting)
}

func TestBoot_InvalidSnapshotFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"not json", `window.__INITIAL_STATE__ = {oops;`},
		{"unknown kind", `window.__INITIAL_STATE__ = {"app":{"route":"/","greeting":"x","page":{"kind":"admin"}},"queries":{}};`},
		{"missing app", `window.__INITIAL_STATE__ = {"queries":{}};`},
		{"wrong global", `window.somethingElse = {};`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := serverDocument(t, homePayload)
			script := findByID(doc, render.StateSlot)
			require.NotNil(t, script)
			script.FirstChild.Data = tt.script

			fetcher := &staticFetcher{payload: homePayload}
			res, err := (&Bridge{Tree: &ui.App{}, Fetcher: fetcher}).Boot(context.Background(), doc, "/")
			require.NoError(t, err)

			assert.Equal(t, SourceFetch, res.Source)
			assert.Equal(t, 1, fetcher.calls)
			assert.Nil(t, findByID(doc, render.StateSlot))
		})
	}
}

func TestBoot_FreshRenderIntoEmptyRoot(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<!DOCTYPE html><html><body><div id="root"></div></body></html>`))
	require.NoError(t, err)

	fetcher := &staticFetcher{payload: listingPayload}
	res, err := (&Bridge{Tree: &ui.App{}, Fetcher: fetcher}).Boot(context.Background(), doc, "/todos")
	require.NoError(t, err)

	assert.Equal(t, ModeRender, res.Mode)
	assert.Equal(t, []string{"/todos"}, fetcher.routes)

	root := findByID(doc, render.RootID)
	require.NotNil(t, root.FirstChild)
	markup, err := renderChildren(root)
	require.NoError(t, err)
	assert.Contains(t, markup, "Welcome back, Ada")
	assert.Contains(t, markup, `data-id="3"`)
}

func TestBoot_ReportsMismatch(t *testing.T) {
	doc := serverDocument(t, homePayload)
	root := findByID(doc, render.RootID)
	root.AppendChild(&html.Node{Type: html.TextNode, Data: "tampered"})
	before, err := renderChildren(root)
	require.NoError(t, err)

	res, err := (&Bridge{Tree: &ui.App{}}).Boot(context.Background(), doc, "/")
	require.NoError(t, err)
	assert.True(t, res.Mismatch)

	after, err := renderChildren(root)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBoot_Errors(t *testing.T) {
	t.Run("no tree", func(t *testing.T) {
		_, err := (&Bridge{}).Boot(context.Background(), serverDocument(t, homePayload), "/")
		require.Error(t, err)
	})

	t.Run("no root", func(t *testing.T) {
		doc, err := html.Parse(strings.NewReader(`<html><body></body></html>`))
		require.NoError(t, err)
		_, err = (&Bridge{Tree: &ui.App{}, Fetcher: &staticFetcher{payload: homePayload}}).Boot(context.Background(), doc, "/")
		require.Error(t, err)
	})

	t.Run("no snapshot and no fetcher", func(t *testing.T) {
		doc := serverDocument(t, homePayload)
		remove(findByID(doc, render.StateSlot))
		_, err := (&Bridge{Tree: &ui.App{}}).Boot(context.Background(), doc, "/")
		require.Error(t, err)
	})

	t.Run("fetch failure", func(t *testing.T) {
		doc := serverDocument(t, homePayload)
		remove(findByID(doc, render.StateSlot))
		f := &staticFetcher{err: errors.New(errors.ErrCodeTimeout, "slow")}
		_, err := (&Bridge{Tree: &ui.App{}, Fetcher: f}).Boot(context.Background(), doc, "/")
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeTimeout, errors.CodeOf(err))
	})
}

func TestHTTPFetcher_FetchDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/todos" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"title":"a","completed":false}]`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL, upstream.NewClient(upstream.WithBackoff(time.Millisecond)))

	items, err := f.FetchDataset(context.Background(), "todos")
	require.NoError(t, err)
	assert.Equal(t, []bootstrap.ListingItem{{ID: 1, Title: "a"}}, items)

	_, err = f.FetchDataset(context.Background(), "../etc")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
}

func TestHTTPFetcher_RejectsInvalidPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"route":"relative","greeting":"x","page":{"kind":"home"}}`))
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.URL, nil).FetchBootstrap(context.Background(), "/")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
}

func TestHTTPFetcher_FetchDocument(t *testing.T) {
	var gotID atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID.Store(r.Header.Get(upstream.HeaderRequestID))
		switch r.URL.Path {
		case "/todos":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusGatewayTimeout)
			_, _ = w.Write([]byte(`<!DOCTYPE html><html><body><div id="root"><p>slow</p></div></body></html>`))
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL+"/", nil)
	ctx := upstream.WithCorrelationID(context.Background(), "req-1")

	doc, err := f.FetchDocument(ctx, "todos")
	require.NoError(t, err)
	require.NotNil(t, findByID(doc, render.RootID))
	assert.Equal(t, "req-1", gotID.Load())

	_, err = f.FetchDocument(ctx, "/api/bootstrap")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUpstream, errors.CodeOf(err))
}
