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
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/NVIDIA/cns-portal/pkg/bootstrap"
	"github.com/NVIDIA/cns-portal/pkg/errors"
	"github.com/NVIDIA/cns-portal/pkg/upstream"
)

// Fetcher loads a bootstrap payload when the document carries none.
type Fetcher interface {
	FetchBootstrap(ctx context.Context, route string) (bootstrap.Payload, error)
}

// HTTPFetcher reads the bootstrap and dataset APIs of a running server.
type HTTPFetcher struct {
	baseURL string
	client  *upstream.Client
	pages   *http.Client
}

// NewHTTPFetcher creates a fetcher against baseURL, e.g. "http://localhost:3000".
func NewHTTPFetcher(baseURL string, client *upstream.Client) *HTTPFetcher {
	if client == nil {
		client = upstream.NewClient()
	}
	return &HTTPFetcher{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		pages:   &http.Client{},
	}
}

// FetchBootstrap implements Fetcher.
func (f *HTTPFetcher) FetchBootstrap(ctx context.Context, route string) (bootstrap.Payload, error) {
	u := f.baseURL + "/api/bootstrap?path=" + url.QueryEscape(route)
	p, err := upstream.GetJSON[bootstrap.Payload](ctx, f.client, u)
	if err != nil {
		return bootstrap.Payload{}, err
	}
	if err := p.Validate(); err != nil {
		return bootstrap.Payload{}, err
	}
	return p, nil
}

// FetchDataset reads /api/<name>. It fits ui.DataSource.
func (f *HTTPFetcher) FetchDataset(ctx context.Context, name string) ([]bootstrap.ListingItem, error) {
	if name == "" || strings.Contains(name, "/") {
		return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest, "invalid dataset name",
			map[string]any{"dataset": name})
	}
	return upstream.GetJSON[[]bootstrap.ListingItem](ctx, f.client, f.baseURL+"/api/"+url.PathEscape(name))
}

// FetchDocument loads and parses the server-rendered document for route.
// Error pages are documents too, so any HTML response is parsed.
func (f *HTTPFetcher) FetchDocument(ctx context.Context, route string) (*html.Node, error) {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	u := f.baseURL + route
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, fmt.Sprintf("invalid page url %s", u), err)
	}
	req.Header.Set("Accept", "text/html")
	if id := upstream.CorrelationID(ctx); id != "" {
		req.Header.Set(upstream.HeaderRequestID, id)
	}

	resp, err := f.pages.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, fmt.Sprintf("failed to fetch %s", u), err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		return nil, errors.Upstream(resp.StatusCode, u)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnknown, fmt.Sprintf("failed to parse %s", u), err)
	}
	return doc, nil
}
