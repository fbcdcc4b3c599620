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

package ui

import (
	"bytes"
	"context"
	"embed"
	"html/template"

	"github.com/NVIDIA/cns-portal/pkg/bootstrap"
	"github.com/NVIDIA/cns-portal/pkg/errors"
	"github.com/NVIDIA/cns-portal/pkg/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Tree renders the application for a route.
type Tree interface {
	Render(ctx context.Context, s *store.Store, route string) (string, error)
}

// DataSource fetches a dataset when the store has no live entry for it.
type DataSource func(ctx context.Context, dataset string) ([]bootstrap.ListingItem, error)

// App is the default Tree.
type App struct {
	Data DataSource
}

type navLink struct {
	Href    string
	Label   string
	Current bool
}

type view struct {
	Greeting string
	Nav      []navLink
	Kind     bootstrap.Kind
	Items    []bootstrap.ListingItem
	Error    *bootstrap.ErrorPage
}

// Render implements Tree.
func (a *App) Render(ctx context.Context, s *store.Store, route string) (string, error) {
	p, ok := s.App()
	if !ok {
		return "", errors.New(errors.ErrCodeInternal, "store has no bootstrap state")
	}

	v := view{
		Greeting: p.Greeting,
		Nav: []navLink{
			{Href: "/", Label: "Home", Current: route == "/"},
			{Href: bootstrap.ListingRoute, Label: "Todos", Current: route == bootstrap.ListingRoute},
		},
	}

	switch pg := p.Page.(type) {
	case bootstrap.HomePage:
		v.Kind = bootstrap.KindHome
	case bootstrap.ListingPage:
		v.Kind = bootstrap.KindListing
		items, err := store.Read(ctx, s, bootstrap.ListingDataset, a.fetch(bootstrap.ListingDataset))
		if err != nil {
			return "", err
		}
		v.Items = items
	case bootstrap.ErrorPage:
		v.Kind = bootstrap.KindError
		v.Error = &pg
	default:
		return "", errors.New(errors.ErrCodeInternal, "bootstrap state has no page")
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "app", v); err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, "failed to render application", err)
	}
	return buf.String(), nil
}

func (a *App) fetch(dataset string) func(context.Context) ([]bootstrap.ListingItem, error) {
	if a.Data == nil {
		return nil
	}
	return func(ctx context.Context) ([]bootstrap.ListingItem, error) {
		return a.Data(ctx, dataset)
	}
}
