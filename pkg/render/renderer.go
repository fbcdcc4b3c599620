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

package render

import (
	"context"
	"html"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/NVIDIA/cns-portal/pkg/assets"
	"github.com/NVIDIA/cns-portal/pkg/bootstrap"
	"github.com/NVIDIA/cns-portal/pkg/errors"
	"github.com/NVIDIA/cns-portal/pkg/reqctx"
	"github.com/NVIDIA/cns-portal/pkg/store"
	"github.com/NVIDIA/cns-portal/pkg/ui"
)

const (
	// RootID is the id of the mount element.
	RootID = "root"
	// BootstrapSlot is the global and script id carrying the payload.
	BootstrapSlot = "__BOOTSTRAP__"
	// StateSlot is the global and script id carrying the store snapshot.
	StateSlot = "__INITIAL_STATE__"

	defaultTitle = "CNS Portal"
	defaultLang  = "en"
)

var renderDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "portal_render_duration_seconds",
		Help:    "Server render latency in seconds by page kind",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"kind"},
)

// Input is everything a render depends on.
type Input struct {
	Ctx       reqctx.RequestContext
	Bootstrap bootstrap.Payload
	Assets    assets.Assets
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTitle sets the document title.
func WithTitle(title string) Option {
	return func(r *Renderer) {
		r.title = title
	}
}

// WithLang sets the document language.
func WithLang(lang string) Option {
	return func(r *Renderer) {
		r.lang = lang
	}
}

// Renderer renders documents with a UI tree.
type Renderer struct {
	tree  ui.Tree
	title string
	lang  string
}

// NewRenderer creates a renderer for tree.
func NewRenderer(tree ui.Tree, opts ...Option) *Renderer {
	r := &Renderer{
		tree:  tree,
		title: defaultTitle,
		lang:  defaultLang,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderHTML renders the complete document for in. Equal inputs produce
// byte-identical output.
func (r *Renderer) RenderHTML(ctx context.Context, in Input) ([]byte, error) {
	start := time.Now()
	defer func() {
		kind := "none"
		if in.Bootstrap.Page != nil {
			kind = string(in.Bootstrap.Page.Kind())
		}
		renderDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	if in.Assets.Script == "" {
		return nil, errors.New(errors.ErrCodeFatalBoot, "no primary script to render with")
	}

	s := store.New()
	if err := store.Seed(s, in.Bootstrap); err != nil {
		return nil, err
	}

	markup, err := r.tree.Render(ctx, s, in.Ctx.Route)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeInternal, "failed to render UI tree", err,
			map[string]any{"route": in.Ctx.Route})
	}

	boot, err := SafeJSON(in.Bootstrap)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to encode bootstrap", err)
	}
	state, err := SafeJSON(s.Snapshot())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to encode store snapshot", err)
	}

	var b strings.Builder
	b.Grow(len(markup) + len(boot) + len(state) + 1024)

	b.WriteString("<!DOCTYPE html>\n<html lang=\"")
	b.WriteString(html.EscapeString(r.lang))
	b.WriteString("\">\n<head>\n<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n<title>")
	b.WriteString(html.EscapeString(r.title))
	b.WriteString("</title>\n")
	if in.Assets.Style != "" {
		b.WriteString("<link rel=\"stylesheet\" href=\"")
		b.WriteString(html.EscapeString(in.Assets.Style))
		b.WriteString("\">\n")
	}
	b.WriteString("</head>\n<body>\n<div id=\"" + RootID + "\">")
	b.WriteString(markup)
	b.WriteString("</div>\n")
	writeState(&b, BootstrapSlot, boot)
	writeState(&b, StateSlot, state)
	b.WriteString("<script type=\"module\" src=\"")
	b.WriteString(html.EscapeString(in.Assets.Script))
	b.WriteString("\"></script>\n</body>\n</html>\n")

	return []byte(b.String()), nil
}

func writeState(b *strings.Builder, slot string, data []byte) {
	b.WriteString("<script id=\"" + slot + "\">window." + slot + " = ")
	b.Write(data)
	b.WriteString(";</script>\n")
}

// StatePrefix returns the text preceding the JSON inside a state script.
func StatePrefix(slot string) string {
	return "window." + slot + " = "
}
