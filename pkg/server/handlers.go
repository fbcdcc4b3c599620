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

package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/NVIDIA/cns-portal/pkg/bootstrap"
	"github.com/NVIDIA/cns-portal/pkg/cachepolicy"
	"github.com/NVIDIA/cns-portal/pkg/errors"
	"github.com/NVIDIA/cns-portal/pkg/render"
	"github.com/NVIDIA/cns-portal/pkg/reqctx"
	"github.com/NVIDIA/cns-portal/pkg/serializer"
)

const contentTypeHTML = "text/html; charset=utf-8"

// handleBootstrap serves GET /api/bootstrap?path=<route>.
func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	if !isRead(r) {
		writeMethodNotAllowed(w, r)
		return
	}

	route := r.URL.Query().Get("path")
	if route == "" {
		route = "/"
	}

	ctx := context.WithoutCancel(r.Context())
	rc := reqctx.Build(r, route)

	p := s.bootstrap.Get(ctx, rc)

	cachepolicy.Apply(w.Header(), cachepolicy.ModeBootstrap, rc.IsAuthenticated)
	serializer.RespondJSON(w, http.StatusOK, p)
}

// handleDataset serves GET /api/{dataset}.
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, apiPrefix)
	if name == "" || strings.Contains(name, "/") {
		writeNotFound(w, r)
		return
	}
	if !isRead(r) {
		writeMethodNotAllowed(w, r)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	rc := reqctx.Build(r, "")

	items, err := s.bootstrap.Dataset(ctx, rc, name)
	if err != nil {
		if errors.CodeOf(err) == errors.ErrCodeNotFound {
			writeNotFound(w, r)
			return
		}
		page := bootstrap.ErrorPageFor(err)
		cachepolicy.NoStore(w.Header())
		WriteError(w, r, http.StatusInternalServerError, page.Code, page.Message,
			errors.IsRetryable(err), map[string]any{"dataset": name})
		return
	}

	cachepolicy.Apply(w.Header(), cachepolicy.ModeData, rc.IsAuthenticated)
	serializer.RespondJSON(w, http.StatusOK, items)
}

// handlePage dispatches everything the mux did not match: files with an
// extension are static, /api leftovers are 404, the rest is rendered.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	switch {
	case isAPI(r.URL.Path):
		writeNotFound(w, r)
	case hasExtension(r.URL.Path):
		s.serveStatic(w, r)
	case !isRead(r):
		writeMethodNotAllowed(w, r)
	default:
		s.handleSSR(w, r)
	}
}

func (s *Server) handleSSR(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	rc := reqctx.Build(r, "")

	// Fail before any upstream work when the client build is missing.
	a, err := s.assets.Resolve(ctx)
	if err != nil {
		manifestFailures.Inc()
		s.logger.ErrorContext(ctx, "asset manifest unavailable",
			"code", errors.CodeOf(err),
			"manifest", s.assets.Path(),
			"ctx", rc,
			"error", err,
		)
		cachepolicy.NoStore(w.Header())
		http.Error(w, publicMessage(err), http.StatusInternalServerError)
		return
	}

	p := s.bootstrap.Get(ctx, rc)

	body, err := s.renderer.RenderHTML(ctx, render.Input{
		Ctx:       rc,
		Bootstrap: p,
		Assets:    a,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "page render failed", "ctx", rc, "error", err)
		cachepolicy.NoStore(w.Header())
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}

	if r.Context().Err() != nil {
		pagesDiscarded.Inc()
		s.logger.DebugContext(ctx, "client disconnected, discarding rendered page", "ctx", rc)
		return
	}

	status := http.StatusOK
	if ep, ok := p.Page.(bootstrap.ErrorPage); ok {
		status = ep.Status
		cachepolicy.NoStore(w.Header())
	} else {
		cachepolicy.Apply(w.Header(), cachepolicy.ModeHTML, rc.IsAuthenticated)
	}

	pagesRendered.WithLabelValues(string(p.Page.Kind()), visibility(rc.IsAuthenticated)).Inc()
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.WarnContext(ctx, "response write failed", "ctx", rc, "error", err)
	}
}

func writeNotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusNotFound, errors.ErrCodeNotFound, msgNotFound, false,
		map[string]any{"path": r.URL.Path})
}

// publicMessage returns the message of a structured error without its cause.
func publicMessage(err error) string {
	var se *errors.StructuredError
	if stderrors.As(err, &se) {
		return se.Message
	}
	return msgInternal
}
