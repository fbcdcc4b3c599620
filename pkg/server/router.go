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
	"net/http"
	"path"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	apiPrefix     = "/api/"
	bootstrapPath = "/api/bootstrap"
)

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// System endpoints (no rate limiting)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	// API endpoints
	mux.HandleFunc(bootstrapPath, s.rateLimitMiddleware(s.handleBootstrap))
	mux.HandleFunc(apiPrefix, s.rateLimitMiddleware(s.handleDataset))

	// Static files, rendered pages and the 404 fallback
	mux.HandleFunc("/", s.handlePage)

	return s.withMiddleware(mux.ServeHTTP)
}

func isRead(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

func isAPI(p string) bool {
	return p == strings.TrimSuffix(apiPrefix, "/") || strings.HasPrefix(p, apiPrefix)
}

func hasExtension(p string) bool {
	return path.Ext(p) != ""
}

// routeLabel bounds the cardinality of the metrics route label.
func routeLabel(p string) string {
	switch {
	case p == "/health", p == "/ready", p == "/metrics", p == bootstrapPath:
		return p
	case isAPI(p):
		return "/api/{dataset}"
	case hasExtension(p):
		return "static"
	default:
		return "page"
	}
}
