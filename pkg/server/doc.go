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

// Package server serves the portal: server-rendered pages, the bootstrap and
// dataset APIs, and the client build's static files.
//
// # Routes
//
//	GET /health                  liveness, {status, uptimeSeconds, timestamp}
//	GET /ready                   readiness, 503 while starting or draining
//	GET /metrics                 Prometheus metrics
//	GET /api/bootstrap?path=/x   bootstrap payload for route /x (default /)
//	GET /api/{dataset}           dataset records in their internal shape
//	GET /{path}.{ext}            static file from the static directory
//	GET /{path}                  server-rendered HTML document
//
// Unknown /api paths answer with a JSON 404. Methods other than GET and HEAD
// answer 405.
//
// # Middleware
//
// Every request passes through, outermost first:
//
//   - request logging with duration on completion
//   - request id generation (X-Request-ID response header)
//   - panic recovery
//   - Prometheus RED metrics
//
// The /api routes are additionally rate limited with a token bucket
// (golang.org/x/time/rate) and report X-RateLimit-* headers.
//
// # Cancellation
//
// Page and API handlers detach from client cancellation. A render that is in
// flight when the client goes away completes and its result is discarded.
//
// # Lifecycle
//
// Run listens, flips readiness, notifies systemd when running under it, and
// in development mode watches the asset manifest. Cancelling the context
// drains in-flight requests within the configured shutdown timeout.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	s := server.New(cfg, server.WithVersion(version))
//	defer s.Close()
//	return s.Run(ctx)
package server
