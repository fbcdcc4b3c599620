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
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/NVIDIA/cns-portal/pkg/errors"
	"github.com/NVIDIA/cns-portal/pkg/reqctx"
	"github.com/NVIDIA/cns-portal/pkg/upstream"
)

// withMiddleware wraps the whole mux.
func (s *Server) withMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return s.loggingMiddleware(
		s.requestIDMiddleware(
			s.panicRecoveryMiddleware(
				s.metricsMiddleware(handler),
			),
		),
	)
}

// requestIDMiddleware assigns every request a fresh id. Inbound ids are not
// trusted; the id is echoed on the response and correlates upstream calls.
func (s *Server) requestIDMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()

		ctx := reqctx.WithRequestID(r.Context(), requestID)
		w.Header().Set(upstream.HeaderRequestID, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.Allow() {
			rateLimitRejects.Inc()
			w.Header().Set("Retry-After", "1")
			WriteError(w, r, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded,
				msgRateLimitExceeded, true, map[string]any{
					"limit": s.config.RateLimit,
					"burst": s.config.RateLimitBurst,
				})
			return
		}

		// Add rate limit headers
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", int(s.config.RateLimit)))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", int(s.rateLimiter.Tokens())))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Second).Unix()))

		next.ServeHTTP(w, r)
	}
}

func (s *Server) panicRecoveryMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rw := newResponseWriter(w)
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				panicRecoveries.Inc()
				var errMsg string
				switch v := err.(type) {
				case error:
					errMsg = v.Error()
				default:
					errMsg = fmt.Sprintf("%v", v)
				}
				s.logger.Error("panic recovered",
					"error", errMsg,
					"requestID", reqctx.RequestIDFrom(r.Context()),
					"path", r.URL.Path,
					"method", r.Method,
				)
				if rw.Written() {
					return
				}
				if isAPI(r.URL.Path) {
					WriteError(rw, r, http.StatusInternalServerError, errors.ErrCodeInternal,
						msgInternal, true, nil)
					return
				}
				http.Error(rw, msgInternal, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(rw, r)
	}
}

// loggingMiddleware is outermost, so the request id is read back from the
// response header set further in.
func (s *Server) loggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to track status code
		rw := newResponseWriter(w)

		s.logger.Debug("request started",
			"method", r.Method,
			"path", r.URL.Path,
			"startedAt", start.UTC(),
		)

		next.ServeHTTP(rw, r)

		level := slog.LevelInfo
		if rw.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "request completed",
			"requestID", rw.Header().Get(upstream.HeaderRequestID),
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.Status(),
			"bytes", rw.bytes,
			"duration", time.Since(start).String(),
		)
	}
}
