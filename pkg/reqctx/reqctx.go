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

package reqctx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	// SessionCookie is the name of the cookie recognised as a session marker.
	SessionCookie = "session"

	anonymousPrefix = "anon-"
)

type contextKey string

const contextKeyRequestID contextKey = "requestID"

// RequestContext describes the caller and route of one in-flight request.
type RequestContext struct {
	RequestID       string `json:"requestId"`
	UserID          string `json:"userId,omitempty"`
	AnonymousID     string `json:"anonymousId,omitempty"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	Route           string `json:"route"`
}

// HasIdentity reports whether a stable identity was recovered.
func (rc RequestContext) HasIdentity() bool {
	return rc.UserID != ""
}

// LogValue implements slog.LogValuer.
func (rc RequestContext) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("requestID", rc.RequestID),
		slog.String("userID", rc.UserID),
		slog.String("anonymousID", rc.AnonymousID),
		slog.Bool("authenticated", rc.IsAuthenticated),
		slog.String("route", rc.Route),
	)
}

// WithRequestID stores the request id on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, id)
}

// RequestIDFrom returns the request id stored on ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

// Build derives a RequestContext from r. A non-empty routeOverride replaces
// the request path as the route. The request is not modified.
func Build(r *http.Request, routeOverride string) RequestContext {
	rc := RequestContext{
		RequestID: RequestIDFrom(r.Context()),
		Route:     normalizeRoute(routeOverride, r.URL.Path),
	}
	if rc.RequestID == "" {
		rc.RequestID = uuid.NewString()
	}

	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		rc.IsAuthenticated = true
		rc.UserID = c.Value
	}
	if strings.TrimSpace(r.Header.Get("Authorization")) != "" {
		rc.IsAuthenticated = true
	}

	if rc.UserID == "" {
		rc.AnonymousID = anonymousPrefix + uuid.NewString()
	}
	return rc
}

func normalizeRoute(override, path string) string {
	route := strings.TrimSpace(override)
	if route == "" {
		route = path
	}
	if route == "" {
		return "/"
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return route
}
