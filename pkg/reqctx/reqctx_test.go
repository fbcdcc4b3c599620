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
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		override      string
		cookie        *http.Cookie
		authorization string
		identityHdr   string
		wantAuth      bool
		wantUser      string
		wantRoute     string
	}{
		{
			name:      "anonymous root",
			path:      "/",
			wantRoute: "/",
		},
		{
			name:      "session cookie",
			path:      "/todos",
			cookie:    &http.Cookie{Name: "session", Value: "abc123"},
			wantAuth:  true,
			wantUser:  "abc123",
			wantRoute: "/todos",
		},
		{
			name:          "authorization header without session",
			path:          "/",
			authorization: "Bearer xyz",
			wantAuth:      true,
			wantRoute:     "/",
		},
		{
			name:      "empty session cookie",
			path:      "/",
			cookie:    &http.Cookie{Name: "session", Value: ""},
			wantRoute: "/",
		},
		{
			name:      "unrelated cookie",
			path:      "/",
			cookie:    &http.Cookie{Name: "theme", Value: "dark"},
			wantRoute: "/",
		},
		{
			name:          "whitespace authorization",
			path:          "/",
			authorization: "   ",
			wantRoute:     "/",
		},
		{
			name:        "identity header is not trusted",
			path:        "/",
			identityHdr: "mallory",
			wantRoute:   "/",
		},
		{
			name:      "override wins",
			path:      "/api/bootstrap",
			override:  "/todos",
			wantRoute: "/todos",
		},
		{
			name:      "override gets leading slash",
			path:      "/api/bootstrap",
			override:  "todos",
			wantRoute: "/todos",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}
			if tt.authorization != "" {
				r.Header.Set("Authorization", tt.authorization)
			}
			if tt.identityHdr != "" {
				r.Header.Set("X-User-Id", tt.identityHdr)
			}
			before := r.Header.Clone()

			rc := Build(r, tt.override)

			assert.Equal(t, tt.wantAuth, rc.IsAuthenticated)
			assert.Equal(t, tt.wantUser, rc.UserID)
			assert.Equal(t, tt.wantRoute, rc.Route)
			assert.NotEmpty(t, rc.RequestID)
			if tt.wantUser == "" {
				require.True(t, strings.HasPrefix(rc.AnonymousID, "anon-"))
				_, err := uuid.Parse(strings.TrimPrefix(rc.AnonymousID, "anon-"))
				assert.NoError(t, err)
			} else {
				assert.Empty(t, rc.AnonymousID)
			}
			assert.Equal(t, before, r.Header, "request headers must not change")
		})
	}
}

func TestBuild_RequestIDFromContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(WithRequestID(r.Context(), "req-1"))

	rc := Build(r, "")
	assert.Equal(t, "req-1", rc.RequestID)
}

func TestBuild_FreshRequestIDs(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", "caller-chosen")

	a := Build(r, "")
	b := Build(r, "")
	assert.NotEqual(t, a.RequestID, b.RequestID)
	assert.NotEqual(t, "caller-chosen", a.RequestID)
}

func TestRequestIDFrom(t *testing.T) {
	assert.Empty(t, RequestIDFrom(context.Background()))
	assert.Empty(t, RequestIDFrom(context.WithValue(context.Background(), contextKeyRequestID, 42)))
}

func TestLogValue(t *testing.T) {
	rc := RequestContext{RequestID: "r", UserID: "u", IsAuthenticated: true, Route: "/todos"}
	v := rc.LogValue()
	require.Equal(t, slog.KindGroup, v.Kind())

	got := map[string]string{}
	for _, a := range v.Group() {
		got[a.Key] = a.Value.String()
	}
	assert.Equal(t, "r", got["requestID"])
	assert.Equal(t, "u", got["userID"])
	assert.Equal(t, "true", got["authenticated"])
	assert.Equal(t, "/todos", got["route"])
}
