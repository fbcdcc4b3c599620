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

package cachepolicy

import (
	"fmt"
	"net/http"
	"strings"
)

// Mode is the response class a directive is chosen for.
type Mode string

const (
	ModeHTML      Mode = "html"
	ModeBootstrap Mode = "bootstrap"
	ModeData      Mode = "data"
	ModeStatic    Mode = "static"
)

const (
	HeaderCacheControl         = "Cache-Control"
	HeaderVary                 = "Vary"
	HeaderServiceWorkerAllowed = "Service-Worker-Allowed"
	varyAcceptEncoding         = "Accept-Encoding"
	directivePrivate           = "private, no-store"
	directiveNoStore           = "no-store"
	directiveNoCache           = "no-cache"
	directiveShortLived        = "public, max-age=300"
	directiveImmutable         = "public, max-age=31536000, immutable"
)

var anonymous = map[Mode]string{
	ModeHTML:      "public, max-age=0, s-maxage=60, stale-while-revalidate=300",
	ModeBootstrap: "public, max-age=0, s-maxage=30, stale-while-revalidate=120",
	ModeData:      "public, max-age=0, s-maxage=120, stale-while-revalidate=600",
	ModeStatic:    directiveImmutable,
}

// Modes returns every known mode.
func Modes() []Mode {
	return []Mode{ModeHTML, ModeBootstrap, ModeData, ModeStatic}
}

// ParseMode converts s into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := anonymous[m]; !ok {
		return "", fmt.Errorf("unknown cache mode %q", s)
	}
	return m, nil
}

// Directive returns the Cache-Control value for mode. Unknown modes are
// treated as uncacheable.
func Directive(mode Mode, authenticated bool) string {
	if authenticated {
		return directivePrivate
	}
	if d, ok := anonymous[mode]; ok {
		return d
	}
	return directivePrivate
}

// Apply sets Cache-Control for mode and ensures Vary carries Accept-Encoding.
func Apply(h http.Header, mode Mode, authenticated bool) {
	h.Set(HeaderCacheControl, Directive(mode, authenticated))
	addVary(h)
}

// Immutable marks a content-addressed asset as permanently cacheable.
func Immutable(h http.Header) {
	h.Set(HeaderCacheControl, directiveImmutable)
	addVary(h)
}

// NoStore marks an HTML entry point as never stored.
func NoStore(h http.Header) {
	h.Set(HeaderCacheControl, directiveNoStore)
	addVary(h)
}

// ShortLived gives miscellaneous static files a five minute lifetime.
func ShortLived(h http.Header) {
	h.Set(HeaderCacheControl, directiveShortLived)
	addVary(h)
}

// ServiceWorker forces revalidation of the worker script and allows it to
// control the whole origin.
func ServiceWorker(h http.Header) {
	h.Set(HeaderCacheControl, directiveNoCache)
	h.Set(HeaderServiceWorkerAllowed, "/")
	addVary(h)
}

func addVary(h http.Header) {
	for _, v := range h.Values(HeaderVary) {
		for _, field := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(field), varyAcceptEncoding) {
				return
			}
		}
	}
	h.Add(HeaderVary, varyAcceptEncoding)
}
