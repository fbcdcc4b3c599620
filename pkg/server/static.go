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

	"github.com/NVIDIA/cns-portal/pkg/assets"
	"github.com/NVIDIA/cns-portal/pkg/cachepolicy"
)

var serviceWorkers = map[string]bool{
	"sw.js":             true,
	"service-worker.js": true,
}

// serveStatic serves a file from the static directory. Directories and
// missing files are 404.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	if !isRead(r) {
		writeMethodNotAllowed(w, r)
		return
	}

	name := path.Clean("/" + r.URL.Path)
	f, err := http.Dir(s.config.StaticDir).Open(name)
	if err != nil {
		staticNotFound(w, r)
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil || st.IsDir() {
		staticNotFound(w, r)
		return
	}

	setStaticCache(w.Header(), name)
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
}

func setStaticCache(h http.Header, name string) {
	base := path.Base(name)
	switch {
	case base == assets.ManifestFile:
		cachepolicy.NoStore(h)
	case strings.HasPrefix(name, "/"+assets.ManifestDir+"/"):
		cachepolicy.Immutable(h)
	case serviceWorkers[base]:
		cachepolicy.ServiceWorker(h)
	case path.Ext(base) == ".html":
		cachepolicy.NoStore(h)
	default:
		cachepolicy.ShortLived(h)
	}
}

func staticNotFound(w http.ResponseWriter, r *http.Request) {
	cachepolicy.NoStore(w.Header())
	http.NotFound(w, r)
}
