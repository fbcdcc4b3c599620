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

package assets

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/NVIDIA/cns-portal/pkg/errors"
)

const (
	// ManifestDir is the manifest's directory relative to the static root.
	ManifestDir = "assets"
	// ManifestFile is the manifest's file name.
	ManifestFile = "manifest.json"
)

var (
	primaryScripts = []string{"main.js", "app.js", "index.js"}
	primaryStyles  = []string{"main.css", "app.css", "style.css"}
)

// Assets are the public URLs the HTML envelope links to.
type Assets struct {
	Script   string `json:"script" yaml:"script"`
	Style    string `json:"style,omitempty" yaml:"style,omitempty"`
	Manifest string `json:"manifest" yaml:"manifest"`
}

// chunk is one bundler manifest entry.
type chunk struct {
	File    string   `json:"file"`
	CSS     []string `json:"css,omitempty"`
	IsEntry bool     `json:"isEntry,omitempty"`
}

// ManifestPath returns the manifest location beneath staticDir.
func ManifestPath(staticDir string) string {
	return filepath.Join(staticDir, ManifestDir, ManifestFile)
}

// Load reads and parses the manifest at path.
func Load(path string) (Assets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return Assets{}, errors.WrapWithContext(errors.ErrCodeFatalBoot,
				fmt.Sprintf("asset manifest not found at %s: run the client build first", path),
				err, map[string]any{"manifest": path})
		}
		return Assets{}, errors.WrapWithContext(errors.ErrCodeFatalBoot,
			fmt.Sprintf("failed to read asset manifest at %s", path),
			err, map[string]any{"manifest": path})
	}
	return Parse(path, data)
}

// Parse decodes manifest bytes. path is only used in error messages and
// recorded on the result.
func Parse(path string, data []byte) (Assets, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Assets{}, errors.WrapWithContext(errors.ErrCodeFatalBoot,
			fmt.Sprintf("asset manifest at %s is not valid JSON", path),
			err, map[string]any{"manifest": path})
	}

	flat := make(map[string]string, len(raw))
	chunks := make(map[string]chunk)
	for name, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if s != "" {
				flat[name] = publicPath(s)
			}
			continue
		}
		var c chunk
		if err := json.Unmarshal(v, &c); err != nil {
			return Assets{}, errors.WrapWithContext(errors.ErrCodeFatalBoot,
				fmt.Sprintf("asset manifest at %s has an invalid entry %q", path, name),
				err, map[string]any{"manifest": path, "entry": name})
		}
		if c.File != "" {
			flat[name] = publicPath(c.File)
		}
		chunks[name] = c
	}

	a := Assets{Manifest: path}
	for _, name := range primaryScripts {
		if u, ok := flat[name]; ok {
			a.Script = u
			break
		}
	}

	var entry *chunk
	if a.Script == "" {
		keys := make([]string, 0, len(chunks))
		for k := range chunks {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			c := chunks[k]
			if c.IsEntry && c.File != "" {
				entry = &c
				a.Script = publicPath(c.File)
				break
			}
		}
	}

	if a.Script == "" {
		return Assets{}, errors.NewWithContext(errors.ErrCodeFatalBoot,
			fmt.Sprintf("asset manifest at %s has no primary script (expected %s or an entry chunk)",
				path, strings.Join(primaryScripts, ", ")),
			map[string]any{"manifest": path})
	}

	for _, name := range primaryStyles {
		if u, ok := flat[name]; ok {
			a.Style = u
			break
		}
	}
	if a.Style == "" && entry != nil && len(entry.CSS) > 0 {
		a.Style = publicPath(entry.CSS[0])
	}

	return a, nil
}

func publicPath(p string) string {
	if strings.HasPrefix(p, "/") || strings.Contains(p, "://") {
		return p
	}
	return "/" + p
}
