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

// Package assets resolves the client bundle's entry script and stylesheet
// from the manifest written by the build pipeline.
//
// The manifest lives at <staticDir>/assets/manifest.json and may take either
// of two shapes. A flat map of logical names to public paths:
//
//	{"main.js": "/assets/main-3f9a.js", "main.css": "/assets/main-77c1.css"}
//
// or a bundler chunk map:
//
//	{"src/main.tsx": {"file": "assets/main-3f9a.js", "css": ["assets/main-77c1.css"], "isEntry": true}}
//
// The primary script is the first of main.js, app.js or index.js present in
// the map, otherwise the first entry chunk in key order. The stylesheet is
// optional.
//
// Resolver caches the parsed result. In production the cache never expires;
// in development entries live for defaults.ManifestDevTTL and Watch drops
// them as soon as the file changes. Every failure is an ErrCodeFatalBoot
// error whose message names the manifest path.
package assets
