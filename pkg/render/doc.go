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

// Package render produces the server-rendered HTML document for a request.
//
// RenderHTML is a pure function of its input: it seeds a fresh store with
// the bootstrap payload, renders the UI tree, snapshots the store and embeds
// both the payload and the snapshot as inline scripts ahead of the app
// script:
//
//	<div id="root">...</div>
//	<script id="__BOOTSTRAP__">window.__BOOTSTRAP__ = {...};</script>
//	<script id="__INITIAL_STATE__">window.__INITIAL_STATE__ = {...};</script>
//	<script type="module" src="/assets/main-3f9a.js"></script>
//
// Embedded JSON goes through SafeJSON, which writes <, >, &, ' and " inside
// string values as \u003c, \u003e, \u0026, \u0027 and \u0022 so no value can
// close the script element or open an attribute.
package render
