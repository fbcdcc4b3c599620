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

// Package reqctx derives the per-request identity and routing context.
//
// A RequestContext is built once at the entry of every request and is never
// mutated afterwards:
//
//	rc := reqctx.Build(r, r.URL.Query().Get("path"))
//	payload := assembler.Get(ctx, rc)
//
// Authentication is detected, not issued. A request is authenticated when it
// carries a non-empty "session" cookie or a non-empty Authorization header.
// Only the session cookie establishes a stable identity; arbitrary identity
// headers supplied by the caller are ignored.
//
// Request IDs are assigned by the server's request-id middleware and carried
// on the request context (see WithRequestID). When no middleware ran, Build
// generates a fresh one.
package reqctx
