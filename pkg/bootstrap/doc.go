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

// Package bootstrap assembles the per-request initial payload a page needs to
// render without further I/O.
//
// # Payload
//
// Payload is a tagged union over page.kind:
//
//	{"route":"/","greeting":"Welcome","page":{"kind":"home"}}
//	{"route":"/todos","greeting":"Welcome back, Ada","page":{"kind":"listing","items":[...]}}
//	{"route":"/todos","greeting":"Welcome","page":{"kind":"error","status":504,"code":"TIMEOUT","message":"..."}}
//
// Page is a sealed interface implemented by HomePage, ListingPage and
// ErrorPage; use a type switch to match it exhaustively. Error payloads only
// ever carry messages from a fixed set and never contain upstream text.
//
// # Assembly
//
// Assembler.Get never fails. It picks a cache by identity:
//
//   - anonymous requests share the public cache keyed by route
//   - authenticated requests use the private cache keyed by user id and
//     route joined with a NUL byte; the user id is empty when no identity
//     could be recovered
//
// On a miss it computes the greeting (one identity call for authenticated
// requests with an identity), dispatches on the route (the listing route
// fetches and projects the listing; every other route is home) and caches
// the result. Concurrent misses on one key share a single assembly.
// Upstream failures become error payloads, which are not cached.
//
// Assembler.Dataset serves the raw dataset API from a separate data cache.
package bootstrap
