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

// Package defaults provides centralized configuration constants for the portal.
//
// This package defines timeout values, retry parameters, cache lifetimes and
// other defaults used across the codebase. Centralizing these values ensures
// consistency and makes tuning easier.
//
// # Categories
//
//   - Upstream client: per-attempt budget, attempt count, linear backoff step
//   - Caches: bootstrap and dataset TTLs, capacity, sweep cadence
//   - Assets: manifest cache lifetime in development
//   - Server: HTTP server timeouts and graceful shutdown
//   - HTTP transport: connection pool knobs for outbound requests
//
// # Usage
//
// Import and use constants directly:
//
//	import "github.com/NVIDIA/cns-portal/pkg/defaults"
//
//	client := upstream.NewClient(upstream.WithTimeout(defaults.UpstreamTimeout))
//
// # Guidelines
//
//   - UpstreamTimeout × UpstreamMaxAttempts plus backoff must stay well below
//     ServerWriteTimeout so a fully retried page still gets written.
//   - Cache TTLs follow the shared-cache ages emitted in Cache-Control.
package defaults
