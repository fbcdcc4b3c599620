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

package defaults

import "time"

// Upstream client defaults.
const (
	// UpstreamTimeout is the per-attempt budget for an upstream JSON request.
	UpstreamTimeout = 1500 * time.Millisecond

	// UpstreamMaxAttempts is the default number of attempts, first try included.
	UpstreamMaxAttempts = 2

	// UpstreamBackoffStep is multiplied by the attempt number between retries.
	UpstreamBackoffStep = 100 * time.Millisecond

	// UpstreamMaxBodyBytes caps how much of an upstream body is decoded.
	UpstreamMaxBodyBytes = 4 << 20
)

// Cache defaults.
const (
	// BootstrapCacheTTL is how long an assembled bootstrap payload is reused.
	BootstrapCacheTTL = 30 * time.Second

	// DataCacheTTL is how long a dataset served by /api/<dataset> is reused.
	DataCacheTTL = 120 * time.Second

	// CacheMaxEntries bounds each in-process cache.
	CacheMaxEntries = 1000

	// CacheSweepInterval is the cadence of the expired-entry sweeper.
	CacheSweepInterval = time.Minute

	// ManifestDevTTL is the asset manifest cache lifetime in development mode.
	ManifestDevTTL = 5 * time.Second
)

// Server timeouts for HTTP server configuration.
const (
	// ServerReadTimeout is the maximum duration for reading request headers.
	ServerReadTimeout = 10 * time.Second

	// ServerReadHeaderTimeout prevents slow header attacks.
	ServerReadHeaderTimeout = 5 * time.Second

	// ServerWriteTimeout is the maximum duration for writing a response.
	ServerWriteTimeout = 30 * time.Second

	// ServerIdleTimeout is the maximum duration to wait for the next request.
	ServerIdleTimeout = 120 * time.Second

	// ServerShutdownTimeout is the maximum duration for graceful shutdown.
	ServerShutdownTimeout = 30 * time.Second
)

// HTTP transport settings for outbound requests.
const (
	// HTTPConnectTimeout is the timeout for establishing connections.
	HTTPConnectTimeout = 1 * time.Second

	// HTTPTLSHandshakeTimeout is the timeout for TLS handshake.
	HTTPTLSHandshakeTimeout = 1 * time.Second

	// HTTPIdleConnTimeout is the timeout for idle connections in the pool.
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPKeepAlive is the keep-alive duration for connections.
	HTTPKeepAlive = 30 * time.Second

	// HTTPMaxIdleConnsPerHost bounds pooled connections per upstream host.
	HTTPMaxIdleConnsPerHost = 32
)
