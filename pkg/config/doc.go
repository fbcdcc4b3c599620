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

// Package config resolves the portal's runtime configuration.
//
// Values are layered, each layer overriding the previous one:
//
//  1. built-in defaults (see pkg/defaults)
//  2. an optional YAML or JSON file (PORTAL_CONFIG or --config)
//  3. environment variables
//  4. command line flags, applied by the caller after Load
//
// Supported environment variables:
//
//	PORT                      listening port, integer in [1, 65535] (default 3000)
//	PORTAL_ADDRESS            listening address (default all interfaces)
//	PORTAL_MODE               production | development
//	STATIC_DIR                client build output (default ./dist)
//	UPSTREAM_IDENTITY_URL     identity endpoint, may contain {userId}
//	UPSTREAM_LISTING_URL      listing endpoint
//	UPSTREAM_TIMEOUT          per-attempt timeout, Go duration
//	UPSTREAM_MAX_ATTEMPTS     attempts per upstream call
//	BOOTSTRAP_CACHE_TTL       bootstrap payload lifetime, Go duration
//	DATA_CACHE_TTL            dataset lifetime, Go duration
//	CACHE_MAX_ENTRIES         entries per cache
//	RATE_LIMIT                /api requests per second
//	RATE_LIMIT_BURST          /api burst size
//	SHUTDOWN_TIMEOUT_SECONDS  graceful shutdown budget
//	LOG_LEVEL                 debug | info | warn | error
//
// Any value that cannot be parsed fails Load with FATAL_BOOT naming the
// offending variable and value.
package config
