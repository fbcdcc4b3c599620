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

// Package api runs the portal daemon.
//
// Serve resolves configuration from defaults, an optional file
// (PORTAL_CONFIG) and the environment, installs the structured logger and
// hands over to pkg/server until SIGINT or SIGTERM.
//
// Usage:
//
//	import (
//	    "log"
//	    "github.com/NVIDIA/cns-portal/pkg/api"
//	)
//
//	func main() {
//	    if err := api.Serve(); err != nil {
//	        log.Fatalf("server error: %v", err)
//	    }
//	}
//
// Build information is injected at link time:
//
//	go build -ldflags "-X github.com/NVIDIA/cns-portal/pkg/api.version=1.0.0"
//
// See pkg/server for the routes and pkg/config for the environment
// variables.
package api
