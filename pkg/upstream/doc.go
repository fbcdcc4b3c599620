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

// Package upstream issues JSON GET requests to the services the portal reads
// its page data from.
//
// Every call runs under a per-attempt timeout, is retried a bounded number of
// times, and carries the originating request id in the X-Request-ID header so
// upstream logs can be stitched to portal logs.
//
// Outcomes are classified into the errors package taxonomy:
//
//   - 2xx with a decodable body: success
//   - non-2xx: UPSTREAM with the status preserved, never retried
//   - per-attempt timer fired: TIMEOUT, retried
//   - connection, DNS or TLS failure: NETWORK, retried
//   - undecodable body or cancelled caller: UNKNOWN, never retried
//
// Retries sleep 100ms × attempt between attempts. Each attempt emits exactly one
// debug log record and one span.
//
//	c := upstream.NewClient()
//	ctx = upstream.WithCorrelationID(ctx, requestID)
//	todos, err := upstream.GetJSON[[]Todo](ctx, c, "https://api.example.com/todos")
package upstream
