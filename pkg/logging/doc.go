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


// Package logging configures log/slog for the portal binaries.
//
// Records are JSON objects written to stderr. Every record carries the
// emitting binary as "module" and its build as "version"; records at debug
// level also carry their source location.
//
// The daemon and the CLI install the default logger once at start-up:
//
//	logging.SetDefaultStructuredLogger("portald", version)
//
// after which packages log through slog directly, attaching the request
// context rather than formatting it into the message:
//
//	slog.WarnContext(ctx, "bootstrap assembly failed",
//	    "ctx", rc,
//	    "code", string(errors.CodeOf(err)),
//	    "error", err,
//	)
//
// A RequestContext logs as a group, so an upstream failure for a signed-in
// user reads:
//
//	{"time":"...","level":"WARN","msg":"bootstrap assembly failed",
//	 "module":"portald","version":"v0.3.0",
//	 "ctx":{"requestID":"6f1c...","userID":"u-1","anonymousID":"",
//	        "authenticated":true,"route":"/todos"},
//	 "code":"TIMEOUT","error":"..."}
//
// # Levels
//
// LOG_LEVEL selects the minimum level: debug, info (default), warn or
// warning, and error, in any case. An unrecognised value means info.
// SetDefaultStructuredLoggerWithLevel takes the level explicitly, which is how
// the --log-level flag and the log level in the config file are applied.
//
// The per-attempt "upstream request" records and the "request started"
// records of the HTTP middleware are debug level; use
//
//	LOG_LEVEL=debug portal render --route /todos
//
// to trace a single render end to end.
//
// NewLogLogger adapts the default handler to a *log.Logger for
// http.Server.ErrorLog.
package logging
