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

// Package store is the per-request application store shared by the server
// render and the hydration bridge.
//
// A Store holds two slices: the bootstrap payload the page was assembled
// from, and a deferred-data cache of query results keyed by logical name.
// Snapshot captures both as plain JSON-safe values. Subscription metadata,
// such as which entries are live and how many readers subscribed, is not part
// of the snapshot.
//
// Entries brought back by Restore are inert: Query ignores them until they
// are primed again, which is what Reprime does. Skipping that step makes the
// first read issue a redundant fetch.
package store
