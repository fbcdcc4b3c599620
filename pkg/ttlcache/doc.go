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

// Package ttlcache provides an in-process, expiring key/value store.
//
// Entries carry an absolute expiry instant; a reader that observes
// now >= expiresAt treats the entry as absent and removes it. A capacity bound,
// when set, evicts in insertion order, oldest first. An optional background
// sweeper removes expired entries that are never read again.
//
// Caches are owned by the process and shared between request handlers; all
// operations are safe for concurrent use. There is no cross-key atomicity:
// concurrent writers of the same key resolve as last write wins.
//
//	c := ttlcache.New[bootstrap.Payload](30*time.Second,
//	    ttlcache.WithName("bootstrap_public"),
//	    ttlcache.WithMaxEntries(1000),
//	    ttlcache.WithSweepInterval(time.Minute))
//	defer c.Destroy()
package ttlcache
