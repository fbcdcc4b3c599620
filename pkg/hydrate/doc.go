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

// Package hydrate turns a server-rendered document back into a live store
// without re-fetching what the server already embedded.
//
// Bridge.Boot works on a document parsed with golang.org/x/net/html:
//
//  1. Read window.__INITIAL_STATE__ from its script element, validate it and
//     remove the element so the slot cannot be read twice.
//  2. Restore the store from the snapshot and re-prime every embedded
//     dataset. Without this the first read of each dataset misses the
//     deferred-data cache and fetches again.
//  3. With no usable snapshot, fetch the bootstrap from /api/bootstrap and
//     seed the store with it.
//  4. If #root already holds server markup, render the tree and compare it
//     with the existing DOM (attach mode); the DOM is left untouched.
//     Otherwise mount the rendered markup into #root.
package hydrate
