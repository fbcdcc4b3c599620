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

// Package ui is the component tree rendered on the server and re-rendered by
// the hydration bridge.
//
// A Tree renders the markup that goes inside the #root element from a store
// and a route. Renders must be deterministic: the same store state and route
// always produce the same bytes, so attach-mode hydration can compare the
// server's markup with its own.
//
// App is the default tree. Listing data is read through the store's
// deferred-data cache; the DataSource is only consulted on a cache miss.
package ui
