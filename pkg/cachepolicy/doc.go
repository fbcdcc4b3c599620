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

// Package cachepolicy emits Cache-Control and Vary headers for responses.
//
// The directive depends on the response class (Mode) and on whether the
// request carried a session marker. Authenticated responses are always
// "private, no-store". Anonymous responses get a shared-cache lifetime short
// enough that identity-less pages never outlive a burst:
//
//	Mode       Directive
//	html       public, max-age=0, s-maxage=60, stale-while-revalidate=300
//	bootstrap  public, max-age=0, s-maxage=30, stale-while-revalidate=120
//	data       public, max-age=0, s-maxage=120, stale-while-revalidate=600
//	static     public, max-age=31536000, immutable
//
// Every response also carries "Vary: Accept-Encoding".
//
// Files served from the static directory use the helpers Immutable, NoStore,
// ShortLived and ServiceWorker, which do not depend on identity.
package cachepolicy
