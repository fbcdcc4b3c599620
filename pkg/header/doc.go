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


// Package header provides the envelope printed around portal reports.
//
// Reports written by the portal CLI carry a kind, an API version and a small
// metadata map so saved output can be told apart and dated:
//
//	apiVersion: portal.nvidia.com/v1alpha1
//	kind: AssetManifest
//	metadata:
//	  timestamp: "2025-12-30T10:30:00Z"
//	  version: v0.3.0
//	spec:
//	  script: /assets/main-1a2b.js
//
// Embed Header inline in the report type:
//
//	type report struct {
//	    header.Header `json:",inline" yaml:",inline"`
//	    Spec assets.Assets `json:"spec" yaml:"spec"`
//	}
//
// Bootstrap payloads are never wrapped: their shape is the wire contract
// shared with the browser.
package header
