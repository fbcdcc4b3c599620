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


package header

import (
	"time"
)

// APIVersion is the version of every report the portal prints.
const APIVersion = "portal.nvidia.com/v1alpha1"

// Metadata keys set by Init.
const (
	MetadataTimestamp = "timestamp"
	MetadataVersion   = "version"
)

type Kind string

const (
	KindAssetManifest   Kind = "AssetManifest"
	KindHydrationReport Kind = "HydrationReport"
)

func (k Kind) String() string {
	return string(k)
}

// IsValid reports whether k is a known report kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindAssetManifest, KindHydrationReport:
		return true
	default:
		return false
	}
}

type Option func(*Header)

func WithMetadata(key, value string) Option {
	return func(h *Header) {
		if h.Metadata == nil {
			h.Metadata = make(map[string]string)
		}
		h.Metadata[key] = value
	}
}

func WithKind(kind Kind) Option {
	return func(h *Header) {
		h.Kind = kind
	}
}

func WithAPIVersion(version string) Option {
	return func(h *Header) {
		h.APIVersion = version
	}
}

// New returns a header with APIVersion set and opts applied.
func New(opts ...Option) *Header {
	h := &Header{
		APIVersion: APIVersion,
		Metadata:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type Header struct {
	// Kind is the type of the report.
	Kind Kind `json:"kind,omitempty" yaml:"kind,omitempty"`

	// APIVersion is the report schema version.
	APIVersion string `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`

	// Metadata holds when and by which build the report was produced.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Init resets h for kind, stamping the current UTC time and, when set, the
// producing build's version.
func (h *Header) Init(kind Kind, version string) {
	h.Kind = kind
	h.APIVersion = APIVersion
	h.Metadata = map[string]string{
		MetadataTimestamp: now().UTC().Format(time.RFC3339),
	}
	if version != "" {
		h.Metadata[MetadataVersion] = version
	}
}

var now = time.Now
