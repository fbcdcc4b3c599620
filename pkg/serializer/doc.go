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

// Package serializer encodes and decodes portal data as JSON or YAML.
//
// # Reading
//
// Configuration files and fixtures are decoded with FromFile, which picks the
// format from the file extension:
//
//	cfg, err := serializer.FromFile[config.File]("portal.yaml")
//
// Readers created with NewReader or NewFileReader can be used directly when
// the caller needs the Reader lifecycle. Strict readers reject unknown
// fields, which catches typos in configuration files.
//
// # Writing
//
// Writer serializes values to any io.Writer; the CLI uses it to print
// resolved assets and assembled payloads:
//
//	w := serializer.NewStdoutWriter(serializer.FormatYAML)
//	defer w.Close()
//	err := w.Serialize(ctx, assets)
//
// # HTTP
//
// RespondJSON buffers the encoding before writing headers so a value that
// cannot be encoded produces a clean 500 instead of a truncated body.
package serializer
