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

package serializer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Reader handles deserialization of JSON or YAML from an io.Reader.
// Close must be called when the Reader was created with NewFileReader.
type Reader struct {
	format Format
	strict bool
	input  io.Reader
	closer io.Closer
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// Strict makes Deserialize reject fields the target type does not declare.
func Strict() ReaderOption {
	return func(r *Reader) {
		r.strict = true
	}
}

// NewReader creates a Reader over input. If input implements io.Closer it is
// closed by Close.
func NewReader(format Format, input io.Reader, opts ...ReaderOption) (*Reader, error) {
	if format.IsUnknown() {
		return nil, fmt.Errorf("unknown format: %s", format)
	}

	r := &Reader{
		format: format,
		input:  input,
	}
	if closer, ok := input.(io.Closer); ok {
		r.closer = closer
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// NewFileReader opens filePath for reading in the given format.
func NewFileReader(format Format, filePath string, opts ...ReaderOption) (*Reader, error) {
	if format.IsUnknown() {
		return nil, fmt.Errorf("unknown format: %s", format)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return NewReader(format, file, opts...)
}

// NewFileReaderAuto is NewFileReader with the format taken from the
// extension.
func NewFileReaderAuto(filePath string, opts ...ReaderOption) (*Reader, error) {
	return NewFileReader(FormatFromPath(filePath), filePath, opts...)
}

// Deserialize decodes the input into v, which must be a pointer.
func (r *Reader) Deserialize(v any) error {
	if r == nil {
		return fmt.Errorf("reader is nil")
	}

	if r.input == nil {
		return fmt.Errorf("input source is nil")
	}

	switch r.format {
	case FormatJSON:
		decoder := json.NewDecoder(r.input)
		if r.strict {
			decoder.DisallowUnknownFields()
		}
		if err := decoder.Decode(v); err != nil {
			return fmt.Errorf("failed to decode JSON: %w", err)
		}
		return nil

	case FormatYAML:
		decoder := yaml.NewDecoder(r.input)
		decoder.KnownFields(r.strict)
		if err := decoder.Decode(v); err != nil {
			return fmt.Errorf("failed to decode YAML: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unsupported format for deserialization: %s", r.format)
	}
}

// Close releases the underlying file, if any. It is safe to call more than
// once.
func (r *Reader) Close() error {
	if r == nil {
		return nil
	}

	if r.closer != nil {
		err := r.closer.Close()
		r.closer = nil
		return err
	}
	return nil
}

// FromFile loads path into a new T, detecting the format from the extension.
func FromFile[T any](path string, opts ...ReaderOption) (*T, error) {
	reader, err := NewFileReaderAuto(path, opts...)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var out T
	if err := reader.Deserialize(&out); err != nil {
		return nil, fmt.Errorf("failed to deserialize %s: %w", path, err)
	}
	return &out, nil
}
