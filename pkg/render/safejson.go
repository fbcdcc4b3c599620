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

package render

import (
	"bytes"
	"encoding/json"
)

// SafeJSON encodes v as JSON suitable for inline script elements. The
// characters <, >, & (escaped by encoding/json), ' and " inside string
// values are written as unicode escapes, as are U+2028 and U+2029.
func SafeJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return escapeStrings(data), nil
}

// escapeStrings rewrites quotes inside string literals of compact JSON.
func escapeStrings(data []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(data) + len(data)/8)

	inString := false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			out.WriteByte(c)
			continue
		}

		switch c {
		case '\\':
			if i+1 < len(data) && data[i+1] == '"' {
				out.WriteString(`\u0022`)
			} else if i+1 < len(data) {
				out.WriteByte(c)
				out.WriteByte(data[i+1])
			}
			i++
		case '\'':
			out.WriteString(`\u0027`)
		case '"':
			inString = false
			out.WriteByte(c)
		default:
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}
