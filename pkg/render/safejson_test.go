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
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeJSON_EscapesInsideStrings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"less than", "a<b", `{"s":"aLTb"}`},
		{"greater than", "a>b", `{"s":"aGTb"}`},
		{"ampersand", "a&b", `{"s":"aAMPb"}`},
		{"apostrophe", "a'b", `{"s":"aAPOSb"}`},
		{"quote", `a"b`, `{"s":"aQUOTb"}`},
		{"line separator", "a\u2028b", `{"s":"aLSEPb"}`},
		{"paragraph separator", "a\u2029b", `{"s":"aPSEPb"}`},
		{"closing script", "</script>", `{"s":"LT/scriptGT"}`},
		{"backslash kept", `a\b`, `{"s":"a\\b"}`},
		{"backslash then quote", `a\"b`, `{"s":"a\\QUOTb"}`},
		{"plain", "hello", `{"s":"hello"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafeJSON(map[string]string{"s": tt.in})
			require.NoError(t, err)
			assert.Equal(t, expand(tt.want), string(got))

			var back map[string]string
			require.NoError(t, json.Unmarshal(got, &back))
			assert.Equal(t, tt.in, back["s"])
		})
	}
}

func TestSafeJSON_NoRawSpecialCharacters(t *testing.T) {
	v := map[string]any{
		"greeting": `Welcome back, <b>"O'Neil" & co</b>`,
		"nested":   []any{map[string]any{"title": `'"<>&`}, 1, true, nil},
		`k"ey<`:    "v",
	}

	got, err := SafeJSON(v)
	require.NoError(t, err)

	for _, c := range []string{"<", ">", "&", "'", `\"`} {
		assert.NotContains(t, string(got), c)
	}

	var back map[string]any
	require.NoError(t, json.Unmarshal(got, &back))
	assert.Equal(t, v["greeting"], back["greeting"])
	assert.Equal(t, "v", back[`k"ey<`])
}

func TestSafeJSON_StructuralQuotesUntouched(t *testing.T) {
	got, err := SafeJSON(struct {
		A string `json:"a"`
		B []int  `json:"b"`
	}{A: "x", B: []int{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":[1,2]}`, string(got))
}

func TestSafeJSON_Unencodable(t *testing.T) {
	_, err := SafeJSON(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

// expand replaces readable placeholders with the escapes SafeJSON emits.
func expand(s string) string {
	r := strings.NewReplacer(
		"LT", `\u003c`,
		"GT", `\u003e`,
		"AMP", `\u0026`,
		"APOS", `\u0027`,
		"QUOT", `\u0022`,
		"LSEP", `\u2028`,
		"PSEP", `\u2029`,
	)
	return r.Replace(s)
}
