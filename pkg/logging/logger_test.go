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

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLogLevel(tt.in); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStructuredLoggerAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := newStructuredLogger(&buf, "portald", "v1.2.3", slog.LevelInfo)

	logger.Info("server started", "port", 3000)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
	}
	if rec["module"] != "portald" {
		t.Errorf("expected module portald, got %v", rec["module"])
	}
	if rec["version"] != "v1.2.3" {
		t.Errorf("expected version v1.2.3, got %v", rec["version"])
	}
	if _, ok := rec["source"]; ok {
		t.Error("info level logger should not record source")
	}
}

func TestStructuredLoggerDebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	logger := newStructuredLogger(&buf, "portal", "dev", slog.LevelDebug)

	logger.Debug("cache hit", "key", "/todos")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if _, ok := rec["source"]; !ok {
		t.Error("debug level logger should record source")
	}
}

func TestStructuredLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newStructuredLogger(&buf, "portal", "dev", slog.LevelWarn)

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("expected info record to be filtered, got %s", buf.String())
	}
}
