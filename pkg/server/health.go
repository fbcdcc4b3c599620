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

package server

import (
	"math"
	"net/http"
	"time"

	"github.com/NVIDIA/cns-portal/pkg/serializer"
)

// HealthResponse is the body of /health and /ready.
type HealthResponse struct {
	Status        string    `json:"status" yaml:"status"`
	UptimeSeconds float64   `json:"uptimeSeconds" yaml:"uptimeSeconds"`
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp"`
	Reason        string    `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func (s *Server) health(status string) HealthResponse {
	now := time.Now()
	return HealthResponse{
		Status:        status,
		UptimeSeconds: math.Round(now.Sub(s.started).Seconds()*1000) / 1000,
		Timestamp:     now.UTC(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !isRead(r) {
		writeMethodNotAllowed(w, r)
		return
	}

	serializer.RespondJSON(w, http.StatusOK, s.health("healthy"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !isRead(r) {
		writeMethodNotAllowed(w, r)
		return
	}

	if !s.isReady() {
		resp := s.health("not_ready")
		resp.Reason = "service is starting or shutting down"
		serializer.RespondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	serializer.RespondJSON(w, http.StatusOK, s.health("ready"))
}
