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
	"net/http"
	"time"

	"github.com/NVIDIA/cns-portal/pkg/errors"
	"github.com/NVIDIA/cns-portal/pkg/reqctx"
	"github.com/NVIDIA/cns-portal/pkg/serializer"
)

// ErrorResponse is the JSON body of every /api failure.
type ErrorResponse struct {
	Code      errors.ErrorCode `json:"code"`
	Message   string           `json:"message"`
	Details   map[string]any   `json:"details,omitempty"`
	RequestID string           `json:"requestId"`
	Timestamp time.Time        `json:"timestamp"`
	Retryable bool             `json:"retryable"`
}

// Messages written to clients. Upstream text never reaches a response.
const (
	msgNotFound          = "Not found"
	msgMethodNotAllowed  = "Method not allowed"
	msgRateLimitExceeded = "Rate limit exceeded"
	msgInternal          = "Internal server error"
)

// WriteError writes an ErrorResponse carrying the request's id.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int,
	code errors.ErrorCode, message string, retryable bool, details map[string]any) {

	errResp := ErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: reqctx.RequestIDFrom(r.Context()),
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	}

	serializer.RespondJSON(w, statusCode, errResp)
}

func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "GET, HEAD")
	if isAPI(r.URL.Path) {
		WriteError(w, r, http.StatusMethodNotAllowed, errors.ErrCodeMethodNotAllowed,
			msgMethodNotAllowed, false, map[string]any{"method": r.Method})
		return
	}
	http.Error(w, msgMethodNotAllowed, http.StatusMethodNotAllowed)
}
