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

package bootstrap

import (
	"net/http"

	"github.com/NVIDIA/cns-portal/pkg/errors"
)

const (
	greetingAnonymous     = "Welcome"
	greetingAuthenticated = "Welcome back"

	messageTimeout  = "The service took too long to respond. Please try again."
	messageUpstream = "A service this page depends on is unavailable. Please try again later."
	messageUnknown  = "Something went wrong. Please try again."
)

var safeMessages = map[string]struct{}{
	messageTimeout:  {},
	messageUpstream: {},
	messageUnknown:  {},
}

func isSafeMessage(m string) bool {
	_, ok := safeMessages[m]
	return ok
}

// ErrorPageFor maps an assembly error to a user-safe page. Only the code and
// status of err are used; its message is never exposed.
func ErrorPageFor(err error) ErrorPage {
	switch errors.CodeOf(err) {
	case errors.ErrCodeTimeout:
		return ErrorPage{
			Status:  http.StatusGatewayTimeout,
			Code:    errors.ErrCodeTimeout,
			Message: messageTimeout,
		}
	case errors.ErrCodeUpstream:
		status := errors.StatusOf(err)
		if status < http.StatusInternalServerError || status > 599 {
			status = http.StatusBadGateway
		}
		return ErrorPage{
			Status:  status,
			Code:    errors.ErrCodeUpstream,
			Message: messageUpstream,
		}
	default:
		return ErrorPage{
			Status:  http.StatusInternalServerError,
			Code:    errors.ErrCodeUnknown,
			Message: messageUnknown,
		}
	}
}

// baseGreeting is the greeting that never depends on upstream data.
func baseGreeting(authenticated bool) string {
	if authenticated {
		return greetingAuthenticated
	}
	return greetingAnonymous
}
