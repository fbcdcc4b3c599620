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

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a structured error classification.
type ErrorCode string

const (
	// ErrCodeTimeout indicates an upstream call exceeded its time budget.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeUpstream indicates an upstream service answered with a non-success status.
	ErrCodeUpstream ErrorCode = "UPSTREAM"
	// ErrCodeNetwork indicates a transport failure before any response was received.
	ErrCodeNetwork ErrorCode = "NETWORK"
	// ErrCodeUnknown indicates any other failure, including undecodable bodies.
	ErrCodeUnknown ErrorCode = "UNKNOWN"
	// ErrCodeValidation indicates embedded state failed shape validation.
	ErrCodeValidation ErrorCode = "VALIDATION"
	// ErrCodeFatalBoot indicates a condition the process cannot serve without,
	// such as a missing asset manifest or an invalid listening port.
	ErrCodeFatalBoot ErrorCode = "FATAL_BOOT"
	// ErrCodeNotFound indicates a requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInternal indicates an internal system error.
	ErrCodeInternal ErrorCode = "INTERNAL"
	// ErrCodeInvalidRequest indicates malformed or invalid input.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeRateLimitExceeded indicates the client exceeded an enforced request limit.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeMethodNotAllowed indicates the HTTP method is not allowed for the resource.
	ErrCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
)

// StructuredError provides structured error information for better observability.
// It includes an error code for programmatic handling, a human-readable message,
// the underlying cause, and optional context for debugging.
//
// HTTPStatus carries the status code received from an upstream service when
// Code is ErrCodeUpstream; it is zero otherwise.
type StructuredError struct {
	Code       ErrorCode
	Message    string
	Cause      error
	Context    map[string]any
	HTTPStatus int
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new StructuredError with the given code and message.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
	}
}

// NewWithContext creates a new StructuredError with context information.
func NewWithContext(code ErrorCode, message string, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Context: context,
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithContext wraps an error with additional context information.
func WrapWithContext(code ErrorCode, message string, cause error, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// Upstream creates an ErrCodeUpstream error carrying the received status.
func Upstream(status int, url string) *StructuredError {
	return &StructuredError{
		Code:       ErrCodeUpstream,
		Message:    fmt.Sprintf("upstream returned status %d", status),
		Context:    map[string]any{"url": url, "status": status},
		HTTPStatus: status,
	}
}

// CodeOf returns the code of the first StructuredError in err's chain,
// or ErrCodeUnknown when there is none.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeUnknown
}

// StatusOf returns the upstream HTTP status recorded in err's chain, or 0.
func StatusOf(err error) int {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.HTTPStatus
	}
	return 0
}

// IsRetryable reports whether err is worth another attempt. Only timeouts and
// transport failures qualify; status failures are deterministic answers.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case ErrCodeTimeout, ErrCodeNetwork:
		return true
	default:
		return false
	}
}
