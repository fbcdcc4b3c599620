// Package errors provides structured error types for better observability
// and programmatic error handling across the application.
//
// The codes double as the failure taxonomy of the rendering core: upstream
// calls fail with TIMEOUT, UPSTREAM, NETWORK or UNKNOWN; client-side state
// checks fail with VALIDATION; unrecoverable startup conditions use FATAL_BOOT.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeTimeout,
//	    "upstream request timed out",
//	    ctx.Err(),
//	    map[string]any{
//	        "url":     url,
//	        "attempt": attempt,
//	    },
//	)
package errors
