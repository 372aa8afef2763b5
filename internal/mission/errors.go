/*
Copyright 2026 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// The file defines generation failure categories and maps them to HTTP responses.
package mission

import (
	"errors"
	"net/http"
)

type ErrorCategory string

const (
	ErrCategoryUnavailable ErrorCategory = "UNAVAILABLE"    // permanent until restart
	ErrCategoryLoading     ErrorCategory = "LOADING"        // caller retries after estimate
	ErrCategoryTimeout     ErrorCategory = "TIMEOUT"        // caller applies own backoff
	ErrCategoryBackend     ErrorCategory = "BACKEND_ERROR"  // remote transport or HTTP error
	ErrCategoryEnvelope    ErrorCategory = "ENVELOPE_ERROR" // unrecognized remote response shape
	ErrCategoryInvalidReq  ErrorCategory = "INVALID_REQ"    // malformed caller input
	ErrCategoryInternal    ErrorCategory = "INTERNAL_ERROR" // anything else
)

const (
	MessageModelNotLoaded = "Model not loaded"
	MessageModelLoading   = "Model is loading"
	MessageRemoteTimeout  = "HF API timeout"
	messageRemotePrefix   = "HF API error: "
	messageEnvelopePrefix = "unexpected response envelope: "
)

// Error is a classified generation failure.
type Error struct {
	Category      ErrorCategory
	Message       string
	EstimatedTime float64 // seconds, set for ErrCategoryLoading
	RawError      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.RawError
}

// IsTransient reports whether the caller may retry the same request later.
func (e *Error) IsTransient() bool {
	return e.Category == ErrCategoryLoading || e.Category == ErrCategoryTimeout
}

func NewUnavailableError(cause error) *Error {
	return &Error{Category: ErrCategoryUnavailable, Message: MessageModelNotLoaded, RawError: cause}
}

func NewLoadingError(estimatedTime float64) *Error {
	return &Error{Category: ErrCategoryLoading, Message: MessageModelLoading, EstimatedTime: estimatedTime}
}

func NewTimeoutError(cause error) *Error {
	return &Error{Category: ErrCategoryTimeout, Message: MessageRemoteTimeout, RawError: cause}
}

func NewBackendError(detail string, cause error) *Error {
	return &Error{Category: ErrCategoryBackend, Message: messageRemotePrefix + detail, RawError: cause}
}

func NewEnvelopeError(detail string, cause error) *Error {
	return &Error{Category: ErrCategoryEnvelope, Message: messageRemotePrefix + messageEnvelopePrefix + detail, RawError: cause}
}

func NewInvalidRequestError(detail string, cause error) *Error {
	return &Error{Category: ErrCategoryInvalidReq, Message: "invalid request body: " + detail, RawError: cause}
}

func NewInternalError(cause error) *Error {
	msg := "internal error"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Category: ErrCategoryInternal, Message: msg, RawError: cause}
}

// ErrorResponse is the JSON body of every failed call.
type ErrorResponse struct {
	Error         string   `json:"error"`
	EstimatedTime *float64 `json:"estimated_time,omitempty"`
	RetryAfter    *float64 `json:"retry_after,omitempty"`
}

// Classify maps any error to its terminal HTTP status and body. Errors that
// are not *Error are treated as unexpected and surface their message.
func Classify(err error) (int, *ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, &ErrorResponse{Error: "internal error"}
	}
	var genErr *Error
	if !errors.As(err, &genErr) {
		return http.StatusInternalServerError, &ErrorResponse{Error: err.Error()}
	}

	switch genErr.Category {
	case ErrCategoryUnavailable:
		return http.StatusInternalServerError, &ErrorResponse{Error: MessageModelNotLoaded}
	case ErrCategoryLoading:
		estimate := genErr.EstimatedTime
		retryAfter := estimate
		return http.StatusServiceUnavailable, &ErrorResponse{
			Error:         MessageModelLoading,
			EstimatedTime: &estimate,
			RetryAfter:    &retryAfter,
		}
	case ErrCategoryTimeout:
		return http.StatusGatewayTimeout, &ErrorResponse{Error: MessageRemoteTimeout}
	case ErrCategoryInvalidReq:
		return http.StatusBadRequest, &ErrorResponse{Error: genErr.Message}
	default:
		return http.StatusInternalServerError, &ErrorResponse{Error: genErr.Message}
	}
}
