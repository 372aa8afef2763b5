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

package inference

type ErrorCategory string

const (
	ErrCategoryLoading    ErrorCategory = "MODEL_LOADING" // 503 with estimated_time, transient
	ErrCategoryTimeout    ErrorCategory = "TIMEOUT"       // no response within the bound, transient
	ErrCategoryRateLimit  ErrorCategory = "RATE_LIMIT"
	ErrCategoryServer     ErrorCategory = "SERVER_ERROR"
	ErrCategoryInvalidReq ErrorCategory = "INVALID_REQ"
	ErrCategoryAuth       ErrorCategory = "AUTH_ERROR"
	ErrCategoryCancelled  ErrorCategory = "CANCELLED"
	ErrCategoryUnknown    ErrorCategory = "UNKNOWN"
)

// ClientError is returned by HTTPClient for every failed call.
type ClientError struct {
	Category      ErrorCategory
	Message       string
	StatusCode    int     // 0 for transport-level failures
	EstimatedTime float64 // seconds, only for ErrCategoryLoading
	RawError      error
}

func (e *ClientError) Error() string {
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.RawError
}

// IsTransient reports whether the provider is expected to answer a later
// identical request. The client itself never retries.
func (e *ClientError) IsTransient() bool {
	switch e.Category {
	case ErrCategoryLoading, ErrCategoryTimeout, ErrCategoryRateLimit:
		return true
	default:
		return false
	}
}
