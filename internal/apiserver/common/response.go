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

package common

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/llm-d-incubation/mission-gateway/internal/mission"
	"github.com/llm-d-incubation/mission-gateway/internal/util/logging"
	"k8s.io/klog/v2"
)

func WriteJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// model output that is already JSON is relayed byte for byte
	if raw, ok := body.(json.RawMessage); ok {
		if _, err := w.Write(raw); err != nil {
			klog.FromContext(ctx).V(logging.WARNING).Info("failed to write response", "error", err)
		}
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		klog.FromContext(ctx).V(logging.WARNING).Info("failed to write response", "error", err)
	}
}

// WriteError classifies err and writes the resulting status and body. Loading
// failures also carry a Retry-After header in whole seconds.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	status, body := mission.Classify(err)
	if body.RetryAfter != nil {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(*body.RetryAfter)))
	}
	WriteJSON(ctx, w, status, body)
}

func retryAfterSeconds(estimate float64) int {
	seconds := int(estimate)
	if float64(seconds) < estimate {
		seconds++
	}
	return max(seconds, 1)
}
