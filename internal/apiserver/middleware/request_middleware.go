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

// The file implements request middleware for generating request IDs, logging requests and recording metrics.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/llm-d-incubation/mission-gateway/internal/apiserver/health"
	"github.com/llm-d-incubation/mission-gateway/internal/apiserver/metrics"
	"github.com/llm-d-incubation/mission-gateway/internal/util/logging"
	"k8s.io/klog/v2"
)

const (
	RequestIDHeader = "X-Request-ID"
)

func RequestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip /metrics and health endpoints to avoid noise in logs and metrics
		if r.URL.Path == metrics.MetricsPath || r.URL.Path == health.HealthPath || r.URL.Path == health.RootPath {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		metrics.RecordRequestStart()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := logging.NewRequestContext(r.Context(), requestID)
		logger := klog.FromContext(ctx)

		// Wrap response writer to capture status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		logger.V(logging.TRACE).Info("incoming request",
			"method", r.Method,
			"path", r.URL.Path,
			"remoteAddr", r.RemoteAddr,
		)

		// the mux records the matched pattern on the request it is given
		req := r.WithContext(ctx)
		defer func() {
			duration := time.Since(start)
			metrics.RecordRequestFinish(r.Method, routeOf(req.Pattern), rw.statusCode, duration)
			logger.V(logging.DEBUG).Info("request completed", "status", rw.statusCode, "duration", duration)
		}()

		next.ServeHTTP(rw, req)
	})
}

// routeOf drops the method from a "METHOD /path" mux pattern.
func routeOf(pattern string) string {
	if _, path, ok := strings.Cut(pattern, " "); ok {
		return path
	}
	return pattern
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
