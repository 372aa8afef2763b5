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

package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// labels definition
const (
	// outcome labels; failures use the lower-cased error category
	OutcomeSuccess = "success"
	OutcomeUnknown = "unknown"
)

var (
	// number of generations served so far
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mission_generations_total",
			Help: "Total number of mission generations by backend mode and outcome",
		}, []string{"mode", "outcome"},
	)

	// duration of a generation, from backend call to normalized body
	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "mission_generation_duration_seconds",
			Help: "Duration of mission generation in seconds",
			// Bucket 1: ~ 0.05s
			// ...
			// Bucket 12: ~ 102.4s, above the remote timeout
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"mode"},
	)

	// 1 when the selected backend can serve generations
	backendReady = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mission_backend_ready",
			Help: "Whether the selected generation backend is ready (1) or not (0)",
		}, []string{"mode"},
	)
)

func init() {
	prometheus.MustRegister(generationsTotal)
	prometheus.MustRegister(generationDuration)
	prometheus.MustRegister(backendReady)
}

// Recorder funcs

// RecordGeneration counts one generation and observes its duration.
func RecordGeneration(mode, outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = OutcomeUnknown
	}
	generationsTotal.WithLabelValues(mode, strings.ToLower(outcome)).Inc()
	generationDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

func SetBackendReady(mode string, ready bool) {
	value := 0.0
	if ready {
		value = 1
	}
	backendReady.WithLabelValues(mode).Set(value)
}
