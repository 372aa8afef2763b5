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

// The file defines the request-scoped data model shared by all generation backends.
package mission

import (
	"context"
	"fmt"
	"strings"
)

// Mode identifies the generation strategy behind a Backend.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
	ModeStub   Mode = "stub"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeLocal, ModeRemote, ModeStub:
		return m, nil
	default:
		return "", fmt.Errorf("unknown backend mode %q", s)
	}
}

// GenerationRequest is built once per HTTP call. Prompt is never empty once
// NewGenerationRequest has applied the default.
type GenerationRequest struct {
	Prompt string
	Mode   Mode
}

// SamplingParams are the generation-time knobs sent to a backend.
// They are tuned independently per backend and are not user-overridable.
type SamplingParams struct {
	MaxNewTokens int     `json:"max_new_tokens" yaml:"max_new_tokens"`
	Temperature  float32 `json:"temperature" yaml:"temperature"`
	TopK         int     `json:"top_k" yaml:"top_k"`
	TopP         float32 `json:"top_p" yaml:"top_p"`
	DoSample     bool    `json:"do_sample" yaml:"do_sample"`
}

// DefaultLocalSampling is the conservative profile used for in-process inference.
func DefaultLocalSampling() SamplingParams {
	return SamplingParams{
		MaxNewTokens: 128,
		Temperature:  0.7,
		TopK:         30,
		TopP:         0.9,
		DoSample:     true,
	}
}

// DefaultRemoteSampling is the higher-entropy profile used for the hosted endpoint.
func DefaultRemoteSampling() SamplingParams {
	return SamplingParams{
		MaxNewTokens: 512,
		Temperature:  0.9,
		TopK:         50,
		TopP:         0.95,
		DoSample:     true,
	}
}

func (p SamplingParams) Validate() error {
	if p.MaxNewTokens <= 0 {
		return fmt.Errorf("max_new_tokens must be positive, got %d", p.MaxNewTokens)
	}
	if p.Temperature <= 0 {
		return fmt.Errorf("temperature must be positive, got %v", p.Temperature)
	}
	if p.TopK < 0 {
		return fmt.Errorf("top_k must not be negative, got %d", p.TopK)
	}
	if p.TopP <= 0 || p.TopP > 1 {
		return fmt.Errorf("top_p must be in (0, 1], got %v", p.TopP)
	}
	return nil
}

// LocalPayload is the request handed to the in-process seq2seq pipeline.
type LocalPayload struct {
	FormattedPrompt  string         `json:"formatted_prompt"`
	Sampling         SamplingParams `json:"sampling"`
	TruncationLength int            `json:"truncation_length"`
}

// RemotePayload is the JSON body posted to the hosted text-generation endpoint.
type RemotePayload struct {
	Inputs     string           `json:"inputs"`
	Parameters RemoteParameters `json:"parameters"`
}

type RemoteParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float32 `json:"temperature"`
	TopK           int     `json:"top_k"`
	TopP           float32 `json:"top_p"`
	DoSample       bool    `json:"do_sample"`
	ReturnFullText bool    `json:"return_full_text"`
}

// HealthReport is the body of the health endpoint. Device is reported by
// in-process backends, HFStatus by the remote one.
type HealthReport struct {
	Status   string `json:"status"`
	Model    string `json:"model"`
	Device   string `json:"device,omitempty"`
	HFStatus string `json:"hf_status,omitempty"`
	Mode     Mode   `json:"mode"`
	Message  string `json:"message,omitempty"`
}

const (
	HealthStatusHealthy = "healthy"
	HealthStatusError   = "error"
)

func (h *HealthReport) Healthy() bool {
	return h != nil && h.Status == HealthStatusHealthy
}

// Backend is a generation strategy. Generate returns the extracted generated
// text; failures are reported as *Error so the classifier can map them.
type Backend interface {
	Mode() Mode
	ModelID() string
	Ready() bool
	Generate(ctx context.Context, prompt string) (string, error)
	Health(ctx context.Context) *HealthReport
	Close() error
}
