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

// The file builds backend payloads from user prompts.
package mission

import (
	"strings"
)

const (
	// InstructionPrefix primes the seq2seq model's task framing. The model was
	// trained on this exact prefix, keep it byte-for-byte.
	InstructionPrefix = "generate mission: "

	DefaultPrompt    = "Generate a fantasy mission"
	DefaultRPGPrompt = "Generate an RPG mission"

	DefaultMaxInputTokens = 512
)

// NewGenerationRequest substitutes defaultPrompt when prompt is nil or blank.
func NewGenerationRequest(prompt *string, defaultPrompt string, mode Mode) *GenerationRequest {
	if strings.TrimSpace(defaultPrompt) == "" {
		defaultPrompt = DefaultPrompt
	}
	p := defaultPrompt
	if prompt != nil && strings.TrimSpace(*prompt) != "" {
		p = *prompt
	}
	return &GenerationRequest{Prompt: p, Mode: mode}
}

// FormatPrompt prefixes the instruction tag. An empty prompt still yields a
// non-empty result.
func FormatPrompt(prompt string) string {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}
	return InstructionPrefix + prompt
}

// formatTruncated caps the user prompt so that prefix and prompt together stay
// within maxInputTokens words. The prefix itself is never cut and at least one
// prompt word is kept.
func formatTruncated(prompt string, maxInputTokens int) string {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}
	limit := max(maxInputTokens-len(strings.Fields(InstructionPrefix)), 1)
	return FormatPrompt(TruncateWords(prompt, limit))
}

// TruncateWords caps the prompt at maxTokens whitespace-separated tokens.
// Subword tokenizers produce at least one token per word, so this is a
// conservative upper bound applied before tokenization.
func TruncateWords(prompt string, maxTokens int) string {
	if maxTokens <= 0 {
		return prompt
	}
	fields := strings.Fields(prompt)
	if len(fields) <= maxTokens {
		return prompt
	}
	return strings.Join(fields[:maxTokens], " ")
}

func BuildLocalPayload(prompt string, sampling SamplingParams, maxInputTokens int) *LocalPayload {
	if maxInputTokens <= 0 {
		maxInputTokens = DefaultMaxInputTokens
	}
	return &LocalPayload{
		FormattedPrompt:  formatTruncated(prompt, maxInputTokens),
		Sampling:         sampling,
		TruncationLength: maxInputTokens,
	}
}

func BuildRemotePayload(prompt string, sampling SamplingParams, maxInputTokens int) *RemotePayload {
	if maxInputTokens <= 0 {
		maxInputTokens = DefaultMaxInputTokens
	}
	return &RemotePayload{
		Inputs: formatTruncated(prompt, maxInputTokens),
		Parameters: RemoteParameters{
			MaxNewTokens:   sampling.MaxNewTokens,
			Temperature:    sampling.Temperature,
			TopK:           sampling.TopK,
			TopP:           sampling.TopP,
			DoSample:       sampling.DoSample,
			ReturnFullText: false,
		},
	}
}
