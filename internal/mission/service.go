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

// The file implements the backend-agnostic generation flow:
// prompt -> backend -> normalized body, or a classified *Error.
package mission

import (
	"context"
	"errors"
	"fmt"

	"github.com/llm-d-incubation/mission-gateway/internal/util/logging"
	"k8s.io/klog/v2"
)

type Service struct {
	backend       Backend
	defaultPrompt string
}

func NewService(backend Backend, defaultPrompt string) *Service {
	if defaultPrompt == "" {
		defaultPrompt = DefaultPrompt
	}
	return &Service{
		backend:       backend,
		defaultPrompt: defaultPrompt,
	}
}

func (s *Service) Backend() Backend {
	return s.backend
}

// Generate runs one generation. prompt may be nil when the caller sent none.
// The returned error is always a *Error.
func (s *Service) Generate(ctx context.Context, prompt *string) (any, *Error) {
	logger := klog.FromContext(ctx)

	if s.backend == nil || !s.backend.Ready() {
		return nil, NewUnavailableError(nil)
	}

	req := NewGenerationRequest(prompt, s.defaultPrompt, s.backend.Mode())
	logger.V(logging.DEBUG).Info("generating mission", "mode", req.Mode, "promptLength", len(req.Prompt))

	text, err := s.invoke(ctx, req)
	if err != nil {
		var genErr *Error
		if !errors.As(err, &genErr) {
			genErr = NewInternalError(err)
		}
		logger.V(logging.INFO).Info("mission generation failed", "mode", req.Mode, "category", genErr.Category, "error", genErr.Message)
		return nil, genErr
	}

	logger.V(logging.TRACE).Info("mission generated", "mode", req.Mode, "textLength", len(text))
	return Normalize(text), nil
}

// invoke converts a panic inside the backend into an error so a single
// request can never take the process down.
func (s *Service) invoke(ctx context.Context, req *GenerationRequest) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewInternalError(fmt.Errorf("%v", r))
		}
	}()
	return s.backend.Generate(ctx, req.Prompt)
}

// Health reports backend status without generating.
func (s *Service) Health(ctx context.Context) *HealthReport {
	if s.backend == nil {
		return &HealthReport{Status: HealthStatusError, Message: MessageModelNotLoaded}
	}
	return s.backend.Health(ctx)
}
