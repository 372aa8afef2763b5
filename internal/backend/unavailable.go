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

package backend

import (
	"context"

	"github.com/llm-d-incubation/mission-gateway/internal/mission"
)

// UnavailableBackend stands in for a backend that failed to initialize.
// It stays unavailable until the process restarts.
type UnavailableBackend struct {
	mode    mission.Mode
	modelID string
	cause   error
}

var _ mission.Backend = (*UnavailableBackend)(nil)

func NewUnavailableBackend(mode mission.Mode, modelID string, cause error) *UnavailableBackend {
	return &UnavailableBackend{mode: mode, modelID: modelID, cause: cause}
}

func (b *UnavailableBackend) Mode() mission.Mode { return b.mode }
func (b *UnavailableBackend) ModelID() string    { return b.modelID }
func (b *UnavailableBackend) Ready() bool        { return false }
func (b *UnavailableBackend) Close() error       { return nil }

// Cause is the initialization error that made the backend unavailable.
func (b *UnavailableBackend) Cause() error { return b.cause }

func (b *UnavailableBackend) Generate(_ context.Context, _ string) (string, error) {
	return "", mission.NewUnavailableError(b.cause)
}

func (b *UnavailableBackend) Health(_ context.Context) *mission.HealthReport {
	return &mission.HealthReport{
		Status:  mission.HealthStatusError,
		Model:   b.modelID,
		Mode:    b.mode,
		Message: mission.MessageModelNotLoaded,
	}
}
