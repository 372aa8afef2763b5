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

const (
	StubModelID = "stub"
	DeviceStub  = "stub"

	DefaultStubText = `{"title":"The Lost Relic","objective":"Recover the relic from the ruined keep","reward":"100 gold"}`
)

// StubBackend returns a fixed text for every prompt. It is meant for test
// environments that must not load a model or reach a provider.
type StubBackend struct {
	text string
}

var _ mission.Backend = (*StubBackend)(nil)

func NewStubBackend(text string) *StubBackend {
	if text == "" {
		text = DefaultStubText
	}
	return &StubBackend{text: text}
}

func (b *StubBackend) Mode() mission.Mode { return mission.ModeStub }
func (b *StubBackend) ModelID() string    { return StubModelID }
func (b *StubBackend) Ready() bool        { return true }
func (b *StubBackend) Close() error       { return nil }

func (b *StubBackend) Generate(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", mission.NewInternalError(err)
	}
	return b.text, nil
}

func (b *StubBackend) Health(_ context.Context) *mission.HealthReport {
	return &mission.HealthReport{
		Status: mission.HealthStatusHealthy,
		Model:  StubModelID,
		Device: DeviceStub,
		Mode:   mission.ModeStub,
	}
}
