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

// The file chooses the generation backend once at process start.
package backend

import (
	"context"
	"fmt"

	"github.com/llm-d-incubation/mission-gateway/internal/mission"
	"github.com/llm-d-incubation/mission-gateway/internal/mission/metrics"
	"k8s.io/klog/v2"
)

const ModeAuto = "auto"

type SelectorConfig struct {
	Mode     string // auto, local, remote or stub
	Local    LocalConfig
	Remote   RemoteConfig
	StubText string
}

// overridden in tests
var (
	newLocalBackend  = func(ctx context.Context, cfg LocalConfig) (mission.Backend, error) { return NewLocalBackend(ctx, cfg) }
	newRemoteBackend = func(cfg RemoteConfig) (mission.Backend, error) { return NewRemoteBackend(cfg) }
)

// ResolveMode turns the configured mode into a concrete one. Auto prefers the
// local model whenever a model path or a cache directory is configured.
func ResolveMode(cfg SelectorConfig) (mission.Mode, error) {
	if cfg.Mode == "" || cfg.Mode == ModeAuto {
		if cfg.Local.ModelPath != "" || cfg.Local.CacheDir != "" {
			return mission.ModeLocal, nil
		}
		return mission.ModeRemote, nil
	}
	return mission.ParseMode(cfg.Mode)
}

// Select never fails: a backend that cannot be initialized is replaced by an
// UnavailableBackend so the server still starts and reports the condition.
func Select(ctx context.Context, cfg SelectorConfig) mission.Backend {
	logger := klog.FromContext(ctx)

	mode, err := ResolveMode(cfg)
	if err != nil {
		logger.Error(err, "Invalid backend mode")
		return markReady(NewUnavailableBackend(mission.Mode(cfg.Mode), "", err))
	}

	selected, err := build(ctx, mode, cfg)
	if err != nil {
		logger.Error(err, "Failed to initialize generation backend", "mode", mode)
		return markReady(NewUnavailableBackend(mode, modelIDFor(mode, cfg), err))
	}

	logger.Info("Generation backend selected", "mode", selected.Mode(), "model", selected.ModelID())
	return markReady(selected)
}

func build(ctx context.Context, mode mission.Mode, cfg SelectorConfig) (selected mission.Backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			selected = nil
			err = fmt.Errorf("panic while initializing %s backend: %v", mode, r)
		}
	}()

	switch mode {
	case mission.ModeLocal:
		return newLocalBackend(ctx, cfg.Local)
	case mission.ModeRemote:
		return newRemoteBackend(cfg.Remote)
	case mission.ModeStub:
		return NewStubBackend(cfg.StubText), nil
	default:
		return nil, fmt.Errorf("unsupported backend mode %q", mode)
	}
}

func modelIDFor(mode mission.Mode, cfg SelectorConfig) string {
	switch mode {
	case mission.ModeLocal:
		return cfg.Local.ModelID
	case mission.ModeRemote:
		if cfg.Remote.Client.ModelID != "" {
			return cfg.Remote.Client.ModelID
		}
		return cfg.Remote.Client.EndpointURL
	default:
		return StubModelID
	}
}

func markReady(b mission.Backend) mission.Backend {
	metrics.SetBackendReady(string(b.Mode()), b.Ready())
	return b
}
