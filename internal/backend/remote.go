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

// The file implements the backend that delegates generation to a hosted inference endpoint.
package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/llm-d-incubation/mission-gateway/internal/inference"
	"github.com/llm-d-incubation/mission-gateway/internal/mission"
	"github.com/llm-d-incubation/mission-gateway/internal/util/logging"
	"k8s.io/klog/v2"
)

const (
	HFStatusAvailable   = "available"
	HFStatusLoading     = "loading"
	HFStatusUnavailable = "unavailable"
)

type RemoteConfig struct {
	Client         inference.HTTPClientConfig
	Sampling       mission.SamplingParams
	MaxInputTokens int
	// LegacyEnvelope stringifies unrecognized response shapes instead of failing.
	LegacyEnvelope bool
	// HealthCacheTTL reuses a probe result for this long; zero probes on every call.
	HealthCacheTTL time.Duration
}

const healthCacheKey = "probe"

type inferenceClient interface {
	Generate(ctx context.Context, req *inference.GenerateRequest) (*inference.GenerateResponse, *inference.ClientError)
	Probe(ctx context.Context) (*inference.ProbeResponse, *inference.ClientError)
}

type RemoteBackend struct {
	client         inferenceClient
	modelID        string
	sampling       mission.SamplingParams
	maxInputTokens int
	legacyEnvelope bool
	healthCache    *ttlcache.Cache[string, mission.HealthReport]
}

var _ mission.Backend = (*RemoteBackend)(nil)

func NewRemoteBackend(cfg RemoteConfig) (*RemoteBackend, error) {
	client, err := inference.NewHTTPClient(cfg.Client)
	if err != nil {
		return nil, fmt.Errorf("creating inference client: %w", err)
	}
	return newRemoteBackendWithClient(cfg, client), nil
}

func newRemoteBackendWithClient(cfg RemoteConfig, client inferenceClient) *RemoteBackend {
	modelID := cfg.Client.ModelID
	if modelID == "" {
		modelID = cfg.Client.EndpointURL
	}
	b := &RemoteBackend{
		client:         client,
		modelID:        modelID,
		sampling:       cfg.Sampling,
		maxInputTokens: cfg.MaxInputTokens,
		legacyEnvelope: cfg.LegacyEnvelope,
	}
	if cfg.HealthCacheTTL > 0 {
		b.healthCache = ttlcache.New(
			ttlcache.WithTTL[string, mission.HealthReport](cfg.HealthCacheTTL),
			ttlcache.WithDisableTouchOnHit[string, mission.HealthReport](),
		)
	}
	return b
}

func (b *RemoteBackend) Mode() mission.Mode { return mission.ModeRemote }
func (b *RemoteBackend) ModelID() string    { return b.modelID }
func (b *RemoteBackend) Ready() bool        { return true }

func (b *RemoteBackend) Close() error {
	if b.healthCache != nil {
		b.healthCache.DeleteAll()
	}
	return nil
}

func (b *RemoteBackend) BuildPayload(prompt string) *mission.RemotePayload {
	return mission.BuildRemotePayload(prompt, b.sampling, b.maxInputTokens)
}

func (b *RemoteBackend) Generate(ctx context.Context, prompt string) (string, error) {
	resp, cErr := b.client.Generate(ctx, &inference.GenerateRequest{
		RequestID: logging.GetRequestIDFromContext(ctx),
		Payload:   b.BuildPayload(prompt),
	})
	if cErr != nil {
		return "", classifyClientError(cErr)
	}
	return mission.ExtractRemoteText(resp.Body, b.legacyEnvelope)
}

// Health runs a live provider probe, or returns the last result while it is
// younger than the configured cache TTL.
func (b *RemoteBackend) Health(ctx context.Context) *mission.HealthReport {
	if b.healthCache == nil {
		return b.probe(ctx)
	}
	if item := b.healthCache.Get(healthCacheKey); item != nil {
		report := item.Value()
		return &report
	}
	report := b.probe(ctx)
	b.healthCache.Set(healthCacheKey, *report, ttlcache.DefaultTTL)
	return report
}

func (b *RemoteBackend) probe(ctx context.Context) *mission.HealthReport {
	report := &mission.HealthReport{
		Status: mission.HealthStatusHealthy,
		Model:  b.modelID,
		Mode:   mission.ModeRemote,
	}

	probe, cErr := b.client.Probe(ctx)
	if cErr != nil {
		klog.FromContext(ctx).V(logging.INFO).Info("provider probe failed", "category", cErr.Category, "error", cErr.Message)
		report.Status = mission.HealthStatusError
		report.HFStatus = HFStatusUnavailable
		report.Message = cErr.Message
		return report
	}

	switch {
	case probe.StatusCode >= 200 && probe.StatusCode < 300, probe.StatusCode == http.StatusMethodNotAllowed:
		report.HFStatus = HFStatusAvailable
	case probe.StatusCode == http.StatusServiceUnavailable:
		report.HFStatus = HFStatusLoading
		if probe.EstimatedTime > 0 {
			report.Message = fmt.Sprintf("model is loading, estimated_time=%gs", probe.EstimatedTime)
		}
	default:
		report.Status = mission.HealthStatusError
		report.HFStatus = HFStatusUnavailable
		report.Message = fmt.Sprintf("provider returned HTTP %d", probe.StatusCode)
	}
	return report
}

// classifyClientError maps transport categories onto generation failures.
func classifyClientError(cErr *inference.ClientError) *mission.Error {
	switch cErr.Category {
	case inference.ErrCategoryLoading:
		return mission.NewLoadingError(cErr.EstimatedTime)
	case inference.ErrCategoryTimeout:
		return mission.NewTimeoutError(cErr)
	default:
		return mission.NewBackendError(cErr.Message, cErr)
	}
}
