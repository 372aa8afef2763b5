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

// The file implements in-process generation with an ONNX seq2seq export.
package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	khugot "github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/llm-d-incubation/mission-gateway/internal/mission"
	"github.com/llm-d-incubation/mission-gateway/internal/util/logging"
	"k8s.io/klog/v2"
)

const (
	RuntimeGo  = "go"
	RuntimeORT = "ort"

	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// DefaultOnnxFiles are the graphs a seq2seq export needs, in repository layout.
var DefaultOnnxFiles = []string{"encoder.onnx", "decoder-init.onnx", "decoder.onnx"}

type LocalConfig struct {
	ModelID   string
	ModelPath string // directory holding the ONNX export; downloaded into CacheDir when empty
	CacheDir  string
	AuthToken string
	OnnxFiles []string

	Runtime         string // "go" or "ort"
	OnnxLibraryPath string
	CUDA            bool

	Sampling       mission.SamplingParams
	MaxInputTokens int
}

type seq2seqModel interface {
	RunPipeline(inputs []string) (*pipelines.Seq2SeqOutput, error)
}

type LocalBackend struct {
	modelID        string
	device         string
	sampling       mission.SamplingParams
	maxInputTokens int
	model          seq2seqModel
	destroy        func() error
}

var _ mission.Backend = (*LocalBackend)(nil)

// NewLocalBackend resolves the model files, opens a hugot session and loads
// the seq2seq pipeline. The returned backend is shared by all requests.
func NewLocalBackend(ctx context.Context, cfg LocalConfig) (*LocalBackend, error) {
	logger := klog.FromContext(ctx)

	modelPath, err := resolveModelPath(ctx, cfg)
	if err != nil {
		return nil, err
	}

	session, device, err := newSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating hugot session: %w", err)
	}

	pipelineOptions := []khugot.Seq2SeqOption{
		pipelines.WithSeq2SeqMaxTokens(cfg.Sampling.MaxNewTokens),
	}
	if cfg.Sampling.DoSample && cfg.Sampling.TopP > 0 && cfg.Sampling.Temperature > 0 {
		pipelineOptions = append(pipelineOptions, pipelines.WithSampling(cfg.Sampling.TopP, cfg.Sampling.Temperature))
	}

	pipeline, err := khugot.NewPipeline(session, khugot.Seq2SeqConfig{
		ModelPath: modelPath,
		Name:      "mission:" + filepath.Base(modelPath),
		Options:   pipelineOptions,
	})
	if err != nil {
		if dErr := session.Destroy(); dErr != nil {
			logger.Error(dErr, "failed to destroy hugot session")
		}
		return nil, fmt.Errorf("creating seq2seq pipeline: %w", err)
	}

	if pipeline.Tokenizer != nil && cfg.MaxInputTokens > 0 {
		pipeline.Tokenizer.MaxAllowedTokens = cfg.MaxInputTokens
	}

	logger.Info("Local model loaded", "model", cfg.ModelID, "path", modelPath, "device", device, "runtime", cfg.Runtime)

	return &LocalBackend{
		modelID:        localModelID(cfg, modelPath),
		device:         device,
		sampling:       cfg.Sampling,
		maxInputTokens: cfg.MaxInputTokens,
		model:          pipeline,
		destroy: func() error {
			return errors.Join(pipeline.Destroy(), session.Destroy())
		},
	}, nil
}

func (b *LocalBackend) Mode() mission.Mode { return mission.ModeLocal }
func (b *LocalBackend) ModelID() string    { return b.modelID }
func (b *LocalBackend) Ready() bool        { return b.model != nil }

func (b *LocalBackend) BuildPayload(prompt string) *mission.LocalPayload {
	return mission.BuildLocalPayload(prompt, b.sampling, b.maxInputTokens)
}

// Generate runs the pipeline synchronously. There is no wall-clock limit;
// ctx is only checked before the call.
func (b *LocalBackend) Generate(ctx context.Context, prompt string) (string, error) {
	if !b.Ready() {
		return "", mission.NewUnavailableError(nil)
	}
	if err := ctx.Err(); err != nil {
		return "", mission.NewInternalError(err)
	}

	payload := b.BuildPayload(prompt)
	klog.FromContext(ctx).V(logging.TRACE).Info("running seq2seq pipeline", "input", payload.FormattedPrompt)

	output, err := b.model.RunPipeline([]string{payload.FormattedPrompt})
	if err != nil {
		return "", mission.NewInternalError(fmt.Errorf("running seq2seq pipeline: %w", err))
	}
	if output == nil || len(output.GeneratedTexts) == 0 || len(output.GeneratedTexts[0]) == 0 {
		return "", mission.NewInternalError(errors.New("seq2seq pipeline returned no output"))
	}
	return output.GeneratedTexts[0][0], nil
}

func (b *LocalBackend) Health(_ context.Context) *mission.HealthReport {
	return &mission.HealthReport{
		Status: mission.HealthStatusHealthy,
		Model:  b.modelID,
		Device: b.device,
		Mode:   mission.ModeLocal,
	}
}

func (b *LocalBackend) Close() error {
	if b.destroy == nil {
		return nil
	}
	destroy := b.destroy
	b.destroy = nil
	return destroy()
}

func newSession(cfg LocalConfig) (*khugot.Session, string, error) {
	switch cfg.Runtime {
	case "", RuntimeGo:
		if cfg.CUDA {
			return nil, "", errors.New("cuda requires the ort runtime")
		}
		session, err := khugot.NewGoSession()
		return session, DeviceCPU, err
	case RuntimeORT:
		var opts []options.WithOption
		if cfg.OnnxLibraryPath != "" {
			opts = append(opts, options.WithOnnxLibraryPath(cfg.OnnxLibraryPath))
		}
		device := DeviceCPU
		if cfg.CUDA {
			opts = append(opts, options.WithCuda(map[string]string{"device_id": "0"}))
			device = DeviceCUDA
		}
		session, err := khugot.NewORTSession(opts...)
		return session, device, err
	default:
		return nil, "", fmt.Errorf("unknown runtime %q", cfg.Runtime)
	}
}

// resolveModelPath returns a directory containing every ONNX graph, downloading
// the export from the hub when only a cache directory is configured.
func resolveModelPath(ctx context.Context, cfg LocalConfig) (string, error) {
	onnxFiles := cfg.OnnxFiles
	if len(onnxFiles) == 0 {
		onnxFiles = DefaultOnnxFiles
	}

	if cfg.ModelPath != "" {
		if missing := missingFiles(cfg.ModelPath, onnxFiles); len(missing) > 0 {
			return "", fmt.Errorf("model path %s is missing %s", cfg.ModelPath, strings.Join(missing, ", "))
		}
		return cfg.ModelPath, nil
	}
	if cfg.CacheDir == "" {
		return "", errors.New("either a model path or a model cache directory is required")
	}
	if cfg.ModelID == "" {
		return "", errors.New("a model id is required to download into the cache directory")
	}

	cached := filepath.Join(cfg.CacheDir, strings.ReplaceAll(cfg.ModelID, "/", "_"))
	if len(missingFiles(cached, onnxFiles)) == 0 {
		klog.FromContext(ctx).V(logging.INFO).Info("Using cached model", "path", cached)
		return cached, nil
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("creating model cache directory: %w", err)
	}

	// DownloadModel accepts a single ONNX graph per call, the shared files are
	// copied again on every call.
	var modelPath string
	for _, onnxFile := range onnxFiles {
		opts := khugot.NewDownloadOptions()
		opts.AuthToken = cfg.AuthToken
		opts.OnnxFilePath = onnxFile
		klog.FromContext(ctx).Info("Downloading model file", "model", cfg.ModelID, "file", onnxFile)
		path, err := khugot.DownloadModel(cfg.ModelID, cfg.CacheDir, opts)
		if err != nil {
			return "", fmt.Errorf("downloading %s from %s: %w", onnxFile, cfg.ModelID, err)
		}
		modelPath = path
	}
	return modelPath, nil
}

func missingFiles(dir string, onnxFiles []string) []string {
	var missing []string
	for _, name := range onnxFiles {
		if _, err := os.Stat(filepath.Join(dir, filepath.Base(name))); err != nil {
			missing = append(missing, filepath.Base(name))
		}
	}
	return missing
}

func localModelID(cfg LocalConfig, modelPath string) string {
	if cfg.ModelID != "" {
		return cfg.ModelID
	}
	return filepath.Base(modelPath)
}
