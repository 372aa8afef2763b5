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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/knights-analytics/hugot/pipelines"
	"github.com/llm-d-incubation/mission-gateway/internal/mission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSeq2Seq struct {
	inputs []string
	output *pipelines.Seq2SeqOutput
	err    error
}

func (f *fakeSeq2Seq) RunPipeline(inputs []string) (*pipelines.Seq2SeqOutput, error) {
	f.inputs = inputs
	return f.output, f.err
}

func newTestLocal(model seq2seqModel) *LocalBackend {
	return &LocalBackend{
		modelID:        "org/mission-model",
		device:         DeviceCPU,
		sampling:       mission.DefaultLocalSampling(),
		maxInputTokens: 4,
		model:          model,
	}
}

func TestLocalBackendGenerate(t *testing.T) {
	t.Run("runs the formatted and capped prompt", func(t *testing.T) {
		model := &fakeSeq2Seq{output: &pipelines.Seq2SeqOutput{GeneratedTexts: [][]string{{"Find the sword"}}}}
		text, err := newTestLocal(model).Generate(context.Background(), "rescue the prince from the dragon tower")
		require.NoError(t, err)
		assert.Equal(t, "Find the sword", text)
		require.Len(t, model.inputs, 1)
		assert.True(t, strings.HasPrefix(model.inputs[0], mission.InstructionPrefix))
		assert.Len(t, strings.Fields(model.inputs[0]), 4)
	})

	t.Run("pipeline failure is an internal error", func(t *testing.T) {
		model := &fakeSeq2Seq{err: errors.New("tensor shape mismatch")}
		_, err := newTestLocal(model).Generate(context.Background(), "p")
		var genErr *mission.Error
		require.ErrorAs(t, err, &genErr)
		assert.Equal(t, mission.ErrCategoryInternal, genErr.Category)
		assert.Contains(t, genErr.Message, "tensor shape mismatch")
	})

	t.Run("empty output is an internal error", func(t *testing.T) {
		model := &fakeSeq2Seq{output: &pipelines.Seq2SeqOutput{}}
		_, err := newTestLocal(model).Generate(context.Background(), "p")
		var genErr *mission.Error
		require.ErrorAs(t, err, &genErr)
		assert.Equal(t, mission.ErrCategoryInternal, genErr.Category)
	})

	t.Run("cancelled context skips the pipeline", func(t *testing.T) {
		model := &fakeSeq2Seq{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestLocal(model).Generate(ctx, "p")
		assert.Error(t, err)
		assert.Nil(t, model.inputs)
	})

	t.Run("unloaded model is unavailable", func(t *testing.T) {
		_, err := (&LocalBackend{}).Generate(context.Background(), "p")
		var genErr *mission.Error
		require.ErrorAs(t, err, &genErr)
		assert.Equal(t, mission.ErrCategoryUnavailable, genErr.Category)
	})
}

func TestLocalBackendHealthAndClose(t *testing.T) {
	destroyed := 0
	b := newTestLocal(&fakeSeq2Seq{})
	b.destroy = func() error { destroyed++; return nil }

	report := b.Health(context.Background())
	assert.Equal(t, mission.HealthStatusHealthy, report.Status)
	assert.Equal(t, DeviceCPU, report.Device)
	assert.Equal(t, mission.ModeLocal, report.Mode)
	assert.Empty(t, report.HFStatus)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.Equal(t, 1, destroyed)
}

func TestLocalBackendBuildPayload(t *testing.T) {
	payload := newTestLocal(&fakeSeq2Seq{}).BuildPayload("")
	assert.Equal(t, "generate mission: Generate a", payload.FormattedPrompt)
	assert.Equal(t, 128, payload.Sampling.MaxNewTokens)
	assert.Equal(t, 4, payload.TruncationLength)
}

func TestResolveModelPath(t *testing.T) {
	writeExport := func(t *testing.T, dir string) {
		t.Helper()
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for _, name := range DefaultOnnxFiles {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("onnx"), 0o600))
		}
	}

	t.Run("uses a complete model path", func(t *testing.T) {
		dir := t.TempDir()
		writeExport(t, dir)
		path, err := resolveModelPath(context.Background(), LocalConfig{ModelPath: dir})
		require.NoError(t, err)
		assert.Equal(t, dir, path)
	})

	t.Run("reports missing graphs", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "encoder.onnx"), []byte("onnx"), 0o600))
		_, err := resolveModelPath(context.Background(), LocalConfig{ModelPath: dir})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decoder-init.onnx")
	})

	t.Run("reuses a cached download", func(t *testing.T) {
		cache := t.TempDir()
		writeExport(t, filepath.Join(cache, "org_mission-model"))
		path, err := resolveModelPath(context.Background(), LocalConfig{ModelID: "org/mission-model", CacheDir: cache})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(cache, "org_mission-model"), path)
	})

	t.Run("needs a path or a cache", func(t *testing.T) {
		_, err := resolveModelPath(context.Background(), LocalConfig{ModelID: "org/mission-model"})
		assert.Error(t, err)
	})

	t.Run("needs a model id to download", func(t *testing.T) {
		_, err := resolveModelPath(context.Background(), LocalConfig{CacheDir: t.TempDir()})
		assert.Error(t, err)
	})
}

func TestNewSessionRejectsCUDAOnGoRuntime(t *testing.T) {
	_, _, err := newSession(LocalConfig{Runtime: RuntimeGo, CUDA: true})
	assert.Error(t, err)

	_, _, err = newSession(LocalConfig{Runtime: "tpu"})
	assert.Error(t, err)
}
