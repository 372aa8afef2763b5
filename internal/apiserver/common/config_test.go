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

package common

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/llm-d-incubation/mission-gateway/internal/backend"
	"github.com/llm-d-incubation/mission-gateway/internal/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	for _, key := range []string{EnvModelName, EnvModelPath, EnvModelCacheDir, EnvHFAPIToken, EnvHFAPIURL, EnvPort, EnvBackend} {
		t.Setenv(key, "")
	}

	cfg := NewConfig()
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, backend.ModeAuto, cfg.Backend.Mode)
	assert.Equal(t, DefaultModelName, cfg.Backend.ModelName)
	assert.Equal(t, 128, cfg.Backend.LocalSampling.MaxNewTokens)
	assert.Equal(t, 512, cfg.Backend.RemoteSampling.MaxNewTokens)
	assert.Equal(t, inference.DefaultTimeout, cfg.Backend.RemoteTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigFromEnvironment(t *testing.T) {
	t.Setenv(EnvModelName, "org/model")
	t.Setenv(EnvModelPath, "/models/mt5")
	t.Setenv(EnvHFAPIToken, "hf_token")
	t.Setenv(EnvHFAPIURL, "https://endpoint.test/generate")
	t.Setenv(EnvPort, "8080")
	t.Setenv(EnvBackend, "remote")

	cfg := NewConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "remote", cfg.Backend.Mode)

	sel := cfg.SelectorConfig()
	assert.Equal(t, "org/model", sel.Local.ModelID)
	assert.Equal(t, "/models/mt5", sel.Local.ModelPath)
	assert.Equal(t, "hf_token", sel.Local.AuthToken)
	assert.Equal(t, "hf_token", sel.Remote.Client.APIKey)
	assert.Equal(t, "https://endpoint.test/generate", sel.Remote.Client.ModelURL())
}

func TestAddFlagsOverrideDefaults(t *testing.T) {
	t.Setenv(EnvPort, "")
	cfg := NewConfig()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--port", "9000",
		"--backend", "stub",
		"--stub-text", "canned",
		"--legacy-envelope",
		"--remote-timeout", "5s",
	}))
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "stub", cfg.Backend.Mode)
	assert.True(t, cfg.Backend.LegacyEnvelope)
	assert.Equal(t, 5*time.Second, cfg.Backend.RemoteTimeout)
	assert.Equal(t, "canned", cfg.SelectorConfig().StubText)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7000"
backend:
  mode: local
  model_path: /models/mt5
  runtime: ort
  cuda: true
  remote_timeout: 30s
  local_sampling:
    max_new_tokens: 64
    temperature: 0.5
    top_k: 10
    top_p: 0.8
    do_sample: false
`), 0o600))

	cfg := NewConfig()
	require.NoError(t, cfg.LoadFromYAML(path))
	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "local", cfg.Backend.Mode)
	assert.Equal(t, 30*time.Second, cfg.Backend.RemoteTimeout)
	assert.Equal(t, 64, cfg.Backend.LocalSampling.MaxNewTokens)
	assert.False(t, cfg.Backend.LocalSampling.DoSample)
	// untouched sections keep their defaults
	assert.Equal(t, 512, cfg.Backend.RemoteSampling.MaxNewTokens)
	assert.NoError(t, cfg.Validate())

	sel := cfg.SelectorConfig()
	assert.Equal(t, backend.RuntimeORT, sel.Local.Runtime)
	assert.True(t, sel.Local.CUDA)
}

func TestLoadFromYAMLRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prot: 1\n"), 0o600))
	assert.Error(t, NewConfig().LoadFromYAML(path))

	assert.Error(t, NewConfig().LoadFromYAML(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "non numeric port", mutate: func(c *Config) { c.Port = "http" }},
		{name: "port out of range", mutate: func(c *Config) { c.Port = "70000" }},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend.Mode = "gpu" }},
		{name: "unknown runtime", mutate: func(c *Config) { c.Backend.Runtime = "tpu" }},
		{name: "cuda on go runtime", mutate: func(c *Config) { c.Backend.CUDA = true }},
		{name: "no model and no endpoint", mutate: func(c *Config) { c.Backend.ModelName = ""; c.Backend.HFEndpointURL = "" }},
		{name: "zero input cap", mutate: func(c *Config) { c.Backend.MaxInputTokens = 0 }},
		{name: "zero remote timeout", mutate: func(c *Config) { c.Backend.RemoteTimeout = 0 }},
		{name: "negative health cache", mutate: func(c *Config) { c.Backend.HealthCacheTTL = -time.Second }},
		{name: "bad local sampling", mutate: func(c *Config) { c.Backend.LocalSampling.TopP = 2 }},
		{name: "bad remote sampling", mutate: func(c *Config) { c.Backend.RemoteSampling.Temperature = 0 }},
		{name: "cert without key", mutate: func(c *Config) { c.SSLCerts.CertFile = "tls.crt" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			cfg.Port = DefaultPort
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSelectorConfigResolvesClientCertDir(t *testing.T) {
	cfg := NewConfig()
	cfg.Backend.ClientCerts.Dir = "/etc/certs"
	cfg.Backend.ClientCerts.CaCertFile = "ca.crt"

	client := cfg.SelectorConfig().Remote.Client
	assert.Equal(t, "/etc/certs/ca.crt", client.TLSCACertFile)
	assert.Empty(t, client.TLSClientCertFile)
}
