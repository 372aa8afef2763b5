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

// The api server's configuration definitions.

package common

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/llm-d-incubation/mission-gateway/internal/backend"
	"github.com/llm-d-incubation/mission-gateway/internal/inference"
	"github.com/llm-d-incubation/mission-gateway/internal/mission"
	"github.com/llm-d-incubation/mission-gateway/internal/util/logging"
	utls "github.com/llm-d-incubation/mission-gateway/internal/util/tls"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModelName = "bekenRey/mt5-small-rpg-mission-generator-english"
	DefaultPort      = "5001"
	MaxRequestBytes  = 1 << 20
)

// environment variables seeding the defaults
const (
	EnvModelName     = "MODEL_NAME"
	EnvModelPath     = "MODEL_PATH"
	EnvModelCacheDir = "MODEL_CACHE_DIR"
	EnvHFAPIToken    = "HF_API_TOKEN"
	EnvHFAPIURL      = "HF_API_URL"
	EnvPort          = "PORT"
	EnvBackend       = "MISSION_BACKEND"
)

type Config struct {
	ConfigFile string `yaml:"-"`

	Host              string             `yaml:"host"`
	Port              string             `yaml:"port"`
	ReadHeaderTimeout time.Duration      `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration      `yaml:"shutdown_timeout"`
	SSLCerts          utls.Certificates  `yaml:"ssl_certs"`
	LogFile           logging.FileOutput `yaml:"log_file"`

	Backend BackendConfig `yaml:"backend"`
}

type BackendConfig struct {
	Mode           string `yaml:"mode"` // auto, local, remote or stub
	ModelName      string `yaml:"model_name"`
	DefaultPrompt  string `yaml:"default_prompt"`
	MaxInputTokens int    `yaml:"max_input_tokens"`
	StubText       string `yaml:"stub_text"`

	ModelPath       string                 `yaml:"model_path"`
	ModelCacheDir   string                 `yaml:"model_cache_dir"`
	OnnxFiles       []string               `yaml:"onnx_files"`
	Runtime         string                 `yaml:"runtime"`
	OnnxLibraryPath string                 `yaml:"onnx_library_path"`
	CUDA            bool                   `yaml:"cuda"`
	LocalSampling   mission.SamplingParams `yaml:"local_sampling"`

	HFAPIToken     string                 `yaml:"hf_api_token"`
	HFBaseURL      string                 `yaml:"hf_base_url"`
	HFEndpointURL  string                 `yaml:"hf_endpoint_url"`
	RemoteTimeout  time.Duration          `yaml:"remote_timeout"`
	HealthTimeout  time.Duration          `yaml:"health_timeout"`
	HealthCacheTTL time.Duration          `yaml:"health_cache_ttl"`
	LegacyEnvelope bool                   `yaml:"legacy_envelope"`
	RemoteSampling mission.SamplingParams `yaml:"remote_sampling"`
	ClientCerts    utls.Certificates      `yaml:"client_certs"`
	ClientInsecure bool                   `yaml:"client_insecure_skip_verify"`
}

// NewConfig returns a new Config with default values, overridden by the
// environment where the matching variable is set.
func NewConfig() *Config {
	return &Config{
		Host:              "0.0.0.0",
		Port:              getEnv(EnvPort, DefaultPort),
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		LogFile: logging.FileOutput{
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Backend: BackendConfig{
			Mode:           getEnv(EnvBackend, backend.ModeAuto),
			ModelName:      getEnv(EnvModelName, DefaultModelName),
			DefaultPrompt:  mission.DefaultPrompt,
			MaxInputTokens: mission.DefaultMaxInputTokens,
			ModelPath:      os.Getenv(EnvModelPath),
			ModelCacheDir:  os.Getenv(EnvModelCacheDir),
			Runtime:        backend.RuntimeGo,
			LocalSampling:  mission.DefaultLocalSampling(),
			HFAPIToken:     os.Getenv(EnvHFAPIToken),
			HFBaseURL:      inference.DefaultBaseURL,
			HFEndpointURL:  os.Getenv(EnvHFAPIURL),
			RemoteTimeout:  inference.DefaultTimeout,
			HealthTimeout:  inference.DefaultHealthTimeout,
			RemoteSampling: mission.DefaultRemoteSampling(),
		},
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func (c *Config) AddFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "Path to a YAML configuration file; command-line flags take precedence over it")
	fs.StringVar(&c.Host, "host", c.Host, "Address to listen on")
	fs.StringVar(&c.Port, "port", c.Port, "Port to listen on (env "+EnvPort+")")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "Time allowed for in-flight requests on shutdown")
	fs.StringVar(&c.SSLCerts.Dir, "ssl-certs-dir", c.SSLCerts.Dir, "Directory holding the server certificate files")
	fs.StringVar(&c.SSLCerts.CertFile, "ssl-cert-file", c.SSLCerts.CertFile, "Server certificate file; enables TLS")
	fs.StringVar(&c.SSLCerts.KeyFile, "ssl-key-file", c.SSLCerts.KeyFile, "Server private key file")
	fs.StringVar(&c.SSLCerts.CaCertFile, "ssl-ca-cert-file", c.SSLCerts.CaCertFile, "CA certificate used to verify client certificates")
	fs.StringVar(&c.LogFile.Path, "log-file-path", c.LogFile.Path, "Also write logs to this rotating file")
	fs.IntVar(&c.LogFile.MaxSizeMB, "log-file-max-size", c.LogFile.MaxSizeMB, "Rotate the log file after this many megabytes")
	fs.IntVar(&c.LogFile.MaxBackups, "log-file-max-backups", c.LogFile.MaxBackups, "Number of rotated log files to keep")

	b := &c.Backend
	fs.StringVar(&b.Mode, "backend", b.Mode, "Generation backend: auto, local, remote or stub (env "+EnvBackend+")")
	fs.StringVar(&b.ModelName, "model-name", b.ModelName, "Model identifier (env "+EnvModelName+")")
	fs.StringVar(&b.DefaultPrompt, "default-prompt", b.DefaultPrompt, "Prompt used when a request has none")
	fs.IntVar(&b.MaxInputTokens, "max-input-tokens", b.MaxInputTokens, "Maximum prompt length in tokens")
	fs.StringVar(&b.StubText, "stub-text", b.StubText, "Text returned by the stub backend")
	fs.StringVar(&b.ModelPath, "model-path", b.ModelPath, "Directory with the ONNX seq2seq export (env "+EnvModelPath+")")
	fs.StringVar(&b.ModelCacheDir, "model-cache-dir", b.ModelCacheDir, "Directory the model is downloaded into (env "+EnvModelCacheDir+")")
	fs.StringVar(&b.Runtime, "runtime", b.Runtime, "Local inference runtime: go or ort")
	fs.StringVar(&b.OnnxLibraryPath, "onnx-library-path", b.OnnxLibraryPath, "Path to the onnxruntime shared library")
	fs.BoolVar(&b.CUDA, "cuda", b.CUDA, "Run local inference on the CUDA execution provider (ort runtime only)")
	fs.StringVar(&b.HFBaseURL, "hf-base-url", b.HFBaseURL, "Inference API base URL, the model name is appended")
	fs.StringVar(&b.HFEndpointURL, "hf-api-url", b.HFEndpointURL, "Full inference endpoint URL override (env "+EnvHFAPIURL+")")
	fs.DurationVar(&b.RemoteTimeout, "remote-timeout", b.RemoteTimeout, "Timeout for a remote generation call")
	fs.DurationVar(&b.HealthTimeout, "health-timeout", b.HealthTimeout, "Timeout for the remote health probe")
	fs.DurationVar(&b.HealthCacheTTL, "health-cache-ttl", b.HealthCacheTTL, "Reuse a remote probe result for this long (0 probes every time)")
	fs.BoolVar(&b.LegacyEnvelope, "legacy-envelope", b.LegacyEnvelope, "Stringify unrecognized remote response envelopes instead of failing")
	fs.StringVar(&b.ClientCerts.CaCertFile, "hf-ca-cert-file", b.ClientCerts.CaCertFile, "CA certificate for the inference endpoint")
	fs.StringVar(&b.ClientCerts.CertFile, "hf-client-cert-file", b.ClientCerts.CertFile, "Client certificate for the inference endpoint")
	fs.StringVar(&b.ClientCerts.KeyFile, "hf-client-key-file", b.ClientCerts.KeyFile, "Client private key for the inference endpoint")
	fs.BoolVar(&b.ClientInsecure, "hf-insecure-skip-verify", b.ClientInsecure, "Skip TLS verification of the inference endpoint (testing only)")
}

// LoadFromYAML loads the configuration from a YAML file over the current values.
func (c *Config) LoadFromYAML(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("decoding %s: %w", filePath, err)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %q", c.Port))
	}
	if (c.SSLCerts.CertFile == "") != (c.SSLCerts.KeyFile == "") {
		errs = append(errs, errors.New("ssl cert file and key file must be set together"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}

	b := c.Backend
	if b.Mode != backend.ModeAuto {
		if _, err := mission.ParseMode(b.Mode); err != nil {
			errs = append(errs, err)
		}
	}
	if b.ModelName == "" && b.HFEndpointURL == "" {
		errs = append(errs, errors.New("a model name or an inference endpoint url is required"))
	}
	if b.MaxInputTokens <= 0 {
		errs = append(errs, fmt.Errorf("max input tokens must be positive, got %d", b.MaxInputTokens))
	}
	if b.Runtime != backend.RuntimeGo && b.Runtime != backend.RuntimeORT {
		errs = append(errs, fmt.Errorf("unknown runtime %q", b.Runtime))
	}
	if b.CUDA && b.Runtime != backend.RuntimeORT {
		errs = append(errs, errors.New("cuda requires the ort runtime"))
	}
	if b.RemoteTimeout <= 0 || b.HealthTimeout <= 0 {
		errs = append(errs, errors.New("remote and health timeouts must be positive"))
	}
	if b.HealthCacheTTL < 0 {
		errs = append(errs, errors.New("health cache ttl must not be negative"))
	}
	if err := b.LocalSampling.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("local sampling: %w", err))
	}
	if err := b.RemoteSampling.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("remote sampling: %w", err))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func (c *Config) SelectorConfig() backend.SelectorConfig {
	b := c.Backend
	caCert, clientCert, clientKey := b.ClientCerts.CaCertFile, b.ClientCerts.CertFile, b.ClientCerts.KeyFile
	if b.ClientCerts.Dir != "" {
		clientCert, clientKey, caCert = b.ClientCerts.Resolve()
	}
	return backend.SelectorConfig{
		Mode: b.Mode,
		Local: backend.LocalConfig{
			ModelID:         b.ModelName,
			ModelPath:       b.ModelPath,
			CacheDir:        b.ModelCacheDir,
			AuthToken:       b.HFAPIToken,
			OnnxFiles:       b.OnnxFiles,
			Runtime:         b.Runtime,
			OnnxLibraryPath: b.OnnxLibraryPath,
			CUDA:            b.CUDA,
			Sampling:        b.LocalSampling,
			MaxInputTokens:  b.MaxInputTokens,
		},
		Remote: backend.RemoteConfig{
			Client: inference.HTTPClientConfig{
				BaseURL:               b.HFBaseURL,
				ModelID:               b.ModelName,
				EndpointURL:           b.HFEndpointURL,
				Timeout:               b.RemoteTimeout,
				HealthTimeout:         b.HealthTimeout,
				APIKey:                b.HFAPIToken,
				TLSInsecureSkipVerify: b.ClientInsecure,
				TLSCACertFile:         caCert,
				TLSClientCertFile:     clientCert,
				TLSClientKeyFile:      clientKey,
			},
			Sampling:       b.RemoteSampling,
			MaxInputTokens: b.MaxInputTokens,
			LegacyEnvelope: b.LegacyEnvelope,
			HealthCacheTTL: b.HealthCacheTTL,
		},
		StubText: b.StubText,
	}
}
