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

package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	utls "github.com/llm-d-incubation/mission-gateway/internal/util/tls"
	"k8s.io/klog/v2"
)

const (
	DefaultBaseURL       = "https://api-inference.huggingface.co/models"
	DefaultTimeout       = 60 * time.Second
	DefaultHealthTimeout = 10 * time.Second
)

// HTTPClient calls a hosted text-generation endpoint keyed by model id.
// It never retries: cold starts and timeouts are reported to the caller.
type HTTPClient struct {
	client        *resty.Client
	modelURL      string
	timeout       time.Duration
	healthTimeout time.Duration
}

// HTTPClientConfig holds configuration for the HTTP client
type HTTPClientConfig struct {
	BaseURL         string        // Provider base URL, the model id is appended (default: DefaultBaseURL)
	ModelID         string        // Model identifier, e.g. "bekenRey/mt5-small-rpg-mission-generator-english"
	EndpointURL     string        // Full endpoint override; when set BaseURL and ModelID are not used for routing
	Timeout         time.Duration // Generation timeout (default: 60 seconds)
	HealthTimeout   time.Duration // Health probe timeout (default: 10 seconds)
	MaxIdleConns    int           // Maximum idle connections (default: 10)
	IdleConnTimeout time.Duration // Idle connection timeout (default: 90 seconds)
	APIKey          string        // Optional bearer credential

	// TLS configuration (optional)
	TLSInsecureSkipVerify bool   // Skip TLS certificate verification (testing only)
	TLSCACertFile         string // Path to custom CA certificate file (for private CAs)
	TLSClientCertFile     string // Path to client certificate file (for mTLS)
	TLSClientKeyFile      string // Path to client private key file (for mTLS)
}

// GenerateRequest carries an already-built provider payload.
type GenerateRequest struct {
	RequestID string
	Payload   any
}

type GenerateResponse struct {
	RequestID  string
	StatusCode int
	Body       []byte
}

// ProbeResponse is the outcome of a health probe that reached the provider.
type ProbeResponse struct {
	StatusCode    int
	EstimatedTime float64
}

// ModelURL resolves the endpoint for a configuration.
func (config HTTPClientConfig) ModelURL() string {
	if config.EndpointURL != "" {
		return config.EndpointURL
	}
	base := config.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(config.ModelID, "/")
}

// NewHTTPClient creates a new HTTP-based inference client
func NewHTTPClient(config HTTPClientConfig) (*HTTPClient, error) {
	if config.EndpointURL == "" && config.ModelID == "" {
		return nil, errors.New("either a model id or an endpoint url is required")
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.HealthTimeout == 0 {
		config.HealthTimeout = DefaultHealthTimeout
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.IdleConnTimeout == 0 {
		config.IdleConnTimeout = 90 * time.Second
	}

	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	// adds "Authorization: Bearer <token>" to all requests
	if config.APIKey != "" {
		client.SetAuthToken(config.APIKey)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = config.MaxIdleConns
	transport.MaxIdleConnsPerHost = config.MaxIdleConns
	transport.IdleConnTimeout = config.IdleConnTimeout

	if config.TLSInsecureSkipVerify || config.TLSCACertFile != "" || config.TLSClientCertFile != "" || config.TLSClientKeyFile != "" {
		tlsConfig, err := utls.GetTlsConfig(utls.LOAD_TYPE_CLIENT, config.TLSInsecureSkipVerify,
			config.TLSClientCertFile, config.TLSClientKeyFile, config.TLSCACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to build TLS config: %w", err)
		}
		if config.TLSInsecureSkipVerify {
			klog.Warning("TLS certificate verification is disabled - this is insecure and should only be used for testing")
		}
		transport.TLSClientConfig = tlsConfig
	}
	client.SetTransport(transport)

	return &HTTPClient{
		client:        client,
		modelURL:      config.ModelURL(),
		timeout:       config.Timeout,
		healthTimeout: config.HealthTimeout,
	}, nil
}

func (c *HTTPClient) ModelURL() string {
	return c.modelURL
}

// Generate posts the payload and returns the raw successful body unmodified.
func (c *HTTPClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, *ClientError) {
	if req == nil || req.Payload == nil {
		return nil, &ClientError{
			Category: ErrCategoryInvalidReq,
			Message:  "request payload cannot be nil",
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	restyReq := c.client.R().SetContext(reqCtx).SetBody(req.Payload)
	if req.RequestID != "" {
		restyReq.SetHeader("X-Request-ID", req.RequestID)
	}

	klog.V(4).Infof("Sending generation request to %s with request_id=%s", c.modelURL, req.RequestID)

	resp, err := restyReq.Post(c.modelURL)
	if err != nil {
		return nil, c.handleRequestError(ctx, reqCtx, err, req.RequestID)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, c.handleErrorResponse(resp.StatusCode(), resp.Body())
	}

	klog.V(4).Infof("Received successful response for request_id=%s, status=%d, body_size=%d",
		req.RequestID, resp.StatusCode(), len(resp.Body()))

	return &GenerateResponse{
		RequestID:  req.RequestID,
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}, nil
}

// Probe checks provider availability without generating. A response with any
// status is returned as a ProbeResponse; only transport failures are errors.
func (c *HTTPClient) Probe(ctx context.Context) (*ProbeResponse, *ClientError) {
	reqCtx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	resp, err := c.client.R().SetContext(reqCtx).Get(c.modelURL)
	if err != nil {
		return nil, c.handleRequestError(ctx, reqCtx, err, "")
	}

	probe := &ProbeResponse{StatusCode: resp.StatusCode()}
	if resp.StatusCode() == http.StatusServiceUnavailable {
		if estimate, ok := parseEstimatedTime(resp.Body()); ok {
			probe.EstimatedTime = estimate
		}
	}
	klog.V(4).Infof("Provider probe %s returned status=%d", c.modelURL, resp.StatusCode())
	return probe, nil
}

// handleRequestError processes request-level errors (network, timeout, cancellation)
func (c *HTTPClient) handleRequestError(parentCtx, reqCtx context.Context, err error, requestID string) *ClientError {
	if errors.Is(parentCtx.Err(), context.Canceled) {
		klog.V(3).Infof("Request cancelled for request_id=%s", requestID)
		return &ClientError{
			Category: ErrCategoryCancelled,
			Message:  "request cancelled",
			RawError: err,
		}
	}

	var netErr net.Error
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		klog.V(3).Infof("Request timeout for request_id=%s", requestID)
		return &ClientError{
			Category: ErrCategoryTimeout,
			Message:  "request timeout",
			RawError: err,
		}
	}

	klog.V(3).Infof("Request failed with network error for request_id=%s: %v", requestID, err)
	return &ClientError{
		Category: ErrCategoryServer,
		Message:  fmt.Sprintf("failed to execute request: %v", err),
		RawError: err,
	}
}

// handleErrorResponse parses the provider error body and maps it to a ClientError
func (c *HTTPClient) handleErrorResponse(statusCode int, body []byte) *ClientError {
	if statusCode == http.StatusServiceUnavailable {
		if estimate, ok := parseEstimatedTime(body); ok {
			klog.V(3).Infof("Model is loading on provider, estimated_time=%.1fs", estimate)
			return &ClientError{
				Category:      ErrCategoryLoading,
				Message:       "model is loading",
				StatusCode:    statusCode,
				EstimatedTime: estimate,
			}
		}
	}

	message := errorMessage(statusCode, body)
	category := c.mapStatusCodeToCategory(statusCode)

	klog.V(3).Infof("Inference request failed with status=%d, category=%s, message=%s", statusCode, category, message)

	return &ClientError{
		Category:   category,
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, message),
		StatusCode: statusCode,
		RawError:   fmt.Errorf("status code: %d, body: %s", statusCode, string(body)),
	}
}

// mapStatusCodeToCategory maps HTTP status codes to error categories
func (c *HTTPClient) mapStatusCodeToCategory(statusCode int) ErrorCategory {
	switch statusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity: // 400, 422
		return ErrCategoryInvalidReq
	case http.StatusUnauthorized, http.StatusForbidden: // 401, 403
		return ErrCategoryAuth
	case http.StatusTooManyRequests: // 429
		return ErrCategoryRateLimit
	default:
		if statusCode >= 500 {
			return ErrCategoryServer
		}
		return ErrCategoryUnknown
	}
}

// errorMessage extracts a message from either {"error": "..."} or
// {"error": {"message": "..."}} bodies, falling back to the raw body.
func errorMessage(statusCode int, body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Error) > 0 {
		var text string
		if err := json.Unmarshal(envelope.Error, &text); err == nil && text != "" {
			return text
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(envelope.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
	}
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return message
}

func parseEstimatedTime(body []byte) (float64, bool) {
	var loading struct {
		EstimatedTime *float64 `json:"estimated_time"`
	}
	if err := json.Unmarshal(body, &loading); err != nil || loading.EstimatedTime == nil {
		return 0, false
	}
	return *loading.EstimatedTime, true
}
