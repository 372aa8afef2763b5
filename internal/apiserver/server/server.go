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

// The file wires the api handlers into an HTTP server and runs it until the
// context is cancelled.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/llm-d-incubation/mission-gateway/internal/apiserver/common"
	"github.com/llm-d-incubation/mission-gateway/internal/apiserver/health"
	"github.com/llm-d-incubation/mission-gateway/internal/apiserver/metrics"
	missionapi "github.com/llm-d-incubation/mission-gateway/internal/apiserver/mission"
	"github.com/llm-d-incubation/mission-gateway/internal/apiserver/middleware"
	"github.com/llm-d-incubation/mission-gateway/internal/backend"
	"github.com/llm-d-incubation/mission-gateway/internal/mission"
	utls "github.com/llm-d-incubation/mission-gateway/internal/util/tls"
	"k8s.io/klog/v2"
)

type Server struct {
	config    *common.Config
	tlsConfig *tls.Config
	// selectBackend is replaced in tests
	selectBackend func(ctx context.Context, cfg backend.SelectorConfig) mission.Backend
}

func New(config *common.Config) (*Server, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	s := &Server{config: config, selectBackend: backend.Select}

	if config.SSLCerts.CertFile != "" {
		certFile, keyFile, caCertFile := config.SSLCerts.Resolve()
		tlsConfig, err := utls.GetTlsConfig(utls.LOAD_TYPE_SERVER, false, certFile, keyFile, caCertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to build server TLS config: %w", err)
		}
		s.tlsConfig = tlsConfig
	}
	return s, nil
}

// NewHandler builds the routed, middleware-wrapped handler around a backend.
func NewHandler(b mission.Backend, defaultPrompt string) http.Handler {
	service := mission.NewService(b, defaultPrompt)

	mux := http.NewServeMux()
	common.RegisterHandler(mux, health.NewHealthApiHandler(service))
	common.RegisterHandler(mux, missionapi.NewMissionApiHandler(service))
	common.RegisterHandler(mux, metrics.NewMetricsApiHandler())

	return middleware.CORSMiddleware(middleware.RequestMiddleware(mux))
}

// Start selects the backend, then serves until ctx is cancelled and in-flight
// requests drain or the shutdown timeout elapses.
func (s *Server) Start(ctx context.Context) error {
	logger := klog.FromContext(ctx)

	b := s.selectBackend(ctx, s.config.SelectorConfig())
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error(err, "failed to close generation backend")
		}
	}()

	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	return s.serve(ctx, listener, NewHandler(b, s.config.Backend.DefaultPrompt))
}

func (s *Server) serve(ctx context.Context, listener net.Listener, handler http.Handler) error {
	logger := klog.FromContext(ctx)

	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		if s.tlsConfig != nil {
			httpServer.TLSConfig = s.tlsConfig
			logger.Info("api server listening with TLS", "addr", listener.Addr().String())
			errCh <- httpServer.ServeTLS(listener, "", "")
			return
		}
		logger.Info("api server listening", "addr", listener.Addr().String())
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down api server", "timeout", s.config.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down api server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
