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

// The file provides HTTP handlers for the liveness and health check endpoints.
// Health reports backend status without running a generation.
package health

import (
	"net/http"

	"github.com/llm-d-incubation/mission-gateway/internal/apiserver/common"
	"github.com/llm-d-incubation/mission-gateway/internal/mission"
	"github.com/llm-d-incubation/mission-gateway/internal/util/logging"
)

const (
	RootPath   = "/"
	HealthPath = "/api/health"

	StatusOnline = "online"
)

type RootResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

type HealthApiHandler struct {
	service *mission.Service
}

func NewHealthApiHandler(service *mission.Service) *HealthApiHandler {
	return &HealthApiHandler{service: service}
}

func (c *HealthApiHandler) GetRoutes() []common.Route {
	// GET patterns also match HEAD
	return []common.Route{
		{
			Method:      http.MethodGet,
			Pattern:     RootPath + "{$}",
			HandlerFunc: c.RootHandler,
		},
		{
			Method:      http.MethodGet,
			Pattern:     HealthPath,
			HandlerFunc: c.HealthHandler,
		},
	}
}

// RootHandler answers as long as the process is up, whatever the backend state.
func (c *HealthApiHandler) RootHandler(w http.ResponseWriter, r *http.Request) {
	model := ""
	if b := c.service.Backend(); b != nil {
		model = b.ModelID()
	}
	common.WriteJSON(r.Context(), w, http.StatusOK, RootResponse{Status: StatusOnline, Model: model})
}

func (c *HealthApiHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	report := c.service.Health(r.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusInternalServerError
		logging.GetRequestLogger(r).V(logging.INFO).Info("health check failed", "mode", report.Mode, "message", report.Message)
	}
	common.WriteJSON(r.Context(), w, status, report)
}
