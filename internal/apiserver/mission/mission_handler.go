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

// The file provides the HTTP handler for mission generation.
package mission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/llm-d-incubation/mission-gateway/internal/apiserver/common"
	"github.com/llm-d-incubation/mission-gateway/internal/mission"
	"github.com/llm-d-incubation/mission-gateway/internal/mission/metrics"
	"github.com/llm-d-incubation/mission-gateway/internal/util/logging"
)

const (
	MissionPath = "/api/mission"
)

// MissionRequest is the request body. Prompt is a pointer so an absent field
// and an explicit null both select the default prompt.
type MissionRequest struct {
	Prompt *string `json:"prompt"`
}

type MissionApiHandler struct {
	service *mission.Service
}

func NewMissionApiHandler(service *mission.Service) *MissionApiHandler {
	return &MissionApiHandler{service: service}
}

func (c *MissionApiHandler) GetRoutes() []common.Route {
	return []common.Route{
		{
			Method:      http.MethodPost,
			Pattern:     MissionPath,
			HandlerFunc: c.GenerateMission,
		},
	}
}

func (c *MissionApiHandler) GenerateMission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.GetRequestLogger(r)

	req, genErr := decodeRequest(w, r)
	if genErr != nil {
		logger.V(logging.DEBUG).Info("rejecting mission request", "error", genErr.Message)
		common.WriteError(ctx, w, genErr)
		return
	}

	mode := modeLabel(c.service.Backend())
	start := time.Now()
	body, genErr := c.service.Generate(ctx, req.Prompt)
	if genErr != nil {
		metrics.RecordGeneration(mode, string(genErr.Category), time.Since(start))
		common.WriteError(ctx, w, genErr)
		return
	}
	metrics.RecordGeneration(mode, metrics.OutcomeSuccess, time.Since(start))
	common.WriteJSON(ctx, w, http.StatusOK, body)
}

// decodeRequest reads at most common.MaxRequestBytes. An empty body is the
// same as {}.
func decodeRequest(w http.ResponseWriter, r *http.Request) (*MissionRequest, *mission.Error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, common.MaxRequestBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, mission.NewInvalidRequestError(fmt.Sprintf("body exceeds %d bytes", maxErr.Limit), err)
		}
		return nil, mission.NewInvalidRequestError(err.Error(), err)
	}

	req := &MissionRequest{}
	if len(bytes.TrimSpace(data)) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(data, req); err != nil {
		return nil, mission.NewInvalidRequestError(err.Error(), err)
	}
	return req, nil
}

func modeLabel(b mission.Backend) string {
	if b == nil {
		return metrics.OutcomeUnknown
	}
	return string(b.Mode())
}
