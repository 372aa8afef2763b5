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

// The file provides logging utilities and constants for the application.
package logging

import (
	"context"
	"io"
	"net/http"
	"os"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
	"k8s.io/klog/v2"
)

const (
	ERROR   = 1
	WARNING = 2
	INFO    = 3
	DEBUG   = 4
	TRACE   = 5
)

type contextKey string

const requestIDKey contextKey = "requestID"

func GetRequestLogger(r *http.Request) klog.Logger {
	return klog.FromContext(r.Context())
}

// NewRequestContext stores the request ID and a logger carrying it in ctx.
func NewRequestContext(ctx context.Context, requestID string) context.Context {
	logger := klog.FromContext(ctx).WithValues("requestID", requestID)
	ctx = klog.NewContext(ctx, logger)
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestIDFromContext retrieves the request ID from the context.
func GetRequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// FileOutput configures a rotating log file that receives a copy of stderr output.
type FileOutput struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// SetupFileOutput tees klog output into a rotating file. The returned closer
// must be closed after klog.Flush.
func SetupFileOutput(out FileOutput) io.Closer {
	rotating := &lumberjack.Logger{
		Filename:   out.Path,
		MaxSize:    out.MaxSizeMB,
		MaxBackups: out.MaxBackups,
		MaxAge:     out.MaxAgeDays,
		Compress:   out.Compress,
	}
	klog.LogToStderr(false)
	klog.SetOutput(io.MultiWriter(os.Stderr, rotating))
	return rotating
}
