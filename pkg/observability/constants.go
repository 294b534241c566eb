// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the agent server.
package observability

const (
	AttrAgentName      = "agent.name"
	AttrLLMModel       = "llm.model"
	AttrTaskID         = "a2a.task_id"
	AttrContextID      = "a2a.context_id"
	AttrTaskState      = "a2a.task_state"
	AttrChunks         = "llm.chunks"
	AttrErrorType      = "error.type"
	AttrHTTPMethod     = "http.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.status_code"

	SpanHTTPRequest    = "http.request"
	SpanAgentExecution = "agent.execute"
	SpanLLMRequest     = "agent.llm_request"

	DefaultServiceName = "problem-resolve"

	// Tracing exporters accepted in OTEL_TRACES_EXPORTER.
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)
