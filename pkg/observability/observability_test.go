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

package observability

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	m.ObserveRequest(http.MethodGet, 200)
	m.ExecutionStarted()
	m.ExecutionFinished("completed")
	m.WorkerRejected()
	m.RecordGeneration(context.Background(), "gemini-2.0-flash", time.Second, nil)

	assert.Nil(t, m.Registry())
	assert.NoError(t, m.Shutdown(context.Background()))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Counters(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	defer m.Shutdown(context.Background())

	m.ObserveRequest(http.MethodPost, 200)
	m.ObserveRequest(http.MethodPost, 200)
	m.ObserveRequest(http.MethodGet, 503)

	m.ExecutionStarted()
	m.ExecutionStarted()
	m.ExecutionFinished("completed")
	m.WorkerRejected()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "503")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.executions.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inflight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections))
}

func TestMetrics_HandlerExposesGeneration(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	defer m.Shutdown(context.Background())

	m.RecordGeneration(context.Background(), "gemini-2.0-flash", 250*time.Millisecond, nil)
	m.RecordGeneration(context.Background(), "gemini-2.0-flash", time.Second, errors.New("quota"))
	m.ExecutionStarted()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "problem_resolve_generation_duration_seconds")
	assert.Contains(t, body, "problem_resolve_generation_errors")
	assert.Contains(t, body, "problem_resolve_inflight_executions 1")
	assert.Contains(t, body, "go_goroutines")
}

func TestHTTPMiddleware_RecordsStatus(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	defer m.Shutdown(context.Background())

	r := chi.NewRouter()
	r.Use(HTTPMiddleware(nil, m))
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	r.Get("/busy", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for _, path := range []string{"/ok", "/ok", "/busy"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "503")))
}

func TestNewTracer_Disabled(t *testing.T) {
	for _, exporter := range []string{"", ExporterNone} {
		tr, err := NewTracer(context.Background(), TracingConfig{Exporter: exporter})
		require.NoError(t, err)
		assert.False(t, tr.Enabled())

		_, span := tr.Start(context.Background(), "noop")
		span.End()
		assert.False(t, span.SpanContext().IsValid())
		assert.NoError(t, tr.Shutdown(context.Background()))
	}

	var nilTracer *Tracer
	_, span := nilTracer.Start(context.Background(), "noop")
	span.End()
}

func TestNewTracer_Stdout(t *testing.T) {
	var buf bytes.Buffer
	tr, err := NewTracer(context.Background(), TracingConfig{
		Exporter:       ExporterStdout,
		ServiceVersion: "test",
		Writer:         &buf,
	})
	require.NoError(t, err)
	require.True(t, tr.Enabled())

	_, span := tr.Start(context.Background(), SpanAgentExecution)
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, tr.Shutdown(context.Background()))
	assert.True(t, strings.Contains(buf.String(), SpanAgentExecution), buf.String())
}

func TestNewTracer_OTLP(t *testing.T) {
	tr, err := NewTracer(context.Background(), TracingConfig{
		Exporter: ExporterOTLP,
		Endpoint: "127.0.0.1:4317",
		Insecure: true,
	})
	require.NoError(t, err)
	assert.True(t, tr.Enabled())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = tr.Shutdown(ctx)
}

func TestNewTracer_Unsupported(t *testing.T) {
	_, err := NewTracer(context.Background(), TracingConfig{Exporter: "zipkin"})
	assert.Error(t, err)
}
