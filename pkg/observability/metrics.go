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
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const namespace = "problem_resolve"

// Metrics holds the server's collectors in a private registry. All methods
// are safe on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	requests   *prometheus.CounterVec
	executions *prometheus.CounterVec
	inflight   prometheus.Gauge
	rejections prometheus.Counter

	meterProvider *sdkmetric.MeterProvider
	genDuration   metric.Float64Histogram
	genErrors     metric.Int64Counter
}

// NewMetrics creates the collectors and registers them, together with the
// Go runtime and process collectors, in a new registry. Model latency is
// recorded through the OpenTelemetry metrics API and bridged into the same
// registry.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests served, by method and status code.",
		}, []string{"method", "code"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Agent executions, by terminal task state.",
		}, []string{"state"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflight_executions",
			Help:      "Agent executions currently running.",
		}),
		rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_rejections_total",
			Help:      "Executions that gave up waiting for a worker.",
		}),
	}

	reg.MustRegister(
		m.requests,
		m.executions,
		m.inflight,
		m.rejections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(reg), otelprom.WithoutScopeInfo())
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	m.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := m.meterProvider.Meter(DefaultServiceName)

	m.genDuration, err = meter.Float64Histogram(
		namespace+"_generation_duration_seconds",
		metric.WithDescription("Model generation duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation duration histogram: %w", err)
	}

	m.genErrors, err = meter.Int64Counter(
		namespace+"_generation_errors",
		metric.WithDescription("Model generation errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation errors counter: %w", err)
	}

	return m, nil
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest counts one served HTTP request.
func (m *Metrics) ObserveRequest(method string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// ExecutionStarted marks an execution as in flight.
func (m *Metrics) ExecutionStarted() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

// ExecutionFinished records the terminal state of an execution started with
// ExecutionStarted.
func (m *Metrics) ExecutionFinished(state string) {
	if m == nil {
		return
	}
	m.inflight.Dec()
	m.executions.WithLabelValues(state).Inc()
}

// WorkerRejected counts an execution that gave up waiting for a worker.
func (m *Metrics) WorkerRejected() {
	if m == nil {
		return
	}
	m.rejections.Inc()
}

// RecordGeneration records one model call.
func (m *Metrics) RecordGeneration(ctx context.Context, model string, duration time.Duration, err error) {
	if m == nil || m.genDuration == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.genDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.genErrors.Add(ctx, 1, attrs)
	}
}

// Shutdown stops the OpenTelemetry meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.meterProvider == nil {
		return nil
	}
	return m.meterProvider.Shutdown(ctx)
}
