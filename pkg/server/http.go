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

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kadirpekel/problem-resolve/pkg/config"
	"github.com/kadirpekel/problem-resolve/pkg/observability"
)

const (
	// HealthPath reports liveness.
	HealthPath = "/health"
	// MetricsPath serves Prometheus metrics when metrics are configured.
	MetricsPath = "/metrics"

	shutdownTimeout = 5 * time.Second
)

// HTTPServer serves one agent over A2A JSON-RPC.
type HTTPServer struct {
	addr     string
	card     *a2a.AgentCard
	executor a2asrv.AgentExecutor

	metrics *observability.Metrics
	tracer  *observability.Tracer

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// HTTPServerOption configures an HTTPServer.
type HTTPServerOption func(*HTTPServer)

// WithMetrics records request metrics and serves MetricsPath.
func WithMetrics(m *observability.Metrics) HTTPServerOption {
	return func(s *HTTPServer) {
		s.metrics = m
	}
}

// WithTracer wraps requests in spans.
func WithTracer(t *observability.Tracer) HTTPServerOption {
	return func(s *HTTPServer) {
		s.tracer = t
	}
}

// NewHTTPServer creates a server for card and executor bound to addr.
func NewHTTPServer(addr string, card *a2a.AgentCard, executor a2asrv.AgentExecutor, opts ...HTTPServerOption) *HTTPServer {
	s := &HTTPServer{
		addr:     addr,
		card:     card,
		executor: executor,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observability.HTTPMiddleware(s.tracer, s.metrics))
	r.Use(loggingMiddleware)

	r.Get(HealthPath, handleHealth)
	r.Method(http.MethodGet, a2asrv.WellKnownAgentCardPath, a2asrv.NewStaticAgentCardHandler(s.card))
	if s.metrics != nil {
		r.Method(http.MethodGet, MetricsPath, s.metrics.Handler())
	}

	jsonrpc := a2asrv.NewJSONRPCHandler(a2asrv.NewHandler(s.executor))
	r.Method(http.MethodPost, "/", jsonrpc)

	return r
}

// Listen binds the listener. Serve calls it when it has not been called.
func (s *HTTPServer) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return &config.StartupError{Stage: "listen " + s.addr, Err: err}
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Serve serves until ctx is canceled, then shuts down gracefully.
func (s *HTTPServer) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv, ln := s.server, s.listener
	s.mu.Unlock()

	slog.Info("HTTP server starting", "address", ln.Addr().String(), "agent", s.card.Name)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return &config.StartupError{Stage: "serve", Err: err}
		}
		return nil
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.mu.Lock()
	srv := s.server
	s.server, s.listener = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	slog.Info("HTTP server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	return nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start),
		)
	})
}
