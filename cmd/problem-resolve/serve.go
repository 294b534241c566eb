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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/a2aproject/a2a-go/a2asrv"

	problemresolve "github.com/kadirpekel/problem-resolve"
	"github.com/kadirpekel/problem-resolve/pkg/agent"
	"github.com/kadirpekel/problem-resolve/pkg/config"
	"github.com/kadirpekel/problem-resolve/pkg/observability"
	"github.com/kadirpekel/problem-resolve/pkg/preflight"
	"github.com/kadirpekel/problem-resolve/pkg/server"
)

const shutdownGrace = 5 * time.Second

// ServeCmd starts the A2A server.
type ServeCmd struct {
	Standalone bool `help:"Run as the standalone agent (default port 8001)."`
}

func (c *ServeCmd) defaults() config.Defaults {
	if c.Standalone {
		return config.DefaultTable(config.StandaloneAgentPort)
	}
	return config.DefaultTable(config.DefaultPort)
}

func (c *ServeCmd) Run(cli *CLI, a *app) error {
	ctx, stop := signal.NotifyContext(a.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defaults := c.defaults()
	printSummary(a.stdout, cli, defaults)

	if _, err := preflight.Run(ctx, a.checks...); err != nil {
		return err
	}

	// The snapshot is taken before mirroring so reloads resolve against the
	// startup environment, not values this process wrote.
	base := a.environ()
	cfg, err := resolve(cli, base, defaults, config.RequiredKeys)
	if err != nil {
		return err
	}
	if err := config.ApplyMirror(cfg, a.setenv); err != nil {
		return err
	}
	if _, err := initLogger(cli, cfg, a.stderr); err != nil {
		return err
	}

	spec, err := loadAgent(cli)
	if err != nil {
		return err
	}

	version := problemresolve.GetVersion().Version
	tracer, err := observability.NewTracer(ctx, observability.TracingConfig{
		Exporter:       cfg.Value("OTEL_TRACES_EXPORTER"),
		Endpoint:       cfg.Value("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Insecure:       true,
		ServiceName:    observability.DefaultServiceName,
		ServiceVersion: version,
		Writer:         a.stderr,
	})
	if err != nil {
		return &config.StartupError{Stage: "init tracing", Err: err}
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Tracer shutdown failed", "error", err)
		}
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return &config.StartupError{Stage: "init metrics", Err: err}
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Metrics shutdown failed", "error", err)
		}
	}()

	shared := generation{
		spec:    spec,
		tracer:  tracer,
		metrics: metrics,
		version: version,
		envFile: cli.Config,
		resolve: func() (*config.EffectiveConfig, error) {
			return resolve(cli, base, defaults, config.RequiredKeys)
		},
	}

	// previous is the configuration to fall back to when a reloaded one
	// cannot be served.
	var previous *config.EffectiveConfig
	for {
		next, err := c.serveOnce(ctx, a, cfg, shared)
		if err != nil {
			if previous == nil {
				return err
			}
			slog.Error("Reloaded configuration failed to start, restoring previous", "error", err)
			cfg, previous = previous, nil
			applyReload(cli, a, cfg)
			continue
		}
		if next == nil {
			slog.Info("Server stopped")
			return nil
		}

		previous, cfg = cfg, next
		applyReload(cli, a, cfg)
		slog.Info("Configuration reloaded", "address", cfg.Address())
	}
}

// generation carries what every server generation shares.
type generation struct {
	spec    *agent.Spec
	tracer  *observability.Tracer
	metrics *observability.Metrics
	version string
	envFile string

	// resolve re-reads the env file and resolves a replacement configuration.
	resolve func() (*config.EffectiveConfig, error)
}

// applyReload mirrors cfg into the environment and reinstalls the logger.
// The new configuration has already been validated, so failures are logged.
func applyReload(cli *CLI, a *app, cfg *config.EffectiveConfig) {
	if err := config.ApplyMirror(cfg, a.setenv); err != nil {
		slog.Warn("Failed to mirror reloaded configuration", "error", err)
	}
	if _, err := initLogger(cli, cfg, a.stderr); err != nil {
		slog.Warn("Failed to apply reloaded log settings", "error", err)
	}
}

// serveOnce runs one server generation. It returns the configuration to
// restart with when the env file changed and re-resolves cleanly, and nil
// on shutdown. A change that fails to resolve is logged and the running
// server keeps serving.
func (c *ServeCmd) serveOnce(ctx context.Context, a *app, cfg *config.EffectiveConfig, g generation) (*config.EffectiveConfig, error) {
	gen, err := a.newGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}

	handoff := agent.NewHandoff(g.spec, cfg)
	slog.Debug("Agent handoff",
		"model", handoff.Model,
		"tools", len(handoff.Tools),
		"safety", len(handoff.Safety),
		"host", handoff.Host,
		"port", handoff.Port,
	)

	executor := server.NewExecutor(server.ExecutorConfig{
		Agent:     g.spec,
		Generator: gen,
		Workers:   cfg.WorkerCount,
		Metrics:   g.metrics,
		Tracer:    g.tracer,
	})
	srv := server.NewHTTPServer(cfg.Address(), g.spec.Card(cardURL(cfg), g.version), executor,
		server.WithMetrics(g.metrics),
		server.WithTracer(g.tracer),
	)
	if err := srv.Listen(); err != nil {
		return nil, err
	}

	srvCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var next atomic.Pointer[config.EffectiveConfig]
	if cfg.AutoReload {
		changes, err := config.WatchFile(srvCtx, g.envFile)
		if err != nil {
			slog.Warn("Reload disabled, cannot watch env file", "path", g.envFile, "error", err)
		} else {
			go func() {
				for range changes {
					slog.Info("Env file changed", "path", g.envFile)
					resolved, err := g.resolve()
					if err != nil {
						slog.Error("Reload failed, keeping previous configuration", "error", err)
						continue
					}
					slog.Info("Restarting server", "address", resolved.Address())
					next.Store(resolved)
					cancel()
					return
				}
			}()
		}
	}

	fmt.Fprintf(a.stdout, "\nproblem-resolve ready\n")
	fmt.Fprintf(a.stdout, "   A2A:        http://%s/\n", srv.Addr())
	fmt.Fprintf(a.stdout, "   Agent Card: http://%s%s\n", srv.Addr(), a2asrv.WellKnownAgentCardPath)
	fmt.Fprintf(a.stdout, "   Health:     http://%s%s\n", srv.Addr(), server.HealthPath)
	fmt.Fprintf(a.stdout, "   Metrics:    http://%s%s\n", srv.Addr(), server.MetricsPath)
	fmt.Fprintf(a.stdout, "   Workers:    %d\n", cfg.WorkerCount)

	if err := srv.Serve(srvCtx); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, nil
	}
	return next.Load(), nil
}
